// Package geom holds the float32 vector math shared by the simulation.
//
// Every product that feeds an addition is wrapped in an explicit float32
// conversion. The Go compiler never fuses across such a conversion, so
// the float32 arithmetic here is bit-identical on architectures with and
// without FMA. Rotate, Atan2 and the angle helpers go through math.Sin,
// math.Cos and math.Atan2, which carry no such promise across ports, so
// peers of one match should run the same GOARCH.
package geom

import "math"

type Vec2 struct {
	X float32
	Y float32
}

var (
	Zero = Vec2{}
	Up   = Vec2{0, 1}
)

func V(x, y float32) Vec2 { return Vec2{x, y} }

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Neg() Vec2       { return Vec2{-v.X, -v.Y} }

func (v Vec2) Scale(f float32) Vec2 {
	return Vec2{float32(v.X * f), float32(v.Y * f)}
}

func (v Vec2) Div(f float32) Vec2 {
	return Vec2{v.X / f, v.Y / f}
}

func (v Vec2) IsZero() bool { return v.X == 0 && v.Y == 0 }

func Dot(a, b Vec2) float32 {
	return float32(a.X*b.X) + float32(a.Y*b.Y)
}

func (v Vec2) SqrLen() float32 { return Dot(v, v) }

func (v Vec2) Len() float32 {
	return float32(math.Sqrt(float64(v.SqrLen())))
}

// Normalized returns the unit vector of v, or zero for a zero vector.
func (v Vec2) Normalized() Vec2 {
	l := v.Len()
	if l == 0 {
		return Zero
	}
	return v.Div(l)
}

// Rotate turns v counter-clockwise by deg degrees.
func (v Vec2) Rotate(deg float32) Vec2 {
	cs := Cos(deg)
	sn := Sin(deg)
	return Vec2{
		X: float32(v.X*cs) - float32(v.Y*sn),
		Y: float32(v.X*sn) + float32(v.Y*cs),
	}
}

func Lerp(a, b Vec2, t float32) Vec2 {
	return a.Add(b.Sub(a).Scale(t))
}

// Atan2 returns the heading of v in radians.
func (v Vec2) Atan2() float32 {
	return float32(math.Atan2(float64(v.Y), float64(v.X)))
}
