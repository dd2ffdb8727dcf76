package geom

import "math"

const (
	radToDeg = 180 / math.Pi
	degToRad = math.Pi / 180
)

func Cos(deg float32) float32 {
	return float32(math.Cos(float64(deg) * degToRad))
}

func Sin(deg float32) float32 {
	return float32(math.Sin(float64(deg) * degToRad))
}

func Degrees(rad float32) float32 {
	return float32(float64(rad) * radToDeg)
}

func Radians(deg float32) float32 {
	return float32(float64(deg) * degToRad)
}

// PosAngle wraps deg into [0, 360).
func PosAngle(deg float32) float32 {
	a := float32(math.Mod(float64(deg), 360))
	if a < 0 {
		a += 360
	}
	if a >= 360 {
		a -= 360
	}
	return a
}

// ShortArc folds an arc length in [0, 360) onto [0, 180].
func ShortArc(deg float32) float32 {
	if deg > 180 {
		return 360 - deg
	}
	return deg
}

func Clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
