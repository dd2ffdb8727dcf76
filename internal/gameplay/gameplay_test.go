package gameplay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glovebox/server/internal/core/ecs"
	"github.com/glovebox/server/internal/core/geom"
	"github.com/glovebox/server/internal/physics"
)

type fixture struct {
	reg     *ecs.Registry
	tuning  *Tuning
	phys    *physics.Engine
	gloves  *GloveSystem
	players *PlayerSystem
	effects *EffectSystem

	player ecs.EntityID
	glove  [2]ecs.EntityID
	gone   []ecs.EntityID
}

func (f *fixture) PlayerEntity(p PlayerNumber) ecs.EntityID {
	if p == 0 {
		return f.player
	}
	return ecs.InvalidEntity
}

func (f *fixture) GloveEntities(p PlayerNumber) [2]ecs.EntityID {
	if p == 0 {
		return f.glove
	}
	return [2]ecs.EntityID{}
}

func (f *fixture) DestroyEntity(id ecs.EntityID) {
	f.gone = append(f.gone, id)
	f.reg.Destroy(id)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tuning := DefaultTuning()
	require.NoError(t, tuning.Validate())

	f := &fixture{reg: ecs.NewRegistry(), tuning: &tuning}
	f.phys = physics.NewEngine(f.reg)
	f.gloves = NewGloveSystem(f.reg, f.tuning, f, f.phys)
	f.players = NewPlayerSystem(f.reg, f.tuning, f, f.phys, f.gloves)
	f.effects = NewEffectSystem(f.reg, f.tuning, f)

	f.player = f.reg.Create()
	f.phys.AddBody(f.player, physics.NewBody())
	f.phys.AddCollider(f.player, physics.Collider{Radius: tuning.PlayerRadius, Enabled: true})
	f.players.Add(f.player, PlayerCharacter{Player: 0})

	for i, sign := range [2]float32{1, -1} {
		id := f.reg.Create()
		b := physics.NewBody()
		b.Position = tuning.GloveSpawn(geom.Zero, 0, sign)
		f.phys.AddBody(id, b)
		f.phys.AddCollider(id, physics.Collider{Radius: tuning.GloveRadius, Enabled: true})
		f.gloves.Add(id, Glove{Player: 0, Sign: sign})
		f.glove[i] = id
	}
	return f
}

func (f *fixture) setInput(in Input) {
	f.players.Ref(f.player).Input = in
}

func (f *fixture) step() {
	dt := f.tuning.FixedPeriod
	f.players.Step(dt)
	f.gloves.Step(dt)
	f.phys.Step(dt)
	f.effects.Step(dt)
}

func TestHoldingForwardNeverExceedsMaxSpeed(t *testing.T) {
	f := newFixture(t)
	f.setInput(InputUp)

	for i := 0; i < 200; i++ {
		f.players.Step(f.tuning.FixedPeriod)
		speed := f.phys.Body(f.player).Velocity.Len()
		require.LessOrEqual(t, speed, f.tuning.PlayerMaxSpeed+1e-5, "frame %d", i)
		f.gloves.Step(f.tuning.FixedPeriod)
		f.phys.Step(f.tuning.FixedPeriod)
	}
	assert.InDelta(t, f.tuning.PlayerMaxSpeed, f.phys.Body(f.player).Velocity.Len(), 1e-4)
	assert.Greater(t, f.phys.Body(f.player).Position.Y, float32(0), "up input moves along +y at rotation 0")
}

func TestReleasingInputAppliesFriction(t *testing.T) {
	f := newFixture(t)
	b := f.phys.Body(f.player)
	b.Velocity = geom.V(0, 2)
	f.phys.SetBody(f.player, b)

	f.players.Step(f.tuning.FixedPeriod)
	want := 2 * (1 - f.tuning.PlayerFrictionLoss*f.tuning.FixedPeriod)
	assert.InDelta(t, want, f.phys.Body(f.player).Velocity.Y, 1e-6)
}

func TestNoClampOrFrictionWhileKnockedBack(t *testing.T) {
	f := newFixture(t)
	b := f.phys.Body(f.player)
	b.Velocity = geom.V(9, 0)
	f.phys.SetBody(f.player, b)
	f.players.Ref(f.player).KnockbackTime = 0.5

	f.players.Step(f.tuning.FixedPeriod)
	assert.Equal(t, geom.V(9, 0), f.phys.Body(f.player).Velocity)
	assert.InDelta(t, 0.48, f.players.Get(f.player).KnockbackTime, 1e-6)
}

func TestTimersFloorAtZero(t *testing.T) {
	f := newFixture(t)
	pc := f.players.Ref(f.player)
	pc.InvincibilityTime = 0.01
	pc.KnockbackTime = 0.015

	f.players.Step(f.tuning.FixedPeriod)
	got := f.players.Get(f.player)
	assert.Zero(t, got.InvincibilityTime)
	assert.Zero(t, got.KnockbackTime)
}

func TestTurningDragsIdleGloves(t *testing.T) {
	f := newFixture(t)
	before := f.phys.Body(f.glove[0]).Position
	f.setInput(InputRight)

	f.players.Step(f.tuning.FixedPeriod)

	turn := f.tuning.PlayerRotationalSpeed * f.tuning.FixedPeriod
	assert.InDelta(t, turn, f.phys.Body(f.player).Rotation, 1e-5)
	after := f.phys.Body(f.glove[0])
	assert.InDelta(t, turn, after.Rotation, 1e-5)
	want := before.Rotate(-turn)
	assert.InDelta(t, want.X, after.Position.X, 1e-5)
	assert.InDelta(t, want.Y, after.Position.Y, 1e-5)
}

func TestGloveSnapsToNearestSectorBound(t *testing.T) {
	f := newFixture(t)
	b := f.phys.Body(f.glove[0])
	b.Position = geom.Up.Rotate(150).Scale(f.tuning.GloveIdealDist)
	b.Velocity = geom.Zero
	f.phys.SetBody(f.glove[0], b)

	f.gloves.Step(f.tuning.FixedPeriod)

	pos := f.phys.Body(f.glove[0]).Position
	angle := geom.PosAngle(geom.Degrees(pos.Atan2()) - 90)
	assert.InDelta(t, 130, angle, 1e-3)
	assert.InDelta(t, f.tuning.GloveIdealDist, pos.Len(), 1e-5)
}

func TestSectorBound(t *testing.T) {
	tests := []struct {
		name      string
		toGlove   geom.Vec2
		sign      float32
		a1, a2    float32
		wantBound float32
		outside   bool
	}{
		{"inside", geom.Up.Rotate(40), 1, 20, 130, 0, false},
		{"past second bound", geom.Up.Rotate(150), 1, 20, 130, 130, true},
		{"before first bound", geom.Up.Rotate(5), 1, 20, 130, 20, true},
		{"mirrored sector", geom.Up.Rotate(200), -1, 20, 130, 230, true},
		{"tie picks first bound", geom.V(1, 0), 1, 30, 150, 30, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bound, outside := SectorBound(tt.toGlove, geom.Up, tt.sign, tt.a1, tt.a2)
			require.Equal(t, tt.outside, outside)
			if tt.outside {
				assert.InDelta(t, tt.wantBound, bound, 1e-3)
			}
		})
	}
}

func TestPunchLifecycle(t *testing.T) {
	f := newFixture(t)
	g := f.glove[0]
	f.setInput(InputPunch)
	f.step()
	f.setInput(0)

	require.True(t, f.gloves.Get(g).IsPunching)
	require.True(t, f.phys.Collider(g).IsTrigger)
	assert.False(t, f.gloves.Get(f.glove[1]).IsPunching, "only the first glove answers the first punch button")

	var launched, recovered bool
	for i := 0; i < 200 && !(recovered && f.gloves.Get(g).Idle()); i++ {
		f.step()
		gl := f.gloves.Get(g)
		if gl.HasLaunched && !gl.IsRecovering {
			launched = true
			assert.True(t, f.phys.Collider(g).IsTrigger)
		}
		if gl.IsRecovering {
			recovered = true
			col := f.phys.Collider(g)
			assert.False(t, col.Enabled)
			assert.False(t, col.IsTrigger)
		}
	}
	require.True(t, launched)
	require.True(t, recovered)

	gl := f.gloves.Get(g)
	assert.True(t, gl.Idle())
	assert.False(t, gl.HasLaunched)
	col := f.phys.Collider(g)
	assert.True(t, col.Enabled)
	assert.False(t, col.IsTrigger)
}

func TestLaunchVelocityFollowsFacing(t *testing.T) {
	f := newFixture(t)
	g := f.glove[1]
	f.gloves.StartPunch(g)
	for !f.gloves.Get(g).HasLaunched {
		f.gloves.Step(f.tuning.FixedPeriod)
	}
	v := f.phys.Body(g).Velocity
	assert.InDelta(t, 0, v.X, 1e-6)
	assert.InDelta(t, f.tuning.PunchingSpeed, v.Y, 1e-5)
}

func TestEffectExpires(t *testing.T) {
	f := newFixture(t)
	id := f.reg.Create()
	f.effects.Add(id, f.tuning.NewEffect(EffectHit))

	steps := 0
	for len(f.gone) == 0 && steps < 100 {
		f.effects.Step(f.tuning.FixedPeriod)
		steps++
	}
	assert.Equal(t, []ecs.EntityID{id}, f.gone)
	assert.InDelta(t, f.tuning.EffectLifetime/f.tuning.FixedPeriod, steps, 1.5)
}

func TestStandardRules(t *testing.T) {
	tuning := DefaultTuning()
	hit, err := StandardRules{Tuning: &tuning}.PlayerHit(60)
	require.NoError(t, err)
	assert.InDelta(t, 2+7*0.6, hit.KnockbackMod, 1e-5)
	assert.Equal(t, float32(30), hit.Damage)
}

func TestTuningValidate(t *testing.T) {
	tuning := DefaultTuning()
	require.NoError(t, tuning.Validate())

	tuning.GloveMinDist = 2
	tuning.InputBufferSize = 1
	err := tuning.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min <= ideal <= max")
	assert.Contains(t, err.Error(), "input_buffer_size")
}

func TestStageContains(t *testing.T) {
	tuning := DefaultTuning()
	assert.True(t, tuning.StageContains(geom.V(7.5, -7.5)))
	assert.False(t, tuning.StageContains(geom.V(7.6, 0)))
}
