package gameplay

import (
	"errors"
	"fmt"

	"github.com/glovebox/server/internal/core/geom"
)

// MaxPlayers is fixed: the game is strictly one versus one.
const MaxPlayers = 2

// Tuning holds every gameplay constant. It is built once, validated, and
// passed by pointer to constructors; nothing mutates it afterwards.
type Tuning struct {
	FixedPeriod float32 `yaml:"fixed_period"`

	PlayerSpeed           float32 `yaml:"player_speed"`
	PlayerMaxSpeed        float32 `yaml:"player_max_speed"`
	PlayerFrictionLoss    float32 `yaml:"player_friction_loss"`
	PlayerRotationalSpeed float32 `yaml:"player_rotational_speed"`
	PlayerRadius          float32 `yaml:"player_radius"`
	InvincibilityPeriod   float32 `yaml:"invincibility_period"`
	KnockbackTime         float32 `yaml:"knockback_time"`
	KnockbackScaling      float32 `yaml:"knockback_scaling"`
	BaseKnockbackMod      float32 `yaml:"base_knockback_mod"`

	GloveKnockbackMod   float32 `yaml:"glove_knockback_mod"`
	GloveMinDist        float32 `yaml:"glove_min_dist"`
	GloveMaxDist        float32 `yaml:"glove_max_dist"`
	GloveIdealDist      float32 `yaml:"glove_ideal_dist"`
	GloveDamage         float32 `yaml:"glove_damage"`
	GloveRadius         float32 `yaml:"glove_radius"`
	GloveAngle1         float32 `yaml:"glove_angle_1"`
	GloveAngle2         float32 `yaml:"glove_angle_2"`
	GloveIdealAngle     float32 `yaml:"glove_ideal_angle"`
	PunchWindupTime     float32 `yaml:"punch_windup_time"`
	PunchingTime        float32 `yaml:"punching_time"`
	GloveRecoveryTime   float32 `yaml:"glove_recovery_time"`
	PunchingSpeed       float32 `yaml:"punching_speed"`
	GloveHoverSpeed     float32 `yaml:"glove_hover_speed"`
	GloveDistSpeedBoost float32 `yaml:"glove_dist_speed_boost"`

	StageWidth     float32 `yaml:"stage_width"`
	StageHeight    float32 `yaml:"stage_height"`
	EffectLifetime float32 `yaml:"effect_lifetime"`
	IconLifetime   float32 `yaml:"icon_lifetime"`

	SpawnPositions [MaxPlayers]geom.Vec2 `yaml:"spawn_positions"`
	SpawnRotations [MaxPlayers]float32   `yaml:"spawn_rotations"`
	SpawnScale     float32               `yaml:"spawn_scale"`

	// InputBufferSize is the depth of the per-player input ring in frames.
	InputBufferSize int `yaml:"input_buffer_size"`
	// MaxInputs is the number of inputs carried by one input packet.
	MaxInputs int `yaml:"max_inputs"`
}

func DefaultTuning() Tuning {
	return Tuning{
		FixedPeriod: 0.02,

		PlayerSpeed:           10.5,
		PlayerMaxSpeed:        4.5,
		PlayerFrictionLoss:    3.5,
		PlayerRotationalSpeed: 150,
		PlayerRadius:          0.5,
		InvincibilityPeriod:   0.5,
		KnockbackTime:         0.5,
		KnockbackScaling:      7,
		BaseKnockbackMod:      2,

		GloveKnockbackMod:   7,
		GloveMinDist:        1.2,
		GloveMaxDist:        1.6,
		GloveIdealDist:      1.3,
		GloveDamage:         30,
		GloveRadius:         0.4,
		GloveAngle1:         20,
		GloveAngle2:         130,
		GloveIdealAngle:     40,
		PunchWindupTime:     0.05,
		PunchingTime:        0.18,
		GloveRecoveryTime:   0.85,
		PunchingSpeed:       10.5,
		GloveHoverSpeed:     1.5,
		GloveDistSpeedBoost: 0.5,

		StageWidth:     15,
		StageHeight:    15,
		EffectLifetime: 0.5,
		IconLifetime:   3,

		SpawnPositions: [MaxPlayers]geom.Vec2{{X: 0, Y: -1}, {X: 0, Y: 1}},
		SpawnRotations: [MaxPlayers]float32{0, 180},
		SpawnScale:     3,

		InputBufferSize: 250,
		MaxInputs:       50,
	}
}

// Validate rejects tunings the simulation cannot run with.
func (t *Tuning) Validate() error {
	var errs []error
	for _, f := range []struct {
		name string
		v    float32
	}{
		{"fixed_period", t.FixedPeriod},
		{"player_max_speed", t.PlayerMaxSpeed},
		{"player_radius", t.PlayerRadius},
		{"glove_radius", t.GloveRadius},
		{"glove_recovery_time", t.GloveRecoveryTime},
		{"punching_time", t.PunchingTime},
		{"stage_width", t.StageWidth},
		{"stage_height", t.StageHeight},
	} {
		if f.v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", f.name, f.v))
		}
	}
	if t.GloveDistSpeedBoost == 0 {
		errs = append(errs, errors.New("glove_dist_speed_boost must be non-zero"))
	}
	if !(t.GloveMinDist <= t.GloveIdealDist && t.GloveIdealDist <= t.GloveMaxDist) {
		errs = append(errs, fmt.Errorf("glove distances must satisfy min <= ideal <= max, got %v/%v/%v",
			t.GloveMinDist, t.GloveIdealDist, t.GloveMaxDist))
	}
	if t.GloveAngle1 >= t.GloveAngle2 {
		errs = append(errs, fmt.Errorf("glove_angle_1 (%v) must be below glove_angle_2 (%v)", t.GloveAngle1, t.GloveAngle2))
	}
	if t.InputBufferSize < 2 {
		errs = append(errs, fmt.Errorf("input_buffer_size must be at least 2, got %d", t.InputBufferSize))
	}
	if t.MaxInputs < 1 || t.MaxInputs > t.InputBufferSize {
		errs = append(errs, fmt.Errorf("max_inputs must be in [1, input_buffer_size], got %d", t.MaxInputs))
	}
	return errors.Join(errs...)
}

// StageContains reports whether pos lies on the centered stage.
func (t *Tuning) StageContains(pos geom.Vec2) bool {
	hw, hh := t.StageWidth/2, t.StageHeight/2
	return pos.X >= -hw && pos.X <= hw && pos.Y >= -hh && pos.Y <= hh
}

// SpawnPoint returns the spawn position and rotation of player p.
func (t *Tuning) SpawnPoint(p PlayerNumber) (geom.Vec2, float32) {
	return t.SpawnPositions[p].Scale(t.SpawnScale), t.SpawnRotations[p]
}

// GloveSpawn returns the ideal resting point of a glove with the given
// sign around a player standing at pos with rotation rot.
func (t *Tuning) GloveSpawn(pos geom.Vec2, rot, sign float32) geom.Vec2 {
	relativeUp := geom.Up.Rotate(-rot)
	return pos.Add(relativeUp.Scale(t.GloveIdealDist).Rotate(float32(t.GloveIdealAngle * sign)))
}
