package particles

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

var ErrInvalidOptions = errors.New("particles: invalid effect options")

// EffectType keys the preset applied to a pooled effect.
type EffectType uint8

const (
	EffectCustom EffectType = iota
	EffectExplosion
	EffectJetpack
	EffectSkiTrail
	EffectProjectileTrail
)

func (t EffectType) String() string {
	switch t {
	case EffectExplosion:
		return "explosion"
	case EffectJetpack:
		return "jetpack"
	case EffectSkiTrail:
		return "ski-trail"
	case EffectProjectileTrail:
		return "projectile-trail"
	default:
		return "custom"
	}
}

// BlendMode selects how particle colors combine with the framebuffer.
type BlendMode uint8

const (
	BlendStandard BlendMode = iota
	BlendAdditive
	BlendMultiply
)

// Options is the recognized particle effect configuration surface. Presets
// fill these per effect type; callers layer overrides on top.
type Options struct {
	Enabled      bool       `yaml:"enabled"`
	Scale        float64    `yaml:"scale"`
	MaxParticles int        `yaml:"max_particles"`
	EmitRate     float64    `yaml:"emit_rate"`
	MinLifeTime  float64    `yaml:"min_life_time"`
	MaxLifeTime  float64    `yaml:"max_life_time"`
	// Loop keeps the emitter running until an explicit stop; non-looping
	// effects stop themselves and auto-dispose after MaxLifeTime.
	Loop       bool       `yaml:"loop"`
	StartColor mgl64.Vec4 `yaml:"-"`
	EndColor   mgl64.Vec4 `yaml:"-"`
	MinSize    float64    `yaml:"min_size"`
	MaxSize    float64    `yaml:"max_size"`
	BlendMode  BlendMode  `yaml:"blend_mode"`
	// Direction is the emission cone axis; EmitConeAngle the half-angle in
	// radians around it.
	Direction     mgl64.Vec3 `yaml:"-"`
	EmitConeAngle float64    `yaml:"emit_cone_angle"`
	MinEmitPower  float64    `yaml:"min_emit_power"`
	MaxEmitPower  float64    `yaml:"max_emit_power"`
	Gravity       mgl64.Vec3 `yaml:"-"`
	// IsLocal emits in the space of the attached mesh instead of world space.
	IsLocal bool `yaml:"is_local"`
}

func (o Options) Validate() error {
	if o.MaxParticles <= 0 || o.EmitRate < 0 {
		return ErrInvalidOptions
	}
	if o.MinLifeTime < 0 || o.MaxLifeTime < o.MinLifeTime {
		return ErrInvalidOptions
	}
	if o.MinSize < 0 || o.MaxSize < o.MinSize {
		return ErrInvalidOptions
	}
	return nil
}

// Modifier mutates preset options before the effect is configured.
type Modifier func(*Options)

// PresetFor returns the baseline tuning for an effect type. EffectCustom gets
// a small neutral one-shot burst.
func PresetFor(typ EffectType) Options {
	base := Options{
		Enabled:       true,
		Scale:         1,
		MaxParticles:  200,
		EmitRate:      100,
		MinLifeTime:   0.3,
		MaxLifeTime:   1,
		StartColor:    mgl64.Vec4{1, 1, 1, 1},
		EndColor:      mgl64.Vec4{1, 1, 1, 0},
		MinSize:       0.1,
		MaxSize:       0.5,
		BlendMode:     BlendStandard,
		Direction:     mgl64.Vec3{0, 1, 0},
		EmitConeAngle: math.Pi / 4,
		MinEmitPower:  1,
		MaxEmitPower:  3,
		Gravity:       mgl64.Vec3{0, -9.81, 0},
	}
	switch typ {
	case EffectExplosion:
		base.MaxParticles = 500
		base.EmitRate = 2000
		base.MinLifeTime = 0.2
		base.MaxLifeTime = 0.8
		base.StartColor = mgl64.Vec4{1, 0.7, 0.2, 1}
		base.EndColor = mgl64.Vec4{0.6, 0.1, 0, 0}
		base.MinSize = 0.3
		base.MaxSize = 1.5
		base.BlendMode = BlendAdditive
		base.EmitConeAngle = math.Pi // radial burst
		base.MinEmitPower = 4
		base.MaxEmitPower = 9
	case EffectJetpack:
		base.Loop = true
		base.MaxParticles = 300
		base.EmitRate = 400
		base.MinLifeTime = 0.1
		base.MaxLifeTime = 0.4
		base.StartColor = mgl64.Vec4{0.4, 0.7, 1, 1}
		base.EndColor = mgl64.Vec4{0.1, 0.2, 0.8, 0}
		base.BlendMode = BlendAdditive
		base.Direction = mgl64.Vec3{0, -1, 0}
		base.EmitConeAngle = math.Pi / 12
		base.IsLocal = true
	case EffectSkiTrail:
		base.Loop = true
		base.MaxParticles = 150
		base.EmitRate = 120
		base.MinLifeTime = 0.5
		base.MaxLifeTime = 1.5
		base.StartColor = mgl64.Vec4{0.9, 0.95, 1, 0.8}
		base.EndColor = mgl64.Vec4{0.9, 0.95, 1, 0}
		base.MinSize = 0.2
		base.MaxSize = 0.8
		base.EmitConeAngle = math.Pi / 6
		base.MinEmitPower = 0.2
		base.MaxEmitPower = 0.8
		base.IsLocal = true
	case EffectProjectileTrail:
		base.Loop = true
		base.MaxParticles = 100
		base.EmitRate = 150
		base.MinLifeTime = 0.1
		base.MaxLifeTime = 0.5
		base.StartColor = mgl64.Vec4{1, 0.9, 0.6, 1}
		base.EndColor = mgl64.Vec4{0.8, 0.4, 0.1, 0}
		base.MinSize = 0.05
		base.MaxSize = 0.2
		base.BlendMode = BlendAdditive
		base.EmitConeAngle = math.Pi / 24
		base.IsLocal = true
	}
	return base
}
