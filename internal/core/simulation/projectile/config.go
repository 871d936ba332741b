package projectile

import "errors"

var ErrInvalidConfig = errors.New("projectile: invalid configuration")

// Config is the recognized projectile option surface. Values are data, not
// design: the defaults below are the grenade-launcher tuning the game ships
// with, and config files may override any of them.
type Config struct {
	// InitialVelocity is the muzzle speed in world units per second.
	InitialVelocity float64 `yaml:"initial_velocity"`
	Mass            float64 `yaml:"mass"`
	Radius          float64 `yaml:"radius"`
	// DragCoefficient feeds the quadratic drag model:
	// |a_drag| = 0.5 * Cd * |v|^2 / mass, opposing velocity.
	DragCoefficient   float64 `yaml:"drag_coefficient"`
	AffectedByGravity bool    `yaml:"affected_by_gravity"`
	// Lifetime is the ceiling in seconds before the projectile expires.
	Lifetime float64 `yaml:"lifetime"`
	// MaxDistance expires the projectile after this travel distance; 0 disables.
	MaxDistance     float64 `yaml:"max_distance,omitempty"`
	Restitution     float64 `yaml:"restitution,omitempty"`
	Damage          float64 `yaml:"damage,omitempty"`
	ExplosionRadius float64 `yaml:"explosion_radius,omitempty"`
	ExplosionForce  float64 `yaml:"explosion_force,omitempty"`
}

// DefaultConfig returns the standard projectile tuning.
func DefaultConfig() Config {
	return Config{
		InitialVelocity:   40,
		Mass:              1,
		Radius:            0.3,
		DragCoefficient:   0.1,
		AffectedByGravity: true,
		Lifetime:          10,
		Restitution:       0.3,
		Damage:            20,
		ExplosionRadius:   7,
		ExplosionForce:    1500,
	}
}

func (c Config) Validate() error {
	if c.InitialVelocity <= 0 || c.Mass <= 0 || c.Radius <= 0 {
		return ErrInvalidConfig
	}
	if c.Lifetime <= 0 || c.DragCoefficient < 0 || c.MaxDistance < 0 {
		return ErrInvalidConfig
	}
	return nil
}
