package collision

import "errors"

var ErrInvalidConfig = errors.New("collision: invalid configuration")

// Config controls the broad-phase grid and its refresh policy.
type Config struct {
	// CellSize is the uniform grid cell edge length in world units. It should
	// be at least as large as the biggest collider diameter being tracked.
	CellSize float64 `yaml:"cell_size"`
	// UseSpatialPartitioning can be disabled at runtime to fall back to
	// brute-force all-pairs checking, for correctness comparison and testing.
	UseSpatialPartitioning bool `yaml:"use_spatial_partitioning"`
	// Visualize enables debug logging of grid occupancy on every refresh.
	Visualize bool `yaml:"visualize"`
	// GridUpdateInterval is how often (in seconds) collider cell residency is
	// recomputed. Objects that cross more than one cell within an interval can
	// miss pairs until the next refresh; that staleness is the accepted price
	// for not re-bucketing every frame.
	GridUpdateInterval float64 `yaml:"spatial_grid_update_interval"`
}

// DefaultConfig returns the tuning used by the game when no file overrides it.
func DefaultConfig() Config {
	return Config{
		CellSize:               10,
		UseSpatialPartitioning: true,
		GridUpdateInterval:     0.1,
	}
}

func (c Config) Validate() error {
	if c.CellSize <= 0 {
		return ErrInvalidConfig
	}
	if c.GridUpdateInterval < 0 {
		return ErrInvalidConfig
	}
	return nil
}
