package quality

import (
	"errors"

	"github.com/hackademics/runjumpski/internal/core/events/bus"
	"github.com/hackademics/runjumpski/internal/core/observability/log"
)

var ErrInvalidConfig = errors.New("quality: invalid configuration")

// EventChanged is published on the bus whenever the level moves.
const EventChanged = "quality.changed"

// ChangedEvent is the payload of EventChanged.
type ChangedEvent struct {
	From   Level
	To     Level
	Manual bool
}

// Tunable is implemented by subsystems that trade fidelity for frame time.
// The controller only ever calls this setter; it never reaches into a
// subsystem's internals.
type Tunable interface {
	ApplyQualityLevel(level Level)
}

// Config tunes the hysteresis loop.
type Config struct {
	// LowerFPS is the threshold below which a sample votes to decrease
	// quality; UpperFPS the threshold above which it votes to increase.
	LowerFPS float64 `yaml:"lower_fps"`
	UpperFPS float64 `yaml:"upper_fps"`
	// SamplesBeforeAdjustment is the number of consecutive qualifying samples
	// required before the level actually moves. This hysteresis prevents
	// flapping under borderline load.
	SamplesBeforeAdjustment int `yaml:"samples_before_adjustment"`
	// WindowSize is the rolling monitor capacity.
	WindowSize int `yaml:"window_size"`
	// InitialLevel names the starting tier ("very-low" ... "ultra").
	InitialLevel string `yaml:"initial_level"`
}

// DefaultConfig returns the standard adaptive quality tuning: drop below a
// sustained 30 fps, climb above a sustained 55.
func DefaultConfig() Config {
	return Config{
		LowerFPS:                30,
		UpperFPS:                55,
		SamplesBeforeAdjustment: 30,
		WindowSize:              120,
		InitialLevel:            Medium.String(),
	}
}

func (c Config) Validate() error {
	if c.LowerFPS <= 0 || c.UpperFPS <= c.LowerFPS {
		return ErrInvalidConfig
	}
	if c.SamplesBeforeAdjustment < 1 || c.WindowSize < 1 {
		return ErrInvalidConfig
	}
	if _, err := ParseLevel(c.InitialLevel); err != nil {
		return err
	}
	return nil
}

// Controller is the adaptive quality loop. It consumes frame samples, applies
// consecutive-sample hysteresis against the fps thresholds, and moves the
// discrete level one step at a time, notifying every registered tunable.
// Single-threaded by design: Record runs once per tick from the simulation
// loop.
type Controller struct {
	cfg      Config
	log      log.Log
	bus      bus.EventBus
	monitor  *Monitor
	tunables []Tunable

	level      Level
	pinned     bool
	lowStreak  int
	highStreak int
	changes    uint64
}

// NewController creates a controller at the configured initial level.
func NewController(cfg Config, logger log.Log, events bus.EventBus) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNop()
	}
	initial, _ := ParseLevel(cfg.InitialLevel)
	return &Controller{
		cfg:     cfg,
		log:     logger,
		bus:     events,
		monitor: NewMonitor(cfg.WindowSize),
		level:   initial,
	}, nil
}

// AddTunable registers a subsystem and immediately applies the current level
// to it, so a late registration never runs at the wrong tier.
func (c *Controller) AddTunable(t Tunable) {
	c.tunables = append(c.tunables, t)
	t.ApplyQualityLevel(c.level)
}

// Level reports the current tier.
func (c *Controller) Level() Level { return c.level }

// Monitor exposes the rolling sample window for the telemetry surface.
func (c *Controller) Monitor() *Monitor { return c.monitor }

// Changes reports how many times the level has moved.
func (c *Controller) Changes() uint64 { return c.changes }

// Pinned reports whether automatic adjustment is suspended.
func (c *Controller) Pinned() bool { return c.pinned }

// Record consumes one frame sample. A sample below LowerFPS extends the
// downgrade streak; above UpperFPS the upgrade streak; anything in between
// resets both. Only a full streak of SamplesBeforeAdjustment moves the level,
// and any move resets the streaks so the next move needs a fresh run of
// qualifying samples.
func (c *Controller) Record(s Sample) {
	c.monitor.Record(s)
	if c.pinned {
		return
	}

	switch {
	case s.FPS < c.cfg.LowerFPS:
		c.lowStreak++
		c.highStreak = 0
	case s.FPS > c.cfg.UpperFPS:
		c.highStreak++
		c.lowStreak = 0
	default:
		c.lowStreak = 0
		c.highStreak = 0
	}

	if c.lowStreak >= c.cfg.SamplesBeforeAdjustment && c.level > VeryLow {
		c.setLevel(c.level-1, false)
	} else if c.highStreak >= c.cfg.SamplesBeforeAdjustment && c.level < Ultra {
		c.setLevel(c.level+1, false)
	}
}

// Pin forces a level and suspends automatic adjustment until Resume.
func (c *Controller) Pin(level Level) {
	c.pinned = true
	if level = level.clamp(); level != c.level {
		c.setLevel(level, true)
	}
}

// Resume re-enables automatic adjustment from the current level.
func (c *Controller) Resume() {
	c.pinned = false
	c.lowStreak = 0
	c.highStreak = 0
}

func (c *Controller) setLevel(to Level, manual bool) {
	from := c.level
	c.level = to
	c.lowStreak = 0
	c.highStreak = 0
	c.changes++

	for _, t := range c.tunables {
		t.ApplyQualityLevel(to)
	}
	c.log.Info("quality level changed",
		log.String("from", from.String()),
		log.String("to", to.String()),
		log.Bool("manual", manual),
	)
	if c.bus != nil {
		if err := c.bus.Publish(bus.NewEvent(EventChanged, "quality", ChangedEvent{From: from, To: to, Manual: manual})); err != nil {
			c.log.Warn("event publish failed", log.String("event", EventChanged), log.Error(err))
		}
	}
}
