package quality

import (
	"errors"
	"fmt"
	"strings"
)

// Level is the discrete fidelity tier consumed by tunable subsystems.
// Ordering is meaningful: Level values compare with < and > and the
// controller only ever moves one step at a time.
type Level int

const (
	VeryLow Level = iota
	Low
	Medium
	High
	Ultra
)

var ErrUnknownLevel = errors.New("quality: unknown level")

func (l Level) String() string {
	switch l {
	case VeryLow:
		return "very-low"
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	case Ultra:
		return "ultra"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel converts a config string into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "very-low", "verylow":
		return VeryLow, nil
	case "low":
		return Low, nil
	case "medium", "":
		return Medium, nil
	case "high":
		return High, nil
	case "ultra":
		return Ultra, nil
	default:
		return Medium, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
	}
}

// ParticleScale is the particle budget multiplier for the level.
func (l Level) ParticleScale() float64 {
	switch l {
	case VeryLow:
		return 0.25
	case Low:
		return 0.5
	case Medium:
		return 0.75
	case High:
		return 1
	case Ultra:
		return 1.25
	default:
		return 1
	}
}

func (l Level) clamp() Level {
	if l < VeryLow {
		return VeryLow
	}
	if l > Ultra {
		return Ultra
	}
	return l
}
