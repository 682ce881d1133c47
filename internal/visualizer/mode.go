// SPDX-License-Identifier: MIT
package visualizer

import (
	"fmt"
	"strings"

	"spectrum/internal/analysis"
)

// Mode selects a visualization style, which fixes the number of display bins.
type Mode string

// Supported visualization modes.
const (
	ModeBars      Mode = "bars"
	ModeWave      Mode = "wave"
	ModeCircular  Mode = "circular"
	ModeParticles Mode = "particles"
)

// Modes lists every supported mode in display order.
var Modes = []Mode{ModeBars, ModeWave, ModeCircular, ModeParticles}

// ParseMode converts a case-insensitive name to a Mode.
func ParseMode(name string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Modes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown visualization mode %q", analysis.ErrInvalidConfig, name)
}

// Bins returns the number of display bins drawn by the mode, or 0 for an
// unknown mode.
func (m Mode) Bins() int {
	switch m {
	case ModeBars, ModeWave:
		return 128
	case ModeCircular:
		return 64
	case ModeParticles:
		return 32
	default:
		return 0
	}
}

func (m Mode) String() string { return string(m) }
