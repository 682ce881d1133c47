// SPDX-License-Identifier: MIT
package visualizer

import (
	"fmt"

	"spectrum/internal/analysis"
)

// Limits on user-adjustable settings.
const (
	MaxSmoothing   = 1.0
	MaxSensitivity = 10.0
)

// Settings controls how raw spectra become display frames.
type Settings struct {
	Mode        Mode    `yaml:"mode"`
	MinDB       float64 `yaml:"min_db"`
	MaxDB       float64 `yaml:"max_db"`
	Smoothing   float64 `yaml:"smoothing"`   // Weight of the previous frame, 0 disables smoothing.
	Sensitivity float64 `yaml:"sensitivity"` // Gain applied after smoothing.
	Bins        int     `yaml:"bins"`        // Overrides Mode.Bins() when positive.
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Mode:        ModeBars,
		MinDB:       -100,
		MaxDB:       -20,
		Smoothing:   0.85,
		Sensitivity: 1.5,
	}
}

// NumBins returns the number of display bins the settings produce.
func (s Settings) NumBins() int {
	if s.Bins > 0 {
		return s.Bins
	}
	return s.Mode.Bins()
}

// Validate reports the first invalid field, wrapping analysis.ErrInvalidConfig.
func (s Settings) Validate() error {
	if s.Mode.Bins() == 0 {
		return fmt.Errorf("%w: unknown visualization mode %q", analysis.ErrInvalidConfig, s.Mode)
	}
	if !(s.MaxDB > s.MinDB) {
		return fmt.Errorf("%w: max_db (%g) must be greater than min_db (%g)", analysis.ErrInvalidConfig, s.MaxDB, s.MinDB)
	}
	if !(s.Smoothing >= 0 && s.Smoothing <= MaxSmoothing) {
		return fmt.Errorf("%w: smoothing must be within [0, %g], got %g", analysis.ErrInvalidConfig, MaxSmoothing, s.Smoothing)
	}
	if !(s.Sensitivity > 0 && s.Sensitivity <= MaxSensitivity) {
		return fmt.Errorf("%w: sensitivity must be within (0, %g], got %g", analysis.ErrInvalidConfig, MaxSensitivity, s.Sensitivity)
	}
	if s.Bins < 0 {
		return fmt.Errorf("%w: bins must not be negative, got %d", analysis.ErrInvalidConfig, s.Bins)
	}
	return nil
}
