// SPDX-License-Identifier: MIT

// Package visualizer turns blocks of audio samples into display frames:
// binned, normalized, temporally smoothed spectra scaled by a sensitivity
// gain, ready for drawing.
package visualizer

import (
	"fmt"
	"math"
	"sync"
	"time"

	"spectrum/internal/analysis"
	"spectrum/internal/log"
)

// Snapshot is an emitted display frame.
type Snapshot struct {
	Seq       uint64
	Mode      Mode
	Timestamp time.Time
	Bins      []float64 // Values in [0, 1].
}

// Visualizer owns a SpectrumAnalyzer and the frame history used for
// smoothing. It is safe for concurrent use; one mutex serializes all access
// to the analyzer and the history.
type Visualizer struct {
	mu       sync.Mutex
	analyzer *analysis.SpectrumAnalyzer
	settings Settings

	previous  []float64 // Last smoothed frame, before sensitivity.
	latest    []float64 // Last emitted frame.
	latestAt  time.Time
	mode      Mode // Mode of the latest frame.
	displayed []float64 // Last frame returned by Tween.
	seq       uint64

	now func() time.Time
}

// New returns a Visualizer drawing from analyzer with the given settings.
func New(analyzer *analysis.SpectrumAnalyzer, settings Settings) (*Visualizer, error) {
	if analyzer == nil {
		return nil, fmt.Errorf("%w: visualizer requires an analyzer", analysis.ErrInvalidConfig)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"mode":           settings.Mode,
		"bins":           settings.NumBins(),
		"transform_size": analyzer.TransformSize(),
		"engine":         analyzer.Engine(),
	}).Debug("Visualizer: initialized")

	return &Visualizer{
		analyzer: analyzer,
		settings: settings,
		now:      time.Now,
	}, nil
}

// Frame computes the next display frame from samples:
//  1. bin the dB spectrum for the current mode,
//  2. normalize it over [MinDB, MaxDB],
//  3. smooth it against the previous frame when both have the same length,
//  4. remember the result as the previous frame,
//  5. apply the sensitivity gain, capped at 1.
func (v *Visualizer) Frame(samples []float64) ([]float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := v.settings
	bins, err := v.analyzer.BinnedSpectrum(samples, s.NumBins())
	if err != nil {
		return nil, err
	}
	frame, err := analysis.Normalize(bins, s.MinDB, s.MaxDB)
	if err != nil {
		return nil, err
	}
	if len(v.previous) == len(frame) {
		if frame, err = analysis.ExponentialSmooth(frame, v.previous, s.Smoothing); err != nil {
			return nil, err
		}
	}
	v.previous = frame

	out := make([]float64, len(frame))
	for i, value := range frame {
		out[i] = math.Min(value*s.Sensitivity, 1)
	}

	v.latest = out
	v.latestAt = v.now()
	v.mode = s.Mode
	v.seq++

	result := make([]float64, len(out))
	copy(result, out)
	return result, nil
}

// HandleFrame computes a frame and discards the result, logging failures.
// Consumers read frames through Latest or Tween.
func (v *Visualizer) HandleFrame(samples []float64) {
	if _, err := v.Frame(samples); err != nil {
		log.Warnf("Visualizer: frame dropped: %v", err)
	}
}

// Latest returns a copy of the most recent frame. The boolean is false
// until a frame has been produced.
func (v *Visualizer) Latest() (Snapshot, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.latest == nil {
		return Snapshot{}, false
	}
	return v.snapshot(v.latest), true
}

// Tween moves the displayed frame towards the latest one by factor and
// returns it. When the frame length changed, for instance after a mode
// switch, it snaps to the latest frame.
func (v *Visualizer) Tween(factor float64) (Snapshot, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.latest == nil {
		return Snapshot{}, false
	}
	if len(v.displayed) != len(v.latest) {
		v.displayed = append(v.displayed[:0], v.latest...)
		return v.snapshot(v.displayed), true
	}

	next, err := analysis.Lerp(v.displayed, v.latest, factor)
	if err != nil {
		// Lengths were checked above.
		return Snapshot{}, false
	}
	v.displayed = next
	return v.snapshot(next), true
}

// Settings returns the active settings.
func (v *Visualizer) Settings() Settings {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.settings
}

// SetSettings validates and applies new settings. History is kept; it stops
// influencing frames once the bin count changes.
func (v *Visualizer) SetSettings(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	v.mu.Lock()
	v.settings = settings
	v.mu.Unlock()
	return nil
}

// SetMode switches the visualization mode.
func (v *Visualizer) SetMode(mode Mode) error {
	if mode.Bins() == 0 {
		return fmt.Errorf("%w: unknown visualization mode %q", analysis.ErrInvalidConfig, mode)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.settings.Mode = mode
	log.Debugf("Visualizer: mode set to %s (%d bins)", mode, v.settings.NumBins())
	return nil
}

// Reset clears the frame history. Sequence numbers keep increasing.
func (v *Visualizer) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.previous = nil
	v.latest = nil
	v.displayed = nil
}

// snapshot copies bins into a Snapshot. v.mu must be held.
func (v *Visualizer) snapshot(bins []float64) Snapshot {
	out := make([]float64, len(bins))
	copy(out, bins)
	return Snapshot{
		Seq:       v.seq,
		Mode:      v.mode,
		Timestamp: v.latestAt,
		Bins:      out,
	}
}
