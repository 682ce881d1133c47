// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

// MinTransformSize is the smallest transform size an analyzer accepts.
const MinTransformSize = 2

// magnitudeFloor bounds normalized magnitudes from below before the log.
const magnitudeFloor = 1e-10

// FloorDB is the level reported for silent bins: 20*log10(1e-10), i.e. -200 dB.
var FloorDB = toDecibels(0)

// SpectrumAnalyzer turns fixed-size blocks of audio samples into a dB
// magnitude spectrum and reduces it to display bins.
//
// The window and the working buffer are allocated once at construction and
// reused on every call. A SpectrumAnalyzer is not safe for concurrent use;
// callers sharing one across goroutines must serialize access themselves.
type SpectrumAnalyzer struct {
	size   int
	engine Engine

	window []float64    // Hann coefficients, length size.
	buffer []complex128 // Working buffer, overwritten by every call.

	transform Transformer // Created on first use.
}

// NewSpectrumAnalyzer returns an analyzer for transforms of transformSize
// points using DefaultEngine.
func NewSpectrumAnalyzer(transformSize int) (*SpectrumAnalyzer, error) {
	return NewSpectrumAnalyzerWithEngine(transformSize, DefaultEngine)
}

// NewSpectrumAnalyzerWithEngine returns an analyzer backed by the given
// transform engine. It fails with ErrInvalidConfig when transformSize is
// below MinTransformSize or the engine cannot handle that size.
func NewSpectrumAnalyzerWithEngine(transformSize int, engine Engine) (*SpectrumAnalyzer, error) {
	if err := Validate(transformSize, engine); err != nil {
		return nil, err
	}

	coeffs := make([]float64, transformSize)
	for i := range coeffs {
		coeffs[i] = 1
	}
	window.Hann(coeffs)

	return &SpectrumAnalyzer{
		size:   transformSize,
		engine: engine,
		window: coeffs,
		buffer: make([]complex128, transformSize),
	}, nil
}

// Validate reports whether an analyzer can be built for transformSize points
// with engine, wrapping ErrInvalidConfig when it cannot.
func Validate(transformSize int, engine Engine) error {
	if transformSize < MinTransformSize {
		return fmt.Errorf("%w: transform size must be at least %d, got %d",
			ErrInvalidConfig, MinTransformSize, transformSize)
	}
	return checkEngine(engine, transformSize)
}

// TransformSize returns the number of points of each transform.
func (a *SpectrumAnalyzer) TransformSize() int { return a.size }

// Bins returns the length of the magnitude spectrum, TransformSize()/2.
func (a *SpectrumAnalyzer) Bins() int { return a.size / 2 }

// Engine returns the transform engine in use.
func (a *SpectrumAnalyzer) Engine() Engine { return a.engine }

// BinFrequency returns the centre frequency in Hz of magnitude bin index for
// audio captured at sampleRate. Out of range indices yield 0.
func (a *SpectrumAnalyzer) BinFrequency(index int, sampleRate float64) float64 {
	if index < 0 || index >= a.Bins() {
		return 0
	}
	return float64(index) * sampleRate / float64(a.size)
}

// Process windows samples, transforms them and returns the first
// TransformSize()/2 magnitudes in dB. Shorter input is zero-padded and longer
// input truncated to TransformSize() samples.
func (a *SpectrumAnalyzer) Process(samples []float64) ([]float64, error) {
	out := make([]float64, a.Bins())
	if err := a.ProcessInto(out, samples); err != nil {
		return nil, err
	}
	return out, nil
}

// ProcessInto is Process writing into dst, which must have length Bins().
// With the gonum engine it does not allocate once the transform is planned.
func (a *SpectrumAnalyzer) ProcessInto(dst, samples []float64) error {
	if len(dst) != a.Bins() {
		return fmt.Errorf("%w: destination holds %d bins, analyzer produces %d",
			ErrLengthMismatch, len(dst), a.Bins())
	}

	t, err := a.plan()
	if err != nil {
		return err
	}

	n := min(len(samples), a.size)
	for i := range a.buffer {
		if i < n {
			a.buffer[i] = complex(samples[i]*a.window[i], 0)
		} else {
			a.buffer[i] = 0
		}
	}

	if err := t.Forward(a.buffer); err != nil {
		return fmt.Errorf("analysis: %s transform: %w", a.engine, err)
	}

	scale := float64(a.size)
	for k := range dst {
		dst[k] = toDecibels(cmplx.Abs(a.buffer[k]) / scale)
	}
	return nil
}

// BinnedSpectrum processes samples and averages the magnitude spectrum into
// numBins contiguous groups of Bins()/numBins values. The last group also
// takes the remainder of the integer division. Groups left empty because
// numBins exceeds Bins() report FloorDB.
func (a *SpectrumAnalyzer) BinnedSpectrum(samples []float64, numBins int) ([]float64, error) {
	if numBins <= 0 {
		return nil, fmt.Errorf("%w: number of bins must be positive, got %d", ErrInvalidConfig, numBins)
	}
	mags, err := a.Process(samples)
	if err != nil {
		return nil, err
	}
	return averageBins(mags, numBins), nil
}

// Normalize maps data from the [minDB, maxDB] window onto [0, 1]. It does
// not use or modify the analyzer's state.
func (a *SpectrumAnalyzer) Normalize(data []float64, minDB, maxDB float64) ([]float64, error) {
	return Normalize(data, minDB, maxDB)
}

// Normalize clamps each value to [minDB, maxDB] and rescales it linearly so
// that minDB maps to 0 and maxDB to 1. It fails with ErrInvalidConfig unless
// maxDB > minDB.
func Normalize(data []float64, minDB, maxDB float64) ([]float64, error) {
	if !(maxDB > minDB) {
		return nil, fmt.Errorf("%w: dB window [%g, %g] is empty", ErrInvalidConfig, minDB, maxDB)
	}
	span := maxDB - minDB
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = (math.Min(math.Max(v, minDB), maxDB) - minDB) / span
	}
	return out, nil
}

func (a *SpectrumAnalyzer) plan() (Transformer, error) {
	if a.transform == nil {
		t, err := newTransformer(a.engine, a.size)
		if err != nil {
			return nil, err
		}
		a.transform = t
	}
	return a.transform, nil
}

func averageBins(mags []float64, numBins int) []float64 {
	width := len(mags) / numBins
	out := make([]float64, numBins)
	for i := range out {
		start := i * width
		end := start + width
		if i == numBins-1 {
			end = len(mags)
		}
		if end <= start {
			out[i] = FloorDB
			continue
		}
		out[i] = floats.Sum(mags[start:end]) / float64(end-start)
	}
	return out
}

func toDecibels(magnitude float64) float64 {
	return 20 * math.Log10(math.Max(magnitude, magnitudeFloor))
}
