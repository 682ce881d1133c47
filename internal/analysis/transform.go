// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"strings"

	"spectrum/pkg/bitint"

	"github.com/argusdusty/gofft"
	dspfft "github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Engine names the DFT implementation backing an analyzer.
type Engine string

// Available transform engines.
const (
	EngineGonum Engine = "gonum"  // gonum dsp/fourier, any size.
	EngineGofft Engine = "gofft"  // argusdusty/gofft, power-of-two sizes only.
	EngineGoDSP Engine = "go-dsp" // mjibson/go-dsp, any size, allocates per call.

	DefaultEngine = EngineGonum
)

// ParseEngine converts a case-insensitive name to an Engine. An empty name
// selects DefaultEngine.
func ParseEngine(name string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "gonum":
		return EngineGonum, nil
	case "gofft":
		return EngineGofft, nil
	case "go-dsp", "godsp":
		return EngineGoDSP, nil
	default:
		return "", fmt.Errorf("%w: unknown transform engine %q", ErrInvalidConfig, name)
	}
}

// Transformer computes the unnormalized forward DFT of buf in place.
type Transformer interface {
	Forward(buf []complex128) error
}

// checkEngine reports whether engine can transform sequences of length n.
func checkEngine(engine Engine, n int) error {
	switch engine {
	case EngineGonum, EngineGoDSP:
		return nil
	case EngineGofft:
		if !bitint.IsPowerOfTwo(n) {
			return fmt.Errorf("%w: engine %s needs a power-of-two transform size, got %d (try %d or %d)",
				ErrInvalidConfig, engine, n, bitint.PrevPowerOfTwo(n), bitint.NextPowerOfTwo(n))
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown transform engine %q", ErrInvalidConfig, engine)
	}
}

// newTransformer prepares the engine for length n. The result is owned by a
// single analyzer and reused for its lifetime.
func newTransformer(engine Engine, n int) (Transformer, error) {
	if err := checkEngine(engine, n); err != nil {
		return nil, err
	}
	switch engine {
	case EngineGofft:
		if err := gofft.Prepare(n); err != nil {
			return nil, fmt.Errorf("analysis: prepare gofft tables for %d: %w", n, err)
		}
		return gofftTransformer{}, nil
	case EngineGoDSP:
		return goDSPTransformer{}, nil
	default:
		return &gonumTransformer{fft: fourier.NewCmplxFFT(n)}, nil
	}
}

type gonumTransformer struct {
	fft *fourier.CmplxFFT
}

// Forward uses buf as both source and destination, which CmplxFFT allows.
func (t *gonumTransformer) Forward(buf []complex128) error {
	t.fft.Coefficients(buf, buf)
	return nil
}

type gofftTransformer struct{}

func (gofftTransformer) Forward(buf []complex128) error {
	return gofft.FFT(buf)
}

type goDSPTransformer struct{}

func (goDSPTransformer) Forward(buf []complex128) error {
	copy(buf, dspfft.FFT(buf))
	return nil
}
