// SPDX-License-Identifier: MIT
package analysis

import "fmt"

// Lerp moves each value of current towards target by factor:
// current + (target-current)*factor. The result is a new slice. A factor of
// 1 yields target exactly.
func Lerp(current, target []float64, factor float64) ([]float64, error) {
	if len(current) != len(target) {
		return nil, fmt.Errorf("%w: lerp between %d and %d values", ErrLengthMismatch, len(current), len(target))
	}
	out := make([]float64, len(current))
	if factor == 1 {
		copy(out, target)
		return out, nil
	}
	for i, c := range current {
		out[i] = c + (target[i]-c)*factor
	}
	return out, nil
}

// ExponentialSmooth blends current with the previous frame:
// previous*smoothing + current*(1-smoothing). An empty previous frame means
// there is no history yet and a copy of current is returned.
func ExponentialSmooth(current, previous []float64, smoothing float64) ([]float64, error) {
	out := make([]float64, len(current))
	if len(previous) == 0 {
		copy(out, current)
		return out, nil
	}
	if len(current) != len(previous) {
		return nil, fmt.Errorf("%w: smoothing %d values against %d", ErrLengthMismatch, len(current), len(previous))
	}
	for i, c := range current {
		out[i] = previous[i]*smoothing + c*(1-smoothing)
	}
	return out, nil
}
