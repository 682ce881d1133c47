// SPDX-License-Identifier: MIT
package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlidingWindow(t *testing.T) {
	w := NewSlidingWindow(4)
	assert.Equal(t, 4, w.Size())
	assert.Equal(t, []float64{0, 0, 0, 0}, w.Samples())

	w.Push([]float64{1, 2})
	assert.Equal(t, []float64{0, 0, 1, 2}, w.Samples())

	w.Push([]float64{3})
	assert.Equal(t, []float64{0, 1, 2, 3}, w.Samples())

	w.Push([]float64{4, 5, 6, 7, 8, 9})
	assert.Equal(t, []float64{6, 7, 8, 9}, w.Samples(), "long input keeps only the newest samples")

	w.PushSilence(1)
	assert.Equal(t, []float64{7, 8, 9, 0}, w.Samples())

	w.PushSilence(10)
	assert.Equal(t, []float64{0, 0, 0, 0}, w.Samples())

	w.Push([]float64{5, 5, 5, 5})
	w.Reset()
	assert.Equal(t, []float64{0, 0, 0, 0}, w.Samples())

	w.Push(nil)
	assert.Equal(t, []float64{0, 0, 0, 0}, w.Samples())
}

func TestSlidingWindowNoAllocs(t *testing.T) {
	w := NewSlidingWindow(2048)
	chunk := make([]float64, 512)

	allocs := testing.AllocsPerRun(100, func() {
		w.Push(chunk)
		w.PushSilence(256)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations pushing into the window, got %.1f", allocs)
	}
}
