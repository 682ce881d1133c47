// SPDX-License-Identifier: MIT
package audio

// SlidingWindow keeps the most recent Size() mono samples. Pushing never
// allocates.
type SlidingWindow struct {
	buf []float64
}

// NewSlidingWindow returns a window of size samples, initially silent.
func NewSlidingWindow(size int) *SlidingWindow {
	return &SlidingWindow{buf: make([]float64, size)}
}

// Size returns the window length.
func (w *SlidingWindow) Size() int { return len(w.buf) }

// Push appends samples, discarding the oldest ones.
func (w *SlidingWindow) Push(samples []float64) {
	n := len(samples)
	if n >= len(w.buf) {
		copy(w.buf, samples[n-len(w.buf):])
		return
	}
	copy(w.buf, w.buf[n:])
	copy(w.buf[len(w.buf)-n:], samples)
}

// PushSilence appends n zero samples.
func (w *SlidingWindow) PushSilence(n int) {
	n = min(n, len(w.buf))
	copy(w.buf, w.buf[n:])
	clear(w.buf[len(w.buf)-n:])
}

// Samples returns the window contents, oldest first. The slice is reused by
// later pushes.
func (w *SlidingWindow) Samples() []float64 { return w.buf }

// Reset silences the window.
func (w *SlidingWindow) Reset() { clear(w.buf) }
