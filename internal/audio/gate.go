// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"sync/atomic"
)

// gate is a peak noise gate shared between the capture callback and
// control calls.
type gate struct {
	enabled   atomic.Bool
	threshold atomic.Int32 // Absolute amplitude threshold (0-2147483647).
}

// open reports whether the peak amplitude of buffer exceeds the threshold.
// A disabled gate is always open.
func (g *gate) open(buffer []int32) bool {
	if !g.enabled.Load() {
		return true
	}
	return peakAmplitude(buffer) > g.threshold.Load()
}

// peakAmplitude returns the largest absolute sample value without
// branching inside the loop.
func peakAmplitude(buffer []int32) int32 {
	var maxAmplitude int32
	for _, sample := range buffer {
		mask := sample >> 31
		amplitude := (sample ^ mask) - mask
		diff := amplitude - maxAmplitude
		maxAmplitude += (diff & (diff >> 31)) ^ diff
	}
	return maxAmplitude
}

func (e *Engine) EnableGate() {
	e.gate.enabled.Store(true)
}

func (e *Engine) DisableGate() {
	e.gate.enabled.Store(false)
}

// GateEnabled reports whether the noise gate is active.
func (e *Engine) GateEnabled() bool {
	return e.gate.enabled.Load()
}

// SetGateThreshold adjusts the noise gate threshold.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (e *Engine) SetGateThreshold(threshold float64) {
	threshold = math.Max(0, math.Min(1, threshold))
	e.gate.threshold.Store(int32(threshold * float64(math.MaxInt32)))
}

// GetGateThreshold returns the current noise gate threshold as a float64.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (e *Engine) GetGateThreshold() float64 {
	return float64(e.gate.threshold.Load()) / float64(math.MaxInt32)
}
