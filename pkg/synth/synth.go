// SPDX-License-Identifier: MIT

// Package synth generates test tones and locates spectral peaks.
package synth

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Amplitude is the peak level of generated tones, leaving headroom below
// full scale.
const Amplitude = 0.9

// GenerateSineWave returns size samples of a sine at frequency Hz in [-1, 1].
func GenerateSineWave(size int, sampleRate, frequency float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = math.Sin(2*math.Pi*frequency*t) * Amplitude
	}
	return buffer
}

// GenerateComplexWave returns a 440 Hz fundamental with its second and third
// harmonics.
func GenerateComplexWave(size int, sampleRate float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = signal * Amplitude
	}
	return buffer
}

// Quantize converts samples in [-1, 1] to the int32 range used by capture
// buffers. Values outside the range are clipped.
func Quantize(samples []float64) []int32 {
	out := make([]int32, len(samples))
	for i, s := range samples {
		s = math.Max(-1, math.Min(1, s))
		out[i] = int32(s * math.MaxInt32)
	}
	return out
}

// FindPeakBin returns the index of the largest magnitude within
// [startBin, endBin], clamping the range to the slice.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}
	startBin = min(max(startBin, 0), len(magnitudes)-1)
	endBin = min(endBin, len(magnitudes)-1)
	if endBin < startBin {
		return startBin
	}
	return startBin + floats.MaxIdx(magnitudes[startBin:endBin+1])
}
