package analysis

import "fmt"

// FrequencyBand names a frequency range in Hz, [LowHz, HighHz).
type FrequencyBand struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// DefaultBands returns the six bands used for band levels, with the top band
// ending at the Nyquist frequency of sampleRate.
func DefaultBands(sampleRate float64) []FrequencyBand {
	return []FrequencyBand{
		{Name: "sub", LowHz: 20, HighHz: 60},
		{Name: "bass", LowHz: 60, HighHz: 250},
		{Name: "lowMid", LowHz: 250, HighHz: 500},
		{Name: "mid", LowHz: 500, HighHz: 2000},
		{Name: "highMid", LowHz: 2000, HighHz: 4000},
		{Name: "treble", LowHz: 4000, HighHz: sampleRate / 2},
	}
}

// BandLevels averages a dB magnitude spectrum produced by this analyzer over
// each band. Bands that contain no bin report FloorDB.
func (a *SpectrumAnalyzer) BandLevels(mags []float64, sampleRate float64, bands []FrequencyBand) ([]float64, error) {
	if len(mags) != a.Bins() {
		return nil, fmt.Errorf("%w: spectrum has %d bins, analyzer produces %d", ErrLengthMismatch, len(mags), a.Bins())
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %g", ErrInvalidConfig, sampleRate)
	}

	sums := make([]float64, len(bands))
	counts := make([]int, len(bands))
	for i, m := range mags {
		freq := a.BinFrequency(i, sampleRate)
		for b, band := range bands {
			if freq >= band.LowHz && freq < band.HighHz {
				sums[b] += m
				counts[b]++
				break
			}
		}
	}

	levels := make([]float64, len(bands))
	for b := range bands {
		if counts[b] == 0 {
			levels[b] = FloorDB
			continue
		}
		levels[b] = sums[b] / float64(counts[b])
	}
	return levels, nil
}
