package audio

import (
	"fmt"
	"io"

	"github.com/mewkiz/flac"
)

// FLACDecoder implements Decoder for FLAC files.
type FLACDecoder struct {
	stream      *flac.Stream
	sampleRate  int
	numChannels int
	numSamples  int64
	pending     []float64 // Decoded samples not yet returned.
}

// NewFLACDecoder opens filename and reads its StreamInfo block.
func NewFLACDecoder(filename string) (*FLACDecoder, error) {
	stream, err := flac.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create FLAC decoder: %w", err)
	}

	return &FLACDecoder{
		stream:      stream,
		sampleRate:  int(stream.Info.SampleRate),
		numChannels: int(stream.Info.NChannels),
		numSamples:  int64(stream.Info.NSamples),
	}, nil
}

// ReadChunk returns up to numSamples mono samples. Samples of a decoded
// frame beyond numSamples are kept for the next call.
func (d *FLACDecoder) ReadChunk(numSamples int) ([]float64, error) {
	for len(d.pending) < numSamples {
		frame, err := d.stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse FLAC frame: %w", err)
		}

		maxVal := float64(int64(1) << (frame.BitsPerSample - 1))
		channels := len(frame.Subframes)
		for i := range frame.Subframes[0].Samples {
			var sum int64
			for _, subframe := range frame.Subframes {
				sum += int64(subframe.Samples[i])
			}
			d.pending = append(d.pending, float64(sum)/float64(channels)/maxVal)
		}
	}

	if len(d.pending) == 0 {
		return nil, io.EOF
	}

	n := min(numSamples, len(d.pending))
	samples := make([]float64, n)
	copy(samples, d.pending)
	rest := copy(d.pending, d.pending[n:])
	d.pending = d.pending[:rest]
	return samples, nil
}

// SampleRate returns the sample rate.
func (d *FLACDecoder) SampleRate() int { return d.sampleRate }

// NumChannels returns the number of channels in the file.
func (d *FLACDecoder) NumChannels() int { return d.numChannels }

// NumSamples returns the number of samples per channel, 0 if unknown.
func (d *FLACDecoder) NumSamples() int64 { return d.numSamples }

// Close closes the stream and its file.
func (d *FLACDecoder) Close() error {
	if d.stream != nil {
		return d.stream.Close()
	}
	return nil
}
