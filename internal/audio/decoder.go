package audio

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned by OpenDecoder for unknown file types.
var ErrUnsupportedFormat = errors.New("audio: unsupported file format")

// Decoder reads an audio file as mono float64 samples in [-1, 1]. Multi
// channel sources are downmixed by averaging the channels.
type Decoder interface {
	// ReadChunk returns up to numSamples mono samples, or io.EOF once the
	// stream is exhausted.
	ReadChunk(numSamples int) ([]float64, error)
	SampleRate() int
	NumChannels() int // Channels in the source, before downmixing.
	Close() error
}

// OpenDecoder opens filename with the decoder matching its extension:
// .wav, .mp3 or .flac.
func OpenDecoder(filename string) (Decoder, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".wav", ".wave":
		return NewWAVDecoder(filename)
	case ".mp3":
		return NewMP3Decoder(filename)
	case ".flac":
		return NewFLACDecoder(filename)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Frames slides a window of size samples over dec, advancing hop samples at
// a time, and calls fn for each full window. A stream shorter than one
// window yields a single short frame. The frame slice is reused between
// calls. Frames returns the number of frames delivered.
func Frames(dec Decoder, size, hop int, fn func(index int, frame []float64) error) (int, error) {
	if size <= 0 || hop <= 0 || hop > size {
		return 0, fmt.Errorf("audio: invalid framing, size %d hop %d", size, hop)
	}

	buf := make([]float64, 0, 2*size)
	index := 0
	for {
		chunk, err := dec.ReadChunk(hop)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return index, err
		}
		buf = append(buf, chunk...)

		for len(buf) >= size {
			if err := fn(index, buf[:size]); err != nil {
				return index, err
			}
			index++
			n := copy(buf, buf[hop:])
			buf = buf[:n]
		}
	}

	if index == 0 && len(buf) > 0 {
		if err := fn(0, buf); err != nil {
			return 0, err
		}
		index++
	}
	return index, nil
}
