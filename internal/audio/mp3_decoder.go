package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// mp3FrameBytes is the size of one decoded frame: two 16-bit channels.
const mp3FrameBytes = 4

// MP3Decoder implements Decoder for MP3 files.
type MP3Decoder struct {
	decoder *mp3.Decoder
	file    *os.File
	buf     []byte
}

// NewMP3Decoder opens filename for decoding.
func NewMP3Decoder(filename string) (*MP3Decoder, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create MP3 decoder: %w", err)
	}

	return &MP3Decoder{decoder: decoder, file: f}, nil
}

// ReadChunk reads up to numSamples frames. go-mp3 always produces
// interleaved 16-bit little-endian stereo, which is averaged to mono.
func (d *MP3Decoder) ReadChunk(numSamples int) ([]float64, error) {
	size := numSamples * mp3FrameBytes
	if cap(d.buf) < size {
		d.buf = make([]byte, size)
	}
	d.buf = d.buf[:size]

	n, err := io.ReadFull(d.decoder, d.buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("failed to read MP3 data: %w", err)
	}

	frames := n / mp3FrameBytes
	if frames == 0 {
		return nil, io.EOF
	}

	samples := make([]float64, frames)
	for i := range frames {
		left := int16(binary.LittleEndian.Uint16(d.buf[i*4:]))
		right := int16(binary.LittleEndian.Uint16(d.buf[i*4+2:]))
		samples[i] = (float64(left) + float64(right)) / 2 / 32768.0
	}
	return samples, nil
}

// SampleRate returns the sample rate.
func (d *MP3Decoder) SampleRate() int { return d.decoder.SampleRate() }

// NumChannels returns 2; go-mp3 always decodes to stereo.
func (d *MP3Decoder) NumChannels() int { return 2 }

// Close closes the underlying file.
func (d *MP3Decoder) Close() error {
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}
