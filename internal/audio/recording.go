package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"spectrum/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// maxConsecutiveWriteFailures stops recording after this many failed writes.
const maxConsecutiveWriteFailures = 5

// RecordingPath returns a timestamped WAV path inside dir, creating dir if
// needed.
func RecordingPath(dir string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("audio: create recording directory: %w", err)
	}
	return filepath.Join(dir, "spectrum-"+now.Format("20060102-150405")+".wav"), nil
}

// StartRecording writes captured audio, all channels, to a WAV file.
func (e *Engine) StartRecording(filename string) error {
	e.recMu.Lock()
	defer e.recMu.Unlock()

	if e.wavEncoder != nil {
		return fmt.Errorf("already recording")
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	e.outputFile = file

	bits := e.recordingBits
	if bits == 0 {
		bits = 32
	}
	e.wavEncoder = wav.NewEncoder(file, int(e.audioConfig.SampleRate),
		bits, e.audioConfig.InputChannels, 1)

	e.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: e.audioConfig.InputChannels,
			SampleRate:  int(e.audioConfig.SampleRate),
		},
		SourceBitDepth: bits,
		Data:           make([]int, len(e.inputBuffer)),
	}
	e.writeFailures = 0

	e.isRecording.Store(true)
	log.Infof("Audio: recording to %s (%d-bit)", filename, bits)

	return nil
}

// writeRecording converts the int32 capture buffer to the encoder bit depth
// and writes it. Called from the audio callback.
func (e *Engine) writeRecording(buffer []int32) {
	e.recMu.Lock()
	defer e.recMu.Unlock()

	if e.wavEncoder == nil {
		return
	}

	shift := 32 - e.sampleBuf.SourceBitDepth
	e.sampleBuf.Data = e.sampleBuf.Data[:len(buffer)]
	for i, sample := range buffer {
		e.sampleBuf.Data[i] = int(sample >> shift)
	}

	if err := e.wavEncoder.Write(e.sampleBuf); err != nil {
		e.writeFailures++
		log.Errorf("Audio: error writing to WAV file: %v", err)
		if e.writeFailures >= maxConsecutiveWriteFailures {
			log.Errorf("Audio: %d consecutive write failures, recording paused", e.writeFailures)
			e.isRecording.Store(false)
		}
		return
	}
	e.writeFailures = 0
}

// IsRecording reports whether captured audio is being written to a file.
func (e *Engine) IsRecording() bool {
	return e.isRecording.Load()
}

func (e *Engine) StopRecording() error {
	e.isRecording.Store(false)

	e.recMu.Lock()
	defer e.recMu.Unlock()

	if e.wavEncoder != nil {
		if err := e.wavEncoder.Close(); err != nil {
			return err
		}
		e.wavEncoder = nil
	}

	if e.outputFile != nil {
		if err := e.outputFile.Close(); err != nil {
			return err
		}
		e.outputFile = nil
	}

	return nil
}

func (e *Engine) Close() error {
	if err := e.StopRecording(); err != nil {
		return err
	}

	if err := e.StopInputStream(); err != nil {
		return err
	}

	return nil
}
