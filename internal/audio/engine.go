// SPDX-License-Identifier: MIT
/*
Package audio captures audio with PortAudio and feeds it to spectrum
analysis, and decodes audio files for offline analysis.

Capture pipeline, per PortAudio callback:
  - copy the interleaved buffer
  - noise gate (branchless peak detection)
  - first-channel extraction and int32 to float64 conversion
  - sliding window of the analysis transform size
  - FrameHandler.HandleFrame with the window
  - optional WAV recording of the raw buffer

Thread Safety:
  - Gate settings and the recording flag are atomic
  - Buffers are pre-allocated so the callback itself does not allocate
  - The callback locks its OS thread while running
*/
package audio

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"spectrum/internal/config"
	"spectrum/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"
)

// normFactor maps int32 samples to [-1.0, 1.0).
const normFactor = 1.0 / float64(0x80000000)

// FrameHandler receives the analysis window after each capture callback.
// It runs on the audio thread and must return quickly; samples are only
// valid for the duration of the call.
type FrameHandler interface {
	HandleFrame(samples []float64)
}

// FrameHandlerFunc adapts a function to FrameHandler.
type FrameHandlerFunc func(samples []float64)

func (f FrameHandlerFunc) HandleFrame(samples []float64) { f(samples) }

// inputStream is the part of *portaudio.Stream the engine drives.
type inputStream interface {
	Start() error
	Stop() error
	Close() error
}

var openStream = func(params portaudio.StreamParameters, callback func([]int32)) (inputStream, error) {
	return portaudio.OpenStream(params, callback)
}

type Engine struct {
	// Core configuration.
	audioConfig   config.AudioConfig
	recordingBits int

	// Audio input handling.
	inputBuffer  []int32
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	stream       inputStream

	// Analysis feed.
	handler FrameHandler
	mono    []float64 // First channel of the current buffer.
	window  *SlidingWindow
	frames  atomic.Uint64
	gated   atomic.Uint64

	// Noise gate for signal conditioning.
	gate gate

	// Recording state and buffers.
	isRecording   atomic.Bool
	recMu         sync.Mutex
	outputFile    *os.File
	wavEncoder    *wav.Encoder
	sampleBuf     *audio.IntBuffer // Reusable buffer for format conversion.
	writeFailures int
}

// NewEngine resolves the configured input device and returns an engine
// that feeds windows of cfg.Analysis.TransformSize samples to handler.
// PortAudio must be initialized.
func NewEngine(cfg *config.Config, handler FrameHandler) (*Engine, error) {
	inputDevice, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}
	return newEngine(cfg, inputDevice, handler)
}

func newEngine(cfg *config.Config, inputDevice *portaudio.DeviceInfo, handler FrameHandler) (*Engine, error) {
	if handler == nil {
		return nil, fmt.Errorf("audio: engine requires a frame handler")
	}
	if inputDevice == nil {
		return nil, fmt.Errorf("audio: engine requires an input device")
	}

	ac := cfg.Audio
	engine := &Engine{
		audioConfig:   ac,
		recordingBits: cfg.Recording.BitDepth,
		inputBuffer:   make([]int32, ac.FramesPerBuffer*ac.InputChannels),
		inputDevice:   inputDevice,
		handler:       handler,
		mono:          make([]float64, ac.FramesPerBuffer),
		window:        NewSlidingWindow(cfg.Analysis.TransformSize),
	}
	engine.gate.enabled.Store(ac.GateEnabled)
	engine.SetGateThreshold(ac.GateThreshold)

	if ac.LowLatency {
		engine.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		engine.inputLatency = inputDevice.DefaultHighInputLatency
	}

	log.WithFields(log.Fields{
		"device":            inputDevice.Name,
		"sample_rate":       ac.SampleRate,
		"channels":          ac.InputChannels,
		"frames_per_buffer": ac.FramesPerBuffer,
		"window":            cfg.Analysis.TransformSize,
		"latency":           engine.inputLatency,
	}).Info("Audio: engine created")

	return engine, nil
}

func (e *Engine) StartInputStream() error {
	if e.stream != nil {
		return fmt.Errorf("audio: input stream already started")
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.audioConfig.InputChannels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device.
			Device:   nil,
		},
		FramesPerBuffer: e.audioConfig.FramesPerBuffer,
		SampleRate:      e.audioConfig.SampleRate,
	}

	stream, err := openStream(params, e.processInputStream)
	if err != nil {
		return fmt.Errorf("audio: open input stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("audio: start input stream: %w", err)
	}
	e.stream = stream

	return nil
}

func (e *Engine) StopInputStream() error {
	if e.stream == nil {
		return nil
	}

	if err := e.stream.Stop(); err != nil {
		return fmt.Errorf("audio: stop input stream: %w", err)
	}
	if err := e.stream.Close(); err != nil {
		return fmt.Errorf("audio: close input stream: %w", err)
	}
	e.stream = nil

	log.Infof("Audio: input stream stopped after %d frames (%d gated)", e.frames.Load(), e.gated.Load())
	return nil
}

// Frames returns the number of windows handed to the FrameHandler and how
// many of those were gated to silence.
func (e *Engine) Frames() (total, gated uint64) {
	return e.frames.Load(), e.gated.Load()
}

// processInputStream is the core audio processing callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
// - No dynamic allocations in the hot path
func (e *Engine) processInputStream(in []int32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	n := copy(e.inputBuffer, in)
	e.processBuffer(e.inputBuffer[:n])

	if e.isRecording.Load() {
		e.writeRecording(e.inputBuffer[:n])
	}
}

// processBuffer feeds one interleaved buffer into the analysis window.
// A closed gate feeds silence so the display decays instead of freezing.
func (e *Engine) processBuffer(buffer []int32) {
	channels := e.audioConfig.InputChannels
	frames := min(len(buffer)/channels, len(e.mono))

	if e.gate.open(buffer) {
		for i := range frames {
			e.mono[i] = float64(buffer[i*channels]) * normFactor
		}
		e.window.Push(e.mono[:frames])
	} else {
		e.window.PushSilence(frames)
		e.gated.Add(1)
	}

	e.frames.Add(1)
	e.handler.HandleFrame(e.window.Samples())
}
