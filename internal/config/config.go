// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"spectrum/internal/analysis"
	"spectrum/internal/log"
	"spectrum/internal/visualizer"

	"gopkg.in/yaml.v3"
)

// Hardware and processing limits.
const (
	MinDeviceID     = -1     // -1 represents the system default device.
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz).
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz).
	MaxBufferFrames = 8192   // Maximum frames per capture buffer.
	MaxChannels     = 32
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "SPECTRUM_"

// DefaultSearchPaths are tried in order when LoadConfig is given no path.
var DefaultSearchPaths = []string{"spectrum.yaml", "config.yaml"}

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	LogLevel  string          `yaml:"log_level"` // "debug", "info", "warn", "error".
	Audio     AudioConfig     `yaml:"audio"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
}

// AudioConfig holds settings related to audio capture.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Hz.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames delivered per capture callback.
	LowLatency      bool    `yaml:"low_latency"`       // Request the device's low input latency.
	InputChannels   int     `yaml:"input_channels"`    // Captured channels; only the first is analyzed.
	GateEnabled     bool    `yaml:"gate_enabled"`      // Skip analysis of buffers below the gate threshold.
	GateThreshold   float64 `yaml:"gate_threshold"`    // Fraction of full scale, 0.0-1.0.
}

// AnalysisConfig holds spectrum analysis and display settings.
type AnalysisConfig struct {
	TransformSize int                 `yaml:"transform_size"` // Samples per transform.
	Engine        string              `yaml:"engine"`         // "gonum", "gofft" or "go-dsp".
	HopSize       int                 `yaml:"hop_size"`       // Samples between analyzed windows.
	Display       visualizer.Settings `yaml:"display"`
}

// RecordingConfig holds settings related to audio recording functionality.
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`    // Record captured audio while running.
	OutputDir string `yaml:"output_dir"` // Directory for recorded files.
	Format    string `yaml:"format"`     // Only "wav" is supported.
	BitDepth  int    `yaml:"bit_depth"`  // 16, 24 or 32.
}

// TransportConfig holds settings related to publishing frames.
type TransportConfig struct {
	WebSocketEnabled  bool          `yaml:"websocket_enabled"`
	WebSocketAddress  string        `yaml:"websocket_address"`       // Listen address, e.g. ":8080".
	WebSocketInterval time.Duration `yaml:"websocket_send_interval"` // Interval between frame pushes.
	TweenFactor       float64       `yaml:"tween_factor"`            // Display interpolation per push, (0, 1].
	UDPEnabled        bool          `yaml:"udp_enabled"`
	UDPTargetAddress  string        `yaml:"udp_target_address"` // host:port.
	UDPSendInterval   time.Duration `yaml:"udp_send_interval"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     MinDeviceID,
			SampleRate:      44100,
			FramesPerBuffer: 512,
			LowLatency:      false,
			InputChannels:   2,
			GateEnabled:     true,
			GateThreshold:   0.001,
		},
		Analysis: AnalysisConfig{
			TransformSize: 2048,
			Engine:        string(analysis.DefaultEngine),
			HopSize:       1024,
			Display:       visualizer.DefaultSettings(),
		},
		Recording: RecordingConfig{
			Enabled:   false,
			OutputDir: "./recordings",
			Format:    "wav",
			BitDepth:  16,
		},
		Transport: TransportConfig{
			WebSocketEnabled:  true,
			WebSocketAddress:  ":8080",
			WebSocketInterval: 16 * time.Millisecond, // ~60Hz.
			TweenFactor:       1,
			UDPEnabled:        false,
			UDPTargetAddress:  "127.0.0.1:9090",
			UDPSendInterval:   33 * time.Millisecond, // ~30Hz.
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path
// is empty, it searches DefaultSearchPaths and falls back to the built-in
// defaults when none exists. Environment overrides are applied last, then the
// result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfig()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		log.Debugf("Config: loaded %s", path)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func findConfig() string {
	for _, candidate := range DefaultSearchPaths {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Validate checks every section and returns all problems joined. Each
// problem wraps analysis.ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{analysis.ErrInvalidConfig}, args...)...))
	}

	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		invalid("log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}

	a := c.Audio
	if a.InputDevice < MinDeviceID {
		invalid("audio.input_device must be >= %d, got %d", MinDeviceID, a.InputDevice)
	}
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		invalid("audio.sample_rate must be within [%d, %d], got %g", MinSampleRate, MaxSampleRate, a.SampleRate)
	}
	if a.FramesPerBuffer <= 0 || a.FramesPerBuffer > MaxBufferFrames {
		invalid("audio.frames_per_buffer must be within [1, %d], got %d", MaxBufferFrames, a.FramesPerBuffer)
	}
	if a.InputChannels < 1 || a.InputChannels > MaxChannels {
		invalid("audio.input_channels must be within [1, %d], got %d", MaxChannels, a.InputChannels)
	}
	if a.GateThreshold < 0 || a.GateThreshold > 1 {
		invalid("audio.gate_threshold must be within [0, 1], got %g", a.GateThreshold)
	}

	an := c.Analysis
	if engine, err := analysis.ParseEngine(an.Engine); err != nil {
		errs = append(errs, err)
	} else if err := analysis.Validate(an.TransformSize, engine); err != nil {
		errs = append(errs, err)
	}
	if an.HopSize <= 0 || an.HopSize > an.TransformSize {
		invalid("analysis.hop_size must be within [1, transform_size], got %d", an.HopSize)
	}
	if err := an.Display.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("analysis.display: %w", err))
	}

	r := c.Recording
	if r.Format != "wav" {
		invalid("recording.format %q is not supported", r.Format)
	}
	switch r.BitDepth {
	case 16, 24, 32:
	default:
		invalid("recording.bit_depth must be 16, 24 or 32, got %d", r.BitDepth)
	}
	if r.Enabled && r.OutputDir == "" {
		invalid("recording.output_dir must be set when recording is enabled")
	}

	t := c.Transport
	if t.WebSocketEnabled {
		if _, _, err := net.SplitHostPort(t.WebSocketAddress); err != nil {
			invalid("transport.websocket_address %q: %v", t.WebSocketAddress, err)
		}
		if t.WebSocketInterval <= 0 {
			invalid("transport.websocket_send_interval must be positive")
		}
		if !(t.TweenFactor > 0 && t.TweenFactor <= 1) {
			invalid("transport.tween_factor must be within (0, 1], got %g", t.TweenFactor)
		}
	}
	if t.UDPEnabled {
		if _, _, err := net.SplitHostPort(t.UDPTargetAddress); err != nil {
			invalid("transport.udp_target_address %q: %v", t.UDPTargetAddress, err)
		}
		if t.UDPSendInterval <= 0 {
			invalid("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}

	return errors.Join(errs...)
}

// EngineName returns the parsed analysis engine. Validate must have passed.
func (c *Config) EngineName() analysis.Engine {
	engine, _ := analysis.ParseEngine(c.Analysis.Engine)
	return engine
}

// applyEnvOverrides overrides file values with SPECTRUM_* variables.
// Unparseable values are logged and ignored.
func (c *Config) applyEnvOverrides() {
	str := func(name string, dst *string) {
		if val, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = val
			log.Infof("Config: overriding %s from env: %s", name, val)
		}
	}
	integer := func(name string, dst *int) {
		if val, ok := os.LookupEnv(EnvPrefix + name); ok {
			n, err := strconv.Atoi(val)
			if err != nil {
				log.Warnf("Config: ignoring %s%s=%q: %v", EnvPrefix, name, val, err)
				return
			}
			*dst = n
			log.Infof("Config: overriding %s from env: %d", name, n)
		}
	}
	float := func(name string, dst *float64) {
		if val, ok := os.LookupEnv(EnvPrefix + name); ok {
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				log.Warnf("Config: ignoring %s%s=%q: %v", EnvPrefix, name, val, err)
				return
			}
			*dst = f
			log.Infof("Config: overriding %s from env: %g", name, f)
		}
	}
	boolean := func(name string, dst *bool) {
		if val, ok := os.LookupEnv(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(val)
			if err != nil {
				log.Warnf("Config: ignoring %s%s=%q: %v", EnvPrefix, name, val, err)
				return
			}
			*dst = b
			log.Infof("Config: overriding %s from env: %v", name, b)
		}
	}
	duration := func(name string, dst *time.Duration) {
		if val, ok := os.LookupEnv(EnvPrefix + name); ok {
			d, err := time.ParseDuration(val)
			if err != nil {
				log.Warnf("Config: ignoring %s%s=%q: %v", EnvPrefix, name, val, err)
				return
			}
			*dst = d
			log.Infof("Config: overriding %s from env: %s", name, d)
		}
	}

	str("LOG_LEVEL", &c.LogLevel)
	integer("INPUT_DEVICE", &c.Audio.InputDevice)
	float("SAMPLE_RATE", &c.Audio.SampleRate)
	integer("TRANSFORM_SIZE", &c.Analysis.TransformSize)
	str("ENGINE", &c.Analysis.Engine)

	var mode string
	str("MODE", &mode)
	if mode != "" {
		m, err := visualizer.ParseMode(mode)
		if err != nil {
			log.Warnf("Config: ignoring %sMODE: %v", EnvPrefix, err)
		} else {
			c.Analysis.Display.Mode = m
		}
	}
	float("SMOOTHING", &c.Analysis.Display.Smoothing)
	float("SENSITIVITY", &c.Analysis.Display.Sensitivity)

	boolean("WS_ENABLED", &c.Transport.WebSocketEnabled)
	str("WS_ADDRESS", &c.Transport.WebSocketAddress)
	boolean("UDP_ENABLED", &c.Transport.UDPEnabled)
	str("UDP_TARGET_ADDRESS", &c.Transport.UDPTargetAddress)
	duration("UDP_SEND_INTERVAL", &c.Transport.UDPSendInterval)
}
