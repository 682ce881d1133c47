// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spectrum/internal/analysis"
	"spectrum/internal/audio"
	"spectrum/internal/config"
	applog "spectrum/internal/log"
	"spectrum/internal/transport"
	"spectrum/internal/transport/udp"
	"spectrum/internal/visualizer"

	"github.com/spf13/cobra"
)

// runFlags override config values when set on the command line.
type runFlags struct {
	device          int
	sampleRate      float64
	framesPerBuffer int
	channels        int
	lowLatency      bool
	transformSize   int
	engine          string
	mode            string
	record          bool
	output          string
	wsAddress       string
	noWebSocket     bool
	udpTarget       string
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	flags := &runFlags{}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Capture audio and stream spectrum frames",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := flags.apply(cmd, cfg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runCapture(ctx, cfg)
		},
	}

	f := runCmd.Flags()
	f.IntVarP(&flags.device, "device", "d", config.MinDeviceID,
		"Input device ID, -1 for the default. Use 'devices' to list them.")
	f.Float64VarP(&flags.sampleRate, "sample-rate", "s", 0, "Sample rate, measured in Hertz (Hz)")
	f.IntVarP(&flags.framesPerBuffer, "frames-per-buffer", "b", 0, "Frames per capture buffer (affects latency)")
	f.IntVar(&flags.channels, "channels", 0, "Number of channels to capture; the first is analyzed")
	f.BoolVarP(&flags.lowLatency, "low-latency", "l", false, "Use low latency mode for real-time processing")
	f.IntVarP(&flags.transformSize, "transform-size", "n", 0, "Samples per transform")
	f.StringVar(&flags.engine, "engine", "", "Transform engine: gonum, gofft, go-dsp")
	f.StringVarP(&flags.mode, "mode", "m", "", "Visualization mode: bars, wave, circular, particles")
	f.BoolVarP(&flags.record, "record", "r", false, "Record captured audio to WAV")
	f.StringVarP(&flags.output, "output", "o", "", "Recording directory")
	f.StringVar(&flags.wsAddress, "ws-addr", "", "WebSocket listen address")
	f.BoolVar(&flags.noWebSocket, "no-ws", false, "Disable the WebSocket server")
	f.StringVar(&flags.udpTarget, "udp", "", "Also publish frames to this UDP host:port")

	return runCmd
}

// apply copies changed flags into cfg and revalidates it.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed

	if changed("device") {
		cfg.Audio.InputDevice = f.device
	}
	if changed("sample-rate") {
		cfg.Audio.SampleRate = f.sampleRate
	}
	if changed("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = f.framesPerBuffer
	}
	if changed("channels") {
		cfg.Audio.InputChannels = f.channels
	}
	if changed("low-latency") {
		cfg.Audio.LowLatency = f.lowLatency
	}
	if changed("transform-size") {
		cfg.Analysis.TransformSize = f.transformSize
		cfg.Analysis.HopSize = min(cfg.Analysis.HopSize, f.transformSize)
	}
	if changed("engine") {
		cfg.Analysis.Engine = f.engine
	}
	if changed("mode") {
		mode, err := visualizer.ParseMode(f.mode)
		if err != nil {
			return err
		}
		cfg.Analysis.Display.Mode = mode
		cfg.Analysis.Display.Bins = 0
	}
	if changed("record") {
		cfg.Recording.Enabled = f.record
	}
	if changed("output") {
		cfg.Recording.OutputDir = f.output
	}
	if changed("ws-addr") {
		cfg.Transport.WebSocketAddress = f.wsAddress
	}
	if changed("no-ws") {
		cfg.Transport.WebSocketEnabled = !f.noWebSocket
	}
	if changed("udp") {
		cfg.Transport.UDPEnabled = f.udpTarget != ""
		cfg.Transport.UDPTargetAddress = f.udpTarget
	}

	return cfg.Validate()
}

type stopper interface{ Stop() error }

// runCapture wires capture, analysis and publishers, then blocks until ctx
// is cancelled.
func runCapture(ctx context.Context, cfg *config.Config) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	analyzer, err := analysis.NewSpectrumAnalyzerWithEngine(cfg.Analysis.TransformSize, cfg.EngineName())
	if err != nil {
		return err
	}
	vis, err := visualizer.New(analyzer, cfg.Analysis.Display)
	if err != nil {
		return err
	}

	engine, err := audio.NewEngine(cfg, vis)
	if err != nil {
		return err
	}
	defer engine.Close()

	var (
		publishers []stopper
		closers    []io.Closer
	)
	defer func() {
		for _, p := range publishers {
			p.Stop()
		}
		for _, c := range closers {
			if err := c.Close(); err != nil {
				applog.Warnf("Spectrum: close: %v", err)
			}
		}
	}()

	tc := cfg.Transport
	if tc.WebSocketEnabled {
		ws := transport.NewWebSocketTransport(tc.WebSocketAddress)
		closers = append(closers, ws)
		if err := ws.Start(); err != nil {
			return err
		}
		streamer, err := transport.NewStreamer(vis, ws, tc.WebSocketInterval, tc.TweenFactor)
		if err != nil {
			return err
		}
		streamer.Start()
		publishers = append(publishers, streamer)
	}

	if tc.UDPEnabled {
		sender, err := udp.NewSender(tc.UDPTargetAddress)
		if err != nil {
			return err
		}
		publisher, err := udp.NewPublisher(tc.UDPSendInterval, sender, vis)
		if err != nil {
			sender.Close()
			return err
		}
		closers = append(closers, sender)
		publisher.Start()
		publishers = append(publishers, publisher)
	}

	if len(publishers) == 0 {
		applog.Warnf("No transport enabled, frames are computed but not published")
	}

	if err := engine.StartInputStream(); err != nil {
		return err
	}

	if cfg.Recording.Enabled {
		path, err := audio.RecordingPath(cfg.Recording.OutputDir, time.Now())
		if err != nil {
			return err
		}
		if err := engine.StartRecording(path); err != nil {
			return fmt.Errorf("start recording: %w", err)
		}
		defer func() {
			if err := engine.StopRecording(); err != nil {
				applog.Errorf("Error stopping recording: %v", err)
				return
			}
			applog.Infof("Recording saved to: %s", path)
		}()
	}

	applog.WithFields(applog.Fields{
		"mode":           vis.Settings().Mode,
		"bins":           vis.Settings().NumBins(),
		"transform_size": analyzer.TransformSize(),
		"engine":         analyzer.Engine(),
	}).Info("Spectrum: running, press Ctrl+C to stop")

	<-ctx.Done()
	applog.Infof("Spectrum: shutting down")

	return engine.StopInputStream()
}
