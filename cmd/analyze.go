// SPDX-License-Identifier: MIT
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"spectrum/internal/analysis"
	"spectrum/internal/audio"
	"spectrum/internal/config"
	"spectrum/internal/transport"
	"spectrum/internal/visualizer"
	"spectrum/pkg/synth"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

type analyzeFlags struct {
	summary bool
	mode    string
	hop     int
}

func newAnalyzeCommand(opts *rootOptions) *cobra.Command {
	flags := &analyzeFlags{}

	analyzeCmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze a WAV, MP3 or FLAC file offline",
		Long: `Analyze a WAV, MP3 or FLAC file offline.

Each frame is written as a JSON line in the same format the WebSocket server
streams, with the timestamp holding the frame offset into the file in
milliseconds. With --summary a table of averaged band levels is printed
instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("mode") {
				mode, err := visualizer.ParseMode(flags.mode)
				if err != nil {
					return err
				}
				cfg.Analysis.Display.Mode = mode
				cfg.Analysis.Display.Bins = 0
			}
			if cmd.Flags().Changed("hop") {
				cfg.Analysis.HopSize = flags.hop
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return analyzeFile(cmd.OutOrStdout(), cfg, args[0], flags.summary)
		},
	}

	f := analyzeCmd.Flags()
	f.BoolVar(&flags.summary, "summary", false, "Print a band level summary instead of frames")
	f.StringVarP(&flags.mode, "mode", "m", "", "Visualization mode: bars, wave, circular, particles")
	f.IntVar(&flags.hop, "hop", 0, "Samples between analyzed frames")

	return analyzeCmd
}

func analyzeFile(w io.Writer, cfg *config.Config, path string, summary bool) error {
	dec, err := audio.OpenDecoder(path)
	if err != nil {
		return err
	}
	defer dec.Close()

	an := cfg.Analysis
	display, err := analysis.NewSpectrumAnalyzerWithEngine(an.TransformSize, cfg.EngineName())
	if err != nil {
		return err
	}
	vis, err := visualizer.New(display, an.Display)
	if err != nil {
		return err
	}
	spectrum, err := analysis.NewSpectrumAnalyzerWithEngine(an.TransformSize, cfg.EngineName())
	if err != nil {
		return err
	}

	sampleRate := float64(dec.SampleRate())
	enc := json.NewEncoder(w)
	mags := make([]float64, spectrum.Bins())
	mean := make([]float64, spectrum.Bins())

	frames, err := audio.Frames(dec, an.TransformSize, an.HopSize, func(index int, frame []float64) error {
		if summary {
			if err := spectrum.ProcessInto(mags, frame); err != nil {
				return err
			}
			for i, m := range mags {
				mean[i] += m
			}
			return nil
		}

		if _, err := vis.Frame(frame); err != nil {
			return err
		}
		snap, _ := vis.Latest()
		out := transport.NewFrame(snap)
		out.Timestamp = offset(index, an.HopSize, sampleRate).Milliseconds()
		return enc.Encode(out)
	})
	if err != nil {
		return fmt.Errorf("analyze %s: %w", path, err)
	}
	if !summary {
		return nil
	}
	if frames == 0 {
		return fmt.Errorf("analyze %s: no audio", path)
	}

	for i := range mean {
		mean[i] /= float64(frames)
	}
	return writeSummary(w, spectrum, dec, path, frames, mean)
}

func offset(index, hop int, sampleRate float64) time.Duration {
	return time.Duration(float64(index*hop) / sampleRate * float64(time.Second))
}

func writeSummary(w io.Writer, a *analysis.SpectrumAnalyzer, dec audio.Decoder, path string, frames int, mean []float64) error {
	sampleRate := float64(dec.SampleRate())
	bands := analysis.DefaultBands(sampleRate)
	levels, err := a.BandLevels(mean, sampleRate, bands)
	if err != nil {
		return err
	}
	peak := synth.FindPeakBin(mean, 1, len(mean)-1)

	fmt.Fprintf(w, "%s: %d frames, %.0f Hz, %d channel(s), engine %s\n",
		path, frames, sampleRate, dec.NumChannels(), a.Engine())
	fmt.Fprintf(w, "Peak: %.1f Hz at %.1f dB\n\n", a.BinFrequency(peak, sampleRate), mean[peak])

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Band", "Range (Hz)", "Level (dB)")
	for i, b := range bands {
		level := "-"
		if levels[i] > analysis.FloorDB {
			level = fmt.Sprintf("%.1f", levels[i])
		}
		t.Row(b.Name, fmt.Sprintf("%.0f-%.0f", b.LowHz, math.Min(b.HighHz, sampleRate/2)), level)
	}
	_, err = fmt.Fprintln(w, t.Render())
	return err
}
