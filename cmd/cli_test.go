// SPDX-License-Identifier: MIT
package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"spectrum/internal/transport"
	"spectrum/pkg/synth"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSampleRate = 44100

func writeToneWAV(t *testing.T, seconds, freq float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	samples := synth.GenerateSineWave(int(seconds*testSampleRate), testSampleRate, freq)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: testSampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, len(samples)),
	}
	for i, s := range samples {
		buf.Data[i] = int(math.Round(s * 32767))
	}

	enc := wav.NewEncoder(f, testSampleRate, 16, 1, 1)
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir()) // Keep stray config files out of the search path.

	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "spectrum")
}

func TestAnalyzeFrames(t *testing.T) {
	path := writeToneWAV(t, 0.5, 1000)

	out, err := execute(t, "analyze", path, "--mode", "circular", "--log-level", "error")
	require.NoError(t, err)

	var frames []transport.Frame
	sc := bufio.NewScanner(strings.NewReader(out))
	sc.Buffer(make([]byte, 1<<20), 1<<20)
	for sc.Scan() {
		var f transport.Frame
		require.NoError(t, json.Unmarshal(sc.Bytes(), &f))
		frames = append(frames, f)
	}
	require.NoError(t, sc.Err())

	// 22050 samples, 2048 window, 1024 hop.
	require.Len(t, frames, 20)
	for i, f := range frames {
		assert.Equal(t, transport.FrameType, f.Type)
		assert.Equal(t, "circular", f.Mode)
		assert.Len(t, f.Bins, 64)
		assert.Equal(t, uint64(i+1), f.Seq)
	}
	assert.Equal(t, int64(0), frames[0].Timestamp)
	assert.Equal(t, int64(23), frames[1].Timestamp, "1024 samples at 44.1kHz")
}

func TestAnalyzeSummary(t *testing.T) {
	path := writeToneWAV(t, 0.5, 1000)

	out, err := execute(t, "analyze", path, "--summary", "--log-level", "error")
	require.NoError(t, err)

	assert.Contains(t, out, "1 channel(s)")
	assert.Contains(t, out, "engine gonum")
	for _, band := range []string{"sub", "bass", "lowMid", "mid", "highMid", "treble"} {
		assert.Contains(t, out, band)
	}
	// Bin 46 of 2048 at 44.1kHz is the closest to 1kHz.
	assert.Contains(t, out, "Peak: 990.5 Hz")
}

func TestAnalyzeErrors(t *testing.T) {
	_, err := execute(t, "analyze")
	assert.Error(t, err, "file argument is required")

	_, err = execute(t, "analyze", "missing.ogg")
	assert.Error(t, err)

	_, err = execute(t, "analyze", writeToneWAV(t, 0.1, 440), "--mode", "spiral")
	assert.Error(t, err)

	_, err = execute(t, "analyze", writeToneWAV(t, 0.1, 440), "--hop", "0")
	assert.Error(t, err)
}

func TestConfigFlag(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("analysis:\n  transform_size: 1\n"), 0o644))

	_, err := execute(t, "version", "--config", cfgPath)
	assert.NoError(t, err, "version does not read the config")

	_, err = execute(t, "analyze", writeToneWAV(t, 0.1, 440), "--config", cfgPath)
	assert.Error(t, err)

	_, err = execute(t, "analyze", writeToneWAV(t, 0.1, 440), "--log-level", "loud")
	assert.Error(t, err)
}

func TestRunFlagsApply(t *testing.T) {
	root := NewRootCommand()
	runCmd, _, err := root.Find([]string{"run"})
	require.NoError(t, err)

	require.NoError(t, runCmd.ParseFlags([]string{"--mode", "particles", "--udp", "127.0.0.1:9999", "--no-ws", "-n", "512"}))

	t.Chdir(t.TempDir())
	opts := &rootOptions{logLevel: "error"}
	cfg, err := opts.loadConfig()
	require.NoError(t, err)

	flags := &runFlags{mode: "particles", udpTarget: "127.0.0.1:9999", noWebSocket: true, transformSize: 512}
	require.NoError(t, flags.apply(runCmd, cfg))

	assert.Equal(t, "particles", string(cfg.Analysis.Display.Mode))
	assert.True(t, cfg.Transport.UDPEnabled)
	assert.Equal(t, "127.0.0.1:9999", cfg.Transport.UDPTargetAddress)
	assert.False(t, cfg.Transport.WebSocketEnabled)
	assert.Equal(t, 512, cfg.Analysis.TransformSize)
	assert.Equal(t, 512, cfg.Analysis.HopSize)
	assert.Equal(t, 44100.0, cfg.Audio.SampleRate, "unchanged flags keep config values")
}
