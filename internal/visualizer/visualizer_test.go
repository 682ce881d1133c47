// SPDX-License-Identifier: MIT
package visualizer

import (
	"sync"
	"testing"
	"time"

	"spectrum/internal/analysis"
	"spectrum/pkg/synth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTransformSize = 2048
	testSampleRate    = 44100
)

var (
	testTone    = synth.GenerateComplexWave(testTransformSize, testSampleRate)
	testSilence = make([]float64, testTransformSize)
)

func newTestVisualizer(t *testing.T, settings Settings) *Visualizer {
	t.Helper()
	a, err := analysis.NewSpectrumAnalyzer(testTransformSize)
	require.NoError(t, err)
	v, err := New(a, settings)
	require.NoError(t, err)
	return v
}

func TestNew(t *testing.T) {
	_, err := New(nil, DefaultSettings())
	assert.ErrorIs(t, err, analysis.ErrInvalidConfig)

	a, err := analysis.NewSpectrumAnalyzer(testTransformSize)
	require.NoError(t, err)
	bad := DefaultSettings()
	bad.Smoothing = 2
	_, err = New(a, bad)
	assert.ErrorIs(t, err, analysis.ErrInvalidConfig)
}

func TestFrameShape(t *testing.T) {
	for _, mode := range Modes {
		t.Run(string(mode), func(t *testing.T) {
			s := DefaultSettings()
			s.Mode = mode
			v := newTestVisualizer(t, s)

			frame, err := v.Frame(testTone)
			require.NoError(t, err)
			assert.Len(t, frame, mode.Bins())
			for _, value := range frame {
				assert.True(t, value >= 0 && value <= 1, "value %g out of range", value)
			}
		})
	}
}

func TestFrameSilenceIsZero(t *testing.T) {
	v := newTestVisualizer(t, DefaultSettings())

	frame, err := v.Frame(testSilence)
	require.NoError(t, err)
	for _, value := range frame {
		assert.Equal(t, 0.0, value)
	}
}

func TestFrameSmoothing(t *testing.T) {
	s := DefaultSettings()
	s.Smoothing = 0.5
	s.Sensitivity = 1
	v := newTestVisualizer(t, s)

	loud, err := v.Frame(testTone)
	require.NoError(t, err)
	decayed, err := v.Frame(testSilence)
	require.NoError(t, err)

	want := make([]float64, len(loud))
	for i := range loud {
		want[i] = loud[i] * 0.5
	}
	assert.InDeltaSlice(t, want, decayed, 1e-12)
}

func TestFrameNoSmoothingDisabled(t *testing.T) {
	s := DefaultSettings()
	s.Smoothing = 0
	s.Sensitivity = 1
	v := newTestVisualizer(t, s)

	_, err := v.Frame(testTone)
	require.NoError(t, err)
	frame, err := v.Frame(testSilence)
	require.NoError(t, err)
	for _, value := range frame {
		assert.Equal(t, 0.0, value)
	}
}

func TestFrameSensitivityCapsAtOne(t *testing.T) {
	s := DefaultSettings()
	s.Sensitivity = MaxSensitivity
	v := newTestVisualizer(t, s)

	frame, err := v.Frame(testTone)
	require.NoError(t, err)
	assert.Equal(t, 1.0, frame[synth.FindPeakBin(frame, 0, len(frame)-1)])
}

func TestModeSwitchSkipsSmoothing(t *testing.T) {
	v := newTestVisualizer(t, DefaultSettings())
	_, err := v.Frame(testTone)
	require.NoError(t, err)

	require.NoError(t, v.SetMode(ModeCircular))
	switched, err := v.Frame(testSilence)
	require.NoError(t, err)
	require.Len(t, switched, ModeCircular.Bins())

	s := DefaultSettings()
	s.Mode = ModeCircular
	fresh, err := newTestVisualizer(t, s).Frame(testSilence)
	require.NoError(t, err)
	assert.Equal(t, fresh, switched)

	assert.ErrorIs(t, v.SetMode(Mode("spiral")), analysis.ErrInvalidConfig)
	assert.Equal(t, ModeCircular, v.Settings().Mode)
}

func TestLatest(t *testing.T) {
	v := newTestVisualizer(t, DefaultSettings())
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	v.now = func() time.Time { return fixed }

	_, ok := v.Latest()
	assert.False(t, ok)

	frame, err := v.Frame(testTone)
	require.NoError(t, err)

	snap, ok := v.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(1), snap.Seq)
	assert.Equal(t, ModeBars, snap.Mode)
	assert.Equal(t, fixed, snap.Timestamp)
	assert.Equal(t, frame, snap.Bins)

	snap.Bins[0] = 42
	again, _ := v.Latest()
	assert.NotEqual(t, 42.0, again.Bins[0], "Latest must return a copy")

	frame[1] = 42
	again, _ = v.Latest()
	assert.NotEqual(t, 42.0, again.Bins[1], "Frame must return a copy")
}

func TestTween(t *testing.T) {
	s := DefaultSettings()
	s.Smoothing = 0
	s.Sensitivity = 1
	v := newTestVisualizer(t, s)

	_, ok := v.Tween(0.5)
	assert.False(t, ok)

	loud, err := v.Frame(testTone)
	require.NoError(t, err)
	first, ok := v.Tween(0.5)
	require.True(t, ok)
	assert.Equal(t, loud, first.Bins, "first tween snaps to the latest frame")

	_, err = v.Frame(testSilence)
	require.NoError(t, err)
	half, ok := v.Tween(0.5)
	require.True(t, ok)
	want := make([]float64, len(loud))
	for i := range loud {
		want[i] = loud[i] * 0.5
	}
	assert.InDeltaSlice(t, want, half.Bins, 1e-12)

	require.NoError(t, v.SetMode(ModeParticles))
	_, err = v.Frame(testTone)
	require.NoError(t, err)
	snapped, ok := v.Tween(0.1)
	require.True(t, ok)
	assert.Len(t, snapped.Bins, ModeParticles.Bins())
}

func TestReset(t *testing.T) {
	s := DefaultSettings()
	s.Sensitivity = 1
	v := newTestVisualizer(t, s)

	_, err := v.Frame(testTone)
	require.NoError(t, err)
	v.Reset()

	_, ok := v.Latest()
	assert.False(t, ok)

	frame, err := v.Frame(testSilence)
	require.NoError(t, err)
	for _, value := range frame {
		assert.Equal(t, 0.0, value, "history must not leak past Reset")
	}
	snap, ok := v.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(2), snap.Seq)
}

func TestSetSettings(t *testing.T) {
	v := newTestVisualizer(t, DefaultSettings())

	s := DefaultSettings()
	s.Bins = 16
	require.NoError(t, v.SetSettings(s))
	frame, err := v.Frame(testTone)
	require.NoError(t, err)
	assert.Len(t, frame, 16)

	s.MaxDB = s.MinDB
	assert.ErrorIs(t, v.SetSettings(s), analysis.ErrInvalidConfig)
	assert.Equal(t, 16, v.Settings().NumBins())
}

func TestConcurrentAccess(t *testing.T) {
	v := newTestVisualizer(t, DefaultSettings())

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 20 {
				v.HandleFrame(testTone)
			}
		}()
		go func() {
			defer wg.Done()
			for range 20 {
				v.Latest()
				v.Tween(0.3)
			}
		}()
	}
	wg.Wait()

	snap, ok := v.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(80), snap.Seq)
}

func BenchmarkFrame(b *testing.B) {
	a, err := analysis.NewSpectrumAnalyzer(testTransformSize)
	if err != nil {
		b.Fatal(err)
	}
	v, err := New(a, DefaultSettings())
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	for b.Loop() {
		_, _ = v.Frame(testTone)
	}
}
