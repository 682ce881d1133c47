// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"
	"sync"
	"time"

	applog "spectrum/internal/log"
)

// Streamer periodically pulls the latest frame from a FrameSource and
// sends it through a Transport. It runs in a separate goroutine managed by
// Start and Stop.
type Streamer struct {
	source    FrameSource
	transport Transport
	interval  time.Duration
	tween     float64 // 1 sends frames as produced; below 1 interpolates each tick.

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.

	lastSeq uint64
	sent    uint64
}

// NewStreamer creates a Streamer. If interval is not positive it defaults to
// 16ms (~60Hz). tween must be within (0, 1].
func NewStreamer(source FrameSource, t Transport, interval time.Duration, tween float64) (*Streamer, error) {
	if source == nil {
		return nil, fmt.Errorf("Streamer: frame source cannot be nil")
	}
	if t == nil {
		return nil, fmt.Errorf("Streamer: transport cannot be nil")
	}
	if !(tween > 0 && tween <= 1) {
		return nil, fmt.Errorf("Streamer: tween factor must be within (0, 1], got %g", tween)
	}
	if interval <= 0 {
		interval = 16 * time.Millisecond
		applog.Warnf("Streamer: Invalid interval provided, defaulting to %s", interval)
	}

	return &Streamer{
		source:    source,
		transport: t,
		interval:  interval,
		tween:     tween,
	}, nil
}

// Start begins the periodic publishing process. Subsequent calls are no-ops
// while running.
func (s *Streamer) Start() {
	s.mu.Lock()
	if s.ticker != nil {
		s.mu.Unlock()
		applog.Warnf("Streamer: Start called but already running.")
		return
	}

	s.ticker = time.NewTicker(s.interval)
	s.doneChan = make(chan struct{})
	s.stopOnce = sync.Once{}

	ticker := s.ticker
	doneChan := s.doneChan
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		applog.Debugf("Streamer: started (Interval: %s, Tween: %g)", s.interval, s.tween)
		for {
			select {
			case <-ticker.C:
				s.publish()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publishing goroutine to terminate and waits for it.
// It is safe to call Stop multiple times.
func (s *Streamer) Stop() error {
	s.mu.Lock()
	if s.ticker == nil {
		s.mu.Unlock()
		return nil
	}

	s.stopOnce.Do(func() {
		close(s.doneChan)
		s.ticker.Stop()
		s.ticker = nil
	})
	s.mu.Unlock()

	s.wg.Wait()
	applog.Debugf("Streamer: stopped after %d frames", s.sent)
	return nil
}

// Close stops the streamer. The transport is left open for its owner.
func (s *Streamer) Close() error {
	return s.Stop()
}

// publish sends one frame and reports whether anything was sent. Without
// interpolation a frame is sent only once.
func (s *Streamer) publish() bool {
	snap, ok := s.source.Latest()
	if !ok {
		return false
	}
	if s.tween < 1 {
		snap, ok = s.source.Tween(s.tween)
		if !ok {
			return false
		}
	} else if snap.Seq == s.lastSeq {
		return false
	}
	s.lastSeq = snap.Seq

	if err := s.transport.Send(NewFrame(snap)); err != nil {
		applog.Warnf("Streamer: send failed: %v", err)
		return false
	}
	s.sent++
	return true
}
