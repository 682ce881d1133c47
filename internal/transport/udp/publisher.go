// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	applog "spectrum/internal/log"
	"spectrum/internal/transport"
)

// Publisher periodically takes the latest display frame from a
// transport.FrameSource, packs it into the binary packet format and sends it
// with a Sender. Frames already sent are not repeated.
type Publisher struct {
	streamer *transport.Streamer
	packets  *packetTransport
}

// NewPublisher creates a Publisher. If the provided interval is not positive
// it defaults to 16ms (~60Hz).
func NewPublisher(interval time.Duration, sender *Sender, source transport.FrameSource) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("Publisher: UDP sender cannot be nil")
	}
	pt := &packetTransport{sender: sender, buf: new(bytes.Buffer)}
	s, err := transport.NewStreamer(source, pt, interval, 1)
	if err != nil {
		return nil, fmt.Errorf("Publisher: %w", err)
	}
	applog.Infof("Publisher: Initializing (Interval: %s, Target: %s)", interval, sender.Target())
	return &Publisher{streamer: s, packets: pt}, nil
}

// Start begins the periodic publishing process.
func (p *Publisher) Start() { p.streamer.Start() }

// Stop terminates publishing and waits for the goroutine to exit. The
// sender stays open.
func (p *Publisher) Stop() error { return p.streamer.Stop() }

// Sent returns the number of packets sent.
func (p *Publisher) Sent() uint32 {
	p.packets.mu.Lock()
	defer p.packets.mu.Unlock()
	return p.packets.seq
}

// packetTransport adapts a Sender to transport.Transport for frames.
type packetTransport struct {
	sender *Sender

	mu  sync.Mutex
	seq uint32
	buf *bytes.Buffer
	f32 []float32
}

func (pt *packetTransport) Send(data any) error {
	frame, ok := data.(transport.Frame)
	if !ok {
		return fmt.Errorf("udp: cannot send %T", data)
	}

	pt.mu.Lock()
	defer pt.mu.Unlock()

	pt.f32 = pt.f32[:0]
	for _, v := range frame.Bins {
		pt.f32 = append(pt.f32, float32(v))
	}

	ts := frame.Time.UnixNano()
	if frame.Time.IsZero() {
		ts = time.Now().UnixNano()
	}
	if err := appendPacket(pt.buf, pt.seq+1, ts, pt.f32); err != nil {
		return err
	}
	if err := pt.sender.Send(pt.buf.Bytes()); err != nil {
		return err
	}
	pt.seq++
	return nil
}

func (pt *packetTransport) Close() error {
	return pt.sender.Close()
}
