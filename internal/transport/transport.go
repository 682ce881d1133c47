// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"time"

	"spectrum/internal/visualizer"
)

// ErrClosed is returned by Send on a closed transport.
var ErrClosed = errors.New("transport: closed")

// Transport defines a generic interface for sending processed data or events.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// FrameType tags spectrum frames on the wire.
const FrameType = "spectrum"

// Frame is the message published for each display frame.
type Frame struct {
	Type      string    `json:"type"`
	Seq       uint64    `json:"seq"`
	Timestamp int64     `json:"timestamp"` // Unix milliseconds.
	Mode      string    `json:"mode"`
	Bins      []float64 `json:"bins"`

	Time time.Time `json:"-"`
}

// NewFrame wraps a visualizer snapshot for publishing.
func NewFrame(s visualizer.Snapshot) Frame {
	return Frame{
		Type:      FrameType,
		Seq:       s.Seq,
		Timestamp: s.Timestamp.UnixMilli(),
		Mode:      string(s.Mode),
		Bins:      s.Bins,
		Time:      s.Timestamp,
	}
}

// FrameSource provides the frames publishers push to clients.
// *visualizer.Visualizer implements it.
type FrameSource interface {
	Latest() (visualizer.Snapshot, bool)
	Tween(factor float64) (visualizer.Snapshot, bool)
}

var _ FrameSource = (*visualizer.Visualizer)(nil)
