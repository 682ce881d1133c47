// SPDX-License-Identifier: MIT
package transport

import (
	"slices"
	"sync"
)

// MemoryTransport keeps every message it is sent. Frames are stored with
// their own copy of the bins.
type MemoryTransport struct {
	mu     sync.Mutex
	sent   []any
	closed bool
}

// NewMemoryTransport creates an empty MemoryTransport.
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{}
}

// Send stores the data for later inspection instead of transmitting.
func (m *MemoryTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if f, ok := data.(Frame); ok {
		f.Bins = slices.Clone(f.Bins)
		data = f
	}
	m.sent = append(m.sent, data)
	return nil
}

// Sent returns the messages received so far.
func (m *MemoryTransport) Sent() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.sent)
}

// Frames returns the received messages that are frames.
func (m *MemoryTransport) Frames() []Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	var frames []Frame
	for _, d := range m.sent {
		if f, ok := d.(Frame); ok {
			frames = append(frames, f)
		}
	}
	return frames
}

// Len returns the number of messages received.
func (m *MemoryTransport) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// Close makes further sends fail with ErrClosed.
func (m *MemoryTransport) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

var _ Transport = (*MemoryTransport)(nil)
