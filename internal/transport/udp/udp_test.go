// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"net"
	"testing"
	"time"

	"spectrum/internal/transport"
	"spectrum/internal/visualizer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSource struct {
	snap visualizer.Snapshot
}

func (s *fixedSource) Latest() (visualizer.Snapshot, bool) { return s.snap, s.snap.Seq > 0 }

func (s *fixedSource) Tween(float64) (visualizer.Snapshot, bool) { return s.Latest() }

func listenUDP(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readPacket(t *testing.T, conn *net.UDPConn) Packet {
	t.Helper()
	buf := make([]byte, 65536)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, _, err := conn.ReadFromUDP(buf)
	require.NoError(t, err)
	p, err := DecodePacket(buf[:n])
	require.NoError(t, err)
	return p
}

func TestPacketRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, appendPacket(&buf, 42, 1234567890, []float32{0, 0.5, 1}))
	assert.Equal(t, HeaderSize+12, buf.Len())

	// Sequence number leads, big-endian.
	assert.Equal(t, []byte{0, 0, 0, 42}, buf.Bytes()[:4])

	p, err := DecodePacket(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint32(42), p.Seq)
	assert.Equal(t, int64(1234567890), p.Timestamp)
	assert.Equal(t, []float32{0, 0.5, 1}, p.Bins)
}

func TestDecodePacketShort(t *testing.T) {
	_, err := DecodePacket(make([]byte, HeaderSize-1))
	assert.ErrorIs(t, err, ErrShortPacket)

	var buf bytes.Buffer
	require.NoError(t, appendPacket(&buf, 1, 0, []float32{1, 2}))
	_, err = DecodePacket(buf.Bytes()[:buf.Len()-1])
	assert.ErrorIs(t, err, ErrShortPacket)
}

func TestSender(t *testing.T) {
	_, err := NewSender("not an address")
	assert.Error(t, err)

	listener := listenUDP(t)
	s, err := NewSender(listener.LocalAddr().String())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, appendPacket(&buf, 1, 2, []float32{3}))
	require.NoError(t, s.Send(buf.Bytes()))
	assert.Equal(t, []float32{3}, readPacket(t, listener).Bins)

	require.NoError(t, s.Close())
	assert.NoError(t, s.Close())
	assert.Error(t, s.Send([]byte{1}))
}

func TestPublisher(t *testing.T) {
	listener := listenUDP(t)
	sender, err := NewSender(listener.LocalAddr().String())
	require.NoError(t, err)
	t.Cleanup(func() { sender.Close() })

	_, err = NewPublisher(time.Millisecond, nil, &fixedSource{})
	assert.Error(t, err)
	_, err = NewPublisher(time.Millisecond, sender, nil)
	assert.Error(t, err)

	ts := time.Unix(1700000000, 5)
	src := &fixedSource{snap: visualizer.Snapshot{
		Seq:       9,
		Mode:      visualizer.ModeParticles,
		Timestamp: ts,
		Bins:      []float64{0.25, 0.5, 0.75},
	}}
	p, err := NewPublisher(time.Millisecond, sender, src)
	require.NoError(t, err)

	p.Start()
	pkt := readPacket(t, listener)
	require.NoError(t, p.Stop())

	assert.Equal(t, uint32(1), pkt.Seq)
	assert.Equal(t, ts.UnixNano(), pkt.Timestamp)
	assert.Equal(t, []float32{0.25, 0.5, 0.75}, pkt.Bins)
	assert.Equal(t, uint32(1), p.Sent(), "an unchanged frame is sent once")
}

func TestPacketTransportRejectsOtherTypes(t *testing.T) {
	listener := listenUDP(t)
	sender, err := NewSender(listener.LocalAddr().String())
	require.NoError(t, err)

	pt := &packetTransport{sender: sender, buf: new(bytes.Buffer)}
	assert.Error(t, pt.Send("text"))
	require.NoError(t, pt.Send(transport.Frame{Bins: []float64{1}}))
	assert.Equal(t, uint32(1), readPacket(t, listener).Seq)
	assert.NoError(t, pt.Close())
}
