// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

/*
UDP Packet Structure (BigEndian)

|<---- 4 Bytes ---->|<------ 8 Bytes ------>|<-- 2 Bytes -->|<----- N * 4 Bytes ----->|
+-------------------+-----------------------+---------------+-------------------------+
|  Sequence Number  |       Timestamp       |   Bin Count   |          Bins           |
|      (uint32)     |  (int64, Unix nanos)  |    (uint16)   |      (N * float32)      |
+-------------------+-----------------------+---------------+-------------------------+
*/

// HeaderSize is the number of bytes before the bins.
const HeaderSize = 4 + 8 + 2

// MaxBins is the largest bin count a packet can carry.
const MaxBins = math.MaxUint16

// ErrShortPacket is returned when a packet is smaller than its header claims.
var ErrShortPacket = errors.New("udp: short packet")

// Packet is a decoded spectrum datagram.
type Packet struct {
	Seq       uint32
	Timestamp int64
	Bins      []float32
}

type packetHeader struct {
	Seq       uint32
	Timestamp int64
	Count     uint16
}

// appendPacket encodes a packet into buf, which is reset first. Bins beyond
// MaxBins are not sent.
func appendPacket(buf *bytes.Buffer, seq uint32, timestamp int64, bins []float32) error {
	if len(bins) > MaxBins {
		bins = bins[:MaxBins]
	}
	buf.Reset()
	buf.Grow(HeaderSize + 4*len(bins))

	hdr := packetHeader{Seq: seq, Timestamp: timestamp, Count: uint16(len(bins))}
	if err := binary.Write(buf, binary.BigEndian, hdr); err != nil {
		return fmt.Errorf("udp: write header: %w", err)
	}
	if err := binary.Write(buf, binary.BigEndian, bins); err != nil {
		return fmt.Errorf("udp: write bins: %w", err)
	}
	return nil
}

// DecodePacket parses a datagram produced by Publisher.
func DecodePacket(data []byte) (Packet, error) {
	if len(data) < HeaderSize {
		return Packet{}, fmt.Errorf("%w: %d bytes, header needs %d", ErrShortPacket, len(data), HeaderSize)
	}
	var hdr packetHeader
	r := bytes.NewReader(data)
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return Packet{}, fmt.Errorf("udp: read header: %w", err)
	}
	if want := HeaderSize + 4*int(hdr.Count); len(data) < want {
		return Packet{}, fmt.Errorf("%w: %d bytes, %d bins need %d", ErrShortPacket, len(data), hdr.Count, want)
	}
	bins := make([]float32, hdr.Count)
	if err := binary.Read(r, binary.BigEndian, bins); err != nil {
		return Packet{}, fmt.Errorf("udp: read bins: %w", err)
	}
	return Packet{Seq: hdr.Seq, Timestamp: hdr.Timestamp, Bins: bins}, nil
}
