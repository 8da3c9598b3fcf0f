// Package event defines the fixed-size causal event record and its total
// ordering.
//
// An Event is the atomic unit of sequenced data. It is a packed, fixed-width
// record designed for direct memory-mapped access: every field is copied by
// value, nothing is nullable, and all variable-length data lives outside the
// record in the journal's blob region, referenced by PayloadOffset.
//
// Wire layout (32 bytes, little-endian):
//
//	| Offset | Size | Field          |
//	|--------|------|----------------|
//	| 0      | 8    | lamport_ts     |
//	| 8      | 4    | node_id        |
//	| 12     | 2    | stream_id      |
//	| 14     | 2    | flags          |
//	| 16     | 8    | payload_offset |
//	| 24     | 4    | checksum       |
//	| 28     | 4    | reserved       |
//
// Events are totally ordered by the triple (lamport_ts, node_id, stream_id).
// PayloadOffset and Checksum carry no ordering semantics: two events with the
// same ordering key compare equal regardless of where their payloads live.
package event

import (
	"encoding/binary"
	"fmt"
)

// Size is the fixed width of an encoded Event in bytes.
const Size = 32

// Flag bits carried in the Flags field.
const (
	// FlagHasPayload marks an event whose payload region entry is non-empty.
	FlagHasPayload uint16 = 1 << 0

	// FlagSynthetic marks an event of simulated (non-network) origin.
	FlagSynthetic uint16 = 1 << 1

	// FlagCheckpoint marks a checkpoint event.
	FlagCheckpoint uint16 = 1 << 2
)

// Event is a sequenced causal event record.
type Event struct {
	// LamportTS is the logical clock value assigned at ingest. It is the
	// primary ordering key and is unique per accepted event on a writer.
	LamportTS uint64

	// NodeID identifies the originating source.
	NodeID uint32

	// StreamID identifies the logical stream the event belongs to.
	StreamID uint16

	// Flags is a bitfield of record metadata (FlagHasPayload etc).
	Flags uint16

	// PayloadOffset is the byte offset into the journal blob region where
	// the payload begins.
	PayloadOffset uint64

	// Checksum is the CRC32C of the payload bytes.
	Checksum uint32
}

// New constructs an Event with zero flags. Construction never fails; checksum
// validity against payload bytes is the ingest pipeline's responsibility.
func New(lamportTS uint64, nodeID uint32, streamID uint16, payloadOffset uint64, checksum uint32) Event {
	return Event{
		LamportTS:     lamportTS,
		NodeID:        nodeID,
		StreamID:      streamID,
		PayloadOffset: payloadOffset,
		Checksum:      checksum,
	}
}

// WithFlags constructs an Event with explicit flags.
func WithFlags(lamportTS uint64, nodeID uint32, streamID uint16, payloadOffset uint64, checksum uint32, flags uint16) Event {
	e := New(lamportTS, nodeID, streamID, payloadOffset, checksum)
	e.Flags = flags
	return e
}

// IsCheckpoint reports whether the checkpoint flag is set.
func (e Event) IsCheckpoint() bool {
	return e.Flags&FlagCheckpoint != 0
}

// HasPayload reports whether the payload-present flag is set.
func (e Event) HasPayload() bool {
	return e.Flags&FlagHasPayload != 0
}

// Marshal encodes the event into dst, which must be at least Size bytes.
func (e Event) Marshal(dst []byte) error {
	if len(dst) < Size {
		return fmt.Errorf("event: marshal buffer too small: %d < %d", len(dst), Size)
	}
	binary.LittleEndian.PutUint64(dst[0:8], e.LamportTS)
	binary.LittleEndian.PutUint32(dst[8:12], e.NodeID)
	binary.LittleEndian.PutUint16(dst[12:14], e.StreamID)
	binary.LittleEndian.PutUint16(dst[14:16], e.Flags)
	binary.LittleEndian.PutUint64(dst[16:24], e.PayloadOffset)
	binary.LittleEndian.PutUint32(dst[24:28], e.Checksum)
	binary.LittleEndian.PutUint32(dst[28:32], 0)
	return nil
}

// Unmarshal decodes an event from src, which must be at least Size bytes.
func Unmarshal(src []byte) (Event, error) {
	if len(src) < Size {
		return Event{}, fmt.Errorf("event: unmarshal buffer too small: %d < %d", len(src), Size)
	}
	return Event{
		LamportTS:     binary.LittleEndian.Uint64(src[0:8]),
		NodeID:        binary.LittleEndian.Uint32(src[8:12]),
		StreamID:      binary.LittleEndian.Uint16(src[12:14]),
		Flags:         binary.LittleEndian.Uint16(src[14:16]),
		PayloadOffset: binary.LittleEndian.Uint64(src[16:24]),
		Checksum:      binary.LittleEndian.Uint32(src[24:28]),
	}, nil
}

// Compare orders a and b by (LamportTS, NodeID, StreamID), lexicographic
// ascending. It returns -1, 0, or +1. Payload fields never participate.
func Compare(a, b Event) int {
	switch {
	case a.LamportTS < b.LamportTS:
		return -1
	case a.LamportTS > b.LamportTS:
		return 1
	}
	switch {
	case a.NodeID < b.NodeID:
		return -1
	case a.NodeID > b.NodeID:
		return 1
	}
	switch {
	case a.StreamID < b.StreamID:
		return -1
	case a.StreamID > b.StreamID:
		return 1
	}
	return 0
}

// Less reports whether a orders strictly before b.
func Less(a, b Event) bool {
	return Compare(a, b) < 0
}

// Equal reports whether a and b share the same ordering key.
func Equal(a, b Event) bool {
	return Compare(a, b) == 0
}
