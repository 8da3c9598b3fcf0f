package journal

import (
	"errors"
)

// Journal errors
var (
	// ErrJournalClosed is returned when operations are attempted on a closed journal.
	ErrJournalClosed = errors.New("journal is closed")

	// ErrGeometryMismatch is returned when an existing journal file's size is
	// inconsistent with the configured geometry. The journal refuses to open
	// rather than reinterpret the file.
	ErrGeometryMismatch = errors.New("journal file size inconsistent with configured geometry")

	// ErrSlotOutOfRange is returned for slot accesses past the index ring.
	ErrSlotOutOfRange = errors.New("slot index out of range")

	// ErrBlobOutOfRange is returned for blob reads outside the blob region.
	ErrBlobOutOfRange = errors.New("blob range outside blob region")

	// ErrBlobExhausted is returned when the blob region is full and the
	// configured policy refuses to wrap.
	ErrBlobExhausted = errors.New("blob region exhausted")

	// ErrBlobTooLarge is returned for payloads that can never fit the blob
	// region regardless of cursor position.
	ErrBlobTooLarge = errors.New("payload larger than blob region")

	// ErrReadOnly is returned for writes through a read-only mapping.
	ErrReadOnly = errors.New("journal opened read-only")
)
