package backends

import (
	"fmt"

	"github.com/gomlx/exceptions"
)

// Place where some memory lives.
type Place int

//go:generate go tool enumer -type Place -trimprefix=Place -transform=lower -output=gen_place_enumer.go buffer.go

const (
	// PlaceHost is host (CPU) memory, addressable by the network transport.
	PlaceHost Place = iota

	// PlaceDevice is accelerator memory. It is only addressable by the network transport if the
	// transport SupportsHMEM.
	PlaceDevice
)

// Memory is a region allocated by a Runtime (or registered by the user).
type Memory interface {
	// ID uniquely identifies the memory region, and is what is exchanged as an IPC handle.
	ID() string

	// Place where the memory lives.
	Place() Place

	// Size in bytes.
	Size() int

	// Bytes returns the host-mapped view of the memory.
	Bytes() []byte
}

// Buffer is a reference into some Memory at a byte offset. The zero value is the "no buffer"
// value (see IsValid), used as a no-op destination.
//
// Buffers are values: Add returns a new Buffer, the original is unchanged.
type Buffer struct {
	mem    Memory
	offset int
}

// NewBuffer returns a Buffer pointing to the start of mem.
func NewBuffer(mem Memory) Buffer {
	return Buffer{mem: mem}
}

// IsValid returns whether the buffer points to some memory.
func (b Buffer) IsValid() bool {
	return b.mem != nil
}

// Memory returns the memory region the buffer points into.
func (b Buffer) Memory() Memory {
	return b.mem
}

// Offset returns the byte offset of the buffer into its memory.
func (b Buffer) Offset() int {
	return b.offset
}

// Place of the underlying memory. It panics for an invalid buffer.
func (b Buffer) Place() Place {
	if b.mem == nil {
		exceptions.Panicf("Buffer.Place() called on an invalid (nil) buffer")
	}
	return b.mem.Place()
}

// Add returns a buffer offset by numBytes.
func (b Buffer) Add(numBytes int) Buffer {
	if b.mem == nil {
		exceptions.Panicf("Buffer.Add(%d) called on an invalid (nil) buffer", numBytes)
	}
	return Buffer{mem: b.mem, offset: b.offset + numBytes}
}

// Equal returns whether both buffers point to the same memory and offset.
func (b Buffer) Equal(other Buffer) bool {
	if b.mem == nil || other.mem == nil {
		return b.mem == nil && other.mem == nil
	}
	return b.mem.ID() == other.mem.ID() && b.offset == other.offset
}

// Bytes returns the numBytes bytes starting at the buffer's offset.
func (b Buffer) Bytes(numBytes int) []byte {
	if b.mem == nil {
		exceptions.Panicf("Buffer.Bytes(%d) called on an invalid (nil) buffer", numBytes)
	}
	data := b.mem.Bytes()
	if numBytes < 0 || b.offset+numBytes > len(data) {
		exceptions.Panicf("Buffer.Bytes(%d) at offset %d overflows memory %s of %d bytes",
			numBytes, b.offset, b.mem.ID(), len(data))
	}
	return data[b.offset : b.offset+numBytes]
}

// String implements fmt.Stringer.
func (b Buffer) String() string {
	if b.mem == nil {
		return "Buffer(nil)"
	}
	return fmt.Sprintf("Buffer(%s:%s+%d)", b.mem.Place(), b.mem.ID(), b.offset)
}

// CopyDirection of a copy entry.
type CopyDirection int

//go:generate go tool enumer -type CopyDirection -trimprefix=Copy -transform=lower -output=gen_copydirection_enumer.go buffer.go

const (
	CopyUndefined CopyDirection = iota
	CopyD2H
	CopyH2D
	CopyD2D
	CopyH2H
)

// CopyAttr are the attributes of a copy between buffers.
type CopyAttr struct {
	Direction CopyDirection

	// QueueIndex is a hint of which device copy queue to use, if the runtime has several.
	QueueIndex int
}

// NewCopyAttr returns the attributes for a copy in the given direction.
func NewCopyAttr(direction CopyDirection) CopyAttr {
	return CopyAttr{Direction: direction}
}
