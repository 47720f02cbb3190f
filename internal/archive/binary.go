// Package archive persists component state described through reflection
// contexts. The binary form is a flat little-endian record stream with no
// embedded schema: the same Reflect body that wrote a component reads it
// back, field by field, in the same order. The structured form is a
// human-editable YAML tree keyed by component and field name.
package archive

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const DefaultChunkSize = 4096

var (
	// ErrArchiveTruncated is raised (as a panic) when a read needs more bytes
	// than remain. A truncated archive is not recoverable.
	ErrArchiveTruncated = errors.New("archive: truncated")
	ErrUnsupportedField = errors.New("archive: unsupported field type")
	ErrUnknownSystem    = errors.New("archive: unknown system")
	ErrReadOnly         = errors.New("archive: not a write archive")
)

// Archive is a growable byte buffer with an integer head. A write archive
// starts at chunkSize bytes and doubles, rounded up to whole chunks, when a
// write would overflow. The head is an offset, so growth never invalidates it.
type Archive struct {
	buf       []byte
	head      int
	writing   bool
	chunkSize int
}

// NewWriter returns an empty write archive.
func NewWriter(chunkSize int) *Archive {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Archive{
		buf:       make([]byte, chunkSize),
		writing:   true,
		chunkSize: chunkSize,
	}
}

// NewReader returns a read archive over data. data is not copied.
func NewReader(data []byte) *Archive {
	return &Archive{buf: data}
}

func (a *Archive) Writing() bool { return a.writing }

// Len returns the number of bytes written, or the size of a read archive.
func (a *Archive) Len() int {
	if a.writing {
		return a.head
	}
	return len(a.buf)
}

// Cap returns the current size of the backing buffer.
func (a *Archive) Cap() int { return len(a.buf) }

// Offset returns the head position.
func (a *Archive) Offset() int { return a.head }

// Remaining returns the unread bytes of a read archive.
func (a *Archive) Remaining() int {
	if a.writing {
		return 0
	}
	return len(a.buf) - a.head
}

// Bytes returns the written bytes. The slice aliases the archive.
func (a *Archive) Bytes() []byte {
	if a.writing {
		return a.buf[:a.head]
	}
	return a.buf
}

func (a *Archive) reserve(n int) []byte {
	if !a.writing {
		panic(ErrReadOnly)
	}
	need := a.head + n
	if need > len(a.buf) {
		size := max(len(a.buf), a.chunkSize)
		for size < need {
			size *= 2
		}
		if rem := size % a.chunkSize; rem != 0 {
			size += a.chunkSize - rem
		}
		grown := make([]byte, size)
		copy(grown, a.buf[:a.head])
		a.buf = grown
	}
	out := a.buf[a.head:need]
	a.head = need
	return out
}

func (a *Archive) take(n int) []byte {
	if a.writing {
		panic(fmt.Errorf("read from write archive: %w", ErrReadOnly))
	}
	if n < 0 || a.head+n > len(a.buf) {
		panic(fmt.Errorf("read %d bytes at offset %d of %d: %w", n, a.head, len(a.buf), ErrArchiveTruncated))
	}
	out := a.buf[a.head : a.head+n]
	a.head += n
	return out
}

// ── Writes ─────────────────────────────────────────────────────────

func (a *Archive) WriteBytes(b []byte) { copy(a.reserve(len(b)), b) }
func (a *Archive) WriteU8(v uint8)     { a.reserve(1)[0] = v }
func (a *Archive) WriteU16(v uint16)   { binary.LittleEndian.PutUint16(a.reserve(2), v) }
func (a *Archive) WriteU32(v uint32)   { binary.LittleEndian.PutUint32(a.reserve(4), v) }
func (a *Archive) WriteU64(v uint64)   { binary.LittleEndian.PutUint64(a.reserve(8), v) }
func (a *Archive) WriteF32(v float32)  { a.WriteU32(math.Float32bits(v)) }
func (a *Archive) WriteF64(v float64)  { a.WriteU64(math.Float64bits(v)) }

func (a *Archive) WriteBool(v bool) {
	if v {
		a.WriteU8(1)
		return
	}
	a.WriteU8(0)
}

// WriteString writes a u32 length prefix followed by the raw bytes.
func (a *Archive) WriteString(s string) {
	a.WriteU32(uint32(len(s)))
	copy(a.reserve(len(s)), s)
}

// WriteBlob writes a length-prefixed byte slice.
func (a *Archive) WriteBlob(b []byte) {
	a.WriteU32(uint32(len(b)))
	a.WriteBytes(b)
}

// ── Reads ──────────────────────────────────────────────────────────

func (a *Archive) ReadBytes(n int) []byte { return a.take(n) }
func (a *Archive) ReadU8() uint8          { return a.take(1)[0] }
func (a *Archive) ReadU16() uint16        { return binary.LittleEndian.Uint16(a.take(2)) }
func (a *Archive) ReadU32() uint32        { return binary.LittleEndian.Uint32(a.take(4)) }
func (a *Archive) ReadU64() uint64        { return binary.LittleEndian.Uint64(a.take(8)) }
func (a *Archive) ReadF32() float32       { return math.Float32frombits(a.ReadU32()) }
func (a *Archive) ReadF64() float64       { return math.Float64frombits(a.ReadU64()) }
func (a *Archive) ReadBool() bool         { return a.ReadU8() != 0 }

func (a *Archive) ReadString() string {
	n := a.ReadU32()
	return string(a.take(int(n)))
}

// ReadBlob reads a length-prefixed byte slice. The result aliases the archive.
func (a *Archive) ReadBlob() []byte {
	n := a.ReadU32()
	return a.take(int(n))
}
