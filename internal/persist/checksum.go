package persist

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

var (
	ErrChecksum    = errors.New("persist: snapshot checksum mismatch")
	ErrBadEnvelope = errors.New("persist: not a snapshot envelope")
	ErrNoSnapshot  = errors.New("persist: no snapshot")
)

// Format tags the archive backend a snapshot payload was written with.
type Format uint8

const (
	FormatBinary Format = iota
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatBinary:
		return "binary"
	case FormatYAML:
		return "yaml"
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// ParseFormat maps a config value to a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "binary", "":
		return FormatBinary, nil
	case "yaml":
		return FormatYAML, nil
	}
	return 0, fmt.Errorf("unknown snapshot format %q", s)
}

// Snapshot is one saved scene.
type Snapshot struct {
	Scene   string
	Frame   uint64
	Format  Format
	Payload []byte
}

// Envelope layout: magic, version, format, frame (u64 LE), blake2b-256 of
// the payload, payload.
var envelopeMagic = [4]byte{'S', 'N', 'A', 'P'}

const (
	envelopeVersion = 1
	envelopeHeader  = 4 + 1 + 1 + 8 + blake2b.Size256
)

// Checksum returns the blake2b-256 sum of payload.
func Checksum(payload []byte) []byte {
	sum := blake2b.Sum256(payload)
	return sum[:]
}

// Seal wraps a snapshot payload in a checksummed envelope.
func Seal(s Snapshot) []byte {
	out := make([]byte, envelopeHeader, envelopeHeader+len(s.Payload))
	copy(out, envelopeMagic[:])
	out[4] = envelopeVersion
	out[5] = byte(s.Format)
	binary.LittleEndian.PutUint64(out[6:14], s.Frame)
	copy(out[14:envelopeHeader], Checksum(s.Payload))
	return append(out, s.Payload...)
}

// Open verifies an envelope and returns its snapshot. The checksum is
// checked before anything decodes the payload. Scene is left empty.
func Open(data []byte) (Snapshot, error) {
	if len(data) < envelopeHeader || !bytes.Equal(data[:4], envelopeMagic[:]) {
		return Snapshot{}, ErrBadEnvelope
	}
	if data[4] != envelopeVersion {
		return Snapshot{}, fmt.Errorf("envelope version %d: %w", data[4], ErrBadEnvelope)
	}
	payload := data[envelopeHeader:]
	if !bytes.Equal(data[14:envelopeHeader], Checksum(payload)) {
		return Snapshot{}, ErrChecksum
	}
	return Snapshot{
		Format:  Format(data[5]),
		Frame:   binary.LittleEndian.Uint64(data[6:14]),
		Payload: payload,
	}, nil
}
