package mvcc

import (
	"sort"

	"ember/internal/encoding"
	"ember/pkg/kverrors"
)

// This file implements the "metadata value encoding" from the external
// interfaces: a stable, length-framed binary encoding over the metadata
// domain (u64, Mode, set<u64>) such that deserialize(serialize(x)) == x.
// It reuses the same fixed-width/escaped primitives as the key codec
// rather than reaching for a general-purpose codec, following the same
// practice of hand-rolling length-prefixed binary records for
// storage-engine framing used elsewhere in this codebase.

// SerializeU64 encodes a bare uint64 value (used for TxnNext).
func SerializeU64(v uint64) []byte {
	return encoding.EncodeU64(nil, v)
}

// DeserializeU64 decodes a value produced by SerializeU64.
func DeserializeU64(b []byte) (uint64, error) {
	v, rest, err := encoding.TakeU64(b)
	if err != nil {
		return 0, kverrors.WrapSerialization("decoding u64 metadata value", err)
	}
	if len(rest) != 0 {
		return 0, kverrors.Internalf("unexpected data remaining at end of u64 value")
	}
	return v, nil
}

const (
	modeTagReadWrite byte = 0x01
	modeTagReadOnly  byte = 0x02
	modeTagSnapshot  byte = 0x03
)

// SerializeMode encodes a Mode value (used for TxnActive(id)'s value).
func SerializeMode(m Mode) []byte {
	switch m.Kind {
	case ReadWrite:
		return []byte{modeTagReadWrite}
	case ReadOnly:
		return []byte{modeTagReadOnly}
	case SnapshotMode:
		return encoding.EncodeU64([]byte{modeTagSnapshot}, m.Version)
	default:
		return []byte{modeTagReadWrite}
	}
}

// DeserializeMode decodes a value produced by SerializeMode.
func DeserializeMode(b []byte) (Mode, error) {
	if len(b) == 0 {
		return Mode{}, kverrors.WrapSerialization("decoding mode", kverrors.Internalf("empty mode value"))
	}
	switch b[0] {
	case modeTagReadWrite:
		if len(b) != 1 {
			return Mode{}, kverrors.Internalf("unexpected data remaining at end of mode value")
		}
		return NewReadWrite(), nil
	case modeTagReadOnly:
		if len(b) != 1 {
			return Mode{}, kverrors.Internalf("unexpected data remaining at end of mode value")
		}
		return NewReadOnly(), nil
	case modeTagSnapshot:
		version, rest, err := encoding.TakeU64(b[1:])
		if err != nil {
			return Mode{}, kverrors.WrapSerialization("decoding snapshot mode version", err)
		}
		if len(rest) != 0 {
			return Mode{}, kverrors.Internalf("unexpected data remaining at end of mode value")
		}
		return NewSnapshot(version), nil
	default:
		return Mode{}, kverrors.Internalf("unknown mode tag 0x%02x", b[0])
	}
}

// SerializeIDSet encodes a set of transaction ids (used for
// TxnSnapshot(version)'s invisible set) as a count-prefixed, sorted list
// of big-endian u64s so the same set always serializes to the same bytes.
func SerializeIDSet(ids map[uint64]struct{}) []byte {
	sorted := make([]uint64, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	buf := encoding.EncodeU64(nil, uint64(len(sorted)))
	for _, id := range sorted {
		buf = encoding.EncodeU64(buf, id)
	}
	return buf
}

// DeserializeIDSet decodes a value produced by SerializeIDSet.
func DeserializeIDSet(b []byte) (map[uint64]struct{}, error) {
	count, rest, err := encoding.TakeU64(b)
	if err != nil {
		return nil, kverrors.WrapSerialization("decoding id set count", err)
	}
	out := make(map[uint64]struct{}, count)
	for i := uint64(0); i < count; i++ {
		var id uint64
		id, rest, err = encoding.TakeU64(rest)
		if err != nil {
			return nil, kverrors.WrapSerialization("decoding id set member", err)
		}
		out[id] = struct{}{}
	}
	if len(rest) != 0 {
		return nil, kverrors.Internalf("unexpected data remaining at end of id set value")
	}
	return out, nil
}
