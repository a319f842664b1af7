package mvcc

import (
	"ember/internal/encoding"
	"ember/pkg/kverrors"
)

// KeyTag is the leading byte that partitions the MVCC key space. Encoding
// is order-preserving within a tag and groups every key sharing a tag
// contiguously, since the tag byte sorts before any of the variant's
// fields.
type KeyTag byte

const (
	TagTxnNext     KeyTag = 0x01
	TagTxnActive   KeyTag = 0x02
	TagTxnSnapshot KeyTag = 0x03
	TagTxnUpdate   KeyTag = 0x04
	TagMetadata    KeyTag = 0x05
	TagRecord      KeyTag = 0xff
)

// Key is the closed, six-variant tagged union of the MVCC key space. Only
// the fields relevant to Tag are meaningful; use the constructors below
// rather than building a Key literal directly.
type Key struct {
	Tag     KeyTag
	ID      uint64 // TxnActive, TxnSnapshot, TxnUpdate
	Name    []byte // TxnUpdate, Metadata, Record
	Version uint64 // Record
}

func KeyTxnNext() Key                       { return Key{Tag: TagTxnNext} }
func KeyTxnActive(id uint64) Key            { return Key{Tag: TagTxnActive, ID: id} }
func KeyTxnSnapshot(version uint64) Key     { return Key{Tag: TagTxnSnapshot, ID: version} }
func KeyTxnUpdate(id uint64, key []byte) Key {
	return Key{Tag: TagTxnUpdate, ID: id, Name: key}
}
func KeyMetadata(key []byte) Key { return Key{Tag: TagMetadata, Name: key} }
func KeyRecord(key []byte, version uint64) Key {
	return Key{Tag: TagRecord, Name: key, Version: version}
}

// Encode dispatches on k.Tag and emits the tag byte followed by the
// variant's fields in the order given by the key space table.
func Encode(k Key) []byte {
	buf := make([]byte, 0, 16)
	buf = append(buf, byte(k.Tag))
	switch k.Tag {
	case TagTxnNext:
		// singleton, no fields
	case TagTxnActive:
		buf = encoding.EncodeU64(buf, k.ID)
	case TagTxnSnapshot:
		buf = encoding.EncodeU64(buf, k.ID)
	case TagTxnUpdate:
		buf = encoding.EncodeU64(buf, k.ID)
		buf = encoding.EncodeBytes(buf, k.Name)
	case TagMetadata:
		buf = encoding.EncodeBytes(buf, k.Name)
	case TagRecord:
		buf = encoding.EncodeBytes(buf, k.Name)
		buf = encoding.EncodeU64(buf, k.Version)
	}
	return buf
}

// Decode reads a tag byte then the variant's fields, failing if any
// trailing bytes remain or the tag is unrecognized.
func Decode(b []byte) (Key, error) {
	tag, rest, err := encoding.TakeByte(b)
	if err != nil {
		return Key{}, err
	}
	switch KeyTag(tag) {
	case TagTxnNext:
		if len(rest) != 0 {
			return Key{}, kverrors.Internalf("unexpected data remaining at end of key")
		}
		return KeyTxnNext(), nil
	case TagTxnActive:
		id, rest, err := encoding.TakeU64(rest)
		if err != nil {
			return Key{}, err
		}
		if len(rest) != 0 {
			return Key{}, kverrors.Internalf("unexpected data remaining at end of key")
		}
		return KeyTxnActive(id), nil
	case TagTxnSnapshot:
		id, rest, err := encoding.TakeU64(rest)
		if err != nil {
			return Key{}, err
		}
		if len(rest) != 0 {
			return Key{}, kverrors.Internalf("unexpected data remaining at end of key")
		}
		return KeyTxnSnapshot(id), nil
	case TagTxnUpdate:
		id, rest, err := encoding.TakeU64(rest)
		if err != nil {
			return Key{}, err
		}
		name, rest, err := encoding.TakeBytes(rest)
		if err != nil {
			return Key{}, err
		}
		if len(rest) != 0 {
			return Key{}, kverrors.Internalf("unexpected data remaining at end of key")
		}
		return KeyTxnUpdate(id, name), nil
	case TagMetadata:
		name, rest, err := encoding.TakeBytes(rest)
		if err != nil {
			return Key{}, err
		}
		if len(rest) != 0 {
			return Key{}, kverrors.Internalf("unexpected data remaining at end of key")
		}
		return KeyMetadata(name), nil
	case TagRecord:
		name, rest, err := encoding.TakeBytes(rest)
		if err != nil {
			return Key{}, err
		}
		version, rest, err := encoding.TakeU64(rest)
		if err != nil {
			return Key{}, err
		}
		if len(rest) != 0 {
			return Key{}, kverrors.Internalf("unexpected data remaining at end of key")
		}
		return KeyRecord(name, version), nil
	default:
		return Key{}, kverrors.Internalf("unknown key tag 0x%02x", tag)
	}
}
