// pkg/sstable/block.go
package sstable

import (
	"encoding/binary"

	"ember/pkg/kverrors"
)

// Block is a bounded-size chunk of sorted key/value entries, the unit of
// disk read and cache. Its encoding is internal to this package: a data
// block is an opaque sorted container to everything above it.
//
//	block := entry_0 | entry_1 | ... | entry_{k-1} | offset_0 | ... | offset_{k-1} | num_entries (u16 BE)
//	entry := key_len (u16 BE) | key | value_len (u16 BE) | value
//	offset_i := u16 BE, byte offset of entry_i from the start of the block
type Block struct {
	entries []blockEntry
}

type blockEntry struct {
	key   []byte
	value []byte
}

// Encode serializes b into the on-disk block format.
func (b *Block) Encode() []byte {
	var data []byte
	offsets := make([]uint16, len(b.entries))
	for i, e := range b.entries {
		offsets[i] = uint16(len(data))
		data = appendU16(data, uint16(len(e.key)))
		data = append(data, e.key...)
		data = appendU16(data, uint16(len(e.value)))
		data = append(data, e.value...)
	}
	for _, off := range offsets {
		data = appendU16(data, off)
	}
	data = appendU16(data, uint16(len(offsets)))
	return data
}

// DecodeBlock parses the on-disk block format produced by Encode.
func DecodeBlock(raw []byte) (*Block, error) {
	if len(raw) < 2 {
		return nil, kverrors.Internalf("block too short to contain entry count")
	}
	numEntries := int(binary.BigEndian.Uint16(raw[len(raw)-2:]))
	offsetsStart := len(raw) - 2 - numEntries*2
	if offsetsStart < 0 {
		return nil, kverrors.Internalf("block too short for %d offsets", numEntries)
	}
	offsets := make([]uint16, numEntries)
	for i := 0; i < numEntries; i++ {
		offsets[i] = binary.BigEndian.Uint16(raw[offsetsStart+i*2:])
	}

	entries := make([]blockEntry, numEntries)
	for i, off := range offsets {
		end := offsetsStart
		if i+1 < numEntries {
			end = int(offsets[i+1])
		}
		entry := raw[off:end]
		key, rest, err := takeLenPrefixed(entry)
		if err != nil {
			return nil, err
		}
		value, rest, err := takeLenPrefixed(rest)
		if err != nil {
			return nil, err
		}
		if len(rest) != 0 {
			return nil, kverrors.Internalf("unexpected trailing bytes in block entry %d", i)
		}
		entries[i] = blockEntry{key: key, value: value}
	}
	return &Block{entries: entries}, nil
}

func appendU16(dst []byte, v uint16) []byte {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	return append(dst, buf[:]...)
}

func takeLenPrefixed(b []byte) ([]byte, []byte, error) {
	if len(b) < 2 {
		return nil, nil, kverrors.Internalf("truncated length-prefixed field")
	}
	n := int(binary.BigEndian.Uint16(b))
	if len(b) < 2+n {
		return nil, nil, kverrors.Internalf("truncated length-prefixed field body")
	}
	return b[2 : 2+n], b[2+n:], nil
}
