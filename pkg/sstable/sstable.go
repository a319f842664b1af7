// pkg/sstable/sstable.go
package sstable

import (
	"bytes"
	"encoding/binary"

	"ember/internal/elog"
	"ember/pkg/kverrors"
)

// BlockMeta is the (offset, first_key) pair located in the SST trailer; a
// sorted array of these is the in-memory index.
//
//	meta_entry = offset(u32 BE) | first_key_len(u16 BE) | first_key(bytes)
type BlockMeta struct {
	Offset   uint32
	FirstKey []byte
}

func encodeBlockMetas(metas []BlockMeta) []byte {
	var buf []byte
	for _, m := range metas {
		var offBuf [4]byte
		binary.BigEndian.PutUint32(offBuf[:], m.Offset)
		buf = append(buf, offBuf[:]...)
		buf = appendU16(buf, uint16(len(m.FirstKey)))
		buf = append(buf, m.FirstKey...)
	}
	return buf
}

func decodeBlockMetas(raw []byte) ([]BlockMeta, error) {
	var metas []BlockMeta
	for len(raw) > 0 {
		if len(raw) < 6 {
			return nil, kverrors.Internalf("truncated block meta entry")
		}
		offset := binary.BigEndian.Uint32(raw)
		firstKeyLen := int(binary.BigEndian.Uint16(raw[4:]))
		if len(raw) < 6+firstKeyLen {
			return nil, kverrors.Internalf("truncated block meta first_key")
		}
		firstKey := append([]byte(nil), raw[6:6+firstKeyLen]...)
		metas = append(metas, BlockMeta{Offset: offset, FirstKey: firstKey})
		raw = raw[6+firstKeyLen:]
	}
	return metas, nil
}

// SsTable is an opened, immutable sorted-string table: a sequence of data
// blocks followed by a meta block and a trailing meta-offset footer.
type SsTable struct {
	ID              uint64
	file            *FileObject
	blockMetas      []BlockMeta
	blockMetaOffset uint32
	cache           *BlockCache
}

// OpenSsTable opens an existing SST file: reads the trailing u32 meta
// offset, reads and decodes the meta block, and returns the descriptor.
func OpenSsTable(id uint64, cache *BlockCache, file *FileObject) (*SsTable, error) {
	size := file.Size()
	if size < 4 {
		return nil, kverrors.Internalf("sst file too short to contain a footer")
	}
	var footer [4]byte
	if err := file.Read(size-4, footer[:]); err != nil {
		return nil, err
	}
	blockMetaOffset := binary.BigEndian.Uint32(footer[:])

	metaLen := size - 4 - int64(blockMetaOffset)
	if metaLen < 0 {
		return nil, kverrors.Internalf("invalid block meta offset %d in file of size %d", blockMetaOffset, size)
	}
	metaBytes := make([]byte, metaLen)
	if metaLen > 0 {
		if err := file.Read(int64(blockMetaOffset), metaBytes); err != nil {
			return nil, err
		}
	}
	metas, err := decodeBlockMetas(metaBytes)
	if err != nil {
		return nil, err
	}
	elog.Debug("sst opened", "id", id, "blocks", len(metas))

	return &SsTable{
		ID:              id,
		file:            file,
		blockMetas:      metas,
		blockMetaOffset: blockMetaOffset,
		cache:           cache,
	}, nil
}

// NumOfBlocks returns the number of data blocks in the table.
func (s *SsTable) NumOfBlocks() int { return len(s.blockMetas) }

// BlockMetas exposes the parsed trailer, primarily for round-trip tests.
func (s *SsTable) BlockMetas() []BlockMeta { return s.blockMetas }

func (s *SsTable) blockRange(idx int) (start, end uint32) {
	start = s.blockMetas[idx].Offset
	if idx+1 < len(s.blockMetas) {
		end = s.blockMetas[idx+1].Offset
	} else {
		end = s.blockMetaOffset
	}
	return start, end
}

// ReadBlock reads and decodes block idx directly from the file, bypassing
// any cache.
func (s *SsTable) ReadBlock(idx int) (*Block, error) {
	if idx < 0 || idx >= len(s.blockMetas) {
		return nil, kverrors.Internalf("block index %d out of range [0,%d)", idx, len(s.blockMetas))
	}
	start, end := s.blockRange(idx)
	buf := make([]byte, end-start)
	if err := s.file.Read(int64(start), buf); err != nil {
		return nil, err
	}
	return DecodeBlock(buf)
}

// ReadBlockCached consults the cache, if present, before falling back to
// ReadBlock. Cache backend failures are surfaced as Internal.
func (s *SsTable) ReadBlockCached(idx int) (*Block, error) {
	if s.cache == nil {
		return s.ReadBlock(idx)
	}
	return s.cache.GetOrLoad(s.ID, idx, func() (*Block, error) {
		return s.ReadBlock(idx)
	})
}

// FrontFindBlockIdx returns the index of the rightmost block whose
// first_key <= key, or -1 if none: partition_point(first_key <= key) - 1.
func (s *SsTable) FrontFindBlockIdx(key []byte) int {
	idx := sortSearch(len(s.blockMetas), func(i int) bool {
		return bytes.Compare(s.blockMetas[i].FirstKey, key) > 0
	})
	return idx - 1
}

// BackFindBlockIdx returns partition_point(first_key < key): the number
// of blocks whose first key is strictly less than key.
func (s *SsTable) BackFindBlockIdx(key []byte) int {
	return sortSearch(len(s.blockMetas), func(i int) bool {
		return bytes.Compare(s.blockMetas[i].FirstKey, key) >= 0
	})
}

func (s *SsTable) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}

// SsTableBuilder streams key/value pairs, partitioning them into
// fixed-size blocks and accumulating the trailer as it goes.
type SsTableBuilder struct {
	meta             []BlockMeta
	data             []byte
	curBlockFirstKey []byte
	builder          *blockBuilder
	blockSize        int
}

// NewSsTableBuilder returns a builder targeting blockSize-byte blocks.
func NewSsTableBuilder(blockSize int) *SsTableBuilder {
	return &SsTableBuilder{
		builder:   newBlockBuilder(blockSize),
		blockSize: blockSize,
	}
}

// Add inserts (key, value). Keys must be passed in non-decreasing order;
// the builder does not sort.
func (b *SsTableBuilder) Add(key, value []byte) error {
	if b.curBlockFirstKey == nil {
		b.curBlockFirstKey = append([]byte(nil), key...)
	}
	if b.builder.add(key, value) {
		return nil
	}

	b.finalizeBlock()
	b.builder = newBlockBuilder(b.blockSize)
	b.curBlockFirstKey = append([]byte(nil), key...)
	if !b.builder.add(key, value) {
		return kverrors.Internalf("a single key/value pair must fit in an empty block")
	}
	return nil
}

func (b *SsTableBuilder) finalizeBlock() {
	if b.builder.isEmpty() {
		return
	}
	encoded := b.builder.build().Encode()
	b.meta = append(b.meta, BlockMeta{
		Offset:   uint32(len(b.data)),
		FirstKey: b.curBlockFirstKey,
	})
	b.data = append(b.data, encoded...)
	b.builder = newBlockBuilder(b.blockSize)
	b.curBlockFirstKey = nil
}

// EstimatedSize returns the length of the accumulated data buffer, not
// counting the meta block.
func (b *SsTableBuilder) EstimatedSize() int { return len(b.data) }

// Build finalizes any residual block, appends the meta block and its u32
// BE offset trailer, writes the file, and constructs the SsTable
// descriptor directly from in-memory state rather than re-parsing it.
func (b *SsTableBuilder) Build(id uint64, cache *BlockCache, path string) (*SsTable, error) {
	b.finalizeBlock()

	blockMetaOffset := uint32(len(b.data))
	finalData := append(append([]byte(nil), b.data...), encodeBlockMetas(b.meta)...)
	var footer [4]byte
	binary.BigEndian.PutUint32(footer[:], blockMetaOffset)
	finalData = append(finalData, footer[:]...)

	file, err := CreateFileObject(path, finalData)
	if err != nil {
		return nil, err
	}
	elog.Debug("sst built", "id", id, "blocks", len(b.meta), "bytes", len(finalData))

	return &SsTable{
		ID:              id,
		file:            file,
		blockMetas:      b.meta,
		blockMetaOffset: blockMetaOffset,
		cache:           cache,
	}, nil
}
