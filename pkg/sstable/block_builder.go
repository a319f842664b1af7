// pkg/sstable/block_builder.go
package sstable

// blockBuilder accumulates entries for a single block, rejecting an Add
// once the encoded size would exceed the configured target. An empty
// builder must accept any single key/value pair regardless of size, so
// the SST builder's finalize-and-retry loop always terminates.
type blockBuilder struct {
	entries   []blockEntry
	size      int // encoded entry bytes: len(key)+len(value)+4 per entry; offsets and count are added by estimatedSize
	blockSize int
}

func newBlockBuilder(blockSize int) *blockBuilder {
	return &blockBuilder{blockSize: blockSize}
}

// estimatedSize returns entries-so-far plus the fixed 2-byte offset and
// 2-byte entry-count trailer this block will carry once encoded.
func (b *blockBuilder) estimatedSize() int {
	return b.size + len(b.entries)*2 + 2
}

// add attempts to add (key, value). It returns false if doing so would
// exceed blockSize and the builder is non-empty; an empty builder always
// accepts.
func (b *blockBuilder) add(key, value []byte) bool {
	entrySize := 4 + len(key) + len(value)
	if len(b.entries) > 0 && b.estimatedSize()+entrySize+2 > b.blockSize {
		return false
	}
	b.entries = append(b.entries, blockEntry{
		key:   append([]byte(nil), key...),
		value: append([]byte(nil), value...),
	})
	b.size += entrySize
	return true
}

func (b *blockBuilder) isEmpty() bool { return len(b.entries) == 0 }

func (b *blockBuilder) build() *Block {
	return &Block{entries: b.entries}
}
