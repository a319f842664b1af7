// pkg/sstable/iterator.go
package sstable

import (
	"ember/pkg/kv"
)

// cursor pairs a block index with the block iterator positioned inside
// it. A nil cursor means "unset": the corresponding end of the range
// hasn't been touched yet.
type cursor struct {
	blockIdx int
	iter     *blockIterator
}

// Iterator is the range-bounded, double-ended cursor over an SsTable.
// Either end may be unset, meaning "start at the natural end" on first
// use.
type Iterator struct {
	table *SsTable
	front *cursor
	back  *cursor
}

// New returns an iterator with both cursors unset: the whole table is
// available, front-to-back and back-to-front.
func New(table *SsTable) *Iterator {
	return &Iterator{table: table}
}

// Create seeks each bound of r that is non-nil, leaving the corresponding
// side unset when the bound is unbounded.
func Create(table *SsTable, r kv.Range) (*Iterator, error) {
	it := New(table)
	if r.Start != nil {
		if err := it.frontSeekToKey(r.Start, true); err != nil {
			return nil, err
		}
	}
	if r.End != nil {
		if err := it.backSeekToKey(r.End, false); err != nil {
			return nil, err
		}
	}
	return it, nil
}

// CreateAndSeekToKey builds an iterator with only the front cursor
// positioned, per create_and_seek_to_key.
func CreateAndSeekToKey(table *SsTable, key []byte, inclusive bool) (*Iterator, error) {
	it := New(table)
	if err := it.frontSeekToKey(key, inclusive); err != nil {
		return nil, err
	}
	return it, nil
}

// CreateAndBackSeekToKey builds an iterator with only the back cursor
// positioned, per create_and_back_seek_to_key.
func CreateAndBackSeekToKey(table *SsTable, key []byte, inclusive bool) (*Iterator, error) {
	it := New(table)
	if err := it.backSeekToKey(key, inclusive); err != nil {
		return nil, err
	}
	return it, nil
}

// FrontSeekToKey repositions the front cursor so the next Next call
// yields the first entry >= key (inclusive) or > key (exclusive). It can
// be called on an already-constructed iterator to re-seek it.
func (it *Iterator) FrontSeekToKey(key []byte, inclusive bool) error {
	return it.frontSeekToKey(key, inclusive)
}

// BackSeekToKey repositions the back cursor so the next NextBack call
// yields the last entry <= key (inclusive) or < key (exclusive).
func (it *Iterator) BackSeekToKey(key []byte, inclusive bool) error {
	return it.backSeekToKey(key, inclusive)
}

// frontSeekToKey positions the front cursor so the next try_next yields
// the first entry >= key (inclusive) or > key (exclusive).
func (it *Iterator) frontSeekToKey(key []byte, inclusive bool) error {
	idx := it.table.FrontFindBlockIdx(key)
	if idx < 0 {
		idx = 0
	}
	for idx < it.table.NumOfBlocks() {
		blk, err := it.table.ReadBlockCached(idx)
		if err != nil {
			return err
		}
		bi := newBlockIteratorSeekedToKey(blk, key, inclusive)
		if bi.isValid() {
			it.front = &cursor{blockIdx: idx, iter: bi}
			return nil
		}
		idx++
	}
	// No entry >= (or >) key anywhere in range: leave the front cursor
	// positioned at the end so is_valid reports false against any back
	// cursor.
	it.front = &cursor{blockIdx: it.table.NumOfBlocks(), iter: nil}
	return nil
}

// backSeekToKey mirrors frontSeekToKey from the back.
func (it *Iterator) backSeekToKey(key []byte, inclusive bool) error {
	idx := it.table.BackFindBlockIdx(key)
	if idx >= it.table.NumOfBlocks() {
		idx = it.table.NumOfBlocks() - 1
	}
	for idx >= 0 {
		blk, err := it.table.ReadBlockCached(idx)
		if err != nil {
			return err
		}
		bi := newBlockIteratorBackSeekedToKey(blk, key, inclusive)
		if bi.isValid() {
			it.back = &cursor{blockIdx: idx, iter: bi}
			return nil
		}
		idx--
	}
	it.back = &cursor{blockIdx: -1, iter: nil}
	return nil
}

// IsValid implements the forward/backward crossing predicate: the most
// delicate invariant in the iterator. It must be evaluated exactly as
// stated or alternating Next/NextBack calls can emit the same entry twice.
func (it *Iterator) IsValid() bool {
	switch {
	case it.front == nil && it.back == nil:
		return true
	case it.front != nil && it.back == nil:
		last := it.table.NumOfBlocks() - 1
		if it.front.blockIdx < last {
			return true
		}
		if it.front.blockIdx == last && it.front.iter != nil {
			return it.front.iter.isValid()
		}
		return false
	case it.front == nil && it.back != nil:
		if it.back.blockIdx > 0 {
			return true
		}
		if it.back.blockIdx == 0 && it.back.iter != nil {
			return it.back.iter.isValid()
		}
		return false
	default:
		f, b := it.front, it.back
		switch {
		case f.blockIdx > b.blockIdx:
			return false
		case f.blockIdx < b.blockIdx:
			if f.blockIdx+1 < b.blockIdx {
				return true
			}
			frontRoom := f.iter == nil || f.iter.isValid()
			backRoom := b.iter == nil || b.iter.isValid()
			return frontRoom || backRoom
		default: // f.blockIdx == b.blockIdx
			if f.iter == nil || b.iter == nil {
				return false
			}
			return f.iter.frontIndex+1 < b.iter.backIndex
		}
	}
}

// Next advances the front cursor and returns the next entry in ascending
// order, or ok=false once the iterator is no longer valid.
func (it *Iterator) Next() (kv.Entry, bool, error) {
	if !it.IsValid() {
		return kv.Entry{}, false, nil
	}
	if it.front == nil {
		blk, err := it.table.ReadBlockCached(0)
		if err != nil {
			return kv.Entry{}, false, err
		}
		it.front = &cursor{blockIdx: 0, iter: newBlockIterator(blk)}
	}

	for {
		if e, ok := it.front.iter.next(); ok {
			return kv.Entry{Key: e.key, Value: e.value}, true, nil
		}
		it.front.blockIdx++
		if it.front.blockIdx >= it.table.NumOfBlocks() {
			it.front.iter = nil
			return kv.Entry{}, false, nil
		}
		blk, err := it.table.ReadBlockCached(it.front.blockIdx)
		if err != nil {
			return kv.Entry{}, false, err
		}
		it.front.iter = newBlockIterator(blk)
	}
}

// NextBack mirrors Next from the back, yielding entries in descending
// order.
func (it *Iterator) NextBack() (kv.Entry, bool, error) {
	if !it.IsValid() {
		return kv.Entry{}, false, nil
	}
	if it.back == nil {
		last := it.table.NumOfBlocks() - 1
		blk, err := it.table.ReadBlockCached(last)
		if err != nil {
			return kv.Entry{}, false, err
		}
		it.back = &cursor{blockIdx: last, iter: newBlockIterator(blk)}
	}

	for {
		if e, ok := it.back.iter.nextBack(); ok {
			return kv.Entry{Key: e.key, Value: e.value}, true, nil
		}
		it.back.blockIdx--
		if it.back.blockIdx < 0 {
			it.back.iter = nil
			return kv.Entry{}, false, nil
		}
		blk, err := it.table.ReadBlockCached(it.back.blockIdx)
		if err != nil {
			return kv.Entry{}, false, err
		}
		it.back.iter = newBlockIterator(blk)
	}
}

// Collect drains the iterator front-to-back into a slice. Used by tests
// and callers that want the full, already-bounded result set.
func (it *Iterator) Collect() ([]kv.Entry, error) {
	var out []kv.Entry
	for it.IsValid() {
		e, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		out = append(out, e)
	}
	return out, nil
}
