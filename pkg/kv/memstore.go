package kv

import (
	"bytes"
	"sync"

	"github.com/tidwall/btree"
)

type item struct {
	key   []byte
	value []byte
}

func itemLess(a, b item) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// MemStore is an in-memory Store backed by an ordered B-tree, guarded by a
// single mutex per the "wrapped in a single mutual-exclusion primitive"
// requirement: every Get/Set/Delete/Scan/Flush holds the lock for the
// whole call.
type MemStore struct {
	mu   sync.Mutex
	tree *btree.BTreeG[item]
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{tree: btree.NewBTreeG(itemLess)}
}

func (m *MemStore) Get(key []byte) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(key)
}

func (m *MemStore) getLocked(key []byte) ([]byte, bool, error) {
	v, ok := m.tree.Get(item{key: key})
	if !ok {
		return nil, false, nil
	}
	return v.value, true, nil
}

func (m *MemStore) Set(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setLocked(key, value)
}

func (m *MemStore) setLocked(key, value []byte) error {
	k := append([]byte(nil), key...)
	v := append([]byte(nil), value...)
	m.tree.Set(item{key: k, value: v})
	return nil
}

func (m *MemStore) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteLocked(key)
}

func (m *MemStore) deleteLocked(key []byte) error {
	m.tree.Delete(item{key: key})
	return nil
}

func (m *MemStore) Scan(r Range) (Iterator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scanLocked(r)
}

func (m *MemStore) scanLocked(r Range) (Iterator, error) {
	var entries []Entry
	pivot := item{key: r.Start}
	m.tree.Ascend(pivot, func(it item) bool {
		if r.End != nil && bytes.Compare(it.key, r.End) >= 0 {
			return false
		}
		entries = append(entries, Entry{Key: it.key, Value: it.value})
		return true
	})
	return &sliceIterator{entries: entries, idx: -1}, nil
}

func (m *MemStore) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return nil
}

// Atomic runs fn with the store lock held for the whole call, passing a
// View whose Get/Set/Delete/Scan do not attempt to re-acquire the lock.
// This is what lets Snapshot capture hold the lock "across the scan and
// the subsequent set".
func (m *MemStore) Atomic(fn func(v View) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(unlockedView{m})
}

// View is the lock-free subset of Store exposed inside Atomic.
type View interface {
	Get(key []byte) ([]byte, bool, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Scan(r Range) (Iterator, error)
}

type unlockedView struct{ m *MemStore }

func (v unlockedView) Get(key []byte) ([]byte, bool, error) { return v.m.getLocked(key) }
func (v unlockedView) Set(key, value []byte) error          { return v.m.setLocked(key, value) }
func (v unlockedView) Delete(key []byte) error               { return v.m.deleteLocked(key) }
func (v unlockedView) Scan(r Range) (Iterator, error)         { return v.m.scanLocked(r) }

type sliceIterator struct {
	entries []Entry
	idx     int
}

func (s *sliceIterator) Next() bool {
	s.idx++
	return s.idx < len(s.entries)
}

func (s *sliceIterator) Entry() Entry {
	return s.entries[s.idx]
}
