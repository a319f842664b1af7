package sstable

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"

	"ember/pkg/kv"
)

func keyOf(idx int) string   { return fmt.Sprintf("key_%03d", idx*5) }
func valueOf(idx int) string { return fmt.Sprintf("value_%010d", idx) }

const numKeys = 100

func generateSst(t *testing.T, dir string) *SsTable {
	t.Helper()
	b := NewSsTableBuilder(128)
	for i := 0; i < numKeys; i++ {
		if err := b.Add([]byte(keyOf(i)), []byte(valueOf(i))); err != nil {
			t.Fatalf("Add(%d): %v", i, err)
		}
	}
	sst, err := b.Build(1, nil, filepath.Join(dir, "test.sst"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return sst
}

// S1: SST build, two blocks.
func TestScenarioS1TwoBlocks(t *testing.T) {
	b := NewSsTableBuilder(16)
	pairs := [][2]string{
		{"11", "11"}, {"22", "22"}, {"33", "11"},
		{"44", "22"}, {"55", "11"}, {"66", "22"},
	}
	for _, p := range pairs {
		if err := b.Add([]byte(p[0]), []byte(p[1])); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	sst, err := b.Build(1, nil, filepath.Join(t.TempDir(), "s1.sst"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if sst.NumOfBlocks() < 2 {
		t.Fatalf("expected at least 2 blocks, got %d", sst.NumOfBlocks())
	}
}

// S2: full forward and reverse iteration.
func TestScenarioS2FullIteration(t *testing.T) {
	sst := generateSst(t, t.TempDir())

	fwd := New(sst)
	var forward []kv.Entry
	for fwd.IsValid() {
		e, ok, err := fwd.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		forward = append(forward, e)
	}
	if len(forward) != numKeys {
		t.Fatalf("got %d forward entries, want %d", len(forward), numKeys)
	}
	for i, e := range forward {
		if string(e.Key) != keyOf(i) || string(e.Value) != valueOf(i) {
			t.Fatalf("entry %d: got (%q,%q) want (%q,%q)", i, e.Key, e.Value, keyOf(i), valueOf(i))
		}
	}

	rev := New(sst)
	var backward []kv.Entry
	for rev.IsValid() {
		e, ok, err := rev.NextBack()
		if err != nil {
			t.Fatalf("NextBack: %v", err)
		}
		if !ok {
			break
		}
		backward = append(backward, e)
	}
	if len(backward) != numKeys {
		t.Fatalf("got %d backward entries, want %d", len(backward), numKeys)
	}
	for i, e := range backward {
		want := numKeys - 1 - i
		if string(e.Key) != keyOf(want) {
			t.Fatalf("backward entry %d: got %q want %q", i, e.Key, keyOf(want))
		}
	}
}

// S3: alternating next/next_back for 50 steps each.
func TestScenarioS3Alternating(t *testing.T) {
	sst := generateSst(t, t.TempDir())
	it := New(sst)

	var forward, backward []string
	for i := 0; i < 50; i++ {
		e, ok, err := it.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			t.Fatalf("expected 50 forward entries, ran out at step %d", i)
		}
		forward = append(forward, string(e.Key))

		e2, ok2, err := it.NextBack()
		if err != nil {
			t.Fatalf("NextBack: %v", err)
		}
		if !ok2 {
			t.Fatalf("expected 50 backward entries, ran out at step %d", i)
		}
		backward = append(backward, string(e2.Key))
	}

	wantForward := []string{keyOf(0), keyOf(1), keyOf(2), keyOf(3), keyOf(4)}
	for i, w := range wantForward {
		if forward[i] != w {
			t.Fatalf("forward[%d] = %q, want %q", i, forward[i], w)
		}
	}
	if forward[49] != keyOf(49) {
		t.Fatalf("forward[49] = %q, want %q", forward[49], keyOf(49))
	}
	wantBackward := []string{keyOf(99), keyOf(98), keyOf(97), keyOf(96), keyOf(95)}
	for i, w := range wantBackward {
		if backward[i] != w {
			t.Fatalf("backward[%d] = %q, want %q", i, backward[i], w)
		}
	}
	if backward[49] != keyOf(50) {
		t.Fatalf("backward[49] = %q, want %q", backward[49], keyOf(50))
	}
	if it.IsValid() {
		t.Fatalf("expected iterator to be invalid after 50+50 steps covering all %d entries", numKeys)
	}
}

// Property 10: randomized alternation covers the full set with no
// duplicates and no gaps.
func TestBidirectionalNonOverlapRandom(t *testing.T) {
	sst := generateSst(t, t.TempDir())
	it := New(sst)

	seen := make(map[string]bool)
	rng := rand.New(rand.NewSource(1))
	for it.IsValid() {
		var e kv.Entry
		var ok bool
		var err error
		if rng.Intn(2) == 0 {
			e, ok, err = it.Next()
		} else {
			e, ok, err = it.NextBack()
		}
		if err != nil {
			t.Fatalf("iteration error: %v", err)
		}
		if !ok {
			break
		}
		k := string(e.Key)
		if seen[k] {
			t.Fatalf("duplicate emission of key %q", k)
		}
		seen[k] = true
	}
	if len(seen) != numKeys {
		t.Fatalf("got %d distinct keys, want %d", len(seen), numKeys)
	}
}

// S4: seek semantics.
func TestScenarioS4Seek(t *testing.T) {
	sst := generateSst(t, t.TempDir())

	it, err := CreateAndSeekToKey(sst, []byte("key_000"), true)
	if err != nil {
		t.Fatalf("CreateAndSeekToKey: %v", err)
	}
	e, ok, err := it.Next()
	if err != nil || !ok || string(e.Key) != "key_000" || string(e.Value) != valueOf(0) {
		t.Fatalf("seek to key_000: got (%q,%q) ok=%v err=%v", e.Key, e.Value, ok, err)
	}

	if err := it.FrontSeekToKey([]byte("key_007"), true); err != nil {
		t.Fatalf("FrontSeekToKey key_007: %v", err)
	}
	e2, ok2, err := it.Next()
	if err != nil || !ok2 || string(e2.Key) != "key_010" || string(e2.Value) != valueOf(2) {
		t.Fatalf("seek to key_007: got (%q,%q) ok=%v err=%v", e2.Key, e2.Value, ok2, err)
	}

	if err := it.FrontSeekToKey([]byte("k"), true); err != nil {
		t.Fatalf("FrontSeekToKey k: %v", err)
	}
	e3, ok3, err := it.Next()
	if err != nil || !ok3 || string(e3.Key) != "key_000" {
		t.Fatalf("seek to k: got %q ok=%v err=%v", e3.Key, ok3, err)
	}
}

func TestSeekOutOfRangeIsInvalid(t *testing.T) {
	sst := generateSst(t, t.TempDir())
	it, err := CreateAndSeekToKey(sst, []byte("zzzzzz"), true)
	if err != nil {
		t.Fatalf("CreateAndSeekToKey: %v", err)
	}
	if it.IsValid() {
		t.Fatalf("expected out-of-range seek to be invalid")
	}
	if _, ok, _ := it.Next(); ok {
		t.Fatalf("expected Next to return none after an out-of-range seek")
	}
}

// Property 7: build/parse round trip.
func TestBuildOpenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	built := generateSst(t, dir)

	opened, err := OpenFileObject(filepath.Join(dir, "test.sst"))
	if err != nil {
		t.Fatalf("OpenFileObject: %v", err)
	}
	reopened, err := OpenSsTable(1, nil, opened)
	if err != nil {
		t.Fatalf("OpenSsTable: %v", err)
	}

	if reopened.NumOfBlocks() != built.NumOfBlocks() {
		t.Fatalf("got %d blocks, want %d", reopened.NumOfBlocks(), built.NumOfBlocks())
	}
	for i, m := range built.BlockMetas() {
		got := reopened.BlockMetas()[i]
		if got.Offset != m.Offset || string(got.FirstKey) != string(m.FirstKey) {
			t.Fatalf("block meta %d mismatch: got %+v want %+v", i, got, m)
		}
	}
}

// Property 12: with and without a cache, read_block(i) returns byte-equal
// decoded blocks.
func TestBlockCacheTransparency(t *testing.T) {
	sst := generateSst(t, t.TempDir())
	cache, err := NewBlockCache(8)
	if err != nil {
		t.Fatalf("NewBlockCache: %v", err)
	}
	cachedTable := &SsTable{
		ID:              sst.ID,
		file:            sst.file,
		blockMetas:      sst.blockMetas,
		blockMetaOffset: sst.blockMetaOffset,
		cache:           cache,
	}

	for i := 0; i < sst.NumOfBlocks(); i++ {
		direct, err := sst.ReadBlock(i)
		if err != nil {
			t.Fatalf("ReadBlock(%d): %v", i, err)
		}
		cachedFirst, err := cachedTable.ReadBlockCached(i)
		if err != nil {
			t.Fatalf("ReadBlockCached(%d) first: %v", i, err)
		}
		cachedSecond, err := cachedTable.ReadBlockCached(i)
		if err != nil {
			t.Fatalf("ReadBlockCached(%d) second: %v", i, err)
		}
		if len(direct.entries) != len(cachedFirst.entries) || len(direct.entries) != len(cachedSecond.entries) {
			t.Fatalf("block %d entry count mismatch across cached/uncached reads", i)
		}
		for j := range direct.entries {
			if string(direct.entries[j].key) != string(cachedFirst.entries[j].key) {
				t.Fatalf("block %d entry %d key mismatch", i, j)
			}
		}
	}
}
