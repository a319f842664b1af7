package cli

import (
	"bytes"
	"strings"
	"testing"

	"ember/pkg/catalog"
	"ember/pkg/kv"
	"ember/pkg/mvcc"
	"ember/pkg/sstable"
)

func newTestREPL(t *testing.T) (*REPL, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	cache, err := sstable.NewBlockCache(16)
	if err != nil {
		t.Fatalf("NewBlockCache: %v", err)
	}
	store := kv.NewMemStore()
	var out, errOut bytes.Buffer
	r := &REPL{
		output:  &out,
		errOut:  &errOut,
		store:   store,
		manager: mvcc.NewManager(store),
		cat:     catalog.NewMemCatalog(),
		txns:    make(map[uint64]*mvcc.Transaction),
		cache:   cache,
	}
	return r, &out, &errOut
}

func TestDispatchSetGetDelete(t *testing.T) {
	r, out, _ := newTestREPL(t)
	if err := r.Dispatch("set k1 v1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	out.Reset()
	if err := r.Dispatch("get k1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := out.String(); got != "v1\n" {
		t.Fatalf("get output = %q, want %q", got, "v1\n")
	}
	if err := r.Dispatch("delete k1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	out.Reset()
	if err := r.Dispatch("get k1"); err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got := out.String(); got != "(not found)\n" {
		t.Fatalf("get after delete output = %q", got)
	}
}

func TestDispatchBeginResumeCommit(t *testing.T) {
	r, out, _ := newTestREPL(t)
	if err := r.Dispatch("begin"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if !strings.Contains(out.String(), "began transaction 1") {
		t.Fatalf("begin output = %q", out.String())
	}

	if err := r.Dispatch("begin readonly"); err != nil {
		t.Fatalf("begin readonly: %v", err)
	}

	out.Reset()
	if err := r.Dispatch("active"); err != nil {
		t.Fatalf("active: %v", err)
	}
	if !strings.Contains(out.String(), "1") || !strings.Contains(out.String(), "2") {
		t.Fatalf("active output = %q, want both ids listed", out.String())
	}

	out.Reset()
	if err := r.Dispatch("resume 2"); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !strings.Contains(out.String(), "resumed transaction 2") {
		t.Fatalf("resume output = %q", out.String())
	}

	if err := r.Dispatch("commit 1"); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, ok := r.txns[1]; ok {
		t.Fatal("expected transaction 1 to be forgotten after commit")
	}

	out.Reset()
	if err := r.Dispatch("active"); err != nil {
		t.Fatalf("active after commit: %v", err)
	}
	if strings.Contains(out.String(), "1\n") {
		t.Fatalf("active output still lists committed transaction: %q", out.String())
	}
}

func TestDispatchCommitUnattachedErrors(t *testing.T) {
	r, _, _ := newTestREPL(t)
	if err := r.Dispatch("commit 99"); err == nil {
		t.Fatal("expected an error committing an unattached transaction")
	}
}

func TestDispatchSnapshotAfterBegin(t *testing.T) {
	r, _, _ := newTestREPL(t)
	if err := r.Dispatch("begin"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	var out2 bytes.Buffer
	r.output = &out2
	if err := r.Dispatch("snapshot 1"); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !strings.Contains(out2.String(), "version=1") {
		t.Fatalf("snapshot output = %q", out2.String())
	}
}

func TestDispatchScanRange(t *testing.T) {
	r, out, _ := newTestREPL(t)
	for _, pair := range [][2]string{{"a", "1"}, {"b", "2"}, {"c", "3"}} {
		if err := r.Dispatch("set " + pair[0] + " " + pair[1]); err != nil {
			t.Fatalf("set: %v", err)
		}
	}
	out.Reset()
	if err := r.Dispatch("scan b"); err != nil {
		t.Fatalf("scan: %v", err)
	}
	got := out.String()
	if strings.Contains(got, "a = 1") {
		t.Fatalf("scan from b should not include a: %q", got)
	}
	if !strings.Contains(got, "b = 2") || !strings.Contains(got, "c = 3") {
		t.Fatalf("scan from b missing entries: %q", got)
	}
}

func TestDispatchCatalogCreateAndIndex(t *testing.T) {
	r, out, _ := newTestREPL(t)
	if err := r.Dispatch("catalog create users id:int email:text"); err != nil {
		t.Fatalf("catalog create: %v", err)
	}
	if err := r.Dispatch("catalog index users email"); err != nil {
		t.Fatalf("catalog index: %v", err)
	}
	out.Reset()
	if err := r.Dispatch("catalog tables"); err != nil {
		t.Fatalf("catalog tables: %v", err)
	}
	if !strings.Contains(out.String(), "users") {
		t.Fatalf("catalog tables output = %q", out.String())
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	r, _, _ := newTestREPL(t)
	if err := r.Dispatch("bogus"); err == nil {
		t.Fatal("expected an error for an unknown command")
	}
}

func TestDispatchSstBuildOpenScan(t *testing.T) {
	r, out, _ := newTestREPL(t)
	path := t.TempDir() + "/shell.sst"
	if err := r.Dispatch("sst build " + path + " k1=v1 k2=v2"); err != nil {
		t.Fatalf("sst build: %v", err)
	}
	out.Reset()
	if err := r.Dispatch("sst open " + path); err != nil {
		t.Fatalf("sst open: %v", err)
	}
	if !strings.Contains(out.String(), "blocks") {
		t.Fatalf("sst open output = %q", out.String())
	}
	out.Reset()
	if err := r.Dispatch("sst scan " + path); err != nil {
		t.Fatalf("sst scan: %v", err)
	}
	if !strings.Contains(out.String(), "k1 = v1") || !strings.Contains(out.String(), "k2 = v2") {
		t.Fatalf("sst scan output = %q", out.String())
	}
}
