// pkg/cli/repl.go
package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"ember/internal/elog"
	"ember/pkg/catalog"
	"ember/pkg/kv"
	"ember/pkg/kverrors"
	"ember/pkg/mvcc"
	"ember/pkg/sstable"
	"ember/pkg/types"
)

// REPL drives the MVCC manager, the raw KV store, the catalog, and SST
// build/inspect commands from a single interactive session.
type REPL struct {
	shell   *Shell
	output  io.Writer
	errOut  io.Writer
	store   *kv.MemStore
	manager *mvcc.Manager
	cat     *catalog.MemCatalog
	cache   *sstable.BlockCache

	txns map[uint64]*mvcc.Transaction

	exitRequested bool
}

// NewREPL wires a fresh in-memory store, MVCC manager, catalog, and block
// cache, and returns a REPL ready to Run.
func NewREPL(output, errOut io.Writer) (*REPL, error) {
	cache, err := sstable.NewBlockCache(128)
	if err != nil {
		return nil, err
	}
	store := kv.NewMemStore()
	return &REPL{
		shell:   NewShell("ember> "),
		output:  output,
		errOut:  errOut,
		store:   store,
		manager: mvcc.NewManager(store),
		cat:     catalog.NewMemCatalog(),
		cache:   cache,
		txns:    make(map[uint64]*mvcc.Transaction),
	}, nil
}

// Close releases the line editor.
func (r *REPL) Close() error {
	return r.shell.Close()
}

// Run reads and dispatches commands until exit or EOF.
func (r *REPL) Run() {
	fmt.Fprintln(r.output, "ember - embedded transactional key-value engine core")
	fmt.Fprintln(r.output, "Type .help for commands.")

	for !r.exitRequested {
		line, eof := r.shell.ReadLine()
		if line == "" {
			if eof {
				fmt.Fprintln(r.output)
				return
			}
			continue
		}
		if err := r.Dispatch(line); err != nil {
			fmt.Fprintf(r.errOut, "error: %v\n", err)
		}
		if eof {
			return
		}
	}
}

// Dispatch parses and executes a single command line.
func (r *REPL) Dispatch(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case ".exit", ".quit":
		r.exitRequested = true
		return nil
	case ".help":
		r.printHelp()
		return nil
	case "begin":
		return r.cmdBegin(args)
	case "resume":
		return r.cmdResume(args)
	case "commit":
		return r.cmdCommit(args)
	case "active":
		return r.cmdActive(args)
	case "snapshot":
		return r.cmdSnapshot(args)
	case "get":
		return r.cmdGet(args)
	case "set":
		return r.cmdSet(args)
	case "delete":
		return r.cmdDelete(args)
	case "scan":
		return r.cmdScan(args)
	case "sst":
		return r.cmdSst(args)
	case "catalog":
		return r.cmdCatalog(args)
	default:
		return kverrors.Valuef("unknown command %q, try .help", cmd)
	}
}

func (r *REPL) printHelp() {
	fmt.Fprint(r.output, `
begin [readwrite|readonly|snapshot <version>]   start a transaction
resume <id>                                     reattach to an active transaction
commit <id>                                     commit a transaction
active                                           list active transaction ids
snapshot <version>                              show the persisted snapshot for version
get <key>                                        raw store get
set <key> <value>                                raw store set
delete <key>                                     raw store delete
scan [start] [end]                               raw store range scan
sst build <path> <k=v> [k=v...]                  build an sst from key=value pairs
sst open <path>                                  open and summarize an sst
sst scan <path> [start] [end]                    iterate an sst's entries
catalog create <table> <col:type> [col:type...]  create a catalog table
catalog tables                                   list catalog tables
catalog index <table> <column>                   create an index
.help                                            this message
.exit                                            leave the shell
`)
}

func (r *REPL) cmdBegin(args []string) error {
	mode := mvcc.NewReadWrite()
	if len(args) > 0 {
		switch args[0] {
		case "readwrite":
			mode = mvcc.NewReadWrite()
		case "readonly":
			mode = mvcc.NewReadOnly()
		case "snapshot":
			if len(args) < 2 {
				return kverrors.Valuef("snapshot mode requires a version argument")
			}
			version, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return kverrors.Valuef("invalid version %q", args[1])
			}
			mode = mvcc.NewSnapshot(version)
		default:
			return kverrors.Valuef("unknown mode %q", args[0])
		}
	}
	tx, err := r.manager.Begin(mode)
	if err != nil {
		return err
	}
	r.txns[tx.ID()] = tx
	fmt.Fprintf(r.output, "began transaction %d (%s)\n", tx.ID(), tx.Mode().Kind)
	return nil
}

func (r *REPL) cmdResume(args []string) error {
	if len(args) != 1 {
		return kverrors.Valuef("usage: resume <id>")
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return kverrors.Valuef("invalid id %q", args[0])
	}
	tx, err := r.manager.Resume(id)
	if err != nil {
		return err
	}
	r.txns[tx.ID()] = tx
	fmt.Fprintf(r.output, "resumed transaction %d (%s)\n", tx.ID(), tx.Mode().Kind)
	return nil
}

func (r *REPL) cmdCommit(args []string) error {
	if len(args) != 1 {
		return kverrors.Valuef("usage: commit <id>")
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return kverrors.Valuef("invalid id %q", args[0])
	}
	tx, ok := r.txns[id]
	if !ok {
		return kverrors.Valuef("transaction %d is not attached in this session; resume it first", id)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	delete(r.txns, id)
	fmt.Fprintf(r.output, "committed transaction %d\n", id)
	return nil
}

func (r *REPL) cmdActive(args []string) error {
	ids, err := r.manager.ActiveTransactions()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintln(r.output, "(no active transactions)")
		return nil
	}
	for _, id := range ids {
		fmt.Fprintln(r.output, id)
	}
	return nil
}

func (r *REPL) cmdSnapshot(args []string) error {
	if len(args) != 1 {
		return kverrors.Valuef("usage: snapshot <version>")
	}
	version, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return kverrors.Valuef("invalid version %q", args[0])
	}
	snap, err := r.manager.Snapshot(version)
	if err != nil {
		return err
	}
	invisible := make([]uint64, 0, len(snap.Invisible))
	for id := range snap.Invisible {
		invisible = append(invisible, id)
	}
	sort.Slice(invisible, func(i, j int) bool { return invisible[i] < invisible[j] })
	fmt.Fprintf(r.output, "version=%d invisible=%v\n", snap.Version, invisible)
	return nil
}

func (r *REPL) cmdGet(args []string) error {
	if len(args) != 1 {
		return kverrors.Valuef("usage: get <key>")
	}
	value, ok, err := r.store.Get([]byte(args[0]))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(r.output, "(not found)")
		return nil
	}
	fmt.Fprintln(r.output, string(value))
	return nil
}

func (r *REPL) cmdSet(args []string) error {
	if len(args) != 2 {
		return kverrors.Valuef("usage: set <key> <value>")
	}
	if err := r.store.Set([]byte(args[0]), []byte(args[1])); err != nil {
		return err
	}
	fmt.Fprintln(r.output, "ok")
	return nil
}

func (r *REPL) cmdDelete(args []string) error {
	if len(args) != 1 {
		return kverrors.Valuef("usage: delete <key>")
	}
	if err := r.store.Delete([]byte(args[0])); err != nil {
		return err
	}
	fmt.Fprintln(r.output, "ok")
	return nil
}

func (r *REPL) cmdScan(args []string) error {
	var rng kv.Range
	if len(args) > 0 {
		rng.Start = []byte(args[0])
	}
	if len(args) > 1 {
		rng.End = []byte(args[1])
	}
	it, err := r.store.Scan(rng)
	if err != nil {
		return err
	}
	count := 0
	for it.Next() {
		e := it.Entry()
		fmt.Fprintf(r.output, "%s = %s\n", e.Key, e.Value)
		count++
	}
	fmt.Fprintf(r.output, "%d entr(y/ies)\n", count)
	return nil
}

func (r *REPL) cmdSst(args []string) error {
	if len(args) == 0 {
		return kverrors.Valuef("usage: sst <build|open|scan> ...")
	}
	switch args[0] {
	case "build":
		return r.sstBuild(args[1:])
	case "open":
		return r.sstOpen(args[1:])
	case "scan":
		return r.sstScan(args[1:])
	default:
		return kverrors.Valuef("unknown sst subcommand %q", args[0])
	}
}

func (r *REPL) sstBuild(args []string) error {
	if len(args) < 2 {
		return kverrors.Valuef("usage: sst build <path> <k=v> [k=v...]")
	}
	path := args[0]
	pairs := append([]string(nil), args[1:]...)
	sort.Strings(pairs)
	builder := sstable.NewSsTableBuilder(4096)
	for _, pair := range pairs {
		kvParts := strings.SplitN(pair, "=", 2)
		if len(kvParts) != 2 {
			return kverrors.Valuef("malformed key=value pair %q", pair)
		}
		if err := builder.Add([]byte(kvParts[0]), []byte(kvParts[1])); err != nil {
			return err
		}
	}
	table, err := builder.Build(1, r.cache, path)
	if err != nil {
		return err
	}
	defer table.Close()
	elog.Info("sst built from shell", "path", path, "entries", len(pairs))
	fmt.Fprintf(r.output, "built %s: %d blocks\n", path, table.NumOfBlocks())
	return nil
}

func (r *REPL) sstOpen(args []string) error {
	if len(args) != 1 {
		return kverrors.Valuef("usage: sst open <path>")
	}
	file, err := sstable.OpenFileObject(args[0])
	if err != nil {
		return err
	}
	table, err := sstable.OpenSsTable(1, r.cache, file)
	if err != nil {
		return err
	}
	defer table.Close()
	fmt.Fprintf(r.output, "%s: %d blocks\n", args[0], table.NumOfBlocks())
	for i, meta := range table.BlockMetas() {
		fmt.Fprintf(r.output, "  block %d: offset=%d first_key=%s\n", i, meta.Offset, meta.FirstKey)
	}
	return nil
}

func (r *REPL) sstScan(args []string) error {
	if len(args) < 1 {
		return kverrors.Valuef("usage: sst scan <path> [start] [end]")
	}
	file, err := sstable.OpenFileObject(args[0])
	if err != nil {
		return err
	}
	table, err := sstable.OpenSsTable(1, r.cache, file)
	if err != nil {
		return err
	}
	defer table.Close()

	var rng kv.Range
	if len(args) > 1 {
		rng.Start = []byte(args[1])
	}
	if len(args) > 2 {
		rng.End = []byte(args[2])
	}
	it, err := sstable.Create(table, rng)
	if err != nil {
		return err
	}
	entries, err := it.Collect()
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintf(r.output, "%s = %s\n", e.Key, e.Value)
	}
	fmt.Fprintf(r.output, "%d entr(y/ies)\n", len(entries))
	return nil
}

func (r *REPL) cmdCatalog(args []string) error {
	if len(args) == 0 {
		return kverrors.Valuef("usage: catalog <create|tables|index> ...")
	}
	switch args[0] {
	case "create":
		return r.catalogCreate(args[1:])
	case "tables":
		return r.catalogTables(args[1:])
	case "index":
		return r.catalogIndex(args[1:])
	default:
		return kverrors.Valuef("unknown catalog subcommand %q", args[0])
	}
}

func (r *REPL) catalogCreate(args []string) error {
	if len(args) < 1 {
		return kverrors.Valuef("usage: catalog create <table> <col:type> [col:type...]")
	}
	table := catalog.Table{Name: args[0]}
	for _, spec := range args[1:] {
		parts := strings.SplitN(spec, ":", 2)
		if len(parts) != 2 {
			return kverrors.Valuef("malformed column spec %q, want name:type", spec)
		}
		table.Columns = append(table.Columns, catalog.Column{Name: parts[0], Type: parseValueType(parts[1])})
	}
	if err := r.cat.CreateTable(table); err != nil {
		return err
	}
	fmt.Fprintf(r.output, "created table %s with %d column(s)\n", table.Name, len(table.Columns))
	return nil
}

func (r *REPL) catalogTables(args []string) error {
	tables, err := r.cat.ScanTables()
	if err != nil {
		return err
	}
	if len(tables) == 0 {
		fmt.Fprintln(r.output, "(no tables)")
		return nil
	}
	for _, t := range tables {
		fmt.Fprintln(r.output, t.Name)
	}
	return nil
}

func (r *REPL) catalogIndex(args []string) error {
	if len(args) != 2 {
		return kverrors.Valuef("usage: catalog index <table> <column>")
	}
	if err := r.cat.CreateIndex(args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(r.output, "indexed %s.%s\n", args[0], args[1])
	return nil
}

func parseValueType(s string) types.ValueType {
	switch strings.ToLower(s) {
	case "int":
		return types.TypeInt
	case "float":
		return types.TypeFloat
	case "text":
		return types.TypeText
	case "blob":
		return types.TypeBlob
	default:
		return types.TypeNull
	}
}
