// pkg/mvcc/transaction.go
package mvcc

import (
	"ember/internal/elog"
	"ember/pkg/kverrors"
)

// Transaction is a begun or resumed MVCC transaction. It owns a snapshot
// and knows its own id and mode; it holds no lock of its own beyond what
// Commit needs to delete its active marker and flush.
type Transaction struct {
	id       uint64
	mode     Mode
	snapshot *Snapshot
	store    Store
}

// ID returns the transaction's unique, monotonically assigned id.
func (t *Transaction) ID() uint64 { return t.id }

// Mode returns the transaction's mode.
func (t *Transaction) Mode() Mode { return t.mode }

// Snapshot returns the transaction's captured or restored snapshot.
func (t *Transaction) Snapshot() *Snapshot { return t.snapshot }

// IsVisible reports whether a record version v is visible to this
// transaction: v must not postdate the snapshot and must not belong to a
// transaction the snapshot marks invisible.
func (t *Transaction) IsVisible(version uint64) bool {
	if version > t.snapshot.Version {
		return false
	}
	return !t.snapshot.IsInvisible(version)
}

// Commit deletes the transaction's TxnActive marker and flushes the
// store. A ReadOnly or Snapshot transaction still performs both steps,
// since the active marker was written at Begin regardless of mode.
func (t *Transaction) Commit() error {
	if err := t.store.Delete(Encode(KeyTxnActive(t.id))); err != nil {
		return kverrors.WrapIO("deleting TxnActive on commit", err)
	}
	if err := t.store.Flush(); err != nil {
		return kverrors.WrapIO("flushing store on commit", err)
	}
	elog.Debug("transaction committed", "id", t.id)
	return nil
}
