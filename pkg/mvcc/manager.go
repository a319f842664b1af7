// pkg/mvcc/manager.go
package mvcc

import (
	"ember/internal/elog"
	"ember/pkg/kv"
	"ember/pkg/kverrors"
)

// Store is the subset of kv.Store the manager needs, plus Atomic: begin
// must read TxnNext, write it back, write TxnActive, and take a snapshot
// as one lock-held step, matching "Snapshot capture holds the store lock
// across the scan and the subsequent set."
type Store interface {
	kv.Store
	Atomic(fn func(kv.View) error) error
}

// Manager allocates transaction ids and tracks the active set. It holds
// no in-memory state beyond the store handle; all bookkeeping is
// persisted in the store itself, so recovery is a no-op.
type Manager struct {
	store Store
}

// NewManager returns a Manager backed by store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Begin starts a new transaction in the given mode.
func (m *Manager) Begin(mode Mode) (*Transaction, error) {
	var tx *Transaction
	err := m.store.Atomic(func(v kv.View) error {
		id, err := nextTxnID(v)
		if err != nil {
			return err
		}
		if err := v.Set(Encode(KeyTxnNext()), SerializeU64(id+1)); err != nil {
			return kverrors.WrapIO("advancing TxnNext", err)
		}
		if err := v.Set(Encode(KeyTxnActive(id)), SerializeMode(mode)); err != nil {
			return kverrors.WrapIO("writing TxnActive", err)
		}

		// Always take a snapshot at our own id, even in Snapshot mode:
		// future snapshot-mode readers observing us need the active set
		// recorded at our id, not just at the version we ourselves read.
		taken, err := TakeSnapshot(v, id)
		if err != nil {
			return err
		}

		working := taken
		if mode.Kind == SnapshotMode {
			working, err = RestoreSnapshot(v, mode.Version)
			if err != nil {
				return err
			}
		}

		tx = &Transaction{id: id, mode: mode, snapshot: working, store: m.store}
		return nil
	})
	if err != nil {
		return nil, err
	}
	elog.Debug("transaction begun", "id", tx.ID(), "mode", tx.Mode().Kind)
	return tx, nil
}

// Resume reattaches to an active transaction by id.
func (m *Manager) Resume(id uint64) (*Transaction, error) {
	var tx *Transaction
	err := m.store.Atomic(func(v kv.View) error {
		value, ok, err := v.Get(Encode(KeyTxnActive(id)))
		if err != nil {
			return kverrors.WrapIO("reading TxnActive", err)
		}
		if !ok {
			return kverrors.Valuef("no active transaction %d", id)
		}
		mode, err := DeserializeMode(value)
		if err != nil {
			return err
		}

		snapshotVersion := id
		if mode.Kind == SnapshotMode {
			snapshotVersion = mode.Version
		}
		snap, err := RestoreSnapshot(v, snapshotVersion)
		if err != nil {
			return err
		}

		tx = &Transaction{id: id, mode: mode, snapshot: snap, store: m.store}
		return nil
	})
	if err != nil {
		return nil, err
	}
	elog.Debug("transaction resumed", "id", tx.ID(), "mode", tx.Mode().Kind)
	return tx, nil
}

// Snapshot restores the snapshot persisted under TxnSnapshot(version),
// for inspection independent of any transaction.
func (m *Manager) Snapshot(version uint64) (*Snapshot, error) {
	var snap *Snapshot
	err := m.store.Atomic(func(v kv.View) error {
		var err error
		snap, err = RestoreSnapshot(v, version)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// ActiveTransactions scans TxnActive entries and returns the ids currently
// marked active, in ascending order.
func (m *Manager) ActiveTransactions() ([]uint64, error) {
	var ids []uint64
	err := m.store.Atomic(func(v kv.View) error {
		it, err := v.Scan(kv.Range{
			Start: Encode(KeyTxnActive(0)),
			End:   Encode(KeyTxnSnapshot(0)),
		})
		if err != nil {
			return kverrors.WrapIO("scanning TxnActive range", err)
		}
		for it.Next() {
			key, err := Decode(it.Entry().Key)
			if err != nil {
				return err
			}
			if key.Tag != TagTxnActive {
				return kverrors.Internalf("unexpected key in TxnActive scan range")
			}
			ids = append(ids, key.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func nextTxnID(v kv.View) (uint64, error) {
	value, ok, err := v.Get(Encode(KeyTxnNext()))
	if err != nil {
		return 0, kverrors.WrapIO("reading TxnNext", err)
	}
	if !ok {
		return 1, nil
	}
	return DeserializeU64(value)
}
