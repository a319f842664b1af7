package mvcc

import (
	"ember/pkg/kv"
	"ember/pkg/kverrors"
)

// Snapshot captures the set of transaction ids that were active at the
// moment it was taken, so a later reader can exclude their writes.
type Snapshot struct {
	Version   uint64
	Invisible map[uint64]struct{}
}

// IsInvisible reports whether id is excluded from this snapshot's view.
func (s *Snapshot) IsInvisible(id uint64) bool {
	_, ok := s.Invisible[id]
	return ok
}

// TakeSnapshot scans TxnActive(*) for ids in [0, version), persists the
// result under TxnSnapshot(version), and returns it. v must be a View
// obtained from the same Atomic call that will perform any subsequent
// write for this begin, since active-set capture and the following write
// must be atomic with respect to other transactions' begin/commit calls.
func TakeSnapshot(v kv.View, version uint64) (*Snapshot, error) {
	lo := Encode(KeyTxnActive(0))
	hi := Encode(KeyTxnActive(version))

	it, err := v.Scan(kv.Range{Start: lo, End: hi})
	if err != nil {
		return nil, kverrors.WrapIO("scanning active transactions", err)
	}

	invisible := make(map[uint64]struct{})
	for it.Next() {
		entry := it.Entry()
		decoded, err := Decode(entry.Key)
		if err != nil {
			return nil, err
		}
		if decoded.Tag != TagTxnActive {
			return nil, kverrors.Internalf("unexpected key during active-set scan: tag 0x%02x", decoded.Tag)
		}
		invisible[decoded.ID] = struct{}{}
	}

	snap := &Snapshot{Version: version, Invisible: invisible}
	if err := v.Set(Encode(KeyTxnSnapshot(version)), SerializeIDSet(invisible)); err != nil {
		return nil, kverrors.WrapIO("persisting snapshot", err)
	}
	return snap, nil
}

// RestoreSnapshot reads the snapshot persisted under TxnSnapshot(version).
func RestoreSnapshot(v kv.View, version uint64) (*Snapshot, error) {
	value, ok, err := v.Get(Encode(KeyTxnSnapshot(version)))
	if err != nil {
		return nil, kverrors.WrapIO("reading snapshot", err)
	}
	if !ok {
		return nil, kverrors.Valuef("snapshot not found for version %d", version)
	}
	invisible, err := DeserializeIDSet(value)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Version: version, Invisible: invisible}, nil
}
