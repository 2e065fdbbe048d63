package rvm

import (
	"sync"
	"sync/atomic"
)

// TxnID identifies a Transaction for the lifetime of the process. Ids are
// assigned from a single monotonic counter shared by every Engine in the
// process, so a transaction id never repeats even across engines backed by
// different directories.
type TxnID int64

var nextTxnID int64

func newTxnID() TxnID {
	return TxnID(atomic.AddInt64(&nextTxnID, 1))
}

// pendingTxn is the single id->Transaction lookup table for all active
// transactions across every Engine in the process. Keying by id alone is
// safe because ids are unique process-wide.
var (
	pendingMu  sync.Mutex
	pendingTxn = make(map[TxnID]*Transaction)
)

func registerPending(txn *Transaction) {
	pendingMu.Lock()
	defer pendingMu.Unlock()
	pendingTxn[txn.id] = txn
}

func lookupPending(id TxnID) *Transaction {
	pendingMu.Lock()
	defer pendingMu.Unlock()
	return pendingTxn[id]
}

func unregisterPending(id TxnID) {
	pendingMu.Lock()
	defer pendingMu.Unlock()
	delete(pendingTxn, id)
}
