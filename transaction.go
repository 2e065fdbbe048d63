//
// This file implements Transaction: begin, about-to-modify, commit and
// abort. A transaction exclusively owns the segments it was begun with,
// captures pre-image undo records before the application writes, and at
// commit converts them to post-image redo records appended to the log as
// one frame. Misuse that the caller can recover from (double-begin on an
// owned segment, an unknown base) returns errs.ErrInvalid; programmer
// bugs (unknown transaction id, out-of-range window) are fatal.
//

package rvm

import (
	"go-rvm/internal/base/errs"
	"go-rvm/internal/base/log"
	"go-rvm/walog"
)

type txnState int

const (
	txnActive txnState = iota
	txnCommitted
	txnAborted
)

// Transaction tracks the segments it owns, the undo records it has
// captured, and (after commit) the redo records it produced.
type Transaction struct {
	log.Logger

	id     TxnID
	engine *Engine
	state  txnState

	segments  []*Segment
	segByBase map[Base]*Segment

	undo []*UndoRecord
	redo []walog.Record
}

// Begin claims ownership of every segment named by bases on behalf of a new
// transaction. Fails with errs.ErrInvalid if any base doesn't resolve to a
// currently-mapped segment, if any target segment already has an owner, or
// if the same base is listed twice.
func (e *Engine) Begin(bases ...Base) (TxnID, error) {
	segs := make([]*Segment, 0, len(bases))
	claimed := make(map[Base]bool, len(bases))
	for _, base := range bases {
		seg, ok := e.segByBase[base]
		if !ok {
			e.Errorf("begin_trans: base %p does not resolve to a mapped segment", base)
			return 0, errs.ErrInvalid
		}
		if seg.owner != nil {
			e.Errorf("begin_trans: segment %q is already owned by transaction %d",
				seg.name, seg.owner.id)
			return 0, errs.ErrInvalid
		}
		if claimed[base] {
			e.Errorf("begin_trans: segment %q is listed twice", seg.name)
			return 0, errs.ErrInvalid
		}
		claimed[base] = true
		segs = append(segs, seg)
	}

	id := newTxnID()
	txn := &Transaction{
		Logger:    e.NewLogger("txn:%d", id),
		id:        id,
		engine:    e,
		state:     txnActive,
		segByBase: make(map[Base]*Segment, len(segs)),
	}
	for _, seg := range segs {
		seg.owner = txn
		txn.segments = append(txn.segments, seg)
		txn.segByBase[seg.basePtr()] = seg
	}

	registerPending(txn)
	return txn.id, nil
}

// AboutToModify captures the pre-image of segment[offset:offset+size] into
// an UndoRecord owned by the transaction named by tid, unless an UndoRecord
// for exactly the same (segment, offset, size) window already exists, in
// which case the call is a no-op. Overlapping-but-not-equal windows each
// capture their own UndoRecord.
//
// Fatal (process-visible, via Logger.Fatalf) if tid is unknown, base isn't
// owned by this transaction, offset is negative, size is not positive, or
// the window runs past the segment.
func AboutToModify(tid TxnID, base Base, offset, size int64) {
	txn := lookupPending(tid)
	if txn == nil {
		fatalLogger().Fatalf("about_to_modify: unknown transaction %d", tid)
		return
	}
	if txn.state != txnActive {
		txn.Fatalf("about_to_modify: transaction %d is not active", tid)
		return
	}
	if offset < 0 || size <= 0 {
		txn.Fatalf("about_to_modify: invalid window offset=%d size=%d", offset, size)
		return
	}

	seg, ok := txn.segByBase[base]
	if !ok {
		txn.Fatalf("about_to_modify: base %p is not owned by transaction %d", base, tid)
		return
	}
	uOffset, uSize := uint64(offset), uint64(size)
	if uOffset+uSize > uint64(seg.size) {
		txn.Fatalf("about_to_modify: window [%d,%d) exceeds segment %q size %d",
			offset, offset+size, seg.name, seg.size)
		return
	}

	for _, u := range txn.undo {
		if u.segment == seg && u.offset == uOffset && u.size == uSize {
			return
		}
	}
	txn.undo = append(txn.undo, newUndoRecord(seg, uOffset, uSize))
}

// Commit converts every UndoRecord into a redo record (reading the
// segment's current, post-write bytes), appends them as one framed
// transaction to the redo log, releases the transaction's segments, and
// moves the transaction onto the engine's committed list. A transaction
// that captured no windows appends nothing.
//
// Fatal if tid is unknown.
func Commit(tid TxnID) {
	txn := lookupPending(tid)
	if txn == nil {
		fatalLogger().Fatalf("commit_trans: unknown transaction %d", tid)
		return
	}

	for _, u := range txn.undo {
		txn.redo = append(txn.redo, u.redoRecord())
	}
	txn.undo = nil

	if len(txn.redo) > 0 {
		frame := walog.Frame{TransID: int64(txn.id), Records: txn.redo}
		if err := txn.engine.appendFrame(frame); err != nil {
			txn.Fatalf("commit_trans: could not append redo log frame for "+
				"transaction %d: %v", tid, err)
			return
		}
	}

	for _, seg := range txn.segments {
		seg.owner = nil
	}
	txn.segments = nil
	txn.segByBase = nil
	txn.state = txnCommitted

	unregisterPending(tid)
	txn.engine.committed = append(txn.engine.committed, txn)
}

// Abort rolls back every UndoRecord in LIFO order, releases the
// transaction's segments, and discards the transaction. Reverse order
// matters: overlapping windows must be undone opposite to the order they
// were captured so the earliest pre-image byte wins.
//
// Fatal if tid is unknown.
func Abort(tid TxnID) {
	txn := lookupPending(tid)
	if txn == nil {
		fatalLogger().Fatalf("abort_trans: unknown transaction %d", tid)
		return
	}

	for i := len(txn.undo) - 1; i >= 0; i-- {
		txn.undo[i].rollback()
	}
	txn.undo = nil

	for _, seg := range txn.segments {
		seg.owner = nil
	}
	txn.segments = nil
	txn.segByBase = nil
	txn.state = txnAborted

	unregisterPending(tid)
}
