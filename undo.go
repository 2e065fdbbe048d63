//
// This file defines UndoRecord, the in-memory pre-image snapshot that
// supports Abort. Its durable counterpart is walog.Record -- the wire type
// already has exactly the (segment, offset, data) / (segment) shape a redo
// record needs, so rather than define a second, parallel in-memory type
// this package builds walog.Record values directly at commit time.
//

package rvm

import "go-rvm/walog"

// UndoRecord is a pre-image snapshot captured by AboutToModify, before any
// application write touches the window. Rollback restores these bytes
// byte-for-byte at the same offset.
type UndoRecord struct {
	segment  *Segment
	offset   uint64
	size     uint64
	preImage []byte
}

func newUndoRecord(seg *Segment, offset, size uint64) *UndoRecord {
	pre := make([]byte, size)
	copy(pre, seg.base[offset:offset+size])
	return &UndoRecord{segment: seg, offset: offset, size: size, preImage: pre}
}

// rollback restores the captured bytes into the segment.
func (u *UndoRecord) rollback() {
	copy(u.segment.base[u.offset:u.offset+u.size], u.preImage)
}

// redoRecord builds the durable Write record for this window, reading the
// segment's *current* bytes -- the post-image, not the pre-image captured
// at AboutToModify time. This must run before the UndoRecord is discarded
// and before the transaction releases ownership of the segment; capturing
// the pre-image here instead would make the log a no-op.
func (u *UndoRecord) redoRecord() walog.Record {
	data := make([]byte, u.size)
	copy(data, u.segment.base[u.offset:u.offset+u.size])
	return walog.Record{
		Type:        walog.RecordWrite,
		SegmentName: u.segment.name,
		Offset:      u.offset,
		Data:        data,
	}
}
