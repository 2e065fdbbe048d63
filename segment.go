//
// This file defines Segment, the in-memory resident buffer bound to a
// named backing file. A segment's application-visible identity is the
// address of its first byte: Map hands that address out, and the engine
// resolves it back to the Segment through a base-keyed map, so no opaque
// handle type is needed.
//

package rvm

import (
	"io"
	"os"
	"path/filepath"
	"unsafe"

	"go-rvm/internal/base/log"
)

// Base is the application-visible identity of a mapped Segment: the
// address of its first byte. Callers recover a read/write view of the
// segment with unsafe.Slice((*byte)(base), size).
type Base = unsafe.Pointer

// Segment is a named, fixed-size byte region resident in memory and backed
// by a file on disk.
type Segment struct {
	log.Logger

	name        string
	size        int
	base        []byte
	backingPath string
	owner       *Transaction

	engine *Engine
}

// basePtr returns the stable address of segment's backing buffer.
func (s *Segment) basePtr() Base {
	return unsafe.Pointer(&s.base[0])
}

// Bytes returns a live view over the segment's memory. Mutations through
// the returned slice are only durable once captured by AboutToModify and
// committed; writing outside an about-to-modify window is not an error
// the library can detect.
func (s *Segment) Bytes() []byte {
	return s.base
}

// load populates base from the backing file (if any) and then replays every
// committed redo record for this segment's name that the engine has on
// file, clipping any write that runs past size.
func (s *Segment) load() error {
	s.base = make([]byte, s.size)

	file, err := os.Open(s.backingPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Missing backing file is normal: a brand new segment starts zeroed.
		} else {
			return err
		}
	} else {
		defer file.Close()
		// Short reads are tolerated; the remainder of base stays zero. The
		// partial bytes io.ReadFull already copied into base survive a
		// reported EOF/ErrUnexpectedEOF, so only a genuine I/O error is
		// propagated.
		if _, err := io.ReadFull(file, s.base); err != nil &&
			err != io.EOF && err != io.ErrUnexpectedEOF {
			return err
		}
	}

	records := s.engine.recordsFor(s.name)
	for _, rec := range records {
		s.applyWrite(rec.Offset, rec.Data)
	}
	return nil
}

// applyWrite writes data at offset into base, clipping at the segment
// boundary: if offset is already past size the write is skipped entirely;
// otherwise only the bytes that fit are written.
func (s *Segment) applyWrite(offset uint64, data []byte) {
	if offset >= uint64(s.size) {
		return
	}
	n := uint64(len(data))
	if room := uint64(s.size) - offset; n > room {
		n = room
	}
	copy(s.base[offset:offset+n], data[:n])
}

func segmentBackingPath(dir, name string) string {
	return filepath.Join(dir, "seg_"+name+".rvm")
}
