//
// This file implements Engine: the directory root that owns every mapped
// segment and every committed transaction. Open replays the redo log left
// behind by a previous process, truncating any torn tail it finds;
// Truncate folds the committed redo records into the segment backing
// files and rewrites the log through a tmp-file swap so a crash at any
// point leaves either the old log or the new one in place.
//

package rvm

import (
	"io"
	"os"
	"path/filepath"

	"go-rvm/internal/base/errs"
	"go-rvm/internal/base/log"
	"go-rvm/walog"
)

const (
	logFileName    = "redo_log.rvm"
	tmpLogFileName = "redo_log.rvm.tmp"
)

// Engine is one recoverable-memory instance rooted at a directory. It owns
// every Segment mapped from it and every Transaction committed through it.
type Engine struct {
	log.Logger

	opts Options

	directory  string
	logPath    string
	tmpLogPath string

	segByName map[string]*Segment
	segByBase map[Base]*Segment

	// committed preserves log order: it is replayed in this order on
	// recovery and folded in this order by Truncate.
	committed []*Transaction

	logFile   *os.File
	logWriter *walog.LogWriter
}

// Open attaches to the recoverable-memory directory at path, creating it
// if necessary and replaying any redo log a previous process left behind.
// opts may be nil, in which case DefaultOptions() is used.
func Open(directory string, opts *Options) (*Engine, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(directory, 0700); err != nil {
		return nil, err
	}

	backend := &log.SimpleFileLog{}
	if err := backend.Initialize(filepath.Join(directory, "rvm.log")); err != nil {
		return nil, err
	}

	e := &Engine{
		Logger:     backend.NewLogger("rvm:%s", directory),
		opts:       *opts,
		directory:  directory,
		logPath:    filepath.Join(directory, logFileName),
		tmpLogPath: filepath.Join(directory, tmpLogFileName),
		segByName:  make(map[string]*Segment),
		segByBase:  make(map[Base]*Segment),
	}

	// A crash during a prior Truncate can leave the new log staged in the
	// tmp file with the real log already removed; finish that rename
	// before doing anything else.
	if !fileExists(e.logPath) && fileExists(e.tmpLogPath) {
		if err := os.Rename(e.tmpLogPath, e.logPath); err != nil {
			return nil, err
		}
	}

	if fileExists(e.logPath) {
		if err := e.recover(); err != nil {
			return nil, err
		}
	}

	logFile, err := os.OpenFile(e.logPath, os.O_CREATE|os.O_RDWR|os.O_APPEND, opts.FileMode)
	if err != nil {
		return nil, err
	}
	e.logFile = logFile
	e.logWriter = walog.NewLogWriter(logFile)

	return e, nil
}

// recover replays every cleanly-parsed transaction frame in the log into
// e.committed, then -- if the log has a torn or corrupt tail -- rewrites
// the log to contain only the valid prefix via the tmp-swap protocol.
func (e *Engine) recover() error {
	validOffset, err := walog.ScanLogInto(e.logPath, e.opts.MaxReadSize,
		func(frame walog.Frame) error {
			e.committed = append(e.committed, &Transaction{
				id:    TxnID(frame.TransID),
				state: txnCommitted,
				redo:  frame.Records,
			})
			return nil
		})
	if err != nil {
		return err
	}

	info, err := os.Stat(e.logPath)
	if err != nil {
		return err
	}
	if validOffset == info.Size() {
		return nil
	}

	e.Warningf("redo log has a torn tail at offset %d of %d bytes; truncating",
		validOffset, info.Size())
	return truncateFileTo(e.logPath, e.tmpLogPath, validOffset, e.opts.FileMode)
}

// truncateFileTo rewrites path to contain only its first validOffset bytes,
// via the create-tmp/fsync/remove/rename protocol used everywhere this
// package needs a crash-safe file swap.
func truncateFileTo(path, tmpPath string, validOffset int64, mode os.FileMode) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if _, err := io.CopyN(tmp, src, validOffset); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	src.Close()

	if err := os.Remove(path); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// recordsFor returns the filtered, ordered list of Write records for name
// across the committed list. Every Destroy for name encountered while
// scanning empties the accumulator; subsequent Writes re-accumulate, so a
// destroyed-then-recreated segment starts from its backing-file state.
func (e *Engine) recordsFor(name string) []walog.Record {
	var records []walog.Record
	for _, txn := range e.committed {
		for _, rec := range txn.redo {
			if rec.SegmentName != name {
				continue
			}
			if rec.Type == walog.RecordDestroy {
				records = nil
				continue
			}
			records = append(records, rec)
		}
	}
	return records
}

// Map resident-maps a segment, starting from zeroed memory when no backing
// file exists (none is created here) and replaying any redo records already
// committed for its name.
// Returns errs.ErrInvalid if name is already mapped, empty, or size is
// non-positive.
func (e *Engine) Map(name string, size int) (Base, error) {
	if name == "" {
		e.Errorf("map: segment name must not be empty")
		return nil, errs.ErrInvalid
	}
	if size <= 0 {
		e.Errorf("map: segment %q size must be positive, got %d", name, size)
		return nil, errs.ErrInvalid
	}
	if _, ok := e.segByName[name]; ok {
		e.Errorf("map: segment %q is already mapped", name)
		return nil, errs.ErrInvalid
	}

	seg := &Segment{
		Logger:      e.NewLogger("segment:%s", name),
		name:        name,
		size:        size,
		backingPath: segmentBackingPath(e.directory, name),
		engine:      e,
	}
	if err := seg.load(); err != nil {
		return nil, err
	}

	e.segByName[name] = seg
	e.segByBase[seg.basePtr()] = seg
	return seg.basePtr(), nil
}

// Unmap releases a mapped segment. Fatal if base is unknown or the segment
// is currently owned by a live transaction.
func (e *Engine) Unmap(base Base) {
	seg, ok := e.segByBase[base]
	if !ok {
		e.Fatalf("unmap: base %p does not resolve to a mapped segment", base)
		return
	}
	if seg.owner != nil {
		e.Fatalf("unmap: segment %q is owned by transaction %d", seg.name, seg.owner.id)
		return
	}
	delete(e.segByName, seg.name)
	delete(e.segByBase, base)
}

// Destroy tombstones a segment by name. If the segment is currently
// mapped, this is a no-op. Otherwise it appends a single-record Destroy
// transaction to the log and removes the backing file if any; replay of
// that name afterwards starts from the zero/backing-file state with no
// earlier Write records applied.
func (e *Engine) Destroy(name string) error {
	if _, mapped := e.segByName[name]; mapped {
		return nil
	}

	frame := walog.Frame{
		TransID: int64(newTxnID()),
		Records: []walog.Record{{Type: walog.RecordDestroy, SegmentName: name}},
	}
	if err := e.appendFrame(frame); err != nil {
		return err
	}
	e.committed = append(e.committed, &Transaction{
		id:    TxnID(frame.TransID),
		state: txnCommitted,
		redo:  frame.Records,
	})

	path := segmentBackingPath(e.directory, name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// appendFrame writes frame to the live log, log-first: the frame reaches
// the file (and, when Sync is set, the disk) before the caller's commit
// returns.
func (e *Engine) appendFrame(frame walog.Frame) error {
	if e.logWriter == nil {
		return errs.NewErrorf(errs.ErrClosed, "engine for %s is closed", e.directory)
	}
	return e.logWriter.Append(frame, e.opts.Sync)
}

// Truncate folds every committed redo record into its segment's backing
// file and rewrites the log to contain only what couldn't be folded. Two
// back-to-back calls produce the same on-disk state as one.
func (e *Engine) Truncate() error {
	if e.logWriter == nil {
		return errs.NewErrorf(errs.ErrClosed, "engine for %s is closed", e.directory)
	}

	groups, order := e.groupCommittedBySegment()

	var unbacked []walog.Record
	for _, name := range order {
		records := groups[name]
		if len(records) == 0 {
			continue
		}
		if err := applyRecordsToBackingFile(segmentBackingPath(e.directory, name),
			records, e.opts.FileMode); err != nil {
			e.Warningf("checkpoint: could not fold records for segment %q: %v", name, err)
			unbacked = append(unbacked, records...)
			continue
		}
	}

	if err := e.swapLog(unbacked); err != nil {
		return err
	}

	if len(unbacked) == 0 {
		e.committed = nil
	} else {
		e.committed = []*Transaction{{
			id:    newTxnID(),
			state: txnCommitted,
			redo:  unbacked,
		}}
	}
	return nil
}

// groupCommittedBySegment scans the committed list once, grouping redo
// records by segment name in log order; a Destroy clears that name's
// group. order records the sequence in which names were first seen, so
// folding happens in a deterministic order.
func (e *Engine) groupCommittedBySegment() (map[string][]walog.Record, []string) {
	groups := make(map[string][]walog.Record)
	var order []string
	seen := make(map[string]bool)

	for _, txn := range e.committed {
		for _, rec := range txn.redo {
			if !seen[rec.SegmentName] {
				seen[rec.SegmentName] = true
				order = append(order, rec.SegmentName)
			}
			if rec.Type == walog.RecordDestroy {
				delete(groups, rec.SegmentName)
				continue
			}
			groups[rec.SegmentName] = append(groups[rec.SegmentName], rec)
		}
	}
	return groups, order
}

// applyRecordsToBackingFile opens or creates path and applies every Write
// record to it in order, extending the file with zero padding when a
// write starts past the current end. Later writes over the same range win
// because application happens in log order.
func applyRecordsToBackingFile(path string, records []walog.Record, mode os.FileMode) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, mode)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()

	for _, rec := range records {
		offset := int64(rec.Offset)
		if size < offset {
			if err := file.Truncate(offset); err != nil {
				return err
			}
			size = offset
		}
		if _, err := file.WriteAt(rec.Data, offset); err != nil {
			return err
		}
		if end := offset + int64(len(rec.Data)); end > size {
			size = end
		}
	}
	return file.Sync()
}

// swapLog atomically replaces the live log with one containing, at most,
// a single fresh transaction carrying records. The old log is removed only
// after the tmp file is fully written and synced, so a crash anywhere in
// between leaves a log that Open can still recover from.
func (e *Engine) swapLog(records []walog.Record) error {
	tmp, err := os.OpenFile(e.tmpLogPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, e.opts.FileMode)
	if err != nil {
		return err
	}

	if len(records) > 0 {
		frame := walog.Frame{TransID: int64(newTxnID()), Records: records}
		raw, err := frame.Encode()
		if err != nil {
			tmp.Close()
			return err
		}
		if _, err := tmp.Write(raw); err != nil {
			tmp.Close()
			return err
		}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := e.logFile.Close(); err != nil {
		return err
	}
	if err := os.Remove(e.logPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Rename(e.tmpLogPath, e.logPath); err != nil {
		return err
	}

	logFile, err := os.OpenFile(e.logPath, os.O_CREATE|os.O_RDWR|os.O_APPEND, e.opts.FileMode)
	if err != nil {
		return err
	}
	e.logFile = logFile
	e.logWriter = walog.NewLogWriter(logFile)
	return nil
}

// Close releases the engine's open file handles. Segments and transactions
// already mapped/begun through this engine become invalid; the caller is
// responsible for unmapping/committing/aborting them first.
func (e *Engine) Close() error {
	if e.logFile == nil {
		return nil
	}
	err := e.logFile.Close()
	e.logFile = nil
	e.logWriter = nil
	return err
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
