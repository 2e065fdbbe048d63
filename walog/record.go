//
// This file defines the on-disk record format for redo records and the
// codec that serializes and parses them. All integers are fixed-width and
// host-endian: a redo log written by one process is only ever read back by
// a later process on the same host, so the format deliberately trades
// portability for a byte layout that needs no tagging or varint decoding.
//

package walog

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"go-rvm/internal/base/errs"
)

// RecordType distinguishes a redo write from a destroy tombstone.
type RecordType uint32

const (
	RecordWrite   RecordType = 1
	RecordDestroy RecordType = 2
)

func (t RecordType) String() string {
	switch t {
	case RecordWrite:
		return "Write"
	case RecordDestroy:
		return "Destroy"
	default:
		return fmt.Sprintf("RecordType(%d)", uint32(t))
	}
}

// Record is one redo record as it appears on disk: a Write carries the
// bytes to re-apply at (SegmentName, Offset); a Destroy carries only the
// segment name and acts as a tombstone for every earlier Write record with
// that name.
type Record struct {
	Type        RecordType
	SegmentName string
	Offset      uint64
	Data        []byte
}

// byteOrder is the wire order for every fixed-width integer in this
// package.
var byteOrder = binary.NativeEndian

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	byteOrder.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeUint64(w io.Writer, v uint64) error {
	var b [8]byte
	byteOrder.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeInt64(w io.Writer, v int64) error {
	return writeUint64(w, uint64(v))
}

func writeSizedBytes(w io.Writer, data []byte) error {
	if err := writeUint64(w, uint64(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// encodeRecord appends the on-disk bytes for r to w.
func encodeRecord(w io.Writer, r Record) error {
	if err := writeUint32(w, uint32(r.Type)); err != nil {
		return err
	}
	if err := writeSizedBytes(w, []byte(r.SegmentName)); err != nil {
		return err
	}
	if r.Type == RecordDestroy {
		return nil
	}
	if err := writeUint64(w, r.Offset); err != nil {
		return err
	}
	return writeSizedBytes(w, r.Data)
}

// maxNameLen and maxDataLen bound how much a single malformed length
// prefix can make the reader allocate. A torn or garbage tail often
// contains a length field that decodes to a huge number; the reader must
// treat that as corruption rather than attempt the read.
const (
	maxNameLen = 4096
	maxDataLen = 1 << 34
)

func readUint32(r *bufio.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return byteOrder.Uint32(b[:]), nil
}

func readUint64(r *bufio.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return byteOrder.Uint64(b[:]), nil
}

func readInt64(r *bufio.Reader) (int64, error) {
	v, err := readUint64(r)
	return int64(v), err
}

func readSizedBytes(r *bufio.Reader, maxLen uint64) ([]byte, error) {
	size, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	if size > maxLen {
		return nil, errs.ErrCorrupt
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}

// decodeRecord parses one record from r. Returns io.EOF or
// io.ErrUnexpectedEOF if the record is torn (the caller treats that as
// "stop scanning"), and errs.ErrCorrupt if the record's own fields are
// self-contradictory: an unrecognized type, an empty segment name, or an
// implausible length.
func decodeRecord(r *bufio.Reader) (Record, error) {
	rawType, err := readUint32(r)
	if err != nil {
		return Record{}, err
	}

	rec := Record{Type: RecordType(rawType)}
	nameBytes, err := readSizedBytes(r, maxNameLen)
	if err != nil {
		return Record{}, err
	}
	rec.SegmentName = string(nameBytes)

	switch rec.Type {
	case RecordDestroy:
		if len(rec.SegmentName) == 0 {
			return Record{}, errs.ErrCorrupt
		}
		return rec, nil
	case RecordWrite:
		offset, err := readUint64(r)
		if err != nil {
			return Record{}, err
		}
		data, err := readSizedBytes(r, maxDataLen)
		if err != nil {
			return Record{}, err
		}
		if len(rec.SegmentName) == 0 {
			return Record{}, errs.ErrCorrupt
		}
		rec.Offset = offset
		rec.Data = data
		return rec, nil
	default:
		return Record{}, errs.ErrCorrupt
	}
}
