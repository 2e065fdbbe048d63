//
// Tests for frame encode/decode, LogWriter.Append, and ScanLog's handling
// of torn and corrupt tails.
//

package walog

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRawLog(t *testing.T, path string, chunks ...[]byte) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		t.Fatalf("OpenFile(%s) failed: %v", path, err)
	}
	defer file.Close()
	for _, chunk := range chunks {
		if _, err := file.Write(chunk); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
}

func testFrame() Frame {
	return Frame{
		TransID: 42,
		Records: []Record{
			{Type: RecordWrite, SegmentName: "testseg", Offset: 0, Data: []byte("hello, world")},
			{Type: RecordWrite, SegmentName: "testseg", Offset: 1000, Data: []byte("hello, world")},
		},
	}
}

func TestScanLogCleanFrames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log")

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	w := NewLogWriter(file)

	f1 := testFrame()
	f2 := Frame{TransID: 43, Records: []Record{{Type: RecordDestroy, SegmentName: "testseg"}}}
	if err := w.Append(f1, false); err != nil {
		t.Fatalf("Append(f1) failed: %v", err)
	}
	if err := w.Append(f2, false); err != nil {
		t.Fatalf("Append(f2) failed: %v", err)
	}
	file.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}

	var got []Frame
	validOffset, err := ScanLogInto(path, 4096, func(f Frame) error {
		got = append(got, f)
		return nil
	})
	if err != nil {
		t.Fatalf("ScanLogInto failed: %v", err)
	}
	if validOffset != info.Size() {
		t.Errorf("validOffset = %d, want %d (whole file)", validOffset, info.Size())
	}
	if len(got) != 2 {
		t.Fatalf("got %d frames, want 2", len(got))
	}
	if got[0].TransID != f1.TransID || got[1].TransID != f2.TransID {
		t.Errorf("frames out of order: %+v", got)
	}
}

func TestScanLogMissingFile(t *testing.T) {
	dir := t.TempDir()
	validOffset, err := ScanLog(filepath.Join(dir, "absent"), 4096)
	if err != nil {
		t.Errorf("ScanLog on missing file returned %v, want nil", err)
	}
	if validOffset != 0 {
		t.Errorf("validOffset = %d, want 0", validOffset)
	}
}

func TestScanLogTornTail(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log")

	f1 := testFrame()
	raw, err := f1.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	// A torn second frame: ten bytes, shorter than a full 16-byte header,
	// as if the process crashed mid-Append.
	torn := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	writeRawLog(t, path, raw, torn)

	var got []Frame
	validOffset, err := ScanLogInto(path, 4096, func(f Frame) error {
		got = append(got, f)
		return nil
	})
	if err != nil {
		t.Fatalf("ScanLogInto on torn tail returned error: %v", err)
	}
	if validOffset != int64(len(raw)) {
		t.Errorf("validOffset = %d, want %d (end of valid prefix)", validOffset, len(raw))
	}
	if len(got) != 1 {
		t.Fatalf("got %d frames, want 1", len(got))
	}
}

func TestScanLogTrailerMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log")

	f := testFrame()
	raw, err := f.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	// Corrupt the trailer's trans_id (last 8 bytes) without changing length,
	// so decodeFrame reads a complete frame whose trailer disagrees.
	corrupt := make([]byte, len(raw))
	copy(corrupt, raw)
	corrupt[len(corrupt)-1] ^= 0xFF

	writeRawLog(t, path, corrupt)

	validOffset, err := ScanLog(path, 4096)
	if err != nil {
		t.Fatalf("ScanLog on trailer mismatch returned error: %v", err)
	}
	if validOffset != 0 {
		t.Errorf("validOffset = %d, want 0 (no valid frames)", validOffset)
	}
}
