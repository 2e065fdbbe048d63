package rvm

import (
	"os"

	"go-rvm/internal/base/errs"
)

// Options carries the user-configurable knobs for an Engine.
type Options struct {
	// MaxReadSize bounds the buffered read size used while scanning the
	// redo log during recovery.
	MaxReadSize int

	// FileMode is used for every backing/log file the engine creates.
	FileMode os.FileMode

	// Sync, when true, fsyncs the log file after every commit and
	// checkpoint so that durability does not depend on the OS write-back
	// cache. Defaults to true.
	Sync bool
}

// DefaultOptions returns the Options used by Open when the caller doesn't
// supply any.
func DefaultOptions() *Options {
	return &Options{
		MaxReadSize: 64 * 1024,
		FileMode:    0600,
		Sync:        true,
	}
}

// Validate verifies user options for correctness.
func (o *Options) Validate() (status error) {
	if o.MaxReadSize < 64 {
		err := errs.NewErrorf(errs.ErrInvalid, "minimum read size must be at least 64 bytes")
		status = errs.MergeErrors(status, err)
	}
	if o.FileMode == 0 {
		err := errs.NewErrorf(errs.ErrInvalid, "file mode must be non-zero")
		status = errs.MergeErrors(status, err)
	}
	return status
}
