//
// This file defines client interface for this package.
//

package errs

// Errors interface defines pre-defined errors. They also serve as error
// categories when users choose to create errors with custom messages if
// necessary.
var (
	ErrInvalid  = &SimpleError{Category: "ErrInvalid"}
	ErrExist    = &SimpleError{Category: "ErrExist"}
	ErrNotExist = &SimpleError{Category: "ErrNotExist"}
	ErrCorrupt  = &SimpleError{Category: "ErrCorrupt"}
	ErrClosed   = &SimpleError{Category: "ErrClosed"}

	// If necessary, add new errors above and define one or more Is* functions as
	// necessary.
)

// Is* functions check if an error object belongs to an error category.
func IsInvalid(err error) bool  { return ErrInvalid.isSimilar(err) }
func IsExist(err error) bool    { return ErrExist.isSimilar(err) }
func IsNotExist(err error) bool { return ErrNotExist.isSimilar(err) }
func IsCorrupt(err error) bool  { return ErrCorrupt.isSimilar(err) }
func IsClosed(err error) bool   { return ErrClosed.isSimilar(err) }

// NewErrorf creates an error of pre-defined error category with an
// user-defined error message.
func NewErrorf(category *SimpleError, format string,
	args ...interface{}) error {

	return category.newErrorf(format, args...)
}
