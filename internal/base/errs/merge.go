//
// This file defines MergeErrors, a small helper for accumulating zero or
// more errors from a sequence of cleanup/validation steps into one error
// value without losing any of them.
//

package errs

// MergeErrors combines any number of errors (including nils) into a single
// error. Returns nil if every argument is nil. Returns the error unchanged
// if only one is non-nil, so callers don't pay for an ErrorList wrapper in
// the common case.
func MergeErrors(first error, rest ...error) error {
	var present []error
	if first != nil {
		present = append(present, first)
	}
	for _, err := range rest {
		if err != nil {
			present = append(present, err)
		}
	}

	switch len(present) {
	case 0:
		return nil
	case 1:
		return present[0]
	default:
		return NewErrorList(present[0], present[1:]...)
	}
}
