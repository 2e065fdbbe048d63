//
// This file defines the SimpleError type which implements helper functions
// for managing errors.
//

package errs

import (
	"fmt"
)

// SimpleError type implements serializable errors.
type SimpleError struct {
	Category string
	Message  *string
}

// Error implements the Go language's standard error interface.
func (this *SimpleError) Error() string {
	if this.Message == nil {
		return this.Category
	}
	return fmt.Sprintf("%s{%s}", this.Category, *this.Message)
}

func (this *SimpleError) newErrorf(format string,
	args ...interface{}) *SimpleError {

	message := fmt.Sprintf(format, args...)
	newErr := &SimpleError{
		Category: this.Category,
		Message:  &message,
	}
	return newErr
}

func (this *SimpleError) isSimilar(err error) bool {
	if x, ok := err.(*SimpleError); ok {
		return x.Category == this.Category
	}
	return false
}
