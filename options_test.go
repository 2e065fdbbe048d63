package rvm

import (
	"testing"

	"go-rvm/internal/base/errs"
)

func TestDefaultOptionsValidate(t *testing.T) {
	if err := DefaultOptions().Validate(); err != nil {
		t.Errorf("DefaultOptions().Validate() = %v, want nil", err)
	}
}

func TestOptionsValidateAccumulatesErrors(t *testing.T) {
	opts := &Options{MaxReadSize: 0, FileMode: 0}
	err := opts.Validate()
	list, ok := err.(*errs.ErrorList)
	if !ok {
		t.Fatalf("Validate() = %v (%T), want an *errs.ErrorList", err, err)
	}
	if !errs.IsInvalid(list.FirstError()) {
		t.Errorf("Validate().FirstError() = %v, want ErrInvalid", list.FirstError())
	}
}
