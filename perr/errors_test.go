// File: perr/errors_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package perr

import "testing"

func TestWithContextDoesNotMutateReceiver(t *testing.T) {
	base := ErrBadParameter
	derived := base.WithContext("pool", "io")

	if len(base.Context) != 0 {
		t.Errorf("expected sentinel's context to remain empty, got %+v", base.Context)
	}
	if derived.Context["pool"] != "io" {
		t.Errorf("expected derived error to carry the new context entry")
	}
}

func TestCodeOf(t *testing.T) {
	err := ErrInvalidArgument.WithContext("pool", "io")
	code, ok := CodeOf(err)
	if !ok {
		t.Fatalf("expected CodeOf to recognize a *Error")
	}
	if code != CodeInvalidArgument {
		t.Errorf("CodeOf = %v, want %v", code, CodeInvalidArgument)
	}

	if _, ok := CodeOf(nil); ok {
		t.Errorf("expected CodeOf(nil) to report false")
	}
}

func TestErrorMessageIncludesContext(t *testing.T) {
	err := ErrBadParameter.WithContext("pu", 3)
	if err.Error() == ErrBadParameter.Message {
		t.Errorf("expected Error() to include context when present")
	}
}
