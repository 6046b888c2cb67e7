package dispatch

import (
	"errors"
	"fmt"
)

// ErrNotPushRegistered is returned when a device exposes no delivery path at
// all. It is raised synchronously, before any work is queued.
var ErrNotPushRegistered = errors.New("device is not push registered")

// TransientPushFailure reports a recoverable failure from the platform push
// gateway. During ordinary message delivery it is logged and swallowed;
// during an explicit wake-up request it is surfaced to the caller.
type TransientPushFailure struct {
	Cause error
}

func (e *TransientPushFailure) Error() string {
	return fmt.Sprintf("transient push failure: %v", e.Cause)
}

func (e *TransientPushFailure) Unwrap() error {
	return e.Cause
}

// IsTransientPushFailure reports whether err is (or wraps) a transient
// gateway failure.
func IsTransientPushFailure(err error) bool {
	var t *TransientPushFailure
	return errors.As(err, &t)
}
