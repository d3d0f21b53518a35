package tmux

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTargetNotFound is returned when a window identifier resolves to zero
// panes, e.g. after the window was killed outside of slotmux.
var ErrTargetNotFound = errors.New("no pane matches window identifier")

// CreationError reports a failed new-window call.
type CreationError struct {
	Stderr string
	Err    error
}

func (e *CreationError) Error() string {
	return withStderr(fmt.Sprintf("failed to create window: %v", e.Err), e.Stderr)
}

func (e *CreationError) Unwrap() error { return e.Err }

// ParseError reports malformed new-window output. Creation output must be a
// single "<pane_id>:<window_id>" line; anything else aborts before the
// registry is touched.
type ParseError struct {
	Line string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed window creation output: %q", e.Line)
}

// ActivationError reports a failed switch-client call.
type ActivationError struct {
	Target string
	Stderr string
	Err    error
}

func (e *ActivationError) Error() string {
	return withStderr(fmt.Sprintf("failed to activate %s: %v", e.Target, e.Err), e.Stderr)
}

func (e *ActivationError) Unwrap() error { return e.Err }

// TransmissionError reports a failed send-keys call.
type TransmissionError struct {
	Stderr string
	Err    error
}

func (e *TransmissionError) Error() string {
	return withStderr(fmt.Sprintf("failed to send keys: %v", e.Err), e.Stderr)
}

func (e *TransmissionError) Unwrap() error { return e.Err }

// TeardownError reports a kill that failed while the window verifiably still
// exists. A kill that fails against an already-gone window is not an error.
type TeardownError struct {
	Identifier string
	Stderr     string
	Err        error
}

func (e *TeardownError) Error() string {
	return withStderr(fmt.Sprintf("failed to kill window %s: %v", e.Identifier, e.Err), e.Stderr)
}

func (e *TeardownError) Unwrap() error { return e.Err }

// TimeoutError reports a tmux call that exceeded the configured bound.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("tmux %s timed out: %v", e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

func withStderr(msg, stderr string) string {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return msg
	}
	return msg + ": " + stderr
}
