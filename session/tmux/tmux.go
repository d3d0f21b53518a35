// Package tmux drives terminal windows hosted by a tmux server. Each window
// is addressed by the opaque pane identifier tmux assigned at creation time
// (e.g. "%3"); all interaction happens through one-shot tmux subprocesses.
package tmux

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"slotmux/cmd"
)

// IdentifierPrefix is the sentinel tmux puts in front of pane identifiers.
// Identifiers are stored with the prefix applied.
const IdentifierPrefix = "%"

// DefaultKillCommand is the tmux verb used to destroy a window when no
// override is configured.
const DefaultKillCommand = "kill-pane"

// targetFormat resolves a pane id to a fully-qualified session:window.pane
// address.
const targetFormat = "#{session_name}:#{window_id}.#{pane_id}"

// Window mediates every interaction with one tmux-hosted window.
type Window struct {
	id      string
	cmdExec cmd.Executor
	timeout time.Duration

	// Initialized by Attach, deinitialized by Detach
	attach *attachState
}

func newWindow(id string, cmdExec cmd.Executor, timeout time.Duration) *Window {
	return &Window{
		id:      id,
		cmdExec: cmdExec,
		timeout: timeout,
	}
}

// Identifier returns the window's pane identifier, prefix included.
func (w *Window) Identifier() string {
	return w.id
}

// tmuxCommand builds a tmux invocation bounded by the configured timeout.
// The returned cancel must run after the command completes.
func tmuxCommand(timeout time.Duration, args ...string) (*exec.Cmd, context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return exec.Command("tmux", args...), context.Background(), func() {}
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	return exec.CommandContext(ctx, "tmux", args...), ctx, cancel
}

// timedOut maps a context deadline expiry onto a TimeoutError, or returns nil
// when the failure had another cause.
func timedOut(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Op: op, Err: err}
	}
	return nil
}

// Exists reports whether a live tmux session backs this window. A non-zero
// exit is "no", never an error.
func (w *Window) Exists() bool {
	tc, _, cancel := tmuxCommand(w.timeout, "has-session", "-t", w.id)
	defer cancel()
	return w.cmdExec.Run(tc) == nil
}

// Target resolves the window's identifier to a session:window.pane address.
// Returns ErrTargetNotFound when no pane matches.
func (w *Window) Target() (string, error) {
	filter := fmt.Sprintf("#{==:#{pane_id},%s}", w.id)
	tc, ctx, cancel := tmuxCommand(w.timeout, "list-panes", "-s", "-f", filter, "-F", targetFormat)
	defer cancel()

	output, err := w.cmdExec.Output(tc)
	if err != nil {
		if terr := timedOut(ctx, "list-panes", err); terr != nil {
			return "", terr
		}
		return "", fmt.Errorf("failed to locate window %s: %w", w.id, err)
	}

	target := strings.TrimSpace(string(output))
	if target == "" {
		return "", ErrTargetNotFound
	}
	// Filtered on pane id equality, so at most one line comes back
	if i := strings.IndexByte(target, '\n'); i >= 0 {
		target = target[:i]
	}
	return target, nil
}

// Activate focuses this window in the attached tmux client.
func (w *Window) Activate() error {
	target, err := w.Target()
	if err != nil {
		return err
	}

	var stderr bytes.Buffer
	tc, ctx, cancel := tmuxCommand(w.timeout, "switch-client", "-t", target)
	defer cancel()
	tc.Stderr = &stderr

	if err := w.cmdExec.Run(tc); err != nil {
		if terr := timedOut(ctx, "switch-client", err); terr != nil {
			return terr
		}
		return &ActivationError{Target: target, Stderr: stderr.String(), Err: err}
	}
	return nil
}

// SendKeys formats text with fmt.Sprintf positional substitution and
// transmits the result to the window.
func (w *Window) SendKeys(text string, args ...any) error {
	if len(args) > 0 {
		text = fmt.Sprintf(text, args...)
	}

	var stderr bytes.Buffer
	tc, ctx, cancel := tmuxCommand(w.timeout, "send-keys", "-t", w.id, text)
	defer cancel()
	tc.Stderr = &stderr

	if err := w.cmdExec.Run(tc); err != nil {
		if terr := timedOut(ctx, "send-keys", err); terr != nil {
			return terr
		}
		return &TransmissionError{Stderr: stderr.String(), Err: err}
	}
	return nil
}

// Kill destroys the window with the given tmux verb ("" means
// DefaultKillCommand). A failed kill against a window that no longer exists
// is treated as already satisfied.
func (w *Window) Kill(killCmd string) error {
	if killCmd == "" {
		killCmd = DefaultKillCommand
	}

	var stderr bytes.Buffer
	tc, ctx, cancel := tmuxCommand(w.timeout, killCmd, "-t", w.id)
	defer cancel()
	tc.Stderr = &stderr

	err := w.cmdExec.Run(tc)
	if err == nil {
		return nil
	}

	if !w.Exists() {
		// Idempotent kill: the window is gone, which is all we wanted
		return nil
	}
	if terr := timedOut(ctx, killCmd, err); terr != nil {
		return terr
	}
	return &TeardownError{Identifier: w.id, Stderr: stderr.String(), Err: err}
}

// IsAvailable checks if tmux is installed and runnable.
func IsAvailable() bool {
	return exec.Command("tmux", "-V").Run() == nil
}
