package tmux

import (
	"bytes"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"slotmux/cmd"
	"slotmux/log"
)

// Namer computes a display name for a freshly created window. paneID carries
// the sentinel prefix; windowID is the "@N" identifier tmux printed alongside
// it.
type Namer func(slot int, paneID, windowID string) string

// Options fixes window-creation and send behavior for the life of a Registry.
type Options struct {
	// WindowName is a static name passed to new-window via -n. Ignored when
	// Namer is set.
	WindowName string
	// Namer, when set, names windows after creation with a best-effort
	// rename-window call.
	Namer Namer
	// KillCommand overrides the verb used to destroy windows
	// (DefaultKillCommand when empty).
	KillCommand string
	// Timeout bounds every tmux subprocess. Zero means wait indefinitely,
	// matching tmux's own behavior.
	Timeout time.Duration
}

// Registry maps slots to window handles, creating windows lazily. It owns
// every handle it creates; entries are replaced in place when a stale handle
// is detected and removed en masse only by ClearAll.
type Registry struct {
	mu       sync.Mutex
	windows  map[int]*Window
	creating map[int]*sync.Mutex

	workDir string
	cmdExec cmd.Executor
	opts    Options
}

// NewRegistry creates a Registry whose windows start in workDir.
func NewRegistry(workDir string, opts Options) *Registry {
	return NewRegistryWithDeps(workDir, opts, cmd.MakeExecutor())
}

// NewRegistryWithDeps creates a Registry with an injected executor for tests.
func NewRegistryWithDeps(workDir string, opts Options, cmdExec cmd.Executor) *Registry {
	return &Registry{
		windows:  make(map[int]*Window),
		creating: make(map[int]*sync.Mutex),
		workDir:  workDir,
		cmdExec:  cmdExec,
		opts:     opts,
	}
}

// SetNamer installs a dynamic naming policy. Call before the first window is
// created; naming is fixed for windows that already exist.
func (r *Registry) SetNamer(namer Namer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opts.Namer = namer
}

// slotLock returns the creation lock for a slot. Holding it makes
// get-or-create atomic per slot, so two overlapping lookups cannot both
// create a window and leak one.
func (r *Registry) slotLock(slot int) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.creating[slot]
	if !ok {
		l = &sync.Mutex{}
		r.creating[slot] = l
	}
	return l
}

// GetOrCreate returns the live window for slot, creating one when the slot
// has no window yet or its window no longer exists. Creation failures
// propagate and leave the registry untouched.
func (r *Registry) GetOrCreate(slot int) (*Window, error) {
	lock := r.slotLock(slot)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	w := r.windows[slot]
	r.mu.Unlock()

	if w != nil && w.Exists() {
		return w, nil
	}

	w, err := r.createWindow(slot)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.windows[slot] = w
	r.mu.Unlock()
	return w, nil
}

// Handle wraps a literal pane identifier without consulting or mutating the
// registry. Lookups by raw identifier never create windows.
func (r *Registry) Handle(id string) *Window {
	if !strings.HasPrefix(id, IdentifierPrefix) {
		id = IdentifierPrefix + id
	}
	return newWindow(id, r.cmdExec, r.opts.Timeout)
}

// Adopt registers an existing pane identifier under slot without creating
// anything. Dead panes are fine to adopt; GetOrCreate replaces them on the
// next lookup.
func (r *Registry) Adopt(slot int, id string) {
	w := r.Handle(id)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows[slot] = w
}

// Identifiers returns the pane identifier registered for each slot.
func (r *Registry) Identifiers() map[int]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int]string, len(r.windows))
	for slot, w := range r.windows {
		out[slot] = w.Identifier()
	}
	return out
}

func (r *Registry) createWindow(slot int) (*Window, error) {
	args := []string{"new-window", "-P", "-F", "#{pane_id}:#{window_id}"}
	if r.opts.Namer == nil && r.opts.WindowName != "" {
		args = append(args, "-n", r.opts.WindowName)
	}
	if r.workDir != "" {
		args = append(args, "-c", r.workDir)
	}

	var stdout, stderr bytes.Buffer
	tc, ctx, cancel := tmuxCommand(r.opts.Timeout, args...)
	defer cancel()
	tc.Stdout = &stdout
	tc.Stderr = &stderr

	if err := r.cmdExec.Run(tc); err != nil {
		if terr := timedOut(ctx, "new-window", err); terr != nil {
			return nil, terr
		}
		return nil, &CreationError{Stderr: stderr.String(), Err: err}
	}

	line := strings.TrimSpace(stdout.String())
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	parts := strings.Split(line, ":")
	if len(parts) != 2 {
		return nil, &ParseError{Line: line}
	}

	paneID := IdentifierPrefix + strings.TrimPrefix(parts[0], IdentifierPrefix)
	windowID := parts[1]

	if r.opts.Namer != nil {
		// Best effort: the window exists and is usable whatever it is called
		name := r.opts.Namer(slot, paneID, windowID)
		tc, _, cancel := tmuxCommand(r.opts.Timeout, "rename-window", "-t", windowID, name)
		if err := r.cmdExec.Run(tc); err != nil {
			log.WarningLog.Printf("failed to rename window %s to %q: %v", windowID, name, err)
		}
		cancel()
	}

	log.InfoLog.Printf("created window %s (%s) for slot %d", paneID, windowID, slot)
	return newWindow(paneID, r.cmdExec, r.opts.Timeout), nil
}

// Slots returns the slots that currently have a handle, sorted ascending.
func (r *Registry) Slots() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	slots := make([]int, 0, len(r.windows))
	for slot := range r.windows {
		slots = append(slots, slot)
	}
	sort.Ints(slots)
	return slots
}

// Lookup returns the handle currently registered for slot, if any. It never
// creates and never checks liveness.
func (r *Registry) Lookup(slot int) (*Window, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.windows[slot]
	return w, ok
}

// ClearAll kills every registered window. Teardown is best-effort across the
// set: each entry is attempted regardless of earlier failures, and the
// registry ends empty unconditionally.
func (r *Registry) ClearAll() error {
	r.mu.Lock()
	windows := make(map[int]*Window, len(r.windows))
	for slot, w := range r.windows {
		windows[slot] = w
	}
	r.windows = make(map[int]*Window)
	r.mu.Unlock()

	var errs []error
	for slot, w := range windows {
		if err := w.Kill(r.opts.KillCommand); err != nil {
			log.ErrorLog.Printf("failed to kill window for slot %d: %v", slot, err)
			errs = append(errs, err)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}

	errMsg := "multiple errors during teardown:"
	for _, err := range errs {
		errMsg += "\n  - " + err.Error()
	}
	return errors.New(errMsg)
}
