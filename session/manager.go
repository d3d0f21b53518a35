// Package session composes the command-slot table with the tmux window
// registry behind the public slot operations.
package session

import (
	"fmt"

	"slotmux/cmd"
	"slotmux/config"
	"slotmux/log"
	"slotmux/session/tmux"
)

// Manager is the dispatcher for slot operations. Construct one per host
// process with NewManager, and Close it once on exit to tear down every
// window it created.
type Manager struct {
	registry      *tmux.Registry
	commands      *CommandTable
	storage       *Storage
	newlineOnSend bool
	saveOnChange  bool
}

// NewManager builds a Manager from the host configuration. workDir is the
// directory new windows start in. state persists the command table and the
// slot-to-window mapping, and may be nil when persistence is disabled.
func NewManager(workDir string, cfg *config.Config, state config.StateManager) (*Manager, error) {
	return NewManagerWithDeps(workDir, cfg, state, cmd.MakeExecutor())
}

// NewManagerWithDeps builds a Manager with an injected executor for tests.
func NewManagerWithDeps(workDir string, cfg *config.Config, state config.StateManager, cmdExec cmd.Executor) (*Manager, error) {
	opts := tmux.Options{
		WindowName:  cfg.WindowName,
		KillCommand: cfg.KillCommand,
		Timeout:     cfg.CommandTimeout(),
	}
	registry := tmux.NewRegistryWithDeps(workDir, opts, cmdExec)

	var saver Saver
	var commands []string
	var store *Storage
	if state != nil {
		storage, err := NewStorage(state)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		commands, err = storage.LoadCommands()
		if err != nil {
			log.WarningLog.Printf("failed to load command table, starting empty: %v", err)
			commands = nil
		}
		windows, err := storage.LoadWindows()
		if err != nil {
			log.WarningLog.Printf("failed to load window mapping, starting empty: %v", err)
		}
		for slot, id := range windows {
			registry.Adopt(slot, id)
		}
		saver = storage
		store = storage
	}

	return &Manager{
		registry:      registry,
		commands:      NewCommandTable(commands, saver, cfg.SaveOnChange),
		storage:       store,
		newlineOnSend: cfg.NewlineOnSend,
		saveOnChange:  cfg.SaveOnChange,
	}, nil
}

// persistWindows records the current slot-to-window mapping. Persistence
// failures are logged, never propagated; the in-memory registry is
// authoritative for this process.
func (m *Manager) persistWindows() {
	if m.storage == nil || !m.saveOnChange {
		return
	}
	if err := m.storage.SaveWindows(m.registry.Identifiers()); err != nil {
		log.WarningLog.Printf("failed to save window mapping: %v", err)
	}
}

// window resolves the live window for slot and keeps the persisted mapping
// in step with any create or replace that resolution performed.
func (m *Manager) window(slot int) (*tmux.Window, error) {
	w, err := m.registry.GetOrCreate(slot)
	if err != nil {
		return nil, err
	}
	m.persistWindows()
	return w, nil
}

// SetNamer installs a dynamic window naming policy. Must be called before
// the first window is created.
func (m *Manager) SetNamer(namer tmux.Namer) {
	m.registry.SetNamer(namer)
}

// Goto focuses the window backing slot, creating it first if needed.
func (m *Manager) Goto(slot int) error {
	w, err := m.window(slot)
	if err != nil {
		return err
	}
	return w.Activate()
}

// Attach connects the caller's terminal to the window backing slot through a
// PTY, for processes running outside a tmux client. The returned channel is
// closed on detach.
func (m *Manager) Attach(slot int) (chan struct{}, error) {
	w, err := m.window(slot)
	if err != nil {
		return nil, err
	}
	return w.Attach()
}

// Send transmits text to the window backing slot, formatting it with
// fmt.Sprintf positional substitution. Empty text is a deliberate no-op.
func (m *Manager) Send(slot int, text string, args ...any) error {
	if text == "" {
		return nil
	}

	w, err := m.window(slot)
	if err != nil {
		return err
	}

	if len(args) > 0 {
		text = fmt.Sprintf(text, args...)
	}
	if m.newlineOnSend {
		text += "\n"
	}
	return w.SendKeys(text)
}

// SendStored transmits the command stored at cmdIdx to the window backing
// slot. A free or out-of-range command slot sends nothing: a slot with no
// configured command is valid.
func (m *Manager) SendStored(slot, cmdIdx int, args ...any) error {
	text, ok := m.commands.Get(cmdIdx)
	if !ok || text == "" {
		return nil
	}
	return m.Send(slot, text, args...)
}

// AddCommand stores cmd at the first empty slot and returns that slot.
func (m *Manager) AddCommand(command string) int {
	return m.commands.Add(command)
}

// RemoveCommand deletes the command at idx, compacting the table.
func (m *Manager) RemoveCommand(idx int) bool {
	return m.commands.Remove(idx)
}

// ReplaceCommands swaps the entire command table for the given list.
func (m *Manager) ReplaceCommands(commands []string) {
	m.commands.ReplaceAll(commands)
}

// Commands returns a copy of the command table.
func (m *Manager) Commands() []string {
	return m.commands.Commands()
}

// Length returns the command table length (maximum slot index present).
func (m *Manager) Length() int {
	return m.commands.Length()
}

// IsValidIndex reports whether idx addresses a command slot.
func (m *Manager) IsValidIndex(idx int) bool {
	return m.commands.IsValidIndex(idx)
}

// ActiveSlots returns the slots that currently have a window handle.
func (m *Manager) ActiveSlots() []int {
	return m.registry.Slots()
}

// WindowIdentifier returns the pane identifier registered for slot, or the
// empty string when the slot has no window.
func (m *Manager) WindowIdentifier(slot int) string {
	w, ok := m.registry.Lookup(slot)
	if !ok {
		return ""
	}
	return w.Identifier()
}

// ClearAll kills every window in the registry. Teardown is best-effort
// across the set; the registry ends empty regardless.
func (m *Manager) ClearAll() error {
	err := m.registry.ClearAll()
	if m.storage != nil {
		if serr := m.storage.DeleteAllWindows(); serr != nil {
			log.WarningLog.Printf("failed to clear window mapping: %v", serr)
		}
	}
	return err
}

// Close is the process-exit teardown hook. Run it exactly once.
func (m *Manager) Close() error {
	return m.ClearAll()
}
