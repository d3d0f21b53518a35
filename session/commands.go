package session

import (
	"slotmux/log"
)

// Saver persists the command table. The table signals it after every
// mutation; whether that actually writes anything is the caller's policy.
type Saver interface {
	SaveCommands(commands []string) error
}

// CommandTable is the slot-to-command mapping. Slot N lives at element N-1;
// an empty string marks a free slot, which is the target of the next
// auto-assigned command. The table's length is the maximum slot index
// present, not the count of non-empty entries, since replacement can leave
// gaps.
type CommandTable struct {
	commands     []string
	saver        Saver
	saveOnChange bool
}

// NewCommandTable creates a table seeded with the given commands. saver may
// be nil; it is only consulted when saveOnChange is set.
func NewCommandTable(commands []string, saver Saver, saveOnChange bool) *CommandTable {
	return &CommandTable{
		commands:     append([]string(nil), commands...),
		saver:        saver,
		saveOnChange: saveOnChange,
	}
}

// Length returns the maximum slot index currently present (0 if empty).
func (t *CommandTable) Length() int {
	return len(t.commands)
}

// IsValidIndex reports whether idx addresses a slot inside the table.
func (t *CommandTable) IsValidIndex(idx int) bool {
	return idx > 0 && idx <= t.Length()
}

// Get returns the command stored at idx.
func (t *CommandTable) Get(idx int) (string, bool) {
	if !t.IsValidIndex(idx) {
		return "", false
	}
	return t.commands[idx-1], true
}

// Commands returns a copy of the table contents.
func (t *CommandTable) Commands() []string {
	return append([]string(nil), t.commands...)
}

// FirstEmptySlot returns the smallest slot whose command is the empty
// string, or Length()+1 when every slot is taken.
func (t *CommandTable) FirstEmptySlot() int {
	for i, cmd := range t.commands {
		if cmd == "" {
			return i + 1
		}
	}
	return t.Length() + 1
}

// Add writes cmd at the first empty slot and returns that slot.
func (t *CommandTable) Add(cmd string) int {
	slot := t.FirstEmptySlot()
	if slot > len(t.commands) {
		t.commands = append(t.commands, cmd)
	} else {
		t.commands[slot-1] = cmd
	}
	t.signalChange()
	return slot
}

// Remove deletes the command at idx and shifts every subsequent entry down
// by one slot. Invalid indices are a no-op with a diagnostic.
func (t *CommandTable) Remove(idx int) bool {
	if !t.IsValidIndex(idx) {
		log.WarningLog.Printf("cannot remove command: invalid slot %d (table length %d)", idx, t.Length())
		return false
	}

	t.commands = append(t.commands[:idx-1], t.commands[idx:]...)
	t.signalChange()
	return true
}

// ReplaceAll clears every existing entry and installs the new list.
func (t *CommandTable) ReplaceAll(commands []string) {
	t.commands = append([]string(nil), commands...)
	t.signalChange()
}

// signalChange notifies the persistence collaborator. Persistence failures
// are logged, not propagated: the in-memory table is already updated.
func (t *CommandTable) signalChange() {
	if !t.saveOnChange || t.saver == nil {
		return
	}
	if err := t.saver.SaveCommands(t.commands); err != nil {
		log.ErrorLog.Printf("failed to persist command table: %v", err)
	}
}
