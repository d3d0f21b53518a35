package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"slotmux/log"
)

const StateFileName = "state.json"

// CommandStorage handles persistence of the command-slot table
type CommandStorage interface {
	// SaveCommands saves the raw command table data
	SaveCommands(commandsJSON json.RawMessage) error
	// GetCommands returns the raw command table data
	GetCommands() json.RawMessage
	// DeleteAllCommands removes every stored command
	DeleteAllCommands() error
}

// WindowStorage handles persistence of the slot-to-window mapping
type WindowStorage interface {
	// SaveWindows saves the raw window mapping data
	SaveWindows(windowsJSON json.RawMessage) error
	// GetWindows returns the raw window mapping data
	GetWindows() json.RawMessage
	// DeleteAllWindows removes every stored window mapping
	DeleteAllWindows() error
}

// StateManager combines command and window storage
type StateManager interface {
	CommandStorage
	WindowStorage
}

// State represents the application state that persists between runs
type State struct {
	// CommandsData stores the serialized command-slot table as raw JSON
	CommandsData json.RawMessage `json:"commands"`

	// WindowsData stores the serialized slot-to-window mapping as raw JSON
	WindowsData json.RawMessage `json:"windows"`

	// lastModTime tracks when we last read the state file (not serialized)
	lastModTime time.Time `json:"-"`
}

// DefaultState returns the default state
func DefaultState() *State {
	return &State{
		CommandsData: json.RawMessage("[]"),
		WindowsData:  json.RawMessage("{}"),
	}
}

// LoadState loads the state from disk. If it cannot be done, we return the
// default state. Acquires a shared lock to allow concurrent reads.
func LoadState() *State {
	configDir, err := GetConfigDir()
	if err != nil {
		log.ErrorLog.Printf("failed to get config directory: %v", err)
		return DefaultState()
	}

	statePath := filepath.Join(configDir, StateFileName)

	lock := NewFileLock(statePath)
	if err := lock.RLock(); err != nil {
		log.WarningLog.Printf("failed to acquire read lock: %v", err)
		// Continue without lock - better to have stale data than fail
	} else {
		defer lock.Unlock()
	}

	var modTime time.Time
	if info, err := os.Stat(statePath); err == nil {
		modTime = info.ModTime()
	}

	data, err := os.ReadFile(statePath)
	if err != nil {
		if os.IsNotExist(err) {
			defaultState := DefaultState()
			defaultState.lastModTime = time.Now()
			if saveErr := SaveState(defaultState); saveErr != nil {
				log.WarningLog.Printf("failed to save default state: %v", saveErr)
			}
			return defaultState
		}

		log.WarningLog.Printf("failed to get state file: %v", err)
		return DefaultState()
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		log.ErrorLog.Printf("failed to parse state file: %v", err)
		return DefaultState()
	}

	state.lastModTime = modTime
	return &state
}

// SaveState saves the state to disk.
// Acquires an exclusive lock to prevent concurrent writes.
func SaveState(state *State) error {
	configDir, err := GetConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	statePath := filepath.Join(configDir, StateFileName)

	lock := NewFileLock(statePath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire write lock: %w", err)
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(statePath, data, 0644); err != nil {
		return err
	}

	if info, err := os.Stat(statePath); err == nil {
		state.lastModTime = info.ModTime()
	}

	return nil
}

// CommandStorage interface implementation

// SaveCommands saves the raw command table data
func (s *State) SaveCommands(commandsJSON json.RawMessage) error {
	s.CommandsData = commandsJSON
	return SaveState(s)
}

// GetCommands returns the raw command table data
func (s *State) GetCommands() json.RawMessage {
	return s.CommandsData
}

// DeleteAllCommands removes every stored command
func (s *State) DeleteAllCommands() error {
	s.CommandsData = json.RawMessage("[]")
	return SaveState(s)
}

// WindowStorage interface implementation

// SaveWindows saves the raw window mapping data
func (s *State) SaveWindows(windowsJSON json.RawMessage) error {
	s.WindowsData = windowsJSON
	return SaveState(s)
}

// GetWindows returns the raw window mapping data
func (s *State) GetWindows() json.RawMessage {
	return s.WindowsData
}

// DeleteAllWindows removes every stored window mapping
func (s *State) DeleteAllWindows() error {
	s.WindowsData = json.RawMessage("{}")
	return SaveState(s)
}

// GetLastModTime returns the modification time when this state was last read
// from disk.
func (s *State) GetLastModTime() time.Time {
	return s.lastModTime
}

// GetStateModTime returns the current modification time of the state file on
// disk.
func GetStateModTime() (time.Time, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return time.Time{}, err
	}

	statePath := filepath.Join(configDir, StateFileName)
	info, err := os.Stat(statePath)
	if err != nil {
		return time.Time{}, err
	}

	return info.ModTime(), nil
}

// NeedsRefresh checks if the state file has been modified since the given
// time.
func NeedsRefresh(since time.Time) bool {
	modTime, err := GetStateModTime()
	if err != nil {
		return false
	}
	return modTime.After(since)
}

// RefreshFromDisk reloads the state from disk if it has been modified.
// Returns true if the state was refreshed, false if no refresh was needed.
func (s *State) RefreshFromDisk() (bool, error) {
	if !NeedsRefresh(s.lastModTime) {
		return false, nil
	}

	configDir, err := GetConfigDir()
	if err != nil {
		return false, fmt.Errorf("failed to get config directory: %w", err)
	}

	statePath := filepath.Join(configDir, StateFileName)

	lock := NewFileLock(statePath)
	if err := lock.RLock(); err != nil {
		return false, fmt.Errorf("failed to acquire read lock: %w", err)
	}
	defer lock.Unlock()

	info, err := os.Stat(statePath)
	if err != nil {
		return false, fmt.Errorf("failed to stat state file: %w", err)
	}

	data, err := os.ReadFile(statePath)
	if err != nil {
		return false, fmt.Errorf("failed to read state file: %w", err)
	}

	var newState State
	if err := json.Unmarshal(data, &newState); err != nil {
		return false, fmt.Errorf("failed to parse state file: %w", err)
	}

	s.CommandsData = newState.CommandsData
	s.WindowsData = newState.WindowsData
	s.lastModTime = info.ModTime()

	return true, nil
}
