package session

import (
	"encoding/json"
	"fmt"

	"slotmux/config"
)

// Storage handles saving and loading the command table and the slot-to-window
// mapping using the state interface. The table serializes as a plain JSON
// array where element N-1 is the command for slot N and "" marks a free slot.
// The window mapping serializes as a JSON object from slot to pane id.
type Storage struct {
	state config.StateManager
}

// NewStorage creates a new storage instance
func NewStorage(state config.StateManager) (*Storage, error) {
	return &Storage{
		state: state,
	}, nil
}

// SaveCommands saves the command table to disk
func (s *Storage) SaveCommands(commands []string) error {
	jsonData, err := json.Marshal(commands)
	if err != nil {
		return fmt.Errorf("failed to marshal commands: %w", err)
	}

	return s.state.SaveCommands(jsonData)
}

// LoadCommands loads the command table from disk
func (s *Storage) LoadCommands() ([]string, error) {
	jsonData := s.state.GetCommands()

	var commands []string
	if err := json.Unmarshal(jsonData, &commands); err != nil {
		return nil, fmt.Errorf("failed to unmarshal commands: %w", err)
	}

	return commands, nil
}

// DeleteAllCommands removes every stored command
func (s *Storage) DeleteAllCommands() error {
	return s.state.DeleteAllCommands()
}

// SaveWindows saves the slot-to-window mapping to disk
func (s *Storage) SaveWindows(windows map[int]string) error {
	jsonData, err := json.Marshal(windows)
	if err != nil {
		return fmt.Errorf("failed to marshal windows: %w", err)
	}

	return s.state.SaveWindows(jsonData)
}

// LoadWindows loads the slot-to-window mapping from disk
func (s *Storage) LoadWindows() (map[int]string, error) {
	jsonData := s.state.GetWindows()
	if len(jsonData) == 0 {
		return nil, nil
	}

	var windows map[int]string
	if err := json.Unmarshal(jsonData, &windows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal windows: %w", err)
	}

	return windows, nil
}

// DeleteAllWindows removes every stored window mapping
func (s *Storage) DeleteAllWindows() error {
	return s.state.DeleteAllWindows()
}
