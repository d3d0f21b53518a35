package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"slotmux/log"
)

const (
	ConfigFileName     = "config.json"
	defaultKillCommand = "kill-pane"
	defaultTimeoutMS   = 5000
)

// GetConfigDir returns the path to the application's configuration directory
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config home directory: %w", err)
	}
	return filepath.Join(homeDir, ".slotmux"), nil
}

// Config represents the application configuration
type Config struct {
	// KillCommand is the tmux verb used to destroy windows on teardown.
	// Valid values: "kill-pane", "kill-window".
	KillCommand string `json:"kill_command"`
	// NewlineOnSend appends a line terminator to every sent command, so the
	// receiving shell executes it immediately.
	NewlineOnSend bool `json:"newline_on_send"`
	// SaveOnChange persists the command table whenever it mutates.
	SaveOnChange bool `json:"save_on_change"`
	// WindowName is a static name for newly created windows. Empty keeps
	// tmux's default naming.
	WindowName string `json:"window_name"`
	// CommandTimeoutMS bounds each tmux subprocess call in milliseconds.
	// Zero waits indefinitely.
	CommandTimeoutMS int `json:"command_timeout_ms"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		KillCommand:      defaultKillCommand,
		NewlineOnSend:    true,
		SaveOnChange:     true,
		WindowName:       "",
		CommandTimeoutMS: defaultTimeoutMS,
	}
}

// CommandTimeout returns the configured subprocess bound as a Duration.
func (c *Config) CommandTimeout() time.Duration {
	if c.CommandTimeoutMS <= 0 {
		return 0
	}
	return time.Duration(c.CommandTimeoutMS) * time.Millisecond
}

func LoadConfig() *Config {
	configDir, err := GetConfigDir()
	if err != nil {
		log.ErrorLog.Printf("failed to get config directory: %v", err)
		return DefaultConfig()
	}

	configPath := filepath.Join(configDir, ConfigFileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Create and save default config if file doesn't exist
			defaultCfg := DefaultConfig()
			if saveErr := saveConfig(defaultCfg); saveErr != nil {
				log.WarningLog.Printf("failed to save default config: %v", saveErr)
			}
			return defaultCfg
		}

		log.WarningLog.Printf("failed to get config file: %v", err)
		return DefaultConfig()
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		preview := string(data)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		log.ErrorLog.Printf("failed to parse config file at %s: %v\nConfig content preview: %s", configPath, err, preview)

		// Back up the corrupted config before falling back to defaults
		backupPath := configPath + ".corrupt." + time.Now().Format("20060102-150405")
		if backupErr := os.WriteFile(backupPath, data, 0644); backupErr == nil {
			log.InfoLog.Printf("Backed up corrupted config to: %s", backupPath)
		}

		return DefaultConfig()
	}

	if config.KillCommand == "" {
		config.KillCommand = defaultKillCommand
	}

	return &config
}

// saveConfig saves the configuration to disk
func saveConfig(config *Config) error {
	configDir, err := GetConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(configDir, ConfigFileName)
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// SaveConfig exports the saveConfig function for use by other packages
func SaveConfig(config *Config) error {
	return saveConfig(config)
}
