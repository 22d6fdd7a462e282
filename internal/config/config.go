package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Known hotkey actions. The config maps each action name to an X11 key
// sequence like "Mod4-s".
const (
	ActionSplitHorizontal = "split_horizontal"
	ActionSplitVertical   = "split_vertical"
	ActionCloseFrame      = "close_frame"
	ActionNavigateLeft    = "navigate_left"
	ActionNavigateRight   = "navigate_right"
	ActionNavigateUp      = "navigate_up"
	ActionNavigateDown    = "navigate_down"
	ActionMoveLeft        = "move_left"
	ActionMoveRight       = "move_right"
	ActionMoveUp          = "move_up"
	ActionMoveDown        = "move_down"
	ActionCycleNext       = "cycle_next"
	ActionCyclePrev       = "cycle_prev"
	ActionShiftNext       = "shift_next"
	ActionShiftPrev       = "shift_prev"
)

func knownActions() map[string]bool {
	return map[string]bool{
		ActionSplitHorizontal: true,
		ActionSplitVertical:   true,
		ActionCloseFrame:      true,
		ActionNavigateLeft:    true,
		ActionNavigateRight:   true,
		ActionNavigateUp:      true,
		ActionNavigateDown:    true,
		ActionMoveLeft:        true,
		ActionMoveRight:       true,
		ActionMoveUp:          true,
		ActionMoveDown:        true,
		ActionCycleNext:       true,
		ActionCyclePrev:       true,
		ActionShiftNext:       true,
		ActionShiftPrev:       true,
	}
}

// LoggingConfig configures daemon logging.
type LoggingConfig struct {
	// File is the log file path. Empty logs to stderr only.
	File string `yaml:"file,omitempty"`
	// MaxSizeMB is the maximum log file size before rotation (default: 10)
	MaxSizeMB int `yaml:"max_size_mb,omitempty"`
	// MaxFiles is the number of rotated files to keep (default: 3)
	MaxFiles int `yaml:"max_files,omitempty"`
}

// Config holds the daemon configuration.
type Config struct {
	Display    string `yaml:"display,omitempty"`
	XAuthority string `yaml:"xauthority,omitempty"`

	// PollInterval is the discovery poll period in seconds.
	PollInterval int `yaml:"poll_interval"`
	// SettleDelayMS is slept between positioning and raising a window,
	// in milliseconds.
	SettleDelayMS int `yaml:"settle_delay_ms"`
	// TitleBarHeight reserves space at the top of each frame.
	TitleBarHeight int `yaml:"title_bar_height"`
	// GapSize shrinks each window inside its frame.
	GapSize int `yaml:"gap_size"`
	// RefocusPolicy: "raise" re-raises the new active window after the
	// focused one closes; "none" leaves focus alone.
	RefocusPolicy string `yaml:"refocus_policy"`

	Hotkeys map[string]string `yaml:"hotkeys"`

	LogLevel string        `yaml:"log_level"`
	Logging  LoggingConfig `yaml:"logging,omitempty"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		PollInterval:   7,
		SettleDelayMS:  50,
		TitleBarHeight: 28,
		GapSize:        8,
		RefocusPolicy:  "raise",
		Hotkeys: map[string]string{
			ActionSplitHorizontal: "Mod4-s",
			ActionSplitVertical:   "Mod4-v",
			ActionCloseFrame:      "Mod4-x",
			ActionNavigateLeft:    "Mod4-h",
			ActionNavigateRight:   "Mod4-l",
			ActionNavigateUp:      "Mod4-k",
			ActionNavigateDown:    "Mod4-j",
			ActionMoveLeft:        "Mod4-Shift-h",
			ActionMoveRight:       "Mod4-Shift-l",
			ActionMoveUp:          "Mod4-Shift-k",
			ActionMoveDown:        "Mod4-Shift-j",
			ActionCycleNext:       "Mod4-n",
			ActionCyclePrev:       "Mod4-p",
			ActionShiftNext:       "Mod4-Shift-n",
			ActionShiftPrev:       "Mod4-Shift-p",
		},
		LogLevel: "info",
	}
}

// ValidationError reports a bad config value by its YAML path.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return &ValidationError{Path: "poll_interval", Err: fmt.Errorf("poll_interval must be > 0")}
	}
	if c.SettleDelayMS < 0 {
		return &ValidationError{Path: "settle_delay_ms", Err: fmt.Errorf("settle_delay_ms must be >= 0")}
	}
	if c.TitleBarHeight < 0 {
		return &ValidationError{Path: "title_bar_height", Err: fmt.Errorf("title_bar_height must be >= 0")}
	}
	if c.GapSize < 0 {
		return &ValidationError{Path: "gap_size", Err: fmt.Errorf("gap_size must be >= 0")}
	}
	switch c.RefocusPolicy {
	case "", "raise", "none":
	default:
		return &ValidationError{Path: "refocus_policy", Err: fmt.Errorf("refocus_policy must be one of: raise, none")}
	}
	switch c.LogLevel {
	case "", "debug", "info", "warning", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}

	known := knownActions()
	for action, key := range c.Hotkeys {
		if !known[action] {
			return &ValidationError{Path: "hotkeys." + action, Err: fmt.Errorf("unknown action")}
		}
		if key == "" {
			return &ValidationError{Path: "hotkeys." + action, Err: fmt.Errorf("key sequence must not be empty")}
		}
	}
	if c.Logging.MaxSizeMB < 0 {
		return &ValidationError{Path: "logging.max_size_mb", Err: fmt.Errorf("max_size_mb must be >= 0")}
	}
	if c.Logging.MaxFiles < 0 {
		return &ValidationError{Path: "logging.max_files", Err: fmt.Errorf("max_files must be >= 0")}
	}
	return nil
}

// PollIntervalDuration returns the poll interval as a duration.
func (c *Config) PollIntervalDuration() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

// SettleDelay returns the settle delay as a duration.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMS) * time.Millisecond
}

// GetLoggingConfig returns the logging configuration with defaults applied.
func (c *Config) GetLoggingConfig() LoggingConfig {
	if c == nil {
		return LoggingConfig{}
	}
	cfg := c.Logging
	if cfg.MaxSizeMB == 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxFiles == 0 {
		cfg.MaxFiles = 3
	}
	return cfg
}

// DefaultConfigPath returns the standard config file location.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "framewm", "config.yaml"), nil
}
