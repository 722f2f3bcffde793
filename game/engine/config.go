package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultGravityIntervalMs   = 500
	DefaultInputPollIntervalMs = 100
)

// DefaultConfig returns the built-in classic timing.
func DefaultConfig() *GameConfig {
	cfg := &GameConfig{
		Name:                "classic",
		Description:         "Classic 10x20 board, 500ms gravity",
		GravityIntervalMs:   DefaultGravityIntervalMs,
		InputPollIntervalMs: DefaultInputPollIntervalMs,
	}
	cfg.Messages.Welcome = "Game started. Clear rows to score."
	cfg.Messages.GameOver = "Game Over!"
	cfg.Messages.LineClear = "Line clear!"
	return cfg
}

// ValidateGameConfig validates a game configuration for correctness
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}

	if config.GravityIntervalMs < MinIntervalMs || config.GravityIntervalMs > MaxIntervalMs {
		return fmt.Errorf("config validation: gravity_interval_ms must be between %d and %d, got %d",
			MinIntervalMs, MaxIntervalMs, config.GravityIntervalMs)
	}
	if config.InputPollIntervalMs < MinIntervalMs || config.InputPollIntervalMs > MaxIntervalMs {
		return fmt.Errorf("config validation: input_poll_interval_ms must be between %d and %d, got %d",
			MinIntervalMs, MaxIntervalMs, config.InputPollIntervalMs)
	}
	if config.InputPollIntervalMs > config.GravityIntervalMs {
		return fmt.Errorf("config validation: input_poll_interval_ms (%d) must not exceed gravity_interval_ms (%d)",
			config.InputPollIntervalMs, config.GravityIntervalMs)
	}

	if config.Messages.GameOver == "" {
		return fmt.Errorf("config validation: messages.game_over is required")
	}
	if strings.Contains(config.Messages.Welcome, "%") || strings.Contains(config.Messages.GameOver, "%") {
		return fmt.Errorf("config validation: messages must be plain text")
	}

	return nil
}

// GravityInterval returns the gravity cadence as a duration.
func (c *GameConfig) GravityInterval() time.Duration {
	return time.Duration(c.GravityIntervalMs) * time.Millisecond
}

// InputPollInterval returns the input/frame cadence as a duration.
func (c *GameConfig) InputPollInterval() time.Duration {
	return time.Duration(c.InputPollIntervalMs) * time.Millisecond
}

// LoadConfigFromFile loads and validates a configuration from a JSON file.
func LoadConfigFromFile(path string) (*GameConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config GameConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := ValidateGameConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config in %s: %w", path, err)
	}

	return &config, nil
}

// LoadConfigByName loads <dir>/<name>.json.
func LoadConfigByName(dir, name string) (*GameConfig, error) {
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	return LoadConfigFromFile(filepath.Join(dir, name))
}
