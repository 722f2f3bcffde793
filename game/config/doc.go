// Package config provides configuration management for blockfall.
//
// The config package handles:
//   - Loading game configurations from JSON files
//   - Validation through engine.ValidateGameConfig
//   - Default configuration management
//   - Configuration discovery and listing
//
// Configuration Format:
//
// Game configurations are stored as JSON files in the configs directory.
// The board is always 10x20; a configuration only tunes the drivers and
// the player-facing text:
//
//	{
//	  "name": "Classic",
//	  "description": "Classic 10x20 board, 500ms gravity",
//	  "gravity_interval_ms": 500,
//	  "input_poll_interval_ms": 100,
//	  "seed": 0,
//	  "messages": {"welcome": "...", "game_over": "...", "line_clear": "..."}
//	}
//
// A seed of 0 draws shapes from a clock-seeded source; any other value makes
// the shape sequence reproducible.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameConfig, err := manager.LoadConfig("relaxed")
//	defaultConfig := manager.GetDefault()
//	configs, err := manager.ListConfigs()
//
// When no classic.json exists the first valid file becomes the default, and
// an empty directory falls back to engine.DefaultConfig.
package config
