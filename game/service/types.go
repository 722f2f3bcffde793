package service

import (
	"time"

	"github.com/wricardo/blockfall/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	Snapshot       *engine.Snapshot   `json:"snapshot"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// CommandResult contains the result of a single command
type CommandResult struct {
	Success  bool              `json:"success"`
	Step     engine.StepResult `json:"step"`
	Snapshot *engine.Snapshot  `json:"snapshot"`
	Message  string            `json:"message"`
	Events   []GameEvent       `json:"events,omitempty"`
}

// BulkCommandResult contains the result of a command batch
type BulkCommandResult struct {
	RequestedCommands int  `json:"requested_commands"`
	CommandsExecuted  int  `json:"commands_executed"`
	Succeeded         int  `json:"succeeded"`
	Truncated         bool `json:"truncated,omitempty"`
	Limit             int  `json:"limit,omitempty"`

	StartScore   int `json:"start_score"`
	EndScore     int `json:"end_score"`
	ScoreDelta   int `json:"score_delta"`
	LinesCleared int `json:"lines_cleared"`
	PiecesLocked int `json:"pieces_locked"`

	Steps    []engine.StepResult `json:"steps"`
	Events   []GameEvent         `json:"events"`
	Snapshot *engine.Snapshot    `json:"snapshot"`

	GameOver         bool   `json:"game_over"`
	StoppedReason    string `json:"stopped_reason,omitempty"`
	StoppedOnCommand int    `json:"stopped_on_command,omitempty"` // 1-based index of the first command not run
	Message          string `json:"message,omitempty"`
}

// GameEvent represents something notable that happened during a command
type GameEvent struct {
	Type      string          `json:"type"` // "reset", "lock", "line_clear", "game_over"
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
	Position  engine.Position `json:"position,omitempty"`
}

// HistoryOptions configures command history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated command history
type HistoryResponse struct {
	Commands      []engine.HistoryEntry `json:"commands"`
	TotalCommands int                   `json:"total_commands"`
	Retained      int                   `json:"retained"`
	Page          int                   `json:"page"`
	PageSize      int                   `json:"page_size"`
	TotalPages    int                   `json:"total_pages"`
	HasNext       bool                  `json:"has_next"`
	HasPrevious   bool                  `json:"has_previous"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename            string `json:"filename"`
	ConfigID            string `json:"config_id"` // The identifier to use for session creation
	Name                string `json:"name"`      // Display name
	Description         string `json:"description"`
	GravityIntervalMs   int    `json:"gravity_interval_ms"`
	InputPollIntervalMs int    `json:"input_poll_interval_ms"`
}
