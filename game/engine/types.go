package engine

// Cell is a single board cell. Locked cells carry no identity.
type Cell uint8

const (
	Empty Cell = iota
	Filled
)

const (
	Width  = 10
	Height = 20

	// Validation constants
	MinIntervalMs       = 10
	MaxIntervalMs       = 10000
	MaxBulkCommands     = 100
	MaxHistoryEntries   = 5000
	WebSocketBufferSize = 256
)

// Status is the lifecycle state of a session.
type Status string

const (
	Running  Status = "running"
	GameOver Status = "game_over"
)

// Position represents x,y coordinates in board space
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// GameConfig represents the game configuration from JSON.
// The intervals are driver settings; the engine itself never waits.
type GameConfig struct {
	Name                string `json:"name"`
	Description         string `json:"description"`
	GravityIntervalMs   int    `json:"gravity_interval_ms"`
	InputPollIntervalMs int    `json:"input_poll_interval_ms"`
	Seed                int64  `json:"seed,omitempty"`
	Messages            struct {
		Welcome   string `json:"welcome"`
		GameOver  string `json:"game_over"`
		LineClear string `json:"line_clear"`
	} `json:"messages"`
}

// PieceView is the read-only form of the active piece.
type PieceView struct {
	Shape  Shape    `json:"shape"`
	Anchor Position `json:"anchor"`
}

// Snapshot is a detached copy of the session state for rendering.
type Snapshot struct {
	Board        [][]Cell   `json:"board"`
	ActivePiece  *PieceView `json:"active_piece"`
	Score        int        `json:"score"`
	Status       Status     `json:"status"`
	LinesCleared int        `json:"lines_cleared"`
	PiecesLocked int        `json:"pieces_locked"`
	Message      string     `json:"message,omitempty"`

	// Rows is a text rendering: '.' empty, '#' locked, '@' active piece.
	Rows []string `json:"rows,omitempty"`
}

// StepResult describes the effect of one command.
type StepResult struct {
	Command      Command `json:"command"`
	Success      bool    `json:"success"`
	Moved        bool    `json:"moved,omitempty"`
	Locked       bool    `json:"locked,omitempty"`
	LinesCleared int     `json:"lines_cleared,omitempty"`
	ScoreDelta   int     `json:"score_delta,omitempty"`
	GameOver     bool    `json:"game_over,omitempty"`
}

// HistoryEntry records one applied command for auditing.
type HistoryEntry struct {
	Number       int      `json:"number"`
	Command      Command  `json:"command"`
	Success      bool     `json:"success"`
	Anchor       Position `json:"anchor"`
	Score        int      `json:"score"`
	LinesCleared int      `json:"lines_cleared,omitempty"`
	Timestamp    int64    `json:"timestamp"`
}
