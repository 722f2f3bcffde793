package engine

import (
	"math/rand/v2"
	"time"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Commands
	MoveLeft() bool
	MoveRight() bool
	SoftDrop() bool
	Rotate() bool
	GravityStep() bool
	Execute(cmd Command) StepResult

	// State
	Snapshot() Snapshot
	Reset() Snapshot
	Status() Status
	IsGameOver() bool
	Score() int

	// Configuration
	Config() *GameConfig

	// History
	History() []HistoryEntry
	LastEntry() *HistoryEntry
}

// GameEngine is the session state machine. It owns the board, the active
// piece, the score and the status. It performs no locking of its own; callers
// must serialize access.
type GameEngine struct {
	board  *Board
	piece  *ActivePiece
	score  int
	status Status

	linesCleared int
	piecesLocked int
	message      string

	config  *GameConfig
	src     Source
	history []HistoryEntry
	total   int
	last    StepResult
}

// NewEngine creates an engine seeded from config. A zero seed uses the clock.
func NewEngine(config *GameConfig) (*GameEngine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}
	return NewEngineWithSource(config, newSource(config.Seed)), nil
}

// NewEngineWithSource creates an engine that draws shapes from src.
// The config is not validated.
func NewEngineWithSource(config *GameConfig, src Source) *GameEngine {
	if config == nil {
		config = DefaultConfig()
	}
	e := &GameEngine{config: config, src: src}
	e.start()
	return e
}

func newSource(seed int64) Source {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

func (e *GameEngine) start() {
	e.board = NewBoard()
	e.piece = nil
	e.score = 0
	e.status = Running
	e.linesCleared = 0
	e.piecesLocked = 0
	e.message = e.config.Messages.Welcome
	e.spawnNext()
}

// spawnNext draws a shape and places it; a blocked spawn ends the game.
func (e *GameEngine) spawnNext() {
	p, ok := Spawn(e.board, RandomShape(e.src))
	if !ok {
		e.piece = nil
		e.gameOver()
		return
	}
	e.piece = &p
}

// lock merges the active piece, clears rows, scores and respawns.
// A piece with cells above row 0 is never merged; it ends the game instead.
func (e *GameEngine) lock() (cleared, delta int) {
	p := e.piece
	e.piece = nil
	if p.AboveTop() {
		e.gameOver()
		return 0, 0
	}
	e.board.Merge(p.Shape, p.Anchor.X, p.Anchor.Y)
	e.piecesLocked++

	cleared = e.board.ClearFullRows()
	delta = ScoreForLines(cleared)
	e.score += delta
	e.linesCleared += cleared
	if cleared > 0 && e.config.Messages.LineClear != "" {
		e.message = e.config.Messages.LineClear
	}

	e.spawnNext()
	return cleared, delta
}

func (e *GameEngine) gameOver() {
	e.status = GameOver
	e.message = e.config.Messages.GameOver
}

func (e *GameEngine) record(cmd Command, res StepResult) StepResult {
	res.Command = cmd
	entry := HistoryEntry{
		Number:       e.total + 1,
		Command:      cmd,
		Success:      res.Success,
		Score:        e.score,
		LinesCleared: res.LinesCleared,
		Timestamp:    time.Now().Unix(),
	}
	if e.piece != nil {
		entry.Anchor = e.piece.Anchor
	}
	e.history = append(e.history, entry)
	if len(e.history) > MaxHistoryEntries {
		e.history = e.history[len(e.history)-MaxHistoryEntries:]
	}
	e.total++
	e.last = res
	return res
}

// Snapshot returns a detached copy of the current state
func (e *GameEngine) Snapshot() Snapshot {
	snap := Snapshot{
		Board:        e.board.Cells(),
		Score:        e.score,
		Status:       e.status,
		LinesCleared: e.linesCleared,
		PiecesLocked: e.piecesLocked,
		Message:      e.message,
	}
	if e.piece != nil {
		snap.ActivePiece = &PieceView{Shape: e.piece.Shape, Anchor: e.piece.Anchor}
	}
	snap.Rows = RenderRows(e.board, e.piece)
	return snap
}

// Reset starts a fresh game on the same config and source. History is kept.
func (e *GameEngine) Reset() Snapshot {
	e.start()
	return e.Snapshot()
}

// Status returns Running or GameOver
func (e *GameEngine) Status() Status {
	return e.status
}

// IsGameOver returns whether the game is over
func (e *GameEngine) IsGameOver() bool {
	return e.status == GameOver
}

// Score returns the current score
func (e *GameEngine) Score() int {
	return e.score
}

// Board exposes the board for read-only inspection.
func (e *GameEngine) Board() *Board {
	return e.board
}

// ActivePiece returns a copy of the falling piece, if any.
func (e *GameEngine) ActivePiece() (ActivePiece, bool) {
	if e.piece == nil {
		return ActivePiece{}, false
	}
	return *e.piece, true
}

// Config returns the current game configuration
func (e *GameEngine) Config() *GameConfig {
	return e.config
}

// History returns the retained command history, oldest first.
func (e *GameEngine) History() []HistoryEntry {
	out := make([]HistoryEntry, len(e.history))
	copy(out, e.history)
	return out
}

// TotalCommands returns how many commands have been applied, including
// entries dropped from the retained history.
func (e *GameEngine) TotalCommands() int {
	return e.total
}

// LastEntry returns the last command applied, or nil if none
func (e *GameEngine) LastEntry() *HistoryEntry {
	if len(e.history) == 0 {
		return nil
	}
	entry := e.history[len(e.history)-1]
	return &entry
}
