package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wricardo/blockfall/game/engine"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Execute(ctx context.Context, sessionID, command string, reset bool) (*CommandResult, error)
	BulkExecute(ctx context.Context, sessionID string, commands []string, reset bool) (*BulkCommandResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.Snapshot, error)

	// Game State
	GetSnapshot(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.GameConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, config *engine.GameConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles game configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
	SaveConfig(name string, config *engine.GameConfig) error
}

// Session is one game in progress. The engine is not safe for concurrent
// use: hold the session lock for the whole of any command or read.
type Session struct {
	ID        string
	Engine    *engine.GameEngine
	Config    *engine.GameConfig
	CreatedAt time.Time

	mu         sync.Mutex
	lastAccess atomic.Int64
}

// NewSession wraps an engine in a session.
func NewSession(id string, eng *engine.GameEngine, config *engine.GameConfig) *Session {
	now := time.Now()
	s := &Session{
		ID:        id,
		Engine:    eng,
		Config:    config,
		CreatedAt: now,
	}
	s.lastAccess.Store(now.UnixNano())
	return s
}

// Lock acquires exclusive access to the session's engine.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session's engine.
func (s *Session) Unlock() { s.mu.Unlock() }

// Touch records an access at the current time.
func (s *Session) Touch() {
	s.lastAccess.Store(time.Now().UnixNano())
}

// SetLastAccessed overrides the recorded access time.
func (s *Session) SetLastAccessed(t time.Time) {
	s.lastAccess.Store(t.UnixNano())
}

// LastAccessedAt returns the time of the most recent access.
func (s *Session) LastAccessedAt() time.Time {
	return time.Unix(0, s.lastAccess.Load())
}
