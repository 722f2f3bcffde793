package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/wricardo/blockfall/game/engine"
)

// ErrConfigUnavailable is returned when a requested config cannot be found.
var ErrConfigUnavailable = errors.New("config not available")

// gameServiceImpl implements the GameService interface. It holds no global
// lock: each command serializes on the target session only.
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
}

// getConfigID returns the config_id for a display name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

// session looks up a session and marks it as accessed.
func (s *gameServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	sess.Touch()
	return sess, nil
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	var config *engine.GameConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if strings.Contains(err.Error(), "configuration not found") {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("%w: '%s' not found. Available configs: %v", ErrConfigUnavailable, configName, configIDs)
				}
				return nil, fmt.Errorf("%w: '%s' not found. Use /api/configs to list available configurations", ErrConfigUnavailable, configName)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	sess, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	configID := configName
	if configID == "" {
		configID = s.getConfigID(config.Name)
	}

	sess.Lock()
	defer sess.Unlock()
	info := s.sessionInfo(sess)
	info.ConfigName = configID
	return info, nil
}

// sessionInfo builds the public view of a session. The caller holds the session lock.
func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	snap := sess.Engine.Snapshot()
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     s.getConfigID(sess.Config.Name),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt(),
		Snapshot:       &snap,
		GameConfig:     sess.Config,
	}
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()
	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))

	for _, sess := range sessions {
		sess.Lock()
		result = append(result, s.sessionInfo(sess))
		sess.Unlock()
	}

	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(sessionID)
}

// Execute applies a single command to a session
func (s *gameServiceImpl) Execute(ctx context.Context, sessionID, command string, reset bool) (*CommandResult, error) {
	cmd, err := engine.ParseCommand(command)
	if err != nil {
		return nil, fmt.Errorf("command %q: %w", command, err)
	}

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	events := []GameEvent{}
	if reset {
		sess.Engine.Reset()
		events = append(events, GameEvent{
			Type:      "reset",
			Message:   "Game reset to initial state",
			Timestamp: time.Now(),
		})
	}

	step := sess.Engine.Execute(cmd)
	snap := sess.Engine.Snapshot()
	events = append(events, stepEvents(step, &snap)...)

	return &CommandResult{
		Success:  step.Success,
		Step:     step,
		Snapshot: &snap,
		Message:  snap.Message,
		Events:   events,
	}, nil
}

// BulkExecute applies commands in order, stopping at game over
func (s *gameServiceImpl) BulkExecute(ctx context.Context, sessionID string, commands []string, reset bool) (*BulkCommandResult, error) {
	cmds := make([]engine.Command, 0, len(commands))
	for i, raw := range commands {
		cmd, err := engine.ParseCommand(raw)
		if err != nil {
			return nil, fmt.Errorf("command %d (%q): %w", i+1, raw, err)
		}
		cmds = append(cmds, cmd)
	}

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	result := &BulkCommandResult{
		RequestedCommands: len(cmds),
		Steps:             make([]engine.StepResult, 0, len(cmds)),
		Events:            make([]GameEvent, 0),
	}

	if reset {
		sess.Engine.Reset()
		result.Events = append(result.Events, GameEvent{
			Type:      "reset",
			Message:   "Game reset to initial state",
			Timestamp: time.Now(),
		})
	}

	if len(cmds) > engine.MaxBulkCommands {
		result.Truncated = true
		result.Limit = engine.MaxBulkCommands
		cmds = cmds[:engine.MaxBulkCommands]
	}

	start := sess.Engine.Snapshot()
	result.StartScore = start.Score
	for i, cmd := range cmds {
		if ctx.Err() != nil {
			result.StoppedReason = "cancelled"
			result.StoppedOnCommand = i + 1
			break
		}
		if sess.Engine.IsGameOver() {
			result.StoppedReason = "game_over"
			result.StoppedOnCommand = i + 1
			break
		}

		step := sess.Engine.Execute(cmd)
		result.CommandsExecuted++
		if step.Success {
			result.Succeeded++
		}
		result.LinesCleared += step.LinesCleared
		result.Steps = append(result.Steps, step)

		if step.Locked || step.GameOver {
			snap := sess.Engine.Snapshot()
			result.Events = append(result.Events, stepEvents(step, &snap)...)
		}
	}

	snap := sess.Engine.Snapshot()
	result.Snapshot = &snap
	result.EndScore = snap.Score
	result.ScoreDelta = snap.Score - result.StartScore
	result.PiecesLocked = snap.PiecesLocked - start.PiecesLocked
	result.GameOver = snap.Status == engine.GameOver
	result.Message = snap.Message
	if result.GameOver && result.StoppedReason == "" {
		result.StoppedReason = "game_over"
	}

	return result, nil
}

// Reset restarts a session on its config
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	snap := sess.Engine.Reset()
	return &snap, nil
}

// GetSnapshot returns a detached copy of the current state
func (s *gameServiceImpl) GetSnapshot(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	snap := sess.Engine.Snapshot()
	return &snap, nil
}

// GetHistory returns paginated command history
func (s *gameServiceImpl) GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	history := sess.Engine.History()
	totalCommands := sess.Engine.TotalCommands()
	sess.Unlock()

	total := len(history)

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order != "asc" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	commands := []engine.HistoryEntry{}
	if start < total {
		if opts.Order == "desc" {
			for i := total - 1 - start; i >= total-end; i-- {
				commands = append(commands, history[i])
			}
		} else {
			commands = append(commands, history[start:end]...)
		}
	}

	return &HistoryResponse{
		Commands:      commands,
		TotalCommands: totalCommands,
		Retained:      total,
		Page:          opts.Page,
		PageSize:      opts.Limit,
		TotalPages:    totalPages,
		HasNext:       opts.Page < totalPages,
		HasPrevious:   opts.Page > 1,
	}, nil
}

// ListConfigs returns available game configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific game configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a game configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	if err := s.configs.SaveConfig(configName, config); err != nil {
		return err
	}
	log.Printf("[CONFIG] saved %s (%s)", configName, config.Name)
	return nil
}

// stepEvents turns a step result into client-facing events.
func stepEvents(step engine.StepResult, snap *engine.Snapshot) []GameEvent {
	var events []GameEvent
	now := time.Now()

	if step.Locked {
		events = append(events, GameEvent{
			Type:      "lock",
			Message:   fmt.Sprintf("Piece locked (%d total)", snap.PiecesLocked),
			Timestamp: now,
		})
	}
	if step.LinesCleared > 0 {
		events = append(events, GameEvent{
			Type:      "line_clear",
			Message:   fmt.Sprintf("Cleared %d line(s) for %d points", step.LinesCleared, step.ScoreDelta),
			Timestamp: now,
		})
	}
	if step.GameOver {
		events = append(events, GameEvent{
			Type:      "game_over",
			Message:   snap.Message,
			Timestamp: now,
		})
	}
	return events
}
