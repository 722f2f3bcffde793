package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/wricardo/blockfall/game/engine"
	"github.com/wricardo/blockfall/game/service"
)

// fixedSource always picks the same catalog index.
type fixedSource int

func (f fixedSource) IntN(n int) int { return int(f) % n }

// oPiece is the catalog index of the O shape.
const oPiece = fixedSource(1)

// MockSessionManager implements service.SessionManager for testing
type MockSessionManager struct {
	sessions map[string]*service.Session
	mu       sync.Mutex
}

func NewMockSessionManager() *MockSessionManager {
	return &MockSessionManager{
		sessions: make(map[string]*service.Session),
	}
}

func (m *MockSessionManager) Create(id string, config *engine.GameConfig) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = fmt.Sprintf("test_%d", len(m.sessions)+1)
	}
	if _, exists := m.sessions[id]; exists {
		return nil, errors.New("session already exists")
	}

	session := service.NewSession(id, engine.NewEngineWithSource(config, oPiece), config)
	m.sessions[id] = session
	return session, nil
}

func (m *MockSessionManager) Get(id string) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[id]
	if !exists {
		return nil, errors.New("session not found")
	}
	return session, nil
}

func (m *MockSessionManager) GetOrCreate(id string, config *engine.GameConfig) (*service.Session, error) {
	if session, err := m.Get(id); err == nil {
		return session, nil
	}
	return m.Create(id, config)
}

func (m *MockSessionManager) List() []*service.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

func (m *MockSessionManager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; !exists {
		return errors.New("session not found")
	}
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionManager) UpdateLastAccessed(id string) error {
	session, err := m.Get(id)
	if err != nil {
		return err
	}
	session.Touch()
	return nil
}

// MockConfigManager implements service.ConfigManager for testing
type MockConfigManager struct {
	configs map[string]*engine.GameConfig
}

func NewMockConfigManager() *MockConfigManager {
	defaultConfig := engine.DefaultConfig()
	defaultConfig.Name = "test"
	defaultConfig.Description = "Test configuration"
	defaultConfig.Messages.Welcome = "Welcome to test!"

	return &MockConfigManager{
		configs: map[string]*engine.GameConfig{
			"test":    defaultConfig,
			"default": defaultConfig,
		},
	}
}

func (m *MockConfigManager) LoadConfig(name string) (*engine.GameConfig, error) {
	config, exists := m.configs[name]
	if !exists {
		return nil, errors.New("configuration not found")
	}
	return config, nil
}

func (m *MockConfigManager) ListConfigs() ([]*service.ConfigInfo, error) {
	result := make([]*service.ConfigInfo, 0, len(m.configs))
	for name, config := range m.configs {
		result = append(result, &service.ConfigInfo{
			Filename:          name + ".json",
			ConfigID:          name,
			Name:              config.Name,
			Description:       config.Description,
			GravityIntervalMs: config.GravityIntervalMs,
		})
	}
	return result, nil
}

func (m *MockConfigManager) GetDefault() *engine.GameConfig {
	return m.configs["default"]
}

func (m *MockConfigManager) SaveConfig(name string, config *engine.GameConfig) error {
	if err := engine.ValidateGameConfig(config); err != nil {
		return err
	}
	m.configs[name] = config
	return nil
}

func newTestService(t *testing.T) (service.GameService, string) {
	t.Helper()
	svc := service.NewGameService(NewMockSessionManager(), NewMockConfigManager())
	info, err := svc.CreateSession(context.Background(), "test")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	return svc, info.ID
}

func TestGameService_CreateSession(t *testing.T) {
	ctx := context.Background()
	svc := service.NewGameService(NewMockSessionManager(), NewMockConfigManager())

	tests := []struct {
		name       string
		configName string
		wantErr    bool
	}{
		{"create with default config", "", false},
		{"create with specific config", "test", false},
		{"create with invalid config", "nonexistent", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := svc.CreateSession(ctx, tt.configName)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CreateSession() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, service.ErrConfigUnavailable) {
					t.Errorf("Expected ErrConfigUnavailable, got %v", err)
				}
				return
			}
			if info.Snapshot == nil || info.Snapshot.ActivePiece == nil {
				t.Fatal("Expected a snapshot with an active piece")
			}
			if info.Snapshot.Status != engine.Running {
				t.Errorf("Expected running status, got %s", info.Snapshot.Status)
			}
			if info.Snapshot.Message != "Welcome to test!" {
				t.Errorf("Unexpected welcome message %q", info.Snapshot.Message)
			}
		})
	}
}

func TestGameService_Execute(t *testing.T) {
	ctx := context.Background()
	svc, id := newTestService(t)

	tests := []struct {
		name        string
		command     string
		wantSuccess bool
		wantAnchor  engine.Position
	}{
		{"move left", "left", true, engine.Position{X: 3, Y: 0}},
		{"alias soft drop", "soft_drop", true, engine.Position{X: 3, Y: 1}},
		{"move right", "RIGHT", true, engine.Position{X: 4, Y: 1}},
		{"rotate", "rotate", true, engine.Position{X: 4, Y: 1}},
		{"gravity", "gravity", true, engine.Position{X: 4, Y: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.Execute(ctx, id, tt.command, false)
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if result.Success != tt.wantSuccess {
				t.Errorf("Execute() success = %v, want %v", result.Success, tt.wantSuccess)
			}
			if result.Snapshot.ActivePiece.Anchor != tt.wantAnchor {
				t.Errorf("Anchor = %+v, want %+v", result.Snapshot.ActivePiece.Anchor, tt.wantAnchor)
			}
		})
	}

	t.Run("unknown command", func(t *testing.T) {
		_, err := svc.Execute(ctx, id, "jump", false)
		if !errors.Is(err, engine.ErrUnknownCommand) {
			t.Errorf("Expected ErrUnknownCommand, got %v", err)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		if _, err := svc.Execute(ctx, "nope", "left", false); err == nil {
			t.Error("Expected error for unknown session")
		}
	})

	t.Run("reset before command", func(t *testing.T) {
		result, err := svc.Execute(ctx, id, "left", true)
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if result.Snapshot.ActivePiece.Anchor != (engine.Position{X: 3, Y: 0}) {
			t.Errorf("Expected fresh piece moved left, got %+v", result.Snapshot.ActivePiece.Anchor)
		}
		if len(result.Events) == 0 || result.Events[0].Type != "reset" {
			t.Errorf("Expected reset event, got %+v", result.Events)
		}
	})
}

func TestGameService_ExecuteLockEvents(t *testing.T) {
	ctx := context.Background()
	svc, id := newTestService(t)

	// O piece at y=0 needs 18 gravity steps to rest, the 19th locks it.
	var result *service.CommandResult
	var err error
	for i := 0; i < 19; i++ {
		result, err = svc.Execute(ctx, id, "gravity", false)
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
	}

	if !result.Step.Locked {
		t.Fatalf("Expected the last gravity step to lock, got %+v", result.Step)
	}
	if result.Snapshot.PiecesLocked != 1 {
		t.Errorf("Expected 1 locked piece, got %d", result.Snapshot.PiecesLocked)
	}
	found := false
	for _, ev := range result.Events {
		if ev.Type == "lock" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected lock event, got %+v", result.Events)
	}
}

func TestGameService_BulkExecute(t *testing.T) {
	ctx := context.Background()
	svc, id := newTestService(t)

	t.Run("runs every command", func(t *testing.T) {
		result, err := svc.BulkExecute(ctx, id, []string{"left", "left", "down", "rotate"}, false)
		if err != nil {
			t.Fatalf("BulkExecute() error = %v", err)
		}
		if result.CommandsExecuted != 4 || result.Succeeded != 4 {
			t.Errorf("Expected 4/4, got %d/%d", result.Succeeded, result.CommandsExecuted)
		}
		if got := result.Snapshot.ActivePiece.Anchor; got != (engine.Position{X: 2, Y: 1}) {
			t.Errorf("Unexpected anchor %+v", got)
		}
	})

	t.Run("rejects unknown command before running", func(t *testing.T) {
		before, _ := svc.GetSnapshot(ctx, id)
		_, err := svc.BulkExecute(ctx, id, []string{"left", "explode"}, false)
		if !errors.Is(err, engine.ErrUnknownCommand) {
			t.Fatalf("Expected ErrUnknownCommand, got %v", err)
		}
		after, _ := svc.GetSnapshot(ctx, id)
		if before.ActivePiece.Anchor != after.ActivePiece.Anchor {
			t.Error("No command should run when the batch is invalid")
		}
	})

	t.Run("truncates to limit", func(t *testing.T) {
		cmds := make([]string, engine.MaxBulkCommands+10)
		for i := range cmds {
			cmds[i] = "left"
		}
		result, err := svc.BulkExecute(ctx, id, cmds, true)
		if err != nil {
			t.Fatalf("BulkExecute() error = %v", err)
		}
		if !result.Truncated || result.Limit != engine.MaxBulkCommands {
			t.Errorf("Expected truncation at %d, got %+v", engine.MaxBulkCommands, result)
		}
		if result.CommandsExecuted != engine.MaxBulkCommands {
			t.Errorf("Expected %d executed, got %d", engine.MaxBulkCommands, result.CommandsExecuted)
		}
		if result.Succeeded != 4 {
			t.Errorf("Expected 4 successful lefts from x=4, got %d", result.Succeeded)
		}
	})

	t.Run("stops at game over", func(t *testing.T) {
		if _, err := svc.Reset(ctx, id); err != nil {
			t.Fatalf("Reset() error = %v", err)
		}
		cmds := make([]string, engine.MaxBulkCommands)
		for i := range cmds {
			cmds[i] = "gravity"
		}

		var result *service.BulkCommandResult
		for i := 0; i < 10; i++ {
			var err error
			result, err = svc.BulkExecute(ctx, id, cmds, false)
			if err != nil {
				t.Fatalf("BulkExecute() error = %v", err)
			}
			if result.GameOver {
				break
			}
		}
		if !result.GameOver {
			t.Fatal("Expected the O stack to top out")
		}
		if result.StoppedReason != "game_over" {
			t.Errorf("Expected game_over stop reason, got %q", result.StoppedReason)
		}
		if result.Snapshot.ActivePiece != nil {
			t.Error("Expected no active piece after game over")
		}

		again, err := svc.BulkExecute(ctx, id, []string{"left"}, false)
		if err != nil {
			t.Fatalf("BulkExecute() error = %v", err)
		}
		if again.CommandsExecuted != 0 || again.StoppedOnCommand != 1 {
			t.Errorf("Expected nothing to run after game over, got %+v", again)
		}
	})
}

func TestGameService_GetHistory(t *testing.T) {
	ctx := context.Background()
	svc, id := newTestService(t)

	for i := 0; i < 25; i++ {
		if _, err := svc.Execute(ctx, id, "rotate", false); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
	}

	tests := []struct {
		name      string
		opts      service.HistoryOptions
		wantCount int
		wantFirst int
		wantNext  bool
	}{
		{"default desc", service.HistoryOptions{}, 20, 25, true},
		{"second page desc", service.HistoryOptions{Page: 2}, 5, 5, false},
		{"asc small page", service.HistoryOptions{Limit: 10, Order: "asc"}, 10, 1, true},
		{"past the end", service.HistoryOptions{Page: 9, Limit: 10}, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.GetHistory(ctx, id, tt.opts)
			if err != nil {
				t.Fatalf("GetHistory() error = %v", err)
			}
			if len(resp.Commands) != tt.wantCount {
				t.Fatalf("Expected %d entries, got %d", tt.wantCount, len(resp.Commands))
			}
			if tt.wantCount > 0 && resp.Commands[0].Number != tt.wantFirst {
				t.Errorf("Expected first entry #%d, got #%d", tt.wantFirst, resp.Commands[0].Number)
			}
			if resp.HasNext != tt.wantNext {
				t.Errorf("HasNext = %v, want %v", resp.HasNext, tt.wantNext)
			}
			if resp.TotalCommands != 25 {
				t.Errorf("Expected 25 total commands, got %d", resp.TotalCommands)
			}
		})
	}
}

func TestGameService_ListAndDeleteSessions(t *testing.T) {
	ctx := context.Background()
	svc := service.NewGameService(NewMockSessionManager(), NewMockConfigManager())

	for i := 0; i < 3; i++ {
		if _, err := svc.CreateSession(ctx, ""); err != nil {
			t.Fatalf("CreateSession() error = %v", err)
		}
	}

	sessions, err := svc.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("Expected 3 sessions, got %d", len(sessions))
	}
	for _, s := range sessions {
		if s.ConfigName != "test" && s.ConfigName != "default" {
			t.Errorf("Unexpected config id %q", s.ConfigName)
		}
	}

	if err := svc.DeleteSession(ctx, sessions[0].ID); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	if _, err := svc.GetSession(ctx, sessions[0].ID); err == nil {
		t.Error("Expected deleted session to be gone")
	}
}

func TestGameService_Reset(t *testing.T) {
	ctx := context.Background()
	svc, id := newTestService(t)

	svc.Execute(ctx, id, "left", false)
	svc.Execute(ctx, id, "down", false)

	snap, err := svc.Reset(ctx, id)
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if snap.ActivePiece.Anchor != (engine.Position{X: 4, Y: 0}) {
		t.Errorf("Expected spawn anchor after reset, got %+v", snap.ActivePiece.Anchor)
	}
	if snap.Score != 0 || snap.Status != engine.Running {
		t.Errorf("Unexpected state after reset: score=%d status=%s", snap.Score, snap.Status)
	}
}

func TestGameService_ConcurrentCommandsSerialize(t *testing.T) {
	ctx := context.Background()
	svc, id := newTestService(t)

	const workers, perWorker = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				cmd := "left"
				if (w+i)%2 == 0 {
					cmd = "right"
				}
				if _, err := svc.Execute(ctx, id, cmd, false); err != nil {
					t.Errorf("Execute() error = %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	resp, err := svc.GetHistory(ctx, id, service.HistoryOptions{Limit: 1})
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if resp.TotalCommands != workers*perWorker {
		t.Errorf("Expected %d recorded commands, got %d", workers*perWorker, resp.TotalCommands)
	}
	if resp.Commands[0].Number != workers*perWorker {
		t.Errorf("Expected contiguous numbering, last entry #%d", resp.Commands[0].Number)
	}
}

func TestGameService_Configs(t *testing.T) {
	ctx := context.Background()
	svc := service.NewGameService(NewMockSessionManager(), NewMockConfigManager())

	cfg := engine.DefaultConfig()
	cfg.Name = "Custom"
	if err := svc.SaveConfig(ctx, "custom", cfg); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}
	loaded, err := svc.LoadConfig(ctx, "custom")
	if err != nil || loaded.Name != "Custom" {
		t.Fatalf("LoadConfig() = %+v, %v", loaded, err)
	}

	bad := engine.DefaultConfig()
	bad.Name = ""
	if err := svc.SaveConfig(ctx, "bad", bad); err == nil {
		t.Error("Expected validation error")
	}

	configs, err := svc.ListConfigs(ctx)
	if err != nil {
		t.Fatalf("ListConfigs() error = %v", err)
	}
	if len(configs) != 3 {
		t.Errorf("Expected 3 configs, got %d", len(configs))
	}
}
