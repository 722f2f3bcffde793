package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/blockfall/api"
	"github.com/wricardo/blockfall/game/session"
	"github.com/wricardo/blockfall/transport/mcp"
	"github.com/wricardo/blockfall/transport/websocket"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "Blockfall" {
		t.Errorf("Expected app name Blockfall, got %s", AppName)
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	if err := app.Run(context.Background(), []string{"blockfall", "version"}); err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "Blockfall v"+Version {
		t.Errorf("Unexpected version output %q", got)
	}
}

func TestInitializeServices(t *testing.T) {
	if _, err := os.Stat("configs"); os.IsNotExist(err) {
		t.Skip("Skipping test - configs directory not found")
	}

	gameService, sessions, err := initializeServices("configs")
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	if gameService == nil || sessions == nil {
		t.Fatal("Expected game service and session manager to be initialized")
	}

	info, err := gameService.CreateSession(context.Background(), "classic")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if !sessions.Exists(info.ID) {
		t.Errorf("Session %s not registered with the manager", info.ID)
	}
}

func TestInitializeServices_InvalidConfigDir(t *testing.T) {
	if _, _, err := initializeServices("/non/existent/path"); err == nil {
		t.Error("Expected error for non-existent config directory")
	}
}

func TestLoadPlayConfig(t *testing.T) {
	cfg, err := loadPlayConfig("/non/existent/path", "", 0)
	if err != nil {
		t.Fatalf("Expected built-in fallback, got %v", err)
	}
	if cfg.GravityIntervalMs != 500 {
		t.Errorf("Expected default gravity 500ms, got %d", cfg.GravityIntervalMs)
	}

	if _, err := loadPlayConfig("/non/existent/path", "speedy", 0); err == nil {
		t.Error("Expected error for named config without a config directory")
	}

	if _, err := os.Stat("configs"); os.IsNotExist(err) {
		t.Skip("Skipping test - configs directory not found")
	}

	speedy, err := loadPlayConfig("configs", "speedy", 99)
	if err != nil {
		t.Fatalf("Failed to load speedy: %v", err)
	}
	if speedy.Seed != 99 {
		t.Errorf("Expected seed 99, got %d", speedy.Seed)
	}

	again, err := loadPlayConfig("configs", "speedy", 0)
	if err != nil {
		t.Fatalf("Failed to load speedy: %v", err)
	}
	if again.Seed == 99 {
		t.Error("Seed override leaked into the shared config")
	}

	if _, err := loadPlayConfig("configs", "does_not_exist", 0); err == nil {
		t.Error("Expected error for unknown config")
	}
}

func TestServerOptionsAddr(t *testing.T) {
	opts := serverOptions{Host: "0.0.0.0", Port: 9090}
	if opts.addr() != "0.0.0.0:9090" {
		t.Errorf("Unexpected addr %s", opts.addr())
	}
}

func newTestRootHandler(t *testing.T) http.Handler {
	t.Helper()
	if _, err := os.Stat("configs"); os.IsNotExist(err) {
		t.Skip("Skipping test - configs directory not found")
	}
	gameService, _, err := initializeServices("configs")
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	hub := websocket.NewHub()
	go hub.Run()
	apiServer := api.NewServer(gameService, hub)
	t.Cleanup(apiServer.Close)
	return newRootHandler(apiServer, mcp.NewClient("http://127.0.0.1:0"))
}

func TestRootHandlerRoutesAPI(t *testing.T) {
	handler := newTestRootHandler(t)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from /health, got %d", w.Code)
	}
}

func TestRootHandlerMCP(t *testing.T) {
	handler := newTestRootHandler(t)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/mcp", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET /mcp, got %d", w.Code)
	}

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}}}`
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from POST /mcp, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %s", ct)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid JSON-RPC response: %v", err)
	}
	if !strings.Contains(w.Body.String(), "Blockfall") {
		t.Errorf("Expected server info in response: %s", w.Body.String())
	}
}

func TestSessionCleanupRoutine(t *testing.T) {
	manager := session.NewManager()
	if _, err := manager.Create("abcd", nil); err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sessionCleanupRoutine(ctx, manager, 5*time.Millisecond, time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for manager.Count() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if manager.Count() != 0 {
		t.Error("Expected expired session to be removed")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup routine did not stop on cancel")
	}
}

func TestSessionCleanupRoutineDisabled(t *testing.T) {
	done := make(chan struct{})
	go func() {
		sessionCleanupRoutine(context.Background(), session.NewManager(), 0, time.Hour)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("zero interval should disable cleanup")
	}
}

func TestAPIAvailable(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	}))
	defer ok.Close()
	if !apiAvailable(ok.URL) {
		t.Error("Expected API to be available")
	}

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()
	if apiAvailable(broken.URL) {
		t.Error("Expected unhealthy API to be reported unavailable")
	}

	if apiAvailable("http://127.0.0.1:1") {
		t.Error("Expected unreachable API to be reported unavailable")
	}
}
