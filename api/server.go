package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/wricardo/blockfall/game/config"
	"github.com/wricardo/blockfall/game/driver"
	"github.com/wricardo/blockfall/game/engine"
	"github.com/wricardo/blockfall/game/service"
	"github.com/wricardo/blockfall/game/session"
	"github.com/wricardo/blockfall/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router

	mu   sync.Mutex
	live map[string]*liveSession
}

// liveSession is a server-side gravity driver attached to one session.
type liveSession struct {
	loop   *driver.Loop
	cancel context.CancelFunc
	done   chan struct{}
}

// NewServer creates a new API server
func NewServer(gameService service.GameService, hub *websocket.Hub) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		live:    make(map[string]*liveSession),
	}

	if hub != nil {
		hub.SetCommandHandler(s.handleInbound)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	// Must be registered before the {id} pattern
	api.HandleFunc("/sessions/unified", s.handleUnifiedSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Game operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/sessions/{id}/command", s.handleCommand).Methods("POST")
	api.HandleFunc("/sessions/{id}/commands", s.handleBulkCommands).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")
	api.HandleFunc("/sessions/{id}/cell", s.handleDescribeCell).Methods("GET")

	// Real-time gravity
	api.HandleFunc("/sessions/{id}/live", s.handleStartLive).Methods("POST")
	api.HandleFunc("/sessions/{id}/live", s.handleStopLive).Methods("DELETE")

	// Configuration
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleCreateConfig).Methods("POST")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close stops every live driver and waits for them to exit.
func (s *Server) Close() {
	s.mu.Lock()
	running := make([]*liveSession, 0, len(s.live))
	for id, ls := range s.live {
		running = append(running, ls)
		delete(s.live, id)
	}
	s.mu.Unlock()

	for _, ls := range running {
		ls.cancel()
		<-ls.done
	}
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, config.ErrConfigNotFound),
		errors.Is(err, service.ErrConfigUnavailable):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrUnknownCommand),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, session.ErrInvalidSessionID):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrSessionAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func (s *Server) broadcast(sessionID string, snap *engine.Snapshot) {
	if s.hub != nil && snap != nil {
		s.hub.BroadcastSnapshot(sessionID, snap)
	}
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID   string `json:"config_id,omitempty"`
		ConfigName string `json:"config_name,omitempty"` // Deprecated, use config_id
	}

	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	configID := req.ConfigID
	if configID == "" && req.ConfigName != "" {
		configID = req.ConfigName
	}

	info, err := s.service.CreateSession(r.Context(), configID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("[SESSION] created %s config=%s", info.ID, info.ConfigName)
	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	total := len(sessions)

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "score", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default)
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.Slice(sessions, func(i, j int) bool {
		less := false
		switch sortBy {
		case "created":
			less = sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
		case "score":
			less = score(sessions[i]) < score(sessions[j])
		default:
			less = sessions[i].LastAccessedAt.Before(sessions[j].LastAccessedAt)
		}
		if order == "asc" {
			return less
		}
		return !less
	})

	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func score(info *service.SessionInfo) int {
	if info.Snapshot == nil {
		return 0
	}
	return info.Snapshot.Score
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	info, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	s.stopLive(sessionID)
	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(sessionID, "session_deleted", nil)
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Game Operation Handlers

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	snap, err := s.service.GetSnapshot(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Command string `json:"command"`
		Reset   bool   `json:"reset,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Command == "" {
		respondError(w, http.StatusBadRequest, "command is required")
		return
	}

	result, err := s.service.Execute(r.Context(), sessionID, req.Command, req.Reset)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcast(sessionID, result.Snapshot)
	logStep(sessionID, result)

	respondJSON(w, http.StatusOK, result)
}

// logStep writes the compact per-command server line.
func logStep(sessionID string, result *service.CommandResult) {
	st := result.Step
	line := fmt.Sprintf("[CMD] session=%s cmd=%s ok=%t", sessionID, st.Command, st.Success)
	if st.Locked {
		line += fmt.Sprintf(" locked lines=%d delta=%d", st.LinesCleared, st.ScoreDelta)
	}
	if result.Snapshot != nil {
		line += fmt.Sprintf(" score=%d status=%s", result.Snapshot.Score, result.Snapshot.Status)
	}
	log.Print(line)
}

func (s *Server) handleBulkCommands(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Commands []string `json:"commands"`
		Reset    bool     `json:"reset,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Commands) == 0 {
		respondError(w, http.StatusBadRequest, "commands must not be empty")
		return
	}

	result, err := s.service.BulkExecute(r.Context(), sessionID, req.Commands, req.Reset)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcast(sessionID, result.Snapshot)

	stop := result.StoppedReason
	if stop == "" {
		stop = "none"
	}
	log.Printf("[BULK] session=%s exec=%d/%d stop=%s locked=%d lines=%d scoreΔ=%d",
		sessionID, result.CommandsExecuted, result.RequestedCommands, stop,
		result.PiecesLocked, result.LinesCleared, result.ScoreDelta)

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	snap, err := s.service.Reset(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcast(sessionID, snap)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Game reset successfully",
		"state":   snap,
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}

	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetHistory(r.Context(), sessionID, opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

func (s *Server) handleDescribeCell(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	query := r.URL.Query()
	x, errX := strconv.Atoi(query.Get("x"))
	y, errY := strconv.Atoi(query.Get("y"))
	if errX != nil || errY != nil {
		respondError(w, http.StatusBadRequest, "x and y query parameters must be integers")
		return
	}

	snap, err := s.service.GetSnapshot(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, engine.DescribeCell(*snap, x, y))
}

// Live gravity handlers

func (s *Server) handleStartLive(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	info, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	started := s.startLive(info.ID, info.GameConfig)
	status := http.StatusCreated
	if !started {
		status = http.StatusOK
	}

	respondJSON(w, status, map[string]interface{}{
		"session_id":             info.ID,
		"live":                   true,
		"gravity_interval_ms":    intervalMs(info.GameConfig, true),
		"input_poll_interval_ms": intervalMs(info.GameConfig, false),
	})
}

func intervalMs(cfg *engine.GameConfig, gravity bool) int {
	if cfg == nil {
		cfg = engine.DefaultConfig()
	}
	if gravity {
		return int(cfg.GravityInterval() / time.Millisecond)
	}
	return int(cfg.InputPollInterval() / time.Millisecond)
}

func (s *Server) handleStopLive(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if !s.stopLive(sessionID) {
		respondError(w, http.StatusNotFound, fmt.Sprintf("session %s is not live", sessionID))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"live":       false,
	})
}

// startLive attaches a gravity driver to a session. It reports false when
// one is already running.
func (s *Server) startLive(sessionID string, cfg *engine.GameConfig) bool {
	key := strings.ToLower(sessionID)

	s.mu.Lock()
	if _, ok := s.live[key]; ok {
		s.mu.Unlock()
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	ls := &liveSession{
		loop:   driver.New(&sessionExecutor{service: s.service, sessionID: sessionID}, cfg),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.live[key] = ls
	s.mu.Unlock()

	go func() {
		for f := range ls.loop.Frames() {
			snap := f.Snapshot
			s.broadcast(sessionID, &snap)
		}
	}()

	go func() {
		defer close(ls.done)
		err := ls.loop.Run(ctx)

		reason := "game_over"
		switch {
		case errors.Is(err, driver.ErrQuit), errors.Is(err, context.Canceled):
			reason = "stopped"
		case err != nil:
			reason = err.Error()
		}
		log.Printf("[LIVE] session=%s stopped: %s", sessionID, reason)

		s.mu.Lock()
		if s.live[key] == ls {
			delete(s.live, key)
		}
		s.mu.Unlock()

		if s.hub != nil {
			s.hub.BroadcastEvent(sessionID, "live_stopped", map[string]string{"reason": reason})
		}
	}()

	log.Printf("[LIVE] session=%s started", sessionID)
	if s.hub != nil {
		s.hub.BroadcastEvent(sessionID, "live_started", nil)
	}
	return true
}

// stopLive ends a session's driver and waits for it. It reports whether one
// was running.
func (s *Server) stopLive(sessionID string) bool {
	key := strings.ToLower(sessionID)

	s.mu.Lock()
	ls, ok := s.live[key]
	if ok {
		delete(s.live, key)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	ls.loop.Quit()
	<-ls.done
	return true
}

func (s *Server) liveLoop(sessionID string) *driver.Loop {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ls, ok := s.live[strings.ToLower(sessionID)]; ok {
		return ls.loop
	}
	return nil
}

// IsLive reports whether a gravity driver is attached to the session.
func (s *Server) IsLive(sessionID string) bool {
	return s.liveLoop(sessionID) != nil
}

// sessionExecutor drives a session through the service so that every
// command still takes the session lock.
type sessionExecutor struct {
	service   service.GameService
	sessionID string
}

func (e *sessionExecutor) Execute(ctx context.Context, cmd engine.Command) (engine.StepResult, error) {
	result, err := e.service.Execute(ctx, e.sessionID, string(cmd), false)
	if err != nil {
		return engine.StepResult{}, err
	}
	return result.Step, nil
}

func (e *sessionExecutor) Snapshot(ctx context.Context) (engine.Snapshot, error) {
	snap, err := e.service.GetSnapshot(ctx, e.sessionID)
	if err != nil {
		return engine.Snapshot{}, err
	}
	return *snap, nil
}

// handleInbound applies a command received over the WebSocket. Live sessions
// queue it on their driver; others execute it at once.
func (s *Server) handleInbound(ctx context.Context, sessionID string, in websocket.Inbound) error {
	if loop := s.liveLoop(sessionID); loop != nil && !in.Reset {
		cmd, err := engine.ParseCommand(in.Command)
		if err != nil {
			return err
		}
		if !loop.Submit(cmd) {
			return fmt.Errorf("input queue full, dropped %s", cmd)
		}
		return nil
	}

	result, err := s.service.Execute(ctx, sessionID, in.Command, in.Reset)
	if err != nil {
		return err
	}
	s.broadcast(sessionID, result.Snapshot)
	logStep(sessionID, result)
	return nil
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	configName := strings.TrimSuffix(mux.Vars(r)["name"], ".json")

	cfg, err := s.service.LoadConfig(r.Context(), configName)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var gameConfig engine.GameConfig

	if err := json.NewDecoder(r.Body).Decode(&gameConfig); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if gameConfig.Name == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}

	if err := s.service.SaveConfig(r.Context(), gameConfig.Name, &gameConfig); err != nil {
		respondError(w, statusFor(err), fmt.Sprintf("Failed to save config: %v", err))
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Configuration saved successfully",
		"config_id": gameConfig.Name,
	})
}

// Unified Sessions Handler

func (s *Server) handleUnifiedSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var sessions []*service.SessionInfo

	if sessionIDs := query.Get("sessionIds"); sessionIDs != "" {
		for _, id := range strings.Split(sessionIDs, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if info, err := s.service.GetSession(r.Context(), id); err == nil {
				sessions = append(sessions, info)
			}
		}
	} else {
		all, err := s.service.ListSessions(r.Context())
		if err != nil {
			respondServiceError(w, err)
			return
		}
		configName := query.Get("configName")
		for _, info := range all {
			if configName == "" || info.ConfigName == configName {
				sessions = append(sessions, info)
			}
		}
	}

	configName := ""
	if len(sessions) > 0 {
		configName = sessions[0].ConfigName
	}

	entries := make([]map[string]interface{}, 0, len(sessions))
	bestScore := 0
	for _, info := range sessions {
		if sc := score(info); sc > bestScore {
			bestScore = sc
		}
		entries = append(entries, map[string]interface{}{
			"session_id":    info.ID,
			"config_name":   info.ConfigName,
			"snapshot":      info.Snapshot,
			"live":          s.IsLive(info.ID),
			"created_at":    info.CreatedAt,
			"last_accessed": info.LastAccessedAt,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"config_name": configName,
		"best_score":  bestScore,
		"sessions":    entries,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	live := len(s.live)
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "healthy",
		"live_sessions": live,
	})
}
