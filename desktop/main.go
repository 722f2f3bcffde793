// Command desktop is a multi-session ebiten client for a blockfall server.
//
// Usage:
//
//	desktop [session-id ...]
//
// With no arguments it opens a session picker. Boards update live over the
// server's WebSocket and fall back to polling when the socket is unavailable.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const (
	boardCols     = 10
	boardRows     = 20
	cellSize      = 24
	boardGap      = 40
	maxBoards     = 3
	headerHeight  = 80
	screenWidth   = maxBoards*(boardCols*cellSize+boardGap) + boardGap
	screenHeight  = headerHeight + boardRows*cellSize + 60
	flashDuration = 300 * time.Millisecond
	pollInterval  = 500 * time.Millisecond
)

// ScreenType represents different screens in the app
type ScreenType int

const (
	ScreenWelcome ScreenType = iota
	ScreenGame
)

// Colors for the active piece of each session
var pieceColors = []color.RGBA{
	{0, 220, 255, 255},
	{255, 100, 100, 255},
	{100, 255, 100, 255},
	{255, 255, 100, 255},
	{255, 100, 255, 255},
	{255, 165, 0, 255},
	{100, 100, 255, 255},
	{128, 0, 128, 255},
	{255, 192, 203, 255},
}

var (
	backgroundColor = color.RGBA{20, 20, 30, 255}
	emptyColor      = color.RGBA{40, 40, 50, 255}
	lockedColor     = color.RGBA{150, 150, 160, 255}
	flashColor      = color.RGBA{255, 255, 255, 255}
)

// SessionData holds data for a single session
type SessionData struct {
	sessionID  string
	state      *Snapshot
	wsConn     *websocket.Conn
	lastUpdate time.Time
	live       bool
	flashUntil time.Time
	lastEvent  string
}

// applySnapshot stores a new state and starts a flash when rows were cleared.
func (s *SessionData) applySnapshot(snap *Snapshot, now time.Time) {
	if snap == nil {
		return
	}
	if s.state != nil && snap.LinesCleared > s.state.LinesCleared {
		s.flashUntil = now.Add(flashDuration)
		s.lastEvent = fmt.Sprintf("+%d lines", snap.LinesCleared-s.state.LinesCleared)
	}
	s.state = snap
	s.lastUpdate = now
}

func (s *SessionData) flashing(now time.Time) bool {
	return now.Before(s.flashUntil)
}

// Game represents the desktop game client
type Game struct {
	api              *apiClient
	sessions         []*SessionData
	activeSession    int
	stateMutex       sync.RWMutex
	currentScreen    ScreenType
	welcomeScreen    *WelcomeScreen
	selectedSessions map[string]bool
}

// WelcomeScreen manages the welcome screen state
type WelcomeScreen struct {
	availableSessions []SessionListItem
	availableConfigs  []ConfigListItem
	cursorPos         int
	errorMsg          string
	newSessionConfig  string
}

// NewGame creates a game client. Session IDs skip the welcome screen.
func NewGame(api *apiClient, sessionIDs []string) *Game {
	g := &Game{
		api:              api,
		currentScreen:    ScreenWelcome,
		selectedSessions: make(map[string]bool),
		welcomeScreen:    &WelcomeScreen{},
	}

	if len(sessionIDs) > 0 {
		for _, sid := range sessionIDs {
			g.addSession(sid)
		}
		g.currentScreen = ScreenGame
	} else {
		g.loadWelcomeData()
	}
	return g
}

// addSession attaches to a session, creating one when sessionID is empty.
func (g *Game) addSession(sessionID string) {
	if sessionID == "" {
		id, err := g.api.createSession(g.welcomeScreen.newSessionConfig)
		if err != nil {
			log.Printf("Failed to create session: %v", err)
			return
		}
		sessionID = id
		log.Printf("Created new session: %s", sessionID)
	}

	session := &SessionData{sessionID: sessionID}
	if snap, err := g.api.fetchState(sessionID); err != nil {
		log.Printf("Failed to fetch state for %s: %v", sessionID, err)
	} else {
		session.applySnapshot(snap, time.Now())
	}

	conn, err := g.api.dial(sessionID)
	if err != nil {
		log.Printf("Failed to connect WebSocket for %s: %v (falling back to polling)", sessionID, err)
	} else {
		session.wsConn = conn
		go g.listenWebSocket(session)
	}

	g.stateMutex.Lock()
	g.sessions = append(g.sessions, session)
	g.stateMutex.Unlock()
}

// listenWebSocket applies snapshots pushed by the server until the socket closes.
func (g *Game) listenWebSocket(session *SessionData) {
	defer session.wsConn.Close()

	for {
		var msg WSMessage
		if err := session.wsConn.ReadJSON(&msg); err != nil {
			log.Printf("WebSocket read error for %s: %v", session.sessionID, err)
			g.stateMutex.Lock()
			session.wsConn = nil
			g.stateMutex.Unlock()
			return
		}

		g.stateMutex.Lock()
		switch msg.Event {
		case "live_started":
			session.live = true
		case "live_stopped":
			session.live = false
		case "error":
			session.lastEvent = string(msg.Data)
		}
		session.applySnapshot(msg.Snapshot, time.Now())
		g.stateMutex.Unlock()
	}
}

func (g *Game) loadWelcomeData() {
	ws := g.welcomeScreen
	ws.errorMsg = ""

	sessions, err := g.api.listSessions()
	if err != nil {
		ws.errorMsg = fmt.Sprintf("Error loading sessions: %v", err)
		return
	}
	ws.availableSessions = sessions

	configs, err := g.api.listConfigs()
	if err != nil {
		ws.errorMsg = fmt.Sprintf("Error loading configs: %v", err)
		return
	}
	ws.availableConfigs = configs
}

func (g *Game) active() *SessionData {
	if g.activeSession < len(g.sessions) {
		return g.sessions[g.activeSession]
	}
	return nil
}

// sendCommand routes a command for the active session over its WebSocket,
// or over REST when the socket is down.
func (g *Game) sendCommand(command string) {
	session := g.active()
	if session == nil {
		return
	}

	g.stateMutex.RLock()
	conn := session.wsConn
	g.stateMutex.RUnlock()

	if conn != nil {
		if err := conn.WriteJSON(map[string]string{"command": command}); err == nil {
			return
		}
	}

	snap, err := g.api.command(session.sessionID, command)
	if err != nil {
		log.Printf("Command %s failed for %s: %v", command, session.sessionID, err)
		return
	}
	g.stateMutex.Lock()
	session.applySnapshot(snap, time.Now())
	g.stateMutex.Unlock()
}

func (g *Game) resetActive() {
	session := g.active()
	if session == nil {
		return
	}
	snap, err := g.api.reset(session.sessionID)
	if err != nil {
		log.Printf("Reset failed for %s: %v", session.sessionID, err)
		return
	}
	g.stateMutex.Lock()
	session.applySnapshot(snap, time.Now())
	g.stateMutex.Unlock()
}

func (g *Game) toggleLive() {
	session := g.active()
	if session == nil {
		return
	}
	g.stateMutex.RLock()
	on := !session.live
	g.stateMutex.RUnlock()

	if err := g.api.setLive(session.sessionID, on); err != nil {
		log.Printf("Live toggle failed for %s: %v", session.sessionID, err)
		return
	}
	g.stateMutex.Lock()
	session.live = on
	g.stateMutex.Unlock()
}

// Update updates game logic
func (g *Game) Update() error {
	switch g.currentScreen {
	case ScreenWelcome:
		return g.updateWelcomeScreen()
	case ScreenGame:
		return g.updateGameScreen()
	}
	return nil
}

func (g *Game) updateWelcomeScreen() error {
	ws := g.welcomeScreen

	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		g.loadWelcomeData()
	}

	totalItems := len(ws.availableSessions)
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) && ws.cursorPos < totalItems-1 {
		ws.cursorPos++
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) && ws.cursorPos > 0 {
		ws.cursorPos--
	}

	if inpututil.IsKeyJustPressed(ebiten.KeySpace) && ws.cursorPos < totalItems {
		id := ws.availableSessions[ws.cursorPos].ID
		if g.selectedSessions[id] {
			delete(g.selectedSessions, id)
		} else if len(g.selectedSessions) < maxBoards {
			g.selectedSessions[id] = true
		}
	}

	// Tab cycles configs for new sessions, ending on the server default
	if inpututil.IsKeyJustPressed(ebiten.KeyTab) && len(ws.availableConfigs) > 0 {
		next := 0
		for i, cfg := range ws.availableConfigs {
			if cfg.ConfigID == ws.newSessionConfig {
				next = i + 1
				break
			}
		}
		if next < len(ws.availableConfigs) {
			ws.newSessionConfig = ws.availableConfigs[next].ConfigID
		} else {
			ws.newSessionConfig = ""
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyN) {
		id, err := g.api.createSession(ws.newSessionConfig)
		if err != nil {
			ws.errorMsg = fmt.Sprintf("Failed to create session: %v", err)
		} else {
			if len(g.selectedSessions) < maxBoards {
				g.selectedSessions[id] = true
			}
			g.loadWelcomeData()
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		if len(g.selectedSessions) == 0 {
			ws.errorMsg = "Please select at least one session"
			return nil
		}
		for id := range g.selectedSessions {
			g.addSession(id)
		}
		g.selectedSessions = make(map[string]bool)
		g.currentScreen = ScreenGame
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) && len(g.sessions) > 0 {
		g.currentScreen = ScreenGame
	}
	return nil
}

func (g *Game) updateGameScreen() error {
	if len(g.sessions) == 0 {
		if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
			g.currentScreen = ScreenWelcome
			g.loadWelcomeData()
		}
		return nil
	}

	// Poll sessions without a WebSocket
	now := time.Now()
	for _, session := range g.sessions {
		g.stateMutex.RLock()
		stale := session.wsConn == nil && now.Sub(session.lastUpdate) > pollInterval
		g.stateMutex.RUnlock()
		if !stale {
			continue
		}
		snap, err := g.api.fetchState(session.sessionID)
		g.stateMutex.Lock()
		if err != nil {
			log.Printf("Error fetching state for %s: %v", session.sessionID, err)
			session.lastUpdate = now
		} else {
			session.applySnapshot(snap, now)
		}
		g.stateMutex.Unlock()
	}

	for k := ebiten.Key1; k <= ebiten.Key9; k++ {
		if idx := int(k - ebiten.Key1); inpututil.IsKeyJustPressed(k) && idx < len(g.sessions) {
			g.activeSession = idx
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyN) && len(g.sessions) < maxBoards {
		g.addSession("")
		g.activeSession = len(g.sessions) - 1
	}

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft), inpututil.IsKeyJustPressed(ebiten.KeyA):
		g.sendCommand("left")
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowRight), inpututil.IsKeyJustPressed(ebiten.KeyD):
		g.sendCommand("right")
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowDown), inpututil.IsKeyJustPressed(ebiten.KeyS):
		g.sendCommand("down")
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowUp), inpututil.IsKeyJustPressed(ebiten.KeyW):
		g.sendCommand("rotate")
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		g.sendCommand("gravity")
	case inpututil.IsKeyJustPressed(ebiten.KeyG):
		g.toggleLive()
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		g.resetActive()
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		g.currentScreen = ScreenWelcome
		g.loadWelcomeData()
	}
	return nil
}

// Draw renders the game
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)
	switch g.currentScreen {
	case ScreenWelcome:
		g.drawWelcomeScreen(screen)
	case ScreenGame:
		g.drawGameScreen(screen)
	}
}

func (g *Game) drawWelcomeScreen(screen *ebiten.Image) {
	ws := g.welcomeScreen
	y := 20
	line := func(s string, step int) {
		ebitenutil.DebugPrintAt(screen, s, 20, y)
		y += step
	}

	line("=== BLOCKFALL - SESSION SELECT ===", 30)
	if ws.errorMsg != "" {
		line("ERROR: "+ws.errorMsg, 20)
	}

	line("Available Sessions:", 20)
	if len(ws.availableSessions) == 0 {
		line("  No sessions found. Press N to create one.", 20)
	}
	for i, session := range ws.availableSessions {
		cursor := "  "
		if i == ws.cursorPos {
			cursor = "> "
		}
		checkbox := "[ ]"
		if g.selectedSessions[session.ID] {
			checkbox = "[X]"
		}
		stats := ""
		if s := session.Snapshot; s != nil {
			stats = fmt.Sprintf(" | Score:%d Lines:%d", s.Score, s.LinesCleared)
			if s.GameOver() {
				stats += " GAME OVER"
			}
		}
		line(fmt.Sprintf("%s%s %s | %s%s", cursor, checkbox, session.ID, session.ConfigName, stats), 15)
	}

	y += 20
	configDisplay := "default"
	if ws.newSessionConfig != "" {
		configDisplay = ws.newSessionConfig
	}
	line("New session config: "+configDisplay, 15)
	for _, cfg := range ws.availableConfigs {
		marker := "  "
		if cfg.ConfigID == ws.newSessionConfig {
			marker = "→ "
		}
		line(fmt.Sprintf("    %s%s - %s", marker, cfg.Name, cfg.Description), 15)
	}

	y += 20
	line(fmt.Sprintf("Selected: %d/%d session(s)", len(g.selectedSessions), maxBoards), 30)
	line("CONTROLS:", 20)
	line("  ↑/↓      - Navigate sessions", 15)
	line("  SPACE    - Toggle session selection", 15)
	line("  TAB      - Cycle config for new session", 15)
	line("  N        - Create new session", 15)
	line("  ENTER    - Watch selected sessions", 15)
	line("  F5       - Refresh", 15)
	if len(g.sessions) > 0 {
		line("  ESC      - Back to boards", 15)
	}
}

func (g *Game) drawGameScreen(screen *ebiten.Image) {
	g.stateMutex.RLock()
	defer g.stateMutex.RUnlock()

	if len(g.sessions) == 0 {
		ebitenutil.DebugPrint(screen, "No sessions. Press ESC to go to session select.")
		return
	}

	now := time.Now()
	for idx, session := range g.sessions {
		if idx >= maxBoards {
			break
		}
		originX := boardGap + idx*(boardCols*cellSize+boardGap)
		g.drawSessionHeader(screen, idx, session, originX)
		drawBoard(screen, session, pieceColors[idx%len(pieceColors)], originX, headerHeight, now)
	}

	ebitenutil.DebugPrintAt(screen, "1-3: Switch | N: New | Arrows/WASD: Move+Rotate | SPACE: Tick | G: Live | R: Reset | ESC: Menu", 10, screenHeight-20)
}

func (g *Game) drawSessionHeader(screen *ebiten.Image, idx int, session *SessionData, x int) {
	marker := ""
	if idx == g.activeSession {
		marker = ">>> "
	}
	conn := "POLL"
	if session.wsConn != nil {
		conn = "WS"
	}
	if session.live {
		conn += " LIVE"
	}
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%s[%d] %s [%s]", marker, idx+1, session.sessionID, conn), x, 10)

	if s := session.state; s != nil {
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Score:%d Lines:%d Pieces:%d", s.Score, s.LinesCleared, s.PiecesLocked), x, 28)
		status := session.lastEvent
		if s.GameOver() {
			status = "GAME OVER - R to restart"
		}
		ebitenutil.DebugPrintAt(screen, status, x, 46)
	}
}

// drawBoard paints one session's rows; the whole stack flashes after a clear.
func drawBoard(screen *ebiten.Image, session *SessionData, active color.RGBA, originX, originY int, now time.Time) {
	vector.StrokeRect(screen, float32(originX-2), float32(originY-2),
		boardCols*cellSize+4, boardRows*cellSize+4, 2, lockedColor, false)

	if session.state == nil {
		ebitenutil.DebugPrintAt(screen, "Loading...", originX+10, originY+10)
		return
	}

	flash := session.flashing(now)
	for y, row := range session.state.Rows {
		for x, ch := range row {
			c := cellColor(ch, active)
			if flash && ch == '#' {
				c = flashColor
			}
			vector.DrawFilledRect(screen,
				float32(originX+x*cellSize), float32(originY+y*cellSize),
				cellSize-1, cellSize-1, c, false)
		}
	}
}

func cellColor(ch rune, active color.RGBA) color.Color {
	switch ch {
	case '#':
		return lockedColor
	case '@':
		return active
	default:
		return emptyColor
	}
}

// Layout returns the game screen size
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

func main() {
	server := flag.String("server", "http://localhost:8080", "blockfall server URL")
	flag.Parse()

	game := NewGame(newAPIClient(*server), flag.Args())

	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("Blockfall - Multi-Session Desktop Client")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
