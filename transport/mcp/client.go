package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/blockfall/game/engine"
	"github.com/wricardo/blockfall/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Blockfall",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Blockfall - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Steer falling pieces on a 10x20 board. Complete rows to clear them and score.
The game ends when a new piece cannot spawn.

AVAILABLE TOOLS:
- create_session: Create new game session
- list_sessions: List all active sessions
- get_session: Get session details
- game_state: Get the board, active piece and score
- command: One command (left/right/down/rotate/gravity)
- bulk_commands: Up to 100 commands at once
- reset_game: Restart the game
- command_history: View past commands
- list_configs: List available configurations
- game_instructions: Rules, scoring and strategy
- describe_cell: What occupies one board coordinate

NOTE: Pieces only lock on "gravity". "down" moves a piece one row but never locks it.`),
	)

	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

var commandEnum = []string{"left", "right", "down", "rotate", "gravity"}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional config selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the config to use (optional, see list_configs)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current board, active piece, score and status",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "command",
		Description: "Apply one command to the active piece",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"command": map[string]interface{}{
					"type":        "string",
					"enum":        commandEnum,
					"description": "left/right shift, down soft-drops one row, rotate turns clockwise, gravity falls or locks",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this command",
				},
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "Reset before applying the command",
				},
			},
			Required: []string{"session_id", "command"},
		},
	}, c.handleCommand)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "bulk_commands",
		Description: "Apply several commands in order; stops at game over, at most 100 are applied",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"commands": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "string",
						"enum": commandEnum,
					},
					"description": "Commands to apply in order",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the plan behind this sequence",
				},
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "Reset before applying the commands",
				},
			},
			Required: []string{"session_id", "commands"},
		},
	}, c.handleBulkCommands)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Restart the game on the session's configuration",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "command_history",
		Description: "Get command history for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page (max 100)",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "desc (newest first, default) or asc",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleCommandHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available game configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get game rules, scoring and strategy notes",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Describe one board coordinate: empty, locked, active piece or out of bounds",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"x": map[string]interface{}{
					"type":        "integer",
					"description": "Column, 0-9 from the left",
				},
				"y": map[string]interface{}{
					"type":        "integer",
					"description": "Row, 0-19 from the top",
				},
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleDescribeCell)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// intArg reads a JSON number argument.
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	configID, _ := args["config_id"].(string)

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n\n%s", session.ID, session.ConfigName, formatSnapshot(session.Snapshot))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		score, status := 0, engine.Running
		if s.Snapshot != nil {
			score, status = s.Snapshot.Score, s.Snapshot.Status
		}
		fmt.Fprintf(&b, "- %s (Config: %s, Score: %d, Status: %s, Created: %s)\n",
			s.ID, s.ConfigName, score, status, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var snap engine.Snapshot
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &snap); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSnapshot(&snap)), nil
}

func (c *Client) handleCommand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	command, _ := args["command"].(string)
	reset, _ := args["reset"].(bool)

	// intent is accepted for the caller's benefit and not sent on
	body := map[string]interface{}{
		"command": command,
		"reset":   reset,
	}

	var result service.CommandResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/command"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatCommandResult(&result)), nil
}

func (c *Client) handleBulkCommands(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	rawCommands, _ := args["commands"].([]interface{})
	reset, _ := args["reset"].(bool)

	commands := make([]string, 0, len(rawCommands))
	for _, raw := range rawCommands {
		if cmd, ok := raw.(string); ok {
			commands = append(commands, cmd)
		}
	}
	if len(commands) == 0 {
		return mcp.NewToolResultError("commands must be a non-empty array of strings"), nil
	}

	body := map[string]interface{}{
		"commands": commands,
		"reset":    reset,
	}

	var result service.BulkCommandResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/commands"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatBulkResult(sessionID, &result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var response struct {
		Message string           `json:"message"`
		State   *engine.Snapshot `json:"state"`
	}

	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatSnapshot(response.State))), nil
}

func (c *Client) handleCommandHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	params := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		params.Set("page", fmt.Sprint(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		params.Set("limit", fmt.Sprint(limit))
	}
	if order, ok := args["order"].(string); ok && order != "" {
		params.Set("order", order)
	}

	path := sessionPath(sessionID, "/history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, cfg := range configs {
		fmt.Fprintf(&b, "• %s (%s)\n  %s\n  Gravity: %dms, Input poll: %dms\n\n",
			cfg.ConfigID, cfg.Name, cfg.Description, cfg.GravityIntervalMs, cfg.InputPollIntervalMs)
	}

	return mcp.NewToolResultText(b.String()), nil
}

const gameInstructions = `Blockfall - Complete Instructions

GAME OBJECTIVE:
Place falling pieces on a 10-column, 20-row board. Fill whole rows to clear them.
The game ends when a freshly spawned piece overlaps locked cells.

BOARD LEGEND:
  .  empty cell
  #  locked cell
  @  active (falling) piece
Coordinates: x is the column (0-9, left to right), y is the row (0-19, top to bottom).

PIECES:
I, O, T, L, J, S, Z. Each new piece spawns at the top row, centred at x = 5 - width/2.

COMMANDS:
• left / right: shift one column if nothing blocks it
• down: move one row down; never locks the piece
• rotate: 90° clockwise around the piece's top-left anchor, no wall kicks
• gravity: fall one row; if the piece cannot fall it locks, full rows clear,
  and the next piece spawns
Blocked commands change nothing and report failure.

SCORING:
Per lock: 100 × (rows cleared)²
  1 row = 100, 2 rows = 400, 3 rows = 900, 4 rows = 1600
Clearing several rows with one piece is worth far more than clearing them one at a time.

STRATEGY NOTES:
• Only gravity locks a piece: position with left/right/rotate, then send gravity
  until the piece locks (bulk_commands is ideal for this)
• Keep the surface flat and leave one column open for an I piece
• A rotation that would hit a wall or locked cell is simply refused;
  shift away from the wall first
• Use describe_cell to confirm what occupies a coordinate before committing

GAME OVER:
When a new piece cannot spawn, or a piece locks while part of it is above the
top row. After game over every command is a no-op; use reset_game.

Good luck stacking!`

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(gameInstructions), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY {
		return mcp.NewToolResultError("x and y must be integers"), nil
	}

	var desc engine.CellDescription
	path := fmt.Sprintf("%s?x=%d&y=%d", sessionPath(sessionID, "/cell"), x, y)
	if err := c.apiCall(ctx, "GET", path, nil, &desc); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatCell(desc)), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\n\n%s",
		session.ID, session.ConfigName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatSnapshot(session.Snapshot))
}

func formatSnapshot(snap *engine.Snapshot) string {
	if snap == nil {
		return "No game state available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Score: %d | Lines: %d | Pieces: %d | Status: %s\n",
		snap.Score, snap.LinesCleared, snap.PiecesLocked, snap.Status)

	if p := snap.ActivePiece; p != nil {
		fmt.Fprintf(&b, "Piece: %s at (%d,%d), %dx%d\n", p.Shape.Name(), p.Anchor.X, p.Anchor.Y, p.Shape.Cols(), p.Shape.Rows())
	}
	if snap.Status == engine.GameOver {
		b.WriteString("💀 GAME OVER\n")
	}
	if snap.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", snap.Message)
	}

	rows := snap.Rows
	if len(rows) == 0 {
		rows = rowsFromBoard(*snap)
	}
	b.WriteString("\n    0123456789\n")
	for y, row := range rows {
		fmt.Fprintf(&b, "%2d  %s\n", y, row)
	}
	return b.String()
}

// rowsFromBoard renders a snapshot that arrived without its text rows.
func rowsFromBoard(snap engine.Snapshot) []string {
	if len(snap.Board) == 0 {
		return nil
	}
	rows := make([]string, 0, engine.Height)
	for y := 0; y < engine.Height; y++ {
		var line strings.Builder
		for x := 0; x < engine.Width; x++ {
			line.WriteString(engine.DescribeCell(snap, x, y).Char)
		}
		rows = append(rows, line.String())
	}
	return rows
}

func formatCommandResult(result *service.CommandResult) string {
	var b strings.Builder
	step := result.Step

	if result.Success {
		fmt.Fprintf(&b, "✓ %s applied\n", step.Command)
	} else {
		fmt.Fprintf(&b, "✗ %s had no effect\n", step.Command)
	}
	if step.Locked {
		fmt.Fprintf(&b, "Piece locked: %d line(s) cleared, +%d points\n", step.LinesCleared, step.ScoreDelta)
	}
	for _, ev := range result.Events {
		if ev.Type == "reset" {
			fmt.Fprintf(&b, "• %s\n", ev.Message)
		}
	}
	b.WriteString("\n")
	b.WriteString(formatSnapshot(result.Snapshot))
	return b.String()
}

func formatBulkResult(sessionID string, result *service.BulkCommandResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Session %s: executed %d/%d commands (%d succeeded)\n",
		sessionID, result.CommandsExecuted, result.RequestedCommands, result.Succeeded)
	if result.Truncated {
		fmt.Fprintf(&b, "Only the first %d commands were applied\n", result.Limit)
	}
	if result.StoppedReason != "" {
		if result.StoppedOnCommand > 0 {
			fmt.Fprintf(&b, "Stopped: %s at command %d\n", result.StoppedReason, result.StoppedOnCommand)
		} else {
			fmt.Fprintf(&b, "Stopped: %s\n", result.StoppedReason)
		}
	}
	fmt.Fprintf(&b, "Pieces locked: %d | Lines cleared: %d | Score: %d → %d (+%d)\n",
		result.PiecesLocked, result.LinesCleared, result.StartScore, result.EndScore, result.ScoreDelta)

	for _, ev := range result.Events {
		fmt.Fprintf(&b, "• [%s] %s\n", ev.Type, ev.Message)
	}

	b.WriteString("\n")
	b.WriteString(formatSnapshot(result.Snapshot))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Command History (Page %d/%d) | Total (cumulative): %d | Retained: %d\n\n",
		history.Page, history.TotalPages, history.TotalCommands, history.Retained)

	for _, entry := range history.Commands {
		status := "✓"
		if !entry.Success {
			status = "✗"
		}
		fmt.Fprintf(&b, "%d. %s %s at (%d,%d) [Score: %d]\n",
			entry.Number, entry.Command, status, entry.Anchor.X, entry.Anchor.Y, entry.Score)
	}
	if len(history.Commands) == 0 {
		b.WriteString("(no commands)\n")
	}

	return b.String()
}

func formatCell(desc engine.CellDescription) string {
	if !desc.InBounds {
		return fmt.Sprintf("Cell (%d,%d) is out of bounds. The board is %d columns (x 0-%d) by %d rows (y 0-%d).",
			desc.X, desc.Y, engine.Width, engine.Width-1, engine.Height, engine.Height-1)
	}

	meaning := map[string]string{
		"empty":  "free; a piece may move here",
		"locked": "occupied by a locked cell; blocks movement and rotation",
		"active": "part of the falling piece",
	}[desc.Kind]

	return fmt.Sprintf("Cell (%d,%d): '%s' %s (%s)", desc.X, desc.Y, desc.Char, desc.Kind, meaning)
}
