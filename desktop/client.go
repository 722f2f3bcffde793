package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Snapshot is the subset of the server's session snapshot the client draws.
// Rows uses '.' for empty, '#' for locked and '@' for the active piece.
type Snapshot struct {
	Score        int         `json:"score"`
	Status       string      `json:"status"`
	LinesCleared int         `json:"lines_cleared"`
	PiecesLocked int         `json:"pieces_locked"`
	Message      string      `json:"message"`
	Rows         []string    `json:"rows"`
	ActivePiece  *PieceState `json:"active_piece"`
}

type PieceState struct {
	Shape struct {
		Name string `json:"name"`
	} `json:"shape"`
	Anchor Position `json:"anchor"`
}

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (s *Snapshot) GameOver() bool {
	return s != nil && s.Status == "game_over"
}

// WSMessage is the server's WebSocket envelope.
type WSMessage struct {
	SessionID string          `json:"session_id"`
	Snapshot  *Snapshot       `json:"snapshot,omitempty"`
	Event     string          `json:"event,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// SessionListItem represents a session from the server
type SessionListItem struct {
	ID         string    `json:"id"`
	ConfigName string    `json:"config_name"`
	Snapshot   *Snapshot `json:"snapshot"`
}

// ConfigListItem represents a game configuration
type ConfigListItem struct {
	ConfigID    string `json:"config_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// apiClient talks to a blockfall server over REST and WebSocket.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *apiClient) do(method, path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}
	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("failed to parse response: %v (body: %s)", err, string(data))
		}
	}
	return nil
}

func (c *apiClient) listSessions() ([]SessionListItem, error) {
	var resp struct {
		Sessions []SessionListItem `json:"sessions"`
	}
	if err := c.do(http.MethodGet, "/api/sessions?sort=created", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

func (c *apiClient) listConfigs() ([]ConfigListItem, error) {
	var configs []ConfigListItem
	if err := c.do(http.MethodGet, "/api/configs", nil, &configs); err != nil {
		return nil, err
	}
	return configs, nil
}

func (c *apiClient) createSession(configID string) (string, error) {
	payload := map[string]string{}
	if configID != "" {
		payload["config_id"] = configID
	}
	var info SessionListItem
	if err := c.do(http.MethodPost, "/api/sessions", payload, &info); err != nil {
		return "", err
	}
	return info.ID, nil
}

func (c *apiClient) fetchState(sessionID string) (*Snapshot, error) {
	var snap Snapshot
	if err := c.do(http.MethodGet, "/api/sessions/"+url.PathEscape(sessionID)+"/state", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *apiClient) command(sessionID, command string) (*Snapshot, error) {
	var result struct {
		Snapshot *Snapshot `json:"snapshot"`
	}
	path := "/api/sessions/" + url.PathEscape(sessionID) + "/command"
	if err := c.do(http.MethodPost, path, map[string]string{"command": command}, &result); err != nil {
		return nil, err
	}
	return result.Snapshot, nil
}

func (c *apiClient) reset(sessionID string) (*Snapshot, error) {
	var result struct {
		State *Snapshot `json:"state"`
	}
	if err := c.do(http.MethodPost, "/api/sessions/"+url.PathEscape(sessionID)+"/reset", struct{}{}, &result); err != nil {
		return nil, err
	}
	return result.State, nil
}

// setLive starts or stops server-side gravity for a session.
func (c *apiClient) setLive(sessionID string, on bool) error {
	method := http.MethodDelete
	if on {
		method = http.MethodPost
	}
	return c.do(method, "/api/sessions/"+url.PathEscape(sessionID)+"/live", struct{}{}, nil)
}

func (c *apiClient) wsURL(sessionID string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	q := u.Query()
	q.Set("session", sessionID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *apiClient) dial(sessionID string) (*websocket.Conn, error) {
	wsURL, err := c.wsURL(sessionID)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	return conn, err
}
