// Command autoplay plays blockfall sessions through the REST API.
//
// For every piece it fetches the session state, picks the best placement
// with a height/holes/bumpiness heuristic and sends the whole move as one
// bulk request. Point the desktop client or a WebSocket at the same session
// to watch it play.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/blockfall/game/engine"
	"github.com/wricardo/blockfall/game/service"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "autoplay",
		Usage: "play blockfall sessions with a placement heuristic",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "server", Value: "http://localhost:8080", Usage: "blockfall server URL", Sources: cli.EnvVars("BLOCKFALL_API_URL")},
			&cli.StringFlag{Name: "config", Usage: "config for new sessions (server default when empty)"},
			&cli.StringFlag{Name: "session", Usage: "play an existing session instead of creating one"},
			&cli.IntFlag{Name: "games", Value: 1, Usage: "number of games to play"},
			&cli.IntFlag{Name: "pieces", Value: 500, Usage: "stop a game after this many pieces"},
			&cli.DurationFlag{Name: "delay", Value: 0, Usage: "pause between pieces"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			client := NewClient(cmd.String("server"))
			sessionID := cmd.String("session")
			if sessionID == "" {
				id, err := client.CreateSession(cmd.String("config"))
				if err != nil {
					return err
				}
				sessionID = id
			}
			client.SessionID = sessionID
			fmt.Fprintf(cmd.Root().Writer, "Playing session %s\n", sessionID)

			opts := playOptions{
				MaxPieces: int(cmd.Int("pieces")),
				Delay:     cmd.Duration("delay"),
				Weights:   DefaultWeights,
			}

			var results []GameResult
			for game := 1; game <= int(cmd.Int("games")); game++ {
				if game > 1 {
					if _, err := client.Reset(); err != nil {
						return err
					}
				}
				res, err := Play(ctx, client, opts)
				if err != nil {
					return err
				}
				results = append(results, res)
				fmt.Fprintf(cmd.Root().Writer, "Game %d: score=%d lines=%d pieces=%d game_over=%v\n",
					game, res.Score, res.Lines, res.Pieces, res.GameOver)
			}
			printSummary(cmd.Root().Writer, results)
			return nil
		},
	}
}

// Client drives one session over REST.
type Client struct {
	BaseURL    string
	SessionID  string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) sessionPath(suffix string) string {
	return "/api/sessions/" + url.PathEscape(c.SessionID) + suffix
}

func (c *Client) call(method, path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s failed (%d): %s", method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if result != nil {
		return json.Unmarshal(data, result)
	}
	return nil
}

func (c *Client) CreateSession(configID string) (string, error) {
	var info service.SessionInfo
	if err := c.call(http.MethodPost, "/api/sessions", map[string]string{"config_id": configID}, &info); err != nil {
		return "", err
	}
	return info.ID, nil
}

func (c *Client) GetState() (*engine.Snapshot, error) {
	var snap engine.Snapshot
	if err := c.call(http.MethodGet, c.sessionPath("/state"), nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *Client) BulkCommands(commands []string) (*service.BulkCommandResult, error) {
	var result service.BulkCommandResult
	if err := c.call(http.MethodPost, c.sessionPath("/commands"), map[string]interface{}{"commands": commands}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Reset() (*engine.Snapshot, error) {
	var result struct {
		State *engine.Snapshot `json:"state"`
	}
	if err := c.call(http.MethodPost, c.sessionPath("/reset"), struct{}{}, &result); err != nil {
		return nil, err
	}
	return result.State, nil
}

type playOptions struct {
	MaxPieces int
	Delay     time.Duration
	Weights   Weights
}

// GameResult summarizes one game.
type GameResult struct {
	Score    int
	Lines    int
	Pieces   int
	GameOver bool
}

// Play places pieces until the game ends, MaxPieces lock or ctx is done.
func Play(ctx context.Context, client *Client, opts playOptions) (GameResult, error) {
	for {
		snap, err := client.GetState()
		if err != nil {
			return GameResult{}, err
		}
		res := GameResult{
			Score:    snap.Score,
			Lines:    snap.LinesCleared,
			Pieces:   snap.PiecesLocked,
			GameOver: snap.Status == engine.GameOver,
		}
		if res.GameOver || snap.ActivePiece == nil || (opts.MaxPieces > 0 && res.Pieces >= opts.MaxPieces) {
			return res, nil
		}

		board := engine.NewBoardFromRows(snap.Rows)
		piece := engine.ActivePiece{Shape: snap.ActivePiece.Shape, Anchor: snap.ActivePiece.Anchor}
		plan, ok := BestPlan(board, piece, opts.Weights)
		if !ok {
			// Nothing fits; let gravity finish the game.
			plan.Commands = []string{string(engine.CommandGravity)}
		}

		if _, err := client.BulkCommands(plan.Commands); err != nil {
			return res, err
		}

		if opts.Delay > 0 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(opts.Delay):
			}
		} else if ctx.Err() != nil {
			return res, ctx.Err()
		}
	}
}

func printSummary(out io.Writer, results []GameResult) {
	if len(results) < 2 {
		return
	}
	total, best := 0, results[0]
	for _, r := range results {
		total += r.Score
		if r.Score > best.Score {
			best = r
		}
	}
	fmt.Fprintf(out, "Games: %d | Average score: %.1f | Best: %d (%d lines)\n",
		len(results), float64(total)/float64(len(results)), best.Score, best.Lines)
}
