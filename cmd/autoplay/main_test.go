package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/wricardo/blockfall/api"
	"github.com/wricardo/blockfall/game/config"
	"github.com/wricardo/blockfall/game/engine"
	"github.com/wricardo/blockfall/game/service"
	"github.com/wricardo/blockfall/game/session"
	"github.com/wricardo/blockfall/transport/websocket"
)

func spawnI(t *testing.T) engine.ActivePiece {
	t.Helper()
	shape, ok := engine.ShapeByName("I")
	if !ok {
		t.Fatal("I shape missing")
	}
	return engine.ActivePiece{Shape: shape, Anchor: engine.Position{X: 3, Y: 0}}
}

func TestBestPlan_EmptyBoardKeepsStackFlat(t *testing.T) {
	plan, ok := BestPlan(engine.NewBoard(), spawnI(t), DefaultWeights)
	if !ok {
		t.Fatal("Expected a plan on an empty board")
	}
	if plan.Rotations%2 != 0 {
		t.Errorf("Expected I piece to stay horizontal, got %d rotations", plan.Rotations)
	}
	if plan.DropTo != engine.Height-1 {
		t.Errorf("Expected piece to land on the floor, got row %d", plan.DropTo)
	}
	if plan.X != 0 && plan.X != engine.Width-4 {
		t.Errorf("Expected a wall-side placement, got column %d", plan.X)
	}
}

func TestBestPlan_CompletesRow(t *testing.T) {
	board := engine.NewBoardFromRows([]string{"######...."})

	plan, ok := BestPlan(board, spawnI(t), DefaultWeights)
	if !ok {
		t.Fatal("Expected a plan")
	}
	if plan.Lines != 1 || plan.X != 6 || plan.Rotations != 0 {
		t.Errorf("Expected horizontal I at column 6 clearing one line, got %+v", plan)
	}
	if board.FilledCount() != 6 {
		t.Error("Planning must not modify the board")
	}
}

func TestCommandsFor(t *testing.T) {
	got := commandsFor(engine.Position{X: 3, Y: 0}, Plan{Rotations: 1, X: 1, DropTo: 3})
	want := []string{"rotate", "left", "left", "down", "down", "down", "gravity"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("commandsFor = %v, want %v", got, want)
	}

	got = commandsFor(engine.Position{X: 3, Y: 0}, Plan{X: 5})
	want = []string{"right", "right", "gravity"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("commandsFor = %v, want %v", got, want)
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := "../../configs"
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Skip("Skipping test - configs directory not found")
	}
	configs, err := config.NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}
	hub := websocket.NewHub()
	go hub.Run()
	apiServer := api.NewServer(service.NewGameService(session.NewManager(), configs), hub)
	srv := httptest.NewServer(apiServer)
	t.Cleanup(func() {
		srv.Close()
		apiServer.Close()
	})
	return srv
}

func TestPlayAgainstServer(t *testing.T) {
	srv := newTestServer(t)

	client := NewClient(srv.URL + "/")
	id, err := client.CreateSession("classic")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	client.SessionID = id

	res, err := Play(context.Background(), client, playOptions{MaxPieces: 20, Weights: DefaultWeights})
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if res.GameOver {
		t.Fatalf("Heuristic lost within 20 pieces: %+v", res)
	}
	if res.Pieces != 20 {
		t.Errorf("Expected exactly 20 pieces, got %d", res.Pieces)
	}

	snap, err := client.Reset()
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if snap.PiecesLocked != 0 || snap.Score != 0 {
		t.Errorf("Expected fresh game after reset, got %+v", snap)
	}
}

func TestAutoplayCommand(t *testing.T) {
	srv := newTestServer(t)

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	args := []string{"autoplay", "--server", srv.URL, "--config", "classic", "--games", "2", "--pieces", "5"}
	if err := app.Run(context.Background(), args); err != nil {
		t.Fatalf("autoplay failed: %v", err)
	}

	for _, want := range []string{"Playing session", "Game 1:", "Game 2:", "Average score"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Expected output to contain %q:\n%s", want, out.String())
		}
	}
}

func TestClientErrors(t *testing.T) {
	srv := newTestServer(t)
	client := NewClient(srv.URL)
	client.SessionID = "zzzz"
	if _, err := client.GetState(); err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("Expected 404 error, got %v", err)
	}
}
