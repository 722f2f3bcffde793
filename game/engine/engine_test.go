package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestConfig() *GameConfig {
	cfg := DefaultConfig()
	cfg.Name = "Engine Test Config"
	cfg.Description = "Configuration for engine tests"
	return cfg
}

func newTestEngine(t *testing.T, shape string) *GameEngine {
	t.Helper()
	return NewEngineWithSource(createTestConfig(), alwaysShape(t, shape))
}

func TestNewEngine(t *testing.T) {
	eng, err := NewEngine(createTestConfig())
	require.NoError(t, err)

	snap := eng.Snapshot()
	assert.Equal(t, Running, snap.Status)
	assert.Equal(t, 0, snap.Score)
	require.NotNil(t, snap.ActivePiece, "a piece is spawned on start")
	assert.Equal(t, 0, snap.ActivePiece.Anchor.Y)
	assert.Len(t, snap.Board, Height)
	assert.Len(t, snap.Board[0], Width)
	assert.Equal(t, "Game started. Clear rows to score.", snap.Message)
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	cfg := createTestConfig()
	cfg.GravityIntervalMs = 0

	_, err := NewEngine(cfg)
	assert.Error(t, err)
}

func TestNewEngine_SeedIsDeterministic(t *testing.T) {
	cfg := createTestConfig()
	cfg.Seed = 42

	a, err := NewEngine(cfg)
	require.NoError(t, err)
	b, err := NewEngine(cfg)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		a.Execute(Commands()[i%len(Commands())])
		b.Execute(Commands()[i%len(Commands())])
	}
	assert.Equal(t, a.Snapshot(), b.Snapshot())
}

func TestEngine_IPieceFallsAndLocks(t *testing.T) {
	eng := newTestEngine(t, "I")

	piece, ok := eng.ActivePiece()
	require.True(t, ok)
	assert.Equal(t, Position{X: 3, Y: 0}, piece.Anchor)

	for i := 0; i < 19; i++ {
		res := eng.Step()
		require.True(t, res.Moved, "step %d should fall", i)
	}
	piece, _ = eng.ActivePiece()
	assert.Equal(t, 19, piece.Anchor.Y)

	res := eng.Step()
	assert.True(t, res.Success)
	assert.True(t, res.Locked)
	assert.Equal(t, 0, res.LinesCleared)

	for x := 0; x < Width; x++ {
		want := Empty
		if x >= 3 && x < 7 {
			want = Filled
		}
		assert.Equal(t, want, eng.Board().At(x, 19), "column %d", x)
	}
	assert.False(t, eng.Board().IsRowFull(19))
	assert.Equal(t, 0, eng.Score())

	next, ok := eng.ActivePiece()
	require.True(t, ok, "a new piece spawns after the lock")
	assert.Equal(t, Position{X: 3, Y: 0}, next.Anchor)
}

func TestEngine_SingleLineClear(t *testing.T) {
	eng := newTestEngine(t, "I")
	eng.board = NewBoardFromRows([]string{"###....###"})

	for eng.Step().Moved {
	}

	assert.Equal(t, 100, eng.Score())
	assert.Equal(t, 0, eng.Board().FilledCount())
	snap := eng.Snapshot()
	assert.Equal(t, 1, snap.LinesCleared)
	assert.Equal(t, 1, snap.PiecesLocked)
	assert.Equal(t, "Line clear!", snap.Message)
}

func TestEngine_ScoringPerLock(t *testing.T) {
	for lines, want := range []int{0, 100, 400, 900, 1600} {
		t.Run(string(rune('0'+lines)), func(t *testing.T) {
			eng := newTestEngine(t, "I")
			rows := make([]string, lines)
			for i := range rows {
				rows[i] = ".#########"
			}
			eng.board = NewBoardFromRows(rows)

			require.True(t, eng.Rotate())
			for eng.MoveLeft() {
			}
			piece, _ := eng.ActivePiece()
			require.Equal(t, 0, piece.Anchor.X)

			var res StepResult
			for {
				res = eng.Step()
				if res.Locked {
					break
				}
			}
			assert.Equal(t, lines, res.LinesCleared)
			assert.Equal(t, want, res.ScoreDelta)
			assert.Equal(t, want, eng.Score())
		})
	}
}

func TestEngine_SoftDropNeverLocks(t *testing.T) {
	eng := newTestEngine(t, "O")

	for eng.SoftDrop() {
	}
	piece, ok := eng.ActivePiece()
	require.True(t, ok)
	assert.Equal(t, 18, piece.Anchor.Y)
	assert.Equal(t, 0, eng.Board().FilledCount(), "soft drop must not merge")
	assert.False(t, eng.SoftDrop())
}

func TestEngine_GameOverByStacking(t *testing.T) {
	eng := newTestEngine(t, "O")

	for steps := 0; !eng.IsGameOver(); steps++ {
		require.Less(t, steps, 1000, "game should end")
		eng.GravityStep()
	}

	snap := eng.Snapshot()
	assert.Equal(t, GameOver, snap.Status)
	assert.Nil(t, snap.ActivePiece)
	assert.Equal(t, 10, snap.PiecesLocked)
	assert.Equal(t, 0, snap.Score)
	assert.Equal(t, "Game Over!", snap.Message)
}

func TestEngine_CommandsAreNoOpsAfterGameOver(t *testing.T) {
	eng := newTestEngine(t, "T")
	eng.board.Set(5, 0, Filled)
	eng.piece = nil
	eng.spawnNext()
	require.True(t, eng.IsGameOver())

	before := eng.Snapshot()
	assert.False(t, eng.MoveLeft())
	assert.False(t, eng.MoveRight())
	assert.False(t, eng.SoftDrop())
	assert.False(t, eng.Rotate())
	assert.False(t, eng.GravityStep())
	for _, cmd := range Commands() {
		assert.False(t, eng.Execute(cmd).Success, "command %s", cmd)
	}

	after := eng.Snapshot()
	assert.Nil(t, after.ActivePiece)
	assert.Equal(t, before.Board, after.Board)
	assert.Equal(t, before.Score, after.Score)
}

func TestEngine_LockAboveTopEndsGame(t *testing.T) {
	eng := newTestEngine(t, "O")
	eng.board.Set(4, 1, Filled)
	eng.piece = &ActivePiece{Shape: mustShape(t, "O"), Anchor: Position{X: 4, Y: -1}}

	res := eng.Step()
	assert.True(t, res.Locked)
	assert.True(t, res.GameOver)
	assert.Equal(t, GameOver, eng.Status())
	assert.Equal(t, 1, eng.Board().FilledCount(), "piece above the top is not merged")
}

func TestEngine_Reset(t *testing.T) {
	eng := newTestEngine(t, "I")
	eng.board = NewBoardFromRows([]string{"###....###"})
	for eng.Step().Moved {
	}
	require.Equal(t, 100, eng.Score())
	historyLen := len(eng.History())

	snap := eng.Reset()
	assert.Equal(t, 0, snap.Score)
	assert.Equal(t, Running, snap.Status)
	assert.NotNil(t, snap.ActivePiece)
	assert.Equal(t, 0, snap.PiecesLocked)
	assert.Len(t, eng.History(), historyLen, "history survives reset")
}

func TestEngine_ExecuteAndHistory(t *testing.T) {
	eng := newTestEngine(t, "I")

	res := eng.Execute(CommandLeft)
	assert.Equal(t, CommandLeft, res.Command)
	assert.True(t, res.Success)

	res = eng.Execute(Command("jump"))
	assert.False(t, res.Success)

	last := eng.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, CommandLeft, last.Command)
	assert.Equal(t, Position{X: 2, Y: 0}, last.Anchor)
	assert.Equal(t, 1, eng.TotalCommands())
}

func TestEngine_BulkExecute(t *testing.T) {
	eng := newTestEngine(t, "O")

	results := eng.BulkExecute([]Command{CommandLeft, CommandLeft, CommandRotate, CommandDown})
	require.Len(t, results, 4)
	for _, r := range results {
		assert.True(t, r.Success)
	}
	piece, _ := eng.ActivePiece()
	assert.Equal(t, Position{X: 2, Y: 1}, piece.Anchor)

	long := make([]Command, MaxBulkCommands+50)
	for i := range long {
		long[i] = CommandGravity
	}
	results = eng.BulkExecute(long)
	assert.LessOrEqual(t, len(results), MaxBulkCommands)
}

func TestEngine_BulkExecuteStopsAtGameOver(t *testing.T) {
	eng := newTestEngine(t, "O")
	cmds := make([]Command, MaxBulkCommands)
	for i := range cmds {
		cmds[i] = CommandGravity
	}

	var total int
	for !eng.IsGameOver() {
		total += len(eng.BulkExecute(cmds))
	}
	assert.Empty(t, eng.BulkExecute(cmds))
	assert.Greater(t, total, 0)
}

func TestParseCommand(t *testing.T) {
	tests := map[string]Command{
		"left":      CommandLeft,
		" LEFT ":    CommandLeft,
		"move_left": CommandLeft,
		"right":     CommandRight,
		"soft_drop": CommandDown,
		"up":        CommandRotate,
		"rotate":    CommandRotate,
		"tick":      CommandGravity,
	}
	for in, want := range tests {
		got, err := ParseCommand(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseCommand("quit")
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestDescribeCell(t *testing.T) {
	eng := newTestEngine(t, "O")
	eng.board.Set(0, 19, Filled)
	snap := eng.Snapshot()

	assert.Equal(t, "active", DescribeCell(snap, 4, 0).Kind)
	assert.Equal(t, "locked", DescribeCell(snap, 0, 19).Kind)
	assert.Equal(t, "empty", DescribeCell(snap, 9, 9).Kind)
	assert.Equal(t, "out_of_bounds", DescribeCell(snap, -1, 0).Kind)
	assert.False(t, DescribeCell(snap, 10, 0).InBounds)
}
