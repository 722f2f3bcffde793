package main

import (
	"math"

	"github.com/wricardo/blockfall/game/engine"
)

// Weights scores a board after a placement. Higher is better.
type Weights struct {
	Lines     float64
	Height    float64
	Holes     float64
	Bumpiness float64
}

// DefaultWeights favours flat, hole-free stacks.
var DefaultWeights = Weights{
	Lines:     0.76,
	Height:    -0.51,
	Holes:     -0.36,
	Bumpiness: -0.18,
}

// Plan is one placement for the active piece and the commands that reach it.
type Plan struct {
	Rotations int
	X         int
	DropTo    int
	Lines     int
	Score     float64
	Commands  []string
}

// lockOutPenalty keeps the planner away from placements that end the game.
const lockOutPenalty = -1e6

// BestPlan tries every reachable rotation and column for piece on board and
// returns the highest scoring placement. ok is false when nothing is reachable.
func BestPlan(board *engine.Board, piece engine.ActivePiece, w Weights) (best Plan, ok bool) {
	best.Score = math.Inf(-1)

	rotated := piece
	for r := 0; r < 4; r++ {
		if r > 0 && !rotated.Rotate(board) {
			break
		}
		for _, target := range reachableColumns(board, rotated) {
			plan := place(board, rotated, target, w)
			plan.Rotations = r
			if plan.Score > best.Score {
				best, ok = plan, true
			}
		}
	}
	if ok {
		best.Commands = commandsFor(piece.Anchor, best)
	}
	return best, ok
}

// reachableColumns walks left and right from the piece's anchor and returns
// every column the piece can slide to without colliding.
func reachableColumns(board *engine.Board, piece engine.ActivePiece) []int {
	cols := []int{piece.Anchor.X}
	for _, dx := range []int{-1, 1} {
		p := piece
		for p.Move(board, dx, 0) {
			cols = append(cols, p.Anchor.X)
		}
	}
	return cols
}

// place drops piece at column x, merges it into a copy of board and scores
// the result.
func place(board *engine.Board, piece engine.ActivePiece, x int, w Weights) Plan {
	y := piece.Anchor.Y
	for board.IsValidMove(piece.Shape, x, y+1) {
		y++
	}
	plan := Plan{X: x, DropTo: y}

	landed := engine.ActivePiece{Shape: piece.Shape, Anchor: engine.Position{X: x, Y: y}}
	if landed.AboveTop() {
		plan.Score = lockOutPenalty
		return plan
	}

	after := *board
	after.Merge(piece.Shape, x, y)
	plan.Lines = after.ClearFullRows()
	plan.Score = evaluate(&after, plan.Lines, w)
	return plan
}

func evaluate(board *engine.Board, lines int, w Weights) float64 {
	heights := engine.ColumnHeights(board)
	aggregate, bumpiness := 0, 0
	for x, h := range heights {
		aggregate += h
		if x > 0 {
			bumpiness += abs(h - heights[x-1])
		}
	}
	return w.Lines*float64(lines) +
		w.Height*float64(aggregate) +
		w.Holes*float64(engine.CountHoles(board)) +
		w.Bumpiness*float64(bumpiness)
}

// commandsFor spells out a plan as rotate, shift, soft-drop and a final
// gravity tick that locks the piece.
func commandsFor(start engine.Position, plan Plan) []string {
	var cmds []string
	for i := 0; i < plan.Rotations; i++ {
		cmds = append(cmds, string(engine.CommandRotate))
	}
	shift, dir := plan.X-start.X, engine.CommandRight
	if shift < 0 {
		shift, dir = -shift, engine.CommandLeft
	}
	for i := 0; i < shift; i++ {
		cmds = append(cmds, string(dir))
	}
	for y := start.Y; y < plan.DropTo; y++ {
		cmds = append(cmds, string(engine.CommandDown))
	}
	return append(cmds, string(engine.CommandGravity))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
