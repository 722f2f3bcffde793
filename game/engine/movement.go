package engine

import (
	"errors"
	"strings"
)

// Command is a discrete, pre-decoded player or clock action.
type Command string

const (
	CommandLeft    Command = "left"
	CommandRight   Command = "right"
	CommandDown    Command = "down"
	CommandRotate  Command = "rotate"
	CommandGravity Command = "gravity"
)

// ErrUnknownCommand is returned by ParseCommand for unrecognized input.
var ErrUnknownCommand = errors.New("unknown command")

var commandAliases = map[string]Command{
	"left":       CommandLeft,
	"move_left":  CommandLeft,
	"l":          CommandLeft,
	"right":      CommandRight,
	"move_right": CommandRight,
	"r":          CommandRight,
	"down":       CommandDown,
	"soft_drop":  CommandDown,
	"drop":       CommandDown,
	"d":          CommandDown,
	"rotate":     CommandRotate,
	"up":         CommandRotate,
	"u":          CommandRotate,
	"gravity":    CommandGravity,
	"tick":       CommandGravity,
	"step":       CommandGravity,
}

// Commands lists the canonical command names.
func Commands() []Command {
	return []Command{CommandLeft, CommandRight, CommandDown, CommandRotate, CommandGravity}
}

// ParseCommand maps user input (case-insensitive, with aliases) to a Command.
func ParseCommand(s string) (Command, error) {
	if cmd, ok := commandAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return cmd, nil
	}
	return "", ErrUnknownCommand
}

// MoveLeft shifts the active piece one column left.
func (e *GameEngine) MoveLeft() bool {
	return e.record(CommandLeft, e.shift(-1, 0)).Success
}

// MoveRight shifts the active piece one column right.
func (e *GameEngine) MoveRight() bool {
	return e.record(CommandRight, e.shift(1, 0)).Success
}

// SoftDrop moves the active piece down one row. It never locks.
func (e *GameEngine) SoftDrop() bool {
	return e.record(CommandDown, e.shift(0, 1)).Success
}

// Rotate turns the active piece clockwise.
func (e *GameEngine) Rotate() bool {
	res := StepResult{Command: CommandRotate}
	if e.piece != nil && e.status == Running {
		res.Success = e.piece.Rotate(e.board)
	}
	return e.record(CommandRotate, res).Success
}

// GravityStep applies one gravity tick. It returns false only when there is
// no piece to act on.
func (e *GameEngine) GravityStep() bool {
	return e.Step().Success
}

// Step applies one gravity tick and reports whether the piece fell or locked.
func (e *GameEngine) Step() StepResult {
	res := StepResult{Command: CommandGravity}
	if e.piece == nil || e.status != Running {
		return e.record(CommandGravity, res)
	}
	res.Success = true
	if e.piece.Move(e.board, 0, 1) {
		res.Moved = true
		return e.record(CommandGravity, res)
	}
	cleared, delta := e.lock()
	res.Locked = true
	res.LinesCleared = cleared
	res.ScoreDelta = delta
	res.GameOver = e.status == GameOver
	return e.record(CommandGravity, res)
}

// Execute dispatches a Command.
func (e *GameEngine) Execute(cmd Command) StepResult {
	switch cmd {
	case CommandLeft:
		e.MoveLeft()
	case CommandRight:
		e.MoveRight()
	case CommandDown:
		e.SoftDrop()
	case CommandRotate:
		e.Rotate()
	case CommandGravity:
		e.Step()
	default:
		return StepResult{Command: cmd}
	}
	return e.last
}

// BulkExecute runs commands in order, stopping once the game is over.
func (e *GameEngine) BulkExecute(cmds []Command) []StepResult {
	if len(cmds) > MaxBulkCommands {
		cmds = cmds[:MaxBulkCommands]
	}
	results := make([]StepResult, 0, len(cmds))
	for _, cmd := range cmds {
		if e.IsGameOver() {
			break
		}
		results = append(results, e.Execute(cmd))
	}
	return results
}

func (e *GameEngine) shift(dx, dy int) StepResult {
	res := StepResult{}
	if e.piece == nil || e.status != Running {
		return res
	}
	res.Success = e.piece.Move(e.board, dx, dy)
	res.Moved = res.Success
	return res
}
