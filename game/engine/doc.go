// Package engine provides the core rules of the falling-block puzzle.
//
// The engine package implements:
//   - The seven-shape catalog with an injectable random source
//   - A fixed 10x20 board with collision testing, merging and row clearing
//   - The active piece: spawning, movement and clockwise rotation without kicks
//   - The session state machine: spawn, fall, lock, clear, respawn, game over
//   - Configuration validation for driver timing
//
// Core Types:
//
// GameEngine is the single mutable root of a game. Board and ActivePiece have
// no identity outside it. Snapshot is a detached, read-only copy for renderers.
//
// Usage:
//
//	eng, err := engine.NewEngine(engine.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	eng.MoveLeft()
//	eng.Rotate()
//	eng.GravityStep() // called by a driver once per gravity interval
//	snap := eng.Snapshot()
//
// Rules:
//
// Only a gravity step can lock a piece. Locking merges the piece, clears full
// rows and adds 100 x lines^2 to the score. When a new piece cannot be placed
// at the top center the game is over and every command becomes a no-op.
//
// Concurrency:
//
// GameEngine does no internal synchronization. Exactly one goroutine may
// issue commands at a time; see the service and driver packages.
package engine
