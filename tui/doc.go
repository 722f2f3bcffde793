// Package tui plays blockfall in a terminal.
//
// Model is a bubbletea program that stands in for the engine's three
// external collaborators: key presses are the input source, tea.Tick is the
// gravity clock, and View is the renderer (a bordered board drawn with
// two-character glyphs, plus score, position and controls).
//
// Keys: ← → or h l move, ↓ or j soft-drops, ↑ k or x rotate, q quits and
// r starts a new game once the current one is over.
//
// Debug output goes to DebugLogPath when enabled with EnableDebugLogging.
package tui
