// Package mcp provides the Model Context Protocol interface to blockfall.
//
// The mcp package implements:
//   - An MCP tool server for AI agents
//   - Tools proxied to the REST API over HTTP
//   - Text renderings of snapshots, command results and history
//
// MCP Tools:
//   - create_session, list_sessions, get_session
//   - game_state: board rows with coordinates, piece, score and status
//   - command: single command (left, right, down, rotate, gravity)
//   - bulk_commands: up to 100 commands, stopping at game over
//   - reset_game
//   - command_history: paginated audit log
//   - list_configs
//   - game_instructions: rules, scoring and strategy
//   - describe_cell: what occupies one coordinate
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: the /mcp endpoint forwards request bodies to GetMCPServer().HandleMessage
//
// The client holds no game state of its own. Every tool is one or two REST
// calls, so agents and browsers watching the same session over WebSocket see
// the same game.
package mcp
