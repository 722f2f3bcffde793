// Package api provides the HTTP REST API for blockfall.
//
// The api package implements:
//   - Session management endpoints
//   - Single and bulk command execution
//   - Server-side gravity drivers ("live" sessions)
//   - Configuration listing, lookup and creation
//   - WebSocket upgrade handling and inbound command routing
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create new session ({"config_id": "classic"})
//   - GET /api/sessions - List sessions (?sort=accessed|created|score&order=asc|desc&limit=N)
//   - GET /api/sessions/unified - Several sessions at once (?sessionIds=a,b or ?configName=x)
//   - GET /api/sessions/{id} - Get specific session
//   - DELETE /api/sessions/{id} - Delete session
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Current snapshot
//   - POST /api/sessions/{id}/command - {"command": "left", "reset": false}
//   - POST /api/sessions/{id}/commands - {"commands": ["left", "rotate", "down"]}, at most 100 applied
//   - POST /api/sessions/{id}/reset - Restart the game
//   - GET /api/sessions/{id}/history - Command history (?page=1&limit=20&order=desc)
//   - GET /api/sessions/{id}/cell - Describe one cell (?x=3&y=19)
//
// Live Gravity:
//   - POST /api/sessions/{id}/live - Start a gravity driver at the session's configured interval
//   - DELETE /api/sessions/{id}/live - Stop it
//
// While a session is live, WebSocket commands are queued on its driver, so
// gravity and player input are applied one at a time by a single goroutine.
// REST commands still go through the service and take the session lock.
//
// Configuration:
//   - GET /api/configs - List available configurations
//   - POST /api/configs - Save a configuration
//   - GET /api/configs/{name} - Get one configuration
//
// Other:
//   - GET /health
//   - GET /ws?session={id} - WebSocket stream of snapshots
//
// Commands accept the aliases understood by engine.ParseCommand
// (left/move_left/l, right/move_right/r, down/soft_drop/drop/d, rotate/up/u,
// gravity/tick/step).
//
// Error Handling:
//
// Errors are returned as JSON:
//
//	{"error": "session not found: session not found"}
//
// Unknown sessions and configs map to 404, unknown commands and invalid
// configs to 400, everything else to 500.
package api
