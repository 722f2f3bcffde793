// Package websocket provides WebSocket transport for blockfall.
//
// The websocket package implements:
//   - Session-aware WebSocket connections
//   - Snapshot broadcasting after every state change
//   - Inbound player commands routed to a CommandHandler
//   - Connection lifecycle management with ping/pong keepalive
//
// Architecture:
//
// A central Hub owns the client registry. Register, unregister and
// broadcast requests are funnelled through its Run loop; each client has a
// read pump and a write pump goroutine.
//
// Message Protocol:
//
//   - Incoming: {"command": "left"} (any command alias, optional "reset": true)
//   - Outgoing: {"session_id": "ab12", "event": "state_update", "snapshot": {...}}
//   - Errors:   {"session_id": "ab12", "event": "error", "data": {"error": "..."}}
//
// Clients pick their session with the ?session=<id> query parameter and
// only receive updates for that session.
//
// Usage:
//
//	hub := websocket.NewHub()
//	hub.SetCommandHandler(func(ctx context.Context, id string, in websocket.Inbound) error {
//		_, err := gameService.Execute(ctx, id, in.Command, in.Reset)
//		return err
//	})
//	go hub.Run()
//
//	hub.ServeWS(w, r, sessionID)
//	hub.BroadcastSnapshot(sessionID, snapshot)
//
// Broadcasting never blocks the caller: when the hub queue is full the
// update is dropped, and a client whose send buffer is full is disconnected.
package websocket
