// Package service provides the business logic layer for blockfall.
//
// The service package implements:
//   - Multi-session game management
//   - Command parsing and execution against a session's engine
//   - Batched commands with a hard limit
//   - Paginated command history
//   - Configuration access for the transports
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages game configuration loading and validation.
//
// Architecture:
//
// The service layer sits between the transports (HTTP, WebSocket, MCP, live
// drivers) and the engine. Each session owns one engine and one mutex; every
// command holds that mutex from start to finish, so commands on the same
// session never interleave while different sessions proceed in parallel.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr)
//
//	info, err := gameService.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.Execute(ctx, info.ID, "left", false)
package service
