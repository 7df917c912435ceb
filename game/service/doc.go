// Package service provides the business logic layer for the maze robot server.
//
// The service package implements:
//   - Multi-session maze management
//   - Robot placement, movement, recharge and dives
//   - Command script execution
//   - Move history paging
//
// Core Interfaces:
//
// RobotService is the main service interface used by every transport.
// SessionManager handles session creation, retrieval, persistence and lifecycle.
// ConfigManager loads, lists and validates maze configurations.
//
// Architecture:
//
// The service layer sits between the transports (HTTP/WebSocket/MCP) and the
// engine. Each session owns one engine.Arena: a shared read-only grid and the
// robots placed on it. The engine is not synchronised, so the service
// serialises every access behind one mutex and persists a session after each
// mutation.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr := config.NewManager("configs")
//	robots := service.NewRobotService(sessionMgr, configMgr)
//
//	info, err := robots.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	res, err := robots.Move(ctx, info.ID, "Wall-E", "forward", 3)
//
// Movement in the engine is silent. MoveResult reports the outcome by comparing
// robot state before and after, and names the reason of the last refused step.
package service
