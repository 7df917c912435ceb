// Package session manages maze sessions and their on-disk storage.
//
// A session is one engine.Arena (a grid and the robots placed on it) plus the
// configuration it was created from. Manager keeps sessions in memory keyed by
// a case-insensitive ID; generated IDs are 4 hex characters.
//
// With a SessionPersistence attached, the manager:
//   - saves a session when it is created and whenever Save is called
//   - loads a session from storage the first time Get misses
//   - deletes the stored copy with the session
//
// FilePersistence stores each session as sessions/<id>.json holding the maze,
// every robot's current and initial state and the full move history, so Reset
// still works after a restart.
//
// Background housekeeping is driven by the caller:
//
//	manager.CleanupExpiredSessions(24 * time.Hour) // memory only, files stay
//	manager.SyncWithPersistence()                  // drop sessions whose files are gone
package session
