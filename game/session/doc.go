// Package session provides in-memory session management for the Klondike
// server.
//
// Manager implements service.SessionManager. Each session owns one
// engine.GameEngine; the manager creates the engine but does not deal, so the
// caller can seed cross-game counters before the first game starts.
//
// Session Identifiers:
//
// Generated IDs are 4 hex characters from crypto/rand, retried on collision.
// Lookups are case-insensitive.
//
// Usage:
//
//	manager := session.NewManager()
//	sess, err := manager.Create("")
//	if err != nil {
//		log.Fatal(err)
//	}
//	_ = sess.Engine.NewGame()
//
// Cleanup:
//
// CleanupExpiredSessions drops sessions idle for longer than a given age. The
// server calls it from a ticker.
package session
