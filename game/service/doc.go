// Package service provides the business logic layer for the Klondike server.
//
// GameService is the main interface. It owns no game rules itself: every
// operation looks up a session, calls the session's engine.GameEngine and
// turns the outcome into a transport-friendly result with GameEvents and a
// public (face-down cards masked) GameState.
//
// Core Interfaces:
//
// SessionManager stores sessions; session.Manager is the in-memory
// implementation. StatsStore persists the games-played and games-won
// counters shared across sessions; config.Manager (settings file) and
// stats.RedisStore implement it.
//
// Concurrency:
//
// One service mutex serialises all engine access, so engines never see
// concurrent calls. AutoComplete releases the lock between steps while it
// waits out the pacing delay.
//
// Statistics:
//
// After each operation the change in the engine's counters is sent to the
// StatsStore from a goroutine. Failures are logged at Warn and otherwise
// ignored.
//
// Usage:
//
//	sessions := session.NewManager()
//	svc := service.NewGameService(sessions, settings)
//
//	info, err := svc.CreateSession(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	result, err := svc.Draw(ctx, info.ID)
package service
