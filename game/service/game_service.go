package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/klondike/game/engine"
)

// ErrSessionNotFound is returned, wrapped, for any unknown session ID
var ErrSessionNotFound = errors.New("session not found")

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	NewGame(ctx context.Context, sessionID string) (*ActionResult, error)
	Draw(ctx context.Context, sessionID string) (*DrawResult, error)
	Move(ctx context.Context, sessionID string, req MoveRequest) (*MoveResult, error)
	MoveToFoundation(ctx context.Context, sessionID string, source engine.PileID) (*MoveResult, error)
	Undo(ctx context.Context, sessionID string) (*ActionResult, error)
	Hint(ctx context.Context, sessionID string) (*HintResult, error)
	AutoComplete(ctx context.Context, sessionID string, onStep func(AutoCompleteStep)) (*AutoCompleteResult, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Statistics
	GetStats(ctx context.Context) (*StatsInfo, error)
	ResetStats(ctx context.Context) (*StatsInfo, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// StatsStore persists the cross-game counters. Implementations must be safe
// for concurrent use; the service calls Record from background goroutines.
type StatsStore interface {
	Load(ctx context.Context) (engine.Stats, error)
	Record(ctx context.Context, playedDelta, wonDelta int) error
	Reset(ctx context.Context) error
}

// Session represents an active game session
type Session struct {
	ID             string
	Engine         *engine.GameEngine
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
