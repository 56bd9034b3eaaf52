package service

import (
	"time"

	"github.com/wricardo/klondike/game/engine"
)

// Event types carried in results and broadcasts
const (
	EventNewGame      = "new_game"
	EventDraw         = "draw"
	EventRecycle      = "recycle"
	EventMove         = "move"
	EventFlip         = "flip"
	EventFoundation   = "foundation"
	EventUndo         = "undo"
	EventAutoComplete = "auto_complete"
	EventWon          = "won"
	EventStalled      = "stalled"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string            `json:"id"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	GameState      *engine.GameState `json:"game_state"`
}

// MoveRequest names the card to pick up and where to put it. A negative
// CardIndex selects the top card of the source pile.
type MoveRequest struct {
	From      engine.PileID `json:"from"`
	CardIndex int           `json:"card_index"`
	To        engine.PileID `json:"to"`
}

// ActionResult contains the result of a new game or undo
type ActionResult struct {
	Success   bool              `json:"success"`
	GameState *engine.GameState `json:"game_state"`
	Message   string            `json:"message"`
	Events    []GameEvent       `json:"events,omitempty"`
}

// MoveResult contains the result of a move operation
type MoveResult struct {
	Success    bool                   `json:"success"`
	Reason     engine.RejectReason    `json:"reason,omitempty"`
	Move       engine.MoveDescription `json:"move"`
	Flipped    bool                   `json:"flipped,omitempty"`
	ScoreDelta int                    `json:"score_delta"`
	GameState  *engine.GameState      `json:"game_state"`
	Message    string                 `json:"message"`
	Events     []GameEvent            `json:"events,omitempty"`
}

// DrawResult contains the result of a stock click
type DrawResult struct {
	Kind      engine.DrawKind     `json:"kind"`
	Cards     []engine.Card       `json:"cards,omitempty"`
	Recycled  int                 `json:"recycled,omitempty"`
	Reason    engine.RejectReason `json:"reason,omitempty"`
	GameState *engine.GameState   `json:"game_state"`
	Message   string              `json:"message"`
	Events    []GameEvent         `json:"events,omitempty"`
}

// HintResult carries the suggested move, if any
type HintResult struct {
	Found   bool                    `json:"found"`
	Move    *engine.MoveDescription `json:"move,omitempty"`
	Message string                  `json:"message"`
}

// AutoCompleteStep is reported after each auto-complete move
type AutoCompleteStep struct {
	SessionID string                 `json:"session_id"`
	Index     int                    `json:"index"`
	Move      engine.MoveDescription `json:"move"`
	GameState *engine.GameState      `json:"game_state"`
}

// AutoCompleteResult summarises an auto-complete run
type AutoCompleteResult struct {
	Started   bool                     `json:"started"`
	Moves     []engine.MoveDescription `json:"moves"`
	Cancelled bool                     `json:"cancelled,omitempty"`
	GameState *engine.GameState        `json:"game_state"`
	Message   string                   `json:"message"`
	Events    []GameEvent              `json:"events,omitempty"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string                  `json:"type"`
	Message   string                  `json:"message"`
	Timestamp time.Time               `json:"timestamp"`
	Move      *engine.MoveDescription `json:"move,omitempty"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveRecord `json:"moves"`
	TotalMoves  int                 `json:"total_moves"`
	Page        int                 `json:"page"`
	PageSize    int                 `json:"page_size"`
	TotalPages  int                 `json:"total_pages"`
	HasNext     bool                `json:"has_next"`
	HasPrevious bool                `json:"has_previous"`
}

// StatsInfo reports the persisted cross-game counters
type StatsInfo struct {
	GamesPlayed int `json:"games_played"`
	GamesWon    int `json:"games_won"`
	WinRate     int `json:"win_rate"`
}

func newStatsInfo(s engine.Stats) *StatsInfo {
	return &StatsInfo{GamesPlayed: s.GamesPlayed, GamesWon: s.GamesWon, WinRate: s.WinRate()}
}
