package engine

// PileView is the serialisable form of a pile
type PileView struct {
	ID    PileID   `json:"id"`
	Kind  PileKind `json:"kind"`
	Cards []Card   `json:"cards"`
	Suit  Suit     `json:"suit,omitempty"`
}

// GameState is a point-in-time copy of everything a renderer needs
type GameState struct {
	GameID          string     `json:"game_id"`
	Status          Status     `json:"status"`
	Score           int        `json:"score"`
	ElapsedSeconds  int64      `json:"elapsed_seconds"`
	Piles           []PileView `json:"piles"`
	UndoDepth       int        `json:"undo_depth"`
	CanAutoComplete bool       `json:"can_auto_complete"`
	TotalMoves      int        `json:"total_moves"`
	Stats           Stats      `json:"stats"`
	WinRate         int        `json:"win_rate"`
}

// Pile returns the view of the pile with the given id
func (s *GameState) Pile(id PileID) PileView {
	for _, p := range s.Piles {
		if p.ID == id {
			return p
		}
	}
	return PileView{ID: id, Kind: id.Kind()}
}

// Public returns a copy with every face-down card's identity hidden, so the
// state can be shown to a player without leaking the deal.
func (s *GameState) Public() *GameState {
	out := *s
	out.Piles = make([]PileView, len(s.Piles))
	for i, p := range s.Piles {
		cards := make([]Card, len(p.Cards))
		for j, c := range p.Cards {
			if c.FaceUp {
				cards[j] = c
			}
		}
		p.Cards = cards
		out.Piles[i] = p
	}
	return &out
}

func newGameState(e *GameEngine) *GameState {
	state := &GameState{
		GameID:          e.gameID,
		Status:          e.status,
		Score:           e.score,
		ElapsedSeconds:  int64(e.Elapsed().Seconds()),
		Piles:           make([]PileView, 0, NumPiles),
		UndoDepth:       e.undo.Len(),
		CanAutoComplete: e.CanAutoComplete(),
		TotalMoves:      len(e.history),
		Stats:           e.stats,
		WinRate:         e.stats.WinRate(),
	}

	for i := range e.board.Piles {
		p := e.board.Pile(PileID(i))
		state.Piles = append(state.Piles, PileView{
			ID:    p.ID,
			Kind:  p.Kind(),
			Cards: append([]Card{}, p.Cards...),
			Suit:  p.Suit,
		})
	}
	return state
}
