package engine

import "fmt"

// Snapshot is an independent copy of the board and score. The cards of all
// 13 piles live in one fixed-size array with per-pile offsets, so copying
// a Snapshot copies values and never aliases live piles.
type Snapshot struct {
	cards  [DeckSize]Card
	bounds [NumPiles + 1]uint8
	suits  [NumFoundations]Suit
	Score  int
}

// TakeSnapshot captures the board and score
func TakeSnapshot(b *Board, score int) (Snapshot, error) {
	s := Snapshot{suits: b.FoundationSuits, Score: score}
	if n := b.Count(); n > DeckSize {
		return s, fmt.Errorf("%w: board holds %d cards", ErrInvariantViolation, n)
	}

	offset := 0
	for i, cards := range b.Piles {
		s.bounds[i] = uint8(offset)
		offset += copy(s.cards[offset:], cards)
	}
	s.bounds[NumPiles] = uint8(offset)
	return s, nil
}

// Pile returns a copy of the captured pile
func (s *Snapshot) Pile(id PileID) []Card {
	lo, hi := s.bounds[id], s.bounds[id+1]
	return append([]Card(nil), s.cards[lo:hi]...)
}

// Restore replaces the board contents with the captured piles
func (s *Snapshot) Restore(b *Board) {
	for i := range b.Piles {
		lo, hi := s.bounds[i], s.bounds[i+1]
		b.Piles[i] = append(b.Piles[i][:0], s.cards[lo:hi]...)
	}
	b.FoundationSuits = s.suits
}

// UndoStack is a bounded history of snapshots. When full, pushing a new
// snapshot drops the oldest one.
type UndoStack struct {
	items []Snapshot // oldest first
	max   int
}

// NewUndoStack creates a stack holding at most max snapshots
func NewUndoStack(max int) *UndoStack {
	if max <= 0 {
		max = DefaultMaxUndo
	}
	return &UndoStack{items: make([]Snapshot, 0, max), max: max}
}

// Push records a snapshot as the most recent entry
func (u *UndoStack) Push(s Snapshot) {
	if len(u.items) == u.max {
		copy(u.items, u.items[1:])
		u.items = u.items[:len(u.items)-1]
	}
	u.items = append(u.items, s)
}

// Pop removes and returns the most recent snapshot
func (u *UndoStack) Pop() (Snapshot, bool) {
	if len(u.items) == 0 {
		return Snapshot{}, false
	}
	last := len(u.items) - 1
	s := u.items[last]
	u.items = u.items[:last]
	return s, true
}

// Peek returns the most recent snapshot without removing it
func (u *UndoStack) Peek() (Snapshot, bool) {
	if len(u.items) == 0 {
		return Snapshot{}, false
	}
	return u.items[len(u.items)-1], true
}

// Len returns the number of stored snapshots
func (u *UndoStack) Len() int {
	return len(u.items)
}

// Clear drops every snapshot
func (u *UndoStack) Clear() {
	u.items = u.items[:0]
}
