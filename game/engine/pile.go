package engine

import "fmt"

// Pile is a read-only view of one pile. Cards are ordered bottom-to-top
// (index 0 is bottom, last index is top) and must not be modified.
type Pile struct {
	ID    PileID
	Cards []Card
	// Suit is the foundation's claimed suit, NoSuit for other kinds
	Suit Suit
}

// Kind returns the pile variant
func (p Pile) Kind() PileKind {
	return p.ID.Kind()
}

// Len returns the number of cards in the pile
func (p Pile) Len() int {
	return len(p.Cards)
}

// IsEmpty reports whether the pile holds no cards
func (p Pile) IsEmpty() bool {
	return len(p.Cards) == 0
}

// TopIndex returns the index of the top card, or -1 if empty
func (p Pile) TopIndex() int {
	return len(p.Cards) - 1
}

// Top returns the top card, or false if the pile is empty
func (p Pile) Top() (Card, bool) {
	if len(p.Cards) == 0 {
		return Card{}, false
	}
	return p.Cards[len(p.Cards)-1], true
}

// FaceUpIndex returns the index of the lowest face-up card of the topmost
// face-up run, or -1 if the top card is face-down or the pile is empty.
func (p Pile) FaceUpIndex() int {
	idx := -1
	for i := len(p.Cards) - 1; i >= 0 && p.Cards[i].FaceUp; i-- {
		idx = i
	}
	return idx
}

// Board is the arena holding all 13 piles of one game, indexed by PileID.
type Board struct {
	Piles           [NumPiles][]Card
	FoundationSuits [NumFoundations]Suit
}

// NewBoard returns an empty board
func NewBoard() *Board {
	return &Board{}
}

// Pile returns a read-only view of the pile with the given id
func (b *Board) Pile(id PileID) Pile {
	p := Pile{ID: id, Cards: b.Piles[id]}
	if id.Kind() == KindFoundation {
		p.Suit = b.FoundationSuits[id.Index()]
	}
	return p
}

// Reset clears every pile and foundation suit tag
func (b *Board) Reset() {
	for i := range b.Piles {
		b.Piles[i] = b.Piles[i][:0]
	}
	b.FoundationSuits = [NumFoundations]Suit{}
}

// Clone returns a deep copy that shares no backing arrays with b
func (b *Board) Clone() *Board {
	out := &Board{FoundationSuits: b.FoundationSuits}
	for i, cards := range b.Piles {
		if len(cards) > 0 {
			out.Piles[i] = append([]Card(nil), cards...)
		}
	}
	return out
}

// Count returns the total number of cards across all piles
func (b *Board) Count() int {
	n := 0
	for _, cards := range b.Piles {
		n += len(cards)
	}
	return n
}

// Push appends cards to the pile, enforcing the pile kind's discipline:
// the stock only takes face-down cards, the waste only face-up cards, a
// foundation takes one card that continues its suit sequence, and a
// tableau takes anything.
func (b *Board) Push(id PileID, cards ...Card) error {
	if !id.Valid() {
		return fmt.Errorf("%w: push to %s", ErrPileDiscipline, id)
	}

	switch id.Kind() {
	case KindStock:
		for _, c := range cards {
			if c.FaceUp {
				return fmt.Errorf("%w: face-up %s pushed to stock", ErrPileDiscipline, c)
			}
		}
	case KindWaste:
		for _, c := range cards {
			if !c.FaceUp {
				return fmt.Errorf("%w: face-down %s pushed to waste", ErrPileDiscipline, c)
			}
		}
	case KindFoundation:
		if len(cards) != 1 {
			return fmt.Errorf("%w: %d cards pushed to %s", ErrPileDiscipline, len(cards), id)
		}
		if reason := ValidateFoundationMove(cards, b.Pile(id)); reason != ReasonNone {
			return fmt.Errorf("%w: %s onto %s: %s", ErrPileDiscipline, cards[0], id, reason)
		}
		card := cards[0]
		card.FaceUp = true
		if len(b.Piles[id]) == 0 {
			b.FoundationSuits[id.Index()] = card.Suit
		}
		b.Piles[id] = append(b.Piles[id], card)
		return nil
	}

	b.Piles[id] = append(b.Piles[id], cards...)
	return nil
}

// Pop removes the top n cards and returns them bottom-to-top
func (b *Board) Pop(id PileID, n int) ([]Card, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("%w: pop from %s", ErrPileDiscipline, id)
	}
	cards := b.Piles[id]
	if n <= 0 || n > len(cards) {
		return nil, fmt.Errorf("%w: pop %d from %s holding %d", ErrPileDiscipline, n, id, len(cards))
	}

	start := len(cards) - n
	out := append([]Card(nil), cards[start:]...)
	b.Piles[id] = cards[:start]

	if id.Kind() == KindFoundation && start == 0 {
		b.FoundationSuits[id.Index()] = NoSuit
	}
	return out, nil
}

// FlipTop turns the top card of a pile face-up. It reports whether a flip
// happened.
func (b *Board) FlipTop(id PileID) bool {
	cards := b.Piles[id]
	if len(cards) == 0 || cards[len(cards)-1].FaceUp {
		return false
	}
	cards[len(cards)-1].FaceUp = true
	return true
}
