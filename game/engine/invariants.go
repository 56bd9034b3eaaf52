package engine

import "fmt"

// Validate checks the board invariants: exactly the 52 unique cards are
// present, the stock is face-down, the waste is face-up, each foundation is
// an Ace-up sequence of its tagged suit, and each tableau column is a
// face-down prefix followed by a non-empty face-up suffix.
func (b *Board) Validate() error {
	seen := make(map[int]PileID, DeckSize)
	total := 0

	for i, cards := range b.Piles {
		id := PileID(i)
		for _, c := range cards {
			if !c.Suit.Valid() || c.Rank < Ace || c.Rank > King {
				return violation("%s holds invalid card suit=%d rank=%d", id, c.Suit, c.Rank)
			}
			if prev, dup := seen[c.key()]; dup {
				return violation("%s appears in both %s and %s", c, prev, id)
			}
			seen[c.key()] = id
			total++
		}

		if err := b.validatePile(id); err != nil {
			return err
		}
	}

	if total != DeckSize {
		return violation("board holds %d cards, want %d", total, DeckSize)
	}
	return nil
}

func (b *Board) validatePile(id PileID) error {
	cards := b.Piles[id]

	switch id.Kind() {
	case KindStock:
		for _, c := range cards {
			if c.FaceUp {
				return violation("face-up %s in stock", c)
			}
		}
	case KindWaste:
		for _, c := range cards {
			if !c.FaceUp {
				return violation("face-down %s in waste", c)
			}
		}
	case KindFoundation:
		suit := b.FoundationSuits[id.Index()]
		if len(cards) == 0 {
			if suit != NoSuit {
				return violation("empty %s tagged %s", id, suit)
			}
			return nil
		}
		for i, c := range cards {
			if c.Suit != suit || c.Rank != i+1 || !c.FaceUp {
				return violation("%s out of sequence at position %d in %s (%s)", c, i, id, suit)
			}
		}
	case KindTableau:
		if len(cards) == 0 {
			return nil
		}
		if !cards[len(cards)-1].FaceUp {
			return violation("%s top card is face-down", id)
		}
		faceUp := false
		for i, c := range cards {
			if faceUp && !c.FaceUp {
				return violation("face-down %s above face-up card at position %d in %s", c, i, id)
			}
			faceUp = faceUp || c.FaceUp
		}
	}
	return nil
}

func violation(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvariantViolation}, args...)...)
}
