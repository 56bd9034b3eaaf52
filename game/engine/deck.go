package engine

import "math/rand/v2"

// Deck is the ordered set of 52 cards used to deal one game.
type Deck struct {
	cards []Card
}

// NewDeck returns the 52 cards face-down in canonical order: spades,
// hearts, diamonds, clubs, each Ace through King.
func NewDeck() *Deck {
	cards := make([]Card, 0, DeckSize)
	for _, suit := range AllSuits {
		for rank := Ace; rank <= King; rank++ {
			cards = append(cards, NewCard(suit, rank))
		}
	}
	return &Deck{cards: cards}
}

// Shuffle applies a uniform random permutation. A nil source uses the
// runtime's randomly seeded global generator.
func (d *Deck) Shuffle(r *rand.Rand) {
	swap := func(i, j int) { d.cards[i], d.cards[j] = d.cards[j], d.cards[i] }
	if r == nil {
		rand.Shuffle(len(d.cards), swap)
		return
	}
	r.Shuffle(len(d.cards), swap)
}

// Deal removes and returns the last card
func (d *Deck) Deal() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, ErrEmptyDeck
	}
	last := len(d.cards) - 1
	card := d.cards[last]
	d.cards = d.cards[:last]
	return card, nil
}

// Remaining returns the number of undealt cards
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// Cards returns a copy of the undealt cards in deal-reverse order
func (d *Deck) Cards() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}
