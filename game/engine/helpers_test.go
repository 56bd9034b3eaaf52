package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func up(s Suit, rank int) Card {
	return Card{Suit: s, Rank: rank, FaceUp: true}
}

func down(s Suit, rank int) Card {
	return Card{Suit: s, Rank: rank}
}

// layout describes a hand-built board. Foundations are given as
// suit/height pairs and filled Ace upwards. Cards not placed anywhere go
// face-down to the stock, or face-up to the waste when restToWaste is set.
type layout struct {
	foundations []foundationFill
	tableau     [NumTableaus][]Card
	waste       []Card
	stock       []Card
	restToWaste bool
}

type foundationFill struct {
	suit   Suit
	height int
}

func buildBoard(t *testing.T, l layout) *Board {
	t.Helper()

	b := NewBoard()
	placed := map[int]bool{}
	mark := func(c Card) {
		require.False(t, placed[c.key()], "card %s placed twice", c)
		placed[c.key()] = true
	}

	for i, f := range l.foundations {
		for rank := Ace; rank <= f.height; rank++ {
			c := up(f.suit, rank)
			mark(c)
			require.NoError(t, b.Push(Foundation(i), c))
		}
	}
	for i, col := range l.tableau {
		for _, c := range col {
			mark(c)
		}
		b.Piles[Tableau(i)] = append([]Card(nil), col...)
	}
	for _, c := range l.waste {
		mark(c)
	}
	b.Piles[WastePile] = append([]Card(nil), l.waste...)
	for _, c := range l.stock {
		mark(c)
	}
	b.Piles[StockPile] = append([]Card(nil), l.stock...)

	deck := NewDeck()
	for _, c := range deck.cards {
		if placed[c.key()] {
			continue
		}
		if l.restToWaste {
			c.FaceUp = true
			b.Piles[WastePile] = append(b.Piles[WastePile], c)
		} else {
			b.Piles[StockPile] = append(b.Piles[StockPile], c)
		}
	}

	require.NoError(t, b.Validate())
	return b
}

// stalledLayout has spades and clubs complete, hearts and diamonds up to
// five, and the remaining red cards spread so that no top card can move.
func stalledLayout() layout {
	return layout{
		foundations: []foundationFill{{Spades, 13}, {Clubs, 13}, {Hearts, 5}, {Diamonds, 5}},
		tableau: [NumTableaus][]Card{
			{down(Hearts, 6), down(Hearts, 8), up(Hearts, 7)},
			{down(Diamonds, 6), down(Diamonds, 8), up(Diamonds, 7)},
			{down(Hearts, 10), up(Hearts, 9)},
			{down(Diamonds, 10), up(Diamonds, 9)},
			{down(Hearts, 12), up(Hearts, 11)},
			{down(Diamonds, 12), up(Diamonds, 11)},
			{down(Hearts, 13), up(Diamonds, 13)},
		},
	}
}

func wonLayout() layout {
	return layout{
		foundations: []foundationFill{{Spades, 13}, {Hearts, 13}, {Diamonds, 13}, {Clubs, 13}},
	}
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestEngine(t *testing.T) (*GameEngine, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	opts := DefaultOptions()
	opts.Clock = clock.Now
	e, err := NewEngine(opts)
	require.NoError(t, err)
	return e, clock
}

func loadedEngine(t *testing.T, l layout) (*GameEngine, *fakeClock) {
	t.Helper()
	e, clock := newTestEngine(t)
	require.NoError(t, e.LoadBoard(buildBoard(t, l), 0))
	return e, clock
}
