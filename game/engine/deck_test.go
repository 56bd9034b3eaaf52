package engine

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeckCanonicalOrder(t *testing.T) {
	d := NewDeck()
	require.Equal(t, DeckSize, d.Remaining())

	cards := d.Cards()
	assert.Equal(t, down(Spades, Ace), cards[0])
	assert.Equal(t, down(Spades, King), cards[12])
	assert.Equal(t, down(Hearts, Ace), cards[13])
	assert.Equal(t, down(Clubs, King), cards[51])

	seen := map[int]bool{}
	for _, c := range cards {
		assert.False(t, c.FaceUp)
		assert.False(t, seen[c.key()], "duplicate %s", c)
		seen[c.key()] = true
	}
}

func TestDeckDealExhaustion(t *testing.T) {
	d := NewDeck()

	first, err := d.Deal()
	require.NoError(t, err)
	assert.Equal(t, down(Clubs, King), first, "deal removes from the end")

	for d.Remaining() > 0 {
		_, err := d.Deal()
		require.NoError(t, err)
	}

	_, err = d.Deal()
	assert.True(t, errors.Is(err, ErrEmptyDeck))
}

func TestDeckShuffleIsPermutation(t *testing.T) {
	d := NewDeck()
	d.Shuffle(rand.New(rand.NewPCG(1, 2)))

	cards := d.Cards()
	require.Len(t, cards, DeckSize)

	seen := map[int]bool{}
	for _, c := range cards {
		seen[c.key()] = true
	}
	assert.Len(t, seen, DeckSize)
	assert.NotEqual(t, NewDeck().Cards(), cards)
}

func TestDeckShuffleSeeded(t *testing.T) {
	a, b := NewDeck(), NewDeck()
	a.Shuffle(rand.New(rand.NewPCG(7, 7)))
	b.Shuffle(rand.New(rand.NewPCG(7, 7)))
	assert.Equal(t, a.Cards(), b.Cards())

	c := NewDeck()
	c.Shuffle(nil)
	assert.Equal(t, DeckSize, c.Remaining())
}
