package engine

import "errors"

var (
	// ErrEmptyDeck is returned by Deck.Deal once every card has been dealt
	ErrEmptyDeck = errors.New("deck is empty")

	// ErrPileDiscipline is returned when a push or pop breaks the rules of the pile kind
	ErrPileDiscipline = errors.New("pile discipline violated")

	// ErrInvariantViolation signals corrupted board state. It indicates a bug,
	// never an illegal move.
	ErrInvariantViolation = errors.New("board invariant violated")

	// ErrUnknownPile is returned when a pile name cannot be parsed
	ErrUnknownPile = errors.New("unknown pile")
)
