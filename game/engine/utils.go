package engine

import (
	"fmt"
	"strings"
)

// FormatCards renders cards bottom-to-top separated by spaces. Face-down
// cards render as "??".
func FormatCards(cards []Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		if c.FaceUp {
			parts[i] = c.String()
		} else {
			parts[i] = "??"
		}
	}
	return strings.Join(parts, " ")
}

// TimeBonus returns the win bonus for the elapsed whole seconds
func TimeBonus(elapsedSeconds int64) int {
	bonus := WinBonusBase - WinBonusPerSec*elapsedSeconds
	if bonus < 0 {
		return 0
	}
	return int(bonus)
}

// CountFaceDown returns the number of face-down cards across the tableau
func CountFaceDown(b *Board) int {
	n := 0
	for i := 0; i < NumTableaus; i++ {
		for _, c := range b.Piles[Tableau(i)] {
			if !c.FaceUp {
				n++
			}
		}
	}
	return n
}

// FoundationCount returns the number of cards on all foundations
func FoundationCount(b *Board) int {
	n := 0
	for i := 0; i < NumFoundations; i++ {
		n += len(b.Piles[Foundation(i)])
	}
	return n
}

func describeMove(from, to PileID, cards []Card) MoveDescription {
	desc := MoveDescription{From: from, To: to, Count: len(cards)}
	if len(cards) == 0 {
		return desc
	}
	desc.Card = cards[0]

	target := to.String()
	if to.Kind() == KindFoundation {
		target = "foundation"
	}
	if len(cards) == 1 {
		desc.Text = fmt.Sprintf("Move %s from %s to %s", cards[0], from, target)
	} else {
		desc.Text = fmt.Sprintf("Move %s and %d more from %s to %s", cards[0], len(cards)-1, from, target)
	}
	return desc
}
