package engine

// HasAvailableMove reports whether any legal move exists on the board. It
// checks, in order: waste top to a foundation, waste top to a tableau,
// tableau tops to a foundation, tableau tops to another tableau, and
// face-up runs of two or more cards to another tableau. Stock draws are not
// considered.
func HasAvailableMove(b *Board) bool {
	waste := b.Pile(WastePile)
	if top, ok := waste.Top(); ok {
		if foundationFor(b, top) >= 0 {
			return true
		}
		for i := 0; i < NumTableaus; i++ {
			if CanMoveToTableau([]Card{top}, b.Pile(Tableau(i))) {
				return true
			}
		}
	}

	for i := 0; i < NumTableaus; i++ {
		top, ok := b.Pile(Tableau(i)).Top()
		if !ok || !top.FaceUp {
			continue
		}
		if foundationFor(b, top) >= 0 {
			return true
		}
	}

	for i := 0; i < NumTableaus; i++ {
		src := b.Pile(Tableau(i))
		top, ok := src.Top()
		if !ok || !top.FaceUp {
			continue
		}
		if tableauTargetFor(b, Tableau(i), []Card{top}) >= 0 {
			return true
		}
	}

	for i := 0; i < NumTableaus; i++ {
		src := b.Pile(Tableau(i))
		start := src.FaceUpIndex()
		if start < 0 {
			continue
		}
		for idx := start; idx < src.TopIndex(); idx++ {
			run := src.Cards[idx:]
			if tableauTargetFor(b, Tableau(i), run) >= 0 {
				return true
			}
		}
	}

	return false
}

// FindFoundationMove returns the first foundation-directed move found by
// scanning tableau tops in column order and then the waste top. Tableau to
// tableau moves are never suggested.
func FindFoundationMove(b *Board) (MoveDescription, bool) {
	sources := make([]PileID, 0, NumTableaus+1)
	for i := 0; i < NumTableaus; i++ {
		sources = append(sources, Tableau(i))
	}
	sources = append(sources, WastePile)

	for _, src := range sources {
		top, ok := b.Pile(src).Top()
		if !ok || !top.FaceUp {
			continue
		}
		if f := foundationFor(b, top); f >= 0 {
			return describeMove(src, Foundation(f), []Card{top}), true
		}
	}
	return MoveDescription{}, false
}

// CanAutoComplete reports whether the remaining game only needs foundation
// moves: the stock is empty and every tableau card is face-up.
func CanAutoComplete(b *Board) bool {
	return len(b.Piles[StockPile]) == 0 && CountFaceDown(b) == 0
}

// IsWon reports whether all four foundations hold a full suit
func IsWon(b *Board) bool {
	return FoundationCount(b) == NumFoundations*NumRanks
}

// foundationFor returns the index of the first foundation accepting card, or -1
func foundationFor(b *Board, card Card) int {
	for i := 0; i < NumFoundations; i++ {
		if CanMoveToFoundation(card, b.Pile(Foundation(i))) {
			return i
		}
	}
	return -1
}

// tableauTargetFor returns the index of the first tableau column other than
// from that accepts run, or -1
func tableauTargetFor(b *Board, from PileID, run []Card) int {
	for i := 0; i < NumTableaus; i++ {
		if Tableau(i) == from {
			continue
		}
		if CanMoveToTableau(run, b.Pile(Tableau(i))) {
			return i
		}
	}
	return -1
}
