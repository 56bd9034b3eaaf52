package engine

// CanMoveToFoundation reports whether card may be placed on the foundation:
// an Ace on an empty foundation, or the next rank of the foundation's suit.
func CanMoveToFoundation(card Card, foundation Pile) bool {
	return ValidateFoundationMove([]Card{card}, foundation) == ReasonNone
}

// CanMoveToTableau reports whether the ordered run may be placed on the
// tableau column. An empty column accepts any valid run, not only Kings.
func CanMoveToTableau(cards []Card, tableau Pile) bool {
	return ValidateTableauMove(cards, tableau) == ReasonNone
}

// ValidateFoundationMove returns the reason cards cannot go onto the
// foundation, or ReasonNone when the move is legal.
func ValidateFoundationMove(cards []Card, foundation Pile) RejectReason {
	if len(cards) == 0 {
		return ReasonEmptySelection
	}
	if len(cards) > 1 {
		return ReasonMultiToFoundation
	}

	card := cards[0]
	top, ok := foundation.Top()
	if !ok {
		if card.Rank != Ace {
			return ReasonWrongRank
		}
		return ReasonNone
	}
	if card.Suit != top.Suit {
		return ReasonWrongSuit
	}
	if card.Rank != top.Rank+1 {
		return ReasonWrongRank
	}
	return ReasonNone
}

// ValidateTableauMove returns the reason the run cannot go onto the
// tableau column, or ReasonNone when the move is legal.
func ValidateTableauMove(cards []Card, tableau Pile) RejectReason {
	if len(cards) == 0 {
		return ReasonEmptySelection
	}
	if reason := ValidateRun(cards); reason != ReasonNone {
		return reason
	}

	top, ok := tableau.Top()
	if !ok {
		return ReasonNone
	}
	if !top.FaceUp {
		return ReasonTargetFaceDown
	}

	lead := cards[0]
	if top.IsRed() == lead.IsRed() {
		return ReasonWrongColor
	}
	if top.Rank != lead.Rank+1 {
		return ReasonWrongRank
	}
	return ReasonNone
}

// ValidateRun checks that every adjacent pair alternates color and descends
// by exactly one rank. A single card is always a valid run.
func ValidateRun(cards []Card) RejectReason {
	for i := 0; i+1 < len(cards); i++ {
		upper, lower := cards[i], cards[i+1]
		if upper.Rank != lower.Rank+1 || upper.IsRed() == lower.IsRed() {
			return ReasonBrokenRun
		}
	}
	return ReasonNone
}

// MovableRun resolves the cards picked up from a source pile at index.
// From the waste only the top card may be taken. From a tableau column the
// selection is every card from index to the top, all of which must be
// face-up. Index -1 selects the top card; lower indexes select nothing.
func MovableRun(source Pile, index int) ([]Card, RejectReason) {
	kind := source.Kind()
	if kind != KindWaste && kind != KindTableau {
		return nil, ReasonInvalidSource
	}
	if source.IsEmpty() {
		return nil, ReasonEmptySelection
	}
	if index == -1 {
		index = source.TopIndex()
	}
	if index < 0 || index >= source.Len() {
		return nil, ReasonEmptySelection
	}
	if kind == KindWaste && index != source.TopIndex() {
		return nil, ReasonNotTopCard
	}

	run := source.Cards[index:]
	for _, c := range run {
		if !c.FaceUp {
			return nil, ReasonFaceDownCard
		}
	}
	return run, ReasonNone
}
