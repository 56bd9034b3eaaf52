package main

import (
	"fmt"

	"github.com/wricardo/klondike/game/engine"
)

// Outcome summarises one finished game
type Outcome struct {
	GameID string
	Status engine.Status
	// Stuck is set when the player gave up on a game the engine still
	// considers in progress, e.g. a full pass through the stock made no
	// progress.
	Stuck bool
	Score int
	Steps int
	// Foundation is the number of cards played to the foundations
	Foundation int
}

// Won reports whether the game ended with all foundations complete
func (o Outcome) Won() bool {
	return o.Status == engine.StatusWon
}

// GreedyStrategy plays a deal with a fixed priority list:
//  1. auto-complete once the board allows it
//  2. any foundation move (the engine's hint)
//  3. a tableau move that turns up a face-down card or empties a column
//  4. the waste top onto a tableau column
//  5. a stock draw
//
// It never moves a whole column onto an empty one, so no move can be undone
// by a later one and the game always terminates.
type GreedyStrategy struct {
	MaxSteps int
}

// Play runs the strategy until the game ends, the player gets stuck, or
// MaxSteps actions have been taken. The error is reserved for invariant
// violations reported by the engine.
func (s GreedyStrategy) Play(eng engine.Engine) (Outcome, error) {
	idleDraws := 0
	steps := 0

	for steps < s.MaxSteps && eng.Status() == engine.StatusInProgress {
		steps++

		if eng.CanAutoComplete() {
			for range eng.AutoComplete() {
				steps++
			}
			if err := eng.AutoCompleteErr(); err != nil {
				return s.outcome(eng, steps, false), err
			}
			break
		}

		moved, err := s.playCard(eng)
		if err != nil {
			return s.outcome(eng, steps, false), err
		}
		if moved {
			idleDraws = 0
			continue
		}

		board := eng.Board()
		// one full pass through stock and waste without a card move means
		// nothing new will turn up
		limit := board.Pile(engine.StockPile).Len() + board.Pile(engine.WastePile).Len() + 2
		if idleDraws > limit {
			return s.outcome(eng, steps, true), nil
		}

		drawn, err := eng.DrawFromStock()
		if err != nil {
			return s.outcome(eng, steps, false), err
		}
		if drawn.Kind == engine.DrawNoop {
			return s.outcome(eng, steps, eng.Status() == engine.StatusInProgress), nil
		}
		idleDraws++
	}

	return s.outcome(eng, steps, eng.Status() == engine.StatusInProgress), nil
}

func (s GreedyStrategy) outcome(eng engine.Engine, steps int, stuck bool) Outcome {
	return Outcome{
		GameID: eng.GameID(),
		Status: eng.Status(),
		Stuck:  stuck,
		Score:  eng.Score(),
		Steps:  steps,

		Foundation: engine.FoundationCount(eng.Board()),
	}
}

// playCard applies the best card move it can find and reports whether one
// was applied
func (s GreedyStrategy) playCard(eng engine.Engine) (bool, error) {
	if hint, ok := eng.Hint(); ok {
		return s.apply(eng, hint.From, -1, hint.To)
	}

	board := eng.Board()
	for i := 0; i < engine.NumTableaus; i++ {
		src := engine.Tableau(i)
		pile := board.Pile(src)
		start := pile.FaceUpIndex()
		if start < 0 {
			continue
		}
		for j := 0; j < engine.NumTableaus; j++ {
			dst := engine.Tableau(j)
			if dst == src {
				continue
			}
			target := board.Pile(dst)
			// a whole column onto an empty one gains nothing
			if start == 0 && target.IsEmpty() {
				continue
			}
			if engine.CanMoveToTableau(pile.Cards[start:], target) {
				return s.apply(eng, src, start, dst)
			}
		}
	}

	if top, ok := board.Pile(engine.WastePile).Top(); ok {
		for j := 0; j < engine.NumTableaus; j++ {
			if engine.CanMoveToTableau([]engine.Card{top}, board.Pile(engine.Tableau(j))) {
				return s.apply(eng, engine.WastePile, -1, engine.Tableau(j))
			}
		}
	}

	return false, nil
}

func (s GreedyStrategy) apply(eng engine.Engine, from engine.PileID, index int, to engine.PileID) (bool, error) {
	result, err := eng.AttemptMove(from, index, to)
	if err != nil {
		return false, err
	}
	if !result.Applied {
		return false, fmt.Errorf("move %s -> %s rejected: %s", from, to, result.Reason)
	}
	return true, nil
}
