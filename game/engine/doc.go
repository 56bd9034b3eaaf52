// Package engine provides the core rules for Klondike solitaire.
//
// The engine package implements the game mechanics including:
//   - Card, deck and pile modelling with per-pile push/pop discipline
//   - Move validation for foundation and tableau targets
//   - Draw-three stock handling with unlimited recycling
//   - Scoring, bounded undo history and win/stall detection
//   - Hints, exhaustive move search and auto-complete
//
// Core Types:
//
// The Engine interface defines the main contract for game operations,
// implemented by GameEngine. Board is the arena holding the 13 piles
// (stock, waste, four foundations, seven tableau columns) addressed by
// PileID. Snapshot is a value copy of a Board used by the undo history,
// and GameState is the serialisable view handed to renderers.
//
// Usage:
//
//	e := engine.NewEngineWithDefaults()
//	if err := e.NewGame(); err != nil {
//		log.Fatal(err)
//	}
//
//	e.DrawFromStock()
//	result, err := e.AttemptMove(engine.WastePile, -1, engine.Tableau(3))
//	if err != nil {
//		log.Fatal(err) // invariant violation, never an illegal move
//	}
//	if !result.Applied {
//		fmt.Println("rejected:", result.Reason)
//	}
//
//	for move := range e.AutoComplete() {
//		fmt.Println(move.Text)
//	}
//
// Game Rules:
//
// Foundations build up by suit from Ace to King; the first Ace placed on a
// foundation claims its suit. Tableau columns build down in alternating
// colors, and an empty column accepts any card or run. Drawing turns up to
// three cards from the stock; when the stock is empty the waste is turned
// back over without penalty. Flipping a tableau card scores 5, every card
// sent to a foundation scores 10, and each undo costs 15 on top of the
// restored score. A win adds max(0, 10000 - 2*seconds). The game stalls
// when the stock is empty and no card move remains.
//
// The engine is synchronous and not safe for concurrent use.
package engine
