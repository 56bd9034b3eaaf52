package engine

import (
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Lifecycle
	NewGame() error
	Status() Status
	CheckWin() bool
	CheckGameOver() bool

	// Player actions
	DrawFromStock() (DrawResult, error)
	AttemptMove(source PileID, cardIndex int, target PileID) (MoveResult, error)
	MoveToFoundation(source PileID) (MoveResult, error)
	Undo() bool

	// Solver aids
	Hint() (MoveDescription, bool)
	HasAvailableMove() bool
	CanAutoComplete() bool
	AutoComplete() iter.Seq[MoveDescription]
	AutoCompleteErr() error

	// Queries
	State() *GameState
	Board() *Board
	Score() int
	Elapsed() time.Duration
	GameID() string
	UndoDepth() int
	History() []MoveRecord

	// Cross-game counters
	Stats() Stats
	SetStats(stats Stats)
	ResetStats()
}

// GameEngine implements the Engine interface. It is not safe for
// concurrent use; callers serialise access.
type GameEngine struct {
	opts    Options
	board   *Board
	undo    *UndoStack
	status  Status
	score   int
	gameID  string
	started time.Time
	ended   time.Time
	stats   Stats
	history []MoveRecord
	autoErr error
}

// NewEngine creates an engine with no game dealt
func NewEngine(opts Options) (*GameEngine, error) {
	if err := ValidateOptions(opts); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	return &GameEngine{
		opts:   opts,
		board:  NewBoard(),
		undo:   NewUndoStack(opts.MaxUndo),
		status: StatusNotStarted,
	}, nil
}

// NewEngineWithDefaults creates an engine using DefaultOptions
func NewEngineWithDefaults() *GameEngine {
	e, _ := NewEngine(DefaultOptions())
	return e
}

// NewGame ends any game in progress, shuffles a fresh deck and deals it:
// column i receives i+1 cards with only the last face-up, and the
// remaining 24 cards go face-down to the stock.
func (e *GameEngine) NewGame() error {
	if e.status == StatusInProgress {
		e.endGame(false)
	}

	e.status = StatusDealing
	e.board.Reset()

	deck := NewDeck()
	deck.Shuffle(e.opts.Rand)

	for col := 0; col < NumTableaus; col++ {
		for n := 0; n <= col; n++ {
			card, err := deck.Deal()
			if err != nil {
				return fmt.Errorf("dealing tableau %d: %w", col, err)
			}
			card.FaceUp = n == col
			if err := e.board.Push(Tableau(col), card); err != nil {
				return err
			}
		}
	}
	for deck.Remaining() > 0 {
		card, err := deck.Deal()
		if err != nil {
			return fmt.Errorf("dealing stock: %w", err)
		}
		if err := e.board.Push(StockPile, card); err != nil {
			return err
		}
	}

	if e.opts.CheckInvariants {
		if err := e.board.Validate(); err != nil {
			e.status = StatusNotStarted
			return fmt.Errorf("new game: %w", err)
		}
	}

	e.score = 0
	e.undo.Clear()
	e.history = nil
	e.autoErr = nil
	e.gameID = uuid.NewString()
	e.started = e.opts.Clock()
	e.ended = time.Time{}
	e.stats.GamesPlayed++
	e.status = StatusInProgress
	return nil
}

// LoadBoard replaces the live board with a copy of b and marks the game in
// progress. The undo history is cleared and the score set to score.
func (e *GameEngine) LoadBoard(b *Board, score int) error {
	if err := b.Validate(); err != nil {
		return err
	}
	e.board = b.Clone()
	e.score = score
	e.undo.Clear()
	e.history = nil
	e.autoErr = nil
	if e.gameID == "" {
		e.gameID = uuid.NewString()
	}
	e.started = e.opts.Clock()
	e.ended = time.Time{}
	e.status = StatusInProgress
	return nil
}

// DrawFromStock turns up to three cards from the stock onto the waste. When
// the stock is empty the waste is turned back over into the stock instead.
// With both empty it is a no-op.
func (e *GameEngine) DrawFromStock() (DrawResult, error) {
	if e.status != StatusInProgress {
		return DrawResult{Kind: DrawNoop, Reason: ReasonNotInProgress, Status: e.status}, nil
	}

	stock := e.board.Pile(StockPile)
	waste := e.board.Pile(WastePile)
	if stock.IsEmpty() && waste.IsEmpty() {
		e.CheckGameOver()
		return DrawResult{Kind: DrawNoop, Reason: ReasonEmptySelection, Status: e.status}, nil
	}

	before, err := TakeSnapshot(e.board, e.score)
	if err != nil {
		return DrawResult{}, err
	}
	logged := len(e.history)

	var result DrawResult
	if !stock.IsEmpty() {
		result, err = e.draw()
	} else {
		result, err = e.recycle()
	}
	if err == nil {
		err = e.verify()
	}
	if err != nil {
		e.rollback(before, logged)
		return DrawResult{}, fmt.Errorf("draw: %w", err)
	}

	e.undo.Push(before)
	if result.Kind == DrawRecycled || e.board.Pile(StockPile).IsEmpty() {
		e.CheckGameOver()
	}
	result.Status = e.status
	return result, nil
}

func (e *GameEngine) draw() (DrawResult, error) {
	n := min(DrawCount, e.board.Pile(StockPile).Len())
	drawn := make([]Card, 0, n)

	for i := 0; i < n; i++ {
		popped, err := e.board.Pop(StockPile, 1)
		if err != nil {
			return DrawResult{}, err
		}
		card := popped[0]
		card.FaceUp = true
		if err := e.board.Push(WastePile, card); err != nil {
			return DrawResult{}, err
		}
		drawn = append(drawn, card)
	}

	from, to := StockPile, WastePile
	e.record(ActionDraw, &from, &to, drawn)
	return DrawResult{Kind: DrawRevealed, Cards: drawn}, nil
}

func (e *GameEngine) recycle() (DrawResult, error) {
	n := e.board.Pile(WastePile).Len()
	for i := 0; i < n; i++ {
		popped, err := e.board.Pop(WastePile, 1)
		if err != nil {
			return DrawResult{}, err
		}
		card := popped[0]
		card.FaceUp = false
		if err := e.board.Push(StockPile, card); err != nil {
			return DrawResult{}, err
		}
	}

	from, to := WastePile, StockPile
	e.record(ActionRecycle, &from, &to, nil)
	return DrawResult{Kind: DrawRecycled, Recycled: n}, nil
}

// AttemptMove moves the card at cardIndex of source, together with every
// card above it when source is a tableau column, onto target. Illegal moves
// are reported through MoveResult.Reason and leave the game untouched. The
// error is reserved for invariant violations, after which the move is
// rolled back.
func (e *GameEngine) AttemptMove(source PileID, cardIndex int, target PileID) (MoveResult, error) {
	result := MoveResult{Move: MoveDescription{From: source, To: target}, Status: e.status}

	if reason := e.checkMove(source, target); reason != ReasonNone {
		result.Reason = reason
		return result, nil
	}

	run, reason := MovableRun(e.board.Pile(source), cardIndex)
	if reason == ReasonNone {
		if target.Kind() == KindFoundation {
			reason = ValidateFoundationMove(run, e.board.Pile(target))
		} else {
			reason = ValidateTableauMove(run, e.board.Pile(target))
		}
	}
	if reason != ReasonNone {
		result.Reason = reason
		return result, nil
	}

	return e.applyMove(source, len(run), target)
}

// MoveToFoundation sends the top card of source to the first foundation
// that accepts it
func (e *GameEngine) MoveToFoundation(source PileID) (MoveResult, error) {
	result := MoveResult{Move: MoveDescription{From: source}, Status: e.status}

	if e.status != StatusInProgress {
		result.Reason = ReasonNotInProgress
		return result, nil
	}
	if !source.Valid() {
		result.Reason = ReasonInvalidSource
		return result, nil
	}

	run, reason := MovableRun(e.board.Pile(source), -1)
	if reason != ReasonNone {
		result.Reason = reason
		return result, nil
	}

	f := foundationFor(e.board, run[0])
	if f < 0 {
		result.Reason = ReasonNoFoundation
		return result, nil
	}
	return e.AttemptMove(source, e.board.Pile(source).TopIndex(), Foundation(f))
}

func (e *GameEngine) checkMove(source, target PileID) RejectReason {
	switch {
	case e.status != StatusInProgress:
		return ReasonNotInProgress
	case !source.Valid():
		return ReasonInvalidSource
	case !target.Valid():
		return ReasonInvalidTarget
	case source == target:
		return ReasonSamePile
	}

	kind := target.Kind()
	if kind != KindFoundation && kind != KindTableau {
		return ReasonInvalidTarget
	}
	return ReasonNone
}

// applyMove transfers the top n cards of source onto target, flips the new
// source top and scores the move. It assumes the move was validated.
func (e *GameEngine) applyMove(source PileID, n int, target PileID) (MoveResult, error) {
	before, err := TakeSnapshot(e.board, e.score)
	if err != nil {
		return MoveResult{}, err
	}
	logged := len(e.history)

	result, err := e.transfer(source, n, target, ActionMove)
	if err == nil {
		err = e.verify()
	}
	if err != nil {
		e.rollback(before, logged)
		return MoveResult{}, fmt.Errorf("move %s to %s: %w", source, target, err)
	}

	e.undo.Push(before)
	if !e.CheckWin() {
		e.CheckGameOver()
	}
	result.Status = e.status
	return result, nil
}

func (e *GameEngine) transfer(source PileID, n int, target PileID, action string) (MoveResult, error) {
	cards, err := e.board.Pop(source, n)
	if err != nil {
		return MoveResult{}, err
	}
	if target.Kind() == KindFoundation {
		for _, c := range cards {
			if err := e.board.Push(target, c); err != nil {
				return MoveResult{}, err
			}
		}
	} else if err := e.board.Push(target, cards...); err != nil {
		return MoveResult{}, err
	}

	result := MoveResult{Applied: true, Move: describeMove(source, target, cards)}
	if source.Kind() == KindTableau && e.board.FlipTop(source) {
		result.Flipped = true
		result.ScoreDelta += FlipPoints
	}
	if target.Kind() == KindFoundation {
		result.ScoreDelta += FoundationPoints
	}
	e.score += result.ScoreDelta

	e.record(action, &source, &target, cards)
	return result, nil
}

// rollback restores a pre-mutation snapshot and drops log entries written
// after it
func (e *GameEngine) rollback(before Snapshot, logged int) {
	before.Restore(e.board)
	e.score = before.Score
	e.history = e.history[:logged]
}

// Undo restores the most recent snapshot and then deducts the undo
// penalty from the restored score. It returns false when there is nothing
// to undo or no game is in progress.
func (e *GameEngine) Undo() bool {
	if e.status != StatusInProgress {
		return false
	}
	snap, ok := e.undo.Pop()
	if !ok {
		return false
	}

	snap.Restore(e.board)
	e.score = snap.Score - UndoPenalty
	e.record(ActionUndo, nil, nil, nil)
	return true
}

// Hint returns the first visible foundation move, scanning tableau tops in
// column order and then the waste top
func (e *GameEngine) Hint() (MoveDescription, bool) {
	if e.status != StatusInProgress {
		return MoveDescription{}, false
	}
	return FindFoundationMove(e.board)
}

// HasAvailableMove reports whether any legal card move exists
func (e *GameEngine) HasAvailableMove() bool {
	return HasAvailableMove(e.board)
}

// CanAutoComplete reports whether the game may be finished automatically
func (e *GameEngine) CanAutoComplete() bool {
	return e.status == StatusInProgress && CanAutoComplete(e.board)
}

// AutoComplete returns a sequence that plays one foundation move per
// iteration until no foundation move remains. Moves are applied lazily as
// the caller pulls them, so the caller may redraw or pause between steps
// and stop early by breaking out of the loop. Win and stall checks run when
// the sequence ends. The sequence is empty when CanAutoComplete is false.
//
// Each step rescans from the first tableau column, then the waste, and
// plays a single card, rather than sweeping every column per pause. The
// cards reach the foundations in a different order but the final board is
// the same.
//
// The run belongs to the deal it started on. It ends without further moves
// as soon as a new game is dealt or the board no longer qualifies for
// auto-complete, e.g. after an undo between steps.
func (e *GameEngine) AutoComplete() iter.Seq[MoveDescription] {
	return func(yield func(MoveDescription) bool) {
		if !e.CanAutoComplete() {
			return
		}
		gameID := e.gameID
		e.autoErr = nil
		defer func() {
			if e.gameID != gameID {
				return
			}
			if !e.CheckWin() {
				e.CheckGameOver()
			}
		}()

		for e.gameID == gameID && e.CanAutoComplete() {
			move, ok := FindFoundationMove(e.board)
			if !ok {
				return
			}
			if err := e.autoStep(move); err != nil {
				e.autoErr = fmt.Errorf("auto-complete %s: %w", move.Text, err)
				return
			}
			if !yield(move) {
				return
			}
		}
	}
}

// autoStep applies one auto-complete move without recording an undo snapshot
func (e *GameEngine) autoStep(move MoveDescription) error {
	before, err := TakeSnapshot(e.board, e.score)
	if err != nil {
		return err
	}
	logged := len(e.history)

	_, err = e.transfer(move.From, move.Count, move.To, ActionAutoComplete)
	if err == nil {
		err = e.verify()
	}
	if err != nil {
		e.rollback(before, logged)
	}
	return err
}

// AutoCompleteErr returns the invariant violation that stopped the last
// auto-complete run, if any
func (e *GameEngine) AutoCompleteErr() error {
	return e.autoErr
}

// CheckWin ends the game as won, adding the time bonus, when all four
// foundations are complete
func (e *GameEngine) CheckWin() bool {
	if !IsWon(e.board) {
		return false
	}
	if e.status == StatusInProgress {
		e.endGame(true)
	}
	return true
}

// CheckGameOver ends the game as stalled when the stock is empty and no
// legal move remains. A non-empty stock never stalls the game.
func (e *GameEngine) CheckGameOver() bool {
	if e.status == StatusStalled {
		return true
	}
	if e.status != StatusInProgress {
		return false
	}
	if !e.board.Pile(StockPile).IsEmpty() || HasAvailableMove(e.board) {
		return false
	}
	e.endGame(false)
	return true
}

func (e *GameEngine) endGame(won bool) {
	if e.status != StatusInProgress {
		return
	}
	e.ended = e.opts.Clock()
	if won {
		e.status = StatusWon
		e.stats.GamesWon++
		e.score += TimeBonus(int64(e.Elapsed().Seconds()))
		return
	}
	e.status = StatusStalled
}

func (e *GameEngine) verify() error {
	if !e.opts.CheckInvariants {
		return nil
	}
	return e.board.Validate()
}

func (e *GameEngine) record(action string, from, to *PileID, cards []Card) {
	e.history = append(e.history, MoveRecord{
		Number:     len(e.history) + 1,
		Action:     action,
		From:       from,
		To:         to,
		Cards:      append([]Card(nil), cards...),
		ScoreAfter: e.score,
		Timestamp:  e.opts.Clock(),
	})
}

// State returns a copy of the current game state
func (e *GameEngine) State() *GameState {
	return newGameState(e)
}

// Board returns a deep copy of the live board
func (e *GameEngine) Board() *Board {
	return e.board.Clone()
}

// Status returns the lifecycle state
func (e *GameEngine) Status() Status {
	return e.status
}

// Score returns the current score
func (e *GameEngine) Score() int {
	return e.score
}

// Elapsed returns the time since the deal, frozen once the game ends
func (e *GameEngine) Elapsed() time.Duration {
	if e.started.IsZero() {
		return 0
	}
	if !e.ended.IsZero() {
		return e.ended.Sub(e.started)
	}
	return e.opts.Clock().Sub(e.started)
}

// GameID returns the identifier of the current deal
func (e *GameEngine) GameID() string {
	return e.gameID
}

// UndoDepth returns the number of stored undo snapshots
func (e *GameEngine) UndoDepth() int {
	return e.undo.Len()
}

// History returns the log of applied actions in the current game
func (e *GameEngine) History() []MoveRecord {
	out := make([]MoveRecord, len(e.history))
	copy(out, e.history)
	return out
}

// Stats returns the cross-game counters
func (e *GameEngine) Stats() Stats {
	return e.stats
}

// SetStats seeds the cross-game counters, typically from saved settings
func (e *GameEngine) SetStats(stats Stats) {
	e.stats = stats
}

// ResetStats zeroes the cross-game counters
func (e *GameEngine) ResetStats() {
	e.stats = Stats{}
}
