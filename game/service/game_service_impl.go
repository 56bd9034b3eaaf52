package service

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wricardo/klondike/game/engine"
	"github.com/wricardo/klondike/game/stats"
)

const (
	// DefaultAutoCompleteDelay paces auto-complete so a renderer can show each move
	DefaultAutoCompleteDelay = 100 * time.Millisecond

	statsTimeout = 5 * time.Second
)

// Options tunes a game service
type Options struct {
	AutoCompleteDelay time.Duration
	Logger            *logrus.Entry
}

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	stats    StatsStore
	delay    time.Duration
	log      *logrus.Entry
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance. A nil stats store
// keeps counters in memory.
func NewGameService(sessions SessionManager, store StatsStore) GameService {
	return NewGameServiceWithOptions(sessions, store, Options{AutoCompleteDelay: DefaultAutoCompleteDelay})
}

// NewGameServiceWithOptions creates a game service with explicit options
func NewGameServiceWithOptions(sessions SessionManager, store StatsStore, opts Options) GameService {
	if store == nil {
		store = stats.NewMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.WithField("component", "service")
	}
	if opts.AutoCompleteDelay < 0 {
		opts.AutoCompleteDelay = 0
	}
	return &gameServiceImpl{
		sessions: sessions,
		stats:    store,
		delay:    opts.AutoCompleteDelay,
		log:      opts.Logger,
	}
}

// CreateSession creates a session, seeds its counters from the stats store
// and deals the first game
func (s *gameServiceImpl) CreateSession(ctx context.Context) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Let session manager generate the ID
	sess, err := s.sessions.Create("")
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	saved, err := s.stats.Load(ctx)
	if err != nil {
		s.log.WithError(err).WithField("session", sess.ID).Warn("failed to load stats, starting from zero")
		saved = engine.Stats{}
	}
	sess.Engine.SetStats(saved)

	before := sess.Engine.Stats()
	if err := sess.Engine.NewGame(); err != nil {
		_ = s.sessions.Delete(sess.ID)
		return nil, fmt.Errorf("failed to deal first game: %w", err)
	}
	s.trackStats(ctx, sess.Engine, before)

	s.log.WithFields(logrus.Fields{"session": sess.ID, "game": sess.Engine.GameID()}).Info("session created")
	return sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}

	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	s.log.WithField("session", sessionID).Info("session deleted")
	return nil
}

// NewGame abandons the current deal and starts a fresh one
func (s *gameServiceImpl) NewGame(ctx context.Context, sessionID string) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	before := sess.Engine.Stats()
	if err := sess.Engine.NewGame(); err != nil {
		return nil, fmt.Errorf("new game: %w", err)
	}
	s.trackStats(ctx, sess.Engine, before)

	s.log.WithFields(logrus.Fields{"session": sessionID, "game": sess.Engine.GameID()}).Debug("new game dealt")
	return &ActionResult{
		Success:   true,
		GameState: sess.Engine.State().Public(),
		Message:   "New game dealt",
		Events:    []GameEvent{newEvent(EventNewGame, "New game dealt", nil)},
	}, nil
}

// Draw clicks the stock: draws up to three cards or recycles the waste
func (s *gameServiceImpl) Draw(ctx context.Context, sessionID string) (*DrawResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	before := sess.Engine.Stats()
	prev := sess.Engine.Status()
	drawn, err := sess.Engine.DrawFromStock()
	if err != nil {
		return nil, err
	}
	s.trackStats(ctx, sess.Engine, before)

	result := &DrawResult{
		Kind:      drawn.Kind,
		Cards:     drawn.Cards,
		Recycled:  drawn.Recycled,
		Reason:    drawn.Reason,
		GameState: sess.Engine.State().Public(),
		Events:    []GameEvent{},
	}
	switch drawn.Kind {
	case engine.DrawRevealed:
		result.Message = fmt.Sprintf("Drew %s", engine.FormatCards(drawn.Cards))
		result.Events = append(result.Events, newEvent(EventDraw, result.Message, nil))
	case engine.DrawRecycled:
		result.Message = fmt.Sprintf("Recycled %d cards from the waste", drawn.Recycled)
		result.Events = append(result.Events, newEvent(EventRecycle, result.Message, nil))
	default:
		result.Message = rejectMessage(drawn.Reason)
	}
	result.Events = append(result.Events, statusEvents(prev, sess.Engine)...)

	return result, nil
}

// Move picks up the card at req.CardIndex of req.From, with every card above
// it, and drops the run on req.To
func (s *gameServiceImpl) Move(ctx context.Context, sessionID string, req MoveRequest) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	before := sess.Engine.Stats()
	prev := sess.Engine.Status()
	moved, err := sess.Engine.AttemptMove(req.From, req.CardIndex, req.To)
	if err != nil {
		s.log.WithError(err).WithField("session", sessionID).Error("move rolled back")
		return nil, err
	}
	s.trackStats(ctx, sess.Engine, before)

	return moveResult(moved, prev, sess.Engine), nil
}

// MoveToFoundation sends the top card of source to whichever foundation
// accepts it
func (s *gameServiceImpl) MoveToFoundation(ctx context.Context, sessionID string, source engine.PileID) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	before := sess.Engine.Stats()
	prev := sess.Engine.Status()
	moved, err := sess.Engine.MoveToFoundation(source)
	if err != nil {
		s.log.WithError(err).WithField("session", sessionID).Error("foundation move rolled back")
		return nil, err
	}
	s.trackStats(ctx, sess.Engine, before)

	return moveResult(moved, prev, sess.Engine), nil
}

// Undo reverts the last action at the cost of the undo penalty
func (s *gameServiceImpl) Undo(ctx context.Context, sessionID string) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	result := &ActionResult{Events: []GameEvent{}}
	if sess.Engine.Undo() {
		result.Success = true
		result.Message = fmt.Sprintf("Undone, %d points deducted", engine.UndoPenalty)
		result.Events = append(result.Events, newEvent(EventUndo, result.Message, nil))
	} else {
		result.Message = "Nothing to undo"
	}
	result.GameState = sess.Engine.State().Public()

	return result, nil
}

// Hint suggests a visible foundation move
func (s *gameServiceImpl) Hint(ctx context.Context, sessionID string) (*HintResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	move, ok := sess.Engine.Hint()
	if !ok {
		return &HintResult{Message: "No foundation move available"}, nil
	}
	return &HintResult{Found: true, Move: &move, Message: move.Text}, nil
}

// AutoComplete plays every remaining foundation move, pausing between steps.
// The service lock is held only while a step is applied, so state reads and
// other sessions proceed during the pauses. Cancelling ctx stops the run
// after the current step.
func (s *gameServiceImpl) AutoComplete(ctx context.Context, sessionID string, onStep func(AutoCompleteStep)) (*AutoCompleteResult, error) {
	s.mu.Lock()
	sess, err := s.session(sessionID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	eng := sess.Engine
	if !eng.CanAutoComplete() {
		state := eng.State().Public()
		s.mu.Unlock()
		return &AutoCompleteResult{
			Moves:     []engine.MoveDescription{},
			GameState: state,
			Message:   "Auto-complete needs an empty stock and every tableau card face up",
		}, nil
	}
	prev := eng.Status()
	next, stop := iter.Pull(eng.AutoComplete())
	s.mu.Unlock()

	log := s.log.WithFields(logrus.Fields{"session": sessionID, "game": eng.GameID()})
	result := &AutoCompleteResult{Started: true, Moves: []engine.MoveDescription{}}

	// Counters are diffed around each locked step only, so operations that
	// run during the pauses are not counted a second time.
	for ctx.Err() == nil {
		s.mu.Lock()
		before := eng.Stats()
		move, ok := next()
		var state *engine.GameState
		if ok {
			state = eng.State().Public()
		}
		s.trackStats(ctx, eng, before)
		s.mu.Unlock()
		if !ok {
			break
		}

		result.Moves = append(result.Moves, move)
		log.WithField("move", move.Text).Debug("auto-complete step")
		if onStep != nil {
			onStep(AutoCompleteStep{SessionID: sessionID, Index: len(result.Moves), Move: move, GameState: state})
		}
		if err := sleepCtx(ctx, s.delay); err != nil {
			break
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	before := eng.Stats()
	stop()
	s.trackStats(ctx, eng, before)
	result.Cancelled = ctx.Err() != nil

	if err := eng.AutoCompleteErr(); err != nil {
		log.WithError(err).Error("auto-complete stopped")
		return nil, err
	}

	result.GameState = eng.State().Public()
	result.Message = fmt.Sprintf("Auto-complete played %d moves", len(result.Moves))
	result.Events = append([]GameEvent{newEvent(EventAutoComplete, result.Message, nil)}, statusEvents(prev, eng)...)
	return result, nil
}

// GetGameState returns the public view of a session's game
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	return sess.Engine.State().Public(), nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Engine.History()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := min(start+opts.Limit, total)

	moves := []engine.MoveRecord{}
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			moves = append(moves, history[i])
		}
	} else if start < total {
		moves = history[start:end]
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// GetStats returns the persisted games-played and games-won counters
func (s *gameServiceImpl) GetStats(ctx context.Context) (*StatsInfo, error) {
	saved, err := s.stats.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	return newStatsInfo(saved), nil
}

// ResetStats zeroes the persisted counters and those of every live engine
func (s *gameServiceImpl) ResetStats(ctx context.Context) (*StatsInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.stats.Reset(ctx); err != nil {
		return nil, fmt.Errorf("failed to reset stats: %w", err)
	}
	for _, sess := range s.sessions.List() {
		sess.Engine.ResetStats()
	}

	s.log.Info("stats reset")
	return newStatsInfo(engine.Stats{}), nil
}

func (s *gameServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

// trackStats forwards the counter change since before to the stats store.
// The write happens in the background; failures are logged and dropped.
func (s *gameServiceImpl) trackStats(ctx context.Context, eng *engine.GameEngine, before engine.Stats) {
	after := eng.Stats()
	played := after.GamesPlayed - before.GamesPlayed
	won := after.GamesWon - before.GamesWon
	if played == 0 && won == 0 {
		return
	}

	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, statsTimeout)
		defer cancel()
		if err := s.stats.Record(ctx, played, won); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{"played": played, "won": won}).Warn("failed to record stats")
		}
	}()
}

func sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.State().Public(),
	}
}

func moveResult(moved engine.MoveResult, prev engine.Status, eng *engine.GameEngine) *MoveResult {
	result := &MoveResult{
		Success:    moved.Applied,
		Reason:     moved.Reason,
		Move:       moved.Move,
		Flipped:    moved.Flipped,
		ScoreDelta: moved.ScoreDelta,
		GameState:  eng.State().Public(),
		Events:     []GameEvent{},
	}
	if !moved.Applied {
		result.Message = rejectMessage(moved.Reason)
		return result
	}

	result.Message = moved.Move.Text
	kind := EventMove
	if moved.Move.To.Kind() == engine.KindFoundation {
		kind = EventFoundation
	}
	result.Events = append(result.Events, newEvent(kind, moved.Move.Text, &moved.Move))
	if moved.Flipped {
		result.Events = append(result.Events, newEvent(EventFlip, fmt.Sprintf("Turned over a card on %s", moved.Move.From), nil))
	}
	result.Events = append(result.Events, statusEvents(prev, eng)...)
	return result
}

func statusEvents(prev engine.Status, eng *engine.GameEngine) []GameEvent {
	cur := eng.Status()
	if cur == prev {
		return nil
	}
	switch cur {
	case engine.StatusWon:
		return []GameEvent{newEvent(EventWon, fmt.Sprintf("You won! Final score %d", eng.Score()), nil)}
	case engine.StatusStalled:
		return []GameEvent{newEvent(EventStalled, "No moves left", nil)}
	}
	return nil
}

func newEvent(kind, message string, move *engine.MoveDescription) GameEvent {
	return GameEvent{Type: kind, Message: message, Timestamp: time.Now(), Move: move}
}

func rejectMessage(reason engine.RejectReason) string {
	switch reason {
	case engine.ReasonNone:
		return ""
	case engine.ReasonNotInProgress:
		return "No game in progress"
	case engine.ReasonEmptySelection:
		return "Nothing to pick up there"
	case engine.ReasonWrongRank:
		return "That card does not fit there"
	case engine.ReasonWrongColor:
		return "Cards on the tableau must alternate colour"
	case engine.ReasonWrongSuit:
		return "That foundation holds another suit"
	case engine.ReasonMultiToFoundation:
		return "Only one card at a time goes to a foundation"
	case engine.ReasonFaceDownCard, engine.ReasonTargetFaceDown:
		return "Face-down cards cannot be moved or built on"
	case engine.ReasonNoFoundation:
		return "No foundation accepts that card"
	}
	return fmt.Sprintf("Move rejected: %s", reason)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
