package service_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/klondike/game/engine"
	"github.com/wricardo/klondike/game/service"
)

// MockSessionManager implements service.SessionManager for testing
type MockSessionManager struct {
	sessions map[string]*service.Session
	seed     uint64
}

func NewMockSessionManager() *MockSessionManager {
	return &MockSessionManager{sessions: make(map[string]*service.Session)}
}

func (m *MockSessionManager) Create(id string) (*service.Session, error) {
	// Generate ID if empty (mimics real session manager behavior)
	if id == "" {
		id = fmt.Sprintf("test_%d", len(m.sessions)+1)
	}
	if _, exists := m.sessions[id]; exists {
		return nil, errors.New("session already exists")
	}

	m.seed++
	opts := engine.DefaultOptions()
	opts.Rand = rand.New(rand.NewPCG(m.seed, 7))
	eng, err := engine.NewEngine(opts)
	if err != nil {
		return nil, err
	}

	session := &service.Session{
		ID:             id,
		Engine:         eng,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}
	m.sessions[id] = session
	return session, nil
}

func (m *MockSessionManager) Get(id string) (*service.Session, error) {
	session, exists := m.sessions[id]
	if !exists {
		return nil, errors.New("session not found")
	}
	return session, nil
}

func (m *MockSessionManager) List() []*service.Session {
	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

func (m *MockSessionManager) Delete(id string) error {
	if _, exists := m.sessions[id]; !exists {
		return errors.New("session not found")
	}
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionManager) UpdateLastAccessed(id string) error {
	if session, exists := m.sessions[id]; exists {
		session.LastAccessedAt = time.Now()
		return nil
	}
	return errors.New("session not found")
}

// MockStatsStore implements service.StatsStore and records every delta
type MockStatsStore struct {
	LoadFunc   func() (engine.Stats, error)
	RecordFunc func(played, won int) error
	ResetFunc  func() error

	mu      sync.Mutex
	records [][2]int
	resets  int
}

func (m *MockStatsStore) Load(ctx context.Context) (engine.Stats, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc()
	}
	return engine.Stats{}, nil
}

func (m *MockStatsStore) Record(ctx context.Context, played, won int) error {
	m.mu.Lock()
	m.records = append(m.records, [2]int{played, won})
	m.mu.Unlock()
	if m.RecordFunc != nil {
		return m.RecordFunc(played, won)
	}
	return nil
}

func (m *MockStatsStore) Reset(ctx context.Context) error {
	m.mu.Lock()
	m.resets++
	m.mu.Unlock()
	if m.ResetFunc != nil {
		return m.ResetFunc()
	}
	return nil
}

func (m *MockStatsStore) totals() (played, won int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		played += r[0]
		won += r[1]
	}
	return played, won
}

func newTestService(sessions *MockSessionManager, store *MockStatsStore) service.GameService {
	logger, _ := logtest.NewNullLogger()
	return service.NewGameServiceWithOptions(sessions, store, service.Options{Logger: logrus.NewEntry(logger)})
}

// nearlyWonBoard has every foundation built to Queen and the four Kings
// face up on the first four columns
func nearlyWonBoard(t *testing.T) *engine.Board {
	t.Helper()
	b := engine.NewBoard()
	for i, suit := range engine.AllSuits {
		for rank := engine.Ace; rank < engine.King; rank++ {
			require.NoError(t, b.Push(engine.Foundation(i), engine.NewCard(suit, rank)))
		}
		king := engine.NewCard(suit, engine.King)
		king.FaceUp = true
		require.NoError(t, b.Push(engine.Tableau(i), king))
	}
	return b
}

// openBoard puts 24 cards in the stock and the other 28 on the first column,
// leaving six empty columns so a move always exists
func openBoard(t *testing.T) *engine.Board {
	t.Helper()
	b := engine.NewBoard()
	cards := engine.NewDeck().Cards()
	require.NoError(t, b.Push(engine.StockPile, cards[:24]...))
	column := cards[24:]
	column[len(column)-1].FaceUp = true
	require.NoError(t, b.Push(engine.Tableau(0), column...))
	return b
}

// setupNearlyWon creates a session and replaces its deal with nearlyWonBoard
func setupNearlyWon(t *testing.T, sessions *MockSessionManager, svc service.GameService) string {
	t.Helper()
	info, err := svc.CreateSession(context.Background())
	require.NoError(t, err)
	sess, err := sessions.Get(info.ID)
	require.NoError(t, err)
	require.NoError(t, sess.Engine.LoadBoard(nearlyWonBoard(t), 480))
	return info.ID
}

func TestGameService_CreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("deals and seeds stats", func(t *testing.T) {
		store := &MockStatsStore{LoadFunc: func() (engine.Stats, error) {
			return engine.Stats{GamesPlayed: 10, GamesWon: 4}, nil
		}}
		svc := newTestService(NewMockSessionManager(), store)

		info, err := svc.CreateSession(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, info.ID)
		assert.Equal(t, engine.StatusInProgress, info.GameState.Status)
		assert.Equal(t, engine.Stats{GamesPlayed: 11, GamesWon: 4}, info.GameState.Stats)
		assert.Len(t, info.GameState.Pile(engine.StockPile).Cards, 24)

		assert.Eventually(t, func() bool {
			played, won := store.totals()
			return played == 1 && won == 0
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("stats load failure starts from zero", func(t *testing.T) {
		store := &MockStatsStore{LoadFunc: func() (engine.Stats, error) {
			return engine.Stats{}, errors.New("disk gone")
		}}
		svc := newTestService(NewMockSessionManager(), store)

		info, err := svc.CreateSession(ctx)
		require.NoError(t, err)
		assert.Equal(t, engine.Stats{GamesPlayed: 1}, info.GameState.Stats)
	})
}

func TestGameService_SessionNotFound(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(NewMockSessionManager(), &MockStatsStore{})

	calls := map[string]func() error{
		"get":      func() error { _, err := svc.GetSession(ctx, "nope"); return err },
		"new game": func() error { _, err := svc.NewGame(ctx, "nope"); return err },
		"draw":     func() error { _, err := svc.Draw(ctx, "nope"); return err },
		"move": func() error {
			_, err := svc.Move(ctx, "nope", service.MoveRequest{From: engine.WastePile, CardIndex: -1, To: engine.Tableau(0)})
			return err
		},
		"foundation": func() error { _, err := svc.MoveToFoundation(ctx, "nope", engine.WastePile); return err },
		"undo":       func() error { _, err := svc.Undo(ctx, "nope"); return err },
		"hint":       func() error { _, err := svc.Hint(ctx, "nope"); return err },
		"auto":       func() error { _, err := svc.AutoComplete(ctx, "nope", nil); return err },
		"state":      func() error { _, err := svc.GetGameState(ctx, "nope"); return err },
		"history":    func() error { _, err := svc.GetMoveHistory(ctx, "nope", service.HistoryOptions{}); return err },
		"delete":     func() error { return svc.DeleteSession(ctx, "nope") },
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			require.Error(t, err)
			assert.ErrorIs(t, err, service.ErrSessionNotFound)
		})
	}
}

func TestGameService_Draw(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(NewMockSessionManager(), &MockStatsStore{})

	info, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	result, err := svc.Draw(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.DrawRevealed, result.Kind)
	assert.Len(t, result.Cards, 3)
	require.NotEmpty(t, result.Events)
	assert.Equal(t, service.EventDraw, result.Events[0].Type)
	assert.Equal(t, 1, result.GameState.UndoDepth)

	stock := result.GameState.Pile(engine.StockPile)
	require.Len(t, stock.Cards, 21)
	for _, c := range stock.Cards {
		assert.Equal(t, engine.Card{}, c, "face-down cards are masked")
	}
	waste := result.GameState.Pile(engine.WastePile)
	assert.Equal(t, result.Cards, waste.Cards)
}

func TestGameService_DrawUntilRecycle(t *testing.T) {
	ctx := context.Background()
	sessions := NewMockSessionManager()
	svc := newTestService(sessions, &MockStatsStore{})
	info, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	sess, err := sessions.Get(info.ID)
	require.NoError(t, err)
	require.NoError(t, sess.Engine.LoadBoard(openBoard(t), 0))

	for i := 0; i < 8; i++ {
		result, err := svc.Draw(ctx, info.ID)
		require.NoError(t, err)
		require.Equal(t, engine.DrawRevealed, result.Kind)
	}

	result, err := svc.Draw(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.DrawRecycled, result.Kind)
	assert.Equal(t, 24, result.Recycled)
	assert.Equal(t, "Recycled 24 cards from the waste", result.Message)
	assert.Equal(t, service.EventRecycle, result.Events[0].Type)
	assert.Equal(t, engine.StatusInProgress, result.GameState.Status)
}

func TestGameService_MoveRejected(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(NewMockSessionManager(), &MockStatsStore{})

	info, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	tests := []struct {
		name   string
		req    service.MoveRequest
		reason engine.RejectReason
	}{
		{"from stock", service.MoveRequest{From: engine.StockPile, CardIndex: -1, To: engine.Tableau(0)}, engine.ReasonInvalidSource},
		{"onto waste", service.MoveRequest{From: engine.Tableau(0), CardIndex: -1, To: engine.WastePile}, engine.ReasonInvalidTarget},
		{"same pile", service.MoveRequest{From: engine.Tableau(1), CardIndex: -1, To: engine.Tableau(1)}, engine.ReasonSamePile},
		{"empty waste", service.MoveRequest{From: engine.WastePile, CardIndex: -1, To: engine.Tableau(1)}, engine.ReasonEmptySelection},
		{"face-down card", service.MoveRequest{From: engine.Tableau(6), CardIndex: 0, To: engine.Tableau(1)}, engine.ReasonFaceDownCard},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result, err := svc.Move(ctx, info.ID, test.req)
			require.NoError(t, err)
			assert.False(t, result.Success)
			assert.Equal(t, test.reason, result.Reason)
			assert.NotEmpty(t, result.Message)
			assert.Empty(t, result.Events)
			assert.Equal(t, 0, result.GameState.UndoDepth)
		})
	}
}

func TestGameService_MoveToFoundationAndAutoComplete(t *testing.T) {
	ctx := context.Background()
	sessions := NewMockSessionManager()
	store := &MockStatsStore{}
	svc := newTestService(sessions, store)
	id := setupNearlyWon(t, sessions, svc)

	moved, err := svc.MoveToFoundation(ctx, id, engine.Tableau(0))
	require.NoError(t, err)
	require.True(t, moved.Success)
	assert.Equal(t, engine.FoundationPoints, moved.ScoreDelta)
	assert.Equal(t, engine.Foundation(0), moved.Move.To)
	require.Len(t, moved.Events, 1)
	assert.Equal(t, service.EventFoundation, moved.Events[0].Type)

	hint, err := svc.Hint(ctx, id)
	require.NoError(t, err)
	require.True(t, hint.Found)
	assert.Equal(t, engine.Tableau(1), hint.Move.From)

	var steps []service.AutoCompleteStep
	result, err := svc.AutoComplete(ctx, id, func(step service.AutoCompleteStep) {
		steps = append(steps, step)
	})
	require.NoError(t, err)
	assert.True(t, result.Started)
	assert.False(t, result.Cancelled)
	assert.Len(t, result.Moves, 3)
	require.Len(t, steps, 3)
	for i, step := range steps {
		assert.Equal(t, i+1, step.Index)
		assert.Equal(t, id, step.SessionID)
	}
	assert.Equal(t, engine.StatusWon, result.GameState.Status)
	assert.Equal(t, 1, result.GameState.UndoDepth, "auto-complete adds no undo snapshots")

	types := make([]string, 0, len(result.Events))
	for _, ev := range result.Events {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []string{service.EventAutoComplete, service.EventWon}, types)

	assert.Eventually(t, func() bool {
		_, won := store.totals()
		return won == 1
	}, time.Second, 5*time.Millisecond)
}

func TestGameService_AutoCompleteUnavailable(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(NewMockSessionManager(), &MockStatsStore{})

	info, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	called := false
	result, err := svc.AutoComplete(ctx, info.ID, func(service.AutoCompleteStep) { called = true })
	require.NoError(t, err)
	assert.False(t, result.Started)
	assert.Empty(t, result.Moves)
	assert.False(t, called)
	assert.Equal(t, engine.StatusInProgress, result.GameState.Status)
}

func TestGameService_AutoCompleteCancelled(t *testing.T) {
	sessions := NewMockSessionManager()
	svc := newTestService(sessions, &MockStatsStore{})
	id := setupNearlyWon(t, sessions, svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	result, err := svc.AutoComplete(ctx, id, func(service.AutoCompleteStep) { cancel() })
	require.NoError(t, err)
	assert.True(t, result.Cancelled)
	assert.Len(t, result.Moves, 1)
	assert.Equal(t, engine.StatusInProgress, result.GameState.Status)

	state, err := svc.GetGameState(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, state.CanAutoComplete, "the rest can still be finished")
}

func TestGameService_AutoCompletePaced(t *testing.T) {
	sessions := NewMockSessionManager()
	logger, _ := logtest.NewNullLogger()
	svc := service.NewGameServiceWithOptions(sessions, &MockStatsStore{}, service.Options{
		AutoCompleteDelay: 20 * time.Millisecond,
		Logger:            logrus.NewEntry(logger),
	})
	id := setupNearlyWon(t, sessions, svc)

	start := time.Now()
	result, err := svc.AutoComplete(context.Background(), id, nil)
	require.NoError(t, err)
	assert.Len(t, result.Moves, 4)
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestGameService_NewGameDuringAutoComplete(t *testing.T) {
	sessions := NewMockSessionManager()
	store := &MockStatsStore{}
	logger, _ := logtest.NewNullLogger()
	svc := service.NewGameServiceWithOptions(sessions, store, service.Options{
		AutoCompleteDelay: 20 * time.Millisecond,
		Logger:            logrus.NewEntry(logger),
	})
	id := setupNearlyWon(t, sessions, svc)

	var dealt *service.ActionResult
	var dealErr error
	result, err := svc.AutoComplete(context.Background(), id, func(step service.AutoCompleteStep) {
		if step.Index == 1 {
			dealt, dealErr = svc.NewGame(context.Background(), id)
		}
	})
	require.NoError(t, err)
	require.NoError(t, dealErr)
	require.True(t, dealt.Success)

	assert.Len(t, result.Moves, 1, "the run stops with the deal it started on")
	assert.Equal(t, dealt.GameState.GameID, result.GameState.GameID)
	assert.Equal(t, engine.StatusInProgress, result.GameState.Status)

	state, err := svc.GetGameState(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, state.Pile(engine.StockPile).Cards, 24)
	assert.Equal(t, 0, state.TotalMoves)
	for i := 0; i < engine.NumFoundations; i++ {
		assert.Empty(t, state.Pile(engine.Foundation(i)).Cards)
	}
	assert.Equal(t, 2, state.Stats.GamesPlayed)

	assert.Eventually(t, func() bool {
		played, _ := store.totals()
		return played == 2
	}, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool {
		played, _ := store.totals()
		return played > 2
	}, 100*time.Millisecond, 5*time.Millisecond, "the deal is counted once")
}

func TestGameService_Undo(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(NewMockSessionManager(), &MockStatsStore{})

	info, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	result, err := svc.Undo(ctx, info.ID)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "Nothing to undo", result.Message)

	_, err = svc.Draw(ctx, info.ID)
	require.NoError(t, err)

	result, err = svc.Undo(ctx, info.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, -engine.UndoPenalty, result.GameState.Score)
	assert.Len(t, result.GameState.Pile(engine.StockPile).Cards, 24)
	assert.Empty(t, result.GameState.Pile(engine.WastePile).Cards)
	require.Len(t, result.Events, 1)
	assert.Equal(t, service.EventUndo, result.Events[0].Type)
}

func TestGameService_NewGame(t *testing.T) {
	ctx := context.Background()
	store := &MockStatsStore{}
	svc := newTestService(NewMockSessionManager(), store)

	info, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	_, err = svc.Draw(ctx, info.ID)
	require.NoError(t, err)

	result, err := svc.NewGame(ctx, info.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.NotEqual(t, info.GameState.GameID, result.GameState.GameID)
	assert.Equal(t, 0, result.GameState.UndoDepth)
	assert.Equal(t, 0, result.GameState.TotalMoves)
	assert.Equal(t, 2, result.GameState.Stats.GamesPlayed)

	assert.Eventually(t, func() bool {
		played, _ := store.totals()
		return played == 2
	}, time.Second, 5*time.Millisecond)
}

func TestGameService_GetMoveHistory(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(NewMockSessionManager(), &MockStatsStore{})

	info, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := svc.Draw(ctx, info.ID)
		require.NoError(t, err)
	}

	tests := []struct {
		name       string
		opts       service.HistoryOptions
		numbers    []int
		totalPages int
		hasNext    bool
		hasPrev    bool
	}{
		{"defaults newest first", service.HistoryOptions{}, []int{3, 2, 1}, 1, false, false},
		{"ascending", service.HistoryOptions{Order: "asc"}, []int{1, 2, 3}, 1, false, false},
		{"first page desc", service.HistoryOptions{Limit: 2}, []int{3, 2}, 2, true, false},
		{"second page desc", service.HistoryOptions{Page: 2, Limit: 2}, []int{1}, 2, false, true},
		{"second page asc", service.HistoryOptions{Page: 2, Limit: 2, Order: "asc"}, []int{3}, 2, false, true},
		{"past the end", service.HistoryOptions{Page: 5, Limit: 2}, []int{}, 2, false, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			history, err := svc.GetMoveHistory(ctx, info.ID, test.opts)
			require.NoError(t, err)
			assert.Equal(t, 3, history.TotalMoves)
			assert.Equal(t, test.totalPages, history.TotalPages)
			assert.Equal(t, test.hasNext, history.HasNext)
			assert.Equal(t, test.hasPrev, history.HasPrevious)

			numbers := make([]int, 0, len(history.Moves))
			for _, m := range history.Moves {
				assert.Equal(t, engine.ActionDraw, m.Action)
				numbers = append(numbers, m.Number)
			}
			assert.Equal(t, test.numbers, numbers)
		})
	}
}

func TestGameService_ListAndDeleteSessions(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(NewMockSessionManager(), &MockStatsStore{})

	first, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	_, err = svc.CreateSession(ctx)
	require.NoError(t, err)

	sessions, err := svc.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	require.NoError(t, svc.DeleteSession(ctx, first.ID))
	sessions, err = svc.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	_, err = svc.GetSession(ctx, first.ID)
	assert.Error(t, err)
}

func TestGameService_Stats(t *testing.T) {
	ctx := context.Background()
	store := &MockStatsStore{LoadFunc: func() (engine.Stats, error) {
		return engine.Stats{GamesPlayed: 8, GamesWon: 2}, nil
	}}
	svc := newTestService(NewMockSessionManager(), store)

	info, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	got, err := svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &service.StatsInfo{GamesPlayed: 8, GamesWon: 2, WinRate: 25}, got)

	reset, err := svc.ResetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &service.StatsInfo{}, reset)
	assert.Equal(t, 1, store.resets)

	state, err := svc.GetGameState(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.Stats{}, state.Stats, "live engines are reset too")

	store.LoadFunc = func() (engine.Stats, error) { return engine.Stats{}, errors.New("boom") }
	_, err = svc.GetStats(ctx)
	assert.Error(t, err)

	store.ResetFunc = func() error { return errors.New("boom") }
	_, err = svc.ResetStats(ctx)
	assert.Error(t, err)
}

func TestGameService_StatsRecordFailureIsLogged(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	store := &MockStatsStore{RecordFunc: func(int, int) error { return errors.New("redis down") }}
	svc := service.NewGameServiceWithOptions(NewMockSessionManager(), store, service.Options{Logger: logrus.NewEntry(logger)})

	_, err := svc.CreateSession(context.Background())
	require.NoError(t, err, "stats failures never fail the operation")

	assert.Eventually(t, func() bool {
		for _, entry := range hook.AllEntries() {
			if entry.Level == logrus.WarnLevel && entry.Message == "failed to record stats" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func TestGameService_NilStatsStoreUsesMemory(t *testing.T) {
	ctx := context.Background()
	svc := service.NewGameService(NewMockSessionManager(), nil)

	_, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		got, err := svc.GetStats(ctx)
		return err == nil && got.GamesPlayed == 1
	}, time.Second, 5*time.Millisecond)
}
