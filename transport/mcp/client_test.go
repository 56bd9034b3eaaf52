package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wricardo/klondike/game/engine"
	"github.com/wricardo/klondike/game/service"
)

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080"
	client := NewClient(baseURL + "/")

	if client == nil {
		t.Fatal("Expected client to be created")
	}

	if client.baseURL != baseURL {
		t.Errorf("Expected baseURL %s, got %s", baseURL, client.baseURL)
	}

	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}

	if client.mcpServer == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(service.StatsInfo{GamesPlayed: 3, GamesWon: 1, WinRate: 33})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	var stats service.StatsInfo
	if err := client.apiCall(context.Background(), "GET", "/api/stats", nil, &stats); err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}
	if stats.GamesPlayed != 3 || stats.WinRate != 33 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestClient_apiCall_Error(t *testing.T) {
	client := NewClient("http://invalid-url-that-does-not-exist:9999")

	err := client.apiCall(context.Background(), "GET", "/api", nil, nil)
	if err == nil {
		t.Error("Expected error for invalid URL")
	}
}

func TestClient_apiCall_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	err := client.apiCall(context.Background(), "GET", "/api", nil, nil)
	if err == nil {
		t.Fatal("Expected error for HTTP 500 response")
	}

	if !strings.Contains(err.Error(), "API error") {
		t.Errorf("Expected 'API error' in error message, got: %v", err)
	}
}

func TestClient_apiCall_ErrorMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "session not found: zzzz"})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	err := client.apiCall(context.Background(), "GET", "/api/sessions/zzzz", nil, nil)
	if err == nil || err.Error() != "session not found: zzzz" {
		t.Errorf("Expected the server's error message, got %v", err)
	}
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("Expected result content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	return text.Text
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestClient_createSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/sessions" {
			t.Errorf("Expected POST /api/sessions, got %s %s", r.Method, r.URL.Path)
		}

		resp := service.SessionInfo{
			ID: "ab12",
			GameState: &engine.GameState{
				GameID: "g-1",
				Status: engine.StatusInProgress,
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.handleCreateSession(context.Background(), callRequest("create_session", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("createSession failed: %v", err)
	}

	text := textOf(t, result)
	if !strings.Contains(text, "ab12") {
		t.Errorf("Expected session ID in result, got: %s", text)
	}
	if !strings.Contains(text, "in_progress") {
		t.Errorf("Expected status in result, got: %s", text)
	}
}

func TestClient_handleMove(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/sessions/ab12/move" {
			t.Errorf("Expected POST /api/sessions/ab12/move, got %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(service.MoveResult{
			Success:    true,
			ScoreDelta: engine.FlipPoints,
			Flipped:    true,
			Message:    "Moved 7♥ to tableau-2",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.handleMove(context.Background(), callRequest("move", map[string]interface{}{
		"session_id": "ab12",
		"from":       "tableau-0",
		"to":         "tableau-2",
		"card_index": float64(4),
		"intent":     "free the face-down card",
	}))
	if err != nil {
		t.Fatalf("handleMove failed: %v", err)
	}

	if got["from"] != "tableau-0" || got["to"] != "tableau-2" || got["card_index"] != float64(4) {
		t.Errorf("Unexpected request body %v", got)
	}
	text := textOf(t, result)
	if !strings.Contains(text, "+5 points") || !strings.Contains(text, "turned up") {
		t.Errorf("Unexpected move text: %s", text)
	}
}

func TestClient_handleMove_RequiresSession(t *testing.T) {
	client := NewClient("http://localhost:1")
	result, err := client.handleMove(context.Background(), callRequest("move", map[string]interface{}{
		"from": "waste",
		"to":   "tableau-0",
	}))
	if err != nil {
		t.Fatalf("handleMove failed: %v", err)
	}
	if !result.IsError {
		t.Error("Expected a tool error without session_id")
	}
}

func TestClient_handleHint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(service.HintResult{
			Found: true,
			Move: &engine.MoveDescription{
				From:  engine.WastePile,
				To:    engine.Foundation(1),
				Count: 1,
				Text:  "Move A♥ from waste to foundation-1",
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.handleHint(context.Background(), callRequest("hint", map[string]interface{}{"session_id": "ab12"}))
	if err != nil {
		t.Fatalf("handleHint failed: %v", err)
	}
	text := textOf(t, result)
	if !strings.Contains(text, "from=waste to=foundation-1") {
		t.Errorf("Unexpected hint text: %s", text)
	}
}

func TestFormatGameState(t *testing.T) {
	state := &engine.GameState{
		GameID: "g-1",
		Status: engine.StatusInProgress,
		Score:  25,
		Piles: []engine.PileView{
			{ID: engine.StockPile, Kind: engine.KindStock, Cards: make([]engine.Card, 21)},
			{ID: engine.WastePile, Kind: engine.KindWaste, Cards: []engine.Card{
				{Suit: engine.Clubs, Rank: 4, FaceUp: true},
				{Suit: engine.Hearts, Rank: 9, FaceUp: true},
			}},
			{ID: engine.Foundation(0), Kind: engine.KindFoundation, Suit: engine.Spades, Cards: []engine.Card{
				{Suit: engine.Spades, Rank: engine.Ace, FaceUp: true},
			}},
			{ID: engine.Tableau(1), Kind: engine.KindTableau, Cards: []engine.Card{
				{},
				{Suit: engine.Diamonds, Rank: engine.Queen, FaceUp: true},
			}},
		},
	}

	result := formatGameState(state)

	expected := []string{
		"Score: 25",
		"stock: 21 cards",
		"waste: 9♥ (2 cards)",
		"foundation-0: A♠",
		"foundation-1: (empty)",
		"tableau-1: ## Q♦",
		"tableau-6: (empty)",
	}
	for _, e := range expected {
		if !strings.Contains(result, e) {
			t.Errorf("Expected %q in:\n%s", e, result)
		}
	}
}

func TestFormatGameState_Won(t *testing.T) {
	result := formatGameState(&engine.GameState{Status: engine.StatusWon})
	if !strings.Contains(result, "YOU WON") {
		t.Errorf("Expected win banner, got: %s", result)
	}
}

func TestFormatGameState_Stalled(t *testing.T) {
	result := formatGameState(&engine.GameState{Status: engine.StatusStalled})
	if !strings.Contains(result, "NO MOVES LEFT") {
		t.Errorf("Expected stalled banner, got: %s", result)
	}
}

func TestFormatGameState_Nil(t *testing.T) {
	if got := formatGameState(nil); got != "No game state available" {
		t.Errorf("Unexpected output %q", got)
	}
}

func TestFormatMoveResult_Failed(t *testing.T) {
	result := formatMoveResult(&service.MoveResult{
		Success: false,
		Reason:  engine.ReasonWrongColor,
		Message: "Colors must alternate",
	})

	if !strings.Contains(result, "✗ Move rejected: Colors must alternate [wrong_color]") {
		t.Errorf("Unexpected rejection text: %s", result)
	}
}

func TestFormatHistory(t *testing.T) {
	from, to := engine.Tableau(2), engine.Foundation(0)
	result := formatHistory(&service.HistoryResponse{
		Page:       1,
		TotalPages: 1,
		TotalMoves: 2,
		Moves: []engine.MoveRecord{
			{Number: 2, Action: engine.ActionMove, From: &from, To: &to, ScoreAfter: 10,
				Cards: []engine.Card{{Suit: engine.Spades, Rank: engine.Ace, FaceUp: true}}},
			{Number: 1, Action: engine.ActionDraw, ScoreAfter: 0},
		},
	})

	if !strings.Contains(result, "2. move tableau-2 -> foundation-0 [A♠] (score 10)") {
		t.Errorf("Unexpected history: %s", result)
	}
	if !strings.Contains(result, "1. draw (score 0)") {
		t.Errorf("Unexpected history: %s", result)
	}
}

func TestClient_handleGameInstructions(t *testing.T) {
	client := NewClient("http://localhost:8080")

	result, err := client.handleGameInstructions(context.Background(), callRequest("game_instructions", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("handleGameInstructions failed: %v", err)
	}

	text := textOf(t, result)
	expectedContent := []string{
		"Klondike Solitaire - Complete Instructions",
		"GAME OBJECTIVE:",
		"PILE NAMES:",
		"RULES:",
		"SCORING:",
		"AUTO-COMPLETE:",
		"SESSION MANAGEMENT:",
	}

	for _, content := range expectedContent {
		if !strings.Contains(text, content) {
			t.Errorf("Expected '%s' in instructions", content)
		}
	}
}

func TestPileNames(t *testing.T) {
	names := pileNames()
	if len(names) != engine.NumPiles {
		t.Fatalf("Expected %d pile names, got %d", engine.NumPiles, len(names))
	}
	for _, name := range names {
		if _, err := engine.ParsePileID(name); err != nil {
			t.Errorf("Pile name %q does not parse: %v", name, err)
		}
	}
}
