package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/klondike/game/engine"
	"github.com/wricardo/klondike/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// auto-complete paces its moves, so allow for a full run
			Timeout: 30 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Klondike Solitaire",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Klondike Solitaire - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Build all four foundations from Ace to King. Draw-3 from the stock, unlimited recycles.

AVAILABLE TOOLS:
- create_session: Create a session and deal a game
- list_sessions / get_session: Inspect sessions
- game_state: Show the board
- new_game: Deal a fresh game in the session
- draw: Click the stock (draws up to 3, or recycles the waste)
- move: Move a card or run between piles
- send_to_foundation: Send a pile's top card to whichever foundation accepts it
- undo: Step back one action (-15 points)
- hint: Ask for a suggested move
- auto_complete: Finish a solved board
- move_history: View past actions
- stats: Games played, won and win rate
- game_instructions: Full rules and scoring

Piles are named stock, waste, foundation-0..3 and tableau-0..6.`),
	)

	c.registerTools()
}

func sessionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func sessionOnlySchema() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"session_id": sessionProperty(),
		},
		Required: []string{"session_id"},
	}
}

// pileNames lists every accepted pile name
func pileNames() []string {
	names := make([]string, 0, engine.NumPiles)
	for id := engine.StockPile; id < engine.NumPiles; id++ {
		names = append(names, id.String())
	}
	return names
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session and deal its first game",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: sessionOnlySchema(),
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current board, score and status",
		InputSchema: sessionOnlySchema(),
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "new_game",
		Description: "Abandon the current game and deal a new one",
		InputSchema: sessionOnlySchema(),
	}, c.handleNewGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "draw",
		Description: "Click the stock: reveal up to three cards onto the waste, or recycle the waste when the stock is empty",
		InputSchema: sessionOnlySchema(),
	}, c.handleDraw)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move",
		Description: "Move a card, or a face-up run starting at card_index, from one pile to another",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"from": map[string]interface{}{
					"type":        "string",
					"enum":        pileNames(),
					"description": "Source pile",
				},
				"to": map[string]interface{}{
					"type":        "string",
					"enum":        pileNames(),
					"description": "Target pile",
				},
				"card_index": map[string]interface{}{
					"type":        "integer",
					"description": "0-based index of the first card to move within the source pile (optional, defaults to the top card)",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this move (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id", "from", "to"},
		},
	}, c.handleMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "send_to_foundation",
		Description: "Send the top card of a pile to whichever foundation accepts it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"from": map[string]interface{}{
					"type":        "string",
					"description": "Source pile (waste or tableau-0..6)",
				},
			},
			Required: []string{"session_id", "from"},
		},
	}, c.handleSendToFoundation)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "undo",
		Description: "Undo the last action. Costs 15 points.",
		InputSchema: sessionOnlySchema(),
	}, c.handleUndo)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "hint",
		Description: "Suggest a move, preferring foundation plays",
		InputSchema: sessionOnlySchema(),
	}, c.handleHint)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "auto_complete",
		Description: "Play every remaining card to the foundations. Only available once the stock is empty and all tableau cards are face up.",
		InputSchema: sessionOnlySchema(),
	}, c.handleAutoComplete)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "Get the action history of the current game",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number (default 1)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Entries per page (default 20, max 100)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleMoveHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "stats",
		Description: "Get games played, games won and win rate",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleStats)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the complete rules, scoring and pile naming",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func sessionPath(args map[string]interface{}, suffix string) (string, error) {
	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return "", fmt.Errorf("session_id is required")
	}
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\n\n%s", session.ID, formatGameState(session.GameState))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		status, score := "unknown", 0
		if s.GameState != nil {
			status, score = string(s.GameState.Status), s.GameState.Score
		}
		fmt.Fprintf(&b, "- %s (Status: %s, Score: %d, Created: %s)\n",
			s.ID, status, score, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", path, nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", path, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleNewGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/new-game")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.ActionResult
	if err := c.apiCall(ctx, "POST", path, nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handleDraw(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/draw")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.DrawResult
	if err := c.apiCall(ctx, "POST", path, nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatDrawResult(&result)), nil
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/move")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	from, _ := args["from"].(string)
	to, _ := args["to"].(string)

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	_, _ = args["intent"].(string)

	body := map[string]interface{}{
		"from": from,
		"to":   to,
	}
	// JSON numbers arrive as float64
	if idx, ok := args["card_index"].(float64); ok {
		body["card_index"] = int(idx)
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleSendToFoundation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/foundation")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	from, _ := args["from"].(string)

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", path, map[string]string{"from": from}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleUndo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/undo")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.ActionResult
	if err := c.apiCall(ctx, "POST", path, nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handleHint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/hint")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.HintResult
	if err := c.apiCall(ctx, "GET", path, nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if !result.Found || result.Move == nil {
		return mcp.NewToolResultText("No moves available. Try drawing from the stock."), nil
	}
	text := fmt.Sprintf("Hint: %s\n(from=%s to=%s", result.Move.Text, result.Move.From, result.Move.To)
	if result.Move.Count > 1 {
		text += fmt.Sprintf(", %d cards", result.Move.Count)
	}
	return mcp.NewToolResultText(text + ")"), nil
}

func (c *Client) handleAutoComplete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/auto-complete")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.AutoCompleteResult
	if err := c.apiCall(ctx, "POST", path, nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString(result.Message + "\n")
	for i, m := range result.Moves {
		fmt.Fprintf(&b, "%d. %s\n", i+1, m.Text)
	}
	if result.GameState != nil {
		b.WriteString("\n" + formatGameState(result.GameState))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/history")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query := url.Values{}
	if page, ok := args["page"].(float64); ok {
		query.Set("page", fmt.Sprintf("%d", int(page)))
	}
	if limit, ok := args["limit"].(float64); ok {
		query.Set("limit", fmt.Sprintf("%d", int(limit)))
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var stats service.StatsInfo
	if err := c.apiCall(ctx, "GET", "/api/stats", nil, &stats); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Games played: %d\nGames won: %d\nWin rate: %d%%",
		stats.GamesPlayed, stats.GamesWon, stats.WinRate)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `🃏 Klondike Solitaire - Complete Instructions

GAME OBJECTIVE:
Move all 52 cards onto the four foundations, each built up by suit from Ace to King.

THE BOARD:
• stock - face-down draw pile (24 cards after the deal)
• waste - cards drawn from the stock; only the top one is playable
• foundation-0..3 - claimed by whichever Ace lands there first, then built up in that suit
• tableau-0..6 - seven columns dealt with 1..7 cards, only the last one face up

PILE NAMES:
Use exactly: stock, waste, foundation-0 .. foundation-3, tableau-0 .. tableau-6

RULES:
• Draw: clicking the stock turns up to 3 cards onto the waste
• Recycle: when the stock is empty, drawing turns the whole waste back over (unlimited)
• Tableau: place a card on one of the opposite color and exactly one rank higher
• Runs: any face-up, alternating, descending run can move together (pick its first card with card_index)
• Empty columns accept any card or run
• Foundations accept one card at a time: an Ace on an empty foundation, then the next rank of the same suit
• When a column's last face-up card leaves, the card beneath flips face up

SCORING:
• +5 every time a face-down tableau card is turned up
• +10 for every card played to a foundation
• Undo restores the previous position and costs 15 points
• Winning adds a time bonus: 10000 minus 2 points per elapsed second (never negative)

GAME END:
• Won: all four foundations hold thirteen cards
• Stalled: the stock and waste are empty and no move is left

AUTO-COMPLETE:
Once the stock is empty and every tableau card is face up, auto_complete plays the rest
to the foundations one card at a time.

MOVEMENT COMMANDS:
- move: from, to and optional card_index (0-based, defaults to the top card)
- send_to_foundation: from only, the server picks the foundation
- draw: no arguments besides session_id

STRATEGY TIPS:
- Turning over face-down tableau cards matters more than anything else
- Avoid filling an empty column unless a King is ready to go there
- Use hint when stuck; undo is there but costs points

SESSION MANAGEMENT:
- Multiple game sessions can run simultaneously
- Each session has a unique 4-character ID
- Face-down cards are hidden in every response

Good luck, and may the Kings come early! 🂮`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nCreated: %s\nLast accessed: %s\n\n%s",
		session.ID,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		session.LastAccessedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState))
}

func formatCard(c engine.Card) string {
	if !c.FaceUp {
		return "##"
	}
	return c.String()
}

func formatCards(cards []engine.Card) string {
	if len(cards) == 0 {
		return "(empty)"
	}
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = formatCard(c)
	}
	return strings.Join(parts, " ")
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Game: %s | Status: %s | Score: %d | Time: %ds | Moves: %d\n\n",
		state.GameID, state.Status, state.Score, state.ElapsedSeconds, state.TotalMoves)

	stock := state.Pile(engine.StockPile)
	waste := state.Pile(engine.WastePile)
	fmt.Fprintf(&b, "stock: %d cards\n", len(stock.Cards))
	if top := len(waste.Cards); top > 0 {
		fmt.Fprintf(&b, "waste: %s (%d cards)\n", formatCard(waste.Cards[top-1]), top)
	} else {
		b.WriteString("waste: (empty)\n")
	}

	for i := 0; i < engine.NumFoundations; i++ {
		f := state.Pile(engine.Foundation(i))
		top := "(empty)"
		if n := len(f.Cards); n > 0 {
			top = formatCard(f.Cards[n-1])
		}
		fmt.Fprintf(&b, "%s: %s\n", engine.Foundation(i), top)
	}

	b.WriteString("\n")
	for i := 0; i < engine.NumTableaus; i++ {
		t := state.Pile(engine.Tableau(i))
		fmt.Fprintf(&b, "%s: %s\n", engine.Tableau(i), formatCards(t.Cards))
	}

	if state.CanAutoComplete && !state.Status.Terminal() {
		b.WriteString("\nAuto-complete is available.")
	}
	switch state.Status {
	case engine.StatusWon:
		b.WriteString("\n🎉 YOU WON!")
	case engine.StatusStalled:
		b.WriteString("\n💀 NO MOVES LEFT")
	}

	return b.String()
}

func formatActionResult(result *service.ActionResult) string {
	return fmt.Sprintf("%s\n\n%s", result.Message, formatGameState(result.GameState))
}

func formatDrawResult(result *service.DrawResult) string {
	return fmt.Sprintf("%s\n\n%s", result.Message, formatGameState(result.GameState))
}

func formatMoveResult(result *service.MoveResult) string {
	var b strings.Builder
	if result.Success {
		fmt.Fprintf(&b, "✓ %s", result.Message)
		if result.ScoreDelta != 0 {
			fmt.Fprintf(&b, " (%+d points)", result.ScoreDelta)
		}
		if result.Flipped {
			b.WriteString("\nA face-down card was turned up.")
		}
	} else {
		fmt.Fprintf(&b, "✗ Move rejected: %s", result.Message)
		if result.Reason != "" {
			fmt.Fprintf(&b, " [%s]", result.Reason)
		}
	}

	for _, e := range result.Events {
		if e.Type == service.EventWon || e.Type == service.EventStalled {
			fmt.Fprintf(&b, "\n%s", e.Message)
		}
	}

	b.WriteString("\n\n" + formatGameState(result.GameState))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Move History (Page %d/%d) - Total: %d\n\n",
		history.Page, history.TotalPages, history.TotalMoves)

	for _, move := range history.Moves {
		fmt.Fprintf(&b, "%d. %s", move.Number, move.Action)
		if move.From != nil {
			fmt.Fprintf(&b, " %s", *move.From)
		}
		if move.To != nil {
			fmt.Fprintf(&b, " -> %s", *move.To)
		}
		if len(move.Cards) > 0 {
			fmt.Fprintf(&b, " [%s]", formatCards(move.Cards))
		}
		fmt.Fprintf(&b, " (score %d)\n", move.ScoreAfter)
	}

	return b.String()
}
