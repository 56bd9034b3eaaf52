// Package api provides the HTTP REST API for the solitaire server.
//
// The api package implements:
//   - Session management endpoints
//   - Game operations (draw, move, foundation, undo, hint, auto-complete)
//   - Move history with pagination
//   - Cross-game statistics and player settings
//   - WebSocket upgrade handling
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session and deal its first game
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Current game state
//   - POST /api/sessions/{id}/new-game - Deal a fresh game
//   - POST /api/sessions/{id}/draw - Click the stock
//   - POST /api/sessions/{id}/move - Move a card or run between piles
//   - POST /api/sessions/{id}/foundation - Send a top card to any accepting foundation
//   - POST /api/sessions/{id}/undo - Restore the previous snapshot (-15 points)
//   - GET /api/sessions/{id}/hint - Suggest a move
//   - POST /api/sessions/{id}/auto-complete - Play out a solved board
//   - GET /api/sessions/{id}/history - Move history (?page=N&limit=N&order=asc|desc)
//
// Statistics and Settings:
//   - GET /api/stats - Games played, won and win rate
//   - DELETE /api/stats - Reset the counters
//   - GET /api/settings - Player settings
//   - PATCH /api/settings - Update night mode, audio or window bounds
//
// Piles are named "stock", "waste", "foundation-0".."foundation-3" and
// "tableau-0".."tableau-6". A move body looks like:
//
//	{
//	  "from": "tableau-2",
//	  "card_index": 4,   // optional, defaults to the top card
//	  "to": "tableau-5"
//	}
//
// Rejected moves are not errors: they return 200 with success=false and a
// machine-readable reason such as "wrong_color" or "not_top_card".
//
// Errors are returned as JSON with an appropriate HTTP status code:
//
//	{
//	  "error": "error message"
//	}
package api
