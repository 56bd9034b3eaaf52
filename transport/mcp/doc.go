// Package mcp exposes the solitaire REST API as Model Context Protocol tools.
//
// The Client is a thin proxy: every tool call becomes one HTTP request
// against the REST API, and the JSON response is rendered as text that an
// agent can read. It holds no game state of its own.
//
// MCP Tools:
//   - create_session, list_sessions, get_session
//   - game_state: text rendering of the board (face-down cards show as ##)
//   - new_game, draw, move, send_to_foundation, undo
//   - hint, auto_complete
//   - move_history, stats, game_instructions
//
// Transport Modes:
//
// The server supports two transport modes:
//   - Stdio: server.ServeStdio on GetMCPServer(), for local MCP clients
//   - HTTP: the /mcp endpoint mounted by the server command
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
