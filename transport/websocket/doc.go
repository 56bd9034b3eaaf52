// Package websocket pushes game updates to browser clients.
//
// A central Hub tracks the clients watching each session. The REST layer
// calls BroadcastToSession after every mutation and
// BroadcastAutoCompleteStep for each auto-complete move, so a renderer can
// animate the cards one by one. A win or stall is followed by a game_over
// event carrying the service event.
//
// Message Protocol:
//
// Every frame is one JSON Message:
//
//	{"session_id": "ab12", "event": "state_update", "game_state": {...}}
//	{"session_id": "ab12", "event": "auto_complete_step", "game_state": {...},
//	 "data": {"index": 3, "move": {...}}}
//	{"session_id": "ab12", "event": "game_over", "data": {"type": "won", ...}}
//
// Clients pick a session with the ?session= query parameter. Incoming
// messages are ignored; the socket is push-only.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
//
// Concurrency:
//
// Only the Run goroutine touches the client registry. Broadcasts are queued
// and never block the caller; when the queue is full the message is dropped
// and logged.
package websocket
