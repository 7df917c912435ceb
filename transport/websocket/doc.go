// Package websocket pushes live robot updates to browser and tool clients.
//
// A central Hub owns every connection. Clients subscribe to one session with
// /ws?session=<id>; the session ID is matched case-insensitively. After each
// mutation the API layer calls BroadcastRobots and every client of that
// session receives one JSON frame:
//
//	{"session_id": "a1b2", "event": "robot_update", "robots": [...]}
//
// Other events are "reset" and "session_deleted". Clients only listen;
// incoming frames are read and discarded to keep ping/pong working.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
//
// Concurrency:
//
// Only the Run loop reads or writes the client registry. Broadcasts go
// through a buffered queue and are dropped, with a warning, if it is full.
// A client whose own send buffer is full is disconnected.
package websocket
