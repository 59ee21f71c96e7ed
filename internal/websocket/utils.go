package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// WriteWait bounds a single frame write so one dead client cannot wedge the
// stream handler.
const WriteWait = 10 * time.Second

// ReadWait is how long a stream may stay silent before the read fails.
// Heartbeats arrive far more often than this on a healthy client.
const ReadWait = 5 * time.Minute

// WriteTyped sends one typed event frame.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(WriteWait))
	return conn.WriteJSON(v)
}

// WriteError sends an error event without closing the stream.
func WriteError(conn *websocket.Conn, msg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Error: msg,
	})
}
