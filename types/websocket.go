package types

import "time"

// LiveMessage is pushed to WebSocket watchers of relay sessions
type LiveMessage struct {
	SessionID string    `json:"sessionId"`
	Type      string    `json:"type"`             // "event", "end"
	Kind      EventKind `json:"kind,omitempty"`   // set for "event"
	Line      string    `json:"line,omitempty"`   // forwarded line for "event"
	Normal    *bool     `json:"normal,omitempty"` // set for "end"
	Events    int64     `json:"events"`
	Bytes     int64     `json:"bytes"`
	Timestamp time.Time `json:"timestamp"`
}
