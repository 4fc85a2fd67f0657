package types

import "time"

// SessionInfo is a point-in-time view of an in-flight relay session
type SessionInfo struct {
	ID         string    `json:"id"`
	Command    string    `json:"command,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	EventsSent int64     `json:"eventsSent"`
	BytesSent  int64     `json:"bytesSent"`
}

// SessionSummary is reported once when a relay session finishes
type SessionSummary struct {
	SessionInfo
	Duration time.Duration `json:"duration"`
	Normal   bool          `json:"normal"`
}
