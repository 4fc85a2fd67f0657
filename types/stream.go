package types

import "strings"

// EventKind tags a line of the remote event stream
type EventKind string

const (
	EventKindData  EventKind = "data"
	EventKindEvent EventKind = "event"
	EventKindID    EventKind = "id"
	EventKindOther EventKind = "other"
)

const (
	dataPrefix  = "data: "
	eventPrefix = "event: "
	idPrefix    = "id: "
)

// StreamEvent is one non-empty line of the remote event stream.
// Payload excludes the field prefix; Raw is the full line as it should be forwarded.
type StreamEvent struct {
	Kind    EventKind `json:"kind"`
	Payload string    `json:"payload"`
	Raw     string    `json:"raw"`
}

// ParseStreamLine classifies a single line by its field prefix
func ParseStreamLine(line string) StreamEvent {
	switch {
	case strings.HasPrefix(line, dataPrefix):
		return StreamEvent{Kind: EventKindData, Payload: line[len(dataPrefix):], Raw: line}
	case strings.HasPrefix(line, eventPrefix):
		return StreamEvent{Kind: EventKindEvent, Payload: line[len(eventPrefix):], Raw: line}
	case strings.HasPrefix(line, idPrefix):
		return StreamEvent{Kind: EventKindID, Payload: line[len(idPrefix):], Raw: line}
	default:
		return StreamEvent{Kind: EventKindOther, Payload: line, Raw: line}
	}
}

// DataEvent builds a data line from a payload
func DataEvent(payload string) StreamEvent {
	return StreamEvent{Kind: EventKindData, Payload: payload, Raw: dataPrefix + payload}
}

// Line returns the line to forward to callers
func (e StreamEvent) Line() string {
	return e.Raw
}
