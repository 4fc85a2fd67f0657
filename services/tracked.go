package services

import (
	"sync"
	"sync/atomic"
	"ytbridge/types"
	"ytbridge/websocket"
)

// EventSource is a finite, forward-only, cancellable sequence of stream events.
// Both the raw relay stream and its tracked wrapper implement it.
type EventSource interface {
	Next() bool
	Event() types.StreamEvent
	Err() error
	Close() error
}

// TrackedStream records every event of a relay session and finishes the
// session exactly once on Close
type TrackedStream struct {
	source  EventSource
	tracker SessionTracker
	hub     websocket.Hub
	id      string

	aborted atomic.Bool
	once    sync.Once
}

// Track starts a session for source. hub may be nil.
func Track(source EventSource, tracker SessionTracker, hub websocket.Hub, command string) *TrackedStream {
	return &TrackedStream{
		source:  source,
		tracker: tracker,
		hub:     hub,
		id:      tracker.Start(command),
	}
}

// ID returns the session id
func (t *TrackedStream) ID() string {
	return t.id
}

func (t *TrackedStream) Next() bool {
	if !t.source.Next() {
		return false
	}

	event := t.source.Event()
	info, ok := t.tracker.Record(t.id, event.Line())
	if ok && t.hub != nil {
		t.hub.BroadcastEvent(t.id, event, info)
	}
	return true
}

func (t *TrackedStream) Event() types.StreamEvent {
	return t.source.Event()
}

func (t *TrackedStream) Err() error {
	return t.source.Err()
}

// Abort marks the session as abnormally terminated; the next Close reports it so
func (t *TrackedStream) Abort() {
	t.aborted.Store(true)
}

// Close releases the relay connection and finishes the session
func (t *TrackedStream) Close() error {
	err := t.source.Close()
	t.once.Do(func() {
		normal := !t.aborted.Load() && t.source.Err() == nil
		summary, ok := t.tracker.Finish(t.id, normal)
		if ok && t.hub != nil {
			t.hub.BroadcastEnd(summary)
		}
	})
	return err
}

// abort marks src as abnormally ended when it supports it
func abort(src EventSource) {
	if a, ok := src.(interface{ Abort() }); ok {
		a.Abort()
	}
}
