package services

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
	"ytbridge/types"
	"ytbridge/websocket"
)

// fakeRemote mimics the remote /stream endpoint
type fakeRemote struct {
	*httptest.Server

	mu       sync.Mutex
	commands []string
	rawQuery []string
}

// newFakeRemote serves lines for every command; each line is written with a trailing newline and flushed
func newFakeRemote(t *testing.T, respond func(w http.ResponseWriter, r *http.Request, command string)) *fakeRemote {
	t.Helper()
	f := &fakeRemote{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stream" {
			http.NotFound(w, r)
			return
		}
		command := r.URL.Query().Get("command")
		f.mu.Lock()
		f.commands = append(f.commands, command)
		f.rawQuery = append(f.rawQuery, r.URL.RawQuery)
		f.mu.Unlock()
		respond(w, r, command)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeRemote) lastCommand() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.commands) == 0 {
		return ""
	}
	return f.commands[len(f.commands)-1]
}

func (f *fakeRemote) lastRawQuery() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.rawQuery) == 0 {
		return ""
	}
	return f.rawQuery[len(f.rawQuery)-1]
}

// writeLines streams lines as an event stream
func writeLines(w http.ResponseWriter, lines ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	for _, line := range lines {
		fmt.Fprintf(w, "%s\n", line)
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// sliceSource is an in-memory EventSource
type sliceSource struct {
	events []types.StreamEvent
	pos    int
	err    error
	closed bool
}

func newSliceSource(lines ...string) *sliceSource {
	s := &sliceSource{}
	for _, line := range lines {
		s.events = append(s.events, types.ParseStreamLine(line))
	}
	return s
}

func (s *sliceSource) Next() bool {
	if s.closed || s.pos >= len(s.events) {
		return false
	}
	s.pos++
	return true
}

func (s *sliceSource) Event() types.StreamEvent { return s.events[s.pos-1] }

func (s *sliceSource) Err() error {
	if s.pos >= len(s.events) {
		return s.err
	}
	return nil
}

func (s *sliceSource) Close() error {
	s.closed = true
	return nil
}

// blockingSource yields its events and then blocks until closed
type blockingSource struct {
	*sliceSource
	done chan struct{}
	once sync.Once
}

func newBlockingSource(lines ...string) *blockingSource {
	return &blockingSource{sliceSource: newSliceSource(lines...), done: make(chan struct{})}
}

func (b *blockingSource) Next() bool {
	if b.pos < len(b.events) {
		b.pos++
		return true
	}
	select {
	case <-b.done:
	case <-time.After(5 * time.Second):
	}
	return false
}

func (b *blockingSource) Close() error {
	b.once.Do(func() { close(b.done) })
	return nil
}

// recordingHub captures what a TrackedStream publishes
type recordingHub struct {
	mu        sync.Mutex
	events    []types.StreamEvent
	summaries []types.SessionSummary
}

func (h *recordingHub) Run()  {}
func (h *recordingHub) Stop() {}

func (h *recordingHub) BroadcastEvent(_ string, event types.StreamEvent, _ types.SessionInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
}

func (h *recordingHub) BroadcastEnd(summary types.SessionSummary) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.summaries = append(h.summaries, summary)
}

func (h *recordingHub) RegisterClient(*websocket.Client)   {}
func (h *recordingHub) UnregisterClient(*websocket.Client) {}
