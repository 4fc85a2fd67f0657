package services

import (
	"sync"
	"time"
	"ytbridge/types"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// SessionTracker keeps per-relay counters for as long as the relay is in flight
type SessionTracker interface {
	Start(command string) string
	Record(id, payload string) (types.SessionInfo, bool)
	Finish(id string, normal bool) (types.SessionSummary, bool)
	Get(id string) (types.SessionInfo, bool)
	Active() []types.SessionInfo
}

// session is the tracker-owned state for one relay invocation
type session struct {
	info types.SessionInfo
}

// sessionTracker is a mutex-guarded registry keyed by session id
type sessionTracker struct {
	sessions map[string]*session
	mu       sync.RWMutex
	now      func() time.Time
}

// NewSessionTracker creates an empty tracker
func NewSessionTracker() SessionTracker {
	return &sessionTracker{
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

// Start registers a new session with zeroed counters and returns its short id
func (st *sessionTracker) Start(command string) string {
	st.mu.Lock()
	defer st.mu.Unlock()

	id := shortID()
	for st.sessions[id] != nil {
		id = shortID()
	}

	st.sessions[id] = &session{info: types.SessionInfo{
		ID:        id,
		Command:   command,
		StartedAt: st.now(),
	}}

	log.WithFields(log.Fields{"module": "sessions", "session": id}).Info("SSE stream started")
	return id
}

// Record counts one event and its UTF-8 byte length. Unknown ids are ignored.
func (st *sessionTracker) Record(id, payload string) (types.SessionInfo, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, exists := st.sessions[id]
	if !exists {
		return types.SessionInfo{}, false
	}
	s.info.EventsSent++
	s.info.BytesSent += int64(len(payload))

	log.WithFields(log.Fields{"module": "sessions", "session": id}).Debugf("SSE event sent: %s", truncate(payload, 100))
	return s.info, true
}

// Finish removes the session and logs its summary
func (st *sessionTracker) Finish(id string, normal bool) (types.SessionSummary, bool) {
	st.mu.Lock()
	s, exists := st.sessions[id]
	if exists {
		delete(st.sessions, id)
	}
	st.mu.Unlock()

	if !exists {
		return types.SessionSummary{}, false
	}

	summary := types.SessionSummary{
		SessionInfo: s.info,
		Duration:    st.now().Sub(s.info.StartedAt),
		Normal:      normal,
	}

	status := "completed"
	if !normal {
		status = "abnormally terminated"
	}
	log.WithFields(log.Fields{"module": "sessions", "session": id}).Infof(
		"SSE stream %s | Duration: %.2fs | Events: %d | Bytes: %d (%s)",
		status, summary.Duration.Seconds(), summary.EventsSent, summary.BytesSent,
		humanize.Bytes(uint64(summary.BytesSent)),
	)
	return summary, true
}

// Get returns a copy of a live session
func (st *sessionTracker) Get(id string) (types.SessionInfo, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, exists := st.sessions[id]
	if !exists {
		return types.SessionInfo{}, false
	}
	return s.info, true
}

// Active returns copies of all live sessions
func (st *sessionTracker) Active() []types.SessionInfo {
	st.mu.RLock()
	defer st.mu.RUnlock()

	infos := make([]types.SessionInfo, 0, len(st.sessions))
	for _, s := range st.sessions {
		infos = append(infos, s.info)
	}
	return infos
}

// shortID is the first 8 hex characters of a random uuid
func shortID() string {
	return uuid.New().String()[:8]
}
