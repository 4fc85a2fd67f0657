package handlers

import (
	"net/http"
	"sort"
	"ytbridge/services"
	"ytbridge/websocket"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// SessionHandler exposes in-flight relay sessions
type SessionHandler struct {
	sessions services.SessionTracker
	hub      websocket.Hub
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions services.SessionTracker, hub websocket.Hub) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		hub:      hub,
	}
}

// ListSessions returns every in-flight session, oldest first
func (h *SessionHandler) ListSessions(c *gin.Context) {
	sessions := h.sessions.Active()
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.Before(sessions[j].StartedAt)
	})

	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"total":    len(sessions),
	})
}

// GetSession returns one in-flight session
func (h *SessionHandler) GetSession(c *gin.Context) {
	session, exists := h.sessions.Get(c.Param("id"))
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "session not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session": session,
	})
}

// WatchSession streams live events of one session over a WebSocket
func (h *SessionHandler) WatchSession(c *gin.Context) {
	sessionID := c.Param("id")
	if _, exists := h.sessions.Get(sessionID); !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	h.watch(c, sessionID)
}

// WatchAllSessions streams live events of every session over a WebSocket
func (h *SessionHandler) WatchAllSessions(c *gin.Context) {
	h.watch(c, websocket.AllSessions)
}

func (h *SessionHandler) watch(c *gin.Context, key string) {
	upgrader := websocket.GetUpgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithField("module", "handlers").Warnf("WebSocket upgrade failed: %v", err)
		return
	}

	client := websocket.NewClient(h.hub, conn, key)
	h.hub.RegisterClient(client)
	client.StartPumps()
}
