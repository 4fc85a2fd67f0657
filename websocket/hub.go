package websocket

import (
	"sync"
	"time"
	"ytbridge/types"

	log "github.com/sirupsen/logrus"
)

// AllSessions is the watch key for clients interested in every relay session
const AllSessions = "all"

// Hub fans live relay events out to WebSocket watchers
type Hub interface {
	Run()
	Stop()
	BroadcastEvent(sessionID string, event types.StreamEvent, info types.SessionInfo)
	BroadcastEnd(summary types.SessionSummary)
	RegisterClient(client *Client)
	UnregisterClient(client *Client)
}

// hub maintains the set of active clients and broadcasts messages to them
type hub struct {
	// Registered clients mapped by session ID (or AllSessions)
	clients map[string]map[*Client]bool

	broadcast  chan types.LiveMessage
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	mu sync.Mutex
}

// NewHub creates a new WebSocket hub
func NewHub() Hub {
	return &hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan types.LiveMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main event loop; it returns after Stop
func (h *hub) Run() {
	logger := log.WithField("module", "hub")
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for key, clients := range h.clients {
				for client := range clients {
					close(client.send)
				}
				delete(h.clients, key)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.sessionID] == nil {
				h.clients[client.sessionID] = make(map[*Client]bool)
			}
			h.clients[client.sessionID][client] = true
			h.mu.Unlock()
			logger.Infof("WebSocket watcher connected for session %s", client.sessionID)

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
			logger.Infof("WebSocket watcher disconnected for session %s", client.sessionID)

		case message := <-h.broadcast:
			h.mu.Lock()
			h.deliver(message.SessionID, message)
			h.deliver(AllSessions, message)
			h.mu.Unlock()
		}
	}
}

// Stop ends Run and closes every client's send channel
func (h *hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// deliver sends to the clients under key, dropping the ones that cannot keep up
func (h *hub) deliver(key string, message types.LiveMessage) {
	for client := range h.clients[key] {
		select {
		case client.send <- message:
		default:
			h.remove(client)
		}
	}
}

func (h *hub) remove(client *Client) {
	clients, ok := h.clients[client.sessionID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.sessionID)
	}
}

// BroadcastEvent publishes one relayed line of a session
func (h *hub) BroadcastEvent(sessionID string, event types.StreamEvent, info types.SessionInfo) {
	h.publish(types.LiveMessage{
		SessionID: sessionID,
		Type:      "event",
		Kind:      event.Kind,
		Line:      event.Line(),
		Events:    info.EventsSent,
		Bytes:     info.BytesSent,
		Timestamp: time.Now(),
	})
}

// BroadcastEnd publishes the end of a session
func (h *hub) BroadcastEnd(summary types.SessionSummary) {
	normal := summary.Normal
	h.publish(types.LiveMessage{
		SessionID: summary.ID,
		Type:      "end",
		Normal:    &normal,
		Events:    summary.EventsSent,
		Bytes:     summary.BytesSent,
		Timestamp: time.Now(),
	})
}

func (h *hub) publish(message types.LiveMessage) {
	select {
	case h.broadcast <- message:
	default:
		log.WithField("module", "hub").Warnf("Broadcast channel full, dropping message for session %s", message.SessionID)
	}
}

// RegisterClient registers a new client with the hub
func (h *hub) RegisterClient(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// UnregisterClient unregisters a client from the hub
func (h *hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
