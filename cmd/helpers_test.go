package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"ytbridge/config"
	"ytbridge/services"
	"ytbridge/websocket"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// TestHelper runs the bridge against a fake remote service
type TestHelper struct {
	Server     *httptest.Server
	Remote     *httptest.Server
	Downloader services.Downloader
	Hub        websocket.Hub
	Config     *config.Config

	mu       sync.Mutex
	commands []string
	respond  func(w http.ResponseWriter, r *http.Request, command string)
}

// NewTestHelper starts a fake remote and the bridge router in test mode
func NewTestHelper(t *testing.T) *TestHelper {
	gin.SetMode(gin.TestMode)

	h := &TestHelper{}
	h.Remote = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		command := r.URL.Query().Get("command")
		h.mu.Lock()
		h.commands = append(h.commands, command)
		respond := h.respond
		h.mu.Unlock()
		if respond == nil {
			writeLines(w, "data: Command execution completed")
			return
		}
		respond(w, r, command)
	}))

	cfg := &config.Config{
		RemoteURL:       h.Remote.URL,
		DownloadBaseURL: "https://cdn.example",
		DownloadTimeout: 5,
		APITitle:        "ytbridge-test",
		APIVersion:      "1.0.0",
		CORSOrigins:     "*",
	}

	h.Config = cfg
	h.Hub = websocket.NewHub()
	go h.Hub.Run()

	h.Downloader = NewDownloader(cfg, h.Hub)
	h.Server = httptest.NewServer(NewRouter(cfg, h.Downloader, h.Hub, false))

	t.Cleanup(h.Cleanup)
	return h
}

// Cleanup cleans up test resources
func (h *TestHelper) Cleanup() {
	h.Server.Close()
	h.Remote.Close()
	h.Hub.Stop()
}

// Respond sets how the fake remote answers
func (h *TestHelper) Respond(respond func(w http.ResponseWriter, r *http.Request, command string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.respond = respond
}

// RespondLines makes the fake remote stream lines
func (h *TestHelper) RespondLines(lines ...string) {
	h.Respond(func(w http.ResponseWriter, r *http.Request, command string) {
		writeLines(w, lines...)
	})
}

// LastCommand returns the last command the fake remote received
func (h *TestHelper) LastCommand() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.commands) == 0 {
		return ""
	}
	return h.commands[len(h.commands)-1]
}

// MakeRequest makes an HTTP request to the test server
func (h *TestHelper) MakeRequest(t *testing.T, method, path string, body interface{}) *http.Response {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, h.Server.URL+path, reqBody)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// GetJSON makes a GET request and unmarshals the JSON response
func (h *TestHelper) GetJSON(t *testing.T, path string, target interface{}) *http.Response {
	return h.DoJSON(t, http.MethodGet, path, nil, target)
}

// DoJSON makes a request and unmarshals the JSON response
func (h *TestHelper) DoJSON(t *testing.T, method, path string, requestBody, target interface{}) *http.Response {
	resp := h.MakeRequest(t, method, path, requestBody)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	if target != nil {
		require.NoError(t, json.Unmarshal(body, target), string(body))
	}
	return resp
}

// ReadStream makes a request and returns the whole event stream body
func (h *TestHelper) ReadStream(t *testing.T, method, path string, requestBody interface{}) (*http.Response, string) {
	resp := h.MakeRequest(t, method, path, requestBody)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

// ConnectWebSocket connects to a WebSocket endpoint
func (h *TestHelper) ConnectWebSocket(t *testing.T, path string) *gorilla.Conn {
	wsURL := "ws" + strings.TrimPrefix(h.Server.URL, "http") + path

	conn, _, err := gorilla.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

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
