package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"
	"ytbridge/types"

	log "github.com/sirupsen/logrus"
)

const (
	streamPath       = "/stream"
	maxLineSize      = 1024 * 1024
	errorBodyExcerpt = 200
)

var relativeDownloadHref = regexp.MustCompile(`href="(/download/[^"]+)"`)

// RewriteDownloadLinks turns every href="/download/..." into an absolute link under base.
// Already absolute links never match, so rewriting twice changes nothing.
func RewriteDownloadLinks(data, base string) string {
	return relativeDownloadHref.ReplaceAllStringFunc(data, func(match string) string {
		path := relativeDownloadHref.FindStringSubmatch(match)[1]
		return `href="` + base + path + `"`
	})
}

// Relay opens event streams on the remote service
type Relay interface {
	Open(ctx context.Context, command string) (*EventStream, error)
	Timeout() time.Duration
}

// relay talks to the remote /stream endpoint
type relay struct {
	baseURL         string
	downloadBaseURL string
	timeout         time.Duration
	client          *http.Client
}

// NewRelay creates a relay. downloadBaseURL is the public host used when rewriting
// download links; it may differ from baseURL.
func NewRelay(baseURL, downloadBaseURL string, timeout time.Duration, client *http.Client) Relay {
	if client == nil {
		client = &http.Client{}
	}
	if downloadBaseURL == "" {
		downloadBaseURL = baseURL
	}

	r := &relay{
		baseURL:         strings.TrimRight(baseURL, "/"),
		downloadBaseURL: strings.TrimRight(downloadBaseURL, "/"),
		timeout:         timeout,
		client:          client,
	}

	log.WithField("module", "relay").Infof(
		"Relay initialized: base_url=%s, download_base_url=%s, timeout=%s",
		r.baseURL, r.downloadBaseURL, r.timeout,
	)
	return r
}

func (r *relay) Timeout() time.Duration {
	return r.timeout
}

// streamURL embeds the percent-encoded command as the command query parameter
func (r *relay) streamURL(command string) string {
	encoded := strings.ReplaceAll(url.QueryEscape(command), "+", "%20")
	return r.baseURL + streamPath + "?command=" + encoded
}

// Open starts one streaming request. The timeout bounds the whole stream, not each read.
// The returned stream must be closed.
func (r *relay) Open(ctx context.Context, command string) (*EventStream, error) {
	logger := log.WithField("module", "relay")

	ctx, cancel := context.WithTimeout(ctx, r.timeout)

	target := r.streamURL(command)
	logger.Infof("Starting SSE stream: %s%s", r.baseURL, streamPath)
	logger.Debugf("Full SSE URL: %s", target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := r.client.Do(req)
	if err != nil {
		cancel()
		err = r.classify(ctx, err)
		logger.Errorf("SSE connection failed: %v", err)
		return nil, err
	}

	logger.Infof("SSE connection established: status=%d", resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyExcerpt))
		resp.Body.Close()
		cancel()
		httpErr := &RemoteHTTPError{StatusCode: resp.StatusCode, Body: string(excerpt)}
		logger.Errorf("SSE stream HTTP error: status=%d, body=%s", httpErr.StatusCode, httpErr.Body)
		return nil, httpErr
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	return &EventStream{
		body:         resp.Body,
		scanner:      scanner,
		ctx:          ctx,
		cancel:       cancel,
		classify:     r.classify,
		downloadBase: r.downloadBaseURL,
		logger:       logger,
	}, nil
}

// classify maps a transport failure onto the relay error taxonomy
func (r *relay) classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &RemoteTimeoutError{Timeout: r.timeout, Cause: err}
	case errors.Is(ctx.Err(), context.Canceled):
		return context.Canceled
	default:
		return &StreamTransportError{Cause: err}
	}
}

// EventStream is a forward-only, single-use sequence of relayed lines.
// Close may be called from another goroutine to interrupt a blocked Next.
type EventStream struct {
	body         io.ReadCloser
	scanner      *bufio.Scanner
	ctx          context.Context
	cancel       context.CancelFunc
	classify     func(context.Context, error) error
	downloadBase string
	logger       *log.Entry

	event types.StreamEvent
	lines int

	mu     sync.Mutex
	err    error
	closed bool
	once   sync.Once
}

// Next advances to the next non-empty line, rewriting download links in data lines.
// It returns false at the end of the stream or on error; see Err.
func (s *EventStream) Next() bool {
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if line == "" {
			continue
		}
		s.lines++

		event := types.ParseStreamLine(line)
		switch event.Kind {
		case types.EventKindData:
			event = types.DataEvent(RewriteDownloadLinks(event.Payload, s.downloadBase))
			s.logger.Debugf("SSE data line %d: %s", s.lines, truncate(event.Payload, 100))
		case types.EventKindEvent:
			s.logger.Debugf("SSE event type: %s", event.Payload)
		case types.EventKindID:
			s.logger.Debugf("SSE event ID: %s", event.Payload)
		}

		s.event = event
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.scanner.Err(); err != nil && !s.closed {
		s.err = s.classify(s.ctx, err)
		s.logger.Errorf("SSE stream error after %d lines: %v", s.lines, s.err)
	} else if err == nil {
		s.logger.Infof("SSE stream completed: %d lines received", s.lines)
	}
	return false
}

// Event returns the line produced by the last successful Next
func (s *EventStream) Event() types.StreamEvent {
	return s.event
}

// Err returns the error that ended the stream, nil on a clean end or after Close
func (s *EventStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close releases the outbound connection. It is safe to call more than once and concurrently with Next.
func (s *EventStream) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.cancel()
		err = s.body.Close()
	})
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
