package services

import (
	"context"
	"fmt"
	"strings"
	"ytbridge/types"
	"ytbridge/websocket"

	"github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
)

// Downloader runs commands on the remote service. Every relay it opens is tracked.
type Downloader interface {
	Stream(ctx context.Context, command string) (*TrackedStream, error)
	DownloadSync(ctx context.Context, command string) (types.DownloadResponse, error)
	Help(ctx context.Context) (string, error)
	Sessions() SessionTracker
}

// downloader composes the relay, the session tracker and the live hub
type downloader struct {
	relay    Relay
	sessions SessionTracker
	hub      websocket.Hub
}

// NewDownloader creates a downloader. hub may be nil.
func NewDownloader(relay Relay, sessions SessionTracker, hub websocket.Hub) Downloader {
	return &downloader{
		relay:    relay,
		sessions: sessions,
		hub:      hub,
	}
}

func (d *downloader) Sessions() SessionTracker {
	return d.sessions
}

// Stream opens a tracked relay; the caller must Close it
func (d *downloader) Stream(ctx context.Context, command string) (*TrackedStream, error) {
	stream, err := d.relay.Open(ctx, command)
	if err != nil {
		reportError(err)
		return nil, err
	}
	return Track(stream, d.sessions, d.hub, command), nil
}

// DownloadSync folds a relay into one result. An error is returned only when
// the relay could not be established; later failures are reported in the result.
func (d *downloader) DownloadSync(ctx context.Context, command string) (types.DownloadResponse, error) {
	log.WithField("module", "downloader").Infof("Starting synchronous download with command: %s", command)

	stream, err := d.Stream(ctx, command)
	if err != nil {
		return types.DownloadResponse{}, err
	}
	defer stream.Close()

	result := Aggregate(ctx, stream, d.relay.Timeout())
	if err := stream.Err(); err != nil {
		reportError(err)
	}
	return result, nil
}

// Help runs yt-dlp --help and joins the data payloads
func (d *downloader) Help(ctx context.Context) (string, error) {
	stream, err := d.Stream(ctx, HelpCommand)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var lines []string
	for stream.Next() {
		event := stream.Event()
		if event.Kind == types.EventKindData {
			lines = append(lines, strings.TrimSpace(event.Payload))
		}
	}
	if err := stream.Err(); err != nil {
		stream.Abort()
		reportError(err)
		return "", fmt.Errorf("read help stream: %w", err)
	}

	log.WithField("module", "downloader").Infof("Help text retrieved successfully: %d lines", len(lines))
	return strings.Join(lines, "\n"), nil
}

// reportError forwards remote failures to Sentry; it is a no-op without a DSN
func reportError(err error) {
	if IsRemoteError(err) {
		sentry.CaptureException(err)
	}
}
