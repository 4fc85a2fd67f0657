package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"ytbridge/types"

	log "github.com/sirupsen/logrus"
)

const (
	completionPhrase = "Command execution completed"
	completionMarker = "100%"
	closeEventName   = "close"
)

var (
	absoluteDownloadHref = regexp.MustCompile(`href="(https?://[^"]+/download/[^"]+)"`)
	downloadFilename     = regexp.MustCompile(`/download/(.+)$`)
	// [download]  50.0% of 4.24MiB at 500KiB/s ETA 00:04
	progressLine = regexp.MustCompile(`\[download\]\s+(\d+\.?\d*)%\s+of\s+([\d.]+\w+)`)
	speedField   = regexp.MustCompile(`\bat\s+(\S+)`)
	etaField     = regexp.MustCompile(`\bETA\s+(\S+)`)
)

// Aggregation folds stream events into a single DownloadResponse.
// Status only moves forward, and nothing is applied once it is terminal.
type Aggregation struct {
	result       types.DownloadResponse
	lastProgress *types.DownloadProgress
	lines        int
	done         bool
}

// NewAggregation starts a pending aggregation
func NewAggregation() *Aggregation {
	return &Aggregation{
		result: types.DownloadResponse{
			Status:  types.DownloadStatusPending,
			Message: "Starting download...",
		},
	}
}

// Done reports whether the aggregation stopped consuming events
func (a *Aggregation) Done() bool {
	return a.done
}

// LastProgress returns the most recent progress snapshot, if any
func (a *Aggregation) LastProgress() *types.DownloadProgress {
	return a.lastProgress
}

// Result returns the folded result
func (a *Aggregation) Result() types.DownloadResponse {
	return a.result
}

// Apply folds one event and reports whether the aggregation is done
func (a *Aggregation) Apply(event types.StreamEvent) bool {
	if a.done {
		return true
	}
	a.lines++

	switch event.Kind {
	case types.EventKindData:
		a.applyData(strings.TrimSpace(event.Payload))
	case types.EventKindEvent:
		if strings.TrimSpace(event.Payload) == closeEventName {
			log.WithField("module", "aggregator").Info("SSE stream closed event received")
			if a.result.Status == types.DownloadStatusPending {
				a.result.Status = types.DownloadStatusCompleted
				a.result.Message = "Download completed"
			}
			a.finish(a.result.Status)
		}
	}
	return a.done
}

func (a *Aggregation) applyData(data string) {
	logger := log.WithField("module", "aggregator")

	if m := absoluteDownloadHref.FindStringSubmatch(data); m != nil {
		downloadURL := m[1]
		a.result.DownloadURL = &downloadURL
		logger.Infof("Download URL extracted: %s", downloadURL)

		if fm := downloadFilename.FindStringSubmatch(downloadURL); fm != nil {
			filename, err := url.PathUnescape(fm[1])
			if err != nil {
				filename = fm[1]
			}
			a.result.Filename = &filename
			logger.Infof("Filename extracted: %s", filename)
		}
	}

	if loc := progressLine.FindStringSubmatchIndex(data); loc != nil {
		if progress := parseProgress(data, loc); progress != nil {
			a.lastProgress = progress
			a.result.Status = types.DownloadStatusDownloading
			logger.Infof("Download progress: %s", progress.Message)
		}
	}

	if strings.Contains(data, completionPhrase) || strings.Contains(data, completionMarker) {
		a.result.Status = types.DownloadStatusCompleted
		a.result.Message = "Download completed successfully"
		logger.Info("Download completed successfully")
		a.finish(types.DownloadStatusCompleted)
		return
	}

	// Substring matching: a filename containing "error" also trips this.
	lower := strings.ToLower(data)
	if strings.Contains(lower, "error") || strings.Contains(lower, "failed") {
		a.result.Status = types.DownloadStatusFailed
		a.result.Message = data
		logger.Errorf("Download failed: %s", data)
		a.finish(types.DownloadStatusFailed)
	}
}

// Timeout ends the aggregation as failed because no terminal state arrived in time
func (a *Aggregation) Timeout(timeout time.Duration) {
	if a.done {
		return
	}
	a.result.Status = types.DownloadStatusFailed
	a.result.Message = fmt.Sprintf("Download timeout after %d seconds", int(timeout.Seconds()))
	a.finish(types.DownloadStatusFailed)
}

// Fail ends the aggregation as failed because the relay raised err
func (a *Aggregation) Fail(err error) {
	if a.done {
		return
	}
	a.result.Status = types.DownloadStatusFailed
	a.result.Message = fmt.Sprintf("Download failed: %v", err)
	a.finish(types.DownloadStatusFailed)
}

// End stops the aggregation at the end of the stream, keeping a non-terminal status
func (a *Aggregation) End() {
	if a.done {
		return
	}
	a.finish(a.result.Status)
}

// finish stops consumption and attaches the last progress with the given status
func (a *Aggregation) finish(status types.DownloadStatus) {
	a.done = true
	if a.lastProgress != nil {
		progress := *a.lastProgress
		progress.Status = status
		a.result.Progress = &progress
	}
}

func parseProgress(data string, loc []int) *types.DownloadProgress {
	percentText := data[loc[2]:loc[3]]
	size := data[loc[4]:loc[5]]

	percent, err := strconv.ParseFloat(percentText, 64)
	if err != nil {
		return nil
	}

	progress := &types.DownloadProgress{
		Status:  types.DownloadStatusDownloading,
		Message: fmt.Sprintf("%s%% of %s", strconv.FormatFloat(percent, 'f', -1, 64), size),
		Percent: &percent,
	}

	rest := data[loc[1]:]
	if m := speedField.FindStringSubmatch(rest); m != nil {
		speed := m[1]
		progress.Speed = &speed
	}
	if m := etaField.FindStringSubmatch(rest); m != nil {
		eta := m[1]
		progress.ETA = &eta
	}
	return progress
}

// Aggregate consumes src until a terminal state, the end of the stream, or the timeout.
// The timeout covers the whole consumption; on expiry src is closed to unblock a pending read.
func Aggregate(ctx context.Context, src EventSource, timeout time.Duration) types.DownloadResponse {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stop := context.AfterFunc(ctx, func() {
		abort(src)
		_ = src.Close()
	})

	agg := NewAggregation()
	for !agg.Done() && src.Next() {
		agg.Apply(src.Event())
	}
	stop()

	var timeoutErr *RemoteTimeoutError
	switch err := src.Err(); {
	case agg.Done():
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.As(err, &timeoutErr):
		abort(src)
		agg.Timeout(timeout)
		log.WithField("module", "aggregator").Errorf("Download timeout after %s", timeout)
	case err != nil:
		abort(src)
		agg.Fail(err)
		log.WithField("module", "aggregator").Errorf("Download failed with error: %v", err)
	case ctx.Err() != nil:
		abort(src)
		agg.Fail(ctx.Err())
	default:
		agg.End()
	}

	result := agg.Result()
	present := "missing"
	if result.DownloadURL != nil {
		present = "present"
	}
	log.WithField("module", "aggregator").Infof(
		"Sync download finished: status=%s, lines_processed=%d, download_url=%s",
		result.Status, agg.lines, present,
	)
	return result
}
