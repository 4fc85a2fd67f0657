package services

import (
	"context"
	"errors"
	"testing"
	"time"
	"ytbridge/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregationProgress(t *testing.T) {
	agg := NewAggregation()
	done := agg.Apply(types.DataEvent("[download]  42.5% of 10.00MiB"))

	assert.False(t, done)
	result := agg.Result()
	assert.Equal(t, types.DownloadStatusDownloading, result.Status)
	assert.Nil(t, result.Progress)

	progress := agg.LastProgress()
	require.NotNil(t, progress)
	require.NotNil(t, progress.Percent)
	assert.Equal(t, 42.5, *progress.Percent)
	assert.Equal(t, "42.5% of 10.00MiB", progress.Message)
	assert.Nil(t, progress.Speed)
	assert.Nil(t, progress.ETA)
}

func TestAggregationProgressSpeedAndETA(t *testing.T) {
	agg := NewAggregation()
	agg.Apply(types.DataEvent("[download]  50.0% of 4.24MiB at 500KiB/s ETA 00:04"))

	progress := agg.LastProgress()
	require.NotNil(t, progress)
	require.NotNil(t, progress.Speed)
	require.NotNil(t, progress.ETA)
	assert.Equal(t, "500KiB/s", *progress.Speed)
	assert.Equal(t, "00:04", *progress.ETA)
}

func TestAggregationCompletion(t *testing.T) {
	agg := NewAggregation()
	agg.Apply(types.DataEvent("[download]  75.0% of 2.00MiB"))
	done := agg.Apply(types.DataEvent("Command execution completed"))

	require.True(t, done)
	result := agg.Result()
	assert.Equal(t, types.DownloadStatusCompleted, result.Status)
	assert.Equal(t, "Download completed successfully", result.Message)
	require.NotNil(t, result.Progress)
	assert.Equal(t, types.DownloadStatusCompleted, result.Progress.Status)
	assert.Equal(t, 75.0, *result.Progress.Percent)
}

func TestAggregationCompletionWithoutProgress(t *testing.T) {
	agg := NewAggregation()
	require.True(t, agg.Apply(types.DataEvent("Command execution completed")))
	assert.Equal(t, types.DownloadStatusCompleted, agg.Result().Status)
	assert.Nil(t, agg.Result().Progress)
}

func TestAggregationFailure(t *testing.T) {
	agg := NewAggregation()
	agg.Apply(types.DataEvent("[download]  10.0% of 2.00MiB"))
	done := agg.Apply(types.DataEvent("Error: network unreachable"))

	require.True(t, done)
	result := agg.Result()
	assert.Equal(t, types.DownloadStatusFailed, result.Status)
	assert.Equal(t, "Error: network unreachable", result.Message)
	require.NotNil(t, result.Progress)
	assert.Equal(t, types.DownloadStatusFailed, result.Progress.Status)
}

func TestAggregationFailureIsCaseInsensitive(t *testing.T) {
	for _, line := range []string{"ERROR: unsupported URL", "Postprocessing FAILED", "something failed"} {
		agg := NewAggregation()
		require.True(t, agg.Apply(types.DataEvent(line)), line)
		assert.Equal(t, types.DownloadStatusFailed, agg.Result().Status)
	}
}

func TestAggregationDownloadLink(t *testing.T) {
	agg := NewAggregation()
	agg.Apply(types.DataEvent(`<a href="https://cdn.example/download/my%20video.mp4" target="_blank">Download File</a>`))
	agg.Apply(types.DataEvent("Command execution completed"))

	result := agg.Result()
	require.NotNil(t, result.DownloadURL)
	require.NotNil(t, result.Filename)
	assert.Equal(t, "https://cdn.example/download/my%20video.mp4", *result.DownloadURL)
	assert.Equal(t, "my video.mp4", *result.Filename)
	assert.Equal(t, types.DownloadStatusCompleted, result.Status)
}

func TestAggregationLastLinkWins(t *testing.T) {
	agg := NewAggregation()
	agg.Apply(types.DataEvent(`href="https://a.example/download/first.mp4"`))
	agg.Apply(types.DataEvent(`href="https://a.example/download/second.mp4"`))

	require.NotNil(t, agg.Result().Filename)
	assert.Equal(t, "second.mp4", *agg.Result().Filename)
}

func TestAggregationCloseEvent(t *testing.T) {
	t.Run("pending becomes completed", func(t *testing.T) {
		agg := NewAggregation()
		require.True(t, agg.Apply(types.ParseStreamLine("event: close")))
		assert.Equal(t, types.DownloadStatusCompleted, agg.Result().Status)
		assert.Equal(t, "Download completed", agg.Result().Message)
	})

	t.Run("downloading stays downloading", func(t *testing.T) {
		agg := NewAggregation()
		agg.Apply(types.DataEvent("[download]  10.0% of 2.00MiB"))
		require.True(t, agg.Apply(types.ParseStreamLine("event: close")))
		assert.Equal(t, types.DownloadStatusDownloading, agg.Result().Status)
	})

	t.Run("other events ignored", func(t *testing.T) {
		agg := NewAggregation()
		assert.False(t, agg.Apply(types.ParseStreamLine("event: message")))
		assert.False(t, agg.Apply(types.ParseStreamLine("id: 7")))
		assert.Equal(t, types.DownloadStatusPending, agg.Result().Status)
	})
}

func TestAggregationIgnoresEventsAfterTerminal(t *testing.T) {
	agg := NewAggregation()
	agg.Apply(types.DataEvent("Command execution completed"))
	agg.Apply(types.DataEvent("ERROR: late failure"))
	agg.Apply(types.DataEvent("[download]  5.0% of 1.00MiB"))
	agg.Fail(errors.New("late"))
	agg.Timeout(time.Second)

	result := agg.Result()
	assert.Equal(t, types.DownloadStatusCompleted, result.Status)
	assert.Equal(t, "Download completed successfully", result.Message)
	assert.Nil(t, agg.LastProgress())
}

func TestAggregateThreeLineStream(t *testing.T) {
	src := newSliceSource(
		"data: [download]  50.0% of 4.24MiB",
		"data: [download] 100% of 4.24MiB",
		"data: Command execution completed",
	)

	result := Aggregate(context.Background(), src, time.Second)

	assert.Equal(t, types.DownloadStatusCompleted, result.Status)
	require.NotNil(t, result.Progress)
	require.NotNil(t, result.Progress.Percent)
	assert.Equal(t, 100.0, *result.Progress.Percent)
	assert.Equal(t, types.DownloadStatusCompleted, result.Progress.Status)
	assert.Equal(t, 2, src.pos, "consumption stops at the terminal line")
}

func TestAggregateRelayError(t *testing.T) {
	src := newSliceSource("data: [download]  20.0% of 1.00MiB")
	src.err = &StreamTransportError{Cause: errors.New("connection reset")}

	result := Aggregate(context.Background(), src, time.Second)

	assert.Equal(t, types.DownloadStatusFailed, result.Status)
	assert.Equal(t, "Download failed: stream transport error: connection reset", result.Message)
}

func TestAggregateRelayTimeoutError(t *testing.T) {
	src := newSliceSource()
	src.err = &RemoteTimeoutError{Timeout: 3 * time.Second}

	result := Aggregate(context.Background(), src, 3*time.Second)

	assert.Equal(t, types.DownloadStatusFailed, result.Status)
	assert.Equal(t, "Download timeout after 3 seconds", result.Message)
}

func TestAggregateTimeout(t *testing.T) {
	src := newBlockingSource("data: [download]  20.0% of 1.00MiB")

	start := time.Now()
	result := Aggregate(context.Background(), src, 50*time.Millisecond)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, types.DownloadStatusFailed, result.Status)
	assert.Contains(t, result.Message, "Download timeout")
}

func TestAggregateEndWithoutTerminal(t *testing.T) {
	src := newSliceSource("data: [download]  20.0% of 1.00MiB")

	result := Aggregate(context.Background(), src, time.Second)

	assert.Equal(t, types.DownloadStatusDownloading, result.Status)
	require.NotNil(t, result.Progress)
	assert.Equal(t, 20.0, *result.Progress.Percent)
}
