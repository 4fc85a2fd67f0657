package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"ytbridge/config"
	"ytbridge/services"
	"ytbridge/types"

	"github.com/schollz/progressbar/v3"
)

// RunClient performs one download against the remote service, drawing progress to w
func RunClient(ctx context.Context, cfg *config.Config, req types.DownloadRequest, w io.Writer) (types.DownloadResponse, error) {
	downloader := NewDownloader(cfg, nil)

	stream, err := downloader.Stream(ctx, services.BuildCommand(req))
	if err != nil {
		return types.DownloadResponse{}, err
	}
	defer stream.Close()

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(req.URL),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	agg := services.NewAggregation()
	for !agg.Done() && stream.Next() {
		agg.Apply(stream.Event())
		if progress := agg.LastProgress(); progress != nil && progress.Percent != nil {
			bar.Describe(progress.Message)
			_ = bar.Set(int(*progress.Percent))
		}
	}

	var timeoutErr *services.RemoteTimeoutError
	switch err := stream.Err(); {
	case agg.Done():
	case errors.As(err, &timeoutErr):
		stream.Abort()
		agg.Timeout(timeoutErr.Timeout)
	case err != nil:
		stream.Abort()
		agg.Fail(err)
	default:
		agg.End()
	}

	result := agg.Result()
	if result.Status == types.DownloadStatusCompleted {
		_ = bar.Finish()
	}
	fmt.Fprintln(w)
	return result, nil
}

// PrintResult writes a human readable summary of a result
func PrintResult(w io.Writer, result types.DownloadResponse) {
	fmt.Fprintf(w, "Status:  %s\n", result.Status)
	fmt.Fprintf(w, "Message: %s\n", result.Message)
	if result.Filename != nil {
		fmt.Fprintf(w, "File:    %s\n", *result.Filename)
	}
	if result.DownloadURL != nil {
		fmt.Fprintf(w, "URL:     %s\n", *result.DownloadURL)
	}
}

// ExitCode maps a result onto a process exit status
func ExitCode(result types.DownloadResponse) int {
	if result.Status == types.DownloadStatusCompleted {
		return 0
	}
	if result.Status == types.DownloadStatusFailed {
		return 1
	}
	return 2
}

