package services

import (
	"strings"
	"ytbridge/types"

	log "github.com/sirupsen/logrus"
)

const program = "yt-dlp"

// HelpCommand lists the remote yt-dlp options
const HelpCommand = program + " --help"

// BuildCommand maps a friendly request onto a yt-dlp command line.
//
// Audio extraction wins over quality, and quality wins over a bare format.
// Tokens are joined with single spaces without shell escaping: the command
// travels as one opaque query parameter and is never executed locally.
func BuildCommand(req types.DownloadRequest) string {
	logger := log.WithFields(log.Fields{"module": "commands", "url": req.URL})
	parts := []string{program}

	switch {
	case req.AudioOnly:
		parts = append(parts, "-x")
		if req.AudioFormat != "" {
			parts = append(parts, "--audio-format", req.AudioFormat)
		}
	case qualitySelector(req.Quality) != "":
		parts = append(parts, "-f", qualitySelector(req.Quality))
	case req.Format != "":
		parts = append(parts, "-f", req.Format)
	}

	if !req.Playlist {
		parts = append(parts, "--no-playlist")
	}
	if req.PlaylistItems != "" {
		parts = append(parts, "-I", req.PlaylistItems)
	}

	if req.Subtitles {
		parts = append(parts, "--write-subs")
		if req.SubtitleLang != "" {
			parts = append(parts, "--sub-lang", req.SubtitleLang)
		}
	}

	if req.OutputTemplate != "" {
		parts = append(parts, "-o", req.OutputTemplate)
	}

	parts = append(parts, req.URL)

	command := strings.Join(parts, " ")
	logger.Infof("Built command: %s", command)
	return command
}

// BuildCustomCommand passes raw parameters through verbatim, URL last
func BuildCustomCommand(url string, params []string) string {
	parts := make([]string, 0, len(params)+2)
	parts = append(parts, program)
	parts = append(parts, params...)
	parts = append(parts, url)

	command := strings.Join(parts, " ")
	log.WithField("module", "commands").Infof("Built custom command: %s", command)
	return command
}

// qualitySelector returns the -f value for a quality, or "" when the quality is not recognised
func qualitySelector(quality string) string {
	if strings.EqualFold(quality, "best") {
		return "bestvideo+bestaudio/best"
	}
	height, ok := strings.CutSuffix(quality, "p")
	if !ok || height == "" {
		return ""
	}
	for _, r := range height {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return "bestvideo[height<=" + height + "]+bestaudio/best[height<=" + height + "]"
}
