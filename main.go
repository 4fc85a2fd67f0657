package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"ytbridge/cmd"
	"ytbridge/config"
	"ytbridge/types"

	log "github.com/sirupsen/logrus"
)

func main() {
	var (
		req    types.DownloadRequest
		server bool
		port   int
	)

	flag.StringVar(&req.URL, "url", "", "Video URL to download once and exit")
	flag.StringVar(&req.Format, "format", "", "Video format (e.g. mp4, webm)")
	flag.StringVar(&req.Quality, "quality", "", "Quality selection (e.g. best, 1080p, 720p)")
	flag.BoolVar(&req.AudioOnly, "audio-only", false, "Extract audio only")
	flag.StringVar(&req.AudioFormat, "audio-format", "", "Audio format (e.g. mp3, m4a)")
	flag.BoolVar(&req.Playlist, "playlist", false, "Download the entire playlist")
	flag.StringVar(&req.PlaylistItems, "playlist-items", "", "Playlist items (e.g. 1-5,8)")
	flag.BoolVar(&req.Subtitles, "subs", false, "Download subtitles")
	flag.StringVar(&req.SubtitleLang, "sub-lang", "", "Subtitle language code")
	flag.StringVar(&req.OutputTemplate, "output", "", "Output filename template")
	flag.BoolVar(&server, "server", false, "Start in web server mode")
	flag.IntVar(&port, "port", 0, "Port for web server mode (overrides SERVER_PORT)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if port > 0 {
		cfg.Port = port
	}
	config.SetupLogging(cfg)

	// Server mode takes precedence
	if server || req.URL == "" {
		if err := cmd.StartWebServer(cfg); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := cmd.RunClient(ctx, cfg, req, os.Stderr)
	if err != nil {
		log.Fatalf("Download failed: %v", err)
	}
	cmd.PrintResult(os.Stdout, result)
	stop()
	os.Exit(cmd.ExitCode(result))
}
