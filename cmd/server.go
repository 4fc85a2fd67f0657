package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	"ytbridge/config"
	"ytbridge/handlers"
	"ytbridge/middleware"
	"ytbridge/services"
	"ytbridge/websocket"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// NewDownloader wires the relay, the session tracker and the live hub from cfg
func NewDownloader(cfg *config.Config, hub websocket.Hub) services.Downloader {
	relay := services.NewRelay(
		cfg.RemoteBase(),
		cfg.EffectiveDownloadBaseURL(),
		time.Duration(cfg.DownloadTimeout)*time.Second,
		&http.Client{},
	)
	return services.NewDownloader(relay, services.NewSessionTracker(), hub)
}

// NewRouter builds the gin engine with middleware and routes
func NewRouter(cfg *config.Config, downloader services.Downloader, hub websocket.Hub, withSentry bool) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if withSentry {
		r.Use(middleware.Sentry())
	}
	r.Use(middleware.CORS(cfg.CORSOriginList()))
	r.Use(middleware.Logging())

	setupRoutes(r,
		handlers.NewDownloadHandler(downloader),
		handlers.NewHealthHandler(cfg),
		handlers.NewSessionHandler(downloader.Sessions(), hub),
	)
	return r
}

// StartWebServer runs the HTTP server until SIGINT/SIGTERM
func StartWebServer(cfg *config.Config) error {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	logStartup(cfg)

	withSentry := middleware.InitSentry(cfg.SentryDSN, cfg.APIVersion)
	if withSentry {
		defer sentry.Flush(2 * time.Second)
	}

	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	router := NewRouter(cfg, NewDownloader(cfg, hub), hub, withSentry)

	srv := &http.Server{
		Addr:    cfg.Address(),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("%s starting on %s", cfg.APITitle, srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Application shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// setupRoutes configures all the HTTP routes
func setupRoutes(r *gin.Engine, downloadHandler *handlers.DownloadHandler, healthHandler *handlers.HealthHandler, sessionHandler *handlers.SessionHandler) {
	r.GET("/", healthHandler.Root)
	r.GET("/health", healthHandler.HealthCheck)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", healthHandler.HealthCheck)
		apiGroup.GET("/status", healthHandler.APIStatus)

		downloadGroup := apiGroup.Group("/download")
		{
			downloadGroup.GET("", downloadHandler.Download)
			downloadGroup.POST("", downloadHandler.Download)
			downloadGroup.POST("/custom", downloadHandler.DownloadCustom)
			downloadGroup.GET("/sync", downloadHandler.DownloadSync)
			downloadGroup.POST("/sync", downloadHandler.DownloadSync)
		}

		apiGroup.GET("/help", downloadHandler.Help)

		apiGroup.GET("/sessions", sessionHandler.ListSessions)
		apiGroup.GET("/sessions/:id", sessionHandler.GetSession)

		// WebSocket feeds of live relay sessions
		wsGroup := apiGroup.Group("/ws")
		{
			wsGroup.GET("/sessions", sessionHandler.WatchAllSessions)
			wsGroup.GET("/sessions/:id", sessionHandler.WatchSession)
		}
	}
}

func logStartup(cfg *config.Config) {
	log.Info("============================================================")
	log.Infof("Application starting: %s", cfg.APITitle)
	log.Infof("Version: %s", cfg.APIVersion)
	log.Infof("Host: %s", cfg.Address())
	log.Infof("CORS Origins: %s", cfg.CORSOrigins)
	log.Infof("ytdlp.online URL: %s", cfg.RemoteBase())
	log.Infof("Download Base URL: %s", cfg.EffectiveDownloadBaseURL())
	log.Infof("Download Timeout: %ds", cfg.DownloadTimeout)
	log.Infof("Log Level: %s", cfg.LogLevel)
	log.Info("============================================================")
}
