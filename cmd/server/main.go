package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/churchstage/presenter-proxy/internal/auth"
	"github.com/churchstage/presenter-proxy/internal/backup"
	"github.com/churchstage/presenter-proxy/internal/config"
	"github.com/churchstage/presenter-proxy/internal/export"
	"github.com/churchstage/presenter-proxy/internal/httpapi"
	"github.com/churchstage/presenter-proxy/internal/jobs"
	"github.com/churchstage/presenter-proxy/internal/logging"
	"github.com/churchstage/presenter-proxy/internal/presenter"
	"github.com/churchstage/presenter-proxy/internal/store"
	"github.com/churchstage/presenter-proxy/internal/viewer"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("loading configuration")
	}

	fs := afero.NewOsFs()
	if err := fs.MkdirAll(cfg.DataDir, 0o700); err != nil {
		log.Fatal().Err(err).Msg("creating data directory")
	}

	logsDir := filepath.Join(cfg.DataDir, "logs")
	fileLogger, err := logging.New(fs, logsDir, cfg.LogRetentionDays)
	if err != nil {
		log.Fatal().Err(err).Msg("initializing logger")
	}
	defer fileLogger.Close()

	settingsStore := store.NewSettingsStore(fs, cfg.DataDir)
	usersStore := store.NewUserStore(fs, cfg.DataDir)
	aliasStore := store.NewAliasStore(fs, cfg.DataDir)

	sessionStore, err := store.NewSessionStore(fs, cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("initializing session store")
	}
	if err := sessionStore.StartReaper(); err != nil {
		log.Fatal().Err(err).Msg("starting session reaper")
	}
	defer sessionStore.Stop()

	secretStore, err := store.LoadOrCreateSecretStore(fs, cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("initializing secret store")
	}

	var provider *auth.Provider
	if cfg.OAuthConfigured() {
		redirectURL := fmt.Sprintf("%s/auth/google/callback", cfg.PublicBaseURL())
		provider = auth.NewGoogleProvider(cfg.OAuthClientID, cfg.OAuthClientSecret, redirectURL)
	} else {
		log.Warn().Msg("oauth client id/secret not configured, login is unavailable until set")
	}
	authManager := auth.NewManager(cfg, usersStore, sessionStore, secretStore, provider)

	if cfg.PublicTunnelURL != "" {
		auth.RealIPHeader = "X-Forwarded-For"
	}

	settings := settingsStore.Load()
	presenterClient := presenter.New(presenter.Config{Host: settings.PresenterHost, Port: settings.PresenterPort})

	healthCtx, stopHealth := context.WithCancel(context.Background())
	defer stopHealth()
	presenterClient.StartPeriodicHealthCheck(healthCtx, 30*time.Second)

	viewerService := viewer.New(presenterClient)
	viewerCtx, stopViewer := context.WithCancel(context.Background())
	defer stopViewer()
	go viewerService.Run(viewerCtx)

	jobManager := jobs.New(fs)
	jobGCDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-jobGCDone:
				return
			case <-ticker.C:
				jobManager.GC(time.Now())
			}
		}
	}()
	defer close(jobGCDone)

	uploadsDir := filepath.Join(cfg.DataDir, "uploads")
	if err := fs.MkdirAll(uploadsDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("creating uploads directory")
	}
	exportOutputDir := filepath.Join(cfg.DataDir, "exports")
	if err := fs.MkdirAll(exportOutputDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("creating exports directory")
	}

	// Lyrics extraction and deck generation are delegated to external
	// libraries outside this repository's scope; nil here means those two
	// export steps report a configuration error until a deployment wires
	// real implementations in.
	exportOrchestrator := export.New(presenterClient, settingsStore, aliasStore, nil, nil, fs, exportOutputDir)

	backupManager := backup.New(fs, cfg.DataDir)
	if err := backupManager.Start(); err != nil {
		log.Error().Err(err).Msg("starting backup scheduler")
	}
	defer backupManager.Stop()

	staticDir := os.Getenv("STATIC_DIR")

	app := httpapi.New(&httpapi.Deps{
		Config:     cfg,
		Logger:     fileLogger,
		Presenter:  presenterClient,
		Settings:   settingsStore,
		Users:      usersStore,
		Aliases:    aliasStore,
		Sessions:   sessionStore,
		Auth:       authManager,
		Jobs:       jobManager,
		Export:     exportOrchestrator,
		Viewer:     viewerService,
		Backup:     backupManager,
		StaticDir:  staticDir,
		UploadsDir: uploadsDir,
		StartedAt:  time.Now().UTC(),
	})

	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	listenAddr := fmt.Sprintf("%s:%d", cfg.WebHost, cfg.WebPort)
	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", listenAddr).Msg("starting server")
		serverErr <- app.Listen(listenAddr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			log.Fatal().Err(err).Msg("server exited")
		}
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("error during shutdown")
		}
	}
}
