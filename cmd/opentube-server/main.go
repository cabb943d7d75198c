package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/opentube/opentube/internal/adapters/httpapi"
	"github.com/opentube/opentube/internal/adapters/memorybus"
	"github.com/opentube/opentube/internal/adapters/sqlite"
	"github.com/opentube/opentube/internal/adapters/youtube"
	"github.com/opentube/opentube/internal/app"
	"github.com/opentube/opentube/internal/buildinfo"
	"github.com/opentube/opentube/internal/config"
	"github.com/opentube/opentube/internal/domain"
)

func main() {
	def := config.Default()
	addr := flag.String("addr", def.Addr, "listen address (ex: 127.0.0.1:8080)")
	dbPath := flag.String("db", def.DBPath, "sqlite path (ex: opentube.db)")
	baseURL := flag.String("base-url", def.BaseURL, "remote catalog base URL override (tests/mirrors)")
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", "opentube-server").Logger()
	log.Logger = logger

	logger.Info().Interface("build", buildinfo.Current()).Str("db", *dbPath).Msg("starting")

	ctx := context.Background()
	db, err := sqlite.Open(ctx, *dbPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open db")
	}
	defer func() { _ = db.Close() }()

	bus := memorybus.New()
	defer bus.Close()

	channelsRepo := sqlite.NewChannelsRepository(db.SQL)
	videosRepo := sqlite.NewVideosRepository(db.SQL)
	downloadsRepo := sqlite.NewDownloadsRepository(db.SQL)
	settingsRepo := sqlite.NewSettingsRepository(db.SQL)

	fetcher := youtube.New(*baseURL, nil)

	downloadLimiter := app.NewDynamicLimiter(domain.DefaultSettings().MaxConcurrentDownloads)
	settingsSvc := app.NewSettingsService(settingsRepo, downloadLimiter, bus, logger)

	qualitySvc := app.NewQualityService(fetcher, videosRepo, logger)
	subsSvc := app.NewSubscriptionService(channelsRepo, videosRepo, fetcher, qualitySvc, bus, logger)
	catalogSvc := app.NewCatalogService(subsSvc, videosRepo, downloadsRepo, bus, logger)
	upnextEngine := app.NewUpNextEngine(catalogSvc, bus, logger)
	downloadMgr := app.NewDownloadManager(qualitySvc, catalogSvc, downloadsRepo, settingsSvc, downloadLimiter, bus, nil, logger)
	playbackSvc := app.NewPlaybackService(qualitySvc, downloadMgr, settingsSvc, logger)
	notifier := app.NewNotifier(subsSvc, bus, logger)

	settings, err := settingsSvc.Get(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load settings")
	}
	downloadLimiter.SetLimit(settings.MaxConcurrentDownloads)

	if err := subsSvc.Load(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to load subscriptions")
	}
	if err := catalogSvc.Load(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to load catalog")
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go catalogSvc.Run(shutdownCtx)
	go upnextEngine.Run(shutdownCtx)
	go notifier.Run(shutdownCtx)

	scheduler := app.NewRefreshScheduler(catalogSvc, time.Duration(settings.RefreshIntervalMinutes)*time.Minute, logger)
	go scheduler.Run(shutdownCtx)

	srv := httpapi.NewServer(logger, subsSvc, catalogSvc, upnextEngine, playbackSvc, downloadMgr, settingsSvc, bus)
	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", *addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server crashed")
			stop()
		}
	}()

	<-shutdownCtx.Done()
	logger.Info().Msg("shutting down")

	shutdownTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownTimeout)
	downloadMgr.CancelAll()
	downloadMgr.Wait()
	logger.Info().Msg("bye")
}
