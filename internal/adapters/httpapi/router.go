package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/opentube/opentube/internal/app"
	"github.com/opentube/opentube/internal/ports"
)

type Server struct {
	logger   zerolog.Logger
	subs     *app.SubscriptionService
	catalog  *app.CatalogService
	upnext   *app.UpNextEngine
	playback *app.PlaybackService
	manager  *app.DownloadManager
	settings *app.SettingsService
	bus      ports.EventBus
}

func NewServer(
	logger zerolog.Logger,
	subs *app.SubscriptionService,
	catalog *app.CatalogService,
	upnext *app.UpNextEngine,
	playback *app.PlaybackService,
	manager *app.DownloadManager,
	settings *app.SettingsService,
	bus ports.EventBus,
) *Server {
	return &Server{
		logger:   logger,
		subs:     subs,
		catalog:  catalog,
		upnext:   upnext,
		playback: playback,
		manager:  manager,
		settings: settings,
		bus:      bus,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(defaultRequestTimeout))
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.RequestIDHandler("request_id", "Request-Id"))
	r.Use(hlog.RemoteAddrHandler("remote_ip"))
	r.Use(hlog.UserAgentHandler("user_agent"))
	r.Use(hlog.AccessHandler(accessLogFn))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/version", s.handleVersion)
		r.Get("/openapi.json", s.handleOpenAPI)
		r.Get("/events", s.handleEvents)

		if s.subs != nil {
			NewSubscriptionsHandler(s.subs).Routes(r)
		}
		if s.catalog != nil {
			NewVideosHandler(s.catalog, s.upnext, s.playback).Routes(r)
		}
		if s.manager != nil {
			NewDownloadsHandler(s.manager).Routes(r)
		}
		if s.settings != nil {
			NewSettingsHandler(s.settings).Routes(r)
		}
	})

	return r
}
