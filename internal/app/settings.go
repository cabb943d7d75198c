package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/opentube/opentube/internal/domain"
	"github.com/opentube/opentube/internal/ports"
)

// SettingsService validates and persists runtime settings. Updating
// the concurrency ceiling takes effect immediately via the download
// limiter.
type SettingsService struct {
	repo    ports.SettingsRepository
	limiter *DynamicLimiter
	bus     ports.EventBus
	log     zerolog.Logger
}

func NewSettingsService(repo ports.SettingsRepository, limiter *DynamicLimiter, bus ports.EventBus, log zerolog.Logger) *SettingsService {
	return &SettingsService{
		repo:    repo,
		limiter: limiter,
		bus:     bus,
		log:     log.With().Str("component", "settings").Logger(),
	}
}

func (s *SettingsService) Get(ctx context.Context) (domain.Settings, error) {
	return s.repo.Get(ctx)
}

func (s *SettingsService) Update(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	if err := validateSettings(settings); err != nil {
		return domain.Settings{}, err
	}

	saved, err := s.repo.Put(ctx, settings)
	if err != nil {
		return domain.Settings{}, err
	}

	s.limiter.SetLimit(saved.MaxConcurrentDownloads)
	s.log.Info().
		Str("quality", string(saved.DefaultQuality)).
		Int("max_concurrent_downloads", saved.MaxConcurrentDownloads).
		Int("refresh_interval_minutes", saved.RefreshIntervalMinutes).
		Msg("settings updated")

	publishJSON(s.bus, s.log, TopicSettingsChanged, saved)
	return saved, nil
}

func validateSettings(s domain.Settings) error {
	if s.MediaDir == "" {
		return fmt.Errorf("mediaDir must not be empty")
	}
	if !s.DefaultQuality.Valid() {
		return fmt.Errorf("defaultQuality %q is not one of high, medium, low", s.DefaultQuality)
	}
	if s.MaxConcurrentDownloads < 1 {
		return fmt.Errorf("maxConcurrentDownloads must be at least 1")
	}
	if s.RefreshIntervalMinutes < 1 {
		return fmt.Errorf("refreshIntervalMinutes must be at least 1")
	}
	return nil
}
