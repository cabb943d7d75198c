package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RefreshScheduler triggers a catalog refresh on a fixed interval.
// Background refresh failures are logged and swallowed; only explicit
// user-driven refreshes surface errors.
type RefreshScheduler struct {
	catalog  *CatalogService
	interval time.Duration
	log      zerolog.Logger
}

func NewRefreshScheduler(catalog *CatalogService, interval time.Duration, log zerolog.Logger) *RefreshScheduler {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &RefreshScheduler{
		catalog:  catalog,
		interval: interval,
		log:      log.With().Str("component", "scheduler").Logger(),
	}
}

// Run refreshes once immediately, then on every tick until ctx is done.
func (s *RefreshScheduler) Run(ctx context.Context) {
	s.refresh(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *RefreshScheduler) refresh(ctx context.Context) {
	fresh, err := s.catalog.FetchAndSaveNew(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("scheduled refresh failed")
		return
	}
	if len(fresh) > 0 {
		s.log.Info().Int("new_videos", len(fresh)).Msg("scheduled refresh found new videos")
	}
}
