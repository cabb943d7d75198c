package app

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/opentube/opentube/internal/domain"
)

// PlaybackService answers "what URL do I play". Local files win over
// the network; a stale cached URL is refreshed with one forced resolve
// before giving up.
type PlaybackService struct {
	quality   *QualityService
	downloads *DownloadManager
	settings  *SettingsService
	log       zerolog.Logger
}

func NewPlaybackService(quality *QualityService, downloads *DownloadManager, settings *SettingsService, log zerolog.Logger) *PlaybackService {
	return &PlaybackService{
		quality:   quality,
		downloads: downloads,
		settings:  settings,
		log:       log.With().Str("component", "playback").Logger(),
	}
}

// PlayableURL resolves the media source for a video. ceiling may be
// empty, in which case the configured default applies. The result is
// either a local file path or a direct remote URL; ErrNotAvailable
// means nothing at or below the ceiling exists.
func (s *PlaybackService) PlayableURL(ctx context.Context, videoID string, ceiling domain.Quality) (string, error) {
	if path, ok := s.downloads.LocalPath(ctx, videoID); ok {
		return path, nil
	}

	if !ceiling.Valid() {
		settings, err := s.settings.Get(ctx)
		if err != nil {
			return "", err
		}
		ceiling = settings.DefaultQuality
	}

	if info, ok := s.quality.Cached(videoID); ok {
		if url, ok := domain.URLAtMost(info.URLs, ceiling); ok {
			return url, nil
		}
	}

	info, err := s.quality.Resolve(ctx, videoID, true)
	if err != nil {
		return "", err
	}
	url, ok := domain.URLAtMost(info.URLs, ceiling)
	if !ok {
		return "", ErrNotAvailable
	}
	return url, nil
}

// AdHocVideo builds a transient video for play-by-id. It never touches
// the store and carries no channel, so it can never enter the catalog
// or the up-next ranking.
func (s *PlaybackService) AdHocVideo(ctx context.Context, videoID string) (domain.Video, error) {
	info, err := s.quality.Resolve(ctx, videoID, false)
	if err != nil {
		return domain.Video{}, err
	}
	if len(info.URLs) == 0 {
		return domain.Video{}, ErrNotAvailable
	}
	return domain.Video{
		ID:       videoID,
		Title:    info.Title,
		Duration: info.Duration,
	}, nil
}
