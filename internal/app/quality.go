package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/opentube/opentube/internal/ports"
)

// QualityService resolves and caches per-video playable URLs. The
// cache is memory-only; durations learned along the way are persisted
// on the video record when one exists.
type QualityService struct {
	fetcher ports.CatalogFetcher
	videos  ports.VideoRepository
	log     zerolog.Logger

	mu    sync.Mutex
	cache map[string]ports.PlayableInfo
}

func NewQualityService(fetcher ports.CatalogFetcher, videos ports.VideoRepository, log zerolog.Logger) *QualityService {
	return &QualityService{
		fetcher: fetcher,
		videos:  videos,
		log:     log.With().Str("component", "quality").Logger(),
		cache:   make(map[string]ports.PlayableInfo),
	}
}

// Resolve returns the playable info for a video, hitting the remote
// only on a cache miss unless force is set. A forced resolve replaces
// the cached entry, which is how stale expiring URLs get refreshed.
func (s *QualityService) Resolve(ctx context.Context, videoID string, force bool) (ports.PlayableInfo, error) {
	if !force {
		if info, ok := s.Cached(videoID); ok {
			return info, nil
		}
	}

	info, err := s.fetcher.ResolvePlayableURLs(ctx, videoID)
	if err != nil {
		return ports.PlayableInfo{}, err
	}

	s.mu.Lock()
	s.cache[videoID] = info
	s.mu.Unlock()

	if info.Duration > 0 {
		if _, err := s.videos.UpdateDuration(ctx, videoID, info.Duration.Seconds()); err != nil {
			// ad-hoc videos have no record, so not found is expected here
			s.log.Debug().Err(err).Str("video_id", videoID).Msg("persist duration")
		}
	}
	return info, nil
}

func (s *QualityService) Cached(videoID string) (ports.PlayableInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.cache[videoID]
	return info, ok
}

// Forget drops the cached entry for a video.
func (s *QualityService) Forget(videoID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, videoID)
}
