package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/opentube/opentube/internal/domain"
	"github.com/opentube/opentube/internal/ports"
)

// ChannelState holds one subscribed channel and its visible videos,
// newest first. It is the unit the catalog fans out over during a
// refresh; each instance fetches and persists independently so one
// broken channel never poisons the rest.
type ChannelState struct {
	videos  ports.VideoRepository
	fetcher ports.CatalogFetcher
	quality *QualityService
	bus     ports.EventBus
	log     zerolog.Logger

	mu      sync.Mutex
	channel domain.Channel
	list    []domain.Video
}

func NewChannelState(
	channel domain.Channel,
	videos ports.VideoRepository,
	fetcher ports.CatalogFetcher,
	quality *QualityService,
	bus ports.EventBus,
	log zerolog.Logger,
) *ChannelState {
	return &ChannelState{
		videos:  videos,
		fetcher: fetcher,
		quality: quality,
		bus:     bus,
		log:     log.With().Str("component", "channel").Str("channel_id", channel.ID).Logger(),
		channel: channel,
	}
}

func (s *ChannelState) Channel() domain.Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel
}

// Load replaces the in-memory list with the persisted visible videos.
func (s *ChannelState) Load(ctx context.Context) error {
	list, err := s.videos.ListByChannel(ctx, s.channel.ID, false)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.list = list
	s.mu.Unlock()
	return nil
}

// FetchNew pulls the remote feed, persists entries not seen before and
// returns only those. Known videos are detected against both the
// in-memory list and the store, so a video hidden or watched long ago
// never resurfaces as new.
func (s *ChannelState) FetchNew(ctx context.Context) ([]domain.Video, error) {
	channelID := s.Channel().ID

	entries, err := s.fetcher.FetchVideoFeed(ctx, channelID)
	if err != nil {
		return nil, err
	}

	known := make(map[string]struct{})
	s.mu.Lock()
	for _, v := range s.list {
		known[v.ID] = struct{}{}
	}
	s.mu.Unlock()

	var fresh []domain.Video
	for _, e := range entries {
		if e.VideoID == "" || e.Title == "" || e.ThumbnailURL == "" {
			continue
		}
		if _, ok := known[e.VideoID]; ok {
			continue
		}
		exists, err := s.videos.Exists(ctx, e.VideoID)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		published := e.PublishedAt
		if published.IsZero() {
			published = time.Now().UTC()
		}
		v := domain.Video{
			ID:           e.VideoID,
			ChannelID:    channelID,
			Title:        e.Title,
			PublishedAt:  published,
			ThumbnailURL: e.ThumbnailURL,
			Description:  e.Description,
		}

		created, err := s.videos.Create(ctx, v)
		if errors.Is(err, ports.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		known[created.ID] = struct{}{}
		fresh = append(fresh, created)
	}

	if len(fresh) == 0 {
		return nil, nil
	}

	// Warm the URL cache so playback of a new video does not start
	// with a resolve round-trip. Best effort, off the hot path.
	for _, v := range fresh {
		go func(id string) {
			rctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if _, err := s.quality.Resolve(rctx, id, false); err != nil {
				s.log.Debug().Err(err).Str("video_id", id).Msg("prefetch playable urls")
			}
		}(v.ID)
	}

	s.mu.Lock()
	s.list = append(append([]domain.Video{}, fresh...), s.list...)
	domain.SortVideos(s.list)
	snapshot := append([]domain.Video{}, s.list...)
	s.mu.Unlock()

	publishJSON(s.bus, s.log, TopicChannelVideosChanged, struct {
		ChannelID string     `json:"channelId"`
		Videos    []VideoDTO `json:"videos"`
	}{channelID, ToVideoDTOs(snapshot)})

	return fresh, nil
}

// Videos returns a copy of the current visible list.
func (s *ChannelState) Videos() []domain.Video {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Video{}, s.list...)
}

// Remove drops a video from the in-memory list if present.
func (s *ChannelState) Remove(videoID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range s.list {
		if v.ID == videoID {
			s.list = append(s.list[:i], s.list[i+1:]...)
			return
		}
	}
}

// Update replaces the stored copy of a video if present.
func (s *ChannelState) Update(v domain.Video) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.list {
		if s.list[i].ID == v.ID {
			s.list[i] = v
			return
		}
	}
}

func (s *ChannelState) setNotifications(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channel.NotificationsEnabled = enabled
}
