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

// CatalogService aggregates every subscribed channel's visible videos
// into one publish-date-descending list. Refreshes fan out across the
// channel states; a channel that fails to fetch is skipped, and only
// when every channel fails does the refresh itself fail.
type CatalogService struct {
	subs      *SubscriptionService
	videos    ports.VideoRepository
	downloads ports.DownloadRepository
	bus       ports.EventBus
	log       zerolog.Logger

	mu      sync.Mutex
	visible []domain.Video
}

func NewCatalogService(
	subs *SubscriptionService,
	videos ports.VideoRepository,
	downloads ports.DownloadRepository,
	bus ports.EventBus,
	log zerolog.Logger,
) *CatalogService {
	return &CatalogService{
		subs:      subs,
		videos:    videos,
		downloads: downloads,
		bus:       bus,
		log:       log.With().Str("component", "catalog").Logger(),
	}
}

// Load builds the aggregate from the already-hydrated channel states.
func (c *CatalogService) Load(ctx context.Context) error {
	c.rebuild()
	c.publishCatalog()
	return nil
}

// Run reacts to subscription changes: the aggregate is rebuilt right
// away so removed channels disappear, then a refresh runs in the
// background for added ones. Blocks until ctx is done.
func (c *CatalogService) Run(ctx context.Context) {
	events, cancel := c.bus.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if evt.Topic != TopicSubscriptionsChanged {
				continue
			}
			c.rebuild()
			c.publishCatalog()
			go func() {
				rctx, rcancel := context.WithTimeout(context.Background(), 2*time.Minute)
				defer rcancel()
				if _, err := c.FetchAndSaveNew(rctx); err != nil {
					c.log.Warn().Err(err).Msg("refresh after subscription change")
				}
			}()
		}
	}
}

// FetchAndSaveNew refreshes every channel concurrently and returns the
// videos that were not known before, newest first. If every channel
// fails, the first error comes back and the aggregate is untouched.
func (c *CatalogService) FetchAndSaveNew(ctx context.Context) ([]domain.Video, error) {
	states := c.subs.States()
	if len(states) == 0 {
		c.rebuild()
		return nil, nil
	}

	type result struct {
		fresh []domain.Video
		err   error
	}
	results := make([]result, len(states))

	var wg sync.WaitGroup
	for i, st := range states {
		wg.Add(1)
		go func(i int, st *ChannelState) {
			defer wg.Done()
			fresh, err := st.FetchNew(ctx)
			if err != nil {
				c.log.Warn().Err(err).Str("channel_id", st.Channel().ID).Msg("channel refresh failed")
			}
			results[i] = result{fresh: fresh, err: err}
		}(i, st)
	}
	wg.Wait()

	var fresh []domain.Video
	var firstErr error
	failures := 0
	for _, r := range results {
		if r.err != nil {
			failures++
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		fresh = append(fresh, r.fresh...)
	}
	if failures == len(states) {
		return nil, firstErr
	}

	c.rebuild()
	c.publishCatalog()

	if len(fresh) > 0 {
		domain.SortVideos(fresh)
		publishJSON(c.bus, c.log, TopicCatalogNewVideos, ToVideoDTOs(fresh))
	}
	return fresh, nil
}

// Hide removes a video from the visible catalog. Hiding an already
// hidden video is a no-op.
func (c *CatalogService) Hide(ctx context.Context, videoID string) error {
	v, err := c.videos.UpdateHidden(ctx, videoID, true)
	if errors.Is(err, ports.ErrNotFound) {
		return ErrVideoNotFound
	}
	if err != nil {
		return err
	}

	if st, ok := c.subs.State(v.ChannelID); ok {
		st.Remove(videoID)
	}
	c.rebuild()
	c.publishCatalog()
	return nil
}

// Unhide returns a video to the visible catalog at its natural sort
// position. The owning channel reloads from the store so ordering is
// restored rather than approximated.
func (c *CatalogService) Unhide(ctx context.Context, videoID string) error {
	v, err := c.videos.UpdateHidden(ctx, videoID, false)
	if errors.Is(err, ports.ErrNotFound) {
		return ErrVideoNotFound
	}
	if err != nil {
		return err
	}

	if st, ok := c.subs.State(v.ChannelID); ok {
		if err := st.Load(ctx); err != nil {
			return err
		}
	}
	c.rebuild()
	c.publishCatalog()
	return nil
}

// HiddenVideos lists every hidden video across all channels.
func (c *CatalogService) HiddenVideos(ctx context.Context) ([]domain.Video, error) {
	return c.videos.ListHidden(ctx)
}

// DownloadedVideos lists the videos that have a completed download,
// newest first. Live state is preferred over the store so progress
// flags are current.
func (c *CatalogService) DownloadedVideos(ctx context.Context) ([]domain.Video, error) {
	records, err := c.downloads.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Video, 0, len(records))
	for _, d := range records {
		if v, ok := c.Video(d.VideoID); ok {
			out = append(out, v)
			continue
		}
		v, err := c.videos.Get(ctx, d.VideoID)
		if errors.Is(err, ports.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	domain.SortVideos(out)
	return out, nil
}

// SetWatchProgress records playback progress. The live copy updates
// and publishes even when persistence fails; a video known to neither
// the catalog nor the store is ErrVideoNotFound.
func (c *CatalogService) SetWatchProgress(ctx context.Context, videoID string, progress float64) (domain.Video, error) {
	progress = clamp01(progress)

	live, isLive := c.Video(videoID)
	persisted, err := c.videos.UpdateProgress(ctx, videoID, progress)
	switch {
	case err == nil:
		live = persisted
	case !isLive && errors.Is(err, ports.ErrNotFound):
		return domain.Video{}, ErrVideoNotFound
	case !isLive:
		return domain.Video{}, err
	default:
		c.log.Warn().Err(err).Str("video_id", videoID).Msg("persist watch progress")
		live.WatchProgress = progress
	}

	c.updateLive(live)
	publishJSON(c.bus, c.log, TopicVideoState, toVideoStateDTO(live))
	return live, nil
}

// SetLastWatched stamps when playback last touched the video.
func (c *CatalogService) SetLastWatched(ctx context.Context, videoID string, at time.Time) {
	v, err := c.videos.UpdateLastWatched(ctx, videoID, at.Unix())
	if err != nil {
		c.log.Debug().Err(err).Str("video_id", videoID).Msg("persist last watched")
		return
	}
	c.updateLive(v)
}

// SetDownloadProgress updates the transient download fraction on the
// live copy. Nothing is persisted; restarts reset in-flight transfers.
func (c *CatalogService) SetDownloadProgress(videoID string, progress float64) {
	progress = clamp01(progress)

	v, ok := c.Video(videoID)
	if !ok {
		return
	}
	v.DownloadProgress = progress
	c.updateLive(v)
	publishJSON(c.bus, c.log, TopicVideoState, toVideoStateDTO(v))
}

// Snapshot returns a copy of the visible catalog, newest first.
func (c *CatalogService) Snapshot() []domain.Video {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Video{}, c.visible...)
}

// Video looks up one visible video by id.
func (c *CatalogService) Video(videoID string) (domain.Video, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range c.visible {
		if v.ID == videoID {
			return v, true
		}
	}
	return domain.Video{}, false
}

func (c *CatalogService) rebuild() {
	var agg []domain.Video
	for _, st := range c.subs.States() {
		agg = append(agg, st.Videos()...)
	}
	domain.SortVideos(agg)

	c.mu.Lock()
	c.visible = agg
	c.mu.Unlock()
}

func (c *CatalogService) updateLive(v domain.Video) {
	if st, ok := c.subs.State(v.ChannelID); ok {
		st.Update(v)
	}
	c.mu.Lock()
	for i := range c.visible {
		if c.visible[i].ID == v.ID {
			c.visible[i] = v
			break
		}
	}
	c.mu.Unlock()
}

func (c *CatalogService) publishCatalog() {
	publishJSON(c.bus, c.log, TopicCatalogChanged, ToVideoDTOs(c.Snapshot()))
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
