package app

import (
	"context"
	"sync"
	"time"

	"github.com/opentube/opentube/internal/domain"
	"github.com/opentube/opentube/internal/ports"
)

type fakeChannels struct {
	mu    sync.Mutex
	items map[string]domain.Channel
}

func newFakeChannels() *fakeChannels {
	return &fakeChannels{items: map[string]domain.Channel{}}
}

func (f *fakeChannels) Create(_ context.Context, ch domain.Channel) (domain.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[ch.ID]; ok {
		return domain.Channel{}, ports.ErrConflict
	}
	f.items[ch.ID] = ch
	return ch, nil
}

func (f *fakeChannels) Get(_ context.Context, id string) (domain.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.items[id]
	if !ok {
		return domain.Channel{}, ports.ErrNotFound
	}
	return ch, nil
}

func (f *fakeChannels) List(_ context.Context) ([]domain.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Channel, 0, len(f.items))
	for _, ch := range f.items {
		out = append(out, ch)
	}
	domain.SortChannels(out)
	return out, nil
}

func (f *fakeChannels) Exists(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.items[id]
	return ok, nil
}

func (f *fakeChannels) SetNotifications(_ context.Context, id string, enabled bool) (domain.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.items[id]
	if !ok {
		return domain.Channel{}, ports.ErrNotFound
	}
	ch.NotificationsEnabled = enabled
	f.items[id] = ch
	return ch, nil
}

func (f *fakeChannels) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return ports.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

type fakeVideos struct {
	mu    sync.Mutex
	items map[string]domain.Video
}

func newFakeVideos() *fakeVideos {
	return &fakeVideos{items: map[string]domain.Video{}}
}

func (f *fakeVideos) Create(_ context.Context, v domain.Video) (domain.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[v.ID]; ok {
		return domain.Video{}, ports.ErrConflict
	}
	f.items[v.ID] = v
	return v, nil
}

func (f *fakeVideos) Get(_ context.Context, id string) (domain.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.items[id]
	if !ok {
		return domain.Video{}, ports.ErrNotFound
	}
	return v, nil
}

func (f *fakeVideos) Exists(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.items[id]
	return ok, nil
}

func (f *fakeVideos) ListByChannel(_ context.Context, channelID string, hidden bool) ([]domain.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Video
	for _, v := range f.items {
		if v.ChannelID == channelID && v.Hidden == hidden {
			out = append(out, v)
		}
	}
	domain.SortVideos(out)
	return out, nil
}

func (f *fakeVideos) ListHidden(_ context.Context) ([]domain.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Video
	for _, v := range f.items {
		if v.Hidden {
			out = append(out, v)
		}
	}
	domain.SortVideos(out)
	return out, nil
}

func (f *fakeVideos) update(id string, fn func(*domain.Video)) (domain.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.items[id]
	if !ok {
		return domain.Video{}, ports.ErrNotFound
	}
	fn(&v)
	f.items[id] = v
	return v, nil
}

func (f *fakeVideos) UpdateProgress(_ context.Context, id string, progress float64) (domain.Video, error) {
	return f.update(id, func(v *domain.Video) { v.WatchProgress = progress })
}

func (f *fakeVideos) UpdateHidden(_ context.Context, id string, hidden bool) (domain.Video, error) {
	return f.update(id, func(v *domain.Video) { v.Hidden = hidden })
}

func (f *fakeVideos) UpdateDuration(_ context.Context, id string, seconds float64) (domain.Video, error) {
	return f.update(id, func(v *domain.Video) { v.Duration = time.Duration(seconds * float64(time.Second)) })
}

func (f *fakeVideos) UpdateLastWatched(_ context.Context, id string, unixSeconds int64) (domain.Video, error) {
	return f.update(id, func(v *domain.Video) { v.LastWatchedAt = time.Unix(unixSeconds, 0).UTC() })
}

func (f *fakeVideos) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return ports.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeVideos) DeleteByChannel(_ context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, v := range f.items {
		if v.ChannelID == channelID {
			delete(f.items, id)
		}
	}
	return nil
}

type fakeDownloads struct {
	mu        sync.Mutex
	items     map[string]domain.Download
	createErr error
}

func newFakeDownloads() *fakeDownloads {
	return &fakeDownloads{items: map[string]domain.Download{}}
}

func (f *fakeDownloads) Create(_ context.Context, d domain.Download) (domain.Download, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return domain.Download{}, f.createErr
	}
	if _, ok := f.items[d.VideoID]; ok {
		return domain.Download{}, ports.ErrConflict
	}
	f.items[d.VideoID] = d
	return d, nil
}

func (f *fakeDownloads) Get(_ context.Context, videoID string) (domain.Download, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.items[videoID]
	if !ok {
		return domain.Download{}, ports.ErrNotFound
	}
	return d, nil
}

func (f *fakeDownloads) List(_ context.Context) ([]domain.Download, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Download, 0, len(f.items))
	for _, d := range f.items {
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeDownloads) Delete(_ context.Context, videoID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[videoID]; !ok {
		return ports.ErrNotFound
	}
	delete(f.items, videoID)
	return nil
}

type fakeSettingsRepo struct {
	mu      sync.Mutex
	current domain.Settings
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{current: domain.DefaultSettings()}
}

func (f *fakeSettingsRepo) Get(_ context.Context) (domain.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, nil
}

func (f *fakeSettingsRepo) Put(_ context.Context, s domain.Settings) (domain.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = s
	return s, nil
}

// fakeFetcher serves canned remote data. Per-channel errors simulate a
// broken channel during fan-out.
type fakeFetcher struct {
	mu        sync.Mutex
	feeds     map[string][]ports.FeedEntry
	feedErrs  map[string]error
	metadata  map[string]ports.ChannelMetadata
	metaErrs  map[string]error
	nameToID  map[string]string
	playable  map[string]ports.PlayableInfo
	playErrs  map[string]error
	playCalls map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		feeds:     map[string][]ports.FeedEntry{},
		feedErrs:  map[string]error{},
		metadata:  map[string]ports.ChannelMetadata{},
		metaErrs:  map[string]error{},
		nameToID:  map[string]string{},
		playable:  map[string]ports.PlayableInfo{},
		playErrs:  map[string]error{},
		playCalls: map[string]int{},
	}
}

func (f *fakeFetcher) FetchVideoFeed(_ context.Context, channelID string) ([]ports.FeedEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.feedErrs[channelID]; err != nil {
		return nil, err
	}
	return append([]ports.FeedEntry{}, f.feeds[channelID]...), nil
}

func (f *fakeFetcher) ResolveChannelMetadata(_ context.Context, channelID string) (ports.ChannelMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.metaErrs[channelID]; err != nil {
		return ports.ChannelMetadata{}, err
	}
	meta, ok := f.metadata[channelID]
	if !ok {
		return ports.ChannelMetadata{}, ports.ErrNotFound
	}
	return meta, nil
}

func (f *fakeFetcher) ResolveChannelID(_ context.Context, channelName string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.nameToID[channelName]
	if !ok {
		return "", ports.ErrNotFound
	}
	return id, nil
}

func (f *fakeFetcher) ResolvePlayableURLs(_ context.Context, videoID string) (ports.PlayableInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playCalls[videoID]++
	if err := f.playErrs[videoID]; err != nil {
		return ports.PlayableInfo{}, err
	}
	info, ok := f.playable[videoID]
	if !ok {
		return ports.PlayableInfo{}, ports.ErrNotFound
	}
	return info, nil
}

func (f *fakeFetcher) playCallCount(videoID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playCalls[videoID]
}
