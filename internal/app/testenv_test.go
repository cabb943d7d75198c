package app

import (
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/opentube/opentube/internal/adapters/memorybus"
	"github.com/opentube/opentube/internal/domain"
	"github.com/opentube/opentube/internal/ports"
)

func testVideo(id, channelID string, day int) domain.Video {
	return domain.Video{
		ID:           id,
		ChannelID:    channelID,
		Title:        "title " + id,
		PublishedAt:  time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
		ThumbnailURL: "https://t/" + id + ".jpg",
	}
}

// env wires the full service graph against in-memory fakes.
type env struct {
	channels     *fakeChannels
	videos       *fakeVideos
	downloadRepo *fakeDownloads
	settingsRepo *fakeSettingsRepo
	fetcher      *fakeFetcher
	bus          *memorybus.Bus
	limiter      *DynamicLimiter

	quality  *QualityService
	subs     *SubscriptionService
	catalog  *CatalogService
	settings *SettingsService
	manager  *DownloadManager
	playback *PlaybackService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	e := &env{
		channels:     newFakeChannels(),
		videos:       newFakeVideos(),
		downloadRepo: newFakeDownloads(),
		settingsRepo: newFakeSettingsRepo(),
		fetcher:      newFakeFetcher(),
		bus:          memorybus.New(),
		limiter:      NewDynamicLimiter(2),
	}
	t.Cleanup(e.bus.Close)

	log := zerolog.Nop()
	e.quality = NewQualityService(e.fetcher, e.videos, log)
	e.subs = NewSubscriptionService(e.channels, e.videos, e.fetcher, e.quality, e.bus, log)
	e.catalog = NewCatalogService(e.subs, e.videos, e.downloadRepo, e.bus, log)
	e.settings = NewSettingsService(e.settingsRepo, e.limiter, e.bus, log)
	e.manager = NewDownloadManager(e.quality, e.catalog, e.downloadRepo, e.settings, e.limiter, e.bus, http.DefaultClient, log)
	e.playback = NewPlaybackService(e.quality, e.manager, e.settings, log)
	return e
}

func waitEvent(t *testing.T, events <-chan ports.Event, topic string) ports.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case evt, ok := <-events:
			if !ok {
				t.Fatalf("bus closed while waiting for %s", topic)
			}
			if evt.Topic == topic {
				return evt
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", topic)
		}
	}
}
