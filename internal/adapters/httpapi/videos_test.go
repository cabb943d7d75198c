package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/opentube/opentube/internal/adapters/memorybus"
	"github.com/opentube/opentube/internal/adapters/sqlite"
	"github.com/opentube/opentube/internal/app"
	"github.com/opentube/opentube/internal/domain"
	"github.com/opentube/opentube/internal/ports"
)

// stubFetcher serves one channel with a fixed feed.
type stubFetcher struct {
	channelID string
	entries   []ports.FeedEntry
}

func (f *stubFetcher) FetchVideoFeed(_ context.Context, channelID string) ([]ports.FeedEntry, error) {
	if channelID != f.channelID {
		return nil, ports.ErrNotFound
	}
	return f.entries, nil
}

func (f *stubFetcher) ResolveChannelMetadata(_ context.Context, channelID string) (ports.ChannelMetadata, error) {
	if channelID != f.channelID {
		return ports.ChannelMetadata{}, ports.ErrNotFound
	}
	return ports.ChannelMetadata{DisplayName: "Stub Channel"}, nil
}

func (f *stubFetcher) ResolveChannelID(_ context.Context, channelName string) (string, error) {
	return "", ports.ErrNotFound
}

func (f *stubFetcher) ResolvePlayableURLs(_ context.Context, videoID string) (ports.PlayableInfo, error) {
	return ports.PlayableInfo{URLs: map[domain.Quality]string{domain.QualityMedium: "https://cdn/" + videoID}}, nil
}

func newVideosRouter(t *testing.T) (chi.Router, *app.CatalogService) {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	bus := memorybus.New()
	t.Cleanup(bus.Close)

	log := zerolog.Nop()
	fetcher := &stubFetcher{
		channelID: "UC1",
		entries: []ports.FeedEntry{
			{VideoID: "v1", Title: "one", ThumbnailURL: "https://t/1.jpg", PublishedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
			{VideoID: "v2", Title: "two", ThumbnailURL: "https://t/2.jpg", PublishedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
	}

	videos := sqlite.NewVideosRepository(db.SQL)
	quality := app.NewQualityService(fetcher, videos, log)
	subs := app.NewSubscriptionService(sqlite.NewChannelsRepository(db.SQL), videos, fetcher, quality, bus, log)
	catalog := app.NewCatalogService(subs, videos, sqlite.NewDownloadsRepository(db.SQL), bus, log)

	if _, err := subs.AddByID(ctx, "UC1"); err != nil {
		t.Fatalf("AddByID: %v", err)
	}
	if _, err := catalog.FetchAndSaveNew(ctx); err != nil {
		t.Fatalf("FetchAndSaveNew: %v", err)
	}

	r := chi.NewRouter()
	NewVideosHandler(catalog, nil, nil).Routes(r)
	return r, catalog
}

func TestVideosHandler_ListAndHide(t *testing.T) {
	r, _ := newVideosRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/videos/", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("list status: %d", rr.Code)
	}
	var list []app.VideoDTO
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "v1" {
		t.Fatalf("unexpected list: %+v", list)
	}

	// the REST shape is the event shape: camelCase keys, derived flags
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(rr.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode raw list: %v", err)
	}
	for _, key := range []string{"id", "channelId", "publishedAt", "isWatched", "inProgress"} {
		if _, ok := raw[0][key]; !ok {
			t.Fatalf("list payload missing %q: %s", key, rr.Body.String())
		}
	}

	req = httptest.NewRequest(http.MethodPost, "/videos/v1/hide", nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("hide status: %d body=%s", rr.Code, rr.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/videos/hidden", nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	var hidden []app.VideoDTO
	if err := json.Unmarshal(rr.Body.Bytes(), &hidden); err != nil {
		t.Fatalf("decode hidden: %v", err)
	}
	if len(hidden) != 1 || hidden[0].ID != "v1" {
		t.Fatalf("unexpected hidden list: %+v", hidden)
	}

	req = httptest.NewRequest(http.MethodPost, "/videos/missing/hide", nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("hide missing status: %d", rr.Code)
	}
}

func TestVideosHandler_SetProgress(t *testing.T) {
	r, catalog := newVideosRouter(t)

	body := []byte(`{"progress":0.4}`)
	req := httptest.NewRequest(http.MethodPut, "/videos/v2/progress", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d body=%s", rr.Code, rr.Body.String())
	}

	var dto app.VideoDTO
	if err := json.Unmarshal(rr.Body.Bytes(), &dto); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if dto.WatchProgress != 0.4 || !dto.InProgress || dto.IsWatched {
		t.Fatalf("unexpected response: %+v", dto)
	}

	v, ok := catalog.Video("v2")
	if !ok || v.WatchProgress != 0.4 {
		t.Fatalf("progress not applied: %+v ok=%v", v, ok)
	}
}
