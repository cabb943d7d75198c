package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/opentube/opentube/internal/domain"
	"github.com/opentube/opentube/internal/ports"
)

func feedEntry(id string, day int) ports.FeedEntry {
	return ports.FeedEntry{
		VideoID:      id,
		Title:        "title " + id,
		ThumbnailURL: "https://t/" + id + ".jpg",
		PublishedAt:  time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
	}
}

func subscribe(t *testing.T, e *env, channelID, name string) {
	t.Helper()
	e.fetcher.metadata[channelID] = ports.ChannelMetadata{DisplayName: name}
	if _, err := e.subs.AddByID(context.Background(), channelID); err != nil {
		t.Fatalf("subscribe %s: %v", channelID, err)
	}
}

func TestCatalog_FetchAndSaveNew(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	subscribe(t, e, "UC1", "One")
	subscribe(t, e, "UC2", "Two")

	e.fetcher.feeds["UC1"] = []ports.FeedEntry{feedEntry("v1", 2)}
	e.fetcher.feeds["UC2"] = []ports.FeedEntry{feedEntry("v2", 3)}

	fresh, err := e.catalog.FetchAndSaveNew(ctx)
	if err != nil {
		t.Fatalf("FetchAndSaveNew: %v", err)
	}
	if len(fresh) != 2 || fresh[0].ID != "v2" || fresh[1].ID != "v1" {
		t.Fatalf("unexpected new videos: %+v", fresh)
	}

	snap := e.catalog.Snapshot()
	if len(snap) != 2 || snap[0].ID != "v2" || snap[1].ID != "v1" {
		t.Fatalf("aggregate not newest-first: %+v", snap)
	}
	if ok, _ := e.videos.Exists(ctx, "v1"); !ok {
		t.Fatalf("v1 not persisted")
	}

	// a second refresh with the same feed finds nothing new
	fresh, err = e.catalog.FetchAndSaveNew(ctx)
	if err != nil {
		t.Fatalf("second FetchAndSaveNew: %v", err)
	}
	if len(fresh) != 0 {
		t.Fatalf("expected no new videos, got %+v", fresh)
	}
}

func TestCatalog_FetchSkipsIncompleteEntries(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	subscribe(t, e, "UC1", "One")

	noID := feedEntry("", 5)
	noTitle := feedEntry("v-untitled", 4)
	noTitle.Title = ""
	noThumb := feedEntry("v-bare", 3)
	noThumb.ThumbnailURL = ""
	keep := feedEntry("v-ok", 2)
	e.fetcher.feeds["UC1"] = []ports.FeedEntry{noID, noTitle, noThumb, keep}

	fresh, err := e.catalog.FetchAndSaveNew(ctx)
	if err != nil {
		t.Fatalf("FetchAndSaveNew: %v", err)
	}
	if len(fresh) != 1 || fresh[0].ID != "v-ok" {
		t.Fatalf("expected only v-ok, got %+v", fresh)
	}
}

func TestCatalog_FetchFallsBackToNowForMissingDate(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	subscribe(t, e, "UC1", "One")

	undated := feedEntry("v-undated", 1)
	undated.PublishedAt = time.Time{}
	e.fetcher.feeds["UC1"] = []ports.FeedEntry{undated}

	before := time.Now().UTC().Add(-time.Minute)
	fresh, err := e.catalog.FetchAndSaveNew(ctx)
	if err != nil {
		t.Fatalf("FetchAndSaveNew: %v", err)
	}
	if len(fresh) != 1 {
		t.Fatalf("expected one video, got %+v", fresh)
	}
	if fresh[0].PublishedAt.Before(before) {
		t.Fatalf("expected publish date fallback to now, got %v", fresh[0].PublishedAt)
	}
}

func TestCatalog_PartialFailureKeepsHealthyChannels(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	subscribe(t, e, "UC1", "One")
	subscribe(t, e, "UC2", "Two")

	e.fetcher.feedErrs["UC1"] = errors.New("boom")
	e.fetcher.feeds["UC2"] = []ports.FeedEntry{feedEntry("v2", 3)}

	fresh, err := e.catalog.FetchAndSaveNew(ctx)
	if err != nil {
		t.Fatalf("expected partial failure to pass, got %v", err)
	}
	if len(fresh) != 1 || fresh[0].ID != "v2" {
		t.Fatalf("unexpected new videos: %+v", fresh)
	}
}

func TestCatalog_AllChannelsFailingSurfacesError(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	subscribe(t, e, "UC1", "One")
	subscribe(t, e, "UC2", "Two")

	e.fetcher.feedErrs["UC1"] = errors.New("boom one")
	e.fetcher.feedErrs["UC2"] = errors.New("boom two")

	if _, err := e.catalog.FetchAndSaveNew(ctx); err == nil {
		t.Fatalf("expected error when every channel fails")
	}
	if len(e.catalog.Snapshot()) != 0 {
		t.Fatalf("aggregate must be untouched on total failure")
	}
}

func TestCatalog_HideAndUnhideRestoresPosition(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	subscribe(t, e, "UC1", "One")
	e.fetcher.feeds["UC1"] = []ports.FeedEntry{
		feedEntry("v1", 3), feedEntry("v2", 2), feedEntry("v3", 1),
	}
	if _, err := e.catalog.FetchAndSaveNew(ctx); err != nil {
		t.Fatalf("FetchAndSaveNew: %v", err)
	}

	if err := e.catalog.Hide(ctx, "v2"); err != nil {
		t.Fatalf("Hide: %v", err)
	}
	snap := e.catalog.Snapshot()
	if len(snap) != 2 || snap[0].ID != "v1" || snap[1].ID != "v3" {
		t.Fatalf("after hide: %+v", snap)
	}

	hidden, err := e.catalog.HiddenVideos(ctx)
	if err != nil || len(hidden) != 1 || hidden[0].ID != "v2" {
		t.Fatalf("hidden list: %+v err=%v", hidden, err)
	}

	// hiding again is a no-op
	if err := e.catalog.Hide(ctx, "v2"); err != nil {
		t.Fatalf("second Hide: %v", err)
	}

	if err := e.catalog.Unhide(ctx, "v2"); err != nil {
		t.Fatalf("Unhide: %v", err)
	}
	snap = e.catalog.Snapshot()
	if len(snap) != 3 || snap[1].ID != "v2" {
		t.Fatalf("after unhide, v2 must sit between v1 and v3: %+v", snap)
	}

	if err := e.catalog.Hide(ctx, "missing"); !errors.Is(err, ErrVideoNotFound) {
		t.Fatalf("expected ErrVideoNotFound, got %v", err)
	}
}

func TestCatalog_SetWatchProgress(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	subscribe(t, e, "UC1", "One")
	e.fetcher.feeds["UC1"] = []ports.FeedEntry{feedEntry("v1", 1)}
	if _, err := e.catalog.FetchAndSaveNew(ctx); err != nil {
		t.Fatalf("FetchAndSaveNew: %v", err)
	}

	events, cancel := e.bus.Subscribe()
	defer cancel()

	v, err := e.catalog.SetWatchProgress(ctx, "v1", 0.5)
	if err != nil {
		t.Fatalf("SetWatchProgress: %v", err)
	}
	if v.WatchProgress != 0.5 || !v.InProgress() {
		t.Fatalf("unexpected video: %+v", v)
	}

	evt := waitEvent(t, events, TopicVideoState)
	var state VideoStateDTO
	if err := json.Unmarshal(evt.Payload, &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.ID != "v1" || !state.InProgress || state.IsWatched {
		t.Fatalf("unexpected state event: %+v", state)
	}

	// out-of-range values clamp
	v, err = e.catalog.SetWatchProgress(ctx, "v1", 1.7)
	if err != nil {
		t.Fatalf("SetWatchProgress clamp: %v", err)
	}
	if v.WatchProgress != 1 || !v.IsWatched() {
		t.Fatalf("expected clamp to 1: %+v", v)
	}

	if _, err := e.catalog.SetWatchProgress(ctx, "missing", 0.2); !errors.Is(err, ErrVideoNotFound) {
		t.Fatalf("expected ErrVideoNotFound, got %v", err)
	}
}

func TestCatalog_DownloadedVideosPrefersLiveState(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	subscribe(t, e, "UC1", "One")
	e.fetcher.feeds["UC1"] = []ports.FeedEntry{feedEntry("v1", 1)}
	if _, err := e.catalog.FetchAndSaveNew(ctx); err != nil {
		t.Fatalf("FetchAndSaveNew: %v", err)
	}

	if _, err := e.downloadRepo.Create(ctx, domain.Download{VideoID: "v1", LocalFileName: "v1.mp4"}); err != nil {
		t.Fatalf("seed download: %v", err)
	}
	e.catalog.SetDownloadProgress("v1", 1)

	list, err := e.catalog.DownloadedVideos(ctx)
	if err != nil {
		t.Fatalf("DownloadedVideos: %v", err)
	}
	if len(list) != 1 || list[0].DownloadProgress != 1 {
		t.Fatalf("expected live download progress, got %+v", list)
	}
}
