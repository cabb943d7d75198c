package app

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/opentube/opentube/internal/ports"
)

func TestRefreshScheduler_RefreshesImmediatelyAndOnTick(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := newEnv(t)
	subscribe(t, e, "UC1", "One")
	e.fetcher.feeds["UC1"] = []ports.FeedEntry{feedEntry("v1", 1)}

	events, cancelSub := e.bus.Subscribe()
	defer cancelSub()

	s := NewRefreshScheduler(e.catalog, 20*time.Millisecond, zerolog.Nop())
	go s.Run(ctx)

	// the startup refresh lands the feed's video in the catalog
	waitEvent(t, events, TopicCatalogNewVideos)

	// a later tick picks up a video published after startup
	e.fetcher.mu.Lock()
	e.fetcher.feeds["UC1"] = append(e.fetcher.feeds["UC1"], feedEntry("v2", 2))
	e.fetcher.mu.Unlock()

	waitEvent(t, events, TopicCatalogNewVideos)
	if _, ok := e.catalog.Video("v2"); !ok {
		t.Fatalf("v2 missing from catalog after tick")
	}
}

func TestRefreshScheduler_DefaultsInterval(t *testing.T) {
	s := NewRefreshScheduler(nil, 0, zerolog.Nop())
	if s.interval != 30*time.Minute {
		t.Fatalf("want 30m default, got %v", s.interval)
	}
}
