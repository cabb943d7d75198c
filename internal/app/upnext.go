package app

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/opentube/opentube/internal/domain"
	"github.com/opentube/opentube/internal/ports"
)

type videoFlags struct {
	inProgress bool
	watched    bool
}

// UpNextEngine derives the "continue watching" list from the catalog.
// It recomputes on every catalog change, and on per-video state events
// only when the watched or in-progress flag actually flipped, so raw
// progress ticks inside a tier stay cheap.
type UpNextEngine struct {
	catalog *CatalogService
	bus     ports.EventBus
	log     zerolog.Logger

	mu      sync.Mutex
	watches map[string]videoFlags
	current []domain.Video
}

func NewUpNextEngine(catalog *CatalogService, bus ports.EventBus, log zerolog.Logger) *UpNextEngine {
	return &UpNextEngine{
		catalog: catalog,
		bus:     bus,
		log:     log.With().Str("component", "upnext").Logger(),
		watches: make(map[string]videoFlags),
	}
}

// Run consumes bus events until ctx is done.
func (e *UpNextEngine) Run(ctx context.Context) {
	events, cancel := e.bus.Subscribe()
	defer cancel()

	e.Recompute()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			switch evt.Topic {
			case TopicCatalogChanged:
				e.Recompute()
			case TopicVideoState:
				var state VideoStateDTO
				if err := json.Unmarshal(evt.Payload, &state); err != nil {
					e.log.Error().Err(err).Msg("decode video state")
					continue
				}
				if e.flagsChanged(state) {
					e.Recompute()
				}
			}
		}
	}
}

// Recompute rebuilds the ranking from the current catalog snapshot and
// publishes it. The watch set is reinstalled from the same snapshot so
// later state events compare against what was just ranked.
func (e *UpNextEngine) Recompute() {
	snapshot := e.catalog.Snapshot()
	ranked := domain.DeriveUpNext(snapshot)

	watches := make(map[string]videoFlags, len(snapshot))
	for _, v := range snapshot {
		watches[v.ID] = videoFlags{inProgress: v.InProgress(), watched: v.IsWatched()}
	}

	e.mu.Lock()
	e.watches = watches
	e.current = ranked
	e.mu.Unlock()

	publishJSON(e.bus, e.log, TopicUpNextChanged, ToVideoDTOs(ranked))
}

// UpNext returns a copy of the current ranking.
func (e *UpNextEngine) UpNext() []domain.Video {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.Video{}, e.current...)
}

// flagsChanged reports whether the event flips a watched/in-progress
// flag relative to the installed watch set, updating it either way.
func (e *UpNextEngine) flagsChanged(state VideoStateDTO) bool {
	next := videoFlags{inProgress: state.InProgress, watched: state.IsWatched}

	e.mu.Lock()
	defer e.mu.Unlock()
	prev, ok := e.watches[state.ID]
	e.watches[state.ID] = next
	if !ok {
		return true
	}
	return prev != next
}
