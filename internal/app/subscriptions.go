package app

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/opentube/opentube/internal/domain"
	"github.com/opentube/opentube/internal/ports"
)

// SubscriptionService is the registry of subscribed channels. It owns
// one ChannelState per subscription and publishes a full channel list
// snapshot after every mutation.
type SubscriptionService struct {
	channels ports.ChannelRepository
	videos   ports.VideoRepository
	fetcher  ports.CatalogFetcher
	quality  *QualityService
	bus      ports.EventBus
	log      zerolog.Logger

	mu     sync.Mutex
	states map[string]*ChannelState
}

func NewSubscriptionService(
	channels ports.ChannelRepository,
	videos ports.VideoRepository,
	fetcher ports.CatalogFetcher,
	quality *QualityService,
	bus ports.EventBus,
	log zerolog.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		channels: channels,
		videos:   videos,
		fetcher:  fetcher,
		quality:  quality,
		bus:      bus,
		log:      log.With().Str("component", "subscriptions").Logger(),
		states:   make(map[string]*ChannelState),
	}
}

// Load hydrates the registry from the store and loads each channel's
// visible videos. Called once at startup.
func (s *SubscriptionService) Load(ctx context.Context) error {
	list, err := s.channels.List(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	for _, ch := range list {
		s.states[ch.ID] = s.newState(ch)
	}
	s.mu.Unlock()

	for _, st := range s.States() {
		if err := st.Load(ctx); err != nil {
			return err
		}
	}
	s.publish()
	return nil
}

// AddByID subscribes to a channel by its canonical id. The channel's
// display name and avatar come from the remote; an unresolvable id is
// reported as ErrChannelNotFound.
func (s *SubscriptionService) AddByID(ctx context.Context, channelID string) (domain.Channel, error) {
	exists, err := s.channels.Exists(ctx, channelID)
	if err != nil {
		return domain.Channel{}, err
	}
	if exists {
		return domain.Channel{}, ErrAlreadySubscribed
	}

	meta, err := s.fetcher.ResolveChannelMetadata(ctx, channelID)
	if err != nil {
		s.log.Warn().Err(err).Str("channel_id", channelID).Msg("resolve channel metadata")
		return domain.Channel{}, ErrChannelNotFound
	}

	ch := domain.Channel{
		ID:           channelID,
		Name:         meta.DisplayName,
		ThumbnailURL: meta.ThumbnailURL,
	}
	created, err := s.channels.Create(ctx, ch)
	if errors.Is(err, ports.ErrConflict) {
		return domain.Channel{}, ErrAlreadySubscribed
	}
	if err != nil {
		return domain.Channel{}, err
	}

	s.mu.Lock()
	s.states[created.ID] = s.newState(created)
	s.mu.Unlock()

	s.log.Info().Str("channel_id", created.ID).Str("name", created.Name).Msg("subscribed")
	s.publish()
	return created, nil
}

// AddByName resolves a display name to a channel id first, then
// subscribes by id.
func (s *SubscriptionService) AddByName(ctx context.Context, channelName string) (domain.Channel, error) {
	id, err := s.fetcher.ResolveChannelID(ctx, channelName)
	if err != nil {
		s.log.Warn().Err(err).Str("channel_name", channelName).Msg("resolve channel id")
		return domain.Channel{}, ErrChannelNotFound
	}
	return s.AddByID(ctx, id)
}

// Remove unsubscribes and deletes the channel's videos. It is best
// effort by contract: failures are logged, the in-memory registry is
// updated regardless, and the caller never sees an error.
func (s *SubscriptionService) Remove(ctx context.Context, channelID string) {
	if err := s.videos.DeleteByChannel(ctx, channelID); err != nil {
		s.log.Error().Err(err).Str("channel_id", channelID).Msg("delete channel videos")
	}
	if err := s.channels.Delete(ctx, channelID); err != nil && !errors.Is(err, ports.ErrNotFound) {
		s.log.Error().Err(err).Str("channel_id", channelID).Msg("delete channel")
	}

	s.mu.Lock()
	delete(s.states, channelID)
	s.mu.Unlock()

	s.log.Info().Str("channel_id", channelID).Msg("unsubscribed")
	s.publish()
}

// SetNotifications flips the per-channel notification flag.
func (s *SubscriptionService) SetNotifications(ctx context.Context, channelID string, enabled bool) (domain.Channel, error) {
	ch, err := s.channels.SetNotifications(ctx, channelID, enabled)
	if err != nil {
		return domain.Channel{}, err
	}

	s.mu.Lock()
	if st, ok := s.states[channelID]; ok {
		st.setNotifications(enabled)
	}
	s.mu.Unlock()

	s.publish()
	return ch, nil
}

// Snapshot returns the subscribed channels, display-name ascending.
func (s *SubscriptionService) Snapshot() []domain.Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Channel, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, st.Channel())
	}
	domain.SortChannels(out)
	return out
}

// States returns the channel states in channel-list order.
func (s *SubscriptionService) States() []*ChannelState {
	s.mu.Lock()
	defer s.mu.Unlock()
	chans := make([]domain.Channel, 0, len(s.states))
	for _, st := range s.states {
		chans = append(chans, st.Channel())
	}
	domain.SortChannels(chans)
	out := make([]*ChannelState, 0, len(chans))
	for _, ch := range chans {
		out = append(out, s.states[ch.ID])
	}
	return out
}

// State looks up a single channel's state.
func (s *SubscriptionService) State(channelID string) (*ChannelState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[channelID]
	return st, ok
}

func (s *SubscriptionService) newState(ch domain.Channel) *ChannelState {
	return NewChannelState(ch, s.videos, s.fetcher, s.quality, s.bus, s.log)
}

func (s *SubscriptionService) publish() {
	publishJSON(s.bus, s.log, TopicSubscriptionsChanged, ToChannelDTOs(s.Snapshot()))
}
