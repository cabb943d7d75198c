package app

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/opentube/opentube/internal/ports"
)

// Notifier turns new-video events into per-video notifications for
// channels whose notification flag is on. It emits onto the bus; what
// renders the notification is not its business.
type Notifier struct {
	subs *SubscriptionService
	bus  ports.EventBus
	log  zerolog.Logger
}

func NewNotifier(subs *SubscriptionService, bus ports.EventBus, log zerolog.Logger) *Notifier {
	return &Notifier{
		subs: subs,
		bus:  bus,
		log:  log.With().Str("component", "notifier").Logger(),
	}
}

// Run consumes new-video events until ctx is done.
func (n *Notifier) Run(ctx context.Context) {
	events, cancel := n.bus.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if evt.Topic != TopicCatalogNewVideos {
				continue
			}
			var fresh []VideoDTO
			if err := json.Unmarshal(evt.Payload, &fresh); err != nil {
				n.log.Error().Err(err).Msg("decode new videos")
				continue
			}
			n.notify(fresh)
		}
	}
}

func (n *Notifier) notify(fresh []VideoDTO) {
	enabled := make(map[string]string)
	for _, ch := range n.subs.Snapshot() {
		if ch.NotificationsEnabled {
			enabled[ch.ID] = ch.Name
		}
	}

	for _, v := range fresh {
		name, ok := enabled[v.ChannelID]
		if !ok {
			continue
		}
		publishJSON(n.bus, n.log, TopicNotifyVideo, NotificationDTO{
			ChannelID:   v.ChannelID,
			ChannelName: name,
			Video:       v,
		})
		n.log.Debug().Str("video_id", v.ID).Str("channel_id", v.ChannelID).Msg("notification emitted")
	}
}
