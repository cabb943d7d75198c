package domain

import (
	"sort"
	"strings"
)

// Channel is a subscribed content source. The id is the stable remote
// channel id and acts as the primary key everywhere.
type Channel struct {
	ID           string
	Name         string
	ThumbnailURL string

	// NotificationsEnabled marks whether newly fetched videos from this
	// channel should be surfaced to the notification collaborator.
	NotificationsEnabled bool
}

// SortChannels orders a subscription snapshot by display name,
// case-insensitive ascending. Ties fall back to the channel id so the
// order stays deterministic.
func SortChannels(channels []Channel) {
	sort.Slice(channels, func(i, j int) bool {
		a, b := strings.ToLower(channels[i].Name), strings.ToLower(channels[j].Name)
		if a != b {
			return a < b
		}
		return channels[i].ID < channels[j].ID
	})
}
