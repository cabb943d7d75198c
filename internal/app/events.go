package app

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/opentube/opentube/internal/domain"
	"github.com/opentube/opentube/internal/ports"
)

// Bus topics. Every payload is a JSON snapshot; consumers that miss an
// event recover on the next one.
const (
	TopicSubscriptionsChanged = "subscriptions.changed"
	TopicChannelVideosChanged = "channel.videos.changed"
	TopicCatalogChanged       = "catalog.changed"
	TopicCatalogNewVideos     = "catalog.newvideos"
	TopicVideoState           = "video.state"
	TopicUpNextChanged        = "upnext.changed"
	TopicSettingsChanged      = "settings.changed"
	TopicDownloadProgress     = "download.progress"
	TopicDownloadCompleted    = "download.completed"
	TopicDownloadFailed       = "download.failed"
	TopicNotifyVideo          = "notify.video"
)

type ChannelDTO struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	ThumbnailURL         string `json:"thumbnailUrl"`
	NotificationsEnabled bool   `json:"notificationsEnabled"`
}

type VideoDTO struct {
	ID               string    `json:"id"`
	ChannelID        string    `json:"channelId"`
	Title            string    `json:"title"`
	PublishedAt      time.Time `json:"publishedAt"`
	ThumbnailURL     string    `json:"thumbnailUrl"`
	Description      string    `json:"description,omitempty"`
	DurationSeconds  float64   `json:"durationSeconds,omitempty"`
	WatchProgress    float64   `json:"watchProgress"`
	DownloadProgress float64   `json:"downloadProgress"`
	IsWatched        bool      `json:"isWatched"`
	InProgress       bool      `json:"inProgress"`
}

// VideoStateDTO is the per-video delta published on TopicVideoState.
type VideoStateDTO struct {
	ID               string  `json:"id"`
	WatchProgress    float64 `json:"watchProgress"`
	DownloadProgress float64 `json:"downloadProgress"`
	IsWatched        bool    `json:"isWatched"`
	InProgress       bool    `json:"inProgress"`
}

type DownloadEventDTO struct {
	VideoID  string  `json:"videoId"`
	TaskID   string  `json:"taskId"`
	Progress float64 `json:"progress,omitempty"`
	Code     string  `json:"code,omitempty"`
	Message  string  `json:"message,omitempty"`
}

type NotificationDTO struct {
	ChannelID   string   `json:"channelId"`
	ChannelName string   `json:"channelName"`
	Video       VideoDTO `json:"video"`
}

func ToChannelDTO(c domain.Channel) ChannelDTO {
	return ChannelDTO{
		ID:                   c.ID,
		Name:                 c.Name,
		ThumbnailURL:         c.ThumbnailURL,
		NotificationsEnabled: c.NotificationsEnabled,
	}
}

func ToChannelDTOs(cs []domain.Channel) []ChannelDTO {
	out := make([]ChannelDTO, 0, len(cs))
	for _, c := range cs {
		out = append(out, ToChannelDTO(c))
	}
	return out
}

func ToVideoDTO(v domain.Video) VideoDTO {
	return VideoDTO{
		ID:               v.ID,
		ChannelID:        v.ChannelID,
		Title:            v.Title,
		PublishedAt:      v.PublishedAt,
		ThumbnailURL:     v.ThumbnailURL,
		Description:      v.Description,
		DurationSeconds:  v.Duration.Seconds(),
		WatchProgress:    v.WatchProgress,
		DownloadProgress: v.DownloadProgress,
		IsWatched:        v.IsWatched(),
		InProgress:       v.InProgress(),
	}
}

func ToVideoDTOs(vs []domain.Video) []VideoDTO {
	out := make([]VideoDTO, 0, len(vs))
	for _, v := range vs {
		out = append(out, ToVideoDTO(v))
	}
	return out
}

func toVideoStateDTO(v domain.Video) VideoStateDTO {
	return VideoStateDTO{
		ID:               v.ID,
		WatchProgress:    v.WatchProgress,
		DownloadProgress: v.DownloadProgress,
		IsWatched:        v.IsWatched(),
		InProgress:       v.InProgress(),
	}
}

// publishJSON marshals and publishes in one step. Marshal failures are
// logged and swallowed; the bus never carries partial payloads.
func publishJSON(bus ports.EventBus, log zerolog.Logger, topic string, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("marshal event payload")
		return
	}
	bus.Publish(topic, b)
}
