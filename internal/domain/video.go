package domain

import (
	"sort"
	"time"
)

const (
	// WatchedThreshold is the progress fraction past which a video
	// counts as watched.
	WatchedThreshold = 0.95
	// InProgressThreshold is the progress fraction at which a video
	// counts as started.
	InProgressThreshold = 0.01
)

// Video is a single piece of content. ChannelID is empty for ad-hoc
// play-by-URL videos, which are never persisted.
type Video struct {
	ID           string
	ChannelID    string
	Title        string
	PublishedAt  time.Time
	ThumbnailURL string
	Description  string

	// Duration is filled lazily from playable-URL resolution; zero means
	// unknown.
	Duration time.Duration

	WatchProgress float64
	Hidden        bool
	LastWatchedAt time.Time

	// DownloadProgress is transient download state, never persisted.
	DownloadProgress float64
}

// IsWatched reports whether the video has effectively been watched
// through.
func (v Video) IsWatched() bool {
	return v.WatchProgress > WatchedThreshold
}

// InProgress reports whether the video has been started but not watched
// through.
func (v Video) InProgress() bool {
	return v.WatchProgress >= InProgressThreshold && v.WatchProgress < WatchedThreshold
}

// SortVideos orders videos by publish date descending, newest first.
// Equal timestamps order by video id so repeated sorts stay stable.
func SortVideos(videos []Video) {
	sort.Slice(videos, func(i, j int) bool {
		a, b := videos[i], videos[j]
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.After(b.PublishedAt)
		}
		return a.ID < b.ID
	})
}

// DeriveUpNext maps a full video list into the "continue watching"
// ranking: unwatched videos only, at most one per channel, preferring
// the entry with the greatest watch progress (first encountered wins on
// ties), sorted by publish date descending.
func DeriveUpNext(videos []Video) []Video {
	best := make(map[string]Video)
	order := make([]string, 0)

	for _, v := range videos {
		if v.ChannelID == "" || v.IsWatched() {
			continue
		}
		current, ok := best[v.ChannelID]
		if !ok {
			best[v.ChannelID] = v
			order = append(order, v.ChannelID)
			continue
		}
		// Only a strictly greater progress replaces the held candidate.
		if v.WatchProgress > current.WatchProgress {
			best[v.ChannelID] = v
		}
	}

	out := make([]Video, 0, len(order))
	for _, channelID := range order {
		out = append(out, best[channelID])
	}
	SortVideos(out)
	return out
}
