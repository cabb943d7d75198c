package ports

import (
	"context"
	"time"

	"github.com/opentube/opentube/internal/domain"
)

// FeedEntry is one raw video record out of a channel's remote feed.
// Fields may be missing; the channel state decides what survives.
type FeedEntry struct {
	VideoID      string
	Title        string
	ThumbnailURL string
	Description  string
	PublishedAt  time.Time
}

// ChannelMetadata is what a channel page resolves to.
type ChannelMetadata struct {
	DisplayName  string
	ThumbnailURL string
}

// PlayableInfo maps quality tiers to direct media URLs, plus whatever
// metadata came along with the resolution.
type PlayableInfo struct {
	URLs     map[domain.Quality]string
	Title    string
	Duration time.Duration
}

// CatalogFetcher is the remote collaborator that scrapes channel and
// video data. Every call is terminal on failure; retries are not part
// of the contract.
type CatalogFetcher interface {
	FetchVideoFeed(ctx context.Context, channelID string) ([]FeedEntry, error)
	ResolveChannelMetadata(ctx context.Context, channelID string) (ChannelMetadata, error)
	// ResolveChannelID turns a channel display name into its canonical id.
	ResolveChannelID(ctx context.Context, channelName string) (string, error)
	ResolvePlayableURLs(ctx context.Context, videoID string) (PlayableInfo, error)
}
