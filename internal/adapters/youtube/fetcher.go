// Package youtube implements the remote catalog fetcher against
// YouTube's public surfaces: the per-channel RSS feed for video
// entries, and HTML scraping for channel metadata and playable URLs.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/opentube/opentube/internal/domain"
	"github.com/opentube/opentube/internal/ports"
)

const (
	defaultBaseURL = "https://www.youtube.com"
	maxBodyBytes   = 4 << 20
)

// itag buckets, mixed audio+video streams only. These are the three
// stream variants the quality tiers map onto.
const (
	itagHigh   = 22 // 720p
	itagMedium = 18 // 360p
	itagLow    = 36 // 240p
)

type Fetcher struct {
	baseURL string
	client  *http.Client
	parser  *gofeed.Parser
}

// New builds a fetcher against the real site. baseURL is overridable so
// tests can point at a local server.
func New(baseURL string, client *http.Client) *Fetcher {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Fetcher{baseURL: baseURL, client: client, parser: gofeed.NewParser()}
}

var _ ports.CatalogFetcher = (*Fetcher)(nil)

// FetchVideoFeed pulls the channel's RSS feed and maps its entries.
// Entries missing an id, title, or thumbnail are passed through as-is;
// deciding what to drop is the caller's business.
func (f *Fetcher) FetchVideoFeed(ctx context.Context, channelID string) ([]ports.FeedEntry, error) {
	feedURL := f.baseURL + "/feeds/videos.xml?channel_id=" + channelID

	body, err := f.get(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	parsed, err := f.parser.ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed for %s: %w", channelID, err)
	}

	entries := make([]ports.FeedEntry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		entry := ports.FeedEntry{Title: item.Title}
		if item.PublishedParsed != nil {
			entry.PublishedAt = *item.PublishedParsed
		}
		if vals, ok := item.Extensions["yt"]["videoId"]; ok && len(vals) > 0 {
			entry.VideoID = vals[0].Value
		}
		if groups, ok := item.Extensions["media"]["group"]; ok && len(groups) > 0 {
			group := groups[0]
			if thumbs, ok := group.Children["thumbnail"]; ok && len(thumbs) > 0 {
				entry.ThumbnailURL = thumbs[0].Attrs["url"]
			}
			if descs, ok := group.Children["description"]; ok && len(descs) > 0 {
				entry.Description = descs[0].Value
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ResolveChannelMetadata scrapes the channel page for its display name
// and avatar.
func (f *Fetcher) ResolveChannelMetadata(ctx context.Context, channelID string) (ports.ChannelMetadata, error) {
	body, err := f.get(ctx, f.baseURL+"/channel/"+channelID)
	if err != nil {
		return ports.ChannelMetadata{}, err
	}

	name, ok := substringBetween(body, `<meta property="og:title" content="`, `"`)
	if !ok {
		return ports.ChannelMetadata{}, fmt.Errorf("channel %s: %w", channelID, ErrPageUnparsable)
	}
	thumb, ok := substringBetween(body, `<meta property="og:image" content="`, `"`)
	if !ok {
		return ports.ChannelMetadata{}, fmt.Errorf("channel %s: %w", channelID, ErrPageUnparsable)
	}
	return ports.ChannelMetadata{DisplayName: name, ThumbnailURL: thumb}, nil
}

// ResolveChannelID scrapes a user profile page for the embedded
// canonical channel id token.
func (f *Fetcher) ResolveChannelID(ctx context.Context, channelName string) (string, error) {
	body, err := f.get(ctx, f.baseURL+"/user/"+channelName)
	if err != nil {
		return "", err
	}
	id, ok := substringBetween(body, `"channelId" content="`, `"`)
	if !ok {
		return "", fmt.Errorf("user %s: %w", channelName, ErrPageUnparsable)
	}
	return id, nil
}

// playerResponse is the slice of ytInitialPlayerResponse we care about.
type playerResponse struct {
	StreamingData struct {
		Formats []struct {
			Itag int    `json:"itag"`
			URL  string `json:"url"`
		} `json:"formats"`
	} `json:"streamingData"`
	VideoDetails struct {
		Title         string `json:"title"`
		LengthSeconds string `json:"lengthSeconds"`
	} `json:"videoDetails"`
}

// ResolvePlayableURLs scrapes the watch page's embedded player response
// and buckets its mixed streams into the three quality tiers.
func (f *Fetcher) ResolvePlayableURLs(ctx context.Context, videoID string) (ports.PlayableInfo, error) {
	body, err := f.get(ctx, f.baseURL+"/watch?v="+videoID)
	if err != nil {
		return ports.PlayableInfo{}, err
	}

	raw, ok := substringBetween(body, "var ytInitialPlayerResponse = ", ";</script>")
	if !ok {
		return ports.PlayableInfo{}, fmt.Errorf("video %s: %w", videoID, ErrPageUnparsable)
	}

	var pr playerResponse
	if err := json.Unmarshal([]byte(raw), &pr); err != nil {
		return ports.PlayableInfo{}, fmt.Errorf("video %s: player response: %w", videoID, err)
	}

	info := ports.PlayableInfo{URLs: map[domain.Quality]string{}, Title: pr.VideoDetails.Title}
	for _, format := range pr.StreamingData.Formats {
		if format.URL == "" {
			continue
		}
		switch format.Itag {
		case itagHigh:
			info.URLs[domain.QualityHigh] = format.URL
		case itagMedium:
			info.URLs[domain.QualityMedium] = format.URL
		case itagLow:
			info.URLs[domain.QualityLow] = format.URL
		}
	}
	if secs, err := strconv.Atoi(pr.VideoDetails.LengthSeconds); err == nil && secs > 0 {
		info.Duration = time.Duration(secs) * time.Second
	}
	return info, nil
}

func (f *Fetcher) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) Gecko/20100101 Firefox/120.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// substringBetween returns the text between the first occurrence of
// after and the next occurrence of before.
func substringBetween(s, after, before string) (string, bool) {
	i := strings.Index(s, after)
	if i < 0 {
		return "", false
	}
	rest := s[i+len(after):]
	j := strings.Index(rest, before)
	if j < 0 {
		return "", false
	}
	return rest[:j], true
}
