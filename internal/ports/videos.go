package ports

import (
	"context"

	"github.com/opentube/opentube/internal/domain"
)

type VideoRepository interface {
	Create(ctx context.Context, v domain.Video) (domain.Video, error)
	Get(ctx context.Context, id string) (domain.Video, error)
	Exists(ctx context.Context, id string) (bool, error)
	// ListByChannel returns the channel's videos publish-date descending.
	// hidden selects the hidden or the visible partition.
	ListByChannel(ctx context.Context, channelID string, hidden bool) ([]domain.Video, error)
	ListHidden(ctx context.Context) ([]domain.Video, error)
	UpdateProgress(ctx context.Context, id string, progress float64) (domain.Video, error)
	UpdateHidden(ctx context.Context, id string, hidden bool) (domain.Video, error)
	UpdateDuration(ctx context.Context, id string, seconds float64) (domain.Video, error)
	UpdateLastWatched(ctx context.Context, id string, unixSeconds int64) (domain.Video, error)
	Delete(ctx context.Context, id string) error
	DeleteByChannel(ctx context.Context, channelID string) error
}
