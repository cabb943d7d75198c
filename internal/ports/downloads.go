package ports

import (
	"context"

	"github.com/opentube/opentube/internal/domain"
)

type DownloadRepository interface {
	// Create fails with ErrConflict when a record for the video already
	// exists.
	Create(ctx context.Context, d domain.Download) (domain.Download, error)
	Get(ctx context.Context, videoID string) (domain.Download, error)
	List(ctx context.Context) ([]domain.Download, error)
	Delete(ctx context.Context, videoID string) error
}
