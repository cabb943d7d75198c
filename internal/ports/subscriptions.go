package ports

import (
	"context"

	"github.com/opentube/opentube/internal/domain"
)

type ChannelRepository interface {
	Create(ctx context.Context, ch domain.Channel) (domain.Channel, error)
	Get(ctx context.Context, id string) (domain.Channel, error)
	// List returns every subscribed channel, display-name ascending
	// (case-insensitive).
	List(ctx context.Context) ([]domain.Channel, error)
	Exists(ctx context.Context, id string) (bool, error)
	SetNotifications(ctx context.Context, id string, enabled bool) (domain.Channel, error)
	// Delete removes the channel record only; cascading video deletion
	// is the registry's job.
	Delete(ctx context.Context, id string) error
}
