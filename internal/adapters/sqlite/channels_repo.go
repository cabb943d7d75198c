package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/opentube/opentube/internal/domain"
	"github.com/opentube/opentube/internal/ports"
)

type ChannelsRepository struct {
	db *sql.DB
}

func NewChannelsRepository(db *sql.DB) *ChannelsRepository {
	return &ChannelsRepository{db: db}
}

func (r *ChannelsRepository) Create(ctx context.Context, ch domain.Channel) (domain.Channel, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO channels(id, name, thumbnail_url, notifications_enabled, created_at)
		VALUES(?, ?, ?, ?, ?)
	`, ch.ID, ch.Name, ch.ThumbnailURL, boolToInt(ch.NotificationsEnabled), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		// modernc.org/sqlite reports constraint violations as text, e.g.
		// "constraint failed: UNIQUE constraint failed: channels.id (1555)"
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "unique constraint failed") && strings.Contains(msg, "channels.id") {
			return domain.Channel{}, ports.ErrConflict
		}
		return domain.Channel{}, err
	}
	return r.Get(ctx, ch.ID)
}

func (r *ChannelsRepository) Get(ctx context.Context, id string) (domain.Channel, error) {
	var ch domain.Channel
	var notif int
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, thumbnail_url, notifications_enabled
		FROM channels
		WHERE id = ?
	`, id).Scan(&ch.ID, &ch.Name, &ch.ThumbnailURL, &notif)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Channel{}, ports.ErrNotFound
		}
		return domain.Channel{}, err
	}
	ch.NotificationsEnabled = notif != 0
	return ch, nil
}

func (r *ChannelsRepository) List(ctx context.Context) ([]domain.Channel, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, thumbnail_url, notifications_enabled
		FROM channels
		ORDER BY name COLLATE NOCASE ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Channel, 0)
	for rows.Next() {
		var ch domain.Channel
		var notif int
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.ThumbnailURL, &notif); err != nil {
			return nil, err
		}
		ch.NotificationsEnabled = notif != 0
		out = append(out, ch)
	}
	return out, rows.Err()
}

func (r *ChannelsRepository) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM channels WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *ChannelsRepository) SetNotifications(ctx context.Context, id string, enabled bool) (domain.Channel, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE channels SET notifications_enabled = ? WHERE id = ?
	`, boolToInt(enabled), id)
	if err != nil {
		return domain.Channel{}, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.Channel{}, ports.ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *ChannelsRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM channels WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
