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

type VideosRepository struct {
	db *sql.DB
}

func NewVideosRepository(db *sql.DB) *VideosRepository {
	return &VideosRepository{db: db}
}

const videoColumns = `id, channel_id, title, published_at, thumbnail_url, description, duration_seconds, watch_progress, hidden, last_watched_at`

func (r *VideosRepository) Create(ctx context.Context, v domain.Video) (domain.Video, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO videos(`+videoColumns+`)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		v.ID, v.ChannelID, v.Title, v.PublishedAt.UTC().Format(time.RFC3339),
		v.ThumbnailURL, v.Description, v.Duration.Seconds(),
		v.WatchProgress, boolToInt(v.Hidden), lastWatchedUnix(v.LastWatchedAt),
	)
	if err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "unique constraint failed") && strings.Contains(msg, "videos.id") {
			return domain.Video{}, ports.ErrConflict
		}
		return domain.Video{}, err
	}
	return r.Get(ctx, v.ID)
}

func (r *VideosRepository) Get(ctx context.Context, id string) (domain.Video, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = ?`, id)
	v, err := scanVideo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Video{}, ports.ErrNotFound
		}
		return domain.Video{}, err
	}
	return v, nil
}

func (r *VideosRepository) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM videos WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *VideosRepository) ListByChannel(ctx context.Context, channelID string, hidden bool) ([]domain.Video, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+videoColumns+`
		FROM videos
		WHERE channel_id = ? AND hidden = ?
		ORDER BY published_at DESC, id ASC
	`, channelID, boolToInt(hidden))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectVideos(rows)
}

func (r *VideosRepository) ListHidden(ctx context.Context) ([]domain.Video, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+videoColumns+`
		FROM videos
		WHERE hidden = 1
		ORDER BY published_at DESC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectVideos(rows)
}

func (r *VideosRepository) UpdateProgress(ctx context.Context, id string, progress float64) (domain.Video, error) {
	return r.updateOne(ctx, id, `UPDATE videos SET watch_progress = ? WHERE id = ?`, progress)
}

func (r *VideosRepository) UpdateHidden(ctx context.Context, id string, hidden bool) (domain.Video, error) {
	return r.updateOne(ctx, id, `UPDATE videos SET hidden = ? WHERE id = ?`, boolToInt(hidden))
}

func (r *VideosRepository) UpdateDuration(ctx context.Context, id string, seconds float64) (domain.Video, error) {
	return r.updateOne(ctx, id, `UPDATE videos SET duration_seconds = ? WHERE id = ?`, seconds)
}

func (r *VideosRepository) UpdateLastWatched(ctx context.Context, id string, unixSeconds int64) (domain.Video, error) {
	return r.updateOne(ctx, id, `UPDATE videos SET last_watched_at = ? WHERE id = ?`, unixSeconds)
}

func (r *VideosRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM videos WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r *VideosRepository) DeleteByChannel(ctx context.Context, channelID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM videos WHERE channel_id = ?`, channelID)
	return err
}

func (r *VideosRepository) updateOne(ctx context.Context, id, query string, value any) (domain.Video, error) {
	res, err := r.db.ExecContext(ctx, query, value, id)
	if err != nil {
		return domain.Video{}, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.Video{}, ports.ErrNotFound
	}
	return r.Get(ctx, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideo(row rowScanner) (domain.Video, error) {
	var v domain.Video
	var publishedAt string
	var durationSeconds float64
	var hidden int
	var lastWatched int64
	err := row.Scan(
		&v.ID, &v.ChannelID, &v.Title, &publishedAt,
		&v.ThumbnailURL, &v.Description, &durationSeconds,
		&v.WatchProgress, &hidden, &lastWatched,
	)
	if err != nil {
		return domain.Video{}, err
	}
	if t, err := time.Parse(time.RFC3339, publishedAt); err == nil {
		v.PublishedAt = t
	}
	v.Duration = time.Duration(durationSeconds * float64(time.Second))
	v.Hidden = hidden != 0
	if lastWatched > 0 {
		v.LastWatchedAt = time.Unix(lastWatched, 0).UTC()
	}
	return v, nil
}

func collectVideos(rows *sql.Rows) ([]domain.Video, error) {
	out := make([]domain.Video, 0)
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func lastWatchedUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
