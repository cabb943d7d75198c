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

type DownloadsRepository struct {
	db *sql.DB
}

func NewDownloadsRepository(db *sql.DB) *DownloadsRepository {
	return &DownloadsRepository{db: db}
}

func (r *DownloadsRepository) Create(ctx context.Context, d domain.Download) (domain.Download, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO downloads(video_id, remote_url, local_file_name, created_at)
		VALUES(?, ?, ?, ?)
	`, d.VideoID, d.RemoteURL, d.LocalFileName, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "unique constraint failed") && strings.Contains(msg, "downloads.video_id") {
			return domain.Download{}, ports.ErrConflict
		}
		return domain.Download{}, err
	}
	return r.Get(ctx, d.VideoID)
}

func (r *DownloadsRepository) Get(ctx context.Context, videoID string) (domain.Download, error) {
	var d domain.Download
	err := r.db.QueryRowContext(ctx, `
		SELECT video_id, remote_url, local_file_name FROM downloads WHERE video_id = ?
	`, videoID).Scan(&d.VideoID, &d.RemoteURL, &d.LocalFileName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Download{}, ports.ErrNotFound
		}
		return domain.Download{}, err
	}
	return d, nil
}

func (r *DownloadsRepository) List(ctx context.Context) ([]domain.Download, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT video_id, remote_url, local_file_name FROM downloads ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Download, 0)
	for rows.Next() {
		var d domain.Download
		if err := rows.Scan(&d.VideoID, &d.RemoteURL, &d.LocalFileName); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *DownloadsRepository) Delete(ctx context.Context, videoID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM downloads WHERE video_id = ?`, videoID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ports.ErrNotFound
	}
	return nil
}
