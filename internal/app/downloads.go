package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/opentube/opentube/internal/domain"
	"github.com/opentube/opentube/internal/ports"
)

// DownloadManager runs video transfers. At most one transfer exists
// per video id; a second start request for the same video joins the
// running one. The store records a download only once the file is
// fully on disk, so a crash mid-transfer leaves no phantom records.
type DownloadManager struct {
	quality   *QualityService
	catalog   *CatalogService
	downloads ports.DownloadRepository
	settings  *SettingsService
	limiter   *DynamicLimiter
	bus       ports.EventBus
	client    *http.Client
	log       zerolog.Logger

	mu       sync.Mutex
	inFlight map[string]*transfer
	wg       sync.WaitGroup
}

type transfer struct {
	taskID string
	cancel context.CancelFunc
}

func NewDownloadManager(
	quality *QualityService,
	catalog *CatalogService,
	downloads ports.DownloadRepository,
	settings *SettingsService,
	limiter *DynamicLimiter,
	bus ports.EventBus,
	client *http.Client,
	log zerolog.Logger,
) *DownloadManager {
	if client == nil {
		client = &http.Client{}
	}
	return &DownloadManager{
		quality:   quality,
		catalog:   catalog,
		downloads: downloads,
		settings:  settings,
		limiter:   limiter,
		bus:       bus,
		client:    client,
		log:       log.With().Str("component", "downloads").Logger(),
		inFlight:  make(map[string]*transfer),
	}
}

// HandleDownloadAction is the single toggle entry point: a running
// transfer is cancelled, a completed download is deleted, and anything
// else starts a new transfer at the given ceiling.
func (m *DownloadManager) HandleDownloadAction(ctx context.Context, videoID string, ceiling domain.Quality) error {
	if m.CancelDownload(videoID) {
		return nil
	}

	_, err := m.downloads.Get(ctx, videoID)
	switch {
	case err == nil:
		return m.DeleteDownload(ctx, videoID)
	case errors.Is(err, ports.ErrNotFound):
		_, err := m.Start(ctx, videoID, ceiling)
		return err
	default:
		return err
	}
}

// Start begins a transfer and returns its task id. An invalid or empty
// ceiling falls back to the configured default quality. Quality
// resolution happens synchronously so the caller learns about an
// unavailable video right away; the byte transfer itself runs in the
// background.
func (m *DownloadManager) Start(ctx context.Context, videoID string, ceiling domain.Quality) (string, error) {
	settings, err := m.settings.Get(ctx)
	if err != nil {
		return "", err
	}
	if !ceiling.Valid() {
		ceiling = settings.DefaultQuality
	}

	info, err := m.quality.Resolve(ctx, videoID, false)
	if err != nil {
		return "", err
	}
	url, ok := domain.URLAtMost(info.URLs, ceiling)
	if !ok {
		return "", ErrNotAvailable
	}

	m.mu.Lock()
	if t, ok := m.inFlight[videoID]; ok {
		m.mu.Unlock()
		return t.taskID, nil
	}
	taskID := xid.New().String()
	runCtx, cancel := context.WithCancel(context.Background())
	m.inFlight[videoID] = &transfer{taskID: taskID, cancel: cancel}
	m.mu.Unlock()

	m.log.Info().Str("video_id", videoID).Str("task_id", taskID).Msg("download started")

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		err := m.run(runCtx, taskID, videoID, url, settings.MediaDir)

		m.mu.Lock()
		delete(m.inFlight, videoID)
		m.mu.Unlock()

		if err != nil {
			m.fail(taskID, videoID, err)
			return
		}
		m.catalog.SetDownloadProgress(videoID, 1)
		publishJSON(m.bus, m.log, TopicDownloadCompleted, DownloadEventDTO{VideoID: videoID, TaskID: taskID, Progress: 1})
		m.log.Info().Str("video_id", videoID).Str("task_id", taskID).Msg("download completed")
	}()

	return taskID, nil
}

// CancelDownload stops a running transfer. Returns false when no
// transfer for the video is in flight.
func (m *DownloadManager) CancelDownload(videoID string) bool {
	m.mu.Lock()
	t, ok := m.inFlight[videoID]
	m.mu.Unlock()
	if !ok {
		return false
	}
	m.log.Info().Str("video_id", videoID).Str("task_id", t.taskID).Msg("download cancelled")
	t.cancel()
	return true
}

// DeleteDownload removes the stored file and its record. Deleting a
// video that was never downloaded is a no-op.
func (m *DownloadManager) DeleteDownload(ctx context.Context, videoID string) error {
	record, err := m.downloads.Get(ctx, videoID)
	if errors.Is(err, ports.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	settings, err := m.settings.Get(ctx)
	if err != nil {
		return err
	}
	path := filepath.Join(settings.MediaDir, record.LocalFileName)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		m.log.Warn().Err(err).Str("path", path).Msg("remove downloaded file")
	}

	if err := m.downloads.Delete(ctx, videoID); err != nil && !errors.Is(err, ports.ErrNotFound) {
		return err
	}
	m.catalog.SetDownloadProgress(videoID, 0)
	m.log.Info().Str("video_id", videoID).Msg("download deleted")
	return nil
}

// LocalPath returns the on-disk path of a completed download, checking
// that the file is actually still there.
func (m *DownloadManager) LocalPath(ctx context.Context, videoID string) (string, bool) {
	record, err := m.downloads.Get(ctx, videoID)
	if err != nil {
		return "", false
	}
	settings, err := m.settings.Get(ctx)
	if err != nil {
		return "", false
	}
	path := filepath.Join(settings.MediaDir, record.LocalFileName)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// State reports where a video sits in the download lifecycle.
func (m *DownloadManager) State(ctx context.Context, videoID string) domain.DownloadState {
	m.mu.Lock()
	_, running := m.inFlight[videoID]
	m.mu.Unlock()
	if running {
		return domain.DownloadInFlight
	}
	if _, err := m.downloads.Get(ctx, videoID); err == nil {
		return domain.DownloadComplete
	}
	return domain.DownloadAbsent
}

// CancelAll stops every in-flight transfer. Used on shutdown, followed
// by Wait.
func (m *DownloadManager) CancelAll() {
	m.mu.Lock()
	transfers := make([]*transfer, 0, len(m.inFlight))
	for _, t := range m.inFlight {
		transfers = append(transfers, t)
	}
	m.mu.Unlock()
	for _, t := range transfers {
		t.cancel()
	}
}

// Wait blocks until every in-flight transfer goroutine has returned.
func (m *DownloadManager) Wait() {
	m.wg.Wait()
}

func (m *DownloadManager) run(ctx context.Context, taskID, videoID, url, mediaDir string) error {
	if err := m.limiter.Acquire(ctx); err != nil {
		return &CodedError{Code: "cancelled", Message: "queued transfer cancelled", Err: err}
	}
	defer m.limiter.Release()

	if err := os.MkdirAll(mediaDir, 0o755); err != nil {
		return &CodedError{Code: "io_error", Message: "create media directory", Err: err}
	}

	fileName := videoID + ".mp4"
	path := filepath.Join(mediaDir, fileName)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &CodedError{Code: "network_error", Message: "build request", Err: err}
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return &CodedError{Code: "network_error", Message: "fetch media", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &CodedError{Code: "http_status", Message: fmt.Sprintf("fetch media: status %d", resp.StatusCode)}
	}

	out, err := os.Create(path)
	if err != nil {
		return &CodedError{Code: "io_error", Message: "create file", Err: err}
	}

	copyErr := m.copyWithProgress(ctx, out, resp.Body, resp.ContentLength, taskID, videoID)
	closeErr := out.Close()
	if copyErr == nil && closeErr != nil {
		copyErr = &CodedError{Code: "io_error", Message: "flush file", Err: closeErr}
	}
	if copyErr != nil {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			m.log.Warn().Err(err).Str("path", path).Msg("remove partial file")
		}
		return copyErr
	}

	record := domain.Download{VideoID: videoID, RemoteURL: url, LocalFileName: fileName}
	if _, err := m.downloads.Create(ctx, record); err != nil && !errors.Is(err, ports.ErrConflict) {
		// An unrecorded file would be invisible to deletion, so it
		// goes too.
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			m.log.Warn().Err(rmErr).Str("path", path).Msg("remove unrecorded file")
		}
		return &CodedError{Code: "io_error", Message: "record download", Err: err}
	}
	return nil
}

// copyWithProgress streams body to out, reporting progress on every
// whole-percent change when the total size is known.
func (m *DownloadManager) copyWithProgress(ctx context.Context, out io.Writer, body io.Reader, total int64, taskID, videoID string) error {
	buf := make([]byte, 128<<10)
	var written int64
	lastPct := -1

	for {
		if err := ctx.Err(); err != nil {
			return &CodedError{Code: "cancelled", Message: "transfer cancelled", Err: err}
		}
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				return &CodedError{Code: "io_error", Message: "write file", Err: err}
			}
			written += int64(n)
			if total > 0 {
				fraction := float64(written) / float64(total)
				if pct := int(fraction * 100); pct != lastPct {
					lastPct = pct
					m.report(taskID, videoID, fraction)
				}
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return &CodedError{Code: "network_error", Message: "read media", Err: readErr}
		}
	}
}

func (m *DownloadManager) report(taskID, videoID string, fraction float64) {
	m.catalog.SetDownloadProgress(videoID, fraction)
	publishJSON(m.bus, m.log, TopicDownloadProgress, DownloadEventDTO{VideoID: videoID, TaskID: taskID, Progress: fraction})
}

func (m *DownloadManager) fail(taskID, videoID string, err error) {
	m.catalog.SetDownloadProgress(videoID, 0)

	evt := DownloadEventDTO{VideoID: videoID, TaskID: taskID, Message: err.Error()}
	var coded *CodedError
	if errors.As(err, &coded) {
		evt.Code = coded.Code
	}
	publishJSON(m.bus, m.log, TopicDownloadFailed, evt)
	m.log.Error().Err(err).Str("video_id", videoID).Str("task_id", taskID).Msg("download failed")
}
