package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opentube/opentube/internal/app"
	"github.com/opentube/opentube/internal/domain"
	"github.com/opentube/opentube/internal/httpjson"
)

type DownloadsHandler struct {
	manager *app.DownloadManager
}

func NewDownloadsHandler(manager *app.DownloadManager) *DownloadsHandler {
	return &DownloadsHandler{manager: manager}
}

func (h *DownloadsHandler) Routes(r chi.Router) {
	r.Route("/downloads", func(r chi.Router) {
		r.Post("/{videoId}/toggle", h.toggle)
		r.Post("/{videoId}", h.start)
		r.Post("/{videoId}/cancel", h.cancel)
		r.Delete("/{videoId}", h.delete)
		r.Get("/{videoId}/state", h.state)
	})
}

// toggle mirrors the single download button: start, cancel or delete
// depending on where the video currently sits.
func (h *DownloadsHandler) toggle(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoId")
	ceiling, ok := qualityCeiling(w, r)
	if !ok {
		return
	}
	if err := h.manager.HandleDownloadAction(r.Context(), videoID, ceiling); err != nil {
		h.writeActionError(w, err)
		return
	}
	httpjson.Write(w, http.StatusAccepted, map[string]string{
		"videoId": videoID,
		"state":   string(h.manager.State(r.Context(), videoID)),
	})
}

type startDownloadResponse struct {
	VideoID string `json:"videoId"`
	TaskID  string `json:"taskId"`
}

func (h *DownloadsHandler) start(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoId")
	ceiling, ok := qualityCeiling(w, r)
	if !ok {
		return
	}
	taskID, err := h.manager.Start(r.Context(), videoID, ceiling)
	if err != nil {
		h.writeActionError(w, err)
		return
	}
	httpjson.Write(w, http.StatusAccepted, startDownloadResponse{VideoID: videoID, TaskID: taskID})
}

// qualityCeiling reads the optional quality parameter. An empty value
// means "use the configured default"; anything else must be a known
// tier or the request fails with 400.
func qualityCeiling(w http.ResponseWriter, r *http.Request) (domain.Quality, bool) {
	q := r.URL.Query().Get("quality")
	ceiling := domain.Quality(q)
	if q != "" && !ceiling.Valid() {
		httpjson.WriteError(w, http.StatusBadRequest, "quality must be high, medium or low")
		return "", false
	}
	return ceiling, true
}

func (h *DownloadsHandler) cancel(w http.ResponseWriter, r *http.Request) {
	if !h.manager.CancelDownload(chi.URLParam(r, "videoId")) {
		httpjson.WriteError(w, http.StatusNotFound, "no transfer in flight")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DownloadsHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.DeleteDownload(r.Context(), chi.URLParam(r, "videoId")); err != nil {
		httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DownloadsHandler) state(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoId")
	httpjson.Write(w, http.StatusOK, map[string]string{
		"videoId": videoID,
		"state":   string(h.manager.State(r.Context(), videoID)),
	})
}

func (h *DownloadsHandler) writeActionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrNotAvailable):
		httpjson.WriteError(w, http.StatusNotFound, "no playable url at or below requested quality")
	case errors.Is(err, app.ErrNotFound):
		httpjson.WriteError(w, http.StatusNotFound, "not found")
	default:
		httpjson.WriteError(w, http.StatusBadGateway, err.Error())
	}
}
