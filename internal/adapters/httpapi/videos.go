package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/opentube/opentube/internal/app"
	"github.com/opentube/opentube/internal/domain"
	"github.com/opentube/opentube/internal/httpjson"
)

type VideosHandler struct {
	catalog  *app.CatalogService
	upnext   *app.UpNextEngine
	playback *app.PlaybackService
}

func NewVideosHandler(catalog *app.CatalogService, upnext *app.UpNextEngine, playback *app.PlaybackService) *VideosHandler {
	return &VideosHandler{catalog: catalog, upnext: upnext, playback: playback}
}

func (h *VideosHandler) Routes(r chi.Router) {
	r.Route("/videos", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/refresh", h.refresh)
		r.Get("/upnext", h.listUpNext)
		r.Get("/hidden", h.listHidden)
		r.Get("/downloaded", h.listDownloaded)
		r.Post("/{id}/hide", h.hide)
		r.Post("/{id}/unhide", h.unhide)
		r.Put("/{id}/progress", h.setProgress)
		r.Put("/{id}/last-watched", h.setLastWatched)
		r.Get("/{id}/play", h.play)
		r.Get("/{id}/ad-hoc", h.adHoc)
	})
}

func (h *VideosHandler) list(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, app.ToVideoDTOs(h.catalog.Snapshot()))
}

// refresh is the explicit, user-driven path: unlike the scheduled one,
// a total failure is surfaced to the caller.
func (h *VideosHandler) refresh(w http.ResponseWriter, r *http.Request) {
	fresh, err := h.catalog.FetchAndSaveNew(r.Context())
	if err != nil {
		httpjson.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}
	httpjson.Write(w, http.StatusOK, app.ToVideoDTOs(fresh))
}

func (h *VideosHandler) listUpNext(w http.ResponseWriter, r *http.Request) {
	if h.upnext == nil {
		httpjson.Write(w, http.StatusOK, []app.VideoDTO{})
		return
	}
	httpjson.Write(w, http.StatusOK, app.ToVideoDTOs(h.upnext.UpNext()))
}

func (h *VideosHandler) listHidden(w http.ResponseWriter, r *http.Request) {
	hidden, err := h.catalog.HiddenVideos(r.Context())
	if err != nil {
		httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpjson.Write(w, http.StatusOK, app.ToVideoDTOs(hidden))
}

func (h *VideosHandler) listDownloaded(w http.ResponseWriter, r *http.Request) {
	downloaded, err := h.catalog.DownloadedVideos(r.Context())
	if err != nil {
		httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpjson.Write(w, http.StatusOK, app.ToVideoDTOs(downloaded))
}

func (h *VideosHandler) hide(w http.ResponseWriter, r *http.Request) {
	h.toggleHidden(w, r, true)
}

func (h *VideosHandler) unhide(w http.ResponseWriter, r *http.Request) {
	h.toggleHidden(w, r, false)
}

func (h *VideosHandler) toggleHidden(w http.ResponseWriter, r *http.Request, hidden bool) {
	id := chi.URLParam(r, "id")
	var err error
	if hidden {
		err = h.catalog.Hide(r.Context(), id)
	} else {
		err = h.catalog.Unhide(r.Context(), id)
	}
	if err != nil {
		if errors.Is(err, app.ErrVideoNotFound) {
			httpjson.WriteError(w, http.StatusNotFound, "not found")
			return
		}
		httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setProgressRequest struct {
	Progress float64 `json:"progress"`
}

func (h *VideosHandler) setProgress(w http.ResponseWriter, r *http.Request) {
	var req setProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	v, err := h.catalog.SetWatchProgress(r.Context(), chi.URLParam(r, "id"), req.Progress)
	if err != nil {
		if errors.Is(err, app.ErrVideoNotFound) {
			httpjson.WriteError(w, http.StatusNotFound, "not found")
			return
		}
		httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpjson.Write(w, http.StatusOK, app.ToVideoDTO(v))
}

func (h *VideosHandler) setLastWatched(w http.ResponseWriter, r *http.Request) {
	h.catalog.SetLastWatched(r.Context(), chi.URLParam(r, "id"), time.Now().UTC())
	w.WriteHeader(http.StatusNoContent)
}

type playResponse struct {
	URL string `json:"url"`
}

func (h *VideosHandler) play(w http.ResponseWriter, r *http.Request) {
	ceiling := domain.Quality(r.URL.Query().Get("quality"))
	if q := r.URL.Query().Get("quality"); q != "" && !ceiling.Valid() {
		httpjson.WriteError(w, http.StatusBadRequest, "quality must be high, medium or low")
		return
	}
	url, err := h.playback.PlayableURL(r.Context(), chi.URLParam(r, "id"), ceiling)
	if err != nil {
		if errors.Is(err, app.ErrNotAvailable) {
			httpjson.WriteError(w, http.StatusNotFound, "no playable url at or below requested quality")
			return
		}
		httpjson.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}
	httpjson.Write(w, http.StatusOK, playResponse{URL: url})
}

// adHoc resolves a video that is not part of any subscription, for
// play-by-id. Nothing is persisted.
func (h *VideosHandler) adHoc(w http.ResponseWriter, r *http.Request) {
	v, err := h.playback.AdHocVideo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, app.ErrNotAvailable) {
			httpjson.WriteError(w, http.StatusNotFound, "not found")
			return
		}
		httpjson.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}
	httpjson.Write(w, http.StatusOK, app.ToVideoDTO(v))
}
