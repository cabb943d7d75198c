package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opentube/opentube/internal/app"
	"github.com/opentube/opentube/internal/domain"
	"github.com/opentube/opentube/internal/httpjson"
)

type SubscriptionsHandler struct {
	subs *app.SubscriptionService
}

func NewSubscriptionsHandler(subs *app.SubscriptionService) *SubscriptionsHandler {
	return &SubscriptionsHandler{subs: subs}
}

func (h *SubscriptionsHandler) Routes(r chi.Router) {
	r.Route("/subscriptions", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Delete("/{id}", h.delete)
		r.Put("/{id}/notifications", h.setNotifications)
	})
}

type createSubscriptionRequest struct {
	ChannelID   string `json:"channelId,omitempty"`
	ChannelName string `json:"channelName,omitempty"`
}

func (h *SubscriptionsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}

	var (
		ch  domain.Channel
		err error
	)
	switch {
	case req.ChannelID != "":
		ch, err = h.subs.AddByID(r.Context(), req.ChannelID)
	case req.ChannelName != "":
		ch, err = h.subs.AddByName(r.Context(), req.ChannelName)
	default:
		httpjson.WriteError(w, http.StatusBadRequest, "channelId or channelName required")
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, app.ErrAlreadySubscribed):
			httpjson.WriteError(w, http.StatusConflict, "already subscribed")
		case errors.Is(err, app.ErrChannelNotFound):
			httpjson.WriteError(w, http.StatusNotFound, "channel not found")
		default:
			httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	httpjson.Write(w, http.StatusCreated, app.ToChannelDTO(ch))
}

func (h *SubscriptionsHandler) list(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, app.ToChannelDTOs(h.subs.Snapshot()))
}

// delete always answers 204: removal is best effort and idempotent.
func (h *SubscriptionsHandler) delete(w http.ResponseWriter, r *http.Request) {
	h.subs.Remove(r.Context(), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

type setNotificationsRequest struct {
	Enabled bool `json:"enabled"`
}

func (h *SubscriptionsHandler) setNotifications(w http.ResponseWriter, r *http.Request) {
	var req setNotificationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	ch, err := h.subs.SetNotifications(r.Context(), chi.URLParam(r, "id"), req.Enabled)
	if err != nil {
		if errors.Is(err, app.ErrNotFound) {
			httpjson.WriteError(w, http.StatusNotFound, "not found")
			return
		}
		httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpjson.Write(w, http.StatusOK, app.ToChannelDTO(ch))
}
