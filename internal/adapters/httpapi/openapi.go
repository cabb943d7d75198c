package httpapi

import (
	"net/http"

	"github.com/opentube/opentube/internal/httpjson"
)

// handleOpenAPI serves a minimal spec describing the API surface. It is
// intentionally coarse; response schemas stay open-ended.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	jsonOK := map[string]any{
		"description": "OK",
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": map[string]any{"type": "object", "additionalProperties": true},
			},
		},
	}
	noContent := map[string]any{"description": "No Content"}

	spec := map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "OpenTube API",
			"version": "v1",
		},
		"paths": map[string]any{
			"/api/v1/health":  map[string]any{"get": map[string]any{"responses": map[string]any{"200": jsonOK}}},
			"/api/v1/version": map[string]any{"get": map[string]any{"responses": map[string]any{"200": jsonOK}}},
			"/api/v1/events": map[string]any{
				"get": map[string]any{
					"description": "Server-sent events: one event per bus topic, JSON snapshot payloads.",
					"responses":   map[string]any{"200": map[string]any{"description": "SSE stream"}},
				},
			},
			"/api/v1/subscriptions": map[string]any{
				"get":  map[string]any{"responses": map[string]any{"200": jsonOK}},
				"post": map[string]any{"responses": map[string]any{"201": jsonOK}},
			},
			"/api/v1/subscriptions/{id}": map[string]any{
				"delete": map[string]any{"responses": map[string]any{"204": noContent}},
			},
			"/api/v1/subscriptions/{id}/notifications": map[string]any{
				"put": map[string]any{"responses": map[string]any{"200": jsonOK}},
			},
			"/api/v1/videos":            map[string]any{"get": map[string]any{"responses": map[string]any{"200": jsonOK}}},
			"/api/v1/videos/refresh":    map[string]any{"post": map[string]any{"responses": map[string]any{"200": jsonOK}}},
			"/api/v1/videos/upnext":     map[string]any{"get": map[string]any{"responses": map[string]any{"200": jsonOK}}},
			"/api/v1/videos/hidden":     map[string]any{"get": map[string]any{"responses": map[string]any{"200": jsonOK}}},
			"/api/v1/videos/downloaded": map[string]any{"get": map[string]any{"responses": map[string]any{"200": jsonOK}}},
			"/api/v1/videos/{id}/hide": map[string]any{
				"post": map[string]any{"responses": map[string]any{"204": noContent}},
			},
			"/api/v1/videos/{id}/unhide": map[string]any{
				"post": map[string]any{"responses": map[string]any{"204": noContent}},
			},
			"/api/v1/videos/{id}/progress": map[string]any{
				"put": map[string]any{"responses": map[string]any{"200": jsonOK}},
			},
			"/api/v1/videos/{id}/last-watched": map[string]any{
				"put": map[string]any{"responses": map[string]any{"204": noContent}},
			},
			"/api/v1/videos/{id}/play": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": jsonOK}},
			},
			"/api/v1/videos/{id}/ad-hoc": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": jsonOK}},
			},
			"/api/v1/downloads/{videoId}": map[string]any{
				"post":   map[string]any{"responses": map[string]any{"202": jsonOK}},
				"delete": map[string]any{"responses": map[string]any{"204": noContent}},
			},
			"/api/v1/downloads/{videoId}/toggle": map[string]any{
				"post": map[string]any{"responses": map[string]any{"202": jsonOK}},
			},
			"/api/v1/downloads/{videoId}/cancel": map[string]any{
				"post": map[string]any{"responses": map[string]any{"204": noContent}},
			},
			"/api/v1/downloads/{videoId}/state": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": jsonOK}},
			},
			"/api/v1/settings": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": jsonOK}},
				"put": map[string]any{"responses": map[string]any{"200": jsonOK}},
			},
		},
	}

	httpjson.Write(w, http.StatusOK, spec)
}
