package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"videotube/internal/httputil"
	"videotube/internal/model"
	"videotube/internal/service"
	"videotube/internal/transport/http/middleware"
)

type PlaylistHandler struct {
	playlists *service.PlaylistService
}

func NewPlaylistHandler(playlists *service.PlaylistService) *PlaylistHandler {
	return &PlaylistHandler{playlists: playlists}
}

// Create handles POST /playlists
func (h *PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, err := middleware.RequireAccountID(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	var req model.CreatePlaylistRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	playlist, err := h.playlists.Create(r.Context(), ownerID, req)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, playlist)
}

// Get handles GET /playlists/{playlistId}
func (h *PlaylistHandler) Get(w http.ResponseWriter, r *http.Request) {
	playlist, err := h.playlists.Get(r.Context(), chi.URLParam(r, "playlistId"))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, playlist)
}

// ListByOwner handles GET /playlists/user/{accountId}
func (h *PlaylistHandler) ListByOwner(w http.ResponseWriter, r *http.Request) {
	ownerID, err := model.ParseID(chi.URLParam(r, "accountId"))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	lists, err := h.playlists.ListByOwner(r.Context(), ownerID)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, lists)
}

// AddVideo handles PUT /playlists/{playlistId}/videos/{videoId}
func (h *PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) {
	ownerID, err := middleware.RequireAccountID(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	playlist, err := h.playlists.AddVideo(r.Context(), chi.URLParam(r, "playlistId"), chi.URLParam(r, "videoId"), ownerID)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, playlist)
}

// RemoveVideo handles DELETE /playlists/{playlistId}/videos/{videoId}
func (h *PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) {
	ownerID, err := middleware.RequireAccountID(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	playlist, err := h.playlists.RemoveVideo(r.Context(), chi.URLParam(r, "playlistId"), chi.URLParam(r, "videoId"), ownerID)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, playlist)
}
