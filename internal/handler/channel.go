package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"videotube/internal/httputil"
	"videotube/internal/service"
	"videotube/internal/transport/http/middleware"
)

type ChannelHandler struct {
	aggregation *service.AggregationService
}

func NewChannelHandler(aggregation *service.AggregationService) *ChannelHandler {
	return &ChannelHandler{aggregation: aggregation}
}

// Profile handles GET /channels/{username}
func (h *ChannelHandler) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.aggregation.GetChannelProfile(r.Context(), chi.URLParam(r, "username"),
		middleware.ViewerFromContext(r.Context()))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

// Stats handles GET /dashboard/stats/{accountId}
func (h *ChannelHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.aggregation.GetChannelStats(r.Context(), chi.URLParam(r, "accountId"))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// History handles GET /me/history
func (h *ChannelHandler) History(w http.ResponseWriter, r *http.Request) {
	accountID, err := middleware.RequireAccountID(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	videos, err := h.aggregation.WatchHistory(r.Context(), accountID)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, videos)
}
