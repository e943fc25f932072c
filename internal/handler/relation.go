package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"videotube/internal/config"
	"videotube/internal/httputil"
	"videotube/internal/model"
	"videotube/internal/service"
	"videotube/internal/transport/http/middleware"
)

// RelationHandler serves likes and subscriptions.
type RelationHandler struct {
	toggles     *service.ToggleService
	aggregation *service.AggregationService
	maxPageSize int
}

func NewRelationHandler(toggles *service.ToggleService, aggregation *service.AggregationService, cfg *config.Config) *RelationHandler {
	return &RelationHandler{toggles: toggles, aggregation: aggregation, maxPageSize: cfg.MaxPageSize}
}

// ToggleLike handles POST /likes/{kind}/{id} where kind is video, comment or tweet.
func (h *RelationHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.RequireAccountID(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	kind := model.TargetKind(chi.URLParam(r, "kind"))
	if kind == model.TargetChannel {
		httputil.WriteServiceError(w, r, model.ErrUnknownTargetKind)
		return
	}

	result, err := h.toggles.Toggle(r.Context(), actorID, kind, chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// ToggleSubscription handles POST /subscriptions/c/{channelId}
func (h *RelationHandler) ToggleSubscription(w http.ResponseWriter, r *http.Request) {
	subscriberID, err := middleware.RequireAccountID(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	result, err := h.toggles.ToggleSubscription(r.Context(), subscriberID, chi.URLParam(r, "channelId"))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// ListSubscribers handles GET /subscriptions/c/{channelId}
func (h *RelationHandler) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	page, err := h.aggregation.ListSubscribers(r.Context(), chi.URLParam(r, "channelId"),
		middleware.ViewerFromContext(r.Context()), pageFromQuery(r, h.maxPageSize))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

// ListSubscriptions handles GET /subscriptions/u/{accountId}
func (h *RelationHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	page, err := h.aggregation.ListSubscriptions(r.Context(), chi.URLParam(r, "accountId"),
		middleware.ViewerFromContext(r.Context()), pageFromQuery(r, h.maxPageSize))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

// LikedVideos handles GET /likes/videos for the caller.
func (h *RelationHandler) LikedVideos(w http.ResponseWriter, r *http.Request) {
	viewerID, err := middleware.RequireAccountID(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	videos, err := h.aggregation.ListLikedVideos(r.Context(), viewerID)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, videos)
}
