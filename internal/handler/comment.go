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

type CommentHandler struct {
	comments    *service.CommentService
	aggregation *service.AggregationService
	maxPageSize int
}

func NewCommentHandler(comments *service.CommentService, aggregation *service.AggregationService, cfg *config.Config) *CommentHandler {
	return &CommentHandler{comments: comments, aggregation: aggregation, maxPageSize: cfg.MaxPageSize}
}

// List handles GET /videos/{videoId}/comments?page=&limit=&sort=asc|desc
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.aggregation.ListComments(r.Context(), chi.URLParam(r, "videoId"),
		middleware.ViewerFromContext(r.Context()),
		pageFromQuery(r, h.maxPageSize),
		model.ParseSortOrder(r.URL.Query().Get("sort")))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

// Replies handles GET /comments/{commentId}/replies
func (h *CommentHandler) Replies(w http.ResponseWriter, r *http.Request) {
	page, err := h.aggregation.ListReplies(r.Context(), chi.URLParam(r, "commentId"),
		middleware.ViewerFromContext(r.Context()), pageFromQuery(r, h.maxPageSize))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

// Create handles POST /videos/{videoId}/comments
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, err := middleware.RequireAccountID(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	var req model.CreateCommentRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	comment, err := h.comments.Add(r.Context(), chi.URLParam(r, "videoId"), ownerID, req)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, comment)
}

// Update handles PATCH /comments/{commentId}
func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	ownerID, err := middleware.RequireAccountID(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	var req model.UpdateCommentRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	comment, err := h.comments.Update(r.Context(), chi.URLParam(r, "commentId"), ownerID, req)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, comment)
}

// Delete handles DELETE /comments/{commentId}
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, err := middleware.RequireAccountID(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	if err := h.comments.Delete(r.Context(), chi.URLParam(r, "commentId"), ownerID); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
