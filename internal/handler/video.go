package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"videotube/internal/assets"
	"videotube/internal/httputil"
	"videotube/internal/model"
	"videotube/internal/service"
	"videotube/internal/transport/http/middleware"
)

type VideoHandler struct {
	videos *service.VideoService
}

func NewVideoHandler(videos *service.VideoService) *VideoHandler {
	return &VideoHandler{videos: videos}
}

// Publish handles multipart POST /videos with "video" and "thumbnail" files.
func (h *VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ownerID, err := middleware.RequireAccountID(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	if err := parseMultipart(w, r, assets.MaxVideoBytes+assets.MaxImageBytes+1<<20); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	duration := 0.0
	if raw := r.FormValue("duration"); raw != "" {
		if duration, err = strconv.ParseFloat(raw, 64); err != nil {
			httputil.WriteServiceError(w, r, model.Validationf("duration must be a number"))
			return
		}
	}

	videoPath, err := spoolUpload(r, "video")
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	thumbPath, err := spoolUpload(r, "thumbnail")
	if err != nil {
		removeAll(videoPath)
		httputil.WriteServiceError(w, r, err)
		return
	}
	defer removeAll(videoPath, thumbPath)

	video, err := h.videos.Publish(r.Context(), ownerID, model.PublishVideoInput{
		Title:         r.FormValue("title"),
		Description:   r.FormValue("description"),
		Duration:      duration,
		VideoPath:     videoPath,
		ThumbnailPath: thumbPath,
	})
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, video)
}

// Get handles GET /videos/{videoId}
func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	video, err := h.videos.Get(r.Context(), chi.URLParam(r, "videoId"), middleware.ViewerFromContext(r.Context()))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, video)
}

// View handles POST /videos/{videoId}/views. Signed-in viewers also get a history entry.
func (h *VideoHandler) View(w http.ResponseWriter, r *http.Request) {
	if err := h.videos.RecordView(r.Context(), chi.URLParam(r, "videoId"), middleware.ViewerFromContext(r.Context())); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
