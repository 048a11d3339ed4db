package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/gotube/internal/domain/model"
	"github.com/hszk-dev/gotube/internal/usecase"
)

type IncrementViewsRequest struct {
	Current int64 `json:"current"`
}

// VideoHandler handles video-related HTTP requests.
type VideoHandler struct {
	svc            usecase.VideoService
	maxUploadBytes int64
}

// NewVideoHandler creates a new VideoHandler.
func NewVideoHandler(svc usecase.VideoService, maxUploadBytes int64) *VideoHandler {
	return &VideoHandler{svc: svc, maxUploadBytes: maxUploadBytes}
}

// Publish handles POST /v1/videos
func (h *VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	if !parseMultipart(w, r, h.maxUploadBytes) {
		return
	}

	var files closers
	defer files.Close()

	video, closer, err := formFile(r, "video")
	files = append(files, closer)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	thumbnail, closer, err := formFile(r, "thumbnail")
	files = append(files, closer)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if video == nil || thumbnail == nil {
		Error(w, http.StatusBadRequest, "validation_error", "Both video and thumbnail files are required")
		return
	}

	draft := usecase.VideoDraft{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Tags:        model.ParseTags(r.FormValue("tags")),
		Visibility:  model.Visibility(r.FormValue("visibility")),
		Video:       *video,
		Thumbnail:   *thumbnail,
	}

	created, err := h.svc.Publish(r.Context(), draft, progressLogger(r, "video"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusCreated, toVideoResponse(created))
}

// List handles GET /v1/videos
func (h *VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := usecase.ListOptions{
		Search:     q.Get("search"),
		Visibility: model.Visibility(q.Get("visibility")),
		OwnerID:    q.Get("owner"),
		Cursor:     q.Get("cursor"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			Error(w, http.StatusBadRequest, "validation_error", "limit must be a positive integer")
			return
		}
		opts.Limit = limit
	}

	page, err := h.svc.List(r.Context(), opts)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	items := make([]VideoResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, toVideoResponse(&page.Items[i]))
	}
	JSON(w, http.StatusOK, VideoPageResponse{
		Items:      items,
		Total:      page.Total,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	})
}

// Get handles GET /v1/videos/{id}
func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	video, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, toVideoResponse(video))
}

// Update handles PATCH /v1/videos/{id}
func (h *VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !parseMultipart(w, r, h.maxUploadBytes) {
		return
	}

	var files closers
	defer files.Close()

	patch := usecase.VideoPatch{
		Title:       formValue(r, "title"),
		Description: formValue(r, "description"),
	}
	if tags := formValue(r, "tags"); tags != nil {
		patch.Tags = model.ParseTags(*tags)
	}
	if visibility := formValue(r, "visibility"); visibility != nil {
		v := model.Visibility(*visibility)
		patch.Visibility = &v
	}

	var (
		closer io.Closer
		err    error
	)
	patch.Video, closer, err = formFile(r, "video")
	files = append(files, closer)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	patch.Thumbnail, closer, err = formFile(r, "thumbnail")
	files = append(files, closer)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	updated, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), patch, progressLogger(r, "video"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, toVideoResponse(updated))
}

// Delete handles DELETE /v1/videos/{id}
func (h *VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// IncrementViews handles POST /v1/videos/{id}/views
func (h *VideoHandler) IncrementViews(w http.ResponseWriter, r *http.Request) {
	var req IncrementViewsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	video, err := h.svc.IncrementViews(r.Context(), chi.URLParam(r, "id"), req.Current)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, toVideoResponse(video))
}
