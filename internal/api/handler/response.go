package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hszk-dev/gotube/internal/domain/model"
	"github.com/hszk-dev/gotube/internal/domain/repository"
)

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, "failed to encode response", http.StatusInternalServerError)
		}
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func Error(w http.ResponseWriter, status int, err string, message string) {
	JSON(w, status, ErrorResponse{
		Error:   err,
		Message: message,
	})
}

// handleServiceError maps domain sentinels onto HTTP statuses.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrValidation):
		Error(w, http.StatusBadRequest, "validation_error", strings.TrimPrefix(err.Error(), repository.ErrValidation.Error()+": "))
	case errors.Is(err, repository.ErrUnauthenticated):
		Error(w, http.StatusUnauthorized, "unauthenticated", "A valid session is required")
	case errors.Is(err, repository.ErrForbidden):
		Error(w, http.StatusForbidden, "forbidden", "You do not own this resource")
	case errors.Is(err, repository.ErrNotFound):
		Error(w, http.StatusNotFound, "not_found", "Resource not found")
	case errors.Is(err, repository.ErrConflict):
		Error(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, repository.ErrAssetStore), errors.Is(err, repository.ErrDocumentStore):
		slog.Error("upstream store failure",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		Error(w, http.StatusBadGateway, "upstream_error", "A storage backend failed")
	default:
		slog.Error("unexpected error",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

const timeFormat = time.RFC3339

type VideoResponse struct {
	ID           string   `json:"id"`
	OwnerID      string   `json:"owner_id"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	VideoURL     string   `json:"video_url"`
	ThumbnailURL string   `json:"thumbnail_url"`
	Tags         []string `json:"tags"`
	Visibility   string   `json:"visibility"`
	Views        int64    `json:"views"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
}

type VideoPageResponse struct {
	Items      []VideoResponse `json:"items"`
	Total      int             `json:"total"`
	NextCursor string          `json:"next_cursor,omitempty"`
	HasMore    bool            `json:"has_more"`
}

type RelationResponse struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	SubjectID string `json:"subject_id"`
	ObjectID  string `json:"object_id"`
	Text      string `json:"text,omitempty"`
	CreatedAt string `json:"created_at"`
}

type RelationListResponse struct {
	Items []RelationResponse `json:"items"`
	Count int                `json:"count"`
	// Mine is set when the caller is signed in and holds a relation in Items.
	Mine bool `json:"mine"`
}

type ToggleResponse struct {
	State string `json:"state"`
}

type ProfileResponse struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Email         string             `json:"email"`
	Bio           string             `json:"bio,omitempty"`
	AvatarURL     string             `json:"avatar_url"`
	Subscribers   []RelationResponse `json:"subscribers"`
	Subscriptions []RelationResponse `json:"subscriptions"`
	Bookmarks     []RelationResponse `json:"bookmarks"`
	VideoIDs      []string           `json:"video_ids"`
	CreatedAt     string             `json:"created_at"`
	UpdatedAt     string             `json:"updated_at"`
}

func toVideoResponse(v *model.Video) VideoResponse {
	tags := v.Tags
	if tags == nil {
		tags = []string{}
	}
	return VideoResponse{
		ID:           v.ID,
		OwnerID:      v.OwnerID,
		Title:        v.Title,
		Description:  v.Description,
		VideoURL:     v.VideoLocator,
		ThumbnailURL: v.ThumbnailLocator,
		Tags:         tags,
		Visibility:   v.Visibility.String(),
		Views:        v.Views,
		CreatedAt:    v.CreatedAt.Format(timeFormat),
		UpdatedAt:    v.UpdatedAt.Format(timeFormat),
	}
}

func toRelationResponses(relations []model.Relation) []RelationResponse {
	out := make([]RelationResponse, 0, len(relations))
	for _, rel := range relations {
		resp := RelationResponse{
			ID:        rel.ID,
			Kind:      rel.Kind.String(),
			SubjectID: rel.SubjectID,
			ObjectID:  rel.ObjectID,
			CreatedAt: rel.CreatedAt.Format(timeFormat),
		}
		if rel.Comment != nil {
			resp.Text = rel.Comment.Text
		}
		out = append(out, resp)
	}
	return out
}

func toProfileResponse(p *model.Profile) ProfileResponse {
	videoIDs := p.VideoIDs
	if videoIDs == nil {
		videoIDs = []string{}
	}
	return ProfileResponse{
		ID:            p.ID,
		Name:          p.Name,
		Email:         p.Email,
		Bio:           p.Bio,
		AvatarURL:     p.AvatarLocator,
		Subscribers:   toRelationResponses(p.Subscribers),
		Subscriptions: toRelationResponses(p.Subscriptions),
		Bookmarks:     toRelationResponses(p.Bookmarks),
		VideoIDs:      videoIDs,
		CreatedAt:     p.CreatedAt.Format(timeFormat),
		UpdatedAt:     p.UpdatedAt.Format(timeFormat),
	}
}
