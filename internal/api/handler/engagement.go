package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/gotube/internal/domain/model"
	"github.com/hszk-dev/gotube/internal/usecase"
)

type CommentRequest struct {
	Text string `json:"text"`
}

// EngagementHandler handles likes, bookmarks, subscriptions and comments.
// The subject of every relation is the signed-in caller.
type EngagementHandler struct {
	svc      usecase.EngagementService
	identity *usecase.IdentityResolver
}

// NewEngagementHandler creates a new EngagementHandler.
func NewEngagementHandler(svc usecase.EngagementService, identity *usecase.IdentityResolver) *EngagementHandler {
	return &EngagementHandler{svc: svc, identity: identity}
}

type toggleFunc func(ctx context.Context, subjectID, objectID string) (model.Membership, error)

func (h *EngagementHandler) toggle(w http.ResponseWriter, r *http.Request, fn toggleFunc) {
	caller, err := h.identity.Current(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	state, err := fn(r.Context(), caller.ID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, ToggleResponse{State: state.String()})
}

// ToggleLike handles POST /v1/videos/{id}/like
func (h *EngagementHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.svc.ToggleLike)
}

// ToggleBookmark handles POST /v1/videos/{id}/bookmark
func (h *EngagementHandler) ToggleBookmark(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.svc.ToggleBookmark)
}

// ToggleSubscription handles POST /v1/channels/{id}/subscription
func (h *EngagementHandler) ToggleSubscription(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.svc.ToggleSubscription)
}

// ListLikes handles GET /v1/videos/{id}/likes
func (h *EngagementHandler) ListLikes(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, model.KindLike)
}

// ListComments handles GET /v1/videos/{id}/comments
func (h *EngagementHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, model.KindComment)
}

// ListSubscribers handles GET /v1/channels/{id}/subscribers
func (h *EngagementHandler) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, model.KindSubscription)
}

func (h *EngagementHandler) list(w http.ResponseWriter, r *http.Request, kind model.RelationKind) {
	objectID := chi.URLParam(r, "id")

	relations, err := h.svc.ListRelations(r.Context(), kind, usecase.RelationFilter{ObjectID: objectID})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := RelationListResponse{
		Items: toRelationResponses(relations),
		Count: len(relations),
	}
	// Anonymous readers simply get Mine=false.
	if caller, err := h.identity.Current(r.Context()); err == nil {
		resp.Mine = h.svc.MembershipOf(caller.ID, objectID, relations) != nil
	}

	JSON(w, http.StatusOK, resp)
}

// Comment handles POST /v1/videos/{id}/comments
func (h *EngagementHandler) Comment(w http.ResponseWriter, r *http.Request) {
	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	caller, err := h.identity.Current(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	comment, err := h.svc.Comment(r.Context(), caller.ID, chi.URLParam(r, "id"), req.Text)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusCreated, toRelationResponses([]model.Relation{*comment})[0])
}

// ListBookmarks handles GET /v1/me/bookmarks
func (h *EngagementHandler) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	caller, err := h.identity.Current(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	relations, err := h.svc.ListRelations(r.Context(), model.KindBookmark, usecase.RelationFilter{SubjectID: caller.ID})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, RelationListResponse{
		Items: toRelationResponses(relations),
		Count: len(relations),
		Mine:  len(relations) > 0,
	})
}
