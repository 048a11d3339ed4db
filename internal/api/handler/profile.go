package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/gotube/internal/domain/model"
	"github.com/hszk-dev/gotube/internal/usecase"
)

type UpdateProfileRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Bio   *string `json:"bio"`
}

type ProfileSearchResponse struct {
	Items []ProfileResponse `json:"items"`
}

// ProfileHandler handles profile-related HTTP requests.
type ProfileHandler struct {
	svc            usecase.ProfileService
	maxUploadBytes int64
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(svc usecase.ProfileService, maxUploadBytes int64) *ProfileHandler {
	return &ProfileHandler{svc: svc, maxUploadBytes: maxUploadBytes}
}

// Me handles GET /v1/me. The first call after sign-in creates the profile.
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.EnsureProfile(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, toProfileResponse(profile))
}

// Get handles GET /v1/profiles/{id}
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, toProfileResponse(profile))
}

// Search handles GET /v1/profiles?search=
func (h *ProfileHandler) Search(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.svc.Search(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	items := make([]ProfileResponse, 0, len(profiles))
	for i := range profiles {
		items = append(items, toProfileResponse(&profiles[i]))
	}
	JSON(w, http.StatusOK, ProfileSearchResponse{Items: items})
}

// Update handles PATCH /v1/profiles/{id}
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	profile, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), usecase.ProfilePatch{
		Name:  req.Name,
		Email: req.Email,
		Bio:   req.Bio,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, toProfileResponse(profile))
}

// UpdateAvatar handles PUT /v1/profiles/me/avatar
func (h *ProfileHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	if !parseMultipart(w, r, h.maxUploadBytes) {
		return
	}

	avatar, closer, err := formFile(r, "avatar")
	if closer != nil {
		defer closer.Close()
	}
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if avatar == nil {
		handleServiceError(w, r, model.ErrMissingLocator)
		return
	}

	profile, err := h.svc.UpdateAvatar(r.Context(), *avatar)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, toProfileResponse(profile))
}
