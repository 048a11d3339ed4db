package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/hszk-dev/gotube/internal/domain/model"
	"github.com/hszk-dev/gotube/internal/domain/repository"
)

// ProfilePatch carries the fields of a profile update. Nil fields are left unchanged.
type ProfilePatch struct {
	Name  *string
	Email *string
	Bio   *string
}

// ProfileService defines the interface for profile directory operations.
type ProfileService interface {
	// Get retrieves a profile with its relation lists populated.
	Get(ctx context.Context, id string) (*model.Profile, error)

	// EnsureProfile returns the caller's profile, creating it on first sign-in.
	EnsureProfile(ctx context.Context) (*model.Profile, error)

	// Update applies patch to the caller's own profile.
	Update(ctx context.Context, id string, patch ProfilePatch) (*model.Profile, error)

	// UpdateAvatar replaces the caller's avatar.
	UpdateAvatar(ctx context.Context, upload Upload) (*model.Profile, error)

	// Search finds profiles whose name matches every word of query as a prefix.
	Search(ctx context.Context, query string) ([]model.Profile, error)
}

// ProfileServiceConfig holds configuration for ProfileService.
type ProfileServiceConfig struct {
	// InitialsAvatarURL is prefixed to the escaped name to build the default avatar.
	InitialsAvatarURL string
}

// DefaultProfileServiceConfig returns the default configuration.
func DefaultProfileServiceConfig() ProfileServiceConfig {
	return ProfileServiceConfig{
		InitialsAvatarURL: "https://ui-avatars.com/api/?name=",
	}
}

type profileService struct {
	docs        repository.DocumentStore
	assets      AssetService
	engagement  EngagementService
	identity    *IdentityResolver
	collections repository.Collections

	initialsAvatarURL string
}

// NewProfileService creates a new ProfileService instance.
func NewProfileService(
	docs repository.DocumentStore,
	assets AssetService,
	engagement EngagementService,
	identity *IdentityResolver,
	collections repository.Collections,
	cfg ProfileServiceConfig,
) ProfileService {
	return &profileService{
		docs:              docs,
		assets:            assets,
		engagement:        engagement,
		identity:          identity,
		collections:       collections,
		initialsAvatarURL: cfg.InitialsAvatarURL,
	}
}

func (s *profileService) Get(ctx context.Context, id string) (*model.Profile, error) {
	doc, err := s.docs.GetDoc(ctx, s.collections.Profiles, id)
	if err != nil {
		return nil, err
	}
	profile := profileFromDocument(doc)

	if err := s.populate(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *profileService) EnsureProfile(ctx context.Context) (*model.Profile, error) {
	caller, err := s.identity.Current(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := s.Get(ctx, caller.ID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	profile, err = model.NewProfile(*caller, s.initialsAvatarURL+url.QueryEscape(caller.Name))
	if err != nil {
		return nil, err
	}

	if _, err := s.docs.CreateDoc(ctx, s.collections.Profiles, profile.ID, profileFields(profile)); err != nil {
		// A concurrent first sign-in created it.
		if errors.Is(err, repository.ErrConflict) {
			return s.Get(ctx, caller.ID)
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}

	return s.Get(ctx, caller.ID)
}

func (s *profileService) Update(ctx context.Context, id string, patch ProfilePatch) (*model.Profile, error) {
	caller, err := s.identity.Current(ctx)
	if err != nil {
		return nil, err
	}
	if caller.ID != id {
		return nil, fmt.Errorf("%w: cannot update another user's profile", repository.ErrForbidden)
	}

	fields := map[string]any{}
	if patch.Name != nil {
		if err := model.ValidateName(*patch.Name); err != nil {
			return nil, err
		}
		fields[fieldName] = *patch.Name
	}
	if patch.Email != nil {
		if err := model.ValidateEmail(*patch.Email); err != nil {
			return nil, err
		}
		fields[fieldEmail] = *patch.Email
	}
	if patch.Bio != nil {
		if err := model.ValidateBio(*patch.Bio); err != nil {
			return nil, err
		}
		fields[fieldBio] = *patch.Bio
	}

	if len(fields) > 0 {
		if _, err := s.docs.UpdateDoc(ctx, s.collections.Profiles, id, fields); err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}
	}

	return s.Get(ctx, id)
}

func (s *profileService) UpdateAvatar(ctx context.Context, upload Upload) (*model.Profile, error) {
	caller, err := s.identity.Current(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := s.docs.GetDoc(ctx, s.collections.Profiles, caller.ID)
	if err != nil {
		return nil, err
	}
	oldLocator := stringField(doc.Fields, fieldAvatarLocator)

	locator, err := s.assets.Upload(ctx, upload, nil)
	if err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}

	if _, err := s.docs.UpdateDoc(ctx, s.collections.Profiles, caller.ID, map[string]any{
		fieldAvatarLocator: locator,
	}); err != nil {
		return nil, fmt.Errorf("update avatar: %w", err)
	}

	// The initials avatar is unmanaged and is left alone.
	if err := s.assets.Release(ctx, oldLocator); err != nil {
		slog.Warn("previous avatar not released",
			"profile_id", caller.ID,
			"locator", oldLocator,
			"error", err,
		)
	}

	return s.Get(ctx, caller.ID)
}

func (s *profileService) Search(ctx context.Context, query string) ([]model.Profile, error) {
	query = strings.TrimSpace(query)
	if len(repository.SearchTerms(query)) == 0 {
		return nil, fmt.Errorf("%w: search query cannot be empty", repository.ErrValidation)
	}

	list, err := s.docs.ListDocs(ctx, s.collections.Profiles, repository.Search(fieldName, query))
	if err != nil {
		return nil, fmt.Errorf("search profiles: %w", err)
	}

	profiles := make([]model.Profile, 0, len(list.Documents))
	for i := range list.Documents {
		profiles = append(profiles, *profileFromDocument(&list.Documents[i]))
	}
	return profiles, nil
}

// populate reads the relation lists derived from the engagement collections.
func (s *profileService) populate(ctx context.Context, profile *model.Profile) error {
	var err error

	profile.Subscribers, err = s.engagement.ListRelations(ctx, model.KindSubscription, RelationFilter{ObjectID: profile.ID})
	if err != nil {
		return err
	}
	profile.Subscriptions, err = s.engagement.ListRelations(ctx, model.KindSubscription, RelationFilter{SubjectID: profile.ID})
	if err != nil {
		return err
	}
	profile.Bookmarks, err = s.engagement.ListRelations(ctx, model.KindBookmark, RelationFilter{SubjectID: profile.ID})
	if err != nil {
		return err
	}

	queries := []repository.Query{
		repository.Equal(fieldOwnerID, profile.ID),
		repository.Limit(repository.MaxListLimit),
	}
	// Private videos are listed to their owner only.
	if caller, err := s.identity.Current(ctx); err != nil || caller.ID != profile.ID {
		queries = append(queries, repository.Equal(fieldVisibility, model.VisibilityPublic.String()))
	}

	videos, err := s.docs.ListDocs(ctx, s.collections.Videos, queries...)
	if err != nil {
		return fmt.Errorf("list profile videos: %w", err)
	}
	profile.VideoIDs = make([]string, 0, len(videos.Documents))
	for _, doc := range videos.Documents {
		profile.VideoIDs = append(profile.VideoIDs, doc.ID)
	}

	return nil
}
