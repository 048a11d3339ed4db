package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hszk-dev/gotube/internal/domain/model"
	"github.com/hszk-dev/gotube/internal/domain/repository"
)

const (
	// DefaultPageSize is used when a listing does not ask for a page size.
	DefaultPageSize = 25

	// MaxPageSize caps the page size of a listing.
	MaxPageSize = 100
)

// VideoDraft contains the input parameters for publishing a video.
type VideoDraft struct {
	Title       string
	Description string
	Tags        []string
	Visibility  model.Visibility
	Video       Upload
	Thumbnail   Upload
}

// VideoPatch carries the fields of an update. Nil fields are left unchanged.
type VideoPatch struct {
	Title       *string
	Description *string
	Tags        []string
	Visibility  *model.Visibility
	Video       *Upload
	Thumbnail   *Upload
}

// ListOptions selects a page of videos.
type ListOptions struct {
	// Search switches to a full-text title match over public videos.
	// Limit and Cursor are ignored when it is set.
	Search string

	// Visibility defaults to public. Other values require OwnerID to be the caller.
	Visibility model.Visibility
	OwnerID    string
	Limit      int
	Cursor     string
}

// VideoService defines the interface for content record operations.
type VideoService interface {
	// Publish uploads both assets and creates the record owned by the caller.
	// Returns ErrConflict if the title is taken.
	Publish(ctx context.Context, draft VideoDraft, onProgress repository.ProgressFunc) (*model.Video, error)

	// Update applies patch to a video owned by the caller.
	// Replaced assets are uploaded before the old ones are released.
	Update(ctx context.Context, id string, patch VideoPatch, onProgress repository.ProgressFunc) (*model.Video, error)

	// Get retrieves a video by ID.
	Get(ctx context.Context, id string) (*model.Video, error)

	// List returns a page of videos.
	List(ctx context.Context, opts ListOptions) (*model.Page[model.Video], error)

	// Delete releases both assets and removes the record.
	// Deleting a missing video is not an error.
	Delete(ctx context.Context, id string) error

	// IncrementViews stores expectedCurrent+1 as the view count.
	// Concurrent calls with the same expectedCurrent lose updates.
	IncrementViews(ctx context.Context, id string, expectedCurrent int64) (*model.Video, error)
}

type videoService struct {
	docs        repository.DocumentStore
	assets      AssetService
	identity    *IdentityResolver
	collections repository.Collections
}

// NewVideoService creates a new VideoService instance.
func NewVideoService(
	docs repository.DocumentStore,
	assets AssetService,
	identity *IdentityResolver,
	collections repository.Collections,
) VideoService {
	return &videoService{
		docs:        docs,
		assets:      assets,
		identity:    identity,
		collections: collections,
	}
}

func (s *videoService) Publish(ctx context.Context, draft VideoDraft, onProgress repository.ProgressFunc) (*model.Video, error) {
	if err := model.ValidateTitle(draft.Title); err != nil {
		return nil, err
	}
	if draft.Visibility == "" {
		draft.Visibility = model.VisibilityPublic
	}
	if !draft.Visibility.IsValid() {
		return nil, model.ErrInvalidVisibility
	}
	if draft.Video.Reader == nil || draft.Thumbnail.Reader == nil {
		return nil, model.ErrMissingLocator
	}

	caller, err := s.identity.Current(ctx)
	if err != nil {
		return nil, err
	}

	// Check-then-act: two concurrent publishes with one title can both pass.
	if err := s.ensureTitleAvailable(ctx, draft.Title, ""); err != nil {
		return nil, err
	}

	videoLocator, err := s.assets.Upload(ctx, draft.Video, onProgress)
	if err != nil {
		return nil, fmt.Errorf("upload video: %w", err)
	}

	thumbnailLocator, err := s.assets.Upload(ctx, draft.Thumbnail, nil)
	if err != nil {
		return nil, fmt.Errorf("upload thumbnail: %w", err)
	}

	video, err := model.NewVideo(caller.ID, draft.Title, draft.Description, draft.Tags, draft.Visibility, videoLocator, thumbnailLocator)
	if err != nil {
		return nil, err
	}

	doc, err := s.docs.CreateDoc(ctx, s.collections.Videos, video.ID, videoFields(video))
	if err != nil {
		return nil, fmt.Errorf("create video: %w", err)
	}

	return videoFromDocument(doc), nil
}

func (s *videoService) Update(ctx context.Context, id string, patch VideoPatch, onProgress repository.ProgressFunc) (*model.Video, error) {
	caller, err := s.identity.Current(ctx)
	if err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.IsOwnedBy(caller.ID) {
		return nil, fmt.Errorf("%w: video %s is not owned by caller", repository.ErrForbidden, id)
	}

	fields := map[string]any{}

	if patch.Title != nil && *patch.Title != current.Title {
		if err := model.ValidateTitle(*patch.Title); err != nil {
			return nil, err
		}
		if err := s.ensureTitleAvailable(ctx, *patch.Title, id); err != nil {
			return nil, err
		}
		fields[fieldTitle] = *patch.Title
	}
	if patch.Visibility != nil {
		if !patch.Visibility.IsValid() {
			return nil, model.ErrInvalidVisibility
		}
		fields[fieldVisibility] = patch.Visibility.String()
	}
	if patch.Description != nil {
		fields[fieldDescription] = *patch.Description
	}
	if patch.Tags != nil {
		fields[fieldTags] = patch.Tags
	}

	if patch.Video != nil {
		locator, err := s.replaceAsset(ctx, id, *patch.Video, current.VideoLocator, onProgress)
		if err != nil {
			return nil, fmt.Errorf("replace video: %w", err)
		}
		fields[fieldVideoLocator] = locator
	}
	if patch.Thumbnail != nil {
		locator, err := s.replaceAsset(ctx, id, *patch.Thumbnail, current.ThumbnailLocator, nil)
		if err != nil {
			return nil, fmt.Errorf("replace thumbnail: %w", err)
		}
		fields[fieldThumbnailLocator] = locator
	}

	if len(fields) == 0 {
		return current, nil
	}

	doc, err := s.docs.UpdateDoc(ctx, s.collections.Videos, id, fields)
	if err != nil {
		return nil, fmt.Errorf("update video: %w", err)
	}

	return videoFromDocument(doc), nil
}

func (s *videoService) Get(ctx context.Context, id string) (*model.Video, error) {
	doc, err := s.docs.GetDoc(ctx, s.collections.Videos, id)
	if err != nil {
		return nil, err
	}
	return videoFromDocument(doc), nil
}

func (s *videoService) List(ctx context.Context, opts ListOptions) (*model.Page[model.Video], error) {
	if search := strings.TrimSpace(opts.Search); search != "" {
		list, err := s.docs.ListDocs(ctx, s.collections.Videos,
			repository.Search(fieldTitle, search),
			repository.Equal(fieldVisibility, model.VisibilityPublic.String()),
		)
		if err != nil {
			return nil, fmt.Errorf("search videos: %w", err)
		}
		return &model.Page[model.Video]{Items: videosOf(list), Total: list.Total}, nil
	}

	visibility := opts.Visibility
	if visibility == "" {
		visibility = model.VisibilityPublic
	}
	if !visibility.IsValid() {
		return nil, model.ErrInvalidVisibility
	}
	if visibility != model.VisibilityPublic {
		caller, err := s.identity.Current(ctx)
		if err != nil {
			return nil, err
		}
		if opts.OwnerID != caller.ID {
			return nil, fmt.Errorf("%w: only the owner can list non-public videos", repository.ErrForbidden)
		}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	queries := []repository.Query{
		repository.Equal(fieldVisibility, visibility.String()),
		repository.Limit(limit),
	}
	if opts.OwnerID != "" {
		queries = append(queries, repository.Equal(fieldOwnerID, opts.OwnerID))
	}
	if opts.Cursor != "" {
		queries = append(queries, repository.CursorAfter(opts.Cursor))
	}

	list, err := s.docs.ListDocs(ctx, s.collections.Videos, queries...)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}

	items := videosOf(list)
	page := &model.Page[model.Video]{
		Items:   items,
		Total:   list.Total,
		HasMore: len(items) == limit,
	}
	if len(items) > 0 {
		page.NextCursor = items[len(items)-1].ID
	}

	return page, nil
}

func (s *videoService) Delete(ctx context.Context, id string) error {
	caller, err := s.identity.Current(ctx)
	if err != nil {
		return err
	}

	video, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	if !video.IsOwnedBy(caller.ID) {
		return fmt.Errorf("%w: video %s is not owned by caller", repository.ErrForbidden, id)
	}

	// Release never blocks the record delete; failures are already queued for cleanup.
	var g errgroup.Group
	for _, locator := range []string{video.VideoLocator, video.ThumbnailLocator} {
		g.Go(func() error {
			return s.assets.Release(ctx, locator)
		})
	}
	if err := g.Wait(); err != nil {
		slog.Warn("video assets not fully released",
			"video_id", id,
			"error", err,
		)
	}

	if err := s.docs.DeleteDoc(ctx, s.collections.Videos, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("delete video: %w", err)
	}

	return nil
}

func (s *videoService) IncrementViews(ctx context.Context, id string, expectedCurrent int64) (*model.Video, error) {
	if expectedCurrent < 0 {
		return nil, model.ErrNegativeViews
	}

	doc, err := s.docs.UpdateDoc(ctx, s.collections.Videos, id, map[string]any{
		fieldViews: expectedCurrent + 1,
	})
	if err != nil {
		return nil, fmt.Errorf("increment views: %w", err)
	}

	return videoFromDocument(doc), nil
}

// ensureTitleAvailable returns ErrConflict if a video other than exceptID has title.
func (s *videoService) ensureTitleAvailable(ctx context.Context, title, exceptID string) error {
	list, err := s.docs.ListDocs(ctx, s.collections.Videos, repository.Equal(fieldTitle, title), repository.Limit(2))
	if err != nil {
		return fmt.Errorf("check title: %w", err)
	}

	for _, doc := range list.Documents {
		if doc.ID != exceptID {
			return fmt.Errorf("%w: title %q is already taken", repository.ErrConflict, title)
		}
	}
	return nil
}

// replaceAsset uploads the new asset first so the record never points at a
// deleted one, then releases the old asset.
func (s *videoService) replaceAsset(ctx context.Context, videoID string, upload Upload, oldLocator string, onProgress repository.ProgressFunc) (string, error) {
	locator, err := s.assets.Upload(ctx, upload, onProgress)
	if err != nil {
		return "", err
	}

	if err := s.assets.Release(ctx, oldLocator); err != nil {
		slog.Warn("replaced video asset not released",
			"video_id", videoID,
			"locator", oldLocator,
			"error", err,
		)
	}

	return locator, nil
}

func videosOf(list *repository.DocumentList) []model.Video {
	videos := make([]model.Video, 0, len(list.Documents))
	for i := range list.Documents {
		videos = append(videos, *videoFromDocument(&list.Documents[i]))
	}
	return videos
}
