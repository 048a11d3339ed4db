package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrValidation is the root of every input-shape error raised by the domain.
var ErrValidation = errors.New("validation failed")

var (
	ErrEmptyTitle        = fmt.Errorf("%w: title cannot be empty", ErrValidation)
	ErrTitleTooLong      = fmt.Errorf("%w: title exceeds maximum length of 255 characters", ErrValidation)
	ErrInvalidOwnerID    = fmt.Errorf("%w: owner ID cannot be empty", ErrValidation)
	ErrInvalidVisibility = fmt.Errorf("%w: visibility must be public or private", ErrValidation)
	ErrMissingLocator    = fmt.Errorf("%w: asset locator cannot be empty", ErrValidation)
	ErrNegativeViews     = fmt.Errorf("%w: views cannot be negative", ErrValidation)
)

const maxTitleLength = 255

// Visibility controls whether a video appears in public listings.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

func (v Visibility) IsValid() bool {
	switch v {
	case VisibilityPublic, VisibilityPrivate:
		return true
	default:
		return false
	}
}

func (v Visibility) String() string {
	return string(v)
}

// Video is a content record backed by two binary assets.
type Video struct {
	ID               string
	OwnerID          string
	Title            string
	Description      string
	VideoLocator     string
	ThumbnailLocator string
	Tags             []string
	Visibility       Visibility
	Views            int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ValidateTitle checks the title shape. Uniqueness is enforced by the service.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrEmptyTitle
	}
	if len(title) > maxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

// NewVideo creates a Video with a fresh ID and zero views.
func NewVideo(ownerID, title, description string, tags []string, visibility Visibility, videoLocator, thumbnailLocator string) (*Video, error) {
	if ownerID == "" {
		return nil, ErrInvalidOwnerID
	}
	if err := ValidateTitle(title); err != nil {
		return nil, err
	}
	if !visibility.IsValid() {
		return nil, ErrInvalidVisibility
	}
	if videoLocator == "" || thumbnailLocator == "" {
		return nil, ErrMissingLocator
	}

	now := time.Now()
	return &Video{
		ID:               uuid.NewString(),
		OwnerID:          ownerID,
		Title:            title,
		Description:      description,
		VideoLocator:     videoLocator,
		ThumbnailLocator: thumbnailLocator,
		Tags:             tags,
		Visibility:       visibility,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// IsOwnedBy reports whether the identity owns the video.
func (v *Video) IsOwnedBy(identityID string) bool {
	return identityID != "" && v.OwnerID == identityID
}

// IsPublic returns true if the video shows up in public listings.
func (v *Video) IsPublic() bool {
	return v.Visibility == VisibilityPublic
}

// ParseTags splits a comma-separated tag list, trimming blanks.
func ParseTags(raw string) []string {
	tags := []string{}
	for _, tag := range strings.Split(raw, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
