package model

import (
	"fmt"
	"strings"
	"time"
)

var (
	ErrEmptyName     = fmt.Errorf("%w: name cannot be empty", ErrValidation)
	ErrInvalidEmail  = fmt.Errorf("%w: email is not valid", ErrValidation)
	ErrBioTooLong    = fmt.Errorf("%w: bio exceeds maximum length of 1000 characters", ErrValidation)
	ErrInvalidUserID = fmt.Errorf("%w: identity ID cannot be empty", ErrValidation)
)

const maxBioLength = 1000

// Identity is the stable handle of the current caller, as resolved from a session.
type Identity struct {
	ID    string
	Name  string
	Email string
}

// Profile is the public face of an identity. The relation lists are
// derived from the engagement collections when the profile is read.
type Profile struct {
	ID            string
	Name          string
	Email         string
	Bio           string
	AvatarLocator string

	Subscribers   []Relation
	Subscriptions []Relation
	Bookmarks     []Relation
	VideoIDs      []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewProfile creates the profile of an identity at first sign-in.
// The profile shares the identity's ID.
func NewProfile(identity Identity, avatarLocator string) (*Profile, error) {
	if identity.ID == "" {
		return nil, ErrInvalidUserID
	}
	if err := ValidateName(identity.Name); err != nil {
		return nil, err
	}
	if err := ValidateEmail(identity.Email); err != nil {
		return nil, err
	}

	now := time.Now()
	return &Profile{
		ID:            identity.ID,
		Name:          identity.Name,
		Email:         identity.Email,
		AvatarLocator: avatarLocator,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	return nil
}

func ValidateEmail(email string) error {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return ErrInvalidEmail
	}
	return nil
}

func ValidateBio(bio string) error {
	if len(bio) > maxBioLength {
		return ErrBioTooLong
	}
	return nil
}

// Page is one page of a cursor-paginated listing.
type Page[T any] struct {
	Items      []T
	Total      int
	NextCursor string
	HasMore    bool
}
