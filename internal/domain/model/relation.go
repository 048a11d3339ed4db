package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidRelationKind = fmt.Errorf("%w: unknown relation kind", ErrValidation)
	ErrInvalidSubjectID    = fmt.Errorf("%w: subject ID cannot be empty", ErrValidation)
	ErrInvalidObjectID     = fmt.Errorf("%w: object ID cannot be empty", ErrValidation)
	ErrEmptyComment        = fmt.Errorf("%w: comment text cannot be empty", ErrValidation)
	ErrCommentTooLong      = fmt.Errorf("%w: comment exceeds maximum length of 2000 characters", ErrValidation)
	ErrSelfSubscription    = fmt.Errorf("%w: cannot subscribe to own channel", ErrValidation)
	ErrNotToggleable       = fmt.Errorf("%w: relation kind cannot be toggled", ErrValidation)
)

const maxCommentLength = 2000

// RelationKind discriminates the engagement relation variants.
type RelationKind string

const (
	KindLike         RelationKind = "like"
	KindBookmark     RelationKind = "bookmark"
	KindSubscription RelationKind = "subscription"
	KindComment      RelationKind = "comment"
)

func (k RelationKind) IsValid() bool {
	switch k {
	case KindLike, KindBookmark, KindSubscription, KindComment:
		return true
	default:
		return false
	}
}

// IsToggle reports whether existence of the relation is its whole meaning.
// Comments carry a payload and are append-only.
func (k RelationKind) IsToggle() bool {
	return k == KindLike || k == KindBookmark || k == KindSubscription
}

func (k RelationKind) String() string {
	return string(k)
}

// CommentPayload is the body of a comment relation.
type CommentPayload struct {
	Text string
}

// Relation is a directed edge from a subject (actor) to an object
// (a video, or a channel for subscriptions). Comment is set only for KindComment.
type Relation struct {
	ID        string
	Kind      RelationKind
	SubjectID string
	ObjectID  string
	Comment   *CommentPayload
	CreatedAt time.Time
}

// NewToggleRelation creates a membership-only relation.
func NewToggleRelation(kind RelationKind, subjectID, objectID string) (*Relation, error) {
	if !kind.IsValid() {
		return nil, ErrInvalidRelationKind
	}
	if !kind.IsToggle() {
		return nil, ErrNotToggleable
	}
	if subjectID == "" {
		return nil, ErrInvalidSubjectID
	}
	if objectID == "" {
		return nil, ErrInvalidObjectID
	}
	if kind == KindSubscription && subjectID == objectID {
		return nil, ErrSelfSubscription
	}

	return &Relation{
		ID:        uuid.NewString(),
		Kind:      kind,
		SubjectID: subjectID,
		ObjectID:  objectID,
		CreatedAt: time.Now(),
	}, nil
}

// NewComment creates a comment relation on a video.
func NewComment(subjectID, videoID, text string) (*Relation, error) {
	if subjectID == "" {
		return nil, ErrInvalidSubjectID
	}
	if videoID == "" {
		return nil, ErrInvalidObjectID
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyComment
	}
	if len(text) > maxCommentLength {
		return nil, ErrCommentTooLong
	}

	return &Relation{
		ID:        uuid.NewString(),
		Kind:      KindComment,
		SubjectID: subjectID,
		ObjectID:  videoID,
		Comment:   &CommentPayload{Text: text},
		CreatedAt: time.Now(),
	}, nil
}

// Membership is the outcome of a toggle.
type Membership string

const (
	MembershipPresent Membership = "present"
	MembershipAbsent  Membership = "absent"
)

func (m Membership) String() string {
	return string(m)
}

// MembershipOf returns the first relation in relations linking subjectID to
// objectID, or nil.
func MembershipOf(subjectID, objectID string, relations []Relation) *Relation {
	for i := range relations {
		if relations[i].SubjectID == subjectID && relations[i].ObjectID == objectID {
			return &relations[i]
		}
	}
	return nil
}
