package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/hszk-dev/gotube/internal/domain/model"
	"github.com/hszk-dev/gotube/internal/domain/repository"
	"github.com/hszk-dev/gotube/internal/infrastructure/metrics"
)

// RelationFilter narrows a relation listing. Empty fields match everything.
type RelationFilter struct {
	SubjectID string
	ObjectID  string
}

// EngagementService defines the interface for engagement graph operations.
type EngagementService interface {
	// ToggleLike flips the like of subjectID on videoID.
	ToggleLike(ctx context.Context, subjectID, videoID string) (model.Membership, error)

	// ToggleBookmark flips the bookmark of subjectID on videoID.
	ToggleBookmark(ctx context.Context, subjectID, videoID string) (model.Membership, error)

	// ToggleSubscription flips the subscription of subjectID to channelID.
	// Subscribing to oneself is a validation error.
	ToggleSubscription(ctx context.Context, subjectID, channelID string) (model.Membership, error)

	// Comment appends a comment to a video.
	Comment(ctx context.Context, subjectID, videoID, text string) (*model.Relation, error)

	// ListRelations returns the relations of a kind matching filter, oldest first.
	ListRelations(ctx context.Context, kind model.RelationKind, filter RelationFilter) ([]model.Relation, error)

	// MembershipOf finds the relation from subjectID to objectID in relations.
	MembershipOf(subjectID, objectID string, relations []model.Relation) *model.Relation
}

type engagementService struct {
	docs        repository.DocumentStore
	identity    *IdentityResolver
	collections repository.Collections
}

// NewEngagementService creates a new EngagementService instance.
func NewEngagementService(
	docs repository.DocumentStore,
	identity *IdentityResolver,
	collections repository.Collections,
) EngagementService {
	return &engagementService{
		docs:        docs,
		identity:    identity,
		collections: collections,
	}
}

func (s *engagementService) ToggleLike(ctx context.Context, subjectID, videoID string) (model.Membership, error) {
	return s.toggle(ctx, model.KindLike, subjectID, videoID)
}

func (s *engagementService) ToggleBookmark(ctx context.Context, subjectID, videoID string) (model.Membership, error) {
	return s.toggle(ctx, model.KindBookmark, subjectID, videoID)
}

func (s *engagementService) ToggleSubscription(ctx context.Context, subjectID, channelID string) (model.Membership, error) {
	return s.toggle(ctx, model.KindSubscription, subjectID, channelID)
}

// toggle removes every relation from subject to object if one exists, or
// creates one otherwise. The read and the write are separate calls, so two
// concurrent toggles can leave a duplicate; the next toggle removes both.
func (s *engagementService) toggle(ctx context.Context, kind model.RelationKind, subjectID, objectID string) (model.Membership, error) {
	relation, err := model.NewToggleRelation(kind, subjectID, objectID)
	if err != nil {
		return "", err
	}
	if err := s.authorizeSubject(ctx, subjectID); err != nil {
		return "", err
	}

	collection, err := s.collections.ForKind(kind)
	if err != nil {
		return "", err
	}

	existing, err := s.ListRelations(ctx, kind, RelationFilter{SubjectID: subjectID, ObjectID: objectID})
	if err != nil {
		return "", err
	}

	if len(existing) > 0 {
		for _, rel := range existing {
			if err := s.docs.DeleteDoc(ctx, collection, rel.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
				return "", fmt.Errorf("delete %s: %w", kind, err)
			}
		}
		metrics.EngagementTogglesTotal.WithLabelValues(kind.String(), model.MembershipAbsent.String()).Inc()
		return model.MembershipAbsent, nil
	}

	if err := s.ensureObjectExists(ctx, kind, objectID); err != nil {
		return "", err
	}

	if _, err := s.docs.CreateDoc(ctx, collection, relation.ID, relationFields(relation)); err != nil {
		return "", fmt.Errorf("create %s: %w", kind, err)
	}

	metrics.EngagementTogglesTotal.WithLabelValues(kind.String(), model.MembershipPresent.String()).Inc()
	return model.MembershipPresent, nil
}

func (s *engagementService) Comment(ctx context.Context, subjectID, videoID, text string) (*model.Relation, error) {
	comment, err := model.NewComment(subjectID, videoID, text)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeSubject(ctx, subjectID); err != nil {
		return nil, err
	}
	if err := s.ensureObjectExists(ctx, model.KindComment, videoID); err != nil {
		return nil, err
	}

	doc, err := s.docs.CreateDoc(ctx, s.collections.Comments, comment.ID, relationFields(comment))
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	rel := relationFromDocument(model.KindComment, doc)
	return &rel, nil
}

func (s *engagementService) ListRelations(ctx context.Context, kind model.RelationKind, filter RelationFilter) ([]model.Relation, error) {
	collection, err := s.collections.ForKind(kind)
	if err != nil {
		return nil, err
	}

	queries := []repository.Query{repository.Limit(repository.MaxListLimit)}
	if filter.SubjectID != "" {
		queries = append(queries, repository.Equal(fieldSubjectID, filter.SubjectID))
	}
	if filter.ObjectID != "" {
		queries = append(queries, repository.Equal(fieldObjectID, filter.ObjectID))
	}

	list, err := s.docs.ListDocs(ctx, collection, queries...)
	if err != nil {
		return nil, fmt.Errorf("list %s relations: %w", kind, err)
	}

	relations := make([]model.Relation, 0, len(list.Documents))
	for i := range list.Documents {
		relations = append(relations, relationFromDocument(kind, &list.Documents[i]))
	}
	return relations, nil
}

func (s *engagementService) MembershipOf(subjectID, objectID string, relations []model.Relation) *model.Relation {
	return model.MembershipOf(subjectID, objectID, relations)
}

// authorizeSubject requires the caller to act as subjectID.
func (s *engagementService) authorizeSubject(ctx context.Context, subjectID string) error {
	caller, err := s.identity.Current(ctx)
	if err != nil {
		return err
	}
	if caller.ID != subjectID {
		return fmt.Errorf("%w: cannot act on behalf of another user", repository.ErrForbidden)
	}
	return nil
}

// ensureObjectExists checks the relation target: a channel profile for
// subscriptions, a video otherwise.
func (s *engagementService) ensureObjectExists(ctx context.Context, kind model.RelationKind, objectID string) error {
	collection := s.collections.Videos
	if kind == model.KindSubscription {
		collection = s.collections.Profiles
	}

	if _, err := s.docs.GetDoc(ctx, collection, objectID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return fmt.Errorf("check %s target: %w", kind, err)
	}
	return nil
}
