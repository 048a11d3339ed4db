package usecase

import (
	"fmt"

	"github.com/hszk-dev/gotube/internal/domain/model"
	"github.com/hszk-dev/gotube/internal/domain/repository"
)

// Document field names. They are part of the stored format.
const (
	fieldTitle            = "title"
	fieldDescription      = "description"
	fieldVideoLocator     = "videoLocator"
	fieldThumbnailLocator = "thumbnailLocator"
	fieldTags             = "tags"
	fieldVisibility       = "visibility"
	fieldOwnerID          = "ownerId"
	fieldViews            = "views"

	fieldSubjectID = "subjectId"
	fieldObjectID  = "objectId"
	fieldText      = "text"

	fieldName          = "name"
	fieldEmail         = "email"
	fieldBio           = "bio"
	fieldAvatarLocator = "avatarLocator"
)

func videoFields(v *model.Video) map[string]any {
	tags := v.Tags
	if tags == nil {
		tags = []string{}
	}
	return map[string]any{
		fieldTitle:            v.Title,
		fieldDescription:      v.Description,
		fieldVideoLocator:     v.VideoLocator,
		fieldThumbnailLocator: v.ThumbnailLocator,
		fieldTags:             tags,
		fieldVisibility:       v.Visibility.String(),
		fieldOwnerID:          v.OwnerID,
		fieldViews:            v.Views,
	}
}

func videoFromDocument(doc *repository.Document) *model.Video {
	return &model.Video{
		ID:               doc.ID,
		OwnerID:          stringField(doc.Fields, fieldOwnerID),
		Title:            stringField(doc.Fields, fieldTitle),
		Description:      stringField(doc.Fields, fieldDescription),
		VideoLocator:     stringField(doc.Fields, fieldVideoLocator),
		ThumbnailLocator: stringField(doc.Fields, fieldThumbnailLocator),
		Tags:             stringsField(doc.Fields, fieldTags),
		Visibility:       model.Visibility(stringField(doc.Fields, fieldVisibility)),
		Views:            int64Field(doc.Fields, fieldViews),
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
	}
}

func relationFields(r *model.Relation) map[string]any {
	fields := map[string]any{
		fieldSubjectID: r.SubjectID,
		fieldObjectID:  r.ObjectID,
	}
	if r.Comment != nil {
		fields[fieldText] = r.Comment.Text
	}
	return fields
}

func relationFromDocument(kind model.RelationKind, doc *repository.Document) model.Relation {
	rel := model.Relation{
		ID:        doc.ID,
		Kind:      kind,
		SubjectID: stringField(doc.Fields, fieldSubjectID),
		ObjectID:  stringField(doc.Fields, fieldObjectID),
		CreatedAt: doc.CreatedAt,
	}
	if kind == model.KindComment {
		rel.Comment = &model.CommentPayload{Text: stringField(doc.Fields, fieldText)}
	}
	return rel
}

func profileFields(p *model.Profile) map[string]any {
	return map[string]any{
		fieldName:          p.Name,
		fieldEmail:         p.Email,
		fieldBio:           p.Bio,
		fieldAvatarLocator: p.AvatarLocator,
	}
}

func profileFromDocument(doc *repository.Document) *model.Profile {
	return &model.Profile{
		ID:            doc.ID,
		Name:          stringField(doc.Fields, fieldName),
		Email:         stringField(doc.Fields, fieldEmail),
		Bio:           stringField(doc.Fields, fieldBio),
		AvatarLocator: stringField(doc.Fields, fieldAvatarLocator),
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
}

func stringField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// int64Field accepts the JSON-decoded float64 as well as values that were
// never round-tripped through a store.
func int64Field(fields map[string]any, key string) int64 {
	switch v := fields[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}

func stringsField(fields map[string]any, key string) []string {
	switch v := fields[key].(type) {
	case []string:
		return append([]string{}, v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}
