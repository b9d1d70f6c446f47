package service

import (
	"context"
	"strings"

	"planloom/internal/domain"
)

type TagsStore interface {
	ListTags(ctx context.Context, userID int64) ([]domain.Tag, error)
	CreateTag(ctx context.Context, userID int64, name string) (domain.Tag, error)
}

type TagService struct {
	Tags TagsStore
}

func (s *TagService) List(ctx context.Context, userID int64) ([]domain.Tag, error) {
	return s.Tags.ListTags(ctx, userID)
}

func (s *TagService) Create(ctx context.Context, userID int64, name string) (domain.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Tag{}, domain.NewValidationError(map[string]string{"name": "required"})
	}
	return s.Tags.CreateTag(ctx, userID, name)
}
