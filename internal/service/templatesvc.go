package service

import (
	"context"
	"strings"

	"planloom/internal/domain"
)

type ProjectTemplatesStore interface {
	CreateProjectTemplate(ctx context.Context, userID int64, name, description string) (domain.ProjectTemplate, error)
	ListProjectTemplates(ctx context.Context, userID int64) ([]domain.ProjectTemplate, error)
	GetProjectTemplateGraph(ctx context.Context, userID, id int64) (domain.ProjectTemplateGraph, error)
	UpdateProjectTemplate(ctx context.Context, userID int64, upd domain.ProjectTemplateUpdate) (domain.ProjectTemplate, error)
	DeleteProjectTemplates(ctx context.Context, userID int64, ids []int64) error
	DuplicateProjectTemplate(ctx context.Context, userID, srcID int64, newName string) (domain.ProjectTemplateGraph, error)
	ImportProjectTemplate(ctx context.Context, userID int64, imp domain.TemplateImport) (domain.ProjectTemplateGraph, error)
}

type EventTemplatesStore interface {
	CreateEventTemplate(ctx context.Context, userID, projectTemplateID int64, in domain.EventTemplateInput) (domain.EventTemplateGraph, error)
	UpdateEventTemplate(ctx context.Context, userID int64, upd domain.EventTemplateUpdate) (domain.EventTemplateGraph, error)
	DeleteEventTemplates(ctx context.Context, userID int64, ids []int64) error
}

// TemplateService fronts the template side of the mutation engine. The store
// owns transactional integrity; this layer normalizes input.
type TemplateService struct {
	Templates      ProjectTemplatesStore
	EventTemplates EventTemplatesStore
}

func (s *TemplateService) Create(ctx context.Context, userID int64, name, description string) (domain.ProjectTemplate, error) {
	return s.Templates.CreateProjectTemplate(ctx, userID, strings.TrimSpace(name), strings.TrimSpace(description))
}

func (s *TemplateService) List(ctx context.Context, userID int64) ([]domain.ProjectTemplate, error) {
	return s.Templates.ListProjectTemplates(ctx, userID)
}

func (s *TemplateService) Get(ctx context.Context, userID, id int64) (domain.ProjectTemplateGraph, error) {
	return s.Templates.GetProjectTemplateGraph(ctx, userID, id)
}

func (s *TemplateService) Update(ctx context.Context, userID int64, upd domain.ProjectTemplateUpdate) (domain.ProjectTemplate, error) {
	upd.Name = strings.TrimSpace(upd.Name)
	upd.Description = strings.TrimSpace(upd.Description)
	return s.Templates.UpdateProjectTemplate(ctx, userID, upd)
}

func (s *TemplateService) Delete(ctx context.Context, userID int64, ids []int64) error {
	return s.Templates.DeleteProjectTemplates(ctx, userID, ids)
}

func (s *TemplateService) Duplicate(ctx context.Context, userID, srcID int64, newName string) (domain.ProjectTemplateGraph, error) {
	return s.Templates.DuplicateProjectTemplate(ctx, userID, srcID, strings.TrimSpace(newName))
}

func (s *TemplateService) Import(ctx context.Context, userID int64, imp domain.TemplateImport) (domain.ProjectTemplateGraph, error) {
	imp.Name = strings.TrimSpace(imp.Name)
	return s.Templates.ImportProjectTemplate(ctx, userID, imp)
}

func (s *TemplateService) CreateEvent(ctx context.Context, userID, projectTemplateID int64, in domain.EventTemplateInput) (domain.EventTemplateGraph, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.TagNames = normalizeTagNames(in.TagNames)
	return s.EventTemplates.CreateEventTemplate(ctx, userID, projectTemplateID, in)
}

func (s *TemplateService) UpdateEvent(ctx context.Context, userID int64, upd domain.EventTemplateUpdate) (domain.EventTemplateGraph, error) {
	upd.Name = strings.TrimSpace(upd.Name)
	upd.TagNames = normalizeTagNames(upd.TagNames)
	return s.EventTemplates.UpdateEventTemplate(ctx, userID, upd)
}

func (s *TemplateService) DeleteEvents(ctx context.Context, userID int64, ids []int64) error {
	return s.EventTemplates.DeleteEventTemplates(ctx, userID, ids)
}

func normalizeTagNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}
