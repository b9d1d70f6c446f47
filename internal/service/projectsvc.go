package service

import (
	"context"
	"strings"
	"time"

	"planloom/internal/domain"
)

type ProjectsStore interface {
	CreateProject(ctx context.Context, userID int64, name, description string, startDate time.Time) (domain.Project, error)
	InstantiateTemplate(ctx context.Context, userID, templateID int64, name string, startDate time.Time) (domain.ProjectGraph, error)
	ListProjects(ctx context.Context, userID int64) ([]domain.Project, error)
	GetProjectGraph(ctx context.Context, userID, id int64) (domain.ProjectGraph, error)
	UpdateProject(ctx context.Context, userID int64, upd domain.ProjectUpdate) (domain.Project, error)
	DeleteProjects(ctx context.Context, userID int64, ids []int64) ([]int64, error)
}

type ProjectService struct {
	Projects  ProjectsStore
	Scheduler *ReminderScheduler
}

func (s *ProjectService) Create(ctx context.Context, userID int64, name, description string, startDate time.Time) (domain.Project, error) {
	return s.Projects.CreateProject(ctx, userID, strings.TrimSpace(name), strings.TrimSpace(description), startDate)
}

// Instantiate copies a template into a live project and arms the dispatch
// jobs for the freshly derived reminders after the write commits.
func (s *ProjectService) Instantiate(ctx context.Context, userID, templateID int64, name string, startDate time.Time) (domain.ProjectGraph, error) {
	graph, err := s.Projects.InstantiateTemplate(ctx, userID, templateID, strings.TrimSpace(name), startDate)
	if err != nil {
		return domain.ProjectGraph{}, err
	}
	for _, ev := range graph.Events {
		s.Scheduler.ArmAll(ctx, ev.Reminders)
	}
	return s.Projects.GetProjectGraph(ctx, userID, graph.ID)
}

func (s *ProjectService) List(ctx context.Context, userID int64) ([]domain.Project, error) {
	return s.Projects.ListProjects(ctx, userID)
}

func (s *ProjectService) Get(ctx context.Context, userID, id int64) (domain.ProjectGraph, error) {
	return s.Projects.GetProjectGraph(ctx, userID, id)
}

func (s *ProjectService) Update(ctx context.Context, userID int64, upd domain.ProjectUpdate) (domain.Project, error) {
	upd.Name = strings.TrimSpace(upd.Name)
	upd.Description = strings.TrimSpace(upd.Description)
	return s.Projects.UpdateProject(ctx, userID, upd)
}

// Delete removes the projects and cancels any dispatch jobs left behind by
// their reminders. The rows are gone once the store call returns, so cancel
// failures are logged rather than surfaced.
func (s *ProjectService) Delete(ctx context.Context, userID int64, ids []int64) error {
	handles, err := s.Projects.DeleteProjects(ctx, userID, ids)
	if err != nil {
		return err
	}
	s.Scheduler.CancelAll(handles)
	return nil
}
