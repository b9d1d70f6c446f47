package service

import (
	"context"
	"strings"

	"planloom/internal/domain"
)

type EventsStore interface {
	CreateEvent(ctx context.Context, userID, projectID int64, in domain.EventInput) (domain.EventGraph, error)
	GetEventGraph(ctx context.Context, userID, id int64) (domain.EventGraph, error)
	UpdateEvent(ctx context.Context, userID int64, upd domain.EventUpdate) (domain.EventWriteResult, error)
	DeleteEvents(ctx context.Context, userID int64, ids []int64) ([]int64, error)
}

type EventService struct {
	Events    EventsStore
	Scheduler *ReminderScheduler
}

func (s *EventService) Create(ctx context.Context, userID, projectID int64, in domain.EventInput) (domain.EventGraph, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.TagNames = normalizeTagNames(in.TagNames)

	graph, err := s.Events.CreateEvent(ctx, userID, projectID, in)
	if err != nil {
		return domain.EventGraph{}, err
	}
	s.Scheduler.ArmAll(ctx, graph.Reminders)
	return s.Events.GetEventGraph(ctx, userID, graph.ID)
}

func (s *EventService) Get(ctx context.Context, userID, id int64) (domain.EventGraph, error) {
	return s.Events.GetEventGraph(ctx, userID, id)
}

// Update applies the mutation and reconciles the scheduler afterwards:
// deleted reminders get their jobs cancelled, moved reminders are
// rescheduled (cancel fully first), new reminders are armed. The returned
// graph reflects the scheduler's work.
func (s *EventService) Update(ctx context.Context, userID int64, upd domain.EventUpdate) (domain.EventGraph, error) {
	if !domain.ValidEventStatus(upd.Status) {
		return domain.EventGraph{}, domain.ErrInvalidEventStatus
	}
	upd.Name = strings.TrimSpace(upd.Name)
	upd.TagNames = normalizeTagNames(upd.TagNames)

	res, err := s.Events.UpdateEvent(ctx, userID, upd)
	if err != nil {
		return domain.EventGraph{}, err
	}
	if err := s.Scheduler.ApplyWrite(ctx, res); err != nil {
		return domain.EventGraph{}, err
	}
	return s.Events.GetEventGraph(ctx, userID, upd.ID)
}

func (s *EventService) Delete(ctx context.Context, userID int64, ids []int64) error {
	handles, err := s.Events.DeleteEvents(ctx, userID, ids)
	if err != nil {
		return err
	}
	s.Scheduler.CancelAll(handles)
	return nil
}
