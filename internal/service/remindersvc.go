package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"planloom/internal/domain"
)

// JobRunner is the time-triggered task runner the scheduler issues
// schedule/cancel commands to.
type JobRunner interface {
	Schedule(runAt time.Time, reminderID, eventID int64) (int64, error)
	Cancel(handle int64) error
}

type ReminderJobStore interface {
	SetJobHandle(ctx context.Context, id, handle int64) error
	ClearAllHandles(ctx context.Context) (int64, error)
	ListUnarmed(ctx context.Context, limit int) ([]domain.Reminder, error)
}

// ReminderScheduler owns the mapping from reminder trigger instants to
// outstanding runner jobs. The stored handle is authoritative for "is a job
// outstanding"; every transition here keeps at most one live job per
// reminder.
type ReminderScheduler struct {
	Runner    JobRunner
	Reminders ReminderJobStore
	Logger    *slog.Logger
}

func (s *ReminderScheduler) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Arm schedules a dispatch job for an unscheduled reminder and records the
// handle. If the reminder disappeared between the mutation commit and this
// call, the fresh job is cancelled and the arm is a no-op.
func (s *ReminderScheduler) Arm(ctx context.Context, r domain.Reminder) error {
	handle, err := s.Runner.Schedule(r.TriggerAt, r.ID, r.EventID)
	if err != nil {
		return err
	}

	if err := s.Reminders.SetJobHandle(ctx, r.ID, handle); err != nil {
		if cancelErr := s.Runner.Cancel(handle); cancelErr != nil {
			s.logger().Error("scheduler: cancel after failed arm", "err", cancelErr,
				"reminder_id", r.ID, "handle", handle)
		}
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// ArmAll arms every reminder in the slice that has no outstanding job.
// Failures are logged and do not stop the rest; the re-arm sweep picks up
// anything left behind.
func (s *ReminderScheduler) ArmAll(ctx context.Context, reminders []domain.Reminder) {
	for _, r := range reminders {
		if r.JobHandle != nil || r.FiredAt != nil {
			continue
		}
		if err := s.Arm(ctx, r); err != nil {
			s.logger().Error("scheduler: arm failed", "err", err, "reminder_id", r.ID)
		}
	}
}

// CancelHandle kills the runner job behind a handle. Failure is reported as
// CancelFailedError because an uncancelled job will still fire.
func (s *ReminderScheduler) CancelHandle(handle int64) error {
	if err := s.Runner.Cancel(handle); err != nil {
		return &domain.CancelFailedError{Handle: handle, Err: err}
	}
	return nil
}

// CancelAll is the post-delete path: the rows are already gone, so a cancel
// failure only means the job will fire against a missing reminder and the
// dispatcher will drop it. Logged, not propagated.
func (s *ReminderScheduler) CancelAll(handles []int64) {
	for _, h := range handles {
		if err := s.CancelHandle(h); err != nil {
			s.logger().Warn("scheduler: cancel failed", "err", err, "handle", h)
		}
	}
}

// ApplyWrite reconciles runner state with a committed event mutation:
// handles of deleted reminders are cancelled, moved reminders get their old
// job cancelled before the new one is armed, and fresh reminders are armed.
// If an old job cannot be cancelled the reminder stays unarmed, upholding
// at-most-one-job; the error is returned so the caller can surface it.
func (s *ReminderScheduler) ApplyWrite(ctx context.Context, res domain.EventWriteResult) error {
	s.CancelAll(res.CancelledHandles)

	var firstErr error
	for _, r := range res.Graph.Reminders {
		if r.JobHandle != nil || r.FiredAt != nil {
			continue
		}
		if old, ok := res.RescheduleOld[r.ID]; ok {
			if err := s.CancelHandle(old); err != nil {
				s.logger().Error("scheduler: reschedule cancel failed", "err", err,
					"reminder_id", r.ID, "handle", old)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
		}
		if err := s.Arm(ctx, r); err != nil {
			s.logger().Error("scheduler: arm failed", "err", err, "reminder_id", r.ID)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Reset wipes all stored handles and re-arms from scratch. Run once at
// startup: handles are references into the previous process's runner.
func (s *ReminderScheduler) Reset(ctx context.Context) error {
	cleared, err := s.Reminders.ClearAllHandles(ctx)
	if err != nil {
		return err
	}
	if cleared > 0 {
		s.logger().Info("scheduler: cleared stale handles", "count", cleared)
	}
	return s.RearmSweep(ctx)
}

const rearmBatchSize = 500

// RearmSweep arms reminders that have no job and have not fired, in batches
// until none remain. Also runs periodically to repair missed arms.
func (s *ReminderScheduler) RearmSweep(ctx context.Context) error {
	for {
		reminders, err := s.Reminders.ListUnarmed(ctx, rearmBatchSize)
		if err != nil {
			return err
		}
		if len(reminders) == 0 {
			return nil
		}
		armed := 0
		for _, r := range reminders {
			if err := s.Arm(ctx, r); err != nil {
				s.logger().Error("scheduler: sweep arm failed", "err", err, "reminder_id", r.ID)
				continue
			}
			armed++
		}
		if armed == 0 {
			return nil
		}
		if len(reminders) < rearmBatchSize {
			return nil
		}
	}
}
