package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"planloom/internal/domain"
	"planloom/internal/email"
	"planloom/internal/jobs"
	"planloom/internal/notifications"
)

type DispatchStore interface {
	GetDispatch(ctx context.Context, reminderID int64) (domain.DispatchView, error)
	MarkFired(ctx context.Context, id, handle int64, when time.Time) (bool, error)
}

type DispatchTokensStore interface {
	ListTokens(ctx context.Context, userID int64) ([]domain.NotificationToken, error)
	DeleteToken(ctx context.Context, userID int64, token string) error
}

type EmailSender interface {
	Enabled() bool
	Send(msg email.Message) error
}

type PushSender interface {
	Send(ctx context.Context, token string, msg notifications.Message) error
}

// Dispatcher consumes fired jobs and turns them into notifications. Every
// decision is made from a fresh read at fire time: the event may have been
// edited, disabled or deleted since the job was armed, and the user's
// channel settings apply as they are now, not as they were at scheduling.
type Dispatcher struct {
	Store  DispatchStore
	Tokens DispatchTokensStore
	Email  EmailSender
	Push   PushSender
	Logger *slog.Logger
	Now    func() time.Time
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Run consumes the runner's channel until it closes.
func (d *Dispatcher) Run(ctx context.Context, jobCh <-chan jobs.Job) {
	for job := range jobCh {
		d.HandleFire(ctx, job.ReminderID, job.Handle)
	}
}

// HandleFire dispatches one fired job. A reminder that is gone, or whose
// stored handle no longer matches, is a stale callback and a silent no-op.
func (d *Dispatcher) HandleFire(ctx context.Context, reminderID, handle int64) {
	view, err := d.Store.GetDispatch(ctx, reminderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			d.logger().Debug("dispatch: reminder gone", "reminder_id", reminderID)
			return
		}
		d.logger().Error("dispatch: load failed", "err", err, "reminder_id", reminderID)
		return
	}
	if view.Reminder.JobHandle == nil || *view.Reminder.JobHandle != handle {
		d.logger().Debug("dispatch: stale handle", "reminder_id", reminderID, "handle", handle)
		return
	}

	fired, err := d.Store.MarkFired(ctx, reminderID, handle, d.now())
	if err != nil {
		d.logger().Error("dispatch: mark fired failed", "err", err, "reminder_id", reminderID)
		return
	}
	if !fired {
		return
	}

	if !view.Event.NotificationsEnabled {
		return
	}

	content := domain.RenderReminderNotification(view.Event, view.ProjectName, view.Reminder.TriggerAt)

	if view.Reminder.EmailEnabled && view.Settings.EmailNotifications {
		d.sendEmail(view, content)
	}
	if view.Reminder.DesktopEnabled && view.Settings.DesktopNotifications {
		d.sendPush(ctx, view, content)
	}
}

func (d *Dispatcher) sendEmail(view domain.DispatchView, content domain.NotificationContent) {
	if d.Email == nil || !d.Email.Enabled() || view.User.Email == "" {
		return
	}
	err := d.Email.Send(email.Message{
		ToEmail:  view.User.Email,
		Subject:  content.Subject,
		TextBody: content.Text,
	})
	if err != nil {
		d.logger().Error("dispatch: email send failed", "err", err,
			"reminder_id", view.Reminder.ID, "user_id", view.User.ID)
	}
}

func (d *Dispatcher) sendPush(ctx context.Context, view domain.DispatchView, content domain.NotificationContent) {
	if d.Push == nil || d.Tokens == nil {
		return
	}
	tokens, err := d.Tokens.ListTokens(ctx, view.User.ID)
	if err != nil {
		d.logger().Error("dispatch: list tokens failed", "err", err, "user_id", view.User.ID)
		return
	}

	msg := notifications.Message{
		Data: content.Data,
		Notification: &notifications.Notification{
			Title: content.Subject,
			Body:  content.Text,
		},
	}
	for _, token := range tokens {
		if err := d.Push.Send(ctx, token.Token, msg); err != nil {
			if errors.Is(err, notifications.ErrInvalidToken) {
				if delErr := d.Tokens.DeleteToken(ctx, view.User.ID, token.Token); delErr != nil {
					d.logger().Error("dispatch: delete invalid token failed", "err", delErr, "user_id", view.User.ID)
				}
				continue
			}
			d.logger().Error("dispatch: push send failed", "err", err, "user_id", view.User.ID)
		}
	}
}
