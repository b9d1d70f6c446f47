package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"planloom/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RemindersStore struct {
	pool *pgxpool.Pool
}

func NewRemindersStore(pool *pgxpool.Pool) *RemindersStore {
	return &RemindersStore{pool: pool}
}

// SetJobHandle records the runner handle for a freshly armed reminder. The
// reminder must not already hold a handle; one outstanding job per reminder
// is the invariant everything else leans on.
func (s *RemindersStore) SetJobHandle(ctx context.Context, id, handle int64) error {
	const q = `UPDATE reminders SET job_handle = $2 WHERE id = $1 AND job_handle IS NULL`

	ct, err := s.pool.Exec(ctx, q, id, handle)
	if err != nil {
		return fmt.Errorf("set job handle: %w", err)
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	var existing pgtype.Int8
	err = s.pool.QueryRow(ctx, `SELECT job_handle FROM reminders WHERE id = $1`, id).Scan(&existing)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("set job handle: %w", err)
	}
	return domain.NewAssertionError("SetJobHandle",
		"reminder %d already holds handle %d while arming %d", id, existing.Int64, handle)
}

// ClearJobHandle releases the handle only if it is still the one recorded.
// Returns false when the stored handle differs or the row is gone, which
// means the caller's view is stale and nothing should happen.
func (s *RemindersStore) ClearJobHandle(ctx context.Context, id, handle int64) (bool, error) {
	const q = `UPDATE reminders SET job_handle = NULL WHERE id = $1 AND job_handle = $2`

	ct, err := s.pool.Exec(ctx, q, id, handle)
	if err != nil {
		return false, fmt.Errorf("clear job handle: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// MarkFired records a dispatch, conditional on the handle still being the
// current one. A false return means the reminder was mutated or removed
// after the job was armed and the dispatch must be dropped.
func (s *RemindersStore) MarkFired(ctx context.Context, id, handle int64, when time.Time) (bool, error) {
	const q = `UPDATE reminders SET job_handle = NULL, fired_at = $3 WHERE id = $1 AND job_handle = $2`

	ct, err := s.pool.Exec(ctx, q, id, handle, when)
	if err != nil {
		return false, fmt.Errorf("mark reminder fired: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// ClearAllHandles wipes every recorded handle. Run at startup: handles refer
// to in-memory runner state, so none survive a process restart.
func (s *RemindersStore) ClearAllHandles(ctx context.Context) (int64, error) {
	ct, err := s.pool.Exec(ctx, `UPDATE reminders SET job_handle = NULL WHERE job_handle IS NOT NULL`)
	if err != nil {
		return 0, fmt.Errorf("clear all handles: %w", err)
	}
	return ct.RowsAffected(), nil
}

// ListUnarmed returns reminders that have neither an outstanding job nor a
// past dispatch, oldest trigger first. Overdue reminders are included;
// arming them fires them immediately.
func (s *RemindersStore) ListUnarmed(ctx context.Context, limit int) ([]domain.Reminder, error) {
	const q = `
		SELECT id, event_id, trigger_at, email_enabled, desktop_enabled, job_handle, fired_at, template_id
		FROM reminders
		WHERE job_handle IS NULL AND fired_at IS NULL
		ORDER BY trigger_at ASC, id ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list unarmed reminders: %w", err)
	}
	return scanReminderRows(rows, "list unarmed reminders")
}

// GetDispatch performs the fresh read at fire time: the reminder together
// with its current event, project name, owner and live settings.
func (s *RemindersStore) GetDispatch(ctx context.Context, reminderID int64) (domain.DispatchView, error) {
	const q = `
		SELECT r.id, r.event_id, r.trigger_at, r.email_enabled, r.desktop_enabled, r.job_handle, r.fired_at, r.template_id,
		       e.id, e.project_id, e.name, e.start_date, e.duration_days, e.note, e.kind,
		       e.auto_reschedule, e.status, e.notifications_enabled, e.template_id, e.updated_at,
		       p.name,
		       u.id, u.email, u.username, u.created_at,
		       s.week_start, s.date_format, s.email_notifications, s.desktop_notifications
		FROM reminders r
		JOIN events e ON e.id = r.event_id
		JOIN projects p ON p.id = e.project_id
		JOIN users u ON u.id = p.user_id
		JOIN user_settings s ON s.user_id = u.id
		WHERE r.id = $1
	`

	var (
		v       domain.DispatchView
		handle  pgtype.Int8
		firedAt pgtype.Timestamptz
		rTplID  pgtype.Int8
		eTplID  pgtype.Int8
		email   pgtype.Text
	)
	err := s.pool.QueryRow(ctx, q, reminderID).Scan(
		&v.Reminder.ID, &v.Reminder.EventID, &v.Reminder.TriggerAt,
		&v.Reminder.EmailEnabled, &v.Reminder.DesktopEnabled, &handle, &firedAt, &rTplID,
		&v.Event.ID, &v.Event.ProjectID, &v.Event.Name, &v.Event.StartDate,
		&v.Event.DurationDays, &v.Event.Note, &v.Event.Kind, &v.Event.AutoReschedule,
		&v.Event.Status, &v.Event.NotificationsEnabled, &eTplID, &v.Event.UpdatedAt,
		&v.ProjectName,
		&v.User.ID, &email, &v.User.Username, &v.User.CreatedAt,
		&v.Settings.WeekStart, &v.Settings.DateFormat,
		&v.Settings.EmailNotifications, &v.Settings.DesktopNotifications,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.DispatchView{}, domain.ErrNotFound
		}
		return domain.DispatchView{}, fmt.Errorf("get dispatch view: %w", err)
	}
	v.Reminder.JobHandle = int8Ptr(handle)
	v.Reminder.FiredAt = timestamptzPtr(firedAt)
	v.Reminder.TemplateID = int8Ptr(rTplID)
	v.Event.TemplateID = int8Ptr(eTplID)
	v.User.Email = textOrEmpty(email)
	v.Settings.UserID = v.User.ID
	return v, nil
}
