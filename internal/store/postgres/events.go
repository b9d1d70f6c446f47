package postgres

import (
	"context"
	"errors"
	"fmt"

	"planloom/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EventsStore struct {
	pool *pgxpool.Pool
}

func NewEventsStore(pool *pgxpool.Pool) *EventsStore {
	return &EventsStore{pool: pool}
}

func (s *EventsStore) CreateEvent(ctx context.Context, userID, projectID int64, in domain.EventInput) (domain.EventGraph, error) {
	var out domain.EventGraph
	err := runTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := checkOwned(ctx, tx, OwnedProject, userID, []int64{projectID}); err != nil {
			return err
		}

		const insert = `
			INSERT INTO events (project_id, name, start_date, duration_days, note, kind, auto_reschedule, status, notifications_enabled)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, project_id, name, start_date, duration_days, note, kind, auto_reschedule, status, notifications_enabled, template_id, updated_at
		`

		ev, err := scanEventRow(tx.QueryRow(ctx, insert, projectID, in.Name, in.StartDate, in.DurationDays,
			in.Note, in.Kind, in.AutoReschedule, domain.EventStatusNotStarted, in.NotificationsEnabled))
		if err != nil {
			if ve := mapCheckViolation(err); ve != nil {
				return ve
			}
			return fmt.Errorf("insert event: %w", err)
		}

		tags, err := resolveTags(ctx, tx, userID, in.TagNames)
		if err != nil {
			return err
		}
		if err := insertEventTags(ctx, tx, ev.ID, tags); err != nil {
			return err
		}

		reminders, err := insertReminders(ctx, tx, ev.ID, in.Reminders)
		if err != nil {
			return err
		}

		out = assembleEventGraph(ev, reminders, tags)
		return nil
	})
	if err != nil {
		return domain.EventGraph{}, err
	}
	return out, nil
}

func (s *EventsStore) GetEventGraph(ctx context.Context, userID, id int64) (domain.EventGraph, error) {
	const q = `
		SELECT e.id, e.project_id, e.name, e.start_date, e.duration_days, e.note, e.kind,
		       e.auto_reschedule, e.status, e.notifications_enabled, e.template_id, e.updated_at
		FROM events e
		JOIN projects p ON p.id = e.project_id
		WHERE e.id = $1 AND p.user_id = $2
	`

	ev, err := scanEventRow(s.pool.QueryRow(ctx, q, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.EventGraph{}, domain.ErrNotFound
		}
		return domain.EventGraph{}, fmt.Errorf("get event: %w", err)
	}

	reminders, err := loadRemindersForEvent(ctx, s.pool, ev.ID)
	if err != nil {
		return domain.EventGraph{}, err
	}
	tags, err := loadEventTags(ctx, s.pool, ev.ID)
	if err != nil {
		return domain.EventGraph{}, err
	}
	return assembleEventGraph(ev, reminders, tags), nil
}

// UpdateEvent applies the field update plus nested reminder deletions,
// updates and insertions. Job handles of deleted reminders are collected for
// cancellation; reminders whose trigger instant moved while a job was
// outstanding have the handle cleared here and reported in RescheduleOld, so
// the caller can cancel the old job before arming the new one.
func (s *EventsStore) UpdateEvent(ctx context.Context, userID int64, upd domain.EventUpdate) (domain.EventWriteResult, error) {
	var res domain.EventWriteResult
	err := runTx(ctx, s.pool, func(tx pgx.Tx) error {
		res = domain.EventWriteResult{RescheduleOld: make(map[int64]int64)}

		if err := checkOwned(ctx, tx, OwnedEvent, userID, []int64{upd.ID}); err != nil {
			return err
		}

		const update = `
			UPDATE events
			SET name = $2, start_date = $3, duration_days = $4, note = $5, kind = $6,
			    auto_reschedule = $7, status = $8, notifications_enabled = $9, updated_at = now()
			WHERE id = $1
			RETURNING id, project_id, name, start_date, duration_days, note, kind, auto_reschedule, status, notifications_enabled, template_id, updated_at
		`

		ev, err := scanEventRow(tx.QueryRow(ctx, update, upd.ID, upd.Name, upd.StartDate, upd.DurationDays,
			upd.Note, upd.Kind, upd.AutoReschedule, upd.Status, upd.NotificationsEnabled))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			if ve := mapCheckViolation(err); ve != nil {
				return ve
			}
			return fmt.Errorf("update event: %w", err)
		}

		if ids := dedupeIDs(upd.DeleteReminderIDs); len(ids) > 0 {
			const qHandles = `
				SELECT job_handle FROM reminders
				WHERE id = ANY($1) AND event_id = $2 AND job_handle IS NOT NULL
			`
			rows, err := tx.Query(ctx, qHandles, ids, upd.ID)
			if err != nil {
				return fmt.Errorf("collect reminder handles: %w", err)
			}
			for rows.Next() {
				var h int64
				if err := rows.Scan(&h); err != nil {
					rows.Close()
					return fmt.Errorf("scan reminder handle: %w", err)
				}
				res.CancelledHandles = append(res.CancelledHandles, h)
			}
			if err := rows.Err(); err != nil {
				return fmt.Errorf("collect reminder handles: %w", err)
			}

			ct, err := tx.Exec(ctx, `DELETE FROM reminders WHERE id = ANY($1) AND event_id = $2`, ids, upd.ID)
			if err != nil {
				return fmt.Errorf("delete reminders: %w", err)
			}
			if int(ct.RowsAffected()) != len(ids) {
				return domain.ErrNotFound
			}
		}

		for _, r := range upd.UpdateReminders {
			const qOld = `SELECT trigger_at, job_handle FROM reminders WHERE id = $1 AND event_id = $2`
			var (
				oldTrigger pgtype.Timestamptz
				oldHandle  pgtype.Int8
			)
			if err := tx.QueryRow(ctx, qOld, r.ID, upd.ID).Scan(&oldTrigger, &oldHandle); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return domain.ErrNotFound
				}
				return fmt.Errorf("read reminder: %w", err)
			}

			moved := !oldTrigger.Time.Equal(r.TriggerAt)
			if moved && oldHandle.Valid {
				res.RescheduleOld[r.ID] = oldHandle.Int64
			}

			const uq = `
				UPDATE reminders
				SET trigger_at = $3, email_enabled = $4, desktop_enabled = $5,
				    job_handle = CASE WHEN $6 THEN NULL ELSE job_handle END,
				    fired_at = CASE WHEN $6 THEN NULL ELSE fired_at END
				WHERE id = $1 AND event_id = $2
			`
			if _, err := tx.Exec(ctx, uq, r.ID, upd.ID, r.TriggerAt, r.EmailEnabled, r.DesktopEnabled, moved); err != nil {
				return fmt.Errorf("update reminder: %w", err)
			}
		}

		if _, err := insertReminders(ctx, tx, upd.ID, upd.AddReminders); err != nil {
			return err
		}

		tags, err := resolveTags(ctx, tx, userID, upd.TagNames)
		if err != nil {
			return err
		}
		if err := replaceEventTags(ctx, tx, upd.ID, tags); err != nil {
			return err
		}

		reminders, err := loadRemindersForEvent(ctx, tx, upd.ID)
		if err != nil {
			return err
		}

		res.Graph = assembleEventGraph(ev, reminders, tags)
		return nil
	})
	if err != nil {
		return domain.EventWriteResult{}, err
	}
	return res, nil
}

// DeleteEvents removes the events and their reminders and returns the job
// handles that were outstanding, for cancellation after commit.
func (s *EventsStore) DeleteEvents(ctx context.Context, userID int64, ids []int64) ([]int64, error) {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}

	var handles []int64
	err := runTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := checkOwned(ctx, tx, OwnedEvent, userID, ids); err != nil {
			return err
		}

		const qHandles = `
			SELECT job_handle FROM reminders
			WHERE event_id = ANY($1) AND job_handle IS NOT NULL
		`
		var err error
		handles, err = scanHandles(ctx, tx, qHandles, ids)
		if err != nil {
			return err
		}

		ct, err := tx.Exec(ctx, `DELETE FROM events WHERE id = ANY($1)`, ids)
		if err != nil {
			return fmt.Errorf("delete events: %w", err)
		}
		if int(ct.RowsAffected()) != len(ids) {
			return domain.NewAssertionError("DeleteEvents",
				"deleted %d of %d requested rows", ct.RowsAffected(), len(ids))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return handles, nil
}

func scanEventRow(row pgx.Row) (domain.Event, error) {
	var (
		ev    domain.Event
		tplID pgtype.Int8
	)
	err := row.Scan(&ev.ID, &ev.ProjectID, &ev.Name, &ev.StartDate, &ev.DurationDays, &ev.Note,
		&ev.Kind, &ev.AutoReschedule, &ev.Status, &ev.NotificationsEnabled, &tplID, &ev.UpdatedAt)
	if err != nil {
		return domain.Event{}, err
	}
	ev.TemplateID = int8Ptr(tplID)
	return ev, nil
}

func insertReminders(ctx context.Context, q Queryer, eventID int64, ins []domain.ReminderInput) ([]domain.Reminder, error) {
	const insert = `
		INSERT INTO reminders (event_id, trigger_at, email_enabled, desktop_enabled)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	out := make([]domain.Reminder, 0, len(ins))
	for _, in := range ins {
		r := domain.Reminder{
			EventID:        eventID,
			TriggerAt:      in.TriggerAt,
			EmailEnabled:   in.EmailEnabled,
			DesktopEnabled: in.DesktopEnabled,
		}
		if err := q.QueryRow(ctx, insert, eventID, in.TriggerAt, in.EmailEnabled, in.DesktopEnabled).Scan(&r.ID); err != nil {
			return nil, fmt.Errorf("insert reminder: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

func loadEvents(ctx context.Context, q Queryer, projectID int64) ([]domain.Event, error) {
	const query = `
		SELECT id, project_id, name, start_date, duration_days, note, kind,
		       auto_reschedule, status, notifications_enabled, template_id, updated_at
		FROM events
		WHERE project_id = $1
		ORDER BY start_date ASC, id ASC
	`

	rows, err := q.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		ev, err := scanEventRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

func scanReminderRows(rows pgx.Rows, label string) ([]domain.Reminder, error) {
	defer rows.Close()

	var out []domain.Reminder
	for rows.Next() {
		var (
			r       domain.Reminder
			handle  pgtype.Int8
			firedAt pgtype.Timestamptz
			tplID   pgtype.Int8
		)
		if err := rows.Scan(&r.ID, &r.EventID, &r.TriggerAt, &r.EmailEnabled, &r.DesktopEnabled,
			&handle, &firedAt, &tplID); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		r.JobHandle = int8Ptr(handle)
		r.FiredAt = timestamptzPtr(firedAt)
		r.TemplateID = int8Ptr(tplID)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	return out, nil
}

func loadRemindersForEvent(ctx context.Context, q Queryer, eventID int64) ([]domain.Reminder, error) {
	const query = `
		SELECT id, event_id, trigger_at, email_enabled, desktop_enabled, job_handle, fired_at, template_id
		FROM reminders
		WHERE event_id = $1
		ORDER BY trigger_at ASC, id ASC
	`

	rows, err := q.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return scanReminderRows(rows, "list reminders")
}

func loadRemindersForProject(ctx context.Context, q Queryer, projectID int64) ([]domain.Reminder, error) {
	const query = `
		SELECT r.id, r.event_id, r.trigger_at, r.email_enabled, r.desktop_enabled, r.job_handle, r.fired_at, r.template_id
		FROM reminders r
		JOIN events e ON e.id = r.event_id
		WHERE e.project_id = $1
		ORDER BY r.trigger_at ASC, r.id ASC
	`

	rows, err := q.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list project reminders: %w", err)
	}
	return scanReminderRows(rows, "list project reminders")
}

func loadEventTags(ctx context.Context, q Queryer, eventID int64) ([]domain.Tag, error) {
	const query = `
		SELECT t.id, t.user_id, t.name
		FROM event_tags et
		JOIN tags t ON t.id = et.tag_id
		WHERE et.event_id = $1
		ORDER BY t.name ASC
	`

	rows, err := q.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("list event tags: %w", err)
	}
	defer rows.Close()

	var out []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list event tags: %w", err)
	}
	return out, nil
}

func loadEventTagLinksForProject(ctx context.Context, q Queryer, projectID int64) ([]tagLink, error) {
	const query = `
		SELECT et.event_id, t.id, t.user_id, t.name
		FROM event_tags et
		JOIN tags t ON t.id = et.tag_id
		JOIN events e ON e.id = et.event_id
		WHERE e.project_id = $1
		ORDER BY t.name ASC
	`

	rows, err := q.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list project tags: %w", err)
	}
	defer rows.Close()

	var out []tagLink
	for rows.Next() {
		var l tagLink
		if err := rows.Scan(&l.OwnerID, &l.Tag.ID, &l.Tag.UserID, &l.Tag.Name); err != nil {
			return nil, fmt.Errorf("scan project tag: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list project tags: %w", err)
	}
	return out, nil
}
