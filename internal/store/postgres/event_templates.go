package postgres

import (
	"context"
	"errors"
	"fmt"

	"planloom/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EventTemplatesStore struct {
	pool *pgxpool.Pool
}

func NewEventTemplatesStore(pool *pgxpool.Pool) *EventTemplatesStore {
	return &EventTemplatesStore{pool: pool}
}

func (s *EventTemplatesStore) CreateEventTemplate(ctx context.Context, userID, projectTemplateID int64, in domain.EventTemplateInput) (domain.EventTemplateGraph, error) {
	var out domain.EventTemplateGraph
	err := runTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := checkOwned(ctx, tx, OwnedProjectTemplate, userID, []int64{projectTemplateID}); err != nil {
			return err
		}

		const insert = `
			INSERT INTO event_templates (project_template_id, name, offset_days, duration_days, note, kind, auto_reschedule)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, project_template_id, name, offset_days, duration_days, note, kind, auto_reschedule, updated_at
		`

		var et domain.EventTemplate
		err := tx.QueryRow(ctx, insert, projectTemplateID, in.Name, in.OffsetDays, in.DurationDays,
			in.Note, in.Kind, in.AutoReschedule).Scan(
			&et.ID, &et.ProjectTemplateID, &et.Name, &et.OffsetDays, &et.DurationDays,
			&et.Note, &et.Kind, &et.AutoReschedule, &et.UpdatedAt,
		)
		if err != nil {
			if ve := mapCheckViolation(err); ve != nil {
				return ve
			}
			return fmt.Errorf("insert event template: %w", err)
		}

		tags, err := resolveTags(ctx, tx, userID, in.TagNames)
		if err != nil {
			return err
		}
		if err := insertEventTemplateTags(ctx, tx, et.ID, tags); err != nil {
			return err
		}

		reminders, err := insertReminderTemplates(ctx, tx, et.ID, in.Reminders)
		if err != nil {
			return err
		}

		out = domain.EventTemplateGraph{EventTemplate: et, Reminders: reminders, Tags: tags}
		return nil
	})
	if err != nil {
		return domain.EventTemplateGraph{}, err
	}
	return out, nil
}

// UpdateEventTemplate applies the field update plus the nested reminder
// deletions, updates and insertions and the replacement tag set, all under
// the ownership check performed once up front.
func (s *EventTemplatesStore) UpdateEventTemplate(ctx context.Context, userID int64, upd domain.EventTemplateUpdate) (domain.EventTemplateGraph, error) {
	var out domain.EventTemplateGraph
	err := runTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := checkOwned(ctx, tx, OwnedEventTemplate, userID, []int64{upd.ID}); err != nil {
			return err
		}

		const update = `
			UPDATE event_templates
			SET name = $2, offset_days = $3, duration_days = $4, note = $5, kind = $6, auto_reschedule = $7, updated_at = now()
			WHERE id = $1
			RETURNING id, project_template_id, name, offset_days, duration_days, note, kind, auto_reschedule, updated_at
		`

		var et domain.EventTemplate
		err := tx.QueryRow(ctx, update, upd.ID, upd.Name, upd.OffsetDays, upd.DurationDays,
			upd.Note, upd.Kind, upd.AutoReschedule).Scan(
			&et.ID, &et.ProjectTemplateID, &et.Name, &et.OffsetDays, &et.DurationDays,
			&et.Note, &et.Kind, &et.AutoReschedule, &et.UpdatedAt,
		)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			if ve := mapCheckViolation(err); ve != nil {
				return ve
			}
			return fmt.Errorf("update event template: %w", err)
		}

		if ids := dedupeIDs(upd.DeleteReminderIDs); len(ids) > 0 {
			const del = `DELETE FROM reminder_templates WHERE id = ANY($1) AND event_template_id = $2`
			ct, err := tx.Exec(ctx, del, ids, upd.ID)
			if err != nil {
				return fmt.Errorf("delete reminder templates: %w", err)
			}
			if int(ct.RowsAffected()) != len(ids) {
				return domain.ErrNotFound
			}
		}

		for _, r := range upd.UpdateReminders {
			const uq = `
				UPDATE reminder_templates
				SET days_before = $3, time_of_day_minutes = $4, email_enabled = $5, desktop_enabled = $6
				WHERE id = $1 AND event_template_id = $2
			`
			ct, err := tx.Exec(ctx, uq, r.ID, upd.ID, r.DaysBefore, r.TimeOfDayMinutes, r.EmailEnabled, r.DesktopEnabled)
			if err != nil {
				if ve := mapCheckViolation(err); ve != nil {
					return ve
				}
				return fmt.Errorf("update reminder template: %w", err)
			}
			if ct.RowsAffected() == 0 {
				return domain.ErrNotFound
			}
		}

		if _, err := insertReminderTemplates(ctx, tx, upd.ID, upd.AddReminders); err != nil {
			return err
		}

		tags, err := resolveTags(ctx, tx, userID, upd.TagNames)
		if err != nil {
			return err
		}
		if err := replaceEventTemplateTags(ctx, tx, upd.ID, tags); err != nil {
			return err
		}

		reminders, err := loadReminderTemplatesForEventTemplate(ctx, tx, upd.ID)
		if err != nil {
			return err
		}

		out = domain.EventTemplateGraph{EventTemplate: et, Reminders: reminders, Tags: tags}
		return nil
	})
	if err != nil {
		return domain.EventTemplateGraph{}, err
	}
	return out, nil
}

func (s *EventTemplatesStore) DeleteEventTemplates(ctx context.Context, userID int64, ids []int64) error {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return nil
	}

	return runTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := checkOwned(ctx, tx, OwnedEventTemplate, userID, ids); err != nil {
			return err
		}

		ct, err := tx.Exec(ctx, `DELETE FROM event_templates WHERE id = ANY($1)`, ids)
		if err != nil {
			return fmt.Errorf("delete event templates: %w", err)
		}
		if int(ct.RowsAffected()) != len(ids) {
			return domain.NewAssertionError("DeleteEventTemplates",
				"deleted %d of %d requested rows", ct.RowsAffected(), len(ids))
		}
		return nil
	})
}

func insertReminderTemplates(ctx context.Context, q Queryer, eventTemplateID int64, ins []domain.ReminderTemplateInput) ([]domain.ReminderTemplate, error) {
	const insert = `
		INSERT INTO reminder_templates (event_template_id, days_before, time_of_day_minutes, email_enabled, desktop_enabled)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	out := make([]domain.ReminderTemplate, 0, len(ins))
	for _, in := range ins {
		rt := domain.ReminderTemplate{
			EventTemplateID:  eventTemplateID,
			DaysBefore:       in.DaysBefore,
			TimeOfDayMinutes: in.TimeOfDayMinutes,
			EmailEnabled:     in.EmailEnabled,
			DesktopEnabled:   in.DesktopEnabled,
		}
		if err := q.QueryRow(ctx, insert, eventTemplateID, in.DaysBefore, in.TimeOfDayMinutes,
			in.EmailEnabled, in.DesktopEnabled).Scan(&rt.ID); err != nil {
			if ve := mapCheckViolation(err); ve != nil {
				return nil, ve
			}
			return nil, fmt.Errorf("insert reminder template: %w", err)
		}
		out = append(out, rt)
	}
	return out, nil
}

func loadReminderTemplatesForEventTemplate(ctx context.Context, q Queryer, etID int64) ([]domain.ReminderTemplate, error) {
	const query = `
		SELECT id, event_template_id, days_before, time_of_day_minutes, email_enabled, desktop_enabled
		FROM reminder_templates
		WHERE event_template_id = $1
		ORDER BY id ASC
	`

	rows, err := q.Query(ctx, query, etID)
	if err != nil {
		return nil, fmt.Errorf("list reminder templates: %w", err)
	}
	defer rows.Close()

	var out []domain.ReminderTemplate
	for rows.Next() {
		var rt domain.ReminderTemplate
		if err := rows.Scan(&rt.ID, &rt.EventTemplateID, &rt.DaysBefore, &rt.TimeOfDayMinutes,
			&rt.EmailEnabled, &rt.DesktopEnabled); err != nil {
			return nil, fmt.Errorf("scan reminder template: %w", err)
		}
		out = append(out, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reminder templates: %w", err)
	}
	return out, nil
}
