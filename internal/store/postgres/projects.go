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

type ProjectsStore struct {
	pool *pgxpool.Pool
}

func NewProjectsStore(pool *pgxpool.Pool) *ProjectsStore {
	return &ProjectsStore{pool: pool}
}

func (s *ProjectsStore) CreateProject(ctx context.Context, userID int64, name, description string, startDate time.Time) (domain.Project, error) {
	const q = `
		INSERT INTO projects (user_id, name, description, start_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, name, description, start_date, template_id, created_at, updated_at
	`

	var (
		p     domain.Project
		tplID pgtype.Int8
	)
	err := s.pool.QueryRow(ctx, q, userID, name, description, startDate).Scan(
		&p.ID, &p.UserID, &p.Name, &p.Description, &p.StartDate, &tplID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if uniqueViolation(err, "projects_owner_name_uq") {
			return domain.Project{}, domain.ErrDuplicateName
		}
		return domain.Project{}, fmt.Errorf("create project: %w", err)
	}
	p.TemplateID = int8Ptr(tplID)
	return p, nil
}

// InstantiateTemplate copies an owned template graph into a live project.
// The template is read and the project written in the same transaction, so
// the copy always reflects one consistent template state. Reminder trigger
// instants are derived here, once; the offset form is never consulted again.
func (s *ProjectsStore) InstantiateTemplate(ctx context.Context, userID, templateID int64, name string, startDate time.Time) (domain.ProjectGraph, error) {
	var out domain.ProjectGraph
	err := runTx(ctx, s.pool, func(tx pgx.Tx) error {
		tpl, err := loadTemplateGraphTx(ctx, tx, userID, templateID)
		if err != nil {
			return err
		}
		if len(tpl.EventTemplates) == 0 {
			return domain.ErrNoEventTemplates
		}

		const insertProject = `
			INSERT INTO projects (user_id, name, description, start_date, template_id)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, user_id, name, description, start_date, template_id, created_at, updated_at
		`

		var (
			p     domain.Project
			tplID pgtype.Int8
		)
		err = tx.QueryRow(ctx, insertProject, userID, name, tpl.Description, startDate, templateID).Scan(
			&p.ID, &p.UserID, &p.Name, &p.Description, &p.StartDate, &tplID, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			if uniqueViolation(err, "projects_owner_name_uq") {
				return domain.ErrDuplicateName
			}
			return fmt.Errorf("insert project: %w", err)
		}
		p.TemplateID = int8Ptr(tplID)
		out = domain.ProjectGraph{Project: p}

		const insertEvent = `
			INSERT INTO events (project_id, name, start_date, duration_days, note, kind, auto_reschedule, status, notifications_enabled, template_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id, updated_at
		`

		evBatch := &pgx.Batch{}
		for _, etg := range tpl.EventTemplates {
			ev := domain.EventFromTemplate(etg.EventTemplate, p.StartDate)
			evBatch.Queue(insertEvent, p.ID, ev.Name, ev.StartDate, ev.DurationDays, ev.Note, ev.Kind,
				ev.AutoReschedule, ev.Status, ev.NotificationsEnabled, nullIfNilInt64(ev.TemplateID))
		}
		evResults := tx.SendBatch(ctx, evBatch)
		for _, etg := range tpl.EventTemplates {
			ev := domain.EventFromTemplate(etg.EventTemplate, p.StartDate)
			ev.ProjectID = p.ID
			if err := evResults.QueryRow().Scan(&ev.ID, &ev.UpdatedAt); err != nil {
				_ = evResults.Close()
				if ve := mapCheckViolation(err); ve != nil {
					return ve
				}
				return fmt.Errorf("insert event: %w", err)
			}
			out.Events = append(out.Events, domain.EventGraph{Event: ev, Tags: etg.Tags})
		}
		if err := evResults.Close(); err != nil {
			return fmt.Errorf("insert events: %w", err)
		}

		const insertReminder = `
			INSERT INTO reminders (event_id, trigger_at, email_enabled, desktop_enabled, template_id)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`

		rBatch := &pgx.Batch{}
		for i, etg := range tpl.EventTemplates {
			ev := out.Events[i]
			for _, rt := range etg.Reminders {
				r := domain.ReminderFromTemplate(rt, ev.StartDate)
				rBatch.Queue(insertReminder, ev.ID, r.TriggerAt, r.EmailEnabled, r.DesktopEnabled, nullIfNilInt64(r.TemplateID))
			}
		}
		rResults := tx.SendBatch(ctx, rBatch)
		for i, etg := range tpl.EventTemplates {
			ev := &out.Events[i]
			for _, rt := range etg.Reminders {
				r := domain.ReminderFromTemplate(rt, ev.StartDate)
				r.EventID = ev.ID
				if err := rResults.QueryRow().Scan(&r.ID); err != nil {
					_ = rResults.Close()
					return fmt.Errorf("insert reminder: %w", err)
				}
				ev.Reminders = append(ev.Reminders, r)
			}
		}
		if err := rResults.Close(); err != nil {
			return fmt.Errorf("insert reminders: %w", err)
		}

		const insertLink = `INSERT INTO event_tags (event_id, tag_id) VALUES ($1, $2)`
		linkBatch := &pgx.Batch{}
		linkCount := 0
		for _, ev := range out.Events {
			for _, t := range ev.Tags {
				linkBatch.Queue(insertLink, ev.ID, t.ID)
				linkCount++
			}
		}
		linkResults := tx.SendBatch(ctx, linkBatch)
		for n := 0; n < linkCount; n++ {
			if _, err := linkResults.Exec(); err != nil {
				_ = linkResults.Close()
				return fmt.Errorf("link event tags: %w", err)
			}
		}
		if err := linkResults.Close(); err != nil {
			return fmt.Errorf("link event tags: %w", err)
		}

		return nil
	})
	if err != nil {
		return domain.ProjectGraph{}, err
	}
	return out, nil
}

func (s *ProjectsStore) ListProjects(ctx context.Context, userID int64) ([]domain.Project, error) {
	const q = `
		SELECT id, user_id, name, description, start_date, template_id, created_at, updated_at
		FROM projects
		WHERE user_id = $1
		ORDER BY start_date DESC, name ASC
	`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []domain.Project
	for rows.Next() {
		var (
			p     domain.Project
			tplID pgtype.Int8
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.StartDate, &tplID,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		p.TemplateID = int8Ptr(tplID)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return out, nil
}

func (s *ProjectsStore) GetProjectGraph(ctx context.Context, userID, id int64) (domain.ProjectGraph, error) {
	const qP = `
		SELECT id, user_id, name, description, start_date, template_id, created_at, updated_at
		FROM projects
		WHERE id = $1 AND user_id = $2
	`

	var (
		p     domain.Project
		tplID pgtype.Int8
	)
	err := s.pool.QueryRow(ctx, qP, id, userID).Scan(
		&p.ID, &p.UserID, &p.Name, &p.Description, &p.StartDate, &tplID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ProjectGraph{}, domain.ErrNotFound
		}
		return domain.ProjectGraph{}, fmt.Errorf("get project: %w", err)
	}
	p.TemplateID = int8Ptr(tplID)

	events, err := loadEvents(ctx, s.pool, p.ID)
	if err != nil {
		return domain.ProjectGraph{}, err
	}
	reminders, err := loadRemindersForProject(ctx, s.pool, p.ID)
	if err != nil {
		return domain.ProjectGraph{}, err
	}
	links, err := loadEventTagLinksForProject(ctx, s.pool, p.ID)
	if err != nil {
		return domain.ProjectGraph{}, err
	}

	return assembleProjectGraph(p, events, reminders, links), nil
}

func (s *ProjectsStore) UpdateProject(ctx context.Context, userID int64, upd domain.ProjectUpdate) (domain.Project, error) {
	const q = `
		UPDATE projects
		SET name = $3, description = $4, start_date = $5, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, name, description, start_date, template_id, created_at, updated_at
	`

	var (
		p     domain.Project
		tplID pgtype.Int8
	)
	err := s.pool.QueryRow(ctx, q, upd.ID, userID, upd.Name, upd.Description, upd.StartDate).Scan(
		&p.ID, &p.UserID, &p.Name, &p.Description, &p.StartDate, &tplID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Project{}, domain.ErrNotFound
		}
		if uniqueViolation(err, "projects_owner_name_uq") {
			return domain.Project{}, domain.ErrDuplicateName
		}
		return domain.Project{}, fmt.Errorf("update project: %w", err)
	}
	p.TemplateID = int8Ptr(tplID)
	return p, nil
}

// DeleteProjects removes the projects and, via cascade, their events and
// reminders. Outstanding job handles are collected first so the caller can
// cancel them after commit.
func (s *ProjectsStore) DeleteProjects(ctx context.Context, userID int64, ids []int64) ([]int64, error) {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}

	var handles []int64
	err := runTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := checkOwned(ctx, tx, OwnedProject, userID, ids); err != nil {
			return err
		}

		const qHandles = `
			SELECT r.job_handle
			FROM reminders r
			JOIN events e ON e.id = r.event_id
			WHERE e.project_id = ANY($1) AND r.job_handle IS NOT NULL
		`
		var err error
		handles, err = scanHandles(ctx, tx, qHandles, ids)
		if err != nil {
			return err
		}

		ct, err := tx.Exec(ctx, `DELETE FROM projects WHERE id = ANY($1)`, ids)
		if err != nil {
			return fmt.Errorf("delete projects: %w", err)
		}
		if int(ct.RowsAffected()) != len(ids) {
			return domain.NewAssertionError("DeleteProjects",
				"deleted %d of %d requested rows", ct.RowsAffected(), len(ids))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return handles, nil
}

func scanHandles(ctx context.Context, q Queryer, query string, arg any) ([]int64, error) {
	rows, err := q.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("collect job handles: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var h int64
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scan job handle: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("collect job handles: %w", err)
	}
	return out, nil
}
