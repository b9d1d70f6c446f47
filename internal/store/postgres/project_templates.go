package postgres

import (
	"context"
	"errors"
	"fmt"

	"planloom/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProjectTemplatesStore struct {
	pool *pgxpool.Pool
}

func NewProjectTemplatesStore(pool *pgxpool.Pool) *ProjectTemplatesStore {
	return &ProjectTemplatesStore{pool: pool}
}

func (s *ProjectTemplatesStore) CreateProjectTemplate(ctx context.Context, userID int64, name, description string) (domain.ProjectTemplate, error) {
	const q = `
		INSERT INTO project_templates (user_id, name, description)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, name, description, created_at, updated_at
	`

	var pt domain.ProjectTemplate
	err := s.pool.QueryRow(ctx, q, userID, name, description).Scan(
		&pt.ID, &pt.UserID, &pt.Name, &pt.Description, &pt.CreatedAt, &pt.UpdatedAt,
	)
	if err != nil {
		if uniqueViolation(err, "project_templates_owner_name_uq") {
			return domain.ProjectTemplate{}, domain.ErrDuplicateName
		}
		return domain.ProjectTemplate{}, fmt.Errorf("create project template: %w", err)
	}
	return pt, nil
}

func (s *ProjectTemplatesStore) ListProjectTemplates(ctx context.Context, userID int64) ([]domain.ProjectTemplate, error) {
	const q = `
		SELECT id, user_id, name, description, created_at, updated_at
		FROM project_templates
		WHERE user_id = $1
		ORDER BY name ASC
	`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list project templates: %w", err)
	}
	defer rows.Close()

	var out []domain.ProjectTemplate
	for rows.Next() {
		var pt domain.ProjectTemplate
		if err := rows.Scan(&pt.ID, &pt.UserID, &pt.Name, &pt.Description, &pt.CreatedAt, &pt.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project template: %w", err)
		}
		out = append(out, pt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list project templates: %w", err)
	}
	return out, nil
}

func (s *ProjectTemplatesStore) GetProjectTemplateGraph(ctx context.Context, userID, id int64) (domain.ProjectTemplateGraph, error) {
	return loadTemplateGraph(ctx, s.pool, userID, id)
}

func (s *ProjectTemplatesStore) UpdateProjectTemplate(ctx context.Context, userID int64, upd domain.ProjectTemplateUpdate) (domain.ProjectTemplate, error) {
	const q = `
		UPDATE project_templates
		SET name = $3, description = $4, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, name, description, created_at, updated_at
	`

	var pt domain.ProjectTemplate
	err := s.pool.QueryRow(ctx, q, upd.ID, userID, upd.Name, upd.Description).Scan(
		&pt.ID, &pt.UserID, &pt.Name, &pt.Description, &pt.CreatedAt, &pt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ProjectTemplate{}, domain.ErrNotFound
		}
		if uniqueViolation(err, "project_templates_owner_name_uq") {
			return domain.ProjectTemplate{}, domain.ErrDuplicateName
		}
		return domain.ProjectTemplate{}, fmt.Errorf("update project template: %w", err)
	}
	return pt, nil
}

func (s *ProjectTemplatesStore) DeleteProjectTemplates(ctx context.Context, userID int64, ids []int64) error {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return nil
	}

	return runTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := checkOwned(ctx, tx, OwnedProjectTemplate, userID, ids); err != nil {
			return err
		}

		ct, err := tx.Exec(ctx, `DELETE FROM project_templates WHERE id = ANY($1)`, ids)
		if err != nil {
			return fmt.Errorf("delete project templates: %w", err)
		}
		if int(ct.RowsAffected()) != len(ids) {
			return domain.NewAssertionError("DeleteProjectTemplates",
				"deleted %d of %d requested rows", ct.RowsAffected(), len(ids))
		}
		return nil
	})
}

// DuplicateProjectTemplate copies an owned template graph under a new name.
// Tags are carried by reference: the new event templates link the same tag
// rows as the source.
func (s *ProjectTemplatesStore) DuplicateProjectTemplate(ctx context.Context, userID, srcID int64, newName string) (domain.ProjectTemplateGraph, error) {
	var out domain.ProjectTemplateGraph
	err := runTx(ctx, s.pool, func(tx pgx.Tx) error {
		src, err := loadTemplateGraphTx(ctx, tx, userID, srcID)
		if err != nil {
			return err
		}

		sources := make([]fanoutSource, 0, len(src.EventTemplates))
		for _, etg := range src.EventTemplates {
			reminders := make([]domain.ReminderTemplateInput, 0, len(etg.Reminders))
			for _, rt := range etg.Reminders {
				reminders = append(reminders, domain.ReminderTemplateInput{
					DaysBefore:       rt.DaysBefore,
					TimeOfDayMinutes: rt.TimeOfDayMinutes,
					EmailEnabled:     rt.EmailEnabled,
					DesktopEnabled:   rt.DesktopEnabled,
				})
			}
			sources = append(sources, fanoutSource{
				input: domain.EventTemplateInput{
					Name:           etg.Name,
					OffsetDays:     etg.OffsetDays,
					DurationDays:   etg.DurationDays,
					Note:           etg.Note,
					Kind:           etg.Kind,
					AutoReschedule: etg.AutoReschedule,
					Reminders:      reminders,
				},
				tags: etg.Tags,
			})
		}

		out, err = insertTemplateGraph(ctx, tx, userID, newName, src.Description, sources)
		return err
	})
	if err != nil {
		return domain.ProjectTemplateGraph{}, err
	}
	return out, nil
}

// ImportProjectTemplate materializes an externally supplied template graph.
// Same fan-out as duplication, but tag references arrive as names and are
// resolved against (or inserted into) the caller's tag set.
func (s *ProjectTemplatesStore) ImportProjectTemplate(ctx context.Context, userID int64, imp domain.TemplateImport) (domain.ProjectTemplateGraph, error) {
	var out domain.ProjectTemplateGraph
	err := runTx(ctx, s.pool, func(tx pgx.Tx) error {
		sources := make([]fanoutSource, 0, len(imp.EventTemplates))
		for _, in := range imp.EventTemplates {
			tags, err := resolveTags(ctx, tx, userID, in.TagNames)
			if err != nil {
				return err
			}
			sources = append(sources, fanoutSource{input: in, tags: tags})
		}

		var err error
		out, err = insertTemplateGraph(ctx, tx, userID, imp.Name, imp.Description, sources)
		return err
	})
	if err != nil {
		return domain.ProjectTemplateGraph{}, err
	}
	return out, nil
}

type fanoutSource struct {
	input domain.EventTemplateInput
	tags  []domain.Tag
}

// insertTemplateGraph creates a project template and fans out its event
// templates, reminder templates and tag links. The per-child inserts are
// mutually independent once the parent exists, so they are pipelined through
// pgx batches inside the transaction.
func insertTemplateGraph(ctx context.Context, tx pgx.Tx, userID int64, name, description string, sources []fanoutSource) (domain.ProjectTemplateGraph, error) {
	const insertPT = `
		INSERT INTO project_templates (user_id, name, description)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, name, description, created_at, updated_at
	`

	var pt domain.ProjectTemplate
	err := tx.QueryRow(ctx, insertPT, userID, name, description).Scan(
		&pt.ID, &pt.UserID, &pt.Name, &pt.Description, &pt.CreatedAt, &pt.UpdatedAt,
	)
	if err != nil {
		if uniqueViolation(err, "project_templates_owner_name_uq") {
			return domain.ProjectTemplateGraph{}, domain.ErrDuplicateName
		}
		return domain.ProjectTemplateGraph{}, fmt.Errorf("insert project template: %w", err)
	}

	graph := domain.ProjectTemplateGraph{ProjectTemplate: pt}
	if len(sources) == 0 {
		return graph, nil
	}

	const insertET = `
		INSERT INTO event_templates (project_template_id, name, offset_days, duration_days, note, kind, auto_reschedule)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, updated_at
	`

	etBatch := &pgx.Batch{}
	for _, src := range sources {
		in := src.input
		etBatch.Queue(insertET, pt.ID, in.Name, in.OffsetDays, in.DurationDays, in.Note, in.Kind, in.AutoReschedule)
	}
	etResults := tx.SendBatch(ctx, etBatch)
	for _, src := range sources {
		in := src.input
		etg := domain.EventTemplateGraph{
			EventTemplate: domain.EventTemplate{
				ProjectTemplateID: pt.ID,
				Name:              in.Name,
				OffsetDays:        in.OffsetDays,
				DurationDays:      in.DurationDays,
				Note:              in.Note,
				Kind:              in.Kind,
				AutoReschedule:    in.AutoReschedule,
			},
			Tags: src.tags,
		}
		if err := etResults.QueryRow().Scan(&etg.ID, &etg.UpdatedAt); err != nil {
			_ = etResults.Close()
			if ve := mapCheckViolation(err); ve != nil {
				return domain.ProjectTemplateGraph{}, ve
			}
			return domain.ProjectTemplateGraph{}, fmt.Errorf("insert event template: %w", err)
		}
		graph.EventTemplates = append(graph.EventTemplates, etg)
	}
	if err := etResults.Close(); err != nil {
		return domain.ProjectTemplateGraph{}, fmt.Errorf("insert event templates: %w", err)
	}

	const insertRT = `
		INSERT INTO reminder_templates (event_template_id, days_before, time_of_day_minutes, email_enabled, desktop_enabled)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	rtBatch := &pgx.Batch{}
	for i, src := range sources {
		etID := graph.EventTemplates[i].ID
		for _, rt := range src.input.Reminders {
			rtBatch.Queue(insertRT, etID, rt.DaysBefore, rt.TimeOfDayMinutes, rt.EmailEnabled, rt.DesktopEnabled)
		}
	}
	rtResults := tx.SendBatch(ctx, rtBatch)
	for i, src := range sources {
		etID := graph.EventTemplates[i].ID
		for _, rt := range src.input.Reminders {
			row := domain.ReminderTemplate{
				EventTemplateID:  etID,
				DaysBefore:       rt.DaysBefore,
				TimeOfDayMinutes: rt.TimeOfDayMinutes,
				EmailEnabled:     rt.EmailEnabled,
				DesktopEnabled:   rt.DesktopEnabled,
			}
			if err := rtResults.QueryRow().Scan(&row.ID); err != nil {
				_ = rtResults.Close()
				if ve := mapCheckViolation(err); ve != nil {
					return domain.ProjectTemplateGraph{}, ve
				}
				return domain.ProjectTemplateGraph{}, fmt.Errorf("insert reminder template: %w", err)
			}
			graph.EventTemplates[i].Reminders = append(graph.EventTemplates[i].Reminders, row)
		}
	}
	if err := rtResults.Close(); err != nil {
		return domain.ProjectTemplateGraph{}, fmt.Errorf("insert reminder templates: %w", err)
	}

	const insertLink = `
		INSERT INTO event_template_tags (event_template_id, tag_id)
		VALUES ($1, $2)
	`

	linkBatch := &pgx.Batch{}
	linkCount := 0
	for i, src := range sources {
		etID := graph.EventTemplates[i].ID
		for _, t := range src.tags {
			linkBatch.Queue(insertLink, etID, t.ID)
			linkCount++
		}
	}
	linkResults := tx.SendBatch(ctx, linkBatch)
	for n := 0; n < linkCount; n++ {
		if _, err := linkResults.Exec(); err != nil {
			_ = linkResults.Close()
			return domain.ProjectTemplateGraph{}, fmt.Errorf("link template tags: %w", err)
		}
	}
	if err := linkResults.Close(); err != nil {
		return domain.ProjectTemplateGraph{}, fmt.Errorf("link template tags: %w", err)
	}

	return graph, nil
}

// Graph reads.

func loadTemplateGraph(ctx context.Context, q Queryer, userID, id int64) (domain.ProjectTemplateGraph, error) {
	const qPT = `
		SELECT id, user_id, name, description, created_at, updated_at
		FROM project_templates
		WHERE id = $1 AND user_id = $2
	`

	var pt domain.ProjectTemplate
	err := q.QueryRow(ctx, qPT, id, userID).Scan(
		&pt.ID, &pt.UserID, &pt.Name, &pt.Description, &pt.CreatedAt, &pt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ProjectTemplateGraph{}, domain.ErrNotFound
		}
		return domain.ProjectTemplateGraph{}, fmt.Errorf("get project template: %w", err)
	}

	ets, err := loadEventTemplates(ctx, q, pt.ID)
	if err != nil {
		return domain.ProjectTemplateGraph{}, err
	}
	rts, err := loadReminderTemplates(ctx, q, pt.ID)
	if err != nil {
		return domain.ProjectTemplateGraph{}, err
	}
	links, err := loadEventTemplateTagLinks(ctx, q, pt.ID)
	if err != nil {
		return domain.ProjectTemplateGraph{}, err
	}

	return assembleTemplateGraph(pt, ets, rts, links), nil
}

func loadTemplateGraphTx(ctx context.Context, tx pgx.Tx, userID, id int64) (domain.ProjectTemplateGraph, error) {
	return loadTemplateGraph(ctx, tx, userID, id)
}

func loadEventTemplates(ctx context.Context, q Queryer, ptID int64) ([]domain.EventTemplate, error) {
	const query = `
		SELECT id, project_template_id, name, offset_days, duration_days, note, kind, auto_reschedule, updated_at
		FROM event_templates
		WHERE project_template_id = $1
		ORDER BY offset_days ASC, id ASC
	`

	rows, err := q.Query(ctx, query, ptID)
	if err != nil {
		return nil, fmt.Errorf("list event templates: %w", err)
	}
	defer rows.Close()

	var out []domain.EventTemplate
	for rows.Next() {
		var et domain.EventTemplate
		if err := rows.Scan(&et.ID, &et.ProjectTemplateID, &et.Name, &et.OffsetDays, &et.DurationDays,
			&et.Note, &et.Kind, &et.AutoReschedule, &et.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan event template: %w", err)
		}
		out = append(out, et)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list event templates: %w", err)
	}
	return out, nil
}

func loadReminderTemplates(ctx context.Context, q Queryer, ptID int64) ([]domain.ReminderTemplate, error) {
	const query = `
		SELECT rt.id, rt.event_template_id, rt.days_before, rt.time_of_day_minutes, rt.email_enabled, rt.desktop_enabled
		FROM reminder_templates rt
		JOIN event_templates et ON et.id = rt.event_template_id
		WHERE et.project_template_id = $1
		ORDER BY rt.id ASC
	`

	rows, err := q.Query(ctx, query, ptID)
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

func loadEventTemplateTagLinks(ctx context.Context, q Queryer, ptID int64) ([]tagLink, error) {
	const query = `
		SELECT ett.event_template_id, t.id, t.user_id, t.name
		FROM event_template_tags ett
		JOIN tags t ON t.id = ett.tag_id
		JOIN event_templates et ON et.id = ett.event_template_id
		WHERE et.project_template_id = $1
		ORDER BY t.name ASC
	`

	rows, err := q.Query(ctx, query, ptID)
	if err != nil {
		return nil, fmt.Errorf("list template tag links: %w", err)
	}
	defer rows.Close()

	var out []tagLink
	for rows.Next() {
		var l tagLink
		if err := rows.Scan(&l.OwnerID, &l.Tag.ID, &l.Tag.UserID, &l.Tag.Name); err != nil {
			return nil, fmt.Errorf("scan template tag link: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list template tag links: %w", err)
	}
	return out, nil
}
