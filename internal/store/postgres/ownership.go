package postgres

import (
	"context"
	"fmt"

	"planloom/internal/domain"
)

// OwnedKind names an entity family for ownership checks.
type OwnedKind string

const (
	OwnedProjectTemplate  OwnedKind = "project_template"
	OwnedEventTemplate    OwnedKind = "event_template"
	OwnedReminderTemplate OwnedKind = "reminder_template"
	OwnedProject          OwnedKind = "project"
	OwnedEvent            OwnedKind = "event"
	OwnedReminder         OwnedKind = "reminder"
	OwnedTag              OwnedKind = "tag"
)

// One join query per kind, walking the ownership chain up to the user.
var ownershipQueries = map[OwnedKind]string{
	OwnedProjectTemplate: `
		SELECT count(*) FROM project_templates
		WHERE user_id = $1 AND id = ANY($2)`,
	OwnedEventTemplate: `
		SELECT count(*) FROM event_templates et
		JOIN project_templates pt ON pt.id = et.project_template_id
		WHERE pt.user_id = $1 AND et.id = ANY($2)`,
	OwnedReminderTemplate: `
		SELECT count(*) FROM reminder_templates rt
		JOIN event_templates et ON et.id = rt.event_template_id
		JOIN project_templates pt ON pt.id = et.project_template_id
		WHERE pt.user_id = $1 AND rt.id = ANY($2)`,
	OwnedProject: `
		SELECT count(*) FROM projects
		WHERE user_id = $1 AND id = ANY($2)`,
	OwnedEvent: `
		SELECT count(*) FROM events e
		JOIN projects p ON p.id = e.project_id
		WHERE p.user_id = $1 AND e.id = ANY($2)`,
	OwnedReminder: `
		SELECT count(*) FROM reminders r
		JOIN events e ON e.id = r.event_id
		JOIN projects p ON p.id = e.project_id
		WHERE p.user_id = $1 AND r.id = ANY($2)`,
	OwnedTag: `
		SELECT count(*) FROM tags
		WHERE user_id = $1 AND id = ANY($2)`,
}

// checkOwned verifies every id in the set is transitively owned by userID.
// A shortfall means one or more entities do not exist or belong to someone
// else; a surplus can only be a data-model bug and is an assertion failure.
func checkOwned(ctx context.Context, q Queryer, kind OwnedKind, userID int64, ids []int64) error {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return nil
	}

	query, ok := ownershipQueries[kind]
	if !ok {
		return domain.NewAssertionError("checkOwned", "unknown kind %q", kind)
	}

	var count int
	if err := q.QueryRow(ctx, query, userID, ids).Scan(&count); err != nil {
		return fmt.Errorf("check ownership (%s): %w", kind, err)
	}

	switch {
	case count < len(ids):
		return domain.ErrNotFound
	case count > len(ids):
		return domain.NewAssertionError("checkOwned",
			"%s: %d rows matched %d requested ids for user %d", kind, count, len(ids), userID)
	}
	return nil
}
