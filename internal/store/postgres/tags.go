package postgres

import (
	"context"
	"fmt"

	"planloom/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type TagsStore struct {
	pool *pgxpool.Pool
}

func NewTagsStore(pool *pgxpool.Pool) *TagsStore {
	return &TagsStore{pool: pool}
}

func (s *TagsStore) ListTags(ctx context.Context, userID int64) ([]domain.Tag, error) {
	const q = `
		SELECT id, user_id, name
		FROM tags
		WHERE user_id = $1
		ORDER BY name ASC
	`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
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
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return out, nil
}

// CreateTag is the unchecked create path; colliding with an existing
// (user, name) pair is the caller's mistake, not a resolution race.
func (s *TagsStore) CreateTag(ctx context.Context, userID int64, name string) (domain.Tag, error) {
	const q = `
		INSERT INTO tags (user_id, name)
		VALUES ($1, $2)
		RETURNING id, user_id, name
	`

	var t domain.Tag
	err := s.pool.QueryRow(ctx, q, userID, name).Scan(&t.ID, &t.UserID, &t.Name)
	if err != nil {
		if uniqueViolation(err, "tags_owner_name_uq") {
			return domain.Tag{}, domain.ErrTagExists
		}
		return domain.Tag{}, fmt.Errorf("create tag: %w", err)
	}
	return t, nil
}

// resolveTags maps tag names to existing or freshly inserted tags inside the
// caller's transaction: one lookup for all names, inserts only for the
// missing ones. A unique violation here means a concurrent resolution of the
// same name slipped past the lookup, which serializable isolation should
// have prevented; it is surfaced as an internal inconsistency rather than
// silently merged.
func resolveTags(ctx context.Context, q Queryer, userID int64, names []string) ([]domain.Tag, error) {
	names = dedupeNames(names)
	if len(names) == 0 {
		return nil, nil
	}

	const lookup = `
		SELECT id, user_id, name
		FROM tags
		WHERE user_id = $1 AND name = ANY($2)
	`
	rows, err := q.Query(ctx, lookup, userID, names)
	if err != nil {
		return nil, fmt.Errorf("lookup tags: %w", err)
	}
	defer rows.Close()

	byName := make(map[string]domain.Tag, len(names))
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		byName[t.Name] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lookup tags: %w", err)
	}
	rows.Close()

	const insert = `
		INSERT INTO tags (user_id, name)
		VALUES ($1, $2)
		RETURNING id, user_id, name
	`
	for _, name := range names {
		if _, ok := byName[name]; ok {
			continue
		}
		var t domain.Tag
		if err := q.QueryRow(ctx, insert, userID, name).Scan(&t.ID, &t.UserID, &t.Name); err != nil {
			if uniqueViolation(err, "tags_owner_name_uq") {
				return nil, domain.NewAssertionError("resolveTags",
					"concurrent insert of tag %q for user %d not serialized", name, userID)
			}
			return nil, fmt.Errorf("insert tag %q: %w", name, err)
		}
		byName[name] = t
	}

	out := make([]domain.Tag, 0, len(names))
	for _, name := range names {
		out = append(out, byName[name])
	}
	return out, nil
}

func dedupeNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// Junction helpers. Tags are shared by reference: only junction rows are
// ever written or removed here, never tag rows.

func insertEventTemplateTags(ctx context.Context, q Queryer, eventTemplateID int64, tags []domain.Tag) error {
	const insert = `
		INSERT INTO event_template_tags (event_template_id, tag_id)
		VALUES ($1, $2)
	`
	for _, t := range tags {
		if _, err := q.Exec(ctx, insert, eventTemplateID, t.ID); err != nil {
			return fmt.Errorf("link tag %d to event template %d: %w", t.ID, eventTemplateID, err)
		}
	}
	return nil
}

func replaceEventTemplateTags(ctx context.Context, q Queryer, eventTemplateID int64, tags []domain.Tag) error {
	const del = `DELETE FROM event_template_tags WHERE event_template_id = $1`
	if _, err := q.Exec(ctx, del, eventTemplateID); err != nil {
		return fmt.Errorf("unlink event template tags: %w", err)
	}
	return insertEventTemplateTags(ctx, q, eventTemplateID, tags)
}

func insertEventTags(ctx context.Context, q Queryer, eventID int64, tags []domain.Tag) error {
	const insert = `
		INSERT INTO event_tags (event_id, tag_id)
		VALUES ($1, $2)
	`
	for _, t := range tags {
		if _, err := q.Exec(ctx, insert, eventID, t.ID); err != nil {
			return fmt.Errorf("link tag %d to event %d: %w", t.ID, eventID, err)
		}
	}
	return nil
}

func replaceEventTags(ctx context.Context, q Queryer, eventID int64, tags []domain.Tag) error {
	const del = `DELETE FROM event_tags WHERE event_id = $1`
	if _, err := q.Exec(ctx, del, eventID); err != nil {
		return fmt.Errorf("unlink event tags: %w", err)
	}
	return insertEventTags(ctx, q, eventID, tags)
}
