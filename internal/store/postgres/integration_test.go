package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"planloom/internal/domain"
)

// These tests exercise behavior only a real database shows: constraint
// mapping, the ownership guard and transactional rollback. They run when
// APP_TEST_DB_DSN points at a disposable Postgres database and skip
// otherwise. Every row they create carries a unique name and is removed on
// cleanup, so reruns against the same database are safe.

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("APP_TEST_DB_DSN")
	if dsn == "" {
		t.Skip("APP_TEST_DB_DSN not set")
	}

	ctx := context.Background()
	pool, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := EnsureSchema(ctx, pool); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return pool
}

func uniqueName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// createTestUser makes a throwaway user; deleting it cascades to everything
// the test created under it.
func createTestUser(t *testing.T, pool *pgxpool.Pool) domain.User {
	t.Helper()

	name := uniqueName("user")
	u, err := NewUsersStore(pool).CreateUser(context.Background(), name+"@example.com", name, "x")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, u.ID)
	})
	return u
}

func TestProjectReadsAreOwnerScoped(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	projects := NewProjectsStore(pool)

	alice := createTestUser(t, pool)
	bob := createTestUser(t, pool)

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p, err := projects.CreateProject(ctx, alice.ID, uniqueName("launch"), "", start)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	if _, err := projects.GetProjectGraph(ctx, bob.ID, p.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound reading another user's project, got %v", err)
	}
	if _, err := projects.GetProjectGraph(ctx, alice.ID, p.ID); err != nil {
		t.Fatalf("owner read failed: %v", err)
	}
}

func TestCreateProjectDuplicateNamePerOwner(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	projects := NewProjectsStore(pool)

	alice := createTestUser(t, pool)
	bob := createTestUser(t, pool)

	name := uniqueName("launch")
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	if _, err := projects.CreateProject(ctx, alice.ID, name, "", start); err != nil {
		t.Fatalf("create project: %v", err)
	}
	if _, err := projects.CreateProject(ctx, alice.ID, name, "", start); !errors.Is(err, domain.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	// Uniqueness is per owner, not global.
	if _, err := projects.CreateProject(ctx, bob.ID, name, "", start); err != nil {
		t.Fatalf("same name under another user failed: %v", err)
	}
}

func TestDeleteProjectsMixedSetRollsBack(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	projects := NewProjectsStore(pool)

	alice := createTestUser(t, pool)
	bob := createTestUser(t, pool)

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mine, err := projects.CreateProject(ctx, alice.ID, uniqueName("mine"), "", start)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	theirs, err := projects.CreateProject(ctx, bob.ID, uniqueName("theirs"), "", start)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	if _, err := projects.DeleteProjects(ctx, alice.ID, []int64{mine.ID, theirs.ID}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for mixed-owner delete, got %v", err)
	}

	// The whole set rolled back: the owned project survives too.
	if _, err := projects.GetProjectGraph(ctx, alice.ID, mine.ID); err != nil {
		t.Fatalf("owned project gone after failed bulk delete: %v", err)
	}
	if _, err := projects.GetProjectGraph(ctx, bob.ID, theirs.ID); err != nil {
		t.Fatalf("foreign project gone after failed bulk delete: %v", err)
	}
}

func TestDuplicateProjectTemplateSharesTagsAndKeepsSource(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	templates := NewProjectTemplatesStore(pool)

	alice := createTestUser(t, pool)
	bob := createTestUser(t, pool)

	imp := domain.TemplateImport{
		Name:        uniqueName("onboarding"),
		Description: "new hire checklist",
		EventTemplates: []domain.EventTemplateInput{
			{
				Name:         "Prepare workstation",
				OffsetDays:   0,
				DurationDays: 1,
				Kind:         domain.EventKindTask,
				TagNames:     []string{"it", "hardware"},
				Reminders: []domain.ReminderTemplateInput{
					{DaysBefore: 1, TimeOfDayMinutes: 540, EmailEnabled: true, DesktopEnabled: true},
				},
			},
			{
				Name:         "First week",
				OffsetDays:   3,
				DurationDays: 5,
				Kind:         domain.EventKindActivity,
				TagNames:     []string{"it"},
			},
		},
	}
	src, err := templates.ImportProjectTemplate(ctx, alice.ID, imp)
	if err != nil {
		t.Fatalf("import template: %v", err)
	}

	if _, err := templates.DuplicateProjectTemplate(ctx, bob.ID, src.ID, uniqueName("stolen")); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound duplicating another user's template, got %v", err)
	}

	dup, err := templates.DuplicateProjectTemplate(ctx, alice.ID, src.ID, uniqueName("copy"))
	if err != nil {
		t.Fatalf("duplicate template: %v", err)
	}
	if dup.ID == src.ID {
		t.Fatalf("duplicate reused the source id %d", src.ID)
	}
	if dup.Description != src.Description {
		t.Fatalf("description not carried: %q", dup.Description)
	}
	if len(dup.EventTemplates) != len(src.EventTemplates) {
		t.Fatalf("event templates: got %d, want %d", len(dup.EventTemplates), len(src.EventTemplates))
	}
	for i, et := range dup.EventTemplates {
		want := src.EventTemplates[i]
		if et.ID == want.ID {
			t.Fatalf("event template %d reused the source row", i)
		}
		if et.Name != want.Name || et.OffsetDays != want.OffsetDays || et.DurationDays != want.DurationDays {
			t.Fatalf("event template %d differs: %+v", i, et.EventTemplate)
		}
		if len(et.Reminders) != len(want.Reminders) {
			t.Fatalf("event template %d reminders: got %d, want %d", i, len(et.Reminders), len(want.Reminders))
		}
		// Tags are shared by reference, not copied.
		if len(et.Tags) != len(want.Tags) {
			t.Fatalf("event template %d tags: got %d, want %d", i, len(et.Tags), len(want.Tags))
		}
		wantTags := make(map[int64]bool, len(want.Tags))
		for _, tag := range want.Tags {
			wantTags[tag.ID] = true
		}
		for _, tag := range et.Tags {
			if !wantTags[tag.ID] {
				t.Fatalf("event template %d links tag %d, not a source tag row", i, tag.ID)
			}
		}
	}

	// The source graph is untouched by duplication.
	after, err := templates.GetProjectTemplateGraph(ctx, alice.ID, src.ID)
	if err != nil {
		t.Fatalf("reread source: %v", err)
	}
	if after.Name != src.Name || len(after.EventTemplates) != len(src.EventTemplates) {
		t.Fatalf("source modified by duplication: %+v", after.ProjectTemplate)
	}
}
