package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		email         TEXT,
		username      TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT users_username_uq UNIQUE (username)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_uq ON users (email) WHERE email IS NOT NULL`,

	`CREATE TABLE IF NOT EXISTS user_settings (
		user_id               BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		week_start            TEXT NOT NULL DEFAULT 'monday',
		date_format           TEXT NOT NULL DEFAULT 'ymd',
		email_notifications   BOOLEAN NOT NULL DEFAULT TRUE,
		desktop_notifications BOOLEAN NOT NULL DEFAULT TRUE
	)`,

	`CREATE TABLE IF NOT EXISTS external_accounts (
		id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		user_id     BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		provider    TEXT NOT NULL,
		provider_id TEXT NOT NULL,
		email       TEXT,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT external_accounts_provider_uq UNIQUE (provider, provider_id)
	)`,

	`CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		user_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		expires_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS sessions_expires_idx ON sessions (expires_at)`,

	`CREATE TABLE IF NOT EXISTS notification_tokens (
		user_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token      TEXT NOT NULL,
		platform   TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, token)
	)`,

	`CREATE TABLE IF NOT EXISTS tags (
		id      BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name    TEXT NOT NULL,
		CONSTRAINT tags_owner_name_uq UNIQUE (user_id, name)
	)`,

	`CREATE TABLE IF NOT EXISTS project_templates (
		id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		user_id     BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT project_templates_owner_name_uq UNIQUE (user_id, name)
	)`,

	`CREATE TABLE IF NOT EXISTS event_templates (
		id                  BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		project_template_id BIGINT NOT NULL REFERENCES project_templates(id) ON DELETE CASCADE,
		name                TEXT NOT NULL,
		offset_days         INTEGER NOT NULL DEFAULT 0,
		duration_days       INTEGER NOT NULL DEFAULT 1,
		note                TEXT NOT NULL DEFAULT '',
		kind                TEXT NOT NULL,
		auto_reschedule     BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT event_templates_duration_min_ck CHECK (duration_days >= 1),
		CONSTRAINT event_templates_task_duration_ck CHECK (kind <> 'task' OR duration_days = 1)
	)`,
	`CREATE INDEX IF NOT EXISTS event_templates_parent_idx ON event_templates (project_template_id)`,

	`CREATE TABLE IF NOT EXISTS event_template_tags (
		event_template_id BIGINT NOT NULL REFERENCES event_templates(id) ON DELETE CASCADE,
		tag_id            BIGINT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
		PRIMARY KEY (event_template_id, tag_id)
	)`,

	`CREATE TABLE IF NOT EXISTS reminder_templates (
		id                  BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		event_template_id   BIGINT NOT NULL REFERENCES event_templates(id) ON DELETE CASCADE,
		days_before         INTEGER NOT NULL DEFAULT 0,
		time_of_day_minutes INTEGER NOT NULL DEFAULT 540,
		email_enabled       BOOLEAN NOT NULL DEFAULT TRUE,
		desktop_enabled     BOOLEAN NOT NULL DEFAULT TRUE,
		CONSTRAINT reminder_templates_time_ck CHECK (time_of_day_minutes >= 0 AND time_of_day_minutes < 1440)
	)`,
	`CREATE INDEX IF NOT EXISTS reminder_templates_parent_idx ON reminder_templates (event_template_id)`,

	`CREATE TABLE IF NOT EXISTS projects (
		id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		user_id     BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		start_date  DATE NOT NULL,
		template_id BIGINT REFERENCES project_templates(id) ON DELETE SET NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT projects_owner_name_uq UNIQUE (user_id, name)
	)`,

	`CREATE TABLE IF NOT EXISTS events (
		id                    BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		project_id            BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		name                  TEXT NOT NULL,
		start_date            DATE NOT NULL,
		duration_days         INTEGER NOT NULL DEFAULT 1,
		note                  TEXT NOT NULL DEFAULT '',
		kind                  TEXT NOT NULL,
		auto_reschedule       BOOLEAN NOT NULL DEFAULT FALSE,
		status                TEXT NOT NULL DEFAULT 'not_started',
		notifications_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		template_id           BIGINT REFERENCES event_templates(id) ON DELETE SET NULL,
		updated_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT events_duration_min_ck CHECK (duration_days >= 1),
		CONSTRAINT events_task_duration_ck CHECK (kind <> 'task' OR duration_days = 1)
	)`,
	`CREATE INDEX IF NOT EXISTS events_parent_idx ON events (project_id)`,

	`CREATE TABLE IF NOT EXISTS event_tags (
		event_id BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		tag_id   BIGINT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
		PRIMARY KEY (event_id, tag_id)
	)`,

	`CREATE TABLE IF NOT EXISTS reminders (
		id              BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		event_id        BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		trigger_at      TIMESTAMPTZ NOT NULL,
		email_enabled   BOOLEAN NOT NULL DEFAULT TRUE,
		desktop_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		job_handle      BIGINT,
		fired_at        TIMESTAMPTZ,
		template_id     BIGINT REFERENCES reminder_templates(id) ON DELETE SET NULL
	)`,
	`CREATE INDEX IF NOT EXISTS reminders_parent_idx ON reminders (event_id)`,
	`CREATE INDEX IF NOT EXISTS reminders_trigger_idx ON reminders (trigger_at)`,
}

// EnsureSchema applies the schema idempotently at startup.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
