package postgres

import (
	"context"
	"errors"
	"fmt"

	"planloom/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SettingsStore struct {
	pool *pgxpool.Pool
}

func NewSettingsStore(pool *pgxpool.Pool) *SettingsStore {
	return &SettingsStore{pool: pool}
}

func (s *SettingsStore) GetSettings(ctx context.Context, userID int64) (domain.UserSettings, error) {
	const q = `
		SELECT user_id, week_start, date_format, email_notifications, desktop_notifications
		FROM user_settings
		WHERE user_id = $1
	`

	var st domain.UserSettings
	err := s.pool.QueryRow(ctx, q, userID).Scan(
		&st.UserID, &st.WeekStart, &st.DateFormat, &st.EmailNotifications, &st.DesktopNotifications,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserSettings{}, domain.ErrNotFound
		}
		return domain.UserSettings{}, fmt.Errorf("get settings: %w", err)
	}
	return st, nil
}

func (s *SettingsStore) UpdateSettings(ctx context.Context, st domain.UserSettings) (domain.UserSettings, error) {
	const q = `
		UPDATE user_settings
		SET week_start = $2, date_format = $3, email_notifications = $4, desktop_notifications = $5
		WHERE user_id = $1
		RETURNING user_id, week_start, date_format, email_notifications, desktop_notifications
	`

	var out domain.UserSettings
	err := s.pool.QueryRow(ctx, q,
		st.UserID, st.WeekStart, st.DateFormat, st.EmailNotifications, st.DesktopNotifications,
	).Scan(&out.UserID, &out.WeekStart, &out.DateFormat, &out.EmailNotifications, &out.DesktopNotifications)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserSettings{}, domain.ErrNotFound
		}
		return domain.UserSettings{}, fmt.Errorf("update settings: %w", err)
	}
	return out, nil
}
