package postgres

import (
	"context"
	"fmt"
	"time"

	"planloom/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type TokensStore struct {
	pool *pgxpool.Pool
}

func NewTokensStore(pool *pgxpool.Pool) *TokensStore {
	return &TokensStore{pool: pool}
}

func (s *TokensStore) UpsertToken(ctx context.Context, userID int64, token, platform string, when time.Time) (domain.NotificationToken, error) {
	const q = `
		INSERT INTO notification_tokens (user_id, token, platform, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, token) DO UPDATE SET platform = EXCLUDED.platform, updated_at = EXCLUDED.updated_at
		RETURNING user_id, token, platform, updated_at
	`

	var t domain.NotificationToken
	err := s.pool.QueryRow(ctx, q, userID, token, platform, when).Scan(
		&t.UserID, &t.Token, &t.Platform, &t.UpdatedAt,
	)
	if err != nil {
		return domain.NotificationToken{}, fmt.Errorf("upsert notification token: %w", err)
	}
	return t, nil
}

func (s *TokensStore) DeleteToken(ctx context.Context, userID int64, token string) error {
	const q = `DELETE FROM notification_tokens WHERE user_id = $1 AND token = $2`

	if _, err := s.pool.Exec(ctx, q, userID, token); err != nil {
		return fmt.Errorf("delete notification token: %w", err)
	}
	return nil
}

func (s *TokensStore) ListTokens(ctx context.Context, userID int64) ([]domain.NotificationToken, error) {
	const q = `
		SELECT user_id, token, platform, updated_at
		FROM notification_tokens
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list notification tokens: %w", err)
	}
	defer rows.Close()

	var out []domain.NotificationToken
	for rows.Next() {
		var t domain.NotificationToken
		if err := rows.Scan(&t.UserID, &t.Token, &t.Platform, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan notification token: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notification tokens: %w", err)
	}
	return out, nil
}
