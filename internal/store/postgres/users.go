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

type UsersStore struct {
	pool *pgxpool.Pool
}

func NewUsersStore(pool *pgxpool.Pool) *UsersStore {
	return &UsersStore{pool: pool}
}

// CreateUser inserts the user and their default settings row in one
// transaction; a user row never exists without settings.
func (s *UsersStore) CreateUser(ctx context.Context, email, username, passwordHash string) (domain.User, error) {
	var u domain.User
	err := runTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		u, err = insertUser(ctx, tx, email, username, passwordHash)
		return err
	})
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func insertUser(ctx context.Context, tx pgx.Tx, email, username, passwordHash string) (domain.User, error) {
	const q = `
		INSERT INTO users (email, username, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, email, username, created_at
	`

	var (
		u         domain.User
		emailText pgtype.Text
	)
	err := tx.QueryRow(ctx, q, nullIfEmpty(email), username, passwordHash).Scan(
		&u.ID, &emailText, &u.Username, &u.CreatedAt,
	)
	if err != nil {
		switch {
		case uniqueViolation(err, "users_username_uq"):
			return domain.User{}, domain.ErrUsernameTaken
		case uniqueViolation(err, "users_email_uq"):
			return domain.User{}, domain.ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	u.Email = textOrEmpty(emailText)

	def := domain.DefaultSettings(u.ID)
	const qs = `
		INSERT INTO user_settings (user_id, week_start, date_format, email_notifications, desktop_notifications)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.Exec(ctx, qs, u.ID, def.WeekStart, def.DateFormat, def.EmailNotifications, def.DesktopNotifications); err != nil {
		return domain.User{}, fmt.Errorf("insert user settings: %w", err)
	}

	return u, nil
}

func (s *UsersStore) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	const q = `
		SELECT id, email, username, created_at
		FROM users
		WHERE id = $1
	`

	var (
		u         domain.User
		emailText pgtype.Text
	)
	err := s.pool.QueryRow(ctx, q, id).Scan(&u.ID, &emailText, &u.Username, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user by id: %w", err)
	}
	u.Email = textOrEmpty(emailText)
	return u, nil
}

func (s *UsersStore) GetUserByLogin(ctx context.Context, login string) (domain.UserWithPassword, error) {
	const q = `
		SELECT id, email, username, password_hash, created_at
		FROM users
		WHERE username = $1 OR (email IS NOT NULL AND email = $1)
		ORDER BY (username = $1) DESC
		LIMIT 1
	`
	return s.scanUserWithPassword(ctx, q, login)
}

func (s *UsersStore) GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error) {
	const q = `
		SELECT id, email, username, password_hash, created_at
		FROM users
		WHERE email = $1
		LIMIT 1
	`
	return s.scanUserWithPassword(ctx, q, email)
}

func (s *UsersStore) scanUserWithPassword(ctx context.Context, q string, arg any) (domain.UserWithPassword, error) {
	var (
		u         domain.UserWithPassword
		emailText pgtype.Text
	)
	err := s.pool.QueryRow(ctx, q, arg).Scan(&u.ID, &emailText, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserWithPassword{}, domain.ErrNotFound
		}
		return domain.UserWithPassword{}, fmt.Errorf("get user: %w", err)
	}
	u.Email = textOrEmpty(emailText)
	return u, nil
}

func (s *UsersStore) GetUserByExternalAccount(ctx context.Context, provider, providerID string) (domain.User, error) {
	const q = `
		SELECT u.id, u.email, u.username, u.created_at
		FROM external_accounts ea
		JOIN users u ON u.id = ea.user_id
		WHERE ea.provider = $1 AND ea.provider_id = $2
	`

	var (
		u         domain.User
		emailText pgtype.Text
	)
	err := s.pool.QueryRow(ctx, q, provider, providerID).Scan(&u.ID, &emailText, &u.Username, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user by external account: %w", err)
	}
	u.Email = textOrEmpty(emailText)
	return u, nil
}

func (s *UsersStore) CreateUserWithExternalAccount(ctx context.Context, provider, providerID, email, username, passwordHash string) (domain.User, error) {
	var u domain.User
	err := runTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		u, err = insertUser(ctx, tx, email, username, passwordHash)
		if err != nil {
			return err
		}
		return insertExternalAccount(ctx, tx, u.ID, provider, providerID, email)
	})
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (s *UsersStore) LinkExternalAccount(ctx context.Context, userID int64, provider, providerID, email string) error {
	return runTx(ctx, s.pool, func(tx pgx.Tx) error {
		return insertExternalAccount(ctx, tx, userID, provider, providerID, email)
	})
}

func insertExternalAccount(ctx context.Context, tx pgx.Tx, userID int64, provider, providerID, email string) error {
	const q = `
		INSERT INTO external_accounts (user_id, provider, provider_id, email)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := tx.Exec(ctx, q, userID, provider, providerID, nullIfEmpty(email)); err != nil {
		switch {
		case uniqueViolation(err, "external_accounts_provider_uq"):
			return domain.ErrForbidden
		case foreignKeyViolation(err):
			// The user row vanished between lookup and link.
			return domain.ErrNotFound
		}
		return fmt.Errorf("insert external account: %w", err)
	}
	return nil
}
