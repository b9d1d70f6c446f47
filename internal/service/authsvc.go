package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"planloom/internal/auth"
	"planloom/internal/domain"
)

type UsersStore interface {
	CreateUser(ctx context.Context, email, username, passwordHash string) (domain.User, error)
	GetUserByID(ctx context.Context, id int64) (domain.User, error)
	GetUserByLogin(ctx context.Context, login string) (domain.UserWithPassword, error)
	GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error)
	GetUserByExternalAccount(ctx context.Context, provider, providerID string) (domain.User, error)
	CreateUserWithExternalAccount(ctx context.Context, provider, providerID, email, username, passwordHash string) (domain.User, error)
	LinkExternalAccount(ctx context.Context, userID int64, provider, providerID, email string) error
}

type SessionsStore interface {
	CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time) error
	GetSession(ctx context.Context, id string) (domain.Session, error)
	ExtendSession(ctx context.Context, id string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type AuthService struct {
	Users      UsersStore
	Sessions   SessionsStore
	SessionTTL time.Duration
	Now        func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Register creates the user and opens a session. The returned token is the
// raw session token for the cookie; only its digest is stored.
func (s *AuthService) Register(ctx context.Context, email, username, password string) (domain.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	username = strings.TrimSpace(username)

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", err
	}

	u, err := s.Users.CreateUser(ctx, email, username, passwordHash)
	if err != nil {
		return domain.User{}, "", err
	}

	token, err := s.openSession(ctx, u.ID)
	if err != nil {
		return domain.User{}, "", err
	}
	return u, token, nil
}

func (s *AuthService) Login(ctx context.Context, login, password string) (domain.User, string, error) {
	login = strings.TrimSpace(login)

	u, err := s.Users.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, "", domain.ErrInvalidCredentials
		}
		return domain.User{}, "", err
	}

	ok, err := auth.VerifyPassword(u.PasswordHash, password)
	if err != nil {
		return domain.User{}, "", err
	}
	if !ok {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}

	token, err := s.openSession(ctx, u.ID)
	if err != nil {
		return domain.User{}, "", err
	}
	return u.User, token, nil
}

// LoginExternal signs in via a verified identity-provider claim. On first
// contact the provider identity is linked to an existing account with the
// same verified email, or a fresh account is created.
func (s *AuthService) LoginExternal(ctx context.Context, provider string, claims *auth.ExternalTokenClaims) (domain.User, string, error) {
	u, err := s.Users.GetUserByExternalAccount(ctx, provider, claims.Subject)
	if errors.Is(err, domain.ErrNotFound) {
		u, err = s.adoptExternalAccount(ctx, provider, claims)
	}
	if err != nil {
		return domain.User{}, "", err
	}

	token, err := s.openSession(ctx, u.ID)
	if err != nil {
		return domain.User{}, "", err
	}
	return u, token, nil
}

func (s *AuthService) adoptExternalAccount(ctx context.Context, provider string, claims *auth.ExternalTokenClaims) (domain.User, error) {
	email := strings.TrimSpace(strings.ToLower(claims.Email))

	if email != "" {
		existing, err := s.Users.GetUserByEmail(ctx, email)
		switch {
		case err == nil:
			if err := s.Users.LinkExternalAccount(ctx, existing.ID, provider, claims.Subject, email); err != nil {
				return domain.User{}, err
			}
			return existing.User, nil
		case !errors.Is(err, domain.ErrNotFound):
			return domain.User{}, err
		}
	}

	u, err := s.Users.CreateUserWithExternalAccount(ctx, provider, claims.Subject,
		email, externalUsername(provider, claims), "")
	if errors.Is(err, domain.ErrUsernameTaken) {
		u, err = s.Users.CreateUserWithExternalAccount(ctx, provider, claims.Subject,
			email, provider+"-"+claims.Subject, "")
	}
	return u, err
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.Sessions.DeleteSession(ctx, auth.DigestSessionToken(token))
}

// GetUserForSession resolves the session and slides its expiry forward once
// less than half the TTL remains.
func (s *AuthService) GetUserForSession(ctx context.Context, token string) (domain.User, error) {
	digest := auth.DigestSessionToken(token)

	sess, err := s.Sessions.GetSession(ctx, digest)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrUnauthorized
		}
		return domain.User{}, err
	}

	now := s.now()
	if sess.ExpiresAt.Sub(now) < s.SessionTTL/2 {
		if err := s.Sessions.ExtendSession(ctx, digest, now.Add(s.SessionTTL)); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, err
		}
	}

	u, err := s.Users.GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrUnauthorized
		}
		return domain.User{}, err
	}
	return u, nil
}

func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return s.Sessions.DeleteExpired(ctx, s.now())
}

func (s *AuthService) openSession(ctx context.Context, userID int64) (string, error) {
	token, digest, err := auth.NewSessionToken()
	if err != nil {
		return "", err
	}
	if err := s.Sessions.CreateSession(ctx, digest, userID, s.now().Add(s.SessionTTL)); err != nil {
		return "", err
	}
	return token, nil
}

func externalUsername(provider string, claims *auth.ExternalTokenClaims) string {
	if at := strings.IndexByte(claims.Email, '@'); at > 0 {
		return claims.Email[:at]
	}
	return provider + "-" + claims.Subject
}
