package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"planloom/internal/auth"
	"planloom/internal/domain"
)

type stubUsersStore struct {
	t *testing.T

	createUserFunc             func(context.Context, string, string, string) (domain.User, error)
	getUserByIDFunc            func(context.Context, int64) (domain.User, error)
	getUserByLoginFunc         func(context.Context, string) (domain.UserWithPassword, error)
	getUserByEmailFunc         func(context.Context, string) (domain.UserWithPassword, error)
	getUserByExternalFunc      func(context.Context, string, string) (domain.User, error)
	createUserWithExternalFunc func(context.Context, string, string, string, string, string) (domain.User, error)
	linkExternalFunc           func(context.Context, int64, string, string, string) error
}

func (s *stubUsersStore) CreateUser(ctx context.Context, email, username, passwordHash string) (domain.User, error) {
	if s.createUserFunc != nil {
		return s.createUserFunc(ctx, email, username, passwordHash)
	}
	s.t.Fatalf("CreateUser called unexpectedly")
	return domain.User{}, errors.New("unexpected call")
}

func (s *stubUsersStore) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	if s.getUserByIDFunc != nil {
		return s.getUserByIDFunc(ctx, id)
	}
	s.t.Fatalf("GetUserByID called unexpectedly")
	return domain.User{}, errors.New("unexpected call")
}

func (s *stubUsersStore) GetUserByLogin(ctx context.Context, login string) (domain.UserWithPassword, error) {
	if s.getUserByLoginFunc != nil {
		return s.getUserByLoginFunc(ctx, login)
	}
	s.t.Fatalf("GetUserByLogin called unexpectedly")
	return domain.UserWithPassword{}, errors.New("unexpected call")
}

func (s *stubUsersStore) GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error) {
	if s.getUserByEmailFunc != nil {
		return s.getUserByEmailFunc(ctx, email)
	}
	s.t.Fatalf("GetUserByEmail called unexpectedly")
	return domain.UserWithPassword{}, errors.New("unexpected call")
}

func (s *stubUsersStore) GetUserByExternalAccount(ctx context.Context, provider, providerID string) (domain.User, error) {
	if s.getUserByExternalFunc != nil {
		return s.getUserByExternalFunc(ctx, provider, providerID)
	}
	s.t.Fatalf("GetUserByExternalAccount called unexpectedly")
	return domain.User{}, errors.New("unexpected call")
}

func (s *stubUsersStore) CreateUserWithExternalAccount(ctx context.Context, provider, providerID, email, username, passwordHash string) (domain.User, error) {
	if s.createUserWithExternalFunc != nil {
		return s.createUserWithExternalFunc(ctx, provider, providerID, email, username, passwordHash)
	}
	s.t.Fatalf("CreateUserWithExternalAccount called unexpectedly")
	return domain.User{}, errors.New("unexpected call")
}

func (s *stubUsersStore) LinkExternalAccount(ctx context.Context, userID int64, provider, providerID, email string) error {
	if s.linkExternalFunc != nil {
		return s.linkExternalFunc(ctx, userID, provider, providerID, email)
	}
	s.t.Fatalf("LinkExternalAccount called unexpectedly")
	return errors.New("unexpected call")
}

type stubSessionsStore struct {
	t *testing.T

	createSessionFunc func(context.Context, string, int64, time.Time) error
	getSessionFunc    func(context.Context, string) (domain.Session, error)
	extendSessionFunc func(context.Context, string, time.Time) error
	deleteSessionFunc func(context.Context, string) error
	deleteExpiredFunc func(context.Context, time.Time) (int64, error)
}

func (s *stubSessionsStore) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time) error {
	if s.createSessionFunc != nil {
		return s.createSessionFunc(ctx, id, userID, expiresAt)
	}
	s.t.Fatalf("CreateSession called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubSessionsStore) GetSession(ctx context.Context, id string) (domain.Session, error) {
	if s.getSessionFunc != nil {
		return s.getSessionFunc(ctx, id)
	}
	s.t.Fatalf("GetSession called unexpectedly")
	return domain.Session{}, errors.New("unexpected call")
}

func (s *stubSessionsStore) ExtendSession(ctx context.Context, id string, expiresAt time.Time) error {
	if s.extendSessionFunc != nil {
		return s.extendSessionFunc(ctx, id, expiresAt)
	}
	s.t.Fatalf("ExtendSession called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubSessionsStore) DeleteSession(ctx context.Context, id string) error {
	if s.deleteSessionFunc != nil {
		return s.deleteSessionFunc(ctx, id)
	}
	s.t.Fatalf("DeleteSession called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubSessionsStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if s.deleteExpiredFunc != nil {
		return s.deleteExpiredFunc(ctx, now)
	}
	s.t.Fatalf("DeleteExpired called unexpectedly")
	return 0, errors.New("unexpected call")
}

func TestAuthServiceRegisterNormalizesAndOpensSession(t *testing.T) {
	var gotEmail, gotUsername, gotDigest string

	users := &stubUsersStore{
		t: t,
		createUserFunc: func(_ context.Context, email, username, passwordHash string) (domain.User, error) {
			gotEmail = email
			gotUsername = username
			if passwordHash == "" {
				t.Fatalf("expected non-empty password hash")
			}
			return domain.User{ID: 1, Email: email, Username: username}, nil
		},
	}
	sessions := &stubSessionsStore{
		t: t,
		createSessionFunc: func(_ context.Context, id string, userID int64, _ time.Time) error {
			gotDigest = id
			if userID != 1 {
				t.Fatalf("unexpected user id: %d", userID)
			}
			return nil
		},
	}

	svc := &AuthService{Users: users, Sessions: sessions, SessionTTL: time.Hour}
	u, token, err := svc.Register(context.Background(), "  Amy@Example.COM ", " amy ", "hunter2secret")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if gotEmail != "amy@example.com" || gotUsername != "amy" {
		t.Fatalf("input not normalized: email=%q username=%q", gotEmail, gotUsername)
	}
	if u.ID != 1 {
		t.Fatalf("unexpected user: %+v", u)
	}
	if token == "" {
		t.Fatalf("expected session token")
	}
	if auth.DigestSessionToken(token) != gotDigest {
		t.Fatalf("stored digest does not match token")
	}
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	hash, err := auth.HashPassword("correct-password")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	users := &stubUsersStore{
		t: t,
		getUserByLoginFunc: func(_ context.Context, login string) (domain.UserWithPassword, error) {
			return domain.UserWithPassword{
				User:         domain.User{ID: 1, Username: login},
				PasswordHash: hash,
			}, nil
		},
	}

	svc := &AuthService{Users: users, Sessions: &stubSessionsStore{t: t}, SessionTTL: time.Hour}
	_, _, err = svc.Login(context.Background(), "amy", "wrong-password")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthServiceLoginUnknownUserMapsToInvalidCredentials(t *testing.T) {
	users := &stubUsersStore{
		t: t,
		getUserByLoginFunc: func(context.Context, string) (domain.UserWithPassword, error) {
			return domain.UserWithPassword{}, domain.ErrNotFound
		},
	}

	svc := &AuthService{Users: users, Sessions: &stubSessionsStore{t: t}, SessionTTL: time.Hour}
	_, _, err := svc.Login(context.Background(), "nobody", "whatever")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthServiceSessionSlidesWhenNearExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ttl := 10 * time.Hour

	extended := false
	sessions := &stubSessionsStore{
		t: t,
		getSessionFunc: func(_ context.Context, id string) (domain.Session, error) {
			return domain.Session{ID: id, UserID: 4, ExpiresAt: now.Add(time.Hour)}, nil
		},
		extendSessionFunc: func(_ context.Context, _ string, expiresAt time.Time) error {
			extended = true
			if !expiresAt.Equal(now.Add(ttl)) {
				t.Fatalf("unexpected new expiry: %v", expiresAt)
			}
			return nil
		},
	}
	users := &stubUsersStore{
		t: t,
		getUserByIDFunc: func(_ context.Context, id int64) (domain.User, error) {
			return domain.User{ID: id, Username: "amy"}, nil
		},
	}

	svc := &AuthService{Users: users, Sessions: sessions, SessionTTL: ttl, Now: func() time.Time { return now }}
	u, err := svc.GetUserForSession(context.Background(), "raw-token")
	if err != nil {
		t.Fatalf("GetUserForSession returned error: %v", err)
	}
	if u.ID != 4 {
		t.Fatalf("unexpected user: %+v", u)
	}
	if !extended {
		t.Fatalf("expected session to be extended")
	}
}

func TestAuthServiceSessionNotExtendedWhenFresh(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ttl := 10 * time.Hour

	sessions := &stubSessionsStore{
		t: t,
		getSessionFunc: func(_ context.Context, id string) (domain.Session, error) {
			return domain.Session{ID: id, UserID: 4, ExpiresAt: now.Add(9 * time.Hour)}, nil
		},
	}
	users := &stubUsersStore{
		t: t,
		getUserByIDFunc: func(_ context.Context, id int64) (domain.User, error) {
			return domain.User{ID: id}, nil
		},
	}

	svc := &AuthService{Users: users, Sessions: sessions, SessionTTL: ttl, Now: func() time.Time { return now }}
	if _, err := svc.GetUserForSession(context.Background(), "raw-token"); err != nil {
		t.Fatalf("GetUserForSession returned error: %v", err)
	}
}

func TestAuthServiceUnknownSessionMapsToUnauthorized(t *testing.T) {
	sessions := &stubSessionsStore{
		t: t,
		getSessionFunc: func(context.Context, string) (domain.Session, error) {
			return domain.Session{}, domain.ErrNotFound
		},
	}

	svc := &AuthService{Users: &stubUsersStore{t: t}, Sessions: sessions, SessionTTL: time.Hour}
	_, err := svc.GetUserForSession(context.Background(), "raw-token")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthServiceLoginExternalCreatesOnFirstContact(t *testing.T) {
	created := false
	users := &stubUsersStore{
		t: t,
		getUserByExternalFunc: func(context.Context, string, string) (domain.User, error) {
			return domain.User{}, domain.ErrNotFound
		},
		getUserByEmailFunc: func(context.Context, string) (domain.UserWithPassword, error) {
			return domain.UserWithPassword{}, domain.ErrNotFound
		},
		createUserWithExternalFunc: func(_ context.Context, provider, providerID, email, username, _ string) (domain.User, error) {
			created = true
			if provider != "google" || providerID != "sub-123" {
				t.Fatalf("unexpected provider identity: %s/%s", provider, providerID)
			}
			if username != "amy" {
				t.Fatalf("unexpected username: %q", username)
			}
			return domain.User{ID: 9, Email: email, Username: username}, nil
		},
	}
	sessions := &stubSessionsStore{
		t: t,
		createSessionFunc: func(context.Context, string, int64, time.Time) error { return nil },
	}

	svc := &AuthService{Users: users, Sessions: sessions, SessionTTL: time.Hour}
	claims := &auth.ExternalTokenClaims{Subject: "sub-123", Email: "amy@example.com"}
	u, token, err := svc.LoginExternal(context.Background(), "google", claims)
	if err != nil {
		t.Fatalf("LoginExternal returned error: %v", err)
	}
	if !created {
		t.Fatalf("expected account creation")
	}
	if u.ID != 9 || token == "" {
		t.Fatalf("unexpected result: user=%+v token=%q", u, token)
	}
}

func TestAuthServiceLoginExternalLinksExistingEmailAccount(t *testing.T) {
	linked := false
	users := &stubUsersStore{
		t: t,
		getUserByExternalFunc: func(context.Context, string, string) (domain.User, error) {
			return domain.User{}, domain.ErrNotFound
		},
		getUserByEmailFunc: func(_ context.Context, email string) (domain.UserWithPassword, error) {
			if email != "amy@example.com" {
				t.Fatalf("unexpected email lookup: %q", email)
			}
			return domain.UserWithPassword{
				User: domain.User{ID: 5, Email: email, Username: "amy"},
			}, nil
		},
		linkExternalFunc: func(_ context.Context, userID int64, provider, providerID, email string) error {
			linked = true
			if userID != 5 || provider != "apple" || providerID != "sub-456" {
				t.Fatalf("unexpected link: user=%d %s/%s", userID, provider, providerID)
			}
			if email != "amy@example.com" {
				t.Fatalf("unexpected link email: %q", email)
			}
			return nil
		},
	}
	sessions := &stubSessionsStore{
		t: t,
		createSessionFunc: func(context.Context, string, int64, time.Time) error { return nil },
	}

	svc := &AuthService{Users: users, Sessions: sessions, SessionTTL: time.Hour}
	claims := &auth.ExternalTokenClaims{Subject: "sub-456", Email: " Amy@Example.com "}
	u, token, err := svc.LoginExternal(context.Background(), "apple", claims)
	if err != nil {
		t.Fatalf("LoginExternal returned error: %v", err)
	}
	if !linked {
		t.Fatalf("expected provider identity linked to the existing account")
	}
	if u.ID != 5 || token == "" {
		t.Fatalf("unexpected result: user=%+v token=%q", u, token)
	}
}
