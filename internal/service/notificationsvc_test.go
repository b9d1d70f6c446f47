package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"planloom/internal/domain"
)

type stubNotificationTokensStore struct {
	t *testing.T

	upsertTokenFunc func(context.Context, int64, string, string, time.Time) (domain.NotificationToken, error)
	deleteTokenFunc func(context.Context, int64, string) error
}

func (s *stubNotificationTokensStore) UpsertToken(ctx context.Context, userID int64, token, platform string, when time.Time) (domain.NotificationToken, error) {
	if s.upsertTokenFunc != nil {
		return s.upsertTokenFunc(ctx, userID, token, platform, when)
	}
	s.t.Fatalf("UpsertToken called unexpectedly")
	return domain.NotificationToken{}, errors.New("unexpected call")
}

func (s *stubNotificationTokensStore) DeleteToken(ctx context.Context, userID int64, token string) error {
	if s.deleteTokenFunc != nil {
		return s.deleteTokenFunc(ctx, userID, token)
	}
	s.t.Fatalf("DeleteToken called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubNotificationTokensStore) ListTokens(ctx context.Context, userID int64) ([]domain.NotificationToken, error) {
	s.t.Fatalf("ListTokens called unexpectedly")
	return nil, errors.New("unexpected call")
}

func TestRegisterTokenNormalizesAndTimestamps(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 123456789, time.UTC)

	tokens := &stubNotificationTokensStore{
		t: t,
		upsertTokenFunc: func(_ context.Context, userID int64, token, platform string, when time.Time) (domain.NotificationToken, error) {
			if userID != 4 || token != "tok-1" || platform != "desktop" {
				t.Fatalf("unexpected upsert: user=%d token=%q platform=%q", userID, token, platform)
			}
			if !when.Equal(now.Truncate(time.Millisecond)) {
				t.Fatalf("unexpected timestamp: %v", when)
			}
			return domain.NotificationToken{UserID: userID, Token: token, Platform: platform, UpdatedAt: when}, nil
		},
	}

	svc := &NotificationService{Tokens: tokens, Now: func() time.Time { return now }}
	tok, err := svc.RegisterToken(context.Background(), 4, " tok-1 ", " Desktop ")
	if err != nil {
		t.Fatalf("RegisterToken returned error: %v", err)
	}
	if tok.Token != "tok-1" {
		t.Fatalf("unexpected token: %+v", tok)
	}
}

func TestRegisterTokenLeavesServiceClockUntouched(t *testing.T) {
	tokens := &stubNotificationTokensStore{
		t: t,
		upsertTokenFunc: func(_ context.Context, userID int64, token, platform string, when time.Time) (domain.NotificationToken, error) {
			if when.IsZero() {
				t.Fatalf("expected a real timestamp")
			}
			return domain.NotificationToken{UserID: userID, Token: token, Platform: platform, UpdatedAt: when}, nil
		},
	}

	svc := &NotificationService{Tokens: tokens}
	if _, err := svc.RegisterToken(context.Background(), 4, "tok-1", "ios"); err != nil {
		t.Fatalf("RegisterToken returned error: %v", err)
	}
	if svc.Now != nil {
		t.Fatalf("request path overwrote the service clock")
	}
}

func TestRegisterTokenRejectsUnknownPlatform(t *testing.T) {
	svc := &NotificationService{Tokens: &stubNotificationTokensStore{t: t}}

	_, err := svc.RegisterToken(context.Background(), 4, "tok-1", "toaster")
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := verr.Fields["platform"]; !ok {
		t.Fatalf("expected a platform field error, got %v", verr.Fields)
	}
}
