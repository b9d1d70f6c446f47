package service

import (
	"context"
	"strings"
	"time"

	"planloom/internal/domain"
)

type NotificationTokensStore interface {
	UpsertToken(ctx context.Context, userID int64, token, platform string, when time.Time) (domain.NotificationToken, error)
	DeleteToken(ctx context.Context, userID int64, token string) error
	ListTokens(ctx context.Context, userID int64) ([]domain.NotificationToken, error)
}

type NotificationService struct {
	Tokens NotificationTokensStore
	Now    func() time.Time
}

func (s *NotificationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *NotificationService) RegisterToken(ctx context.Context, userID int64, token, platform string) (domain.NotificationToken, error) {
	token = strings.TrimSpace(token)
	platform = strings.TrimSpace(strings.ToLower(platform))
	if token == "" || platform == "" {
		return domain.NotificationToken{}, domain.NewValidationError(map[string]string{"token": "required", "platform": "required"})
	}
	switch platform {
	case "desktop", "android", "ios":
	default:
		return domain.NotificationToken{}, domain.NewValidationError(map[string]string{"platform": "must be desktop, ios or android"})
	}
	when := s.now().UTC().Truncate(time.Millisecond)
	return s.Tokens.UpsertToken(ctx, userID, token, platform, when)
}

func (s *NotificationService) DeleteToken(ctx context.Context, userID int64, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.NewValidationError(map[string]string{"token": "required"})
	}
	return s.Tokens.DeleteToken(ctx, userID, token)
}
