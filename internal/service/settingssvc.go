package service

import (
	"context"

	"planloom/internal/domain"
)

type SettingsStore interface {
	GetSettings(ctx context.Context, userID int64) (domain.UserSettings, error)
	UpdateSettings(ctx context.Context, st domain.UserSettings) (domain.UserSettings, error)
}

type SettingsService struct {
	Settings SettingsStore
}

func (s *SettingsService) Get(ctx context.Context, userID int64) (domain.UserSettings, error) {
	return s.Settings.GetSettings(ctx, userID)
}

func (s *SettingsService) Update(ctx context.Context, st domain.UserSettings) (domain.UserSettings, error) {
	return s.Settings.UpdateSettings(ctx, st)
}
