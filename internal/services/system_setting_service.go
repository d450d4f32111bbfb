package services

import (
	"context"

	"wallfloor-backend/internal/cache"
	"wallfloor-backend/internal/models"
	"wallfloor-backend/internal/repositories"
)

type SystemSettingService struct {
	Repo *repositories.SystemSettingRepository
}

func NewSystemSettingService(repo *repositories.SystemSettingRepository) *SystemSettingService {
	return &SystemSettingService{Repo: repo}
}

// Get returns a setting, serving the value from Redis when cached.
// Cache misses and Redis outages both fall through to the database.
func (s *SystemSettingService) Get(ctx context.Context, key string) (*models.SystemSetting, error) {
	if value, ok := cache.GetSetting(ctx, key); ok {
		return &models.SystemSetting{SettingKey: key, SettingValue: value}, nil
	}

	setting, err := s.Repo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	cache.CacheSetting(ctx, key, setting.SettingValue)
	return setting, nil
}

func (s *SystemSettingService) List(ctx context.Context) ([]*models.SystemSetting, error) {
	return s.Repo.List(ctx)
}

// Upsert creates or updates a setting and drops the cached value
func (s *SystemSettingService) Upsert(ctx context.Context, key, value, description string, userID int) error {
	if err := s.Repo.Upsert(ctx, key, value, description, userID); err != nil {
		return err
	}
	cache.InvalidateSetting(ctx, key)
	return nil
}
