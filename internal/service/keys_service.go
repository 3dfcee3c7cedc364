package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/avelarde/crosspost/internal/models"
	"github.com/avelarde/crosspost/internal/repository"
	"github.com/avelarde/crosspost/pkg/utils"
)

const maxAPIKeysPerUser = 5

type ApiKeyService interface {
	Create(ctx context.Context, userID int64) error
	List(ctx context.Context, userID int64) ([]*models.ApiKey, error)
	GetUserID(ctx context.Context, apiKey string) (int64, error)
	RemoveAPIKey(ctx context.Context, userID, keyID int64) error
}

type apiKeyService struct {
	keys repository.ApiKeyRepository
}

func NewApiKeyService(keys repository.ApiKeyRepository) ApiKeyService {
	return &apiKeyService{keys: keys}
}

func (s *apiKeyService) Create(ctx context.Context, userID int64) error {
	existing, err := s.keys.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if len(existing) >= maxAPIKeysPerUser {
		return validationf("at most %d api keys per user", maxAPIKeysPerUser)
	}

	key, err := utils.GenerateRandomKey(16)
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("generating api key: %w", err)
	}

	if _, err := s.keys.Create(ctx, &models.ApiKey{UserID: userID, ApiKey: key}); err != nil {
		return err
	}
	return nil
}

func (s *apiKeyService) GetUserID(ctx context.Context, apiKey string) (int64, error) {
	userID, exists, err := s.keys.GetByKey(ctx, apiKey)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, validationf("api key not found")
	}
	return *userID, nil
}

func (s *apiKeyService) List(ctx context.Context, userID int64) ([]*models.ApiKey, error) {
	return s.keys.GetByUserID(ctx, userID)
}

func (s *apiKeyService) RemoveAPIKey(ctx context.Context, userID, keyID int64) error {
	if keyID == 0 {
		return validationf("key id is required")
	}

	owned, err := s.keys.CheckByUserID(ctx, keyID, userID)
	if err != nil {
		return err
	}
	if !owned {
		return validationf("api key not found")
	}

	return s.keys.Remove(ctx, keyID)
}
