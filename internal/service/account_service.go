package service

import (
	"context"
	"log/slog"

	config "github.com/avelarde/crosspost/configs"
	"github.com/avelarde/crosspost/internal/models"
	"github.com/avelarde/crosspost/internal/platform"
	"github.com/avelarde/crosspost/internal/repository"
	"github.com/avelarde/crosspost/pkg/utils"
)

// AccountService handles connecting and disconnecting social accounts.
// Tokens are encrypted before they touch the database and never leave it
// unencrypted except through the token service.
type AccountService interface {
	AuthURL(platformName, state string) (string, error)
	ConnectCallback(ctx context.Context, userID int64, platformName, code string) (*models.SocialAccount, error)
	List(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
	Disconnect(ctx context.Context, userID, accountID int64) error
}

type accountService struct {
	cfg      *config.Config
	accounts repository.SocialAccountRepository
	adapters platform.Registry
}

func NewAccountService(cfg *config.Config, accounts repository.SocialAccountRepository, adapters platform.Registry) AccountService {
	return &accountService{
		cfg:      cfg,
		accounts: accounts,
		adapters: adapters,
	}
}

func (s *accountService) AuthURL(platformName, state string) (string, error) {
	adapter, err := s.adapters.Get(platformName)
	if err != nil {
		return "", validationf("unsupported platform: %s", platformName)
	}
	return adapter.AuthURL(state), nil
}

func (s *accountService) ConnectCallback(ctx context.Context, userID int64, platformName, code string) (*models.SocialAccount, error) {
	if code == "" {
		return nil, validationf("code is empty")
	}
	adapter, err := s.adapters.Get(platformName)
	if err != nil {
		return nil, validationf("unsupported platform: %s", platformName)
	}

	token, info, err := adapter.ExchangeCode(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	encAccess, err := utils.Encrypt([]byte(token.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return nil, err
	}
	encRefresh := ""
	if token.RefreshToken != "" {
		encRefresh, err = utils.Encrypt([]byte(token.RefreshToken), []byte(s.cfg.SecretKey))
		if err != nil {
			return nil, err
		}
	}

	account := &models.SocialAccount{
		UserID:          userID,
		Platform:        platformName,
		AccountID:       info.AccountID,
		AccountName:     info.Name,
		AccountUsername: info.Username,
		ProfilePicture:  info.ProfilePicture,
		AccessToken:     encAccess,
		RefreshToken:    encRefresh,
		TokenExpiresAt:  token.ExpiresAt,
		AccountStatus:   models.AccountStatusActive,
	}

	id, err := s.accounts.Create(ctx, nil, account)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	account.ID = id

	return account, nil
}

func (s *accountService) List(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	return s.accounts.ListInfoByUserID(ctx, userID)
}

// Disconnect is a soft delete: stored media and past publications survive,
// the account just stops being usable for new work. Disconnecting an
// already revoked account is a no-op.
func (s *accountService) Disconnect(ctx context.Context, userID, accountID int64) error {
	owned, err := s.accounts.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return err
	}
	if !owned {
		return validationf("account not found")
	}
	if _, err := s.accounts.Disconnect(ctx, accountID); err != nil {
		return err
	}
	return nil
}
