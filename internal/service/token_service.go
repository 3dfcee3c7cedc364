package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	config "github.com/avelarde/crosspost/configs"
	"github.com/avelarde/crosspost/internal/models"
	"github.com/avelarde/crosspost/internal/platform"
	"github.com/avelarde/crosspost/internal/repository"
	"github.com/avelarde/crosspost/internal/transfer"
	"github.com/avelarde/crosspost/pkg/utils"
)

// refreshSkew refreshes tokens slightly before their recorded expiry so a
// publish call never goes out with a token about to die mid-flight.
const refreshSkew = 5 * time.Minute

type TokenService interface {
	// AccessToken returns a decrypted, currently valid access token for the
	// account, refreshing it first when the recorded expiry is near.
	AccessToken(ctx context.Context, account *models.SocialAccount) (string, error)
	// Refresh rotates the account's tokens unconditionally. Concurrent calls
	// for the same account collapse into one provider request.
	Refresh(ctx context.Context, account *models.SocialAccount) (*transfer.TokenRefresh, error)
}

type tokenService struct {
	cfg      *config.Config
	accounts repository.SocialAccountRepository
	adapters platform.Registry
	group    singleflight.Group
}

func NewTokenService(cfg *config.Config, accounts repository.SocialAccountRepository, adapters platform.Registry) TokenService {
	return &tokenService{
		cfg:      cfg,
		accounts: accounts,
		adapters: adapters,
	}
}

func (s *tokenService) AccessToken(ctx context.Context, account *models.SocialAccount) (string, error) {
	if account.AccountStatus == models.AccountStatusRevoked {
		return "", &AuthExpiredError{Platform: account.Platform, AccountID: account.ID}
	}
	if account.TokenExpired(time.Now().Add(refreshSkew)) {
		refreshed, err := s.Refresh(ctx, account)
		if err != nil {
			return "", err
		}
		return refreshed.AccessToken, nil
	}
	token, err := utils.Decrypt(account.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	return token, nil
}

func (s *tokenService) Refresh(ctx context.Context, account *models.SocialAccount) (*transfer.TokenRefresh, error) {
	key := fmt.Sprintf("account:%d", account.ID)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.refresh(ctx, account)
	})
	if err != nil {
		return nil, err
	}
	return v.(*transfer.TokenRefresh), nil
}

func (s *tokenService) refresh(ctx context.Context, account *models.SocialAccount) (*transfer.TokenRefresh, error) {
	adapter, err := s.adapters.Get(account.Platform)
	if err != nil {
		return nil, err
	}

	accessToken, err := utils.Decrypt(account.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	var refreshToken string
	if account.RefreshToken != "" {
		refreshToken, err = utils.Decrypt(account.RefreshToken, []byte(s.cfg.SecretKey))
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
	}

	token, err := adapter.RefreshAccessToken(ctx, accessToken, refreshToken)
	if err != nil {
		slog.Info(err.Error())
		if setErr := s.accounts.SetStatus(ctx, account.ID, models.AccountStatusExpired); setErr != nil {
			slog.Info(setErr.Error())
		}
		account.AccountStatus = models.AccountStatusExpired
		return nil, &AuthExpiredError{Platform: account.Platform, AccountID: account.ID, Cause: err}
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

	if err := s.accounts.SetToken(ctx, account.ID, encAccess, encRefresh, token.ExpiresAt); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	account.AccessToken = encAccess
	account.RefreshToken = encRefresh
	account.TokenExpiresAt = token.ExpiresAt
	account.AccountStatus = models.AccountStatusActive

	return &transfer.TokenRefresh{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.ExpiresAt,
	}, nil
}
