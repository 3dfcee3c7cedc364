package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/avelarde/crosspost/internal/models"
	"github.com/avelarde/crosspost/internal/repository"
	"github.com/avelarde/crosspost/internal/service"
)

// TokenRefreshJob proactively rotates tokens expiring soon so publish-time
// refreshes stay the exception. The token service collapses concurrent
// refreshes per account, so overlap with a publish retry is harmless.
type TokenRefreshJob struct {
	accounts repository.SocialAccountRepository
	tokens   service.TokenService
}

func NewTokenRefreshJob(accounts repository.SocialAccountRepository, tokens service.TokenService) *TokenRefreshJob {
	return &TokenRefreshJob{
		accounts: accounts,
		tokens:   tokens,
	}
}

func (j *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	cutoff := time.Now().Add(30 * time.Minute)

	accounts, err := j.accounts.ListExpiringBefore(ctx, cutoff)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, acc := range accounts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.SocialAccount) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if _, err := j.tokens.Refresh(ctx, acc); err != nil {
				slog.Info("token refresh failed", "account_id", acc.ID, "platform", acc.Platform, "error", err.Error())
			}
		}(acc)
	}

	wg.Wait()
}
