package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelarde/crosspost/internal/models"
	"github.com/avelarde/crosspost/internal/platform"
)

func TestEngagementRate(t *testing.T) {
	assert.InDelta(t, 12.5, engagementRate(1000, 125), 0.0001)
	assert.Equal(t, 0.0, engagementRate(0, 125))
	assert.Equal(t, 0.0, engagementRate(-1, 125))
	assert.Equal(t, 0.0, engagementRate(1000, 0))
}

func TestSummaryAggregatesPerPlatformAndOverall(t *testing.T) {
	pubs := &stubPublicationRepo{
		AggregateByPlatformFn: func(ctx context.Context, userID int64) ([]*models.PlatformRollup, error) {
			return []*models.PlatformRollup{
				{Platform: "instagram", Posts: 4, TotalReach: 1000, TotalEngagement: 125},
				{Platform: "tiktok", Posts: 2, TotalReach: 0, TotalEngagement: 0},
			}, nil
		},
		ListRecentPublishedFn: func(ctx context.Context, userID int64, limit int) ([]*models.Publication, error) {
			return nil, nil
		},
	}

	svc := NewAnalyticsService(pubs, &stubAccountRepo{}, &stubTokenService{}, platform.Registry{}, nil)

	summary, err := svc.Summary(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, summary.Platforms, 2)
	assert.InDelta(t, 12.5, summary.Platforms[0].AvgEngagementRate, 0.0001)
	// Zero reach yields a zero rate, not a division error.
	assert.Equal(t, 0.0, summary.Platforms[1].AvgEngagementRate)

	assert.Equal(t, int64(1000), summary.TotalReach)
	assert.Equal(t, int64(125), summary.TotalEngagement)
	assert.InDelta(t, 12.5, summary.AvgEngagementRate, 0.0001)
}

func TestSyncInsightsWritesPerPublicationNumbers(t *testing.T) {
	account := &models.SocialAccount{ID: 3, Platform: "stub", AccountStatus: models.AccountStatusActive}

	accounts := &stubAccountRepo{
		CheckByUserIDFn: func(ctx context.Context, accountID, userID int64) (bool, error) { return true, nil },
		GetByIDFn:       func(ctx context.Context, id int64) (*models.SocialAccount, error) { return account, nil },
	}

	published := []*models.Publication{
		{ID: 7, PlatformPostID: sql.NullString{String: "mid-1", Valid: true}},
		{ID: 8, PlatformPostID: sql.NullString{}},
	}

	var updates []int64
	pubs := &stubPublicationRepo{
		ListPublishedByAccountFn: func(ctx context.Context, accountID int64) ([]*models.Publication, error) {
			return published, nil
		},
		SetInsightsFn: func(ctx context.Context, id int64, reach, engagement int64) error {
			updates = append(updates, id)
			assert.Equal(t, int64(1000), reach)
			assert.Equal(t, int64(125), engagement)
			return nil
		},
	}

	adapter := &stubAdapter{name: "stub"}
	adapter.AccountInsightsFn = func(ctx context.Context, accessToken, accountID string, metrics []string) (map[string]int64, error) {
		assert.Equal(t, "mid-1", accountID)
		return map[string]int64{"reach": 1000, "total_interactions": 125}, nil
	}
	adapters := platform.Registry{}
	adapters.Register(adapter)

	svc := NewAnalyticsService(pubs, accounts, &stubTokenService{}, adapters, nil)

	err := svc.SyncInsights(context.Background(), 1, 3)
	require.NoError(t, err)
	// The publication without a platform post id is skipped.
	assert.Equal(t, []int64{7}, updates)
}

func TestSyncInsightsStopsOnExpiredAuth(t *testing.T) {
	account := &models.SocialAccount{ID: 3, Platform: "stub", AccountStatus: models.AccountStatusActive}

	accounts := &stubAccountRepo{
		CheckByUserIDFn: func(ctx context.Context, accountID, userID int64) (bool, error) { return true, nil },
		GetByIDFn:       func(ctx context.Context, id int64) (*models.SocialAccount, error) { return account, nil },
	}
	pubs := &stubPublicationRepo{
		ListPublishedByAccountFn: func(ctx context.Context, accountID int64) ([]*models.Publication, error) {
			return []*models.Publication{
				{ID: 7, PlatformPostID: sql.NullString{String: "mid-1", Valid: true}},
				{ID: 8, PlatformPostID: sql.NullString{String: "mid-2", Valid: true}},
			}, nil
		},
	}

	calls := 0
	adapter := &stubAdapter{name: "stub"}
	adapter.AccountInsightsFn = func(ctx context.Context, accessToken, accountID string, metrics []string) (map[string]int64, error) {
		calls++
		return nil, &platform.ProviderError{Platform: "stub", Code: "190", AuthExpired: true}
	}
	adapters := platform.Registry{}
	adapters.Register(adapter)

	svc := NewAnalyticsService(pubs, accounts, &stubTokenService{}, adapters, nil)

	err := svc.SyncInsights(context.Background(), 1, 3)
	var authErr *AuthExpiredError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 1, calls)
}
