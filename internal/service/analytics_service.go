package service

import (
	"context"
	"log/slog"

	"github.com/avelarde/crosspost/internal/models"
	"github.com/avelarde/crosspost/internal/platform"
	"github.com/avelarde/crosspost/internal/repository"
	"github.com/avelarde/crosspost/internal/transfer"
)

const recentPermalinkLimit = 5

var insightMetrics = []string{"reach", "total_interactions"}

// AnalyticsService aggregates reach and engagement over published
// publications. Only published publications count; in-flight and failed
// deliveries never contribute.
type AnalyticsService interface {
	Summary(ctx context.Context, userID int64) (*transfer.AnalyticsSummary, error)
	SyncInsights(ctx context.Context, userID, accountID int64) error
}

type analyticsService struct {
	pubs       repository.PublicationRepository
	accounts   repository.SocialAccountRepository
	tokens     TokenService
	adapters   platform.Registry
	permalinks PermalinkService
}

func NewAnalyticsService(
	pubs repository.PublicationRepository,
	accounts repository.SocialAccountRepository,
	tokens TokenService,
	adapters platform.Registry,
	permalinks PermalinkService,
) AnalyticsService {
	return &analyticsService{
		pubs:       pubs,
		accounts:   accounts,
		tokens:     tokens,
		adapters:   adapters,
		permalinks: permalinks,
	}
}

func (s *analyticsService) Summary(ctx context.Context, userID int64) (*transfer.AnalyticsSummary, error) {
	rollups, err := s.pubs.AggregateByPlatform(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &transfer.AnalyticsSummary{
		Platforms: make([]transfer.PlatformSummary, 0, len(rollups)),
	}
	for _, r := range rollups {
		summary.Platforms = append(summary.Platforms, transfer.PlatformSummary{
			Platform:          r.Platform,
			Posts:             r.Posts,
			TotalReach:        r.TotalReach,
			TotalEngagement:   r.TotalEngagement,
			AvgEngagementRate: engagementRate(r.TotalReach, r.TotalEngagement),
		})
		summary.TotalReach += r.TotalReach
		summary.TotalEngagement += r.TotalEngagement
	}
	summary.AvgEngagementRate = engagementRate(summary.TotalReach, summary.TotalEngagement)

	summary.RecentPermalinks = s.recentPermalinks(ctx, userID)

	return summary, nil
}

// SyncInsights pulls fresh reach and engagement numbers for every published
// publication on the account. Failures on single publications are skipped;
// expired credentials abort the sync.
func (s *analyticsService) SyncInsights(ctx context.Context, userID, accountID int64) error {
	owned, err := s.accounts.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return err
	}
	if !owned {
		return validationf("account not found")
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account == nil || account.AccountStatus == models.AccountStatusRevoked {
		return validationf("account is disconnected")
	}

	adapter, err := s.adapters.Get(account.Platform)
	if err != nil {
		return err
	}

	accessToken, err := s.tokens.AccessToken(ctx, account)
	if err != nil {
		return err
	}

	pubs, err := s.pubs.ListPublishedByAccount(ctx, accountID)
	if err != nil {
		return err
	}

	for _, pub := range pubs {
		if !pub.PlatformPostID.Valid {
			continue
		}
		values, err := adapter.AccountInsights(ctx, accessToken, pub.PlatformPostID.String, insightMetrics)
		if err != nil {
			if platform.IsAuthExpired(err) {
				return &AuthExpiredError{Platform: account.Platform, AccountID: account.ID, Cause: err}
			}
			slog.Info("insight sync skipped", "publication_id", pub.ID, "error", err.Error())
			continue
		}
		reach := values["reach"]
		engagement := values["total_interactions"]
		if err := s.pubs.SetInsights(ctx, pub.ID, reach, engagement); err != nil {
			slog.Info(err.Error())
		}
	}
	return nil
}

func (s *analyticsService) recentPermalinks(ctx context.Context, userID int64) []transfer.Permalink {
	recent, err := s.pubs.ListRecentPublished(ctx, userID, recentPermalinkLimit)
	if err != nil {
		slog.Info(err.Error())
		return nil
	}
	var links []transfer.Permalink
	for _, pub := range recent {
		link, err := s.permalinks.Resolve(ctx, userID, pub.ID)
		if err != nil {
			continue
		}
		links = append(links, *link)
	}
	return links
}

// engagementRate is engagement over reach as a percentage. Zero reach means
// zero rate, never a division.
func engagementRate(reach, engagement int64) float64 {
	if reach <= 0 {
		return 0
	}
	return float64(engagement) / float64(reach) * 100
}
