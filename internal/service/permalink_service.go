package service

import (
	"context"
	"log/slog"

	"github.com/avelarde/crosspost/internal/models"
	"github.com/avelarde/crosspost/internal/platform"
	"github.com/avelarde/crosspost/internal/repository"
	"github.com/avelarde/crosspost/internal/transfer"
)

// PermalinkService resolves the public URL of a publication. A stored URL is
// served as-is; otherwise the provider is asked and the answer written
// through. When the provider cannot be reached a deterministic fallback URL
// is returned, marked unconfirmed and never persisted.
type PermalinkService interface {
	Resolve(ctx context.Context, userID, publicationID int64) (*transfer.Permalink, error)
	// Resync drops the cached URL and forces a fresh provider lookup.
	Resync(ctx context.Context, userID, publicationID int64) (*transfer.Permalink, error)
}

type permalinkService struct {
	pubs     repository.PublicationRepository
	accounts repository.SocialAccountRepository
	posts    repository.PostRepository
	tokens   TokenService
	adapters platform.Registry
}

func NewPermalinkService(
	pubs repository.PublicationRepository,
	accounts repository.SocialAccountRepository,
	posts repository.PostRepository,
	tokens TokenService,
	adapters platform.Registry,
) PermalinkService {
	return &permalinkService{
		pubs:     pubs,
		accounts: accounts,
		posts:    posts,
		tokens:   tokens,
		adapters: adapters,
	}
}

func (s *permalinkService) Resolve(ctx context.Context, userID, publicationID int64) (*transfer.Permalink, error) {
	pub, err := s.ownedPublication(ctx, userID, publicationID)
	if err != nil {
		return nil, err
	}

	if pub.PlatformPostURL.Valid && pub.PlatformPostURL.String != "" {
		return &transfer.Permalink{URL: pub.PlatformPostURL.String, Confirmed: true}, nil
	}

	return s.lookup(ctx, pub)
}

func (s *permalinkService) Resync(ctx context.Context, userID, publicationID int64) (*transfer.Permalink, error) {
	pub, err := s.ownedPublication(ctx, userID, publicationID)
	if err != nil {
		return nil, err
	}
	if err := s.pubs.ClearPermalink(ctx, pub.ID); err != nil {
		return nil, err
	}
	return s.lookup(ctx, pub)
}

func (s *permalinkService) lookup(ctx context.Context, pub *models.Publication) (*transfer.Permalink, error) {
	if pub.Status != models.PublicationStatusPublished || !pub.PlatformPostID.Valid {
		return nil, validationf("publication %d has not been published", pub.ID)
	}

	account, err := s.accounts.GetByID(ctx, pub.AccountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, validationf("account not found")
	}

	adapter, err := s.adapters.Get(pub.Platform)
	if err != nil {
		return nil, err
	}

	platformPostID := pub.PlatformPostID.String
	fallback := &transfer.Permalink{
		URL:       adapter.FallbackPermalink(account.AccountUsername, platformPostID),
		Confirmed: false,
	}

	accessToken, err := s.tokens.AccessToken(ctx, account)
	if err != nil {
		slog.Info("permalink lookup unavailable", "publication_id", pub.ID, "error", err.Error())
		return fallback, nil
	}

	url, err := adapter.GetPermalink(ctx, accessToken, platformPostID, account.AccountUsername)
	if err != nil || url == "" {
		if err != nil {
			slog.Info("permalink lookup failed", "publication_id", pub.ID, "error", err.Error())
		}
		return fallback, nil
	}

	if err := s.pubs.SetPermalink(ctx, pub.ID, url); err != nil {
		slog.Info(err.Error())
	}
	return &transfer.Permalink{URL: url, Confirmed: true}, nil
}

func (s *permalinkService) ownedPublication(ctx context.Context, userID, publicationID int64) (*models.Publication, error) {
	pub, err := s.pubs.GetByID(ctx, publicationID)
	if err != nil {
		return nil, err
	}
	if pub == nil {
		return nil, validationf("publication not found")
	}
	owned, err := s.posts.CheckByUserID(ctx, pub.PostID, userID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, validationf("publication not found")
	}
	return pub, nil
}
