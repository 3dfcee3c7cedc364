package service

import (
	"context"
	"log/slog"

	"github.com/avelarde/crosspost/internal/models"
	"github.com/avelarde/crosspost/internal/platform"
	"github.com/avelarde/crosspost/internal/repository"
)

// CommentService delivers one scheduled comment to the parent publication's
// platform. Comment failures are recorded on the comment alone; the parent
// post's status never changes after publish.
type CommentService interface {
	Publish(ctx context.Context, commentID int64) error
}

type commentService struct {
	comments repository.ScheduledCommentRepository
	pubs     repository.PublicationRepository
	accounts repository.SocialAccountRepository
	tokens   TokenService
	adapters platform.Registry
}

func NewCommentService(
	comments repository.ScheduledCommentRepository,
	pubs repository.PublicationRepository,
	accounts repository.SocialAccountRepository,
	tokens TokenService,
	adapters platform.Registry,
) CommentService {
	return &commentService{
		comments: comments,
		pubs:     pubs,
		accounts: accounts,
		tokens:   tokens,
		adapters: adapters,
	}
}

func (s *commentService) Publish(ctx context.Context, commentID int64) error {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment == nil || comment.Status != models.CommentStatusPending {
		return nil
	}

	pub, err := s.pubs.GetByPostID(ctx, comment.PostID)
	if err != nil {
		return err
	}
	if pub == nil || pub.Status != models.PublicationStatusPublished || !pub.PlatformPostID.Valid {
		return s.fail(ctx, comment, "parent post is not published")
	}

	account, err := s.accounts.GetByID(ctx, pub.AccountID)
	if err != nil {
		return err
	}
	if account == nil || account.AccountStatus == models.AccountStatusRevoked {
		return s.fail(ctx, comment, "account is disconnected")
	}

	adapter, err := s.adapters.Get(account.Platform)
	if err != nil {
		return s.fail(ctx, comment, err.Error())
	}

	accessToken, err := s.tokens.AccessToken(ctx, account)
	if err != nil {
		return s.fail(ctx, comment, err.Error())
	}

	refID, err := adapter.PublishComment(ctx, accessToken, pub.PlatformPostID.String, comment.Body)
	if err != nil && platform.IsAuthExpired(err) {
		refreshed, rerr := s.tokens.Refresh(ctx, account)
		if rerr != nil {
			return s.fail(ctx, comment, rerr.Error())
		}
		refID, err = adapter.PublishComment(ctx, refreshed.AccessToken, pub.PlatformPostID.String, comment.Body)
	}
	if err != nil {
		return s.fail(ctx, comment, err.Error())
	}

	return s.comments.SetPublished(ctx, comment.ID, refID)
}

func (s *commentService) fail(ctx context.Context, comment *models.ScheduledComment, message string) error {
	if err := s.comments.SetFailed(ctx, comment.ID, message); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
