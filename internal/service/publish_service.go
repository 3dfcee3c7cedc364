package service

import (
	"context"
	"log/slog"
	"time"

	config "github.com/avelarde/crosspost/configs"
	"github.com/avelarde/crosspost/internal/models"
	"github.com/avelarde/crosspost/internal/platform"
	"github.com/avelarde/crosspost/internal/repository"
)

// CommentEnqueuer schedules a trailing comment for delivery at a fixed time.
// Implemented by the task queue.
type CommentEnqueuer interface {
	EnqueueComment(ctx context.Context, commentID int64, processAt time.Time) error
}

// PublishService owns the post status lifecycle. A post moves
// draft -> scheduled -> publishing -> published/failed, or draft -> publishing
// directly on an immediate submit. Claiming the publishing status is a
// conditional update so two workers racing on the same post resolve to
// exactly one publish attempt.
type PublishService interface {
	Schedule(ctx context.Context, userID, postID int64, when time.Time) (time.Duration, error)
	Cancel(ctx context.Context, userID, postID int64) error
	SubmitNow(ctx context.Context, userID, postID int64) error
	// Process is the worker entry point. It is idempotent: a post already
	// claimed, finished, or cancelled is skipped without error.
	Process(ctx context.Context, postID int64) error
	RunDue(ctx context.Context, cutoff time.Time) error
}

type publishService struct {
	cfg      *config.Config
	posts    repository.PostRepository
	pubs     repository.PublicationRepository
	accounts repository.SocialAccountRepository
	media    repository.PostMediaRepository
	comments repository.ScheduledCommentRepository
	tokens   TokenService
	adapters platform.Registry
	enqueuer CommentEnqueuer
	now      func() time.Time
}

func NewPublishService(
	cfg *config.Config,
	posts repository.PostRepository,
	pubs repository.PublicationRepository,
	accounts repository.SocialAccountRepository,
	media repository.PostMediaRepository,
	comments repository.ScheduledCommentRepository,
	tokens TokenService,
	adapters platform.Registry,
	enqueuer CommentEnqueuer,
) PublishService {
	return &publishService{
		cfg:      cfg,
		posts:    posts,
		pubs:     pubs,
		accounts: accounts,
		media:    media,
		comments: comments,
		tokens:   tokens,
		adapters: adapters,
		enqueuer: enqueuer,
		now:      time.Now,
	}
}

func (s *publishService) Schedule(ctx context.Context, userID, postID int64, when time.Time) (time.Duration, error) {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return 0, err
	}
	if post.Status != models.PostStatusDraft && post.Status != models.PostStatusScheduled {
		return 0, validationf("post %d cannot be scheduled from status %s", postID, post.Status)
	}
	delay := when.Sub(s.now())
	if delay <= 0 {
		return 0, validationf("scheduled time must be in the future")
	}
	if err := s.posts.SetScheduled(ctx, postID, when); err != nil {
		return 0, err
	}
	return delay, nil
}

func (s *publishService) Cancel(ctx context.Context, userID, postID int64) error {
	if _, err := s.ownedPost(ctx, userID, postID); err != nil {
		return err
	}
	cancelled, err := s.posts.Cancel(ctx, postID)
	if err != nil {
		return err
	}
	if !cancelled {
		return validationf("only scheduled posts can be cancelled")
	}
	return nil
}

func (s *publishService) SubmitNow(ctx context.Context, userID, postID int64) error {
	if _, err := s.ownedPost(ctx, userID, postID); err != nil {
		return err
	}
	return s.Process(ctx, postID)
}

func (s *publishService) Process(ctx context.Context, postID int64) error {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil || models.IsTerminal(post.Status) {
		return nil
	}

	switch post.Status {
	case models.PostStatusScheduled:
		claimed, err := s.posts.ClaimForPublishing(ctx, postID)
		if err != nil {
			return err
		}
		if !claimed {
			// Another worker won the claim, or the post was cancelled
			// between the due scan and now.
			return nil
		}
	case models.PostStatusDraft:
		if err := s.posts.UpdateStatus(ctx, postID, models.PostStatusPublishing); err != nil {
			return err
		}
	case models.PostStatusPublishing:
		return nil
	}
	post.Status = models.PostStatusPublishing

	return s.publish(ctx, post)
}

// RunDue claims and publishes every scheduled post whose time has arrived.
// Posts are handled independently; one failure never stops the sweep.
func (s *publishService) RunDue(ctx context.Context, cutoff time.Time) error {
	due, err := s.posts.ListDue(ctx, cutoff)
	if err != nil {
		return err
	}
	for _, post := range due {
		if err := s.Process(ctx, post.ID); err != nil {
			slog.Info("publishing due post failed", "post_id", post.ID, "error", err.Error())
		}
	}
	return nil
}

func (s *publishService) publish(ctx context.Context, post *models.Post) error {
	pub, err := s.pubs.GetByPostID(ctx, post.ID)
	if err != nil {
		return err
	}
	if pub == nil {
		return s.fail(ctx, post, nil, "post has no publication target")
	}

	account, err := s.accounts.GetByID(ctx, pub.AccountID)
	if err != nil {
		return err
	}
	if account == nil || !account.CanPublish() {
		return s.fail(ctx, post, pub, "account is disconnected")
	}

	adapter, err := s.adapters.Get(account.Platform)
	if err != nil {
		return s.fail(ctx, post, pub, err.Error())
	}

	items, err := s.media.ListByPostID(ctx, post.ID)
	if err != nil {
		return err
	}

	accessToken, err := s.tokens.AccessToken(ctx, account)
	if err != nil {
		return s.fail(ctx, post, pub, err.Error())
	}

	req := &platform.PublishRequest{
		AccountID:   account.AccountID,
		Username:    account.AccountUsername,
		AccessToken: accessToken,
		Caption:     post.Caption,
		Title:       post.Title,
		Media:       toMediaItems(items),
	}

	result, err := dispatch(ctx, adapter, post.PostType, req)
	if err != nil && platform.IsAuthExpired(err) {
		// One refresh-and-retry on expired credentials, never more.
		refreshed, rerr := s.tokens.Refresh(ctx, account)
		if rerr != nil {
			return s.fail(ctx, post, pub, rerr.Error())
		}
		req.AccessToken = refreshed.AccessToken
		result, err = dispatch(ctx, adapter, post.PostType, req)
	}
	if err != nil {
		return s.fail(ctx, post, pub, err.Error())
	}

	publishedAt := s.now()
	if err := s.pubs.SetPublished(ctx, pub.ID, result.PlatformPostID, publishedAt); err != nil {
		return err
	}
	if err := s.posts.UpdateStatus(ctx, post.ID, models.PostStatusPublished); err != nil {
		return err
	}

	s.scheduleComments(ctx, post.ID, publishedAt)
	return nil
}

func (s *publishService) scheduleComments(ctx context.Context, postID int64, publishedAt time.Time) {
	if s.enqueuer == nil {
		return
	}
	comments, err := s.comments.ListByPostID(ctx, postID)
	if err != nil {
		slog.Info(err.Error())
		return
	}
	for _, c := range comments {
		if c.Status != models.CommentStatusPending {
			continue
		}
		processAt := publishedAt.Add(time.Duration(c.DelayMinutes) * time.Minute)
		if err := s.enqueuer.EnqueueComment(ctx, c.ID, processAt); err != nil {
			slog.Info("enqueue comment failed", "comment_id", c.ID, "error", err.Error())
		}
	}
}

func (s *publishService) fail(ctx context.Context, post *models.Post, pub *models.Publication, message string) error {
	if pub != nil {
		if err := s.pubs.SetFailed(ctx, pub.ID, message); err != nil {
			slog.Info(err.Error())
		}
	}
	return s.posts.MarkFailed(ctx, post.ID, message)
}

func (s *publishService) ownedPost(ctx context.Context, userID, postID int64) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil || post.UserID != userID {
		return nil, validationf("post not found")
	}
	return post, nil
}

func dispatch(ctx context.Context, adapter platform.Adapter, postType string, req *platform.PublishRequest) (*platform.PublishResult, error) {
	switch {
	case len(req.Media) == 0:
		return adapter.PublishText(ctx, req)
	case postType == models.PostTypeCarousel, len(req.Media) > 1:
		return adapter.PublishCarousel(ctx, req)
	default:
		return adapter.PublishMedia(ctx, req)
	}
}

func toMediaItems(items []*models.PostMedia) []platform.MediaItem {
	out := make([]platform.MediaItem, 0, len(items))
	for _, it := range items {
		out = append(out, platform.MediaItem{
			Position: it.Position,
			Type:     it.MediaType,
			URL:      it.FileURL,
			AltText:  it.AltText,
		})
	}
	return out
}
