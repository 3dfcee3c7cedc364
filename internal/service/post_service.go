package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avelarde/crosspost/internal/models"
	"github.com/avelarde/crosspost/internal/repository"
	"github.com/avelarde/crosspost/internal/transfer"
)

const maxCaptionLength = 2200

// scheduledTimeLayouts are accepted compose-form timestamp formats, tried in
// order.
var scheduledTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04"}

type PostService interface {
	Create(ctx context.Context, userID int64, pc *transfer.PostCreation, media []transfer.MediaInput) (*models.Post, time.Duration, error)
	GetByID(ctx context.Context, userID, postID int64) (*models.Post, []*models.PostMedia, error)
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	Remove(ctx context.Context, userID, postID int64) error
}

type postService struct {
	db       *sql.DB
	posts    repository.PostRepository
	pubs     repository.PublicationRepository
	accounts repository.SocialAccountRepository
	media    MediaService
	items    repository.PostMediaRepository
	comments repository.ScheduledCommentRepository
	now      func() time.Time
}

func NewPostService(
	db *sql.DB,
	posts repository.PostRepository,
	pubs repository.PublicationRepository,
	accounts repository.SocialAccountRepository,
	media MediaService,
	items repository.PostMediaRepository,
	comments repository.ScheduledCommentRepository,
) PostService {
	return &postService{
		db:       db,
		posts:    posts,
		pubs:     pubs,
		accounts: accounts,
		media:    media,
		items:    items,
		comments: comments,
		now:      time.Now,
	}
}

// Create persists a post with its publication target, trailing comments,
// and assembled media inside one transaction; no row survives a failure
// partway through. When a scheduled time is given, the post is created
// scheduled and the returned delay says how far out that is.
func (s *postService) Create(ctx context.Context, userID int64, pc *transfer.PostCreation, media []transfer.MediaInput) (post *models.Post, delay time.Duration, err error) {
	if err := validateCreation(pc); err != nil {
		return nil, 0, err
	}

	var scheduledAt time.Time
	if pc.ScheduledTime != "" {
		parsed, perr := parseScheduledTime(pc.ScheduledTime)
		if perr != nil {
			return nil, 0, perr
		}
		if !parsed.After(s.now()) {
			return nil, 0, validationf("scheduled time must be in the future")
		}
		scheduledAt = parsed
	}

	account, err := s.accounts.GetByID(ctx, pc.AccountID)
	if err != nil {
		return nil, 0, err
	}
	if account == nil || account.UserID != userID {
		return nil, 0, validationf("account not found")
	}
	if !account.CanPublish() {
		return nil, 0, validationf("account is disconnected, reconnect it first")
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	post = &models.Post{
		UserID:   userID,
		PostType: pc.PostType,
		Caption:  pc.Caption,
		Title:    pc.Title,
		Status:   models.PostStatusDraft,
	}
	if !scheduledAt.IsZero() {
		post.Status = models.PostStatusScheduled
		post.ScheduledTime.Time = scheduledAt
		post.ScheduledTime.Valid = true
	}

	postID, err := s.posts.Create(ctx, tx, post)
	if err != nil {
		slog.Info(err.Error())
		return nil, 0, err
	}
	post.ID = postID

	if _, err = s.pubs.Create(ctx, tx, &models.Publication{
		PostID:    postID,
		AccountID: account.ID,
		Platform:  account.Platform,
		Status:    models.PublicationStatusPending,
	}); err != nil {
		slog.Info(err.Error())
		return nil, 0, err
	}

	for _, ci := range pc.Comments {
		comment := &models.ScheduledComment{
			PostID:       postID,
			Position:     ci.Position,
			Body:         ci.Body,
			DelayMinutes: ci.DelayMinutes,
			Status:       models.CommentStatusPending,
		}
		if ci.MediaURL != "" {
			comment.MediaURL.String = ci.MediaURL
			comment.MediaURL.Valid = true
		}
		if _, err = s.comments.Create(ctx, tx, comment); err != nil {
			slog.Info(err.Error())
			return nil, 0, err
		}
	}

	if _, err = s.media.Assemble(ctx, tx, userID, postID, pc.PostType, media); err != nil {
		return nil, 0, err
	}

	if err = tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if !scheduledAt.IsZero() {
		delay = scheduledAt.Sub(s.now())
	}
	return post, delay, nil
}

func (s *postService) GetByID(ctx context.Context, userID, postID int64) (*models.Post, []*models.PostMedia, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, nil, err
	}
	if post == nil || post.UserID != userID {
		return nil, nil, validationf("post not found")
	}
	items, err := s.items.ListByPostID(ctx, postID)
	if err != nil {
		return nil, nil, err
	}
	return post, items, nil
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	return s.posts.GetByUserID(ctx, userID)
}

func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	owned, err := s.posts.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return err
	}
	if !owned {
		return validationf("post not found")
	}
	if err := s.items.RemoveByPostID(ctx, postID); err != nil {
		slog.Info(err.Error())
	}
	return s.posts.Remove(ctx, postID)
}

func validateCreation(pc *transfer.PostCreation) error {
	if strings.TrimSpace(pc.Caption) == "" && pc.PostType == models.PostTypeText {
		return validationf("text posts need a caption")
	}
	if len(pc.Caption) > maxCaptionLength {
		return validationf("caption exceeds %d characters", maxCaptionLength)
	}
	if pc.AccountID == 0 {
		return validationf("account_id is required")
	}
	for _, ci := range pc.Comments {
		if strings.TrimSpace(ci.Body) == "" {
			return validationf("comment %d has an empty body", ci.Position)
		}
		if ci.DelayMinutes < 0 {
			return validationf("comment %d has a negative delay", ci.Position)
		}
	}
	return nil
}

func parseScheduledTime(raw string) (time.Time, error) {
	for _, layout := range scheduledTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, validationf("unrecognized scheduled time: %s", raw)
}
