package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/avelarde/crosspost/internal/models"
	"github.com/avelarde/crosspost/internal/platform"
	"github.com/avelarde/crosspost/internal/transfer"
)

type stubPostRepo struct {
	CreateFn             func(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	GetByIDFn            func(ctx context.Context, id int64) (*models.Post, error)
	GetByUserIDFn        func(ctx context.Context, userID int64) ([]*models.Post, error)
	CheckByUserIDFn      func(ctx context.Context, postID, userID int64) (bool, error)
	ListDueFn            func(ctx context.Context, cutoff time.Time) ([]*models.Post, error)
	ClaimForPublishingFn func(ctx context.Context, postID int64) (bool, error)
	SetScheduledFn       func(ctx context.Context, postID int64, scheduledTime time.Time) error
	UpdateStatusFn       func(ctx context.Context, postID int64, status string) error
	MarkFailedFn         func(ctx context.Context, postID int64, errorMessage string) error
	CancelFn             func(ctx context.Context, postID int64) (bool, error)
	RemoveFn             func(ctx context.Context, id int64) error
}

func (s *stubPostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	return s.CreateFn(ctx, tx, post)
}
func (s *stubPostRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	return s.GetByIDFn(ctx, id)
}
func (s *stubPostRepo) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	return s.GetByUserIDFn(ctx, userID)
}
func (s *stubPostRepo) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	return s.CheckByUserIDFn(ctx, postID, userID)
}
func (s *stubPostRepo) ListDue(ctx context.Context, cutoff time.Time) ([]*models.Post, error) {
	return s.ListDueFn(ctx, cutoff)
}
func (s *stubPostRepo) ClaimForPublishing(ctx context.Context, postID int64) (bool, error) {
	return s.ClaimForPublishingFn(ctx, postID)
}
func (s *stubPostRepo) SetScheduled(ctx context.Context, postID int64, scheduledTime time.Time) error {
	return s.SetScheduledFn(ctx, postID, scheduledTime)
}
func (s *stubPostRepo) UpdateStatus(ctx context.Context, postID int64, status string) error {
	return s.UpdateStatusFn(ctx, postID, status)
}
func (s *stubPostRepo) MarkFailed(ctx context.Context, postID int64, errorMessage string) error {
	return s.MarkFailedFn(ctx, postID, errorMessage)
}
func (s *stubPostRepo) Cancel(ctx context.Context, postID int64) (bool, error) {
	return s.CancelFn(ctx, postID)
}
func (s *stubPostRepo) Remove(ctx context.Context, id int64) error {
	return s.RemoveFn(ctx, id)
}

type stubPublicationRepo struct {
	CreateFn                 func(ctx context.Context, tx *sql.Tx, pub *models.Publication) (int64, error)
	GetByIDFn                func(ctx context.Context, id int64) (*models.Publication, error)
	GetByPostIDFn            func(ctx context.Context, postID int64) (*models.Publication, error)
	SetPublishedFn           func(ctx context.Context, id int64, platformPostID string, publishedAt time.Time) error
	SetFailedFn              func(ctx context.Context, id int64, errorMessage string) error
	SetPermalinkFn           func(ctx context.Context, id int64, permalink string) error
	ClearPermalinkFn         func(ctx context.Context, id int64) error
	SetInsightsFn            func(ctx context.Context, id int64, reach, engagement int64) error
	ListPublishedByAccountFn func(ctx context.Context, accountID int64) ([]*models.Publication, error)
	ListRecentPublishedFn    func(ctx context.Context, userID int64, limit int) ([]*models.Publication, error)
	AggregateByPlatformFn    func(ctx context.Context, userID int64) ([]*models.PlatformRollup, error)
}

func (s *stubPublicationRepo) Create(ctx context.Context, tx *sql.Tx, pub *models.Publication) (int64, error) {
	return s.CreateFn(ctx, tx, pub)
}
func (s *stubPublicationRepo) GetByID(ctx context.Context, id int64) (*models.Publication, error) {
	return s.GetByIDFn(ctx, id)
}
func (s *stubPublicationRepo) GetByPostID(ctx context.Context, postID int64) (*models.Publication, error) {
	return s.GetByPostIDFn(ctx, postID)
}
func (s *stubPublicationRepo) SetPublished(ctx context.Context, id int64, platformPostID string, publishedAt time.Time) error {
	return s.SetPublishedFn(ctx, id, platformPostID, publishedAt)
}
func (s *stubPublicationRepo) SetFailed(ctx context.Context, id int64, errorMessage string) error {
	return s.SetFailedFn(ctx, id, errorMessage)
}
func (s *stubPublicationRepo) SetPermalink(ctx context.Context, id int64, permalink string) error {
	return s.SetPermalinkFn(ctx, id, permalink)
}
func (s *stubPublicationRepo) ClearPermalink(ctx context.Context, id int64) error {
	return s.ClearPermalinkFn(ctx, id)
}
func (s *stubPublicationRepo) SetInsights(ctx context.Context, id int64, reach, engagement int64) error {
	return s.SetInsightsFn(ctx, id, reach, engagement)
}
func (s *stubPublicationRepo) ListPublishedByAccount(ctx context.Context, accountID int64) ([]*models.Publication, error) {
	return s.ListPublishedByAccountFn(ctx, accountID)
}
func (s *stubPublicationRepo) ListRecentPublished(ctx context.Context, userID int64, limit int) ([]*models.Publication, error) {
	return s.ListRecentPublishedFn(ctx, userID, limit)
}
func (s *stubPublicationRepo) AggregateByPlatform(ctx context.Context, userID int64) ([]*models.PlatformRollup, error) {
	return s.AggregateByPlatformFn(ctx, userID)
}

type stubAccountRepo struct {
	CreateFn             func(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error)
	GetByIDFn            func(ctx context.Context, id int64) (*models.SocialAccount, error)
	ListInfoByUserIDFn   func(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
	ListExpiringBeforeFn func(ctx context.Context, cutoff time.Time) ([]*models.SocialAccount, error)
	CheckByUserIDFn      func(ctx context.Context, accountID, userID int64) (bool, error)
	SetTokenFn           func(ctx context.Context, accountID int64, accessToken, refreshToken string, expiresAt time.Time) error
	SetStatusFn          func(ctx context.Context, accountID int64, status string) error
	DisconnectFn         func(ctx context.Context, accountID int64) (bool, error)
}

func (s *stubAccountRepo) Create(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error) {
	return s.CreateFn(ctx, tx, sa)
}
func (s *stubAccountRepo) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	return s.GetByIDFn(ctx, id)
}
func (s *stubAccountRepo) ListInfoByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	return s.ListInfoByUserIDFn(ctx, userID)
}
func (s *stubAccountRepo) ListExpiringBefore(ctx context.Context, cutoff time.Time) ([]*models.SocialAccount, error) {
	return s.ListExpiringBeforeFn(ctx, cutoff)
}
func (s *stubAccountRepo) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	return s.CheckByUserIDFn(ctx, accountID, userID)
}
func (s *stubAccountRepo) SetToken(ctx context.Context, accountID int64, accessToken, refreshToken string, expiresAt time.Time) error {
	return s.SetTokenFn(ctx, accountID, accessToken, refreshToken, expiresAt)
}
func (s *stubAccountRepo) SetStatus(ctx context.Context, accountID int64, status string) error {
	return s.SetStatusFn(ctx, accountID, status)
}
func (s *stubAccountRepo) Disconnect(ctx context.Context, accountID int64) (bool, error) {
	return s.DisconnectFn(ctx, accountID)
}

type stubPostMediaRepo struct {
	CreateFn         func(ctx context.Context, tx *sql.Tx, pm *models.PostMedia) error
	ListByPostIDFn   func(ctx context.Context, postID int64) ([]*models.PostMedia, error)
	UpdatePositionFn func(ctx context.Context, postID int64, id int64, position int) error
	RemoveByPostIDFn func(ctx context.Context, postID int64) error
}

func (s *stubPostMediaRepo) Create(ctx context.Context, tx *sql.Tx, pm *models.PostMedia) error {
	return s.CreateFn(ctx, tx, pm)
}
func (s *stubPostMediaRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.PostMedia, error) {
	return s.ListByPostIDFn(ctx, postID)
}
func (s *stubPostMediaRepo) UpdatePosition(ctx context.Context, postID int64, id int64, position int) error {
	return s.UpdatePositionFn(ctx, postID, id, position)
}
func (s *stubPostMediaRepo) RemoveByPostID(ctx context.Context, postID int64) error {
	return s.RemoveByPostIDFn(ctx, postID)
}

type stubCommentRepo struct {
	CreateFn       func(ctx context.Context, tx *sql.Tx, sc *models.ScheduledComment) (int64, error)
	GetByIDFn      func(ctx context.Context, id int64) (*models.ScheduledComment, error)
	ListByPostIDFn func(ctx context.Context, postID int64) ([]*models.ScheduledComment, error)
	SetPublishedFn func(ctx context.Context, id int64, platformRefID string) error
	SetFailedFn    func(ctx context.Context, id int64, errorMessage string) error
}

func (s *stubCommentRepo) Create(ctx context.Context, tx *sql.Tx, sc *models.ScheduledComment) (int64, error) {
	return s.CreateFn(ctx, tx, sc)
}
func (s *stubCommentRepo) GetByID(ctx context.Context, id int64) (*models.ScheduledComment, error) {
	return s.GetByIDFn(ctx, id)
}
func (s *stubCommentRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.ScheduledComment, error) {
	return s.ListByPostIDFn(ctx, postID)
}
func (s *stubCommentRepo) SetPublished(ctx context.Context, id int64, platformRefID string) error {
	return s.SetPublishedFn(ctx, id, platformRefID)
}
func (s *stubCommentRepo) SetFailed(ctx context.Context, id int64, errorMessage string) error {
	return s.SetFailedFn(ctx, id, errorMessage)
}

// stubAdapter records publish calls and lets tests script each capability.
type stubAdapter struct {
	name                 string
	AuthURLFn            func(state string) string
	ExchangeCodeFn       func(ctx context.Context, code string) (*platform.Token, *transfer.AccountInfo, error)
	RefreshAccessTokenFn func(ctx context.Context, accessToken, refreshToken string) (*platform.Token, error)
	PublishTextFn        func(ctx context.Context, req *platform.PublishRequest) (*platform.PublishResult, error)
	PublishMediaFn       func(ctx context.Context, req *platform.PublishRequest) (*platform.PublishResult, error)
	PublishCarouselFn    func(ctx context.Context, req *platform.PublishRequest) (*platform.PublishResult, error)
	PublishCommentFn     func(ctx context.Context, accessToken, platformPostID, body string) (string, error)
	GetPermalinkFn       func(ctx context.Context, accessToken, platformPostID, username string) (string, error)
	AccountInsightsFn    func(ctx context.Context, accessToken, accountID string, metrics []string) (map[string]int64, error)
}

func (a *stubAdapter) Platform() string {
	if a.name == "" {
		return "stub"
	}
	return a.name
}

func (a *stubAdapter) AuthURL(state string) string {
	if a.AuthURLFn == nil {
		return "https://example.com/auth?state=" + state
	}
	return a.AuthURLFn(state)
}

func (a *stubAdapter) ExchangeCode(ctx context.Context, code string) (*platform.Token, *transfer.AccountInfo, error) {
	return a.ExchangeCodeFn(ctx, code)
}

func (a *stubAdapter) RefreshAccessToken(ctx context.Context, accessToken, refreshToken string) (*platform.Token, error) {
	return a.RefreshAccessTokenFn(ctx, accessToken, refreshToken)
}

func (a *stubAdapter) PublishText(ctx context.Context, req *platform.PublishRequest) (*platform.PublishResult, error) {
	return a.PublishTextFn(ctx, req)
}

func (a *stubAdapter) PublishMedia(ctx context.Context, req *platform.PublishRequest) (*platform.PublishResult, error) {
	return a.PublishMediaFn(ctx, req)
}

func (a *stubAdapter) PublishCarousel(ctx context.Context, req *platform.PublishRequest) (*platform.PublishResult, error) {
	return a.PublishCarouselFn(ctx, req)
}

func (a *stubAdapter) PublishComment(ctx context.Context, accessToken, platformPostID, body string) (string, error) {
	return a.PublishCommentFn(ctx, accessToken, platformPostID, body)
}

func (a *stubAdapter) GetPermalink(ctx context.Context, accessToken, platformPostID, username string) (string, error) {
	return a.GetPermalinkFn(ctx, accessToken, platformPostID, username)
}

func (a *stubAdapter) FallbackPermalink(username, platformPostID string) string {
	return "https://example.com/" + username + "/" + platformPostID
}

func (a *stubAdapter) AccountInsights(ctx context.Context, accessToken, accountID string, metrics []string) (map[string]int64, error) {
	return a.AccountInsightsFn(ctx, accessToken, accountID, metrics)
}

type stubMediaService struct {
	AssembleFn func(ctx context.Context, tx *sql.Tx, userID, postID int64, postType string, inputs []transfer.MediaInput) ([]*models.PostMedia, error)
	RemoveFn   func(ctx context.Context, postID int64) error
}

func (s *stubMediaService) Assemble(ctx context.Context, tx *sql.Tx, userID, postID int64, postType string, inputs []transfer.MediaInput) ([]*models.PostMedia, error) {
	if s.AssembleFn == nil {
		return nil, nil
	}
	return s.AssembleFn(ctx, tx, userID, postID, postType, inputs)
}

func (s *stubMediaService) Remove(ctx context.Context, postID int64) error {
	if s.RemoveFn == nil {
		return nil
	}
	return s.RemoveFn(ctx, postID)
}

type stubTokenService struct {
	AccessTokenFn func(ctx context.Context, account *models.SocialAccount) (string, error)
	RefreshFn     func(ctx context.Context, account *models.SocialAccount) (*transfer.TokenRefresh, error)
}

func (s *stubTokenService) AccessToken(ctx context.Context, account *models.SocialAccount) (string, error) {
	if s.AccessTokenFn == nil {
		return "token", nil
	}
	return s.AccessTokenFn(ctx, account)
}

func (s *stubTokenService) Refresh(ctx context.Context, account *models.SocialAccount) (*transfer.TokenRefresh, error) {
	if s.RefreshFn == nil {
		return nil, errors.New("refresh not scripted")
	}
	return s.RefreshFn(ctx, account)
}

type stubApiKeyRepo struct {
	GetByKeyFn      func(ctx context.Context, apiKey string) (*int64, bool, error)
	GetByUserIDFn   func(ctx context.Context, userID int64) ([]*models.ApiKey, error)
	CreateFn        func(ctx context.Context, apiKey *models.ApiKey) (int64, error)
	CheckByUserIDFn func(ctx context.Context, keyID, userID int64) (bool, error)
	RemoveFn        func(ctx context.Context, id int64) error
}

func (s *stubApiKeyRepo) GetByKey(ctx context.Context, apiKey string) (*int64, bool, error) {
	return s.GetByKeyFn(ctx, apiKey)
}
func (s *stubApiKeyRepo) GetByUserID(ctx context.Context, userID int64) ([]*models.ApiKey, error) {
	return s.GetByUserIDFn(ctx, userID)
}
func (s *stubApiKeyRepo) Create(ctx context.Context, apiKey *models.ApiKey) (int64, error) {
	return s.CreateFn(ctx, apiKey)
}
func (s *stubApiKeyRepo) CheckByUserID(ctx context.Context, keyID, userID int64) (bool, error) {
	return s.CheckByUserIDFn(ctx, keyID, userID)
}
func (s *stubApiKeyRepo) Remove(ctx context.Context, id int64) error {
	return s.RemoveFn(ctx, id)
}

type recordedComment struct {
	CommentID int64
	ProcessAt time.Time
}

type stubEnqueuer struct {
	comments []recordedComment
}

func (s *stubEnqueuer) EnqueueComment(ctx context.Context, commentID int64, processAt time.Time) error {
	s.comments = append(s.comments, recordedComment{CommentID: commentID, ProcessAt: processAt})
	return nil
}
