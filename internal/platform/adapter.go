package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/avelarde/crosspost/internal/transfer"
)

// MediaItem is one resolved, publicly reachable media URL in declared order.
type MediaItem struct {
	Position int
	Type     string
	URL      string
	AltText  string
}

// PublishRequest carries everything an adapter needs for one publish call.
// AccessToken is already decrypted by the caller.
type PublishRequest struct {
	AccountID   string
	Username    string
	AccessToken string
	Caption     string
	Title       string
	Media       []MediaItem
}

type PublishResult struct {
	PlatformPostID string
}

type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Adapter is one platform's capability set. Publish calls are synchronous;
// multi-step flows (carousel containers) happen inside a single call and any
// intermediate failure is reported with the failing step's error.
type Adapter interface {
	Platform() string
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*Token, *transfer.AccountInfo, error)
	RefreshAccessToken(ctx context.Context, accessToken, refreshToken string) (*Token, error)
	PublishText(ctx context.Context, req *PublishRequest) (*PublishResult, error)
	PublishMedia(ctx context.Context, req *PublishRequest) (*PublishResult, error)
	PublishCarousel(ctx context.Context, req *PublishRequest) (*PublishResult, error)
	PublishComment(ctx context.Context, accessToken, platformPostID, body string) (string, error)
	GetPermalink(ctx context.Context, accessToken, platformPostID, username string) (string, error)
	FallbackPermalink(username, platformPostID string) string
	AccountInsights(ctx context.Context, accessToken, accountID string, metrics []string) (map[string]int64, error)
}

type Registry map[string]Adapter

func (r Registry) Get(name string) (Adapter, error) {
	a, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("unsupported platform: %s", name)
	}
	return a, nil
}

func (r Registry) Register(a Adapter) {
	r[a.Platform()] = a
}
