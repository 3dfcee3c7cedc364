package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avelarde/crosspost/internal/transfer"
)

const (
	tiktokAPIURL  = "https://open.tiktokapis.com/v2"
	tiktokAuthURL = "https://www.tiktok.com/v2/auth/authorize"
)

// Tiktok publishes through the v2 open API. Unlike the Meta surfaces it
// issues distinct access and refresh tokens.
type Tiktok struct {
	ClientKey    string
	ClientSecret string
	RedirectURI  string
	BaseURL      string
	HTTPClient   *http.Client
}

func NewTiktok(clientKey, clientSecret, redirectURI string) *Tiktok {
	return &Tiktok{
		ClientKey:    clientKey,
		ClientSecret: clientSecret,
		RedirectURI:  redirectURI,
		BaseURL:      tiktokAPIURL,
		HTTPClient:   http.DefaultClient,
	}
}

func (tk *Tiktok) Platform() string { return "tiktok" }

func (tk *Tiktok) AuthURL(state string) string {
	params := url.Values{}
	params.Add("client_key", tk.ClientKey)
	params.Add("scope", "user.info.basic,user.info.profile,video.publish,video.upload")
	params.Add("response_type", "code")
	params.Add("redirect_uri", tk.RedirectURI)
	params.Add("state", state)
	return fmt.Sprintf("%s?%s", tiktokAuthURL, params.Encode())
}

func (tk *Tiktok) ExchangeCode(ctx context.Context, code string) (*Token, *transfer.AccountInfo, error) {
	data := url.Values{}
	data.Add("client_key", tk.ClientKey)
	data.Add("client_secret", tk.ClientSecret)
	data.Add("code", code)
	data.Add("grant_type", "authorization_code")
	data.Add("redirect_uri", tk.RedirectURI)

	tokenResponse, err := tk.tokenRequest(ctx, data)
	if err != nil {
		return nil, nil, err
	}

	token := &Token{
		AccessToken:  tokenResponse.AccessToken,
		RefreshToken: tokenResponse.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Second * time.Duration(tokenResponse.ExpiresIn)),
	}

	userInfo, err := tk.userInfo(ctx, token.AccessToken)
	if err != nil {
		return nil, nil, err
	}

	return token, &transfer.AccountInfo{
		AccountID:      userInfo.OpenID,
		Name:           userInfo.DisplayName,
		Username:       userInfo.Username,
		ProfilePicture: userInfo.AvatarURL,
	}, nil
}

func (tk *Tiktok) RefreshAccessToken(ctx context.Context, accessToken, refreshToken string) (*Token, error) {
	data := url.Values{}
	data.Set("client_key", tk.ClientKey)
	data.Set("client_secret", tk.ClientSecret)
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	tokenResponse, err := tk.tokenRequest(ctx, data)
	if err != nil {
		return nil, err
	}

	return &Token{
		AccessToken:  tokenResponse.AccessToken,
		RefreshToken: tokenResponse.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Second * time.Duration(tokenResponse.ExpiresIn)),
	}, nil
}

func (tk *Tiktok) tokenRequest(ctx context.Context, data url.Values) (*transfer.TiktokTokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", tk.BaseURL+"/oauth/token/", strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := tk.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	var tokenResponse transfer.TiktokTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || tokenResponse.Error != "" {
		return nil, &ProviderError{
			Platform:    tk.Platform(),
			StatusCode:  resp.StatusCode,
			Code:        tokenResponse.Error,
			Message:     tokenResponse.ErrorDescription,
			AuthExpired: tokenResponse.Error == "invalid_grant" || resp.StatusCode == http.StatusUnauthorized,
		}
	}

	return &tokenResponse, nil
}

func (tk *Tiktok) userInfo(ctx context.Context, accessToken string) (*transfer.TiktokUser, error) {
	reqURL := tk.BaseURL + "/user/info/?fields=open_id,avatar_url,display_name,username"

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := tk.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result transfer.TiktokUserResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, tk.apiError(resp.StatusCode, "user info", result.Error)
	}

	return &result.Data.User, nil
}

func (tk *Tiktok) PublishText(ctx context.Context, req *PublishRequest) (*PublishResult, error) {
	return nil, &ProviderError{
		Platform: tk.Platform(),
		Message:  "text-only posts are not supported on tiktok",
	}
}

func (tk *Tiktok) PublishMedia(ctx context.Context, req *PublishRequest) (*PublishResult, error) {
	if len(req.Media) == 0 {
		return nil, &ProviderError{Platform: tk.Platform(), Message: "no media to publish"}
	}

	item := req.Media[0]
	if item.Type == "video" {
		return tk.publishVideo(ctx, req, item)
	}
	return tk.publishPhotos(ctx, req, []MediaItem{item})
}

func (tk *Tiktok) PublishCarousel(ctx context.Context, req *PublishRequest) (*PublishResult, error) {
	return tk.publishPhotos(ctx, req, req.Media)
}

func (tk *Tiktok) publishVideo(ctx context.Context, req *PublishRequest, item MediaItem) (*PublishResult, error) {
	uploadRequest := transfer.TiktokVideoUploadRequest{
		PostInfo: transfer.TiktokVideoPostInfo{
			Title:        req.Caption,
			PrivacyLevel: "PUBLIC_TO_EVERYONE",
		},
		SourceInfo: transfer.TiktokVideoSourceInfo{
			Source:   "PULL_FROM_URL",
			VideoURL: item.URL,
		},
	}

	return tk.publishInit(ctx, req.AccessToken, "/post/publish/video/init/", "video init", uploadRequest)
}

func (tk *Tiktok) publishPhotos(ctx context.Context, req *PublishRequest, items []MediaItem) (*PublishResult, error) {
	photos := make([]string, 0, len(items))
	for _, item := range items {
		photos = append(photos, item.URL)
	}

	uploadRequest := transfer.TiktokPhotoUploadRequest{
		PostInfo: transfer.TiktokPhotoPostInfo{
			Title:       req.Title,
			Description: req.Caption,
		},
		SourceInfo: transfer.TiktokPhotoSourceInfo{
			Source:      "PULL_FROM_URL",
			PhotoImages: photos,
		},
		PostMode:  "DIRECT_POST",
		MediaType: "PHOTO",
	}

	return tk.publishInit(ctx, req.AccessToken, "/post/publish/content/init/", "photo init", uploadRequest)
}

func (tk *Tiktok) publishInit(ctx context.Context, accessToken, path, step string, payload interface{}) (*PublishResult, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", tk.BaseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := tk.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	var result transfer.TiktokPublishResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("error parsing response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, tk.apiError(resp.StatusCode, step, result.Error)
	}
	if result.Data.PublishID == "" {
		return nil, &ProviderError{Platform: tk.Platform(), Step: step, Message: "no publish ID returned"}
	}

	return &PublishResult{PlatformPostID: result.Data.PublishID}, nil
}

func (tk *Tiktok) PublishComment(ctx context.Context, accessToken, platformPostID, body string) (string, error) {
	return "", &ProviderError{
		Platform: tk.Platform(),
		Message:  "comment publishing is not supported on tiktok",
	}
}

func (tk *Tiktok) GetPermalink(ctx context.Context, accessToken, platformPostID, username string) (string, error) {
	// The open API exposes no permalink lookup for direct posts.
	return "", &ProviderError{
		Platform: tk.Platform(),
		Message:  "permalink lookup is not supported on tiktok",
	}
}

func (tk *Tiktok) FallbackPermalink(username, platformPostID string) string {
	return fmt.Sprintf("https://www.tiktok.com/@%s/video/%s", username, platformPostID)
}

func (tk *Tiktok) AccountInsights(ctx context.Context, accessToken, accountID string, metrics []string) (map[string]int64, error) {
	return nil, &ProviderError{
		Platform: tk.Platform(),
		Message:  "account insights are not supported on tiktok",
	}
}

// apiError maps the v2 API error envelope onto a ProviderError.
// access_token_invalid is TikTok's expired-token code.
func (tk *Tiktok) apiError(statusCode int, step string, apiErr transfer.TiktokError) error {
	return &ProviderError{
		Platform:    tk.Platform(),
		StatusCode:  statusCode,
		Code:        apiErr.Code,
		Message:     apiErr.Message,
		Step:        step,
		AuthExpired: apiErr.Code == "access_token_invalid" || statusCode == http.StatusUnauthorized,
	}
}
