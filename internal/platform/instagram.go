package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avelarde/crosspost/internal/transfer"
)

const (
	instagramGraphURL = "https://graph.instagram.com/v21.0"
	instagramOAuthURL = "https://api.instagram.com/oauth/access_token"
	instagramAuthURL  = "https://www.instagram.com/oauth/authorize"
)

// Instagram publishes through the Instagram Graph API. Media and carousel
// publishes are multi-step: one container per item, an optional carousel
// container, then media_publish.
type Instagram struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	BaseURL      string
	OAuthURL     string
	HTTPClient   *http.Client
}

func NewInstagram(clientID, clientSecret, redirectURI string) *Instagram {
	return &Instagram{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  redirectURI,
		BaseURL:      instagramGraphURL,
		OAuthURL:     instagramOAuthURL,
		HTTPClient:   http.DefaultClient,
	}
}

func (ig *Instagram) Platform() string { return "instagram" }

func (ig *Instagram) AuthURL(state string) string {
	params := url.Values{}
	params.Add("client_id", ig.ClientID)
	params.Add("scope", "instagram_business_basic,instagram_business_content_publish")
	params.Add("response_type", "code")
	params.Add("redirect_uri", ig.RedirectURI)
	params.Add("state", state)
	return fmt.Sprintf("%s?%s", instagramAuthURL, params.Encode())
}

func (ig *Instagram) ExchangeCode(ctx context.Context, code string) (*Token, *transfer.AccountInfo, error) {
	data := url.Values{}
	data.Set("client_id", ig.ClientID)
	data.Set("client_secret", ig.ClientSecret)
	data.Set("grant_type", "authorization_code")
	data.Set("redirect_uri", ig.RedirectURI)
	data.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, "POST", ig.OAuthURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ig.HTTPClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, nil, fmt.Errorf("failed to get short-lived token: %w", err)
	}
	defer resp.Body.Close()

	var shortLived struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&shortLived); err != nil {
		return nil, nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	token, err := ig.exchangeLongLived(ctx, shortLived.AccessToken)
	if err != nil {
		return nil, nil, err
	}

	info, err := ig.userInfo(ctx, token.AccessToken)
	if err != nil {
		return nil, nil, err
	}

	return token, info, nil
}

func (ig *Instagram) exchangeLongLived(ctx context.Context, shortLivedToken string) (*Token, error) {
	reqURL := fmt.Sprintf(
		"%s/access_token?grant_type=ig_exchange_token&client_secret=%s&access_token=%s",
		ig.BaseURL, ig.ClientSecret, shortLivedToken,
	)

	var result transfer.GraphTokenResponse
	if err := ig.getJSON(ctx, reqURL, &result); err != nil {
		return nil, fmt.Errorf("failed to get long-lived token: %w", err)
	}

	// Instagram does not issue a separate refresh token; the long-lived
	// access token refreshes itself.
	return &Token{
		AccessToken:  result.AccessToken,
		RefreshToken: result.AccessToken,
		ExpiresAt:    time.Now().Add(time.Second * time.Duration(result.ExpiresIn)),
	}, nil
}

func (ig *Instagram) userInfo(ctx context.Context, accessToken string) (*transfer.AccountInfo, error) {
	reqURL := fmt.Sprintf(
		"%s/me?fields=id,username,name,account_type,profile_picture_url&access_token=%s",
		ig.BaseURL, accessToken,
	)

	var userInfo transfer.GraphUserInfo
	if err := ig.getJSON(ctx, reqURL, &userInfo); err != nil {
		return nil, err
	}

	return &transfer.AccountInfo{
		AccountID:      userInfo.UserID,
		Name:           userInfo.Name,
		Username:       userInfo.Username,
		ProfilePicture: userInfo.ProfilePicture,
	}, nil
}

func (ig *Instagram) RefreshAccessToken(ctx context.Context, accessToken, refreshToken string) (*Token, error) {
	reqURL := fmt.Sprintf(
		"%s/refresh_access_token?grant_type=ig_refresh_token&access_token=%s",
		ig.BaseURL, refreshToken,
	)

	var result transfer.GraphTokenResponse
	if err := ig.getJSON(ctx, reqURL, &result); err != nil {
		return nil, err
	}

	return &Token{
		AccessToken:  result.AccessToken,
		RefreshToken: result.AccessToken,
		ExpiresAt:    time.Now().Add(time.Second * time.Duration(result.ExpiresIn)),
	}, nil
}

func (ig *Instagram) PublishText(ctx context.Context, req *PublishRequest) (*PublishResult, error) {
	return nil, &ProviderError{
		Platform: ig.Platform(),
		Message:  "text-only posts are not supported on instagram",
	}
}

func (ig *Instagram) PublishMedia(ctx context.Context, req *PublishRequest) (*PublishResult, error) {
	if len(req.Media) == 0 {
		return nil, &ProviderError{Platform: ig.Platform(), Message: "no media to publish"}
	}

	item := req.Media[0]
	payload := map[string]interface{}{
		"caption":      req.Caption,
		"access_token": req.AccessToken,
	}
	if item.Type == "video" {
		payload["media_type"] = "REELS"
		payload["video_url"] = item.URL
	} else {
		payload["image_url"] = item.URL
	}

	containerID, err := ig.createContainer(ctx, req.AccountID, payload, "media container")
	if err != nil {
		return nil, err
	}

	return ig.publishContainer(ctx, req.AccountID, containerID, req.AccessToken)
}

func (ig *Instagram) PublishCarousel(ctx context.Context, req *PublishRequest) (*PublishResult, error) {
	containerIDs := make([]string, 0, len(req.Media))

	// Items are submitted in declared order; the children list preserves it.
	for _, item := range req.Media {
		payload := map[string]interface{}{
			"is_carousel_item": true,
			"access_token":     req.AccessToken,
		}
		if item.Type == "video" {
			payload["media_type"] = "VIDEO"
			payload["video_url"] = item.URL
		} else {
			payload["image_url"] = item.URL
		}

		containerID, err := ig.createContainer(ctx, req.AccountID, payload, fmt.Sprintf("item container %d", item.Position))
		if err != nil {
			return nil, err
		}
		containerIDs = append(containerIDs, containerID)
	}

	payload := map[string]interface{}{
		"media_type":   "CAROUSEL",
		"caption":      req.Caption,
		"children":     containerIDs,
		"access_token": req.AccessToken,
	}
	carouselID, err := ig.createContainer(ctx, req.AccountID, payload, "carousel container")
	if err != nil {
		return nil, err
	}

	return ig.publishContainer(ctx, req.AccountID, carouselID, req.AccessToken)
}

func (ig *Instagram) createContainer(ctx context.Context, accountID string, payload map[string]interface{}, step string) (string, error) {
	reqURL := fmt.Sprintf("%s/%s/media", ig.BaseURL, accountID)

	var result transfer.GraphContainerResponse
	if err := ig.postJSON(ctx, reqURL, payload, step, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", &ProviderError{Platform: ig.Platform(), Step: step, Message: "no container ID returned"}
	}
	return result.ID, nil
}

func (ig *Instagram) publishContainer(ctx context.Context, accountID, containerID, accessToken string) (*PublishResult, error) {
	reqURL := fmt.Sprintf("%s/%s/media_publish", ig.BaseURL, accountID)
	payload := map[string]interface{}{
		"creation_id":  containerID,
		"access_token": accessToken,
	}

	var result transfer.GraphContainerResponse
	if err := ig.postJSON(ctx, reqURL, payload, "publish", &result); err != nil {
		return nil, err
	}
	if result.ID == "" {
		return nil, &ProviderError{Platform: ig.Platform(), Step: "publish", Message: "no media ID returned"}
	}
	return &PublishResult{PlatformPostID: result.ID}, nil
}

func (ig *Instagram) PublishComment(ctx context.Context, accessToken, platformPostID, body string) (string, error) {
	reqURL := fmt.Sprintf("%s/%s/comments", ig.BaseURL, platformPostID)
	payload := map[string]interface{}{
		"message":      body,
		"access_token": accessToken,
	}

	var result transfer.GraphContainerResponse
	if err := ig.postJSON(ctx, reqURL, payload, "comment", &result); err != nil {
		return "", err
	}
	return result.ID, nil
}

func (ig *Instagram) GetPermalink(ctx context.Context, accessToken, platformPostID, username string) (string, error) {
	reqURL := fmt.Sprintf("%s/%s?fields=permalink&access_token=%s", ig.BaseURL, platformPostID, accessToken)

	var result transfer.GraphPermalinkResponse
	if err := ig.getJSON(ctx, reqURL, &result); err != nil {
		return "", err
	}
	if result.Permalink == "" {
		return "", &ProviderError{Platform: ig.Platform(), Message: "no permalink returned"}
	}
	return result.Permalink, nil
}

func (ig *Instagram) FallbackPermalink(username, platformPostID string) string {
	return fmt.Sprintf("https://www.instagram.com/p/%s/", platformPostID)
}

func (ig *Instagram) AccountInsights(ctx context.Context, accessToken, accountID string, metrics []string) (map[string]int64, error) {
	reqURL := fmt.Sprintf(
		"%s/%s/insights?metric=%s&period=day&metric_type=total_value&access_token=%s",
		ig.BaseURL, accountID, strings.Join(metrics, ","), accessToken,
	)

	var result transfer.GraphInsightsResponse
	if err := ig.getJSON(ctx, reqURL, &result); err != nil {
		return nil, err
	}

	values := make(map[string]int64, len(result.Data))
	for _, metric := range result.Data {
		if len(metric.Values) > 0 {
			values[metric.Name] = metric.Values[0].Value
		}
	}
	return values, nil
}

func (ig *Instagram) postJSON(ctx context.Context, reqURL string, payload interface{}, step string, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", reqURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ig.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return graphError(ig.Platform(), step, resp)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (ig *Instagram) getJSON(ctx context.Context, reqURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	resp, err := ig.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return graphError(ig.Platform(), "", resp)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// graphError turns a non-200 Graph API response into a ProviderError.
// OAuthException code 190 is the Graph signal for a bad or expired token.
func graphError(platform, step string, resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	pe := &ProviderError{
		Platform:   platform,
		StatusCode: resp.StatusCode,
		Step:       step,
		Message:    fmt.Sprintf("unexpected status code %d", resp.StatusCode),
	}

	var graphResp transfer.GraphErrorResponse
	if err := json.Unmarshal(body, &graphResp); err == nil && graphResp.Error.Message != "" {
		pe.Message = graphResp.Error.Message
		pe.Code = fmt.Sprintf("%d", graphResp.Error.Code)
		pe.AuthExpired = graphResp.Error.Code == 190
	}
	if resp.StatusCode == http.StatusUnauthorized {
		pe.AuthExpired = true
	}
	return pe
}
