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
	threadsGraphURL = "https://graph.threads.net/v1.0"
	threadsAuthURL  = "https://threads.net/oauth/authorize"
)

// Threads publishes through the Threads API, the text-capable Meta surface.
// The flow mirrors Instagram: container, then publish.
type Threads struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	BaseURL      string
	HTTPClient   *http.Client
}

func NewThreads(clientID, clientSecret, redirectURI string) *Threads {
	return &Threads{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  redirectURI,
		BaseURL:      threadsGraphURL,
		HTTPClient:   http.DefaultClient,
	}
}

func (t *Threads) Platform() string { return "threads" }

func (t *Threads) AuthURL(state string) string {
	params := url.Values{}
	params.Add("client_id", t.ClientID)
	params.Add("scope", "threads_basic,threads_content_publish")
	params.Add("response_type", "code")
	params.Add("redirect_uri", t.RedirectURI)
	params.Add("state", state)
	return fmt.Sprintf("%s?%s", threadsAuthURL, params.Encode())
}

func (t *Threads) ExchangeCode(ctx context.Context, code string) (*Token, *transfer.AccountInfo, error) {
	data := url.Values{}
	data.Set("client_id", t.ClientID)
	data.Set("client_secret", t.ClientSecret)
	data.Set("grant_type", "authorization_code")
	data.Set("redirect_uri", t.RedirectURI)
	data.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, "POST", t.BaseURL+"/oauth/access_token", strings.NewReader(data.Encode()))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, graphError(t.Platform(), "token exchange", resp)
	}

	var result transfer.GraphTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	token := &Token{
		AccessToken:  result.AccessToken,
		RefreshToken: result.AccessToken,
		ExpiresAt:    time.Now().Add(time.Second * time.Duration(result.ExpiresIn)),
	}

	var userInfo transfer.GraphUserInfo
	infoURL := fmt.Sprintf("%s/me?fields=id,username,name,threads_profile_picture_url&access_token=%s", t.BaseURL, token.AccessToken)
	if err := t.getJSON(ctx, infoURL, &userInfo); err != nil {
		return nil, nil, err
	}

	return token, &transfer.AccountInfo{
		AccountID:      userInfo.UserID,
		Name:           userInfo.Name,
		Username:       userInfo.Username,
		ProfilePicture: userInfo.ProfilePicture,
	}, nil
}

func (t *Threads) RefreshAccessToken(ctx context.Context, accessToken, refreshToken string) (*Token, error) {
	reqURL := fmt.Sprintf(
		"%s/refresh_access_token?grant_type=th_refresh_token&access_token=%s",
		t.BaseURL, refreshToken,
	)

	var result transfer.GraphTokenResponse
	if err := t.getJSON(ctx, reqURL, &result); err != nil {
		return nil, err
	}

	return &Token{
		AccessToken:  result.AccessToken,
		RefreshToken: result.AccessToken,
		ExpiresAt:    time.Now().Add(time.Second * time.Duration(result.ExpiresIn)),
	}, nil
}

func (t *Threads) PublishText(ctx context.Context, req *PublishRequest) (*PublishResult, error) {
	payload := map[string]interface{}{
		"media_type":   "TEXT",
		"text":         req.Caption,
		"access_token": req.AccessToken,
	}
	containerID, err := t.createContainer(ctx, req.AccountID, payload, "text container")
	if err != nil {
		return nil, err
	}
	return t.publishContainer(ctx, req.AccountID, containerID, req.AccessToken)
}

func (t *Threads) PublishMedia(ctx context.Context, req *PublishRequest) (*PublishResult, error) {
	if len(req.Media) == 0 {
		return nil, &ProviderError{Platform: t.Platform(), Message: "no media to publish"}
	}

	item := req.Media[0]
	payload := map[string]interface{}{
		"text":         req.Caption,
		"access_token": req.AccessToken,
	}
	if item.Type == "video" {
		payload["media_type"] = "VIDEO"
		payload["video_url"] = item.URL
	} else {
		payload["media_type"] = "IMAGE"
		payload["image_url"] = item.URL
	}

	containerID, err := t.createContainer(ctx, req.AccountID, payload, "media container")
	if err != nil {
		return nil, err
	}
	return t.publishContainer(ctx, req.AccountID, containerID, req.AccessToken)
}

func (t *Threads) PublishCarousel(ctx context.Context, req *PublishRequest) (*PublishResult, error) {
	containerIDs := make([]string, 0, len(req.Media))

	for _, item := range req.Media {
		payload := map[string]interface{}{
			"is_carousel_item": true,
			"access_token":     req.AccessToken,
		}
		if item.Type == "video" {
			payload["media_type"] = "VIDEO"
			payload["video_url"] = item.URL
		} else {
			payload["media_type"] = "IMAGE"
			payload["image_url"] = item.URL
		}

		containerID, err := t.createContainer(ctx, req.AccountID, payload, fmt.Sprintf("item container %d", item.Position))
		if err != nil {
			return nil, err
		}
		containerIDs = append(containerIDs, containerID)
	}

	payload := map[string]interface{}{
		"media_type":   "CAROUSEL",
		"text":         req.Caption,
		"children":     strings.Join(containerIDs, ","),
		"access_token": req.AccessToken,
	}
	carouselID, err := t.createContainer(ctx, req.AccountID, payload, "carousel container")
	if err != nil {
		return nil, err
	}
	return t.publishContainer(ctx, req.AccountID, carouselID, req.AccessToken)
}

func (t *Threads) PublishComment(ctx context.Context, accessToken, platformPostID, body string) (string, error) {
	// A Threads reply is a text container attached to the parent post.
	payload := map[string]interface{}{
		"media_type":   "TEXT",
		"text":         body,
		"reply_to_id":  platformPostID,
		"access_token": accessToken,
	}

	containerID, err := t.createContainer(ctx, "me", payload, "reply container")
	if err != nil {
		return "", err
	}

	result, err := t.publishContainer(ctx, "me", containerID, accessToken)
	if err != nil {
		return "", err
	}
	return result.PlatformPostID, nil
}

func (t *Threads) GetPermalink(ctx context.Context, accessToken, platformPostID, username string) (string, error) {
	reqURL := fmt.Sprintf("%s/%s?fields=permalink&access_token=%s", t.BaseURL, platformPostID, accessToken)

	var result transfer.GraphPermalinkResponse
	if err := t.getJSON(ctx, reqURL, &result); err != nil {
		return "", err
	}
	if result.Permalink == "" {
		return "", &ProviderError{Platform: t.Platform(), Message: "no permalink returned"}
	}
	return result.Permalink, nil
}

func (t *Threads) FallbackPermalink(username, platformPostID string) string {
	return fmt.Sprintf("https://www.threads.net/@%s/post/%s", username, platformPostID)
}

func (t *Threads) AccountInsights(ctx context.Context, accessToken, accountID string, metrics []string) (map[string]int64, error) {
	reqURL := fmt.Sprintf(
		"%s/%s/threads_insights?metric=%s&access_token=%s",
		t.BaseURL, accountID, strings.Join(metrics, ","), accessToken,
	)

	var result transfer.GraphInsightsResponse
	if err := t.getJSON(ctx, reqURL, &result); err != nil {
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

func (t *Threads) createContainer(ctx context.Context, accountID string, payload map[string]interface{}, step string) (string, error) {
	reqURL := fmt.Sprintf("%s/%s/threads", t.BaseURL, accountID)

	var result transfer.GraphContainerResponse
	if err := t.postJSON(ctx, reqURL, payload, step, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", &ProviderError{Platform: t.Platform(), Step: step, Message: "no container ID returned"}
	}
	return result.ID, nil
}

func (t *Threads) publishContainer(ctx context.Context, accountID, containerID, accessToken string) (*PublishResult, error) {
	reqURL := fmt.Sprintf("%s/%s/threads_publish", t.BaseURL, accountID)
	payload := map[string]interface{}{
		"creation_id":  containerID,
		"access_token": accessToken,
	}

	var result transfer.GraphContainerResponse
	if err := t.postJSON(ctx, reqURL, payload, "publish", &result); err != nil {
		return nil, err
	}
	if result.ID == "" {
		return nil, &ProviderError{Platform: t.Platform(), Step: "publish", Message: "no media ID returned"}
	}
	return &PublishResult{PlatformPostID: result.ID}, nil
}

func (t *Threads) postJSON(ctx context.Context, reqURL string, payload interface{}, step string, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", reqURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return graphError(t.Platform(), step, resp)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (t *Threads) getJSON(ctx context.Context, reqURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return graphError(t.Platform(), "", resp)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
