package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/avelarde/crosspost/internal/transfer"
)

const googleAuthURL = "https://accounts.google.com/o/oauth2/v2/auth"

// Youtube uploads videos through the YouTube Data API. Media must be
// downloaded from object storage first; the API takes a reader, not a URL.
type Youtube struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	HTTPClient   *http.Client
}

func NewYoutube(clientID, clientSecret, redirectURI string) *Youtube {
	return &Youtube{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  redirectURI,
		HTTPClient:   http.DefaultClient,
	}
}

func (yt *Youtube) Platform() string { return "youtube" }

func (yt *Youtube) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     yt.ClientID,
		ClientSecret: yt.ClientSecret,
		RedirectURL:  yt.RedirectURI,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
			"https://www.googleapis.com/auth/youtube.upload",
		},
		Endpoint: google.Endpoint,
	}
}

func (yt *Youtube) AuthURL(state string) string {
	params := url.Values{}
	params.Add("client_id", yt.ClientID)
	params.Add("redirect_uri", yt.RedirectURI)
	params.Add("response_type", "code")
	params.Add("scope", "https://www.googleapis.com/auth/userinfo.profile https://www.googleapis.com/auth/userinfo.email https://www.googleapis.com/auth/youtube.upload")
	params.Add("state", state)
	params.Add("access_type", "offline")
	return fmt.Sprintf("%s?%s", googleAuthURL, params.Encode())
}

func (yt *Youtube) ExchangeCode(ctx context.Context, code string) (*Token, *transfer.AccountInfo, error) {
	conf := yt.oauthConfig()

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	if token.RefreshToken == "" {
		return nil, nil, fmt.Errorf("refresh token is empty")
	}

	client := conf.Client(ctx, token)
	userInfo, err := googleUserInfo(client)
	if err != nil {
		return nil, nil, err
	}

	return &Token{
			AccessToken:  token.AccessToken,
			RefreshToken: token.RefreshToken,
			ExpiresAt:    token.Expiry,
		}, &transfer.AccountInfo{
			AccountID:      userInfo.ID,
			Name:           userInfo.Name,
			Username:       userInfo.Email,
			ProfilePicture: userInfo.Picture,
		}, nil
}

func (yt *Youtube) RefreshAccessToken(ctx context.Context, accessToken, refreshToken string) (*Token, error) {
	conf := yt.oauthConfig()
	tokenSource := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	token, err := tokenSource.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		authExpired := false
		statusCode := 0
		if errors.As(err, &retrieveErr) {
			statusCode = retrieveErr.Response.StatusCode
			authExpired = statusCode == http.StatusBadRequest || statusCode == http.StatusUnauthorized
		}
		return nil, &ProviderError{
			Platform:    yt.Platform(),
			StatusCode:  statusCode,
			Message:     err.Error(),
			AuthExpired: authExpired,
		}
	}

	// Google keeps the refresh token stable unless re-consented.
	newRefresh := token.RefreshToken
	if newRefresh == "" {
		newRefresh = refreshToken
	}

	return &Token{
		AccessToken:  token.AccessToken,
		RefreshToken: newRefresh,
		ExpiresAt:    token.Expiry,
	}, nil
}

func (yt *Youtube) PublishText(ctx context.Context, req *PublishRequest) (*PublishResult, error) {
	return nil, &ProviderError{
		Platform: yt.Platform(),
		Message:  "text-only posts are not supported on youtube",
	}
}

func (yt *Youtube) PublishMedia(ctx context.Context, req *PublishRequest) (*PublishResult, error) {
	if len(req.Media) == 0 {
		return nil, &ProviderError{Platform: yt.Platform(), Message: "no media to publish"}
	}
	item := req.Media[0]
	if item.Type != "video" {
		return nil, &ProviderError{Platform: yt.Platform(), Message: "only video uploads are supported on youtube"}
	}

	token := &oauth2.Token{AccessToken: req.AccessToken}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	service, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("error creating youtube service: %w", err)
	}

	tempFile, err := yt.downloadVideo(ctx, item.URL)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tempFile)

	file, err := os.Open(tempFile)
	if err != nil {
		return nil, fmt.Errorf("error opening video file: %w", err)
	}
	defer file.Close()

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       req.Title,
			Description: req.Caption,
			CategoryId:  "22",
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: "public",
		},
	}

	call := service.Videos.Insert([]string{"snippet", "status"}, video)
	response, err := call.Media(file).Do()
	if err != nil {
		return nil, yt.apiError("upload", err)
	}

	return &PublishResult{PlatformPostID: response.Id}, nil
}

func (yt *Youtube) PublishCarousel(ctx context.Context, req *PublishRequest) (*PublishResult, error) {
	return nil, &ProviderError{
		Platform: yt.Platform(),
		Message:  "carousel posts are not supported on youtube",
	}
}

func (yt *Youtube) PublishComment(ctx context.Context, accessToken, platformPostID, body string) (string, error) {
	token := &oauth2.Token{AccessToken: accessToken}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	service, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return "", fmt.Errorf("error creating youtube service: %w", err)
	}

	thread := &youtube.CommentThread{
		Snippet: &youtube.CommentThreadSnippet{
			VideoId: platformPostID,
			TopLevelComment: &youtube.Comment{
				Snippet: &youtube.CommentSnippet{TextOriginal: body},
			},
		},
	}

	response, err := service.CommentThreads.Insert([]string{"snippet"}, thread).Do()
	if err != nil {
		return "", yt.apiError("comment", err)
	}
	return response.Id, nil
}

func (yt *Youtube) GetPermalink(ctx context.Context, accessToken, platformPostID, username string) (string, error) {
	// Video URLs are fully determined by the video ID; no lookup needed.
	return yt.FallbackPermalink(username, platformPostID), nil
}

func (yt *Youtube) FallbackPermalink(username, platformPostID string) string {
	return fmt.Sprintf("https://youtu.be/%s", platformPostID)
}

func (yt *Youtube) AccountInsights(ctx context.Context, accessToken, accountID string, metrics []string) (map[string]int64, error) {
	return nil, &ProviderError{
		Platform: yt.Platform(),
		Message:  "account insights are not supported on youtube",
	}
}

func (yt *Youtube) downloadVideo(ctx context.Context, srcURL string) (string, error) {
	tempFile, err := os.CreateTemp("", "video-*.mp4")
	if err != nil {
		return "", fmt.Errorf("error creating temporary file: %w", err)
	}
	defer tempFile.Close()

	req, err := http.NewRequestWithContext(ctx, "GET", srcURL, nil)
	if err != nil {
		return "", err
	}

	response, err := yt.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error downloading video: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected response status: %d", response.StatusCode)
	}

	if _, err := io.Copy(tempFile, response.Body); err != nil {
		return "", fmt.Errorf("error saving video to temporary file: %w", err)
	}

	return tempFile.Name(), nil
}

func (yt *Youtube) apiError(step string, err error) error {
	pe := &ProviderError{
		Platform: yt.Platform(),
		Step:     step,
		Message:  err.Error(),
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		pe.StatusCode = apiErr.Code
		pe.Message = apiErr.Message
		pe.AuthExpired = apiErr.Code == http.StatusUnauthorized
	}
	return pe
}

func googleUserInfo(client *http.Client) (*transfer.GoogleUserInfo, error) {
	userInfoURL := "https://www.googleapis.com/oauth2/v1/userinfo"

	response, err := client.Get(userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("error fetching user info: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response status: %d", response.StatusCode)
	}

	var userInfo transfer.GoogleUserInfo
	if err := json.NewDecoder(response.Body).Decode(&userInfo); err != nil {
		return nil, fmt.Errorf("error decoding user info: %w", err)
	}

	return &userInfo, nil
}
