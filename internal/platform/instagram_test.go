package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInstagram(handler http.Handler) (*Instagram, *httptest.Server) {
	srv := httptest.NewServer(handler)
	ig := NewInstagram("client-id", "client-secret", "https://app.example.com/callback")
	ig.BaseURL = srv.URL
	ig.OAuthURL = srv.URL + "/oauth/access_token"
	ig.HTTPClient = srv.Client()
	return ig, srv
}

func TestInstagramPublishMedia(t *testing.T) {
	var steps []string
	ig, srv := newTestInstagram(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		steps = append(steps, r.URL.Path)
		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		switch r.URL.Path {
		case "/17841400000000000/media":
			assert.Equal(t, "https://cdn.example.com/a.jpg", payload["image_url"])
			assert.Equal(t, "hello", payload["caption"])
			json.NewEncoder(w).Encode(map[string]string{"id": "container-1"})
		case "/17841400000000000/media_publish":
			assert.Equal(t, "container-1", payload["creation_id"])
			json.NewEncoder(w).Encode(map[string]string{"id": "mid-1"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	result, err := ig.PublishMedia(context.Background(), &PublishRequest{
		AccountID:   "17841400000000000",
		AccessToken: "token",
		Caption:     "hello",
		Media:       []MediaItem{{Position: 0, Type: "image", URL: "https://cdn.example.com/a.jpg"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "mid-1", result.PlatformPostID)
	assert.Equal(t, []string{"/17841400000000000/media", "/17841400000000000/media_publish"}, steps)
}

func TestInstagramPublishCarouselOrdersChildren(t *testing.T) {
	containers := 0
	ig, srv := newTestInstagram(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		switch r.URL.Path {
		case "/acct/media":
			if payload["media_type"] == "CAROUSEL" {
				children, ok := payload["children"].([]interface{})
				require.True(t, ok)
				assert.Equal(t, []interface{}{"child-1", "child-2"}, children)
				json.NewEncoder(w).Encode(map[string]string{"id": "carousel-1"})
				return
			}
			containers++
			assert.Equal(t, true, payload["is_carousel_item"])
			json.NewEncoder(w).Encode(map[string]string{"id": fmt.Sprintf("child-%d", containers)})
		case "/acct/media_publish":
			assert.Equal(t, "carousel-1", payload["creation_id"])
			json.NewEncoder(w).Encode(map[string]string{"id": "mid-9"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	result, err := ig.PublishCarousel(context.Background(), &PublishRequest{
		AccountID:   "acct",
		AccessToken: "token",
		Caption:     "two up",
		Media: []MediaItem{
			{Position: 0, Type: "image", URL: "https://cdn.example.com/a.jpg"},
			{Position: 1, Type: "video", URL: "https://cdn.example.com/b.mp4"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "mid-9", result.PlatformPostID)
	assert.Equal(t, 2, containers)
}

func TestInstagramExpiredTokenIsAuthExpired(t *testing.T) {
	ig, srv := newTestInstagram(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{
				"message": "Error validating access token: Session has expired",
				"type":    "OAuthException",
				"code":    190,
			},
		})
	}))
	defer srv.Close()

	_, err := ig.PublishMedia(context.Background(), &PublishRequest{
		AccountID:   "acct",
		AccessToken: "stale",
		Media:       []MediaItem{{Type: "image", URL: "https://cdn.example.com/a.jpg"}},
	})
	require.Error(t, err)
	assert.True(t, IsAuthExpired(err))

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "190", pe.Code)
	assert.Contains(t, pe.Message, "Session has expired")
}

func TestInstagramNonAuthErrorIsNotExpired(t *testing.T) {
	ig, srv := newTestInstagram(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{
				"message": "Invalid parameter",
				"type":    "OAuthException",
				"code":    100,
			},
		})
	}))
	defer srv.Close()

	_, err := ig.PublishMedia(context.Background(), &PublishRequest{
		AccountID:   "acct",
		AccessToken: "token",
		Media:       []MediaItem{{Type: "image", URL: "https://cdn.example.com/a.jpg"}},
	})
	require.Error(t, err)
	assert.False(t, IsAuthExpired(err))
}

func TestInstagramPermalink(t *testing.T) {
	ig, srv := newTestInstagram(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mid-1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{
			"permalink": "https://www.instagram.com/p/DEF456/",
			"id":        "mid-1",
		})
	}))
	defer srv.Close()

	link, err := ig.GetPermalink(context.Background(), "token", "mid-1", "tester")
	require.NoError(t, err)
	assert.Equal(t, "https://www.instagram.com/p/DEF456/", link)
}

func TestInstagramFallbackPermalink(t *testing.T) {
	ig := NewInstagram("id", "secret", "uri")
	assert.Equal(t, "https://www.instagram.com/p/mid-1/", ig.FallbackPermalink("tester", "mid-1"))
}

func TestInstagramAccountInsights(t *testing.T) {
	ig, srv := newTestInstagram(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mid-1/insights", r.URL.Path)
		assert.Equal(t, "reach,total_interactions", r.URL.Query().Get("metric"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"name": "reach", "values": []map[string]int64{{"value": 1000}}},
				{"name": "total_interactions", "values": []map[string]int64{{"value": 125}}},
			},
		})
	}))
	defer srv.Close()

	values, err := ig.AccountInsights(context.Background(), "token", "mid-1", []string{"reach", "total_interactions"})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), values["reach"])
	assert.Equal(t, int64(125), values["total_interactions"])
}
