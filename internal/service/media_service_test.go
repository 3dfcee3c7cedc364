package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/avelarde/crosspost/configs"
	"github.com/avelarde/crosspost/internal/models"
	"github.com/avelarde/crosspost/internal/transfer"
)

func newMediaFixture(publicHostname string) *mediaService {
	svc := NewMediaService(&config.Config{PublicHostname: publicHostname}, nil, nil, nil)
	return svc.(*mediaService)
}

func TestValidateMediaURL(t *testing.T) {
	svc := newMediaFixture("media.example.com")

	valid := []string{
		"https://cdn.example.com/clip.mp4",
		"http://images.example.org/pic.jpg",
		"https://media.example.com/internal-but-public.png",
	}
	for _, raw := range valid {
		assert.NoError(t, svc.validateMediaURL(raw), raw)
	}

	invalid := []string{
		"ftp://cdn.example.com/clip.mp4",
		"blob:https://example.com/abcd",
		"https://localhost/pic.jpg",
		"https://127.0.0.1/pic.jpg",
		"https://10.0.0.5/pic.jpg",
		"https://192.168.1.4/pic.jpg",
		"https://printer.local/scan.png",
		"https:///missing-host.png",
	}
	for _, raw := range invalid {
		err := svc.validateMediaURL(raw)
		var mediaErr *InvalidMediaURLError
		assert.ErrorAs(t, err, &mediaErr, raw)
	}
}

func TestValidateMediaURLPublicHostnameExemption(t *testing.T) {
	svc := newMediaFixture("localhost")
	assert.NoError(t, svc.validateMediaURL("http://localhost/pic.jpg"))

	other := newMediaFixture("")
	err := other.validateMediaURL("http://localhost/pic.jpg")
	var mediaErr *InvalidMediaURLError
	assert.ErrorAs(t, err, &mediaErr)
}

func TestInferMediaTypeSignalPriority(t *testing.T) {
	cases := []struct {
		name        string
		url         string
		contentType string
		want        string
	}{
		{"extension wins", "https://cdn.example.com/a.mp4", "image/jpeg", models.MediaTypeVideo},
		{"image extension", "https://cdn.example.com/a.webp", "", models.MediaTypeImage},
		{"content type fallback", "https://cdn.example.com/asset", "video/mp4", models.MediaTypeVideo},
		{"query format", "https://cdn.example.com/asset?format=jpg", "", models.MediaTypeImage},
		{"query type literal", "https://cdn.example.com/asset?type=video", "", models.MediaTypeVideo},
		{"path hint", "https://cdn.example.com/images/asset", "", models.MediaTypeImage},
		{"video path hint", "https://cdn.example.com/videos/asset", "", models.MediaTypeVideo},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := inferMediaType(tc.url, tc.contentType)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestInferMediaTypeUnclassifiable(t *testing.T) {
	_, err := inferMediaType("https://cdn.example.com/asset", "")
	var mediaErr *InvalidMediaURLError
	require.ErrorAs(t, err, &mediaErr)
	assert.Contains(t, mediaErr.Reason, "media type")
}

func urlInputs(n int) []transfer.MediaInput {
	inputs := make([]transfer.MediaInput, 0, n)
	for i := 0; i < n; i++ {
		inputs = append(inputs, transfer.MediaInput{
			Position: i,
			URL:      "https://cdn.example.com/item.jpg",
		})
	}
	return inputs
}

func TestAssembleCarouselBounds(t *testing.T) {
	svc := newMediaFixture("")

	_, err := svc.Assemble(context.Background(), nil, 1, 1, models.PostTypeCarousel, urlInputs(1))
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)

	_, err = svc.Assemble(context.Background(), nil, 1, 1, models.PostTypeCarousel, urlInputs(21))
	require.ErrorAs(t, err, &validationErr)
}

func TestAssembleRejectsBeforeAnyWrite(t *testing.T) {
	// Repos and storage are nil; a validation failure must return before
	// anything would touch them.
	svc := newMediaFixture("")

	inputs := []transfer.MediaInput{
		{Position: 0, URL: "https://cdn.example.com/good.jpg"},
		{Position: 1, URL: "https://10.1.2.3/bad.jpg"},
	}
	_, err := svc.Assemble(context.Background(), nil, 1, 1, models.PostTypeCarousel, inputs)
	var mediaErr *InvalidMediaURLError
	require.ErrorAs(t, err, &mediaErr)
}

func TestValidateShapeByPostType(t *testing.T) {
	image := resolvedMedia{mediaType: models.MediaTypeImage}
	video := resolvedMedia{mediaType: models.MediaTypeVideo}

	assert.NoError(t, validateShape(models.PostTypeText, nil))
	assert.Error(t, validateShape(models.PostTypeText, []resolvedMedia{image}))

	assert.NoError(t, validateShape(models.PostTypeImage, []resolvedMedia{image}))
	assert.Error(t, validateShape(models.PostTypeImage, []resolvedMedia{video}))
	assert.Error(t, validateShape(models.PostTypeImage, []resolvedMedia{image, image}))

	assert.NoError(t, validateShape(models.PostTypeReel, []resolvedMedia{video}))
	assert.Error(t, validateShape(models.PostTypeVideo, []resolvedMedia{image}))

	assert.NoError(t, validateShape(models.PostTypeCarousel, []resolvedMedia{image, video}))
	assert.Error(t, validateShape(models.PostTypeMixed, nil))
	assert.Error(t, validateShape("unknown", []resolvedMedia{image}))
}
