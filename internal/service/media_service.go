package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/h2non/filetype"
	gonanoid "github.com/matoous/go-nanoid/v2"

	config "github.com/avelarde/crosspost/configs"
	"github.com/avelarde/crosspost/internal/models"
	"github.com/avelarde/crosspost/internal/repository"
	"github.com/avelarde/crosspost/internal/transfer"
)

// MediaService resolves a post's declared media into publicly reachable
// URLs. Validation of every item happens before the first upload so a bad
// item never leaves half a carousel in the bucket.
type MediaService interface {
	Assemble(ctx context.Context, tx *sql.Tx, userID, postID int64, postType string, inputs []transfer.MediaInput) ([]*models.PostMedia, error)
	Remove(ctx context.Context, postID int64) error
}

type mediaService struct {
	cfg     *config.Config
	assets  repository.MediaAssetRepository
	items   repository.PostMediaRepository
	storage StorageService
}

func NewMediaService(cfg *config.Config, assets repository.MediaAssetRepository, items repository.PostMediaRepository, storage StorageService) MediaService {
	return &mediaService{
		cfg:     cfg,
		assets:  assets,
		items:   items,
		storage: storage,
	}
}

type resolvedMedia struct {
	input     transfer.MediaInput
	mediaType string
	source    string
	ext       string
}

func (s *mediaService) Assemble(ctx context.Context, tx *sql.Tx, userID, postID int64, postType string, inputs []transfer.MediaInput) ([]*models.PostMedia, error) {
	sort.SliceStable(inputs, func(i, j int) bool {
		return inputs[i].Position < inputs[j].Position
	})

	resolved := make([]resolvedMedia, 0, len(inputs))
	for _, in := range inputs {
		r, err := s.resolveInput(in)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, r)
	}

	if err := validateShape(postType, resolved); err != nil {
		return nil, err
	}

	var out []*models.PostMedia
	for _, r := range resolved {
		fileURL := r.input.URL
		if r.source == models.MediaSourceUpload {
			uploaded, err := s.upload(ctx, tx, userID, r)
			if err != nil {
				return nil, err
			}
			fileURL = uploaded
		}

		pm := &models.PostMedia{
			PostID:    postID,
			Position:  r.input.Position,
			MediaType: r.mediaType,
			Source:    r.source,
			FileURL:   fileURL,
			AltText:   r.input.AltText,
		}
		if err := s.items.Create(ctx, tx, pm); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		out = append(out, pm)
	}
	return out, nil
}

func (s *mediaService) Remove(ctx context.Context, postID int64) error {
	return s.items.RemoveByPostID(ctx, postID)
}

func (s *mediaService) upload(ctx context.Context, tx *sql.Tx, userID int64, r resolvedMedia) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	key := fmt.Sprintf("media/%d/%s%s", userID, id, r.ext)

	contentType := r.input.ContentType
	if kind, kerr := filetype.Match(r.input.FileBytes); kerr == nil && kind != filetype.Unknown {
		contentType = kind.MIME.Value
	}

	publicURL, err := s.storage.Upload(ctx, key, r.input.FileBytes, contentType)
	if err != nil {
		return "", err
	}

	asset := &models.MediaAsset{
		UserID:   userID,
		FileName: r.input.FileName,
		FileType: contentType,
		FileSize: int64(len(r.input.FileBytes)),
		FileURL:  publicURL,
	}
	if _, err := s.assets.Create(ctx, tx, asset); err != nil {
		slog.Info(err.Error())
		return "", err
	}
	return publicURL, nil
}

func (s *mediaService) resolveInput(in transfer.MediaInput) (resolvedMedia, error) {
	if len(in.FileBytes) > 0 {
		mediaType, ext, err := sniffUpload(in.FileBytes, in.FileName)
		if err != nil {
			return resolvedMedia{}, err
		}
		return resolvedMedia{input: in, mediaType: mediaType, source: models.MediaSourceUpload, ext: ext}, nil
	}

	if in.URL == "" {
		return resolvedMedia{}, validationf("media item %d has neither a file nor a url", in.Position)
	}
	if err := s.validateMediaURL(in.URL); err != nil {
		return resolvedMedia{}, err
	}
	mediaType, err := inferMediaType(in.URL, in.ContentType)
	if err != nil {
		return resolvedMedia{}, err
	}
	return resolvedMedia{input: in, mediaType: mediaType, source: models.MediaSourceURL}, nil
}

// validateMediaURL rejects anything the platforms' fetchers could not reach:
// non-HTTP schemes, loopback and private hosts. The configured public
// hostname is exempt so self-hosted media passes.
func (s *mediaService) validateMediaURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return &InvalidMediaURLError{URL: raw, Reason: "not a valid url"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &InvalidMediaURLError{URL: raw, Reason: "scheme must be http or https"}
	}
	host := u.Hostname()
	if host == "" {
		return &InvalidMediaURLError{URL: raw, Reason: "missing host"}
	}
	if s.cfg.PublicHostname != "" && strings.EqualFold(host, s.cfg.PublicHostname) {
		return nil
	}
	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".local") {
		return &InvalidMediaURLError{URL: raw, Reason: "host is not publicly reachable"}
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			return &InvalidMediaURLError{URL: raw, Reason: "host is not publicly reachable"}
		}
	}
	return nil
}

var (
	imageExtensions = map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	}
	videoExtensions = map[string]bool{
		".mp4": true, ".mov": true, ".m4v": true, ".webm": true,
	}
)

// inferMediaType classifies an external URL as image or video. Signals are
// checked in order: file extension, declared content type, format query
// parameters, path hints. An unclassifiable URL is an error, never a guess.
func inferMediaType(raw, contentType string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", &InvalidMediaURLError{URL: raw, Reason: "not a valid url"}
	}

	ext := strings.ToLower(path.Ext(u.Path))
	if imageExtensions[ext] {
		return models.MediaTypeImage, nil
	}
	if videoExtensions[ext] {
		return models.MediaTypeVideo, nil
	}

	switch {
	case strings.HasPrefix(contentType, "image/"):
		return models.MediaTypeImage, nil
	case strings.HasPrefix(contentType, "video/"):
		return models.MediaTypeVideo, nil
	}

	query := u.Query()
	for _, param := range []string{"format", "type", "media_type"} {
		v := strings.ToLower(query.Get(param))
		switch {
		case v == "image" || imageExtensions["."+v]:
			return models.MediaTypeImage, nil
		case v == "video" || videoExtensions["."+v]:
			return models.MediaTypeVideo, nil
		}
	}

	lowerPath := strings.ToLower(u.Path)
	switch {
	case strings.Contains(lowerPath, "/image/") || strings.Contains(lowerPath, "/images/") || strings.Contains(lowerPath, "/photo/"):
		return models.MediaTypeImage, nil
	case strings.Contains(lowerPath, "/video/") || strings.Contains(lowerPath, "/videos/"):
		return models.MediaTypeVideo, nil
	}

	return "", &InvalidMediaURLError{URL: raw, Reason: "cannot determine media type"}
}

func sniffUpload(data []byte, fileName string) (mediaType, ext string, err error) {
	kind, err := filetype.Match(data)
	if err != nil {
		slog.Info(err.Error())
		return "", "", err
	}
	if kind == filetype.Unknown {
		return "", "", validationf("unrecognized file type for %s", fileName)
	}
	switch {
	case strings.HasPrefix(kind.MIME.Value, "image/"):
		return models.MediaTypeImage, "." + kind.Extension, nil
	case strings.HasPrefix(kind.MIME.Value, "video/"):
		return models.MediaTypeVideo, "." + kind.Extension, nil
	}
	return "", "", validationf("unsupported file type %s for %s", kind.MIME.Value, fileName)
}

func validateShape(postType string, media []resolvedMedia) error {
	count := func(mediaType string) int {
		n := 0
		for _, m := range media {
			if m.mediaType == mediaType {
				n++
			}
		}
		return n
	}

	switch postType {
	case models.PostTypeText:
		if len(media) != 0 {
			return validationf("text posts cannot carry media")
		}
	case models.PostTypeImage, models.PostTypeStory:
		if len(media) != 1 || count(models.MediaTypeImage) != 1 {
			return validationf("%s posts need exactly one image", postType)
		}
	case models.PostTypeVideo, models.PostTypeReel:
		if len(media) != 1 || count(models.MediaTypeVideo) != 1 {
			return validationf("%s posts need exactly one video", postType)
		}
	case models.PostTypeCarousel:
		if len(media) < models.CarouselMinItems || len(media) > models.CarouselMaxItems {
			return validationf("carousels need between %d and %d items", models.CarouselMinItems, models.CarouselMaxItems)
		}
	case models.PostTypeMixed:
		if len(media) == 0 {
			return validationf("mixed posts need at least one media item")
		}
	default:
		return validationf("unsupported post type: %s", postType)
	}
	return nil
}
