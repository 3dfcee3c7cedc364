package models

import "time"

type MediaAsset struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	FileName  string    `db:"file_name" json:"file_name"`
	FileType  string    `db:"file_type" json:"file_type"`
	FileSize  int64     `db:"file_size" json:"file_size"`
	FileURL   string    `db:"file_url" json:"file_url"`
	Deleted   bool      `db:"deleted" json:"deleted"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PostMedia binds a resolved media URL to a post at an explicit position.
// Position is part of the item's identity; reordering is an explicit update,
// never derived from slice index at submission time.
type PostMedia struct {
	ID        int64     `db:"id" json:"id"`
	PostID    int64     `db:"post_id" json:"post_id"`
	Position  int       `db:"position" json:"position"`
	MediaType string    `db:"media_type" json:"media_type"`
	Source    string    `db:"source" json:"source"`
	FileURL   string    `db:"file_url" json:"file_url"`
	AltText   string    `db:"alt_text" json:"alt_text"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)

const (
	MediaSourceUpload = "upload"
	MediaSourceURL    = "url"
)

const (
	CarouselMinItems = 2
	CarouselMaxItems = 20
)
