package models

import (
	"database/sql"
	"time"
)

type Post struct {
	ID                  int64          `db:"id" json:"id"`
	UserID              int64          `db:"user_id" json:"user_id"`
	PostType            string         `db:"post_type" json:"post_type"`
	Caption             string         `db:"caption" json:"caption"`
	Title               string         `db:"title" json:"title"`
	ScheduledTime       sql.NullTime   `db:"scheduled_time" json:"scheduled_time"`
	Status              string         `db:"status" json:"status"`
	ParentPostID        sql.NullInt64  `db:"parent_post_id" json:"parent_post_id"`
	CommentDelayMinutes int            `db:"comment_delay_minutes" json:"comment_delay_minutes"`
	ErrorMessage        sql.NullString `db:"error_message" json:"error_message"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at" json:"updated_at"`
}

const (
	PostStatusDraft      = "draft"
	PostStatusScheduled  = "scheduled"
	PostStatusPublishing = "publishing"
	PostStatusPublished  = "published"
	PostStatusFailed     = "failed"
	PostStatusCancelled  = "cancelled"
)

const (
	PostTypeText     = "text"
	PostTypeImage    = "image"
	PostTypeVideo    = "video"
	PostTypeCarousel = "carousel"
	PostTypeStory    = "story"
	PostTypeReel     = "reel"
	PostTypeMixed    = "mixed"
)

// IsTerminal reports whether a post can no longer change status.
func IsTerminal(status string) bool {
	switch status {
	case PostStatusPublished, PostStatusFailed, PostStatusCancelled:
		return true
	}
	return false
}
