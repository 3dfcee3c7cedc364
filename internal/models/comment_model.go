package models

import (
	"database/sql"
	"time"
)

// ScheduledComment is a trailing comment fired at the parent's publish time
// plus DelayMinutes. Each delay is measured from the parent publication, not
// from the previous comment.
type ScheduledComment struct {
	ID            int64          `db:"id" json:"id"`
	PostID        int64          `db:"post_id" json:"post_id"`
	Position      int            `db:"position" json:"position"`
	Body          string         `db:"body" json:"body"`
	DelayMinutes  int            `db:"delay_minutes" json:"delay_minutes"`
	MediaURL      sql.NullString `db:"media_url" json:"media_url"`
	Status        string         `db:"status" json:"status"`
	PlatformRefID sql.NullString `db:"platform_ref_id" json:"platform_ref_id"`
	ErrorMessage  sql.NullString `db:"error_message" json:"error_message"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

const (
	CommentStatusPending   = "pending"
	CommentStatusPublished = "published"
	CommentStatusFailed    = "failed"
)
