package models

import (
	"database/sql"
	"time"
)

// Publication records one post's delivery attempt and result on one account.
type Publication struct {
	ID              int64          `db:"id" json:"id"`
	PostID          int64          `db:"post_id" json:"post_id"`
	AccountID       int64          `db:"account_id" json:"account_id"`
	Platform        string         `db:"platform" json:"platform"`
	PlatformPostID  sql.NullString `db:"platform_post_id" json:"platform_post_id"`
	PlatformPostURL sql.NullString `db:"platform_post_url" json:"platform_post_url"`
	Status          string         `db:"status" json:"status"`
	PublishedAt     sql.NullTime   `db:"published_at" json:"published_at"`
	ErrorMessage    sql.NullString `db:"error_message" json:"error_message"`
	Reach           int64          `db:"reach" json:"reach"`
	Engagement      int64          `db:"engagement" json:"engagement"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

const (
	PublicationStatusPending    = "pending"
	PublicationStatusPublishing = "publishing"
	PublicationStatusPublished  = "published"
	PublicationStatusFailed     = "failed"
)

// PlatformRollup is the per-platform aggregate over published publications.
type PlatformRollup struct {
	Platform        string `db:"platform" json:"platform"`
	Posts           int64  `db:"posts" json:"posts"`
	TotalReach      int64  `db:"total_reach" json:"total_reach"`
	TotalEngagement int64  `db:"total_engagement" json:"total_engagement"`
}
