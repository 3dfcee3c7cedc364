package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/avelarde/crosspost/internal/models"
)

type ScheduledCommentRepository interface {
	Create(ctx context.Context, tx *sql.Tx, sc *models.ScheduledComment) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.ScheduledComment, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.ScheduledComment, error)
	SetPublished(ctx context.Context, id int64, platformRefID string) error
	SetFailed(ctx context.Context, id int64, errorMessage string) error
}

type scheduledCommentRepository struct {
	db *sql.DB
}

func NewScheduledCommentRepository(db *sql.DB) ScheduledCommentRepository {
	return &scheduledCommentRepository{db: db}
}

func (r *scheduledCommentRepository) Create(ctx context.Context, tx *sql.Tx, sc *models.ScheduledComment) (int64, error) {
	query := `
		INSERT INTO scheduled_comments (post_id, position, body, delay_minutes, media_url, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	args := []interface{}{sc.PostID, sc.Position, sc.Body, sc.DelayMinutes, sc.MediaURL, sc.Status}

	var id int64
	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *scheduledCommentRepository) GetByID(ctx context.Context, id int64) (*models.ScheduledComment, error) {
	query := `
		SELECT id, post_id, position, body, delay_minutes, media_url, status, platform_ref_id, error_message, created_at, updated_at
		FROM scheduled_comments WHERE id = $1
	`

	var sc models.ScheduledComment
	err := r.db.QueryRowContext(ctx, query, id).Scan(&sc.ID, &sc.PostID, &sc.Position, &sc.Body,
		&sc.DelayMinutes, &sc.MediaURL, &sc.Status, &sc.PlatformRefID, &sc.ErrorMessage,
		&sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &sc, nil
}

// ListByPostID returns comments in ascending delay order, the order they
// fire in relative to the parent's publish time.
func (r *scheduledCommentRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.ScheduledComment, error) {
	query := `
		SELECT id, post_id, position, body, delay_minutes, media_url, status, platform_ref_id, error_message, created_at, updated_at
		FROM scheduled_comments
		WHERE post_id = $1
		ORDER BY delay_minutes ASC, position ASC
	`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var comments []*models.ScheduledComment
	for rows.Next() {
		var sc models.ScheduledComment
		err := rows.Scan(&sc.ID, &sc.PostID, &sc.Position, &sc.Body, &sc.DelayMinutes,
			&sc.MediaURL, &sc.Status, &sc.PlatformRefID, &sc.ErrorMessage, &sc.CreatedAt, &sc.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		comments = append(comments, &sc)
	}
	return comments, rows.Err()
}

func (r *scheduledCommentRepository) SetPublished(ctx context.Context, id int64, platformRefID string) error {
	query := `
		UPDATE scheduled_comments
		SET status = $2, platform_ref_id = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, models.CommentStatusPublished, platformRefID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *scheduledCommentRepository) SetFailed(ctx context.Context, id int64, errorMessage string) error {
	query := `
		UPDATE scheduled_comments
		SET status = $2, error_message = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, models.CommentStatusFailed, errorMessage)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
