package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelarde/crosspost/internal/models"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func postRows(posts ...*models.Post) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "post_type", "caption", "title", "scheduled_time", "status",
		"parent_post_id", "comment_delay_minutes", "error_message", "created_at", "updated_at",
	})
	for _, p := range posts {
		rows.AddRow(p.ID, p.UserID, p.PostType, p.Caption, p.Title, p.ScheduledTime, p.Status,
			p.ParentPostID, p.CommentDelayMinutes, p.ErrorMessage, p.CreatedAt, p.UpdatedAt)
	}
	return rows
}

func TestPostRepository_ClaimForPublishing(t *testing.T) {
	ctx := context.Background()
	query := `UPDATE posts\s+SET status = \$2, updated_at = CURRENT_TIMESTAMP\s+WHERE id = \$1 AND status = \$3`

	t.Run("wins the claim", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewPostRepository(db)

		mock.ExpectExec(query).
			WithArgs(int64(7), models.PostStatusPublishing, models.PostStatusScheduled).
			WillReturnResult(sqlmock.NewResult(0, 1))

		claimed, err := repo.ClaimForPublishing(ctx, 7)
		assert.NoError(t, err)
		assert.True(t, claimed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("loses the race", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewPostRepository(db)

		mock.ExpectExec(query).
			WithArgs(int64(7), models.PostStatusPublishing, models.PostStatusScheduled).
			WillReturnResult(sqlmock.NewResult(0, 0))

		claimed, err := repo.ClaimForPublishing(ctx, 7)
		assert.NoError(t, err)
		assert.False(t, claimed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostRepository_Cancel(t *testing.T) {
	ctx := context.Background()
	query := `UPDATE posts\s+SET status = \$2, updated_at = CURRENT_TIMESTAMP\s+WHERE id = \$1 AND status = \$3`

	t.Run("cancels a scheduled post", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewPostRepository(db)

		mock.ExpectExec(query).
			WithArgs(int64(5), models.PostStatusCancelled, models.PostStatusScheduled).
			WillReturnResult(sqlmock.NewResult(0, 1))

		cancelled, err := repo.Cancel(ctx, 5)
		assert.NoError(t, err)
		assert.True(t, cancelled)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no effect once publishing started", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewPostRepository(db)

		mock.ExpectExec(query).
			WithArgs(int64(5), models.PostStatusCancelled, models.PostStatusScheduled).
			WillReturnResult(sqlmock.NewResult(0, 0))

		cancelled, err := repo.Cancel(ctx, 5)
		assert.NoError(t, err)
		assert.False(t, cancelled)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostRepository_ListDue(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	cutoff := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	earlier := &models.Post{
		ID: 1, UserID: 9, PostType: models.PostTypeText, Status: models.PostStatusScheduled,
		ScheduledTime: sql.NullTime{Time: cutoff.Add(-time.Hour), Valid: true},
		CreatedAt:     cutoff.Add(-2 * time.Hour), UpdatedAt: cutoff.Add(-2 * time.Hour),
	}
	later := &models.Post{
		ID: 2, UserID: 9, PostType: models.PostTypeImage, Status: models.PostStatusScheduled,
		ScheduledTime: sql.NullTime{Time: cutoff.Add(-time.Minute), Valid: true},
		CreatedAt:     cutoff.Add(-time.Hour), UpdatedAt: cutoff.Add(-time.Hour),
	}

	mock.ExpectQuery("SELECT (.+) FROM posts").
		WithArgs(models.PostStatusScheduled, cutoff).
		WillReturnRows(postRows(earlier, later))

	posts, err := repo.ListDue(ctx, cutoff)
	assert.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, int64(1), posts[0].ID)
	assert.Equal(t, int64(2), posts[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewPostRepository(db)

		now := time.Now()
		post := &models.Post{
			ID: 3, UserID: 9, PostType: models.PostTypeText, Caption: "hello",
			Status: models.PostStatusDraft, CreatedAt: now, UpdatedAt: now,
		}

		mock.ExpectQuery("SELECT (.+) FROM posts WHERE id = \\$1").
			WithArgs(int64(3)).
			WillReturnRows(postRows(post))

		got, err := repo.GetByID(ctx, 3)
		assert.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "hello", got.Caption)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing is not an error", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewPostRepository(db)

		mock.ExpectQuery("SELECT (.+) FROM posts WHERE id = \\$1").
			WithArgs(int64(404)).
			WillReturnError(sql.ErrNoRows)

		got, err := repo.GetByID(ctx, 404)
		assert.NoError(t, err)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostRepository_CheckByUserID(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta("SELECT 1 FROM posts WHERE id = $1 AND user_id = $2")

	t.Run("owned", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewPostRepository(db)

		mock.ExpectQuery(query).
			WithArgs(int64(3), int64(9)).
			WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

		owned, err := repo.CheckByUserID(ctx, 3, 9)
		assert.NoError(t, err)
		assert.True(t, owned)
	})

	t.Run("someone else's post", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewPostRepository(db)

		mock.ExpectQuery(query).
			WithArgs(int64(3), int64(10)).
			WillReturnError(sql.ErrNoRows)

		owned, err := repo.CheckByUserID(ctx, 3, 10)
		assert.NoError(t, err)
		assert.False(t, owned)
	})
}

func TestPostRepository_MarkFailed(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	mock.ExpectExec(`UPDATE posts\s+SET status = \$2, error_message = \$3, updated_at = CURRENT_TIMESTAMP\s+WHERE id = \$1`).
		WithArgs(int64(4), models.PostStatusFailed, "token rejected").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkFailed(ctx, 4, "token rejected")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
