package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelarde/crosspost/internal/models"
)

func publicationRows(pubs ...*models.Publication) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "post_id", "account_id", "platform", "platform_post_id",
		"platform_post_url", "status", "published_at", "error_message",
		"reach", "engagement", "created_at", "updated_at",
	})
	for _, p := range pubs {
		rows.AddRow(p.ID, p.PostID, p.AccountID, p.Platform, p.PlatformPostID,
			p.PlatformPostURL, p.Status, p.PublishedAt, p.ErrorMessage,
			p.Reach, p.Engagement, p.CreatedAt, p.UpdatedAt)
	}
	return rows
}

func TestPublicationRepository_SetPublished(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPublicationRepository(db)
	ctx := context.Background()

	publishedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE publications\s+SET status = \$2, platform_post_id = \$3, published_at = \$4, updated_at = CURRENT_TIMESTAMP\s+WHERE id = \$1`).
		WithArgs(int64(7), models.PublicationStatusPublished, "mid-1", publishedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetPublished(ctx, 7, "mid-1", publishedAt)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublicationRepository_SetInsights(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPublicationRepository(db)
	ctx := context.Background()

	mock.ExpectExec(`UPDATE publications\s+SET reach = \$2, engagement = \$3, updated_at = CURRENT_TIMESTAMP\s+WHERE id = \$1`).
		WithArgs(int64(7), int64(1000), int64(125)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetInsights(ctx, 7, 1000, 125)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublicationRepository_GetByPostID(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewPublicationRepository(db)

		now := time.Now()
		pub := &models.Publication{
			ID: 7, PostID: 3, AccountID: 5, Platform: "instagram",
			Status: models.PublicationStatusPending, CreatedAt: now, UpdatedAt: now,
		}

		mock.ExpectQuery("SELECT (.+) FROM publications WHERE post_id = \\$1").
			WithArgs(int64(3)).
			WillReturnRows(publicationRows(pub))

		got, err := repo.GetByPostID(ctx, 3)
		assert.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "instagram", got.Platform)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing is not an error", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewPublicationRepository(db)

		mock.ExpectQuery("SELECT (.+) FROM publications WHERE post_id = \\$1").
			WithArgs(int64(404)).
			WillReturnError(sql.ErrNoRows)

		got, err := repo.GetByPostID(ctx, 404)
		assert.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestPublicationRepository_AggregateByPlatform(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPublicationRepository(db)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"platform", "count", "sum_reach", "sum_engagement"}).
		AddRow("instagram", 4, 1000, 125).
		AddRow("tiktok", 2, 0, 0)

	mock.ExpectQuery(`SELECT p.platform, COUNT\(\*\), COALESCE\(SUM\(p.reach\), 0\), COALESCE\(SUM\(p.engagement\), 0\)`).
		WithArgs(int64(9), models.PublicationStatusPublished).
		WillReturnRows(rows)

	rollups, err := repo.AggregateByPlatform(ctx, 9)
	assert.NoError(t, err)
	require.Len(t, rollups, 2)
	assert.Equal(t, "instagram", rollups[0].Platform)
	assert.Equal(t, int64(4), rollups[0].Posts)
	assert.Equal(t, int64(1000), rollups[0].TotalReach)
	assert.Equal(t, int64(125), rollups[0].TotalEngagement)
	assert.Equal(t, "tiktok", rollups[1].Platform)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublicationRepository_ListRecentPublished(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPublicationRepository(db)
	ctx := context.Background()

	now := time.Now()
	pub := &models.Publication{
		ID: 7, PostID: 3, AccountID: 5, Platform: "instagram",
		PlatformPostID: sql.NullString{String: "mid-1", Valid: true},
		Status:         models.PublicationStatusPublished,
		PublishedAt:    sql.NullTime{Time: now, Valid: true},
		CreatedAt:      now, UpdatedAt: now,
	}

	mock.ExpectQuery(`SELECT (.+) FROM publications p\s+JOIN posts ON posts.id = p.post_id`).
		WithArgs(int64(9), models.PublicationStatusPublished, 5).
		WillReturnRows(publicationRows(pub))

	pubs, err := repo.ListRecentPublished(ctx, 9, 5)
	assert.NoError(t, err)
	require.Len(t, pubs, 1)
	assert.Equal(t, "mid-1", pubs[0].PlatformPostID.String)
	assert.NoError(t, mock.ExpectationsWereMet())
}
