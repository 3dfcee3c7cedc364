package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/avelarde/crosspost/internal/models"
)

type PublicationRepository interface {
	Create(ctx context.Context, tx *sql.Tx, pub *models.Publication) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Publication, error)
	GetByPostID(ctx context.Context, postID int64) (*models.Publication, error)
	SetPublished(ctx context.Context, id int64, platformPostID string, publishedAt time.Time) error
	SetFailed(ctx context.Context, id int64, errorMessage string) error
	SetPermalink(ctx context.Context, id int64, permalink string) error
	ClearPermalink(ctx context.Context, id int64) error
	SetInsights(ctx context.Context, id int64, reach, engagement int64) error
	ListPublishedByAccount(ctx context.Context, accountID int64) ([]*models.Publication, error)
	ListRecentPublished(ctx context.Context, userID int64, limit int) ([]*models.Publication, error)
	AggregateByPlatform(ctx context.Context, userID int64) ([]*models.PlatformRollup, error)
}

type publicationRepository struct {
	db *sql.DB
}

func NewPublicationRepository(db *sql.DB) PublicationRepository {
	return &publicationRepository{db: db}
}

const publicationColumns = `id, post_id, account_id, platform, platform_post_id,
	platform_post_url, status, published_at, error_message, reach, engagement,
	created_at, updated_at`

const qualifiedPublicationColumns = `p.id, p.post_id, p.account_id, p.platform, p.platform_post_id,
	p.platform_post_url, p.status, p.published_at, p.error_message, p.reach, p.engagement,
	p.created_at, p.updated_at`

func scanPublication(row interface{ Scan(...interface{}) error }) (*models.Publication, error) {
	var pub models.Publication
	err := row.Scan(&pub.ID, &pub.PostID, &pub.AccountID, &pub.Platform, &pub.PlatformPostID,
		&pub.PlatformPostURL, &pub.Status, &pub.PublishedAt, &pub.ErrorMessage,
		&pub.Reach, &pub.Engagement, &pub.CreatedAt, &pub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &pub, nil
}

func (r *publicationRepository) Create(ctx context.Context, tx *sql.Tx, pub *models.Publication) (int64, error) {
	query := `
		INSERT INTO publications (post_id, account_id, platform, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int64
	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, pub.PostID, pub.AccountID, pub.Platform, pub.Status).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, pub.PostID, pub.AccountID, pub.Platform, pub.Status).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *publicationRepository) GetByID(ctx context.Context, id int64) (*models.Publication, error) {
	query := `SELECT ` + publicationColumns + ` FROM publications WHERE id = $1`

	pub, err := scanPublication(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return pub, nil
}

func (r *publicationRepository) GetByPostID(ctx context.Context, postID int64) (*models.Publication, error) {
	query := `SELECT ` + publicationColumns + ` FROM publications WHERE post_id = $1`

	pub, err := scanPublication(r.db.QueryRowContext(ctx, query, postID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return pub, nil
}

// SetPublished records the terminal success. The platform post ID is only
// ever written together with the published status.
func (r *publicationRepository) SetPublished(ctx context.Context, id int64, platformPostID string, publishedAt time.Time) error {
	query := `
		UPDATE publications
		SET status = $2, platform_post_id = $3, published_at = $4, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, models.PublicationStatusPublished, platformPostID, publishedAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *publicationRepository) SetFailed(ctx context.Context, id int64, errorMessage string) error {
	query := `
		UPDATE publications
		SET status = $2, error_message = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, models.PublicationStatusFailed, errorMessage)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *publicationRepository) SetPermalink(ctx context.Context, id int64, permalink string) error {
	query := `
		UPDATE publications
		SET platform_post_url = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, permalink)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// ClearPermalink drops the cached URL ahead of an explicit re-sync.
func (r *publicationRepository) ClearPermalink(ctx context.Context, id int64) error {
	query := `
		UPDATE publications
		SET platform_post_url = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *publicationRepository) SetInsights(ctx context.Context, id int64, reach, engagement int64) error {
	query := `
		UPDATE publications
		SET reach = $2, engagement = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, reach, engagement)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *publicationRepository) ListPublishedByAccount(ctx context.Context, accountID int64) ([]*models.Publication, error) {
	query := `SELECT ` + publicationColumns + ` FROM publications
		WHERE account_id = $1 AND status = $2
		ORDER BY published_at DESC`

	rows, err := r.db.QueryContext(ctx, query, accountID, models.PublicationStatusPublished)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var pubs []*models.Publication
	for rows.Next() {
		pub, err := scanPublication(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		pubs = append(pubs, pub)
	}
	return pubs, rows.Err()
}

func (r *publicationRepository) ListRecentPublished(ctx context.Context, userID int64, limit int) ([]*models.Publication, error) {
	query := `SELECT ` + qualifiedPublicationColumns + ` FROM publications p
		JOIN posts ON posts.id = p.post_id
		WHERE posts.user_id = $1 AND p.status = $2
		ORDER BY p.published_at DESC
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, userID, models.PublicationStatusPublished, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var pubs []*models.Publication
	for rows.Next() {
		pub, err := scanPublication(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		pubs = append(pubs, pub)
	}
	return pubs, rows.Err()
}

// AggregateByPlatform rolls up reach and engagement over a user's published
// publications only; in-flight and failed publications never count.
func (r *publicationRepository) AggregateByPlatform(ctx context.Context, userID int64) ([]*models.PlatformRollup, error) {
	query := `
		SELECT p.platform, COUNT(*), COALESCE(SUM(p.reach), 0), COALESCE(SUM(p.engagement), 0)
		FROM publications p
		JOIN posts ON posts.id = p.post_id
		WHERE posts.user_id = $1 AND p.status = $2
		GROUP BY p.platform
		ORDER BY p.platform
	`
	rows, err := r.db.QueryContext(ctx, query, userID, models.PublicationStatusPublished)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var rollups []*models.PlatformRollup
	for rows.Next() {
		var rollup models.PlatformRollup
		if err := rows.Scan(&rollup.Platform, &rollup.Posts, &rollup.TotalReach, &rollup.TotalEngagement); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		rollups = append(rollups, &rollup)
	}
	return rollups, rows.Err()
}
