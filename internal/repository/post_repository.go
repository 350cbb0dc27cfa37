package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/post-scheduler/internal/domain"
)

// DBTX is the subset of *pgxpool.Pool used by repositories.
type DBTX interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostRepository encapsulates post persistence.
type PostRepository interface {
	Create(ctx context.Context, post *domain.Post) error
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Post, error)
	GetByID(ctx context.Context, userID, id int64) (*domain.Post, error)
	// PublishDue promotes every scheduled post due at now in a single transaction.
	PublishDue(ctx context.Context, now time.Time) ([]domain.PublishedPost, error)
}

const postColumns = "id, content, media_url, scheduled_time, published_time, status, created_at, user_id, account_id"

type postRepository struct {
	db DBTX
}

// NewPostRepository instantiates repository.
func NewPostRepository(db DBTX) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *domain.Post) error {
	const query = `
        INSERT INTO posts (content, media_url, scheduled_time, status, user_id, account_id)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at`
	if err := r.db.QueryRow(ctx, query,
		post.Content,
		post.MediaURL,
		post.ScheduledTime,
		string(post.Status),
		post.UserID,
		post.AccountID,
	).Scan(&post.ID, &post.CreatedAt); err != nil {
		return fmt.Errorf("%w: insert post: %w", domain.ErrStorageFailure, err)
	}
	return nil
}

func (r *postRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Post, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const query = `
        SELECT ` + postColumns + `
        FROM posts WHERE user_id=$1
        ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list posts: %w", domain.ErrStorageFailure, err)
	}
	defer rows.Close()

	var result []domain.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list posts: %w", domain.ErrStorageFailure, err)
	}
	return result, nil
}

const (
	selectDuePostsQuery = `
        SELECT id, user_id, account_id
        FROM posts
        WHERE status=$1 AND scheduled_time <= $2
        ORDER BY scheduled_time
        FOR UPDATE`
	publishPostsQuery = `
        UPDATE posts SET status=$1, published_time=$2
        WHERE id = ANY($3) AND status=$4`
)

func (r *postRepository) GetByID(ctx context.Context, userID, id int64) (*domain.Post, error) {
	const query = `SELECT ` + postColumns + ` FROM posts WHERE id=$1 AND user_id=$2`
	post, err := scanPost(r.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", domain.ErrPostNotFound, id)
		}
		return nil, err
	}
	return &post, nil
}

// scanPost reads one row selected with postColumns.
func scanPost(row pgx.Row) (domain.Post, error) {
	var (
		post   domain.Post
		status string
	)
	if err := row.Scan(
		&post.ID,
		&post.Content,
		&post.MediaURL,
		&post.ScheduledTime,
		&post.PublishedTime,
		&status,
		&post.CreatedAt,
		&post.UserID,
		&post.AccountID,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return post, err
		}
		return post, fmt.Errorf("%w: scan post: %w", domain.ErrStorageFailure, err)
	}
	post.Status = domain.PostStatus(status)
	if !post.Status.Valid() {
		return post, fmt.Errorf("%w: post %d has unknown status %q", domain.ErrStorageFailure, post.ID, status)
	}
	return post, nil
}

func (r *postRepository) PublishDue(ctx context.Context, now time.Time) ([]domain.PublishedPost, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %w", domain.ErrStorageFailure, err)
	}

	due, err := selectDue(ctx, tx, now)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("%w: select due posts: %w", domain.ErrStorageFailure, err)
	}

	if len(due) > 0 {
		ids := make([]int64, len(due))
		for i, p := range due {
			ids[i] = p.ID
		}
		tag, err := tx.Exec(ctx, publishPostsQuery,
			string(domain.PostStatusPublished),
			now,
			ids,
			string(domain.PostStatusScheduled),
		)
		if err != nil {
			_ = tx.Rollback(ctx)
			return nil, fmt.Errorf("%w: publish posts: %w", domain.ErrStorageFailure, err)
		}
		if affected := tag.RowsAffected(); affected != int64(len(due)) {
			_ = tx.Rollback(ctx)
			return nil, fmt.Errorf("%w: publish posts: updated %d of %d rows", domain.ErrStorageFailure, affected, len(due))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: commit: %w", domain.ErrStorageFailure, err)
	}
	return due, nil
}

func selectDue(ctx context.Context, tx pgx.Tx, now time.Time) ([]domain.PublishedPost, error) {
	rows, err := tx.Query(ctx, selectDuePostsQuery, string(domain.PostStatusScheduled), now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []domain.PublishedPost
	for rows.Next() {
		var p domain.PublishedPost
		if err := rows.Scan(&p.ID, &p.UserID, &p.AccountID); err != nil {
			return nil, err
		}
		due = append(due, p)
	}
	return due, rows.Err()
}
