package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/xid"

	"github.com/sakif/blogsite/internal/apperror"
	"github.com/sakif/blogsite/internal/model"
	"github.com/sakif/blogsite/internal/repository"
)

var _ repository.PostRepository = (*DB)(nil)

// Column order must match scanPost.
const postSelect = `
	SELECT p.id, p.title, p.content, p.created_at, p.updated_at,
	       u.id, u.username, u.email, u.created_at,
	       i.id, i.url, i.public_id
	FROM posts p
	JOIN users u  ON u.id = p.author_id
	JOIN images i ON i.id = p.image_id`

func scanPost(row pgx.Row, p *model.Post) error {
	err := row.Scan(
		&p.ID, &p.Title, &p.Content, &p.CreatedAt, &p.UpdatedAt,
		&p.Author.ID, &p.Author.Username, &p.Author.Email, &p.Author.CreatedAt,
		&p.Image.ID, &p.Image.URL, &p.Image.PublicID,
	)
	if err != nil {
		return err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	p.Author.CreatedAt = p.Author.CreatedAt.UTC()
	return nil
}

func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	now := time.Now().UTC()
	post.ID = xid.New().String()
	post.Image.ID = xid.New().String()
	post.CreatedAt = now
	post.UpdatedAt = now

	// BeginFunc commits when fn returns nil and rolls back otherwise.
	err := pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO images (id, url, public_id) VALUES ($1, $2, $3)`,
			post.Image.ID, post.Image.URL, post.Image.PublicID,
		); err != nil {
			return fmt.Errorf("inserting image: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO posts (id, title, content, author_id, image_id, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			post.ID, post.Title, post.Content, post.Author.ID, post.Image.ID,
			post.CreatedAt, post.UpdatedAt,
		); err != nil {
			if isForeignKeyViolation(err) {
				return apperror.NotFound("user", post.Author.ID)
			}
			return fmt.Errorf("inserting post: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("postgres: create post: %w", err)
	}

	author, err := db.GetUserByID(ctx, post.Author.ID)
	if err != nil {
		return err
	}
	post.Author = *author
	return nil
}

func (db *DB) GetPostByID(ctx context.Context, id string) (*model.Post, error) {
	var p model.Post
	if err := scanPost(db.pool.QueryRow(ctx, postSelect+` WHERE p.id = $1`, id), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("postgres: getting post %s: %w", id, err)
	}
	return &p, nil
}

// ListPosts returns posts newest first. A NULL limit means no limit.
func (db *DB) ListPosts(ctx context.Context, opts repository.ListOptions) ([]model.Post, error) {
	var limit *int
	if opts.Limit > 0 {
		limit = &opts.Limit
	}
	offset := max(opts.Offset, 0)

	rows, err := db.pool.Query(ctx,
		postSelect+` ORDER BY p.created_at DESC, p.id DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing posts: %w", err)
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		var p model.Post
		if err := scanPost(rows, &p); err != nil {
			return nil, fmt.Errorf("postgres: scanning post row: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating posts: %w", err)
	}
	return posts, nil
}

func (db *DB) UpdatePost(ctx context.Context, post *model.Post) error {
	post.UpdatedAt = time.Now().UTC()

	err := pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE posts SET title = $1, content = $2, updated_at = $3 WHERE id = $4`,
			post.Title, post.Content, post.UpdatedAt, post.ID,
		)
		if err != nil {
			return fmt.Errorf("updating post: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperror.NotFound("post", post.ID)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE images SET url = $1 WHERE id = (SELECT image_id FROM posts WHERE id = $2)`,
			post.Image.URL, post.ID,
		); err != nil {
			return fmt.Errorf("updating image: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("postgres: update post %s: %w", post.ID, err)
	}
	return nil
}

// DeletePost removes the post and then its image. Bookmarks cascade.
func (db *DB) DeletePost(ctx context.Context, id string) error {
	err := pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		var imageID string
		err := tx.QueryRow(ctx, `DELETE FROM posts WHERE id = $1 RETURNING image_id`, id).Scan(&imageID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperror.NotFound("post", id)
			}
			return fmt.Errorf("deleting post: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM images WHERE id = $1`, imageID); err != nil {
			return fmt.Errorf("deleting image %s: %w", imageID, err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("postgres: delete post %s: %w", id, err)
	}
	return nil
}
