package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/blogsite/internal/apperror"
	"github.com/sakif/blogsite/internal/model"
	"github.com/sakif/blogsite/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// `var _ X = (*Y)(nil)` fails to compile if *Y stops implementing X.
var _ repository.PostRepository = (*DB)(nil)

// postSelect joins each post to its author and image so every read returns
// a fully resolved model.Post. Column order must match scanPost.
const postSelect = `
	SELECT p.id, p.title, p.content, p.created_at, p.updated_at,
	       u.id, u.username, u.email, u.created_at,
	       i.id, i.url, i.public_id
	FROM posts p
	JOIN users u  ON u.id = p.author_id
	JOIN images i ON i.id = p.image_id`

func scanPost(rs rowScanner, p *model.Post) error {
	return rs.Scan(
		&p.ID, &p.Title, &p.Content, &p.CreatedAt, &p.UpdatedAt,
		&p.Author.ID, &p.Author.Username, &p.Author.Email, &p.Author.CreatedAt,
		&p.Image.ID, &p.Image.URL, &p.Image.PublicID,
	)
}

// CreatePost inserts the image row and the post row in a single transaction.
//
// TRANSACTIONS:
// BeginTx returns a *sql.Tx bound to one connection. Every statement must go
// through tx (not db.conn), and we must Commit or Rollback. The deferred
// Rollback is a no-op after a successful Commit.
func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	now := time.Now().UTC()
	post.ID = xid.New().String()
	post.Image.ID = xid.New().String()
	post.CreatedAt = now
	post.UpdatedAt = now

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning create post: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO images (id, url, public_id) VALUES (?, ?, ?)`,
		post.Image.ID, post.Image.URL, post.Image.PublicID,
	); err != nil {
		return fmt.Errorf("sqlite: inserting image: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO posts (id, title, content, author_id, image_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		post.ID, post.Title, post.Content, post.Author.ID, post.Image.ID,
		post.CreatedAt, post.UpdatedAt,
	); err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("user", post.Author.ID)
		}
		return fmt.Errorf("sqlite: inserting post: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing create post: %w", err)
	}

	// Re-read the author so the returned post is resolved like every other read.
	author, err := db.GetUserByID(ctx, post.Author.ID)
	if err != nil {
		return err
	}
	post.Author = *author

	return nil
}

// GetPostByID retrieves a single post with its author and image.
func (db *DB) GetPostByID(ctx context.Context, id string) (*model.Post, error) {
	var p model.Post
	err := scanPost(db.conn.QueryRowContext(ctx, postSelect+` WHERE p.id = ?`, id), &p)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}
	return &p, nil
}

// ListPosts returns posts newest first.
//
// LIMIT -1 is SQLite's "no limit", which lets a zero Limit mean "everything"
// without a second query shape.
func (db *DB) ListPosts(ctx context.Context, opts repository.ListOptions) ([]model.Post, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := db.conn.QueryContext(ctx,
		postSelect+` ORDER BY p.created_at DESC, p.id DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	// CRITICAL: always close rows when done!
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		var p model.Post
		if err := scanPost(rows, &p); err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}

	return posts, nil
}

// UpdatePost writes title, content and the image URL in one transaction.
// The image's public_id never changes on update.
func (db *DB) UpdatePost(ctx context.Context, post *model.Post) error {
	post.UpdatedAt = time.Now().UTC()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning update post: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE posts SET title = ?, content = ?, updated_at = ? WHERE id = ?`,
		post.Title, post.Content, post.UpdatedAt, post.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating post %s: %w", post.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("post", post.ID)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE images SET url = ? WHERE id = (SELECT image_id FROM posts WHERE id = ?)`,
		post.Image.URL, post.ID,
	); err != nil {
		return fmt.Errorf("sqlite: updating image for post %s: %w", post.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing update post: %w", err)
	}
	return nil
}

// DeletePost removes the post and its image record together.
// Bookmarks pointing at the post go with it (ON DELETE CASCADE).
//
// The post row is deleted before the image row because posts.image_id
// references images.id.
func (db *DB) DeletePost(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning delete post: %w", err)
	}
	defer tx.Rollback()

	var imageID string
	err = tx.QueryRowContext(ctx, `SELECT image_id FROM posts WHERE id = ?`, id).Scan(&imageID)
	if err != nil {
		if err == sql.ErrNoRows {
			return apperror.NotFound("post", id)
		}
		return fmt.Errorf("sqlite: looking up image for post %s: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting post %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, imageID); err != nil {
		return fmt.Errorf("sqlite: deleting image %s: %w", imageID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing delete post: %w", err)
	}
	return nil
}
