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

var _ repository.SavedPostRepository = (*DB)(nil)

const savedPostSelect = `
	SELECT s.id, s.saved_by, s.saved_at,
	       p.id, p.title, p.content, p.created_at, p.updated_at,
	       u.id, u.username, u.email, u.created_at,
	       i.id, i.url, i.public_id
	FROM saved_posts s
	JOIN posts p  ON p.id = s.post_id
	JOIN users u  ON u.id = p.author_id
	JOIN images i ON i.id = p.image_id`

func scanSavedPost(rs rowScanner, s *model.SavedPost) error {
	p := &s.Post
	return rs.Scan(
		&s.ID, &s.SavedBy, &s.SavedAt,
		&p.ID, &p.Title, &p.Content, &p.CreatedAt, &p.UpdatedAt,
		&p.Author.ID, &p.Author.Username, &p.Author.Email, &p.Author.CreatedAt,
		&p.Image.ID, &p.Image.URL, &p.Image.PublicID,
	)
}

// CreateSavedPost inserts a bookmark edge. saved.Post.ID and saved.SavedBy must be set.
// There is no uniqueness check: saving the same post twice yields two edges.
func (db *DB) CreateSavedPost(ctx context.Context, saved *model.SavedPost) error {
	saved.ID = xid.New().String()
	saved.SavedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO saved_posts (id, post_id, saved_by, saved_at) VALUES (?, ?, ?, ?)`,
		saved.ID, saved.Post.ID, saved.SavedBy, saved.SavedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("post or user", saved.Post.ID+"/"+saved.SavedBy)
		}
		return fmt.Errorf("sqlite: inserting saved post: %w", err)
	}

	stored, err := db.GetSavedPostByID(ctx, saved.ID)
	if err != nil {
		return err
	}
	*saved = *stored
	return nil
}

func (db *DB) GetSavedPostByID(ctx context.Context, id string) (*model.SavedPost, error) {
	var s model.SavedPost
	err := scanSavedPost(db.conn.QueryRowContext(ctx, savedPostSelect+` WHERE s.id = ?`, id), &s)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("saved post", id)
		}
		return nil, fmt.Errorf("sqlite: getting saved post %s: %w", id, err)
	}
	return &s, nil
}

// ListSavedPostsByUser returns the user's bookmarks, newest first, each with its post expanded.
func (db *DB) ListSavedPostsByUser(ctx context.Context, userID string) ([]model.SavedPost, error) {
	rows, err := db.conn.QueryContext(ctx,
		savedPostSelect+` WHERE s.saved_by = ? ORDER BY s.saved_at DESC, s.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing saved posts for %s: %w", userID, err)
	}
	defer rows.Close()

	saved := []model.SavedPost{}
	for rows.Next() {
		var s model.SavedPost
		if err := scanSavedPost(rows, &s); err != nil {
			return nil, fmt.Errorf("sqlite: scanning saved post row: %w", err)
		}
		saved = append(saved, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating saved posts: %w", err)
	}
	return saved, nil
}

func (db *DB) DeleteSavedPost(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM saved_posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting saved post %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("saved post", id)
	}
	return nil
}
