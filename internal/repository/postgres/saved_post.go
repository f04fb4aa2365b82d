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

func scanSavedPost(row pgx.Row, s *model.SavedPost) error {
	p := &s.Post
	err := row.Scan(
		&s.ID, &s.SavedBy, &s.SavedAt,
		&p.ID, &p.Title, &p.Content, &p.CreatedAt, &p.UpdatedAt,
		&p.Author.ID, &p.Author.Username, &p.Author.Email, &p.Author.CreatedAt,
		&p.Image.ID, &p.Image.URL, &p.Image.PublicID,
	)
	if err != nil {
		return err
	}
	s.SavedAt = s.SavedAt.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	p.Author.CreatedAt = p.Author.CreatedAt.UTC()
	return nil
}

func (db *DB) CreateSavedPost(ctx context.Context, saved *model.SavedPost) error {
	saved.ID = xid.New().String()
	saved.SavedAt = time.Now().UTC()

	_, err := db.pool.Exec(ctx,
		`INSERT INTO saved_posts (id, post_id, saved_by, saved_at) VALUES ($1, $2, $3, $4)`,
		saved.ID, saved.Post.ID, saved.SavedBy, saved.SavedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("post or user", saved.Post.ID+"/"+saved.SavedBy)
		}
		return fmt.Errorf("postgres: inserting saved post: %w", err)
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
	if err := scanSavedPost(db.pool.QueryRow(ctx, savedPostSelect+` WHERE s.id = $1`, id), &s); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("saved post", id)
		}
		return nil, fmt.Errorf("postgres: getting saved post %s: %w", id, err)
	}
	return &s, nil
}

func (db *DB) ListSavedPostsByUser(ctx context.Context, userID string) ([]model.SavedPost, error) {
	rows, err := db.pool.Query(ctx,
		savedPostSelect+` WHERE s.saved_by = $1 ORDER BY s.saved_at DESC, s.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing saved posts for %s: %w", userID, err)
	}
	defer rows.Close()

	saved := []model.SavedPost{}
	for rows.Next() {
		var s model.SavedPost
		if err := scanSavedPost(rows, &s); err != nil {
			return nil, fmt.Errorf("postgres: scanning saved post row: %w", err)
		}
		saved = append(saved, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating saved posts: %w", err)
	}
	return saved, nil
}

func (db *DB) DeleteSavedPost(ctx context.Context, id string) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM saved_posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: deleting saved post %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("saved post", id)
	}
	return nil
}
