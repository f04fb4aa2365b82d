// Package repository declares the storage interfaces the services depend on.
//
// Two implementations exist: repository/sqlite (embedded, the default) and
// repository/postgres. Exactly one is constructed per deployment, in cmd/blogd,
// and passed to the services as a Store.
//
// Every implementation must:
//   - return apperror.NotFound when a row does not exist
//   - return apperror.Conflict when a unique username or GitHub ID is taken
//   - resolve Post.Author and Post.Image on every read
package repository

import (
	"context"

	"github.com/sakif/blogsite/internal/model"
)

type ListOptions struct {
	Limit  int // 0 means no limit
	Offset int
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
}

type PostRepository interface {
	// CreatePost inserts post.Image and then post in one transaction.
	// post.Author.ID must reference an existing user.
	CreatePost(ctx context.Context, post *model.Post) error
	GetPostByID(ctx context.Context, id string) (*model.Post, error)
	ListPosts(ctx context.Context, opts ListOptions) ([]model.Post, error)
	// UpdatePost writes title, content and the image URL.
	UpdatePost(ctx context.Context, post *model.Post) error
	// DeletePost removes the post, its image record and its bookmarks.
	DeletePost(ctx context.Context, id string) error
}

type SavedPostRepository interface {
	CreateSavedPost(ctx context.Context, saved *model.SavedPost) error
	GetSavedPostByID(ctx context.Context, id string) (*model.SavedPost, error)
	ListSavedPostsByUser(ctx context.Context, userID string) ([]model.SavedPost, error)
	DeleteSavedPost(ctx context.Context, id string) error
}

// Store is the full capability set one backend provides.
type Store interface {
	UserRepository
	PostRepository
	SavedPostRepository
	Ping(ctx context.Context) error
	Close() error
}
