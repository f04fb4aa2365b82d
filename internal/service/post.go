// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces ownership, orchestrates
//	Repository (Data layer)  → reads/writes the database
//
// Services also talk to the blob store and the event publisher, so the
// handlers never touch storage or Kafka directly.
//
// DEPENDENCY INJECTION:
// Every service takes interfaces (repository.PostRepository, blobstore.Store,
// events.Publisher), NOT concrete types. cmd/blogd decides which
// implementations to pass; the tests pass in-memory fakes.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/blogsite/internal/apperror"
	"github.com/sakif/blogsite/internal/blobstore"
	"github.com/sakif/blogsite/internal/datauri"
	"github.com/sakif/blogsite/internal/events"
	"github.com/sakif/blogsite/internal/model"
	"github.com/sakif/blogsite/internal/repository"
)

const (
	MaxListLimit = 100

	// DefaultMaxImageBytes applies when NewPostService is given zero.
	DefaultMaxImageBytes = 5 << 20
)

// PostService handles business logic for blog posts and their images.
type PostService struct {
	posts         repository.PostRepository
	users         repository.UserRepository
	blobs         blobstore.Store
	publisher     events.Publisher
	maxImageBytes int
	logger        *slog.Logger
}

func NewPostService(
	posts repository.PostRepository,
	users repository.UserRepository,
	blobs blobstore.Store,
	publisher events.Publisher,
	maxImageBytes int,
	logger *slog.Logger,
) *PostService {
	if maxImageBytes <= 0 {
		maxImageBytes = DefaultMaxImageBytes
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &PostService{
		posts:         posts,
		users:         users,
		blobs:         blobs,
		publisher:     publisher,
		maxImageBytes: maxImageBytes,
		logger:        logger,
	}
}

// CreatePostInput carries everything Create needs.
// AuthorID is optional; when set it must equal CallerID.
type CreatePostInput struct {
	CallerID string
	AuthorID string
	Title    string
	Content  string
	Image    string // data:image/<subtype>;base64,<payload>
}

// Create validates the post, uploads its image and stores both records.
//
// ORDER MATTERS:
//  1. Validate everything, including decoding the image. Nothing has been
//     written yet, so a bad request leaves no trace.
//  2. Resolve the author. Also before upload.
//  3. Upload the blob.
//  4. Insert image + post in one transaction.
//
// If step 4 fails the blob from step 3 stays behind as an orphan. It is
// logged with its key so it can be cleaned up.
func (s *PostService) Create(ctx context.Context, in CreatePostInput) (*model.Post, error) {
	if in.CallerID == "" {
		return nil, apperror.Unauthorized("authentication required")
	}
	if in.AuthorID != "" && in.AuthorID != in.CallerID {
		return nil, apperror.Forbidden("you can only create posts as yourself")
	}

	title, content, err := validatePostFields(in.Title, in.Content)
	if err != nil {
		return nil, err
	}
	img, err := s.parseImage(in.Image, true)
	if err != nil {
		return nil, err
	}

	author, err := s.users.GetUserByID(ctx, in.CallerID)
	if err != nil {
		return nil, err
	}

	fileName := img.FileName(uuid.NewString())
	key := blobstore.ImageKey(fileName)
	if err := s.upload(ctx, key, img); err != nil {
		return nil, err
	}

	post := &model.Post{
		Title:   title,
		Content: content,
		Author:  *author,
		Image: model.Image{
			URL:      s.blobs.URL(key),
			PublicID: fileName,
		},
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		s.logger.Error("post insert failed after image upload; blob orphaned",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating post: %w", err)
	}

	s.logger.Info("post created",
		slog.String("id", post.ID),
		slog.String("author", author.ID),
		slog.String("image", fileName),
	)
	s.publish(ctx, events.Event{Type: events.PostCreated, PostID: post.ID, UserID: author.ID})

	return post, nil
}

// UpdatePostInput carries everything Update needs.
// An empty Image leaves the stored image untouched.
type UpdatePostInput struct {
	ID       string
	CallerID string
	Title    string
	Content  string
	Image    string
}

// Update overwrites title and content, and replaces the image bytes when a
// new image is supplied.
//
// The new image is written to the SAME storage key as the old one, even if
// its format differs. The public id and key never change after create.
func (s *PostService) Update(ctx context.Context, in UpdatePostInput) (*model.Post, error) {
	post, err := s.ownedPost(ctx, in.ID, in.CallerID, "edit")
	if err != nil {
		return nil, err
	}

	title, content, err := validatePostFields(in.Title, in.Content)
	if err != nil {
		return nil, err
	}
	img, err := s.parseImage(in.Image, false)
	if err != nil {
		return nil, err
	}

	post.Title = title
	post.Content = content

	if img != nil {
		key := blobstore.ImageKey(post.Image.PublicID)
		if err := s.upload(ctx, key, img); err != nil {
			return nil, err
		}
		post.Image.URL = s.blobs.URL(key)
	}

	if err := s.posts.UpdatePost(ctx, post); err != nil {
		s.logger.Error("failed to update post",
			slog.String("id", post.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating post: %w", err)
	}

	s.logger.Info("post updated",
		slog.String("id", post.ID),
		slog.Bool("imageReplaced", img != nil),
	)
	s.publish(ctx, events.Event{Type: events.PostUpdated, PostID: post.ID, UserID: in.CallerID})

	return post, nil
}

// Delete removes the image blob, then the image and post records.
//
// The blob goes first: if storage is unreachable nothing is deleted and the
// caller gets an upstream error, instead of a post-less blob nobody can find.
func (s *PostService) Delete(ctx context.Context, postID, callerID string) error {
	post, err := s.ownedPost(ctx, postID, callerID, "delete")
	if err != nil {
		return err
	}

	key := blobstore.ImageKey(post.Image.PublicID)
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Error("failed to delete image blob",
			slog.String("post", post.ID),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return apperror.Upstream("failed to delete image from storage", err)
	}

	if err := s.posts.DeletePost(ctx, post.ID); err != nil {
		return fmt.Errorf("deleting post: %w", err)
	}

	s.logger.Info("post deleted", slog.String("id", post.ID))
	s.publish(ctx, events.Event{Type: events.PostDeleted, PostID: post.ID, UserID: callerID})
	return nil
}

// List returns posts newest first. limit 0 returns every post; larger
// limits are clamped to MaxListLimit.
func (s *PostService) List(ctx context.Context, limit, offset int) ([]model.Post, error) {
	if limit < 0 {
		return nil, apperror.ValidationFailed("limit", "limit must not be negative")
	}
	if offset < 0 {
		return nil, apperror.ValidationFailed("offset", "offset must not be negative")
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	posts, err := s.posts.ListPosts(ctx, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		s.logger.Error("failed to list posts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	return posts, nil
}

func (s *PostService) Get(ctx context.Context, id string) (*model.Post, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "post ID is required")
	}
	return s.posts.GetPostByID(ctx, id)
}

// ownedPost fetches the post and checks the caller wrote it.
func (s *PostService) ownedPost(ctx context.Context, postID, callerID, verb string) (*model.Post, error) {
	if callerID == "" {
		return nil, apperror.Unauthorized("authentication required")
	}
	if postID == "" {
		return nil, apperror.ValidationFailed("id", "post ID is required")
	}
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !post.IsAuthoredBy(callerID) {
		return nil, apperror.Forbidden("you can only " + verb + " your own posts")
	}
	return post, nil
}

// parseImage decodes the data URI. When required is false an empty string
// yields (nil, nil).
func (s *PostService) parseImage(uri string, required bool) (*datauri.Image, error) {
	if uri == "" {
		if required {
			return nil, apperror.ValidationFailed("image", "image is required")
		}
		return nil, nil
	}
	img, err := datauri.ParseImage(uri, s.maxImageBytes)
	if err != nil {
		if errors.Is(err, datauri.ErrTooLarge) {
			return nil, apperror.ValidationFailed("image",
				fmt.Sprintf("image must be %d bytes or smaller", s.maxImageBytes))
		}
		return nil, apperror.ValidationFailed("image", "invalid image data: "+err.Error())
	}
	return &img, nil
}

func (s *PostService) upload(ctx context.Context, key string, img *datauri.Image) error {
	start := time.Now()
	if err := s.blobs.Put(ctx, key, img.MediaType, bytes.NewReader(img.Data)); err != nil {
		s.logger.Error("image upload failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return apperror.Upstream("failed to upload image", err)
	}
	s.logger.Debug("image uploaded",
		slog.String("key", key),
		slog.Int("bytes", len(img.Data)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (s *PostService) publish(ctx context.Context, e events.Event) {
	publish(ctx, s.publisher, s.logger, e)
}
