package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/blogsite/internal/apperror"
	"github.com/sakif/blogsite/internal/events"
	"github.com/sakif/blogsite/internal/model"
	"github.com/sakif/blogsite/internal/repository"
)

// BookmarkService manages saved posts: edges between a user and a post.
type BookmarkService struct {
	saved     repository.SavedPostRepository
	posts     repository.PostRepository
	users     repository.UserRepository
	publisher events.Publisher
	logger    *slog.Logger
}

func NewBookmarkService(
	saved repository.SavedPostRepository,
	posts repository.PostRepository,
	users repository.UserRepository,
	publisher events.Publisher,
	logger *slog.Logger,
) *BookmarkService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &BookmarkService{
		saved:     saved,
		posts:     posts,
		users:     users,
		publisher: publisher,
		logger:    logger,
	}
}

// Save bookmarks the post for the user. Saving the same post again creates
// another, separate bookmark.
func (s *BookmarkService) Save(ctx context.Context, postID, userID string) (*model.SavedPost, error) {
	if postID == "" {
		return nil, apperror.ValidationFailed("postId", "post ID is required")
	}
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "user ID is required")
	}
	if _, err := s.posts.GetPostByID(ctx, postID); err != nil {
		return nil, err
	}
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	saved := &model.SavedPost{Post: model.Post{ID: postID}, SavedBy: userID}
	if err := s.saved.CreateSavedPost(ctx, saved); err != nil {
		return nil, fmt.Errorf("saving post: %w", err)
	}

	s.logger.Info("post saved",
		slog.String("savedID", saved.ID),
		slog.String("post", postID),
		slog.String("user", userID),
	)
	publish(ctx, s.publisher, s.logger, events.Event{
		Type: events.BookmarkSaved, PostID: postID, UserID: userID, SavedID: saved.ID,
	})
	return saved, nil
}

// ListSaved returns the user's bookmarks, newest first, each with its post.
func (s *BookmarkService) ListSaved(ctx context.Context, userID string) ([]model.SavedPost, error) {
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "user ID is required")
	}
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	saved, err := s.saved.ListSavedPostsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing saved posts: %w", err)
	}
	return saved, nil
}

// Remove deletes one bookmark. Only the user who saved it may remove it.
func (s *BookmarkService) Remove(ctx context.Context, savedID, callerID string) error {
	if callerID == "" {
		return apperror.Unauthorized("authentication required")
	}
	saved, err := s.saved.GetSavedPostByID(ctx, savedID)
	if err != nil {
		return err
	}
	if saved.SavedBy != callerID {
		return apperror.Forbidden("you can only remove your own saved posts")
	}

	if err := s.saved.DeleteSavedPost(ctx, savedID); err != nil {
		return fmt.Errorf("removing saved post: %w", err)
	}

	s.logger.Info("saved post removed", slog.String("savedID", savedID))
	publish(ctx, s.publisher, s.logger, events.Event{
		Type: events.BookmarkRemoved, PostID: saved.Post.ID, UserID: callerID, SavedID: savedID,
	})
	return nil
}
