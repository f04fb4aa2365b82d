// Package repotest holds the behaviour every repository.Store backend must share.
//
// Each backend's test file calls Run with a constructor for a fresh, empty
// store. The sqlite tests run it against ":memory:"; the postgres tests run
// it only when a database URL is provided.
package repotest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/blogsite/internal/apperror"
	"github.com/sakif/blogsite/internal/model"
	"github.com/sakif/blogsite/internal/repository"
)

// NewStore returns an empty store. The caller is responsible for cleanup.
type NewStore func(t *testing.T) repository.Store

// Run executes every shared case as a subtest, each against its own store.
func Run(t *testing.T, newStore NewStore) {
	cases := []struct {
		name string
		fn   func(t *testing.T, s repository.Store)
	}{
		{"CreateUser", testCreateUser},
		{"CreateUser_DuplicateUsername", testCreateUserDuplicateUsername},
		{"CreateUser_ManyWithoutGitHub", testCreateUserManyWithoutGitHub},
		{"GetUser_NotFound", testGetUserNotFound},
		{"GetUserByGitHubID", testGetUserByGitHubID},
		{"CreatePost_ResolvesAuthorAndImage", testCreatePost},
		{"CreatePost_UnknownAuthor", testCreatePostUnknownAuthor},
		{"GetPost_NotFound", testGetPostNotFound},
		{"ListPosts_NewestFirst", testListPostsNewestFirst},
		{"ListPosts_Paginates", testListPostsPaginates},
		{"ListPosts_EmptyIsNotNil", testListPostsEmpty},
		{"UpdatePost", testUpdatePost},
		{"UpdatePost_NotFound", testUpdatePostNotFound},
		{"DeletePost_RemovesBookmarks", testDeletePostRemovesBookmarks},
		{"DeletePost_NotFound", testDeletePostNotFound},
		{"SavedPost_AllowsDuplicates", testSavedPostDuplicates},
		{"SavedPost_ListIsPerUser", testSavedPostListPerUser},
		{"SavedPost_UnknownPost", testSavedPostUnknownPost},
		{"SavedPost_Delete", testSavedPostDelete},
		{"Ping", testPing},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newStore(t))
		})
	}
}

// =========================================================================
// HELPERS
// =========================================================================

func mustUser(t *testing.T, s repository.Store, username string) *model.User {
	t.Helper()
	u := &model.User{Username: username, Email: username + "@example.com", PasswordHash: "hash"}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func mustPost(t *testing.T, s repository.Store, author *model.User, title string) *model.Post {
	t.Helper()
	p := &model.Post{
		Title:   title,
		Content: "content of " + title,
		Author:  model.User{ID: author.ID},
		Image: model.Image{
			URL:      "https://cdn.example.com/media/blog_images/" + title + ".png",
			PublicID: title + ".png",
		},
	}
	require.NoError(t, s.CreatePost(context.Background(), p))
	return p
}

func mustSave(t *testing.T, s repository.Store, post *model.Post, user *model.User) *model.SavedPost {
	t.Helper()
	saved := &model.SavedPost{Post: model.Post{ID: post.ID}, SavedBy: user.ID}
	require.NoError(t, s.CreateSavedPost(context.Background(), saved))
	return saved
}

// =========================================================================
// USER TESTS
// =========================================================================

func testCreateUser(t *testing.T, s repository.Store) {
	ctx := context.Background()
	u := mustUser(t, s, "alice")

	assert.NotEmpty(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	got, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, "hash", got.PasswordHash)

	byID, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)
}

func testCreateUserDuplicateUsername(t *testing.T, s repository.Store) {
	mustUser(t, s, "alice")

	err := s.CreateUser(context.Background(), &model.User{Username: "alice"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("CreateUser() duplicate error = %v, want ErrConflict", err)
	}
}

func testCreateUserManyWithoutGitHub(t *testing.T, s repository.Store) {
	// A zero GitHubID is stored as NULL, so it never collides.
	mustUser(t, s, "alice")
	mustUser(t, s, "bob")
}

func testGetUserNotFound(t *testing.T, s repository.Store) {
	ctx := context.Background()

	_, err := s.GetUserByID(ctx, "nope")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = s.GetUserByUsername(ctx, "nope")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = s.GetUserByGitHubID(ctx, 42)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func testGetUserByGitHubID(t *testing.T, s repository.Store) {
	ctx := context.Background()
	u := &model.User{Username: "octocat", GitHubID: 583231}
	require.NoError(t, s.CreateUser(ctx, u))

	got, err := s.GetUserByGitHubID(ctx, 583231)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, int64(583231), got.GitHubID)
	assert.False(t, got.HasPassword())

	err = s.CreateUser(ctx, &model.User{Username: "other", GitHubID: 583231})
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

// =========================================================================
// POST TESTS
// =========================================================================

func testCreatePost(t *testing.T, s repository.Store) {
	ctx := context.Background()
	author := mustUser(t, s, "alice")
	p := mustPost(t, s, author, "first")

	assert.NotEmpty(t, p.ID)
	assert.NotEmpty(t, p.Image.ID)
	assert.Equal(t, "alice", p.Author.Username)

	got, err := s.GetPostByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Title)
	assert.Equal(t, "content of first", got.Content)
	assert.Equal(t, author.ID, got.Author.ID)
	assert.Equal(t, "alice", got.Author.Username)
	assert.Equal(t, p.Image.ID, got.Image.ID)
	assert.Equal(t, "first.png", got.Image.PublicID)
	assert.Equal(t, p.Image.URL, got.Image.URL)
}

func testCreatePostUnknownAuthor(t *testing.T, s repository.Store) {
	p := &model.Post{
		Title:  "orphan",
		Author: model.User{ID: "missing"},
		Image:  model.Image{URL: "u", PublicID: "orphan.png"},
	}
	err := s.CreatePost(context.Background(), p)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	// The image insert must have been rolled back with the post.
	posts, err := s.ListPosts(context.Background(), repository.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func testGetPostNotFound(t *testing.T, s repository.Store) {
	_, err := s.GetPostByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func testListPostsNewestFirst(t *testing.T, s repository.Store) {
	author := mustUser(t, s, "alice")
	first := mustPost(t, s, author, "one")
	second := mustPost(t, s, author, "two")
	third := mustPost(t, s, author, "three")

	posts, err := s.ListPosts(context.Background(), repository.ListOptions{})
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, third.ID, posts[0].ID)
	assert.Equal(t, second.ID, posts[1].ID)
	assert.Equal(t, first.ID, posts[2].ID)
	for _, p := range posts {
		assert.Equal(t, "alice", p.Author.Username)
		assert.NotEmpty(t, p.Image.URL)
	}
}

func testListPostsPaginates(t *testing.T, s repository.Store) {
	author := mustUser(t, s, "alice")
	for _, title := range []string{"a", "b", "c", "d"} {
		mustPost(t, s, author, title)
	}

	page, err := s.ListPosts(context.Background(), repository.ListOptions{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "c", page[0].Title)
	assert.Equal(t, "b", page[1].Title)
}

func testListPostsEmpty(t *testing.T, s repository.Store) {
	posts, err := s.ListPosts(context.Background(), repository.ListOptions{})
	require.NoError(t, err)
	// A nil slice would serialize as null instead of [].
	assert.NotNil(t, posts)
	assert.Empty(t, posts)
}

func testUpdatePost(t *testing.T, s repository.Store) {
	ctx := context.Background()
	author := mustUser(t, s, "alice")
	p := mustPost(t, s, author, "draft")
	before := p.UpdatedAt

	p.Title = "final"
	p.Content = "rewritten"
	p.Image.URL = "https://cdn.example.com/media/blog_images/draft.png?v=2"
	require.NoError(t, s.UpdatePost(ctx, p))

	got, err := s.GetPostByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "final", got.Title)
	assert.Equal(t, "rewritten", got.Content)
	assert.Equal(t, p.Image.URL, got.Image.URL)
	assert.Equal(t, "draft.png", got.Image.PublicID)
	assert.False(t, got.UpdatedAt.Before(before))
}

func testUpdatePostNotFound(t *testing.T, s repository.Store) {
	err := s.UpdatePost(context.Background(), &model.Post{ID: "missing", Title: "x"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func testDeletePostRemovesBookmarks(t *testing.T, s repository.Store) {
	ctx := context.Background()
	author := mustUser(t, s, "alice")
	reader := mustUser(t, s, "bob")
	p := mustPost(t, s, author, "doomed")
	saved := mustSave(t, s, p, reader)

	require.NoError(t, s.DeletePost(ctx, p.ID))

	_, err := s.GetPostByID(ctx, p.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = s.GetSavedPostByID(ctx, saved.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	list, err := s.ListSavedPostsByUser(ctx, reader.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	// The image row went too, so its public id can be reused.
	mustPost(t, s, author, "doomed")
}

func testDeletePostNotFound(t *testing.T, s repository.Store) {
	err := s.DeletePost(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

// =========================================================================
// SAVED POST TESTS
// =========================================================================

func testSavedPostDuplicates(t *testing.T, s repository.Store) {
	ctx := context.Background()
	author := mustUser(t, s, "alice")
	p := mustPost(t, s, author, "loved")

	a := mustSave(t, s, p, author)
	b := mustSave(t, s, p, author)
	assert.NotEqual(t, a.ID, b.ID)

	// Create resolves the embedded post.
	assert.Equal(t, "loved", a.Post.Title)
	assert.Equal(t, "alice", a.Post.Author.Username)
	assert.Equal(t, author.ID, a.SavedBy)
	assert.False(t, a.SavedAt.IsZero())

	list, err := s.ListSavedPostsByUser(ctx, author.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func testSavedPostListPerUser(t *testing.T, s repository.Store) {
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")
	p1 := mustPost(t, s, alice, "p1")
	p2 := mustPost(t, s, alice, "p2")

	mustSave(t, s, p1, alice)
	latest := mustSave(t, s, p2, alice)
	mustSave(t, s, p1, bob)

	list, err := s.ListSavedPostsByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, latest.ID, list[0].ID)
	assert.Equal(t, "p2", list[0].Post.Title)
	for _, sp := range list {
		assert.Equal(t, alice.ID, sp.SavedBy)
	}

	empty, err := s.ListSavedPostsByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func testSavedPostUnknownPost(t *testing.T, s repository.Store) {
	u := mustUser(t, s, "alice")
	err := s.CreateSavedPost(context.Background(), &model.SavedPost{
		Post:    model.Post{ID: "missing"},
		SavedBy: u.ID,
	})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func testSavedPostDelete(t *testing.T, s repository.Store) {
	ctx := context.Background()
	u := mustUser(t, s, "alice")
	p := mustPost(t, s, u, "p")
	saved := mustSave(t, s, p, u)

	require.NoError(t, s.DeleteSavedPost(ctx, saved.ID))

	_, err := s.GetSavedPostByID(ctx, saved.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	err = s.DeleteSavedPost(ctx, saved.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	// The post itself is untouched.
	_, err = s.GetPostByID(ctx, p.ID)
	assert.NoError(t, err)
}

func testPing(t *testing.T, s repository.Store) {
	assert.NoError(t, s.Ping(context.Background()))
}
