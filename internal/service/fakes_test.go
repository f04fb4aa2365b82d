package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/sakif/blogsite/internal/apperror"
	"github.com/sakif/blogsite/internal/blobstore"
	"github.com/sakif/blogsite/internal/model"
	"github.com/sakif/blogsite/internal/repository"
)

// =========================================================================
// FAKE STORE
// =========================================================================
//
// memStore is an in-memory implementation of every repository interface.
// Hand-written fakes keep the tests readable: you can see exactly what each
// method does. Set the *Err fields to simulate a database failure.

type memStore struct {
	mu     sync.Mutex
	nextID int

	users []*model.User
	posts []*model.Post // insertion order; newest last
	saved []*model.SavedPost

	createPostErr error
}

var (
	_ repository.UserRepository      = (*memStore)(nil)
	_ repository.PostRepository      = (*memStore)(nil)
	_ repository.SavedPostRepository = (*memStore)(nil)
)

func newMemStore() *memStore { return &memStore{} }

func (m *memStore) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *memStore) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username || (u.GitHubID != 0 && existing.GitHubID == u.GitHubID) {
			return apperror.Conflict("user", u.Username)
		}
	}
	u.ID = m.id("user")
	u.CreatedAt = time.Now().UTC()
	stored := *u
	m.users = append(m.users, &stored)
	return nil
}

func (m *memStore) findUser(match func(*model.User) bool, key string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, apperror.NotFound("user", key)
}

func (m *memStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	return m.findUser(func(u *model.User) bool { return u.ID == id }, id)
}

func (m *memStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	return m.findUser(func(u *model.User) bool { return u.Username == username }, username)
}

func (m *memStore) GetUserByGitHubID(_ context.Context, githubID int64) (*model.User, error) {
	return m.findUser(func(u *model.User) bool { return u.GitHubID == githubID }, fmt.Sprint(githubID))
}

func (m *memStore) CreatePost(_ context.Context, p *model.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createPostErr != nil {
		return m.createPostErr
	}
	p.ID = m.id("post")
	p.Image.ID = m.id("image")
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	stored := *p
	m.posts = append(m.posts, &stored)
	return nil
}

func (m *memStore) GetPostByID(_ context.Context, id string) (*model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.posts {
		if p.ID == id {
			c := *p
			return &c, nil
		}
	}
	return nil, apperror.NotFound("post", id)
}

func (m *memStore) ListPosts(_ context.Context, opts repository.ListOptions) ([]model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Post{}
	for i := len(m.posts) - 1; i >= 0; i-- {
		out = append(out, *m.posts[i])
	}
	if opts.Offset >= len(out) {
		return []model.Post{}, nil
	}
	out = out[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *memStore) UpdatePost(_ context.Context, p *model.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, stored := range m.posts {
		if stored.ID == p.ID {
			stored.Title = p.Title
			stored.Content = p.Content
			stored.Image.URL = p.Image.URL
			stored.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return apperror.NotFound("post", p.ID)
}

func (m *memStore) DeletePost(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.posts {
		if p.ID == id {
			m.posts = append(m.posts[:i], m.posts[i+1:]...)
			kept := m.saved[:0]
			for _, s := range m.saved {
				if s.Post.ID != id {
					kept = append(kept, s)
				}
			}
			m.saved = kept
			return nil
		}
	}
	return apperror.NotFound("post", id)
}

func (m *memStore) CreateSavedPost(_ context.Context, s *model.SavedPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var post *model.Post
	for _, p := range m.posts {
		if p.ID == s.Post.ID {
			post = p
		}
	}
	if post == nil {
		return apperror.NotFound("post", s.Post.ID)
	}
	s.ID = m.id("saved")
	s.SavedAt = time.Now().UTC()
	s.Post = *post
	stored := *s
	m.saved = append(m.saved, &stored)
	return nil
}

func (m *memStore) GetSavedPostByID(_ context.Context, id string) (*model.SavedPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.saved {
		if s.ID == id {
			c := *s
			return &c, nil
		}
	}
	return nil, apperror.NotFound("saved post", id)
}

func (m *memStore) ListSavedPostsByUser(_ context.Context, userID string) ([]model.SavedPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.SavedPost{}
	for i := len(m.saved) - 1; i >= 0; i-- {
		if m.saved[i].SavedBy == userID {
			out = append(out, *m.saved[i])
		}
	}
	return out, nil
}

func (m *memStore) DeleteSavedPost(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.saved {
		if s.ID == id {
			m.saved = append(m.saved[:i], m.saved[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("saved post", id)
}

func (m *memStore) postCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.posts)
}

// =========================================================================
// FAKE BLOB STORE
// =========================================================================

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string

	putErr    error
	deleteErr error
}

var _ blobstore.Store = (*fakeBlobs)(nil)

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeBlobs) Put(_ context.Context, key, contentType string, r io.Reader) error {
	if f.putErr != nil {
		return f.putErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = b
	f.types[key] = contentType
	return nil
}

func (f *fakeBlobs) Get(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[key]
	if !ok {
		return nil, blobstore.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *fakeBlobs) Delete(_ context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeBlobs) URL(key string) string { return "https://cdn.test/" + key }

func (f *fakeBlobs) Close() error { return nil }

func (f *fakeBlobs) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

func (f *fakeBlobs) bytes(key string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[key]
}

// =========================================================================
// SHARED HELPERS
// =========================================================================

var errDBDown = errors.New("database is down")

// quietLogger only prints errors so test output stays readable.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
