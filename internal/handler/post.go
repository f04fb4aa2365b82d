package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/blogsite/internal/apperror"
	"github.com/sakif/blogsite/internal/auth"
	"github.com/sakif/blogsite/internal/service"
)

// PostHandler serves the blog post endpoints.
//
// The handler only translates HTTP to service calls. Ownership checks,
// validation and image upload all live in service.PostService.
type PostHandler struct {
	posts     *service.PostService
	bodyLimit int64
	logger    *slog.Logger
}

// NewPostHandler sizes the body limit from the image cap: base64 inflates
// the image by 4/3, plus room for the title, content and JSON framing.
func NewPostHandler(posts *service.PostService, maxImageBytes int, logger *slog.Logger) *PostHandler {
	if maxImageBytes <= 0 {
		maxImageBytes = service.DefaultMaxImageBytes
	}
	return &PostHandler{
		posts:     posts,
		bodyLimit: int64(maxImageBytes)*4/3 + defaultBodyLimit,
		logger:    logger,
	}
}

type createPostRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Image    string `json:"image"`
	AuthorID string `json:"authorId"`
}

type updatePostRequest struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Image   string `json:"image"`
}

// HandleList returns posts, newest first.
//
// HTTP: GET /api/blogs?limit=20&offset=40
//
// Both parameters are optional. No limit returns every post.
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	posts, err := h.posts.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// HandleGet returns one post.
//
// HTTP: GET /api/blogs/{id}
func (h *PostHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleCreate publishes a new post.
//
// HTTP: POST /api/blogs
// REQUEST BODY: {"title": "...", "content": "...", "image": "data:image/png;base64,..."}
// Auth: Required. The author is always the caller.
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := decodeJSON(w, r, &req, h.bodyLimit); err != nil {
		writeError(w, h.logger, err)
		return
	}
	callerID, _ := auth.UserIDFromContext(r.Context())

	post, err := h.posts.Create(r.Context(), service.CreatePostInput{
		CallerID: callerID,
		AuthorID: req.AuthorID,
		Title:    req.Title,
		Content:  req.Content,
		Image:    req.Image,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, messageResponse{
		Message: "Blog posted successfully!",
		PostID:  post.ID,
	})
}

// HandleUpdate edits a post. The post ID travels in the body.
//
// HTTP: PUT /api/blogs
// REQUEST BODY: {"id": "...", "title": "...", "content": "...", "image": "data:..."}
// "image" is optional; omit it to keep the current picture.
func (h *PostHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updatePostRequest
	if err := decodeJSON(w, r, &req, h.bodyLimit); err != nil {
		writeError(w, h.logger, err)
		return
	}
	callerID, _ := auth.UserIDFromContext(r.Context())

	post, err := h.posts.Update(r.Context(), service.UpdatePostInput{
		ID:       req.ID,
		CallerID: callerID,
		Title:    req.Title,
		Content:  req.Content,
		Image:    req.Image,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Message: "Blog post updated successfully!",
		PostID:  post.ID,
	})
}

// HandleDelete removes a post, its image and its bookmarks.
//
// HTTP: DELETE /api/blogs/{id}
// 204 No Content on success.
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserIDFromContext(r.Context())

	if err := h.posts.Delete(r.Context(), r.PathValue("id"), callerID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// queryInt reads an optional integer query parameter. Missing means 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(name, name+" must be an integer")
	}
	return n, nil
}
