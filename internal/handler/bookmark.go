package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/blogsite/internal/apperror"
	"github.com/sakif/blogsite/internal/auth"
	"github.com/sakif/blogsite/internal/service"
)

// BookmarkHandler serves the saved-post endpoints.
type BookmarkHandler struct {
	bookmarks *service.BookmarkService
	logger    *slog.Logger
}

func NewBookmarkHandler(bookmarks *service.BookmarkService, logger *slog.Logger) *BookmarkHandler {
	return &BookmarkHandler{bookmarks: bookmarks, logger: logger}
}

// HandleSave bookmarks a post for a user.
//
// HTTP: PUT /api/blogs/save/{postId}/{userId}
//
// Saving the same post twice creates two bookmarks. The route takes no
// login, but a logged-in caller may only save for themselves.
func (h *BookmarkHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if callerID, ok := auth.UserIDFromContext(r.Context()); ok && callerID != userID {
		writeError(w, h.logger, apperror.Forbidden("you can only save posts for yourself"))
		return
	}

	saved, err := h.bookmarks.Save(r.Context(), r.PathValue("postId"), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Message: "Blog post saved successfully!",
		SavedID: saved.ID,
	})
}

// HandleListSaved returns a user's bookmarks, each with its post inline.
//
// HTTP: GET /api/blogs/saved/{userId}
func (h *BookmarkHandler) HandleListSaved(w http.ResponseWriter, r *http.Request) {
	saved, err := h.bookmarks.ListSaved(r.Context(), r.PathValue("userId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// HandleRemove deletes one bookmark owned by the caller.
//
// HTTP: DELETE /api/blogs/saved/remove/{savedId}
// Auth: Required
func (h *BookmarkHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	savedID := r.PathValue("savedId")
	callerID, _ := auth.UserIDFromContext(r.Context())

	if err := h.bookmarks.Remove(r.Context(), savedID, callerID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Message: "Blog removed from saved!",
		SavedID: savedID,
	})
}
