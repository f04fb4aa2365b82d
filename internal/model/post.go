package model

import "time"

// Image is the stored picture attached to exactly one Post.
//
// PublicID is the file name inside the blob store's image prefix
// (e.g. "3f1c...e9.png"); the full storage key is derived from it.
type Image struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

// Post is a blog entry. Author and Image are always resolved when a Post
// leaves the repository layer, so handlers can serialize it directly.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Author    User      `json:"author"`
	Image     Image     `json:"image"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsAuthoredBy reports whether userID owns the post.
func (p *Post) IsAuthoredBy(userID string) bool {
	return userID != "" && p.Author.ID == userID
}
