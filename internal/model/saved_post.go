package model

import "time"

// SavedPost is a bookmark: an edge between a user and a post.
// The same user may save the same post more than once; each save is its own edge.
type SavedPost struct {
	ID      string    `json:"id"`
	Post    Post      `json:"blog"`
	SavedBy string    `json:"savedBy"`
	SavedAt time.Time `json:"savedAt"`
}
