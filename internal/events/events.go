// Package events publishes post and bookmark lifecycle notifications.
//
// Publishing is best-effort: the services log a failed publish and carry
// on, because the database write it describes has already committed.
package events

import (
	"context"
	"time"
)

type Type string

const (
	PostCreated     Type = "post.created"
	PostUpdated     Type = "post.updated"
	PostDeleted     Type = "post.deleted"
	BookmarkSaved   Type = "bookmark.saved"
	BookmarkRemoved Type = "bookmark.removed"
)

// Event is the JSON payload written to the topic.
type Event struct {
	Type       Type      `json:"type"`
	PostID     string    `json:"postId"`
	UserID     string    `json:"userId"`
	SavedID    string    `json:"savedId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Key partitions events so everything about one post stays ordered.
func (e Event) Key() string {
	return e.PostID
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards events. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
