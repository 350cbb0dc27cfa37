package domain

import "time"

// PostStatus enumerates publication states for posts.
type PostStatus string

const (
	PostStatusScheduled PostStatus = "scheduled"
	PostStatusPublished PostStatus = "published"
)

// Valid reports whether the status is one of the known values.
func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusScheduled, PostStatusPublished:
		return true
	}
	return false
}

// Post is a piece of content bound to a linked account.
type Post struct {
	ID            int64
	Content       string
	MediaURL      *string
	ScheduledTime *time.Time
	PublishedTime *time.Time
	Status        PostStatus
	CreatedAt     time.Time
	UserID        int64
	AccountID     int64
}

// PublishedPost is the projection returned when due posts are promoted.
type PublishedPost struct {
	ID        int64
	UserID    int64
	AccountID int64
}

// ScanStatus summarises the outcome of the most recent publish sweep.
type ScanStatus struct {
	TickID    string
	LastRunAt time.Time
	Published int
	Error     string
}
