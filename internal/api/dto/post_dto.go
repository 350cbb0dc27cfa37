package dto

import (
	"time"

	"github.com/spec-kit/post-scheduler/internal/domain"
)

// SchedulePostRequest payload.
type SchedulePostRequest struct {
	AccountID     int64     `json:"account_id"`
	Content       string    `json:"content"`
	MediaURL      *string   `json:"media_url"`
	ScheduledTime time.Time `json:"scheduled_time"`
}

// PostListQuery captures pagination for post listings.
type PostListQuery struct {
	Limit  int
	Offset int
}

// PostResponse is the public shape of a post.
type PostResponse struct {
	ID            int64             `json:"id"`
	AccountID     int64             `json:"account_id"`
	Content       string            `json:"content"`
	MediaURL      *string           `json:"media_url"`
	Status        domain.PostStatus `json:"status"`
	ScheduledTime *time.Time        `json:"scheduled_time"`
	PublishedTime *time.Time        `json:"published_time"`
	CreatedAt     time.Time         `json:"created_at"`
}

// NewPostResponse maps a domain post.
func NewPostResponse(p *domain.Post) PostResponse {
	return PostResponse{
		ID:            p.ID,
		AccountID:     p.AccountID,
		Content:       p.Content,
		MediaURL:      p.MediaURL,
		Status:        p.Status,
		ScheduledTime: p.ScheduledTime,
		PublishedTime: p.PublishedTime,
		CreatedAt:     p.CreatedAt,
	}
}
