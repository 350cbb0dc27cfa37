package service

import (
	"context"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/spec-kit/post-scheduler/internal/domain"
	"github.com/spec-kit/post-scheduler/internal/repository"
)

// PostScheduleInput describes a post to publish later.
type PostScheduleInput struct {
	AccountID     int64
	Content       string
	MediaURL      *string
	ScheduledTime time.Time
}

// PostService coordinates post workflows exposed over HTTP.
type PostService struct {
	posts repository.PostRepository
	clock clockwork.Clock
}

// NewPostService constructs the service.
func NewPostService(posts repository.PostRepository, clock clockwork.Clock) *PostService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &PostService{posts: posts, clock: clock}
}

// Schedule stores a post for publication at input.ScheduledTime, which must lie in the future.
func (s *PostService) Schedule(ctx context.Context, userID int64, input PostScheduleInput) (*domain.Post, error) {
	if !input.ScheduledTime.After(s.clock.Now()) {
		return nil, domain.ErrInvalidSchedule
	}

	scheduled := input.ScheduledTime.UTC()
	var media *string
	if input.MediaURL != nil && strings.TrimSpace(*input.MediaURL) != "" {
		trimmed := strings.TrimSpace(*input.MediaURL)
		media = &trimmed
	}

	post := &domain.Post{
		Content:       strings.TrimSpace(input.Content),
		MediaURL:      media,
		ScheduledTime: &scheduled,
		Status:        domain.PostStatusScheduled,
		UserID:        userID,
		AccountID:     input.AccountID,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// ListForUser returns the caller's posts, newest first.
func (s *PostService) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Post, error) {
	return s.posts.ListByUser(ctx, userID, limit, offset)
}

// Get returns one of the caller's posts. Posts owned by someone else are reported as not found.
func (s *PostService) Get(ctx context.Context, userID, id int64) (*domain.Post, error) {
	return s.posts.GetByID(ctx, userID, id)
}
