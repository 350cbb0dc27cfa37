package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/post-scheduler/internal/repository"
)

// RefreshNotification is the message pushed to live clients after posts are published.
const RefreshNotification = "An update has occurred. Please refresh your data."

// Broadcaster fans a message out to every live client.
type Broadcaster interface {
	Broadcast(msg string) int
}

// PublishService promotes due posts and notifies live clients.
type PublishService struct {
	posts       repository.PostRepository
	broadcaster Broadcaster
	logger      *zap.Logger
}

// NewPublishService constructs the service.
func NewPublishService(posts repository.PostRepository, broadcaster Broadcaster, logger *zap.Logger) *PublishService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublishService{posts: posts, broadcaster: broadcaster, logger: logger}
}

// PublishDue marks every post scheduled at or before now as published and
// broadcasts a single refresh notification when at least one post changed.
// A storage failure leaves every post untouched and is returned to the caller.
func (s *PublishService) PublishDue(ctx context.Context, now time.Time) (int, error) {
	published, err := s.posts.PublishDue(ctx, now)
	if err != nil {
		return 0, err
	}
	if len(published) == 0 {
		s.logger.Debug("no scheduled posts due", zap.Time("now", now))
		return 0, nil
	}

	for _, p := range published {
		s.logger.Info("post auto-published",
			zap.Int64("post_id", p.ID),
			zap.Int64("user_id", p.UserID),
			zap.Int64("account_id", p.AccountID),
		)
	}

	delivered := s.broadcaster.Broadcast(RefreshNotification)
	s.logger.Info("published scheduled posts",
		zap.Int("count", len(published)),
		zap.Int("notified_channels", delivered),
	)
	return len(published), nil
}
