package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/post-scheduler/internal/domain"
)

const scanStatusKey = "post_scheduler:last_scan"

// ScanStatusStore keeps the outcome of the latest publish sweep.
type ScanStatusStore interface {
	Record(ctx context.Context, status domain.ScanStatus) error
	Last(ctx context.Context) (*domain.ScanStatus, error)
}

type redisScanStatusStore struct {
	client redis.Cmdable
}

// NewScanStatusStore returns a Redis-backed store. A nil client yields a store that drops writes.
func NewScanStatusStore(client redis.Cmdable) ScanStatusStore {
	return &redisScanStatusStore{client: client}
}

func (s *redisScanStatusStore) Record(ctx context.Context, status domain.ScanStatus) error {
	if s.client == nil {
		return nil
	}
	err := s.client.HSet(ctx, scanStatusKey, map[string]interface{}{
		"tick_id":     status.TickID,
		"last_run_at": status.LastRunAt.UTC().Format(time.RFC3339Nano),
		"published":   status.Published,
		"error":       status.Error,
	}).Err()
	if err != nil {
		return fmt.Errorf("record scan status: %w", err)
	}
	return nil
}

func (s *redisScanStatusStore) Last(ctx context.Context) (*domain.ScanStatus, error) {
	if s.client == nil {
		return nil, nil
	}
	fields, err := s.client.HGetAll(ctx, scanStatusKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("read scan status: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	status := &domain.ScanStatus{TickID: fields["tick_id"], Error: fields["error"]}
	if raw := fields["last_run_at"]; raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("parse last_run_at: %w", err)
		}
		status.LastRunAt = ts
	}
	if raw := fields["published"]; raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("parse published: %w", err)
		}
		status.Published = n
	}
	return status, nil
}
