package realtime

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/post-scheduler/internal/auth"
	"github.com/spec-kit/post-scheduler/internal/domain"
	"github.com/spec-kit/post-scheduler/internal/observability"
)

// Close codes sent to clients.
const (
	CloseNormal       = 1000
	CloseInvalidToken = 4000
)

// InvalidTokenReason is the close reason for rejected credentials.
const InvalidTokenReason = "Invalid token"

// Channel is a live connection as seen by the registry.
type Channel interface {
	// Accept moves a pending channel to open. It is called only after authentication.
	Accept() error
	Send(msg string) error
	Close(code int, reason string) error
}

type member struct {
	id      uuid.UUID
	subject string
}

// Registry tracks authenticated live channels and fans messages out to them.
type Registry struct {
	verifier auth.Verifier
	logger   *zap.Logger
	metrics  *observability.Metrics

	mu       sync.Mutex
	channels map[Channel]member
}

// NewRegistry constructs an empty registry.
func NewRegistry(verifier auth.Verifier, logger *zap.Logger, metrics *observability.Metrics) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		verifier: verifier,
		logger:   logger,
		metrics:  metrics,
		channels: make(map[Channel]member),
	}
}

// Connect authenticates the channel and, on success, accepts and registers it.
// On failure the channel is closed with CloseInvalidToken and never registered.
func (r *Registry) Connect(ch Channel, token string) bool {
	cred, err := r.verifier.Verify(token)
	if err != nil {
		r.metrics.RecordAuthRejection()
		r.logger.Warn("live channel rejected", zap.Error(err), zap.Bool("missing_subject", errors.Is(err, domain.ErrMissingSubject)))
		if cerr := ch.Close(CloseInvalidToken, InvalidTokenReason); cerr != nil {
			r.logger.Debug("close rejected channel", zap.Error(cerr))
		}
		return false
	}

	if err := ch.Accept(); err != nil {
		r.logger.Warn("live channel accept failed", zap.String("subject", cred.Subject), zap.Error(err))
		_ = ch.Close(CloseNormal, "")
		return false
	}

	m := member{id: uuid.New(), subject: cred.Subject}
	r.mu.Lock()
	r.channels[ch] = m
	n := len(r.channels)
	r.mu.Unlock()

	r.metrics.SetActiveChannels(n)
	r.logger.Info("live channel connected", zap.String("channel_id", m.id.String()), zap.String("subject", m.subject), zap.Int("active", n))
	return true
}

// Disconnect removes the channel and closes it. Unknown channels are ignored.
func (r *Registry) Disconnect(ch Channel) {
	r.mu.Lock()
	m, ok := r.channels[ch]
	if ok {
		delete(r.channels, ch)
	}
	n := len(r.channels)
	r.mu.Unlock()

	if !ok {
		return
	}
	_ = ch.Close(CloseNormal, "")
	r.metrics.SetActiveChannels(n)
	r.logger.Info("live channel disconnected", zap.String("channel_id", m.id.String()), zap.String("subject", m.subject), zap.Int("active", n))
}

// Broadcast sends msg to every registered channel and returns the number of successful deliveries.
// Channels whose send fails are disconnected.
func (r *Registry) Broadcast(msg string) int {
	r.mu.Lock()
	targets := make([]Channel, 0, len(r.channels))
	for ch := range r.channels {
		targets = append(targets, ch)
	}
	r.mu.Unlock()

	delivered := 0
	for _, ch := range targets {
		if err := ch.Send(msg); err != nil {
			r.metrics.RecordDelivery(false)
			r.logger.Warn("dropping live channel", zap.Error(errors.Join(domain.ErrSendFailure, err)))
			r.Disconnect(ch)
			continue
		}
		r.metrics.RecordDelivery(true)
		delivered++
	}

	r.logger.Debug("broadcast complete", zap.Int("targets", len(targets)), zap.Int("delivered", delivered))
	return delivered
}

// Len reports the number of registered channels.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels)
}

// Contains reports whether ch is registered.
func (r *Registry) Contains(ch Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.channels[ch]
	return ok
}
