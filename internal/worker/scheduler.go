package worker

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Job is one unit of recurring work. ctx carries the per-run timeout.
type Job func(ctx context.Context)

// Scheduler runs a single registered job on a fixed interval.
// The interval is measured from the end of the previous run, so runs never overlap.
type Scheduler struct {
	clock    clockwork.Clock
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	// lifecycle serialises Start and Stop; Stop holds it until the loop has exited.
	lifecycle sync.Mutex

	mu      sync.Mutex
	name    string
	job     Job
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewScheduler builds a stopped scheduler. timeout bounds each run; zero disables it.
func NewScheduler(clock clockwork.Clock, interval, timeout time.Duration, logger *zap.Logger) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{clock: clock, interval: interval, timeout: timeout, logger: logger}
}

// Register installs the job. Only the first registration wins; later calls return false.
func (s *Scheduler) Register(name string, job Job) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job != nil {
		s.logger.Debug("job already registered", zap.String("job", s.name), zap.String("ignored", name))
		return false
	}
	s.name = name
	s.job = job
	s.logger.Info("job registered", zap.String("job", name), zap.Duration("interval", s.interval))
	return true
}

// Start begins ticking. Starting a running scheduler is a no-op.
// A Start racing with Stop waits until the previous loop has exited.
func (s *Scheduler) Start() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(s.stop, s.done)
	s.logger.Info("scheduler started", zap.String("job", s.name), zap.Duration("interval", s.interval))
}

// Stop prevents further runs and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done
	s.logger.Info("scheduler stopped", zap.String("job", s.name))
}

// Running reports whether the scheduler is ticking.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		timer := s.clock.NewTimer(s.interval)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.Chan():
		}

		// A stop that raced with the timer wins; no new run starts.
		select {
		case <-stop:
			return
		default:
		}
		s.runOnce()
	}
}

func (s *Scheduler) runOnce() {
	s.mu.Lock()
	job, name := s.job, s.name
	s.mu.Unlock()
	if job == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked", zap.String("job", name), zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
		}
	}()

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	job(ctx)
}
