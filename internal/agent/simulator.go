package agent

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrClosed is returned by Trigger after Close.
var ErrClosed = errors.New("agent simulator closed")

type job struct {
	id        string
	userID    int64
	startedAt time.Time
	timer     *time.Timer
}

type result struct {
	record  Record
	readyAt time.Time
}

// Simulator runs one deferred job per user and keeps the produced records in
// memory. Jobs for different users are independent.
type Simulator struct {
	mu      sync.Mutex
	delay   time.Duration
	onReady func(userID int64, jobID string)
	logger  *slog.Logger
	pending map[int64]*job
	results map[int64]result
	ready   map[int64]chan struct{}
	closed  bool
}

// NewSimulator creates a simulator. A nil logger uses slog.Default.
func NewSimulator(cfg Config, logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	return &Simulator{
		delay:   cfg.Delay,
		onReady: cfg.OnReady,
		logger:  logger,
		pending: make(map[int64]*job),
		results: make(map[int64]result),
		ready:   make(map[int64]chan struct{}),
	}
}

// Trigger schedules a job for userID. A second trigger while the first job is
// pending does not schedule anything and reports Started=false.
func (s *Simulator) Trigger(userID int64) (TriggerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return TriggerResult{}, ErrClosed
	}

	if existing, ok := s.pending[userID]; ok {
		return TriggerResult{
			Started: false,
			JobID:   existing.id,
			Message: "Task is already running.",
		}, nil
	}

	j := &job{
		id:        uuid.NewString(),
		userID:    userID,
		startedAt: time.Now(),
	}
	j.timer = time.AfterFunc(s.delay, func() { s.complete(j) })
	s.pending[userID] = j

	s.logger.Info("Agent job started", "user_id", userID, "job_id", j.id, "delay", s.delay)

	return TriggerResult{
		Started: true,
		JobID:   j.id,
		Message: fmt.Sprintf("AI agent started. Data will be ready in %s.", describeDelay(s.delay)),
	}, nil
}

// Peek returns the latest result for userID. Results stay readable until swept.
func (s *Simulator) Peek(userID int64) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.results[userID]
	if !ok {
		return Status{}
	}
	record := res.record
	return Status{Ready: true, Data: &record}
}

// Pending reports whether a job for userID is still running.
func (s *Simulator) Pending(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[userID]
	return ok
}

// Done returns a channel closed once a result for userID exists. It returns
// nil when there is neither a result nor a pending job to wait for.
func (s *Simulator) Done(userID int64) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.results[userID]; ok {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	if _, ok := s.pending[userID]; !ok {
		return nil
	}
	ch, ok := s.ready[userID]
	if !ok {
		ch = make(chan struct{})
		s.ready[userID] = ch
	}
	return ch
}

func (s *Simulator) complete(j *job) {
	record := MockRecord()

	s.mu.Lock()
	if s.pending[j.userID] != j {
		// Stopped by Close.
		s.mu.Unlock()
		return
	}
	s.results[j.userID] = result{record: record, readyAt: time.Now()}
	delete(s.pending, j.userID)
	if ch, ok := s.ready[j.userID]; ok {
		close(ch)
		delete(s.ready, j.userID)
	}
	s.mu.Unlock()

	s.logger.Info("Generated data for user", "user_id", j.userID, "job_id", j.id, "elapsed", time.Since(j.startedAt))

	if s.onReady != nil {
		s.onReady(j.userID, j.id)
	}
}

// Sweep drops results that have been ready for longer than ttl and returns
// how many were removed. Pending jobs are never swept.
func (s *Simulator) Sweep(ttl time.Duration) int {
	threshold := time.Now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for userID, res := range s.results {
		if res.readyAt.Before(threshold) {
			delete(s.results, userID)
			removed++
		}
	}
	return removed
}

// Close stops all pending jobs. Waiters on Done are left blocked; callers are
// expected to select on their own context as well.
func (s *Simulator) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for userID, j := range s.pending {
		j.timer.Stop()
		delete(s.pending, userID)
	}
	clear(s.ready)
	s.logger.Info("Agent simulator stopped")
}

func describeDelay(d time.Duration) string {
	if d >= time.Second && d%time.Second == 0 {
		secs := int(d / time.Second)
		if secs == 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", secs)
	}
	return d.String()
}
