package agent

import (
	"context"
	"time"
)

const defaultSweepInterval = 5 * time.Minute

// RunSweeper periodically expires ready results older than ttl. It blocks
// until ctx is done and always returns nil so it can run inside an errgroup.
func (s *Simulator) RunSweeper(ctx context.Context, interval, ttl time.Duration) error {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Agent result sweeper started", "interval", interval, "ttl", ttl)

	for {
		select {
		case <-ticker.C:
			if removed := s.Sweep(ttl); removed > 0 {
				s.logger.Info("Agent result sweeper expired results", "count", removed)
			}
		case <-ctx.Done():
			s.logger.Info("Agent result sweeper shutting down", "reason", ctx.Err())
			return nil
		}
	}
}
