package booking

import (
	"context"
	"log"
	"time"
)

// Completer is the sweep operation the background job drives.
type Completer interface {
	CompleteElapsed(ctx context.Context) (int64, error)
}

// Sweeper periodically completes bookings whose date has passed, so the
// status does not depend on an admin opening the dashboard.
type Sweeper struct {
	completer Completer
	interval  time.Duration
	timeout   time.Duration
}

func NewSweeper(completer Completer, interval time.Duration) *Sweeper {
	return &Sweeper{completer: completer, interval: interval, timeout: 30 * time.Second}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		log.Printf("booking_sweeper disabled")
		return
	}
	log.Printf("booking_sweeper started interval=%s", s.interval)

	s.tick(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("booking_sweeper stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		log.Printf("booking_sweeper error=%v", err)
	}
}

// RunOnce performs a single sweep bounded by the sweeper timeout.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	n, err := s.completer.CompleteElapsed(runCtx)
	if err != nil {
		return 0, err
	}
	log.Printf("booking_sweeper tick completed=%d took=%s", n, time.Since(start))
	return n, nil
}
