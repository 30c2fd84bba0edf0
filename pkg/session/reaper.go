package session

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultInactivityTimeout = 10 * time.Minute
	DefaultReapInterval      = 60 * time.Second
)

// Reaper force-finishes sessions that have been inactive beyond the
// configured timeout. It runs one fixed-period loop until Stop; a failed
// cycle is logged and the loop continues.
type Reaper struct {
	registry *Registry
	timeout  time.Duration
	interval time.Duration

	// archive receives the snapshot of every session the reaper wins.
	archive func(*Snapshot) error
	// notify tells the user their dialog timed out. Best effort.
	notify func(userID int64) error

	stopCh  chan struct{}
	running bool
}

// ReaperConfig configures a Reaper. Zero durations fall back to defaults;
// nil callbacks are skipped.
type ReaperConfig struct {
	Timeout  time.Duration
	Interval time.Duration
	Archive  func(*Snapshot) error
	Notify   func(userID int64) error
}

// NewReaper creates a reaper over the given registry.
func NewReaper(registry *Registry, cfg ReaperConfig) *Reaper {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultInactivityTimeout
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultReapInterval
	}

	return &Reaper{
		registry: registry,
		timeout:  cfg.Timeout,
		interval: cfg.Interval,
		archive:  cfg.Archive,
		notify:   cfg.Notify,
		stopCh:   make(chan struct{}),
	}
}

// Start starts the reaper loop.
func (r *Reaper) Start() error {
	if r.running {
		return fmt.Errorf("reaper is already running")
	}

	r.running = true
	go r.run()

	log.Info().
		Dur("timeout", r.timeout).
		Dur("interval", r.interval).
		Msg("Inactivity reaper started")

	return nil
}

// Stop stops the reaper loop.
func (r *Reaper) Stop() error {
	if !r.running {
		return fmt.Errorf("reaper is not running")
	}

	close(r.stopCh)
	r.running = false

	log.Info().Msg("Inactivity reaper stopped")

	return nil
}

// IsRunning returns whether the reaper loop is active.
func (r *Reaper) IsRunning() bool {
	return r.running
}

// Timeout returns the configured inactivity timeout.
func (r *Reaper) Timeout() time.Duration {
	return r.timeout
}

func (r *Reaper) run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := r.ReapNow(); n > 0 {
				log.Info().Int("reaped", n).Msg("Inactive sessions finished")
			}
		case <-r.stopCh:
			return
		}
	}
}

// ReapNow runs a single reap cycle and returns how many sessions this call
// actually finished. Candidates that a concurrent finisher wins first are
// skipped silently.
func (r *Reaper) ReapNow() int {
	reaped := 0

	for _, userID := range r.registry.ScanStale(r.timeout) {
		snap := r.registry.Finish(userID, ReasonTimeout)
		if snap == nil {
			continue
		}
		reaped++

		if r.archive != nil {
			if err := r.archive(snap); err != nil {
				log.Error().
					Int64("user_id", userID).
					Err(err).
					Msg("Failed to archive timed-out session")
			}
		}

		if r.notify != nil {
			if err := r.notify(userID); err != nil {
				log.Warn().
					Int64("user_id", userID).
					Err(err).
					Msg("Failed to notify user about timeout")
			}
		}
	}

	return reaped
}
