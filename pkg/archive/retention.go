package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const DefaultRetentionAge = 90 * 24 * time.Hour

// Retention deletes archived dialogs older than the configured age. The
// sweep runs once a day.
type Retention struct {
	store  *Store
	maxAge time.Duration
	cron   *cron.Cron
}

// NewRetention creates a retention sweeper for the store. A zero age falls
// back to the default.
func NewRetention(store *Store, maxAge time.Duration) *Retention {
	if maxAge == 0 {
		maxAge = DefaultRetentionAge
	}

	return &Retention{
		store:  store,
		maxAge: maxAge,
	}
}

// Start schedules the daily sweep.
func (r *Retention) Start() error {
	if r.cron != nil {
		return fmt.Errorf("retention sweep is already running")
	}

	c := cron.New()
	if _, err := c.AddFunc("@daily", func() {
		if _, err := r.SweepNow(); err != nil {
			log.Error().Err(err).Msg("Archive retention sweep failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule retention sweep: %w", err)
	}

	c.Start()
	r.cron = c

	log.Info().Dur("max_age", r.maxAge).Msg("Archive retention sweep scheduled")

	return nil
}

// Stop cancels the scheduled sweep.
func (r *Retention) Stop() error {
	if r.cron == nil {
		return fmt.Errorf("retention sweep is not running")
	}

	r.cron.Stop()
	r.cron = nil

	log.Info().Msg("Archive retention sweep stopped")

	return nil
}

// SweepNow deletes expired archive files and returns how many were removed.
func (r *Retention) SweepNow() (int, error) {
	entries, err := os.ReadDir(r.store.Dir())
	if err != nil {
		return 0, fmt.Errorf("failed to read archive directory: %w", err)
	}

	now := time.Now()
	deleted := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") && !strings.HasSuffix(name, ".md") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		age := now.Sub(info.ModTime())
		if age < r.maxAge {
			continue
		}

		path := filepath.Join(r.store.Dir(), name)
		if err := os.Remove(path); err != nil {
			log.Warn().Str("path", path).Err(err).Msg("Failed to delete expired archive")
			continue
		}
		deleted++
	}

	if deleted > 0 {
		log.Info().Int("deleted", deleted).Msg("Expired archives removed")
	}

	return deleted, nil
}
