package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/closerlabs/salesbot/internal/metrics"
)

// entry is the live mutable state of one open session. All mutation happens
// under entry.mu; the finished flag closes the race between Append and a
// concurrent Finish that has already unlinked the entry from the map.
type entry struct {
	mu           sync.Mutex
	finished     bool
	userID       int64
	startedAt    time.Time
	lastActivity time.Time
	turns        []Turn
	profile      map[string]string
}

// Registry is the shared store of open sessions, at most one per user.
//
// The map mutex is held only for membership operations (lookup, insert,
// delete), never across a session mutation, so operations on different
// users do not contend. Finish is the sole remover: it deletes the entry
// under the map write lock, which guarantees exactly one of any number of
// concurrent finishers observes the session.
type Registry struct {
	mu      sync.RWMutex
	entries map[int64]*entry

	now func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	metrics.EnsureRegistered()

	return &Registry{
		entries: make(map[int64]*entry),
		now:     time.Now,
	}
}

// Create opens a new session for the user. Returns ErrAlreadyOpen if one
// exists.
func (r *Registry) Create(userID int64) (View, error) {
	now := r.now()

	r.mu.Lock()
	if _, exists := r.entries[userID]; exists {
		r.mu.Unlock()
		return View{}, ErrAlreadyOpen
	}
	e := &entry{
		userID:       userID,
		startedAt:    now,
		lastActivity: now,
		profile:      make(map[string]string),
	}
	r.entries[userID] = e
	size := len(r.entries)
	r.mu.Unlock()

	metrics.SetActiveSessions(size)
	log.Info().Int64("user_id", userID).Msg("Session created")

	return View{UserID: userID, StartedAt: now, LastActivityAt: now}, nil
}

// Append adds a turn to the user's open session and advances last activity.
// Returns ErrNoOpenSession if the session does not exist or was finished
// concurrently.
func (r *Registry) Append(userID int64, turn Turn) error {
	e := r.lookup(userID)
	if e == nil {
		return ErrNoOpenSession
	}

	if turn.Timestamp.IsZero() {
		turn.Timestamp = r.now()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.finished {
		return ErrNoOpenSession
	}

	e.turns = append(e.turns, turn)
	if turn.Timestamp.After(e.lastActivity) {
		e.lastActivity = turn.Timestamp
	}
	for k, v := range turn.Attrs {
		e.profile[k] = v
	}

	log.Debug().
		Int64("user_id", userID).
		Int("turns", len(e.turns)).
		Msg("Turn appended")

	return nil
}

// Finish atomically removes the user's session and returns its immutable
// snapshot carrying the given reason. Returns nil when no session is open;
// among concurrent finishers for the same user exactly one receives a
// non-nil snapshot.
func (r *Registry) Finish(userID int64, reason FinishReason) *Snapshot {
	r.mu.Lock()
	e, ok := r.entries[userID]
	if ok {
		delete(r.entries, userID)
	}
	size := len(r.entries)
	r.mu.Unlock()

	if !ok {
		return nil
	}

	now := r.now()

	e.mu.Lock()
	e.finished = true
	snap := &Snapshot{
		DialogID:  uuid.NewString(),
		UserID:    e.userID,
		StartedAt: e.startedAt,
		EndedAt:   now,
		Reason:    reason,
		Turns:     copyTurns(e.turns),
		Profile:   copyProfile(e.profile),
	}
	e.mu.Unlock()

	metrics.SetActiveSessions(size)
	metrics.SessionFinished(string(reason))
	log.Info().
		Int64("user_id", userID).
		Str("reason", string(reason)).
		Int("turns", len(snap.Turns)).
		Msg("Session finished")

	return snap
}

// View returns a read-only summary of the user's open session.
func (r *Registry) View(userID int64) (View, bool) {
	e := r.lookup(userID)
	if e == nil {
		return View{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.finished {
		return View{}, false
	}
	return View{
		UserID:         e.userID,
		StartedAt:      e.startedAt,
		LastActivityAt: e.lastActivity,
		TurnCount:      len(e.turns),
	}, true
}

// History returns a copy of the user's turn log. The copy lets callers feed
// the conversation to the generator without holding any registry lock.
func (r *Registry) History(userID int64) ([]Turn, bool) {
	e := r.lookup(userID)
	if e == nil {
		return nil, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.finished {
		return nil, false
	}
	return copyTurns(e.turns), true
}

// Profile returns a copy of the attributes accumulated for the user's open
// session.
func (r *Registry) Profile(userID int64) (map[string]string, bool) {
	e := r.lookup(userID)
	if e == nil {
		return nil, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.finished {
		return nil, false
	}
	return copyProfile(e.profile), true
}

// ScanStale returns the users whose sessions have been inactive strictly
// longer than timeout, measured against a single point-in-time read.
func (r *Registry) ScanStale(timeout time.Duration) []int64 {
	now := r.now()

	r.mu.RLock()
	candidates := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		candidates = append(candidates, e)
	}
	r.mu.RUnlock()

	var stale []int64
	for _, e := range candidates {
		e.mu.Lock()
		idle := now.Sub(e.lastActivity)
		finished := e.finished
		userID := e.userID
		e.mu.Unlock()

		if !finished && idle > timeout {
			stale = append(stale, userID)
		}
	}
	return stale
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) lookup(userID int64) *entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[userID]
}

func copyTurns(turns []Turn) []Turn {
	out := make([]Turn, len(turns))
	copy(out, turns)
	for i := range out {
		if out[i].ReplyMeta != nil {
			meta := make(map[string]interface{}, len(out[i].ReplyMeta))
			for k, v := range out[i].ReplyMeta {
				meta[k] = v
			}
			out[i].ReplyMeta = meta
		}
		if out[i].Attrs != nil {
			attrs := make(map[string]string, len(out[i].Attrs))
			for k, v := range out[i].Attrs {
				attrs[k] = v
			}
			out[i].Attrs = attrs
		}
	}
	return out
}

func copyProfile(profile map[string]string) map[string]string {
	if len(profile) == 0 {
		return nil
	}
	out := make(map[string]string, len(profile))
	for k, v := range profile {
		out[k] = v
	}
	return out
}
