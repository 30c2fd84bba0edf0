package dialog

import (
	"sync"

	"github.com/closerlabs/salesbot/pkg/archive"
)

// feedbackTracker remembers which users were just asked for a post-dialog
// review and which archive the answer belongs to. Finished sessions leave
// the registry immediately, so this awaiting-feedback phase lives here, not
// in session state.
type feedbackTracker struct {
	mu      sync.Mutex
	pending map[int64]archive.Paths
}

func newFeedbackTracker() *feedbackTracker {
	return &feedbackTracker{
		pending: make(map[int64]archive.Paths),
	}
}

// arm marks the user as awaiting feedback for the given archive, replacing
// any earlier pending entry.
func (t *feedbackTracker) arm(userID int64, paths archive.Paths) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[userID] = paths
}

// take removes and returns the user's pending archive, if any.
func (t *feedbackTracker) take(userID int64) (archive.Paths, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	paths, ok := t.pending[userID]
	if ok {
		delete(t.pending, userID)
	}
	return paths, ok
}

// drop discards a pending entry without returning it.
func (t *feedbackTracker) drop(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, userID)
}
