package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/closerlabs/salesbot/internal/metrics"
	"github.com/closerlabs/salesbot/pkg/session"
)

// Paths identifies the durable artifacts of one archived dialog.
type Paths struct {
	Record     string
	Transcript string
}

// Store writes finished dialogs to disk: a JSON record for machines and a
// Markdown transcript for humans, both named by user id and finish time.
type Store struct {
	dir        string
	writeLocks map[string]*sync.Mutex
	locksMu    sync.Mutex
}

// NewStore creates the archive directory if needed and returns a store.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(homeDir, ".salesbot", "dialogs")
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	log.Info().Str("dir", dir).Msg("Archive store initialized")

	return &Store{
		dir:        dir,
		writeLocks: make(map[string]*sync.Mutex),
	}, nil
}

// Dir returns the archive directory.
func (s *Store) Dir() string {
	return s.dir
}

// Archive writes the snapshot's record and transcript. Called at most once
// per snapshot; a failure never resurrects the session.
func (s *Store) Archive(snap *session.Snapshot) (Paths, error) {
	base := fmt.Sprintf("%d_%s", snap.UserID, snap.EndedAt.Format("2006-01-02_15-04-05"))
	paths := Paths{
		Record:     filepath.Join(s.dir, base+".json"),
		Transcript: filepath.Join(s.dir, base+".md"),
	}

	lock := s.getWriteLock(base)
	lock.Lock()
	defer lock.Unlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		metrics.RecordArchive(false)
		return Paths{}, fmt.Errorf("failed to marshal dialog record: %w", err)
	}

	if err := writeFileSync(paths.Record, data); err != nil {
		metrics.RecordArchive(false)
		return Paths{}, err
	}

	if err := writeFileSync(paths.Transcript, renderTranscript(snap)); err != nil {
		metrics.RecordArchive(false)
		return Paths{}, err
	}

	metrics.RecordArchive(true)
	log.Info().
		Int64("user_id", snap.UserID).
		Str("dialog_id", snap.DialogID).
		Str("record", paths.Record).
		Msg("Dialog archived")

	return paths, nil
}

// AppendFeedback records the user's post-dialog survey answer into both
// archive artifacts.
func (s *Store) AppendFeedback(paths Paths, feedback string) error {
	base := filepath.Base(paths.Record)
	lock := s.getWriteLock(base)
	lock.Lock()
	defer lock.Unlock()

	if err := s.appendRecordFeedback(paths.Record, feedback); err != nil {
		return err
	}

	file, err := os.OpenFile(paths.Transcript, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open transcript: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(renderFeedback(feedback)); err != nil {
		return fmt.Errorf("failed to append feedback: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync transcript: %w", err)
	}

	log.Info().Str("record", paths.Record).Msg("Feedback recorded")

	return nil
}

// appendRecordFeedback rewrites the JSON record with the feedback field set,
// via a temp file so the record is never left half-written.
func (s *Store) appendRecordFeedback(recordPath, feedback string) error {
	data, err := os.ReadFile(recordPath)
	if err != nil {
		return fmt.Errorf("failed to read dialog record: %w", err)
	}

	var record map[string]interface{}
	if err := json.Unmarshal(data, &record); err != nil {
		return fmt.Errorf("failed to decode dialog record: %w", err)
	}
	record["feedback"] = feedback

	updated, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal dialog record: %w", err)
	}

	tempPath := recordPath + ".tmp"
	if err := writeFileSync(tempPath, updated); err != nil {
		os.Remove(tempPath)
		return err
	}
	if err := os.Rename(tempPath, recordPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace dialog record: %w", err)
	}

	return nil
}

func (s *Store) getWriteLock(key string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	if lock, exists := s.writeLocks[key]; exists {
		return lock
	}
	lock := &sync.Mutex{}
	s.writeLocks[key] = lock
	return lock
}

func writeFileSync(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	return nil
}
