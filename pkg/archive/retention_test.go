package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetention_SweepNow(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	old := filepath.Join(dir, "100_2025-01-01_10-00-00.json")
	oldMd := filepath.Join(dir, "100_2025-01-01_10-00-00.md")
	fresh := filepath.Join(dir, "200_2025-06-01_10-00-00.json")
	other := filepath.Join(dir, "notes.txt")

	for _, path := range []string{old, oldMd, fresh, other} {
		require.NoError(t, os.WriteFile(path, []byte("x"), 0600))
	}

	expired := time.Now().Add(-91 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(old, expired, expired))
	require.NoError(t, os.Chtimes(oldMd, expired, expired))
	require.NoError(t, os.Chtimes(other, expired, expired))

	retention := NewRetention(store, 90*24*time.Hour)
	deleted, err := retention.SweepNow()
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	_, err = os.Stat(old)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(oldMd)
	assert.True(t, os.IsNotExist(err))

	// Fresh archives and unrelated files survive
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
	_, err = os.Stat(other)
	assert.NoError(t, err)
}

func TestRetention_StartStop(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	retention := NewRetention(store, time.Hour)
	require.NoError(t, retention.Start())
	assert.Error(t, retention.Start())
	require.NoError(t, retention.Stop())
	assert.Error(t, retention.Stop())
}

func TestNewRetention_DefaultAge(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	retention := NewRetention(store, 0)
	assert.Equal(t, DefaultRetentionAge, retention.maxAge)
}
