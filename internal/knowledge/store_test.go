package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "company_info.md"))

	_, err := store.Content()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContentCachesUntilReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "company_info.md")
	require.NoError(t, os.WriteFile(path, []byte("# ACME\n"), 0o600))
	store := NewStore(path)

	content, err := store.Content()
	require.NoError(t, err)
	assert.Equal(t, "# ACME\n", content)

	require.NoError(t, os.WriteFile(path, []byte("# ACME v2\n"), 0o600))
	content, _ = store.Content()
	assert.Equal(t, "# ACME\n", content)

	content, err = store.Reload()
	require.NoError(t, err)
	assert.Equal(t, "# ACME v2\n", content)
}

func TestWatchPicksUpChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "company_info.md")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))
	store := NewStore(path)
	_, err := store.Content()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, store.Watch(ctx))

	require.NoError(t, os.WriteFile(path, []byte("new"), 0o600))

	assert.Eventually(t, func() bool {
		content, err := store.Content()
		return err == nil && content == "new"
	}, 2*time.Second, 20*time.Millisecond)
}
