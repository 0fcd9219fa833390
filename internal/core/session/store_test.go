package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTokenStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	store, err := NewFileTokenStore(path)
	require.NoError(t, err)

	creds, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, creds.Token, "missing file means signed out")

	require.NoError(t, store.Save(StoredCredentials{Token: "abc123", User: "kim@example.com"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	creds, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "abc123", creds.Token)
	assert.Equal(t, "kim@example.com", creds.User)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
	creds, err = store.Load()
	require.NoError(t, err)
	assert.Empty(t, creds.Token)
}

func TestFileTokenStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	store, err := NewFileTokenStore(path)
	require.NoError(t, err)
	_, err = store.Load()
	assert.Error(t, err)
}

func TestNewFileTokenStoreRequiresPath(t *testing.T) {
	_, err := NewFileTokenStore("")
	assert.Error(t, err)
}
