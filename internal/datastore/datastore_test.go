package datastore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesDirectories(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	db, err := Open(path, false)
	require.NoError(t, err)
	require.NotNil(t, db)
}

func TestSettingRoundTrip(t *testing.T) {
	t.Parallel()

	db, err := Open(filepath.Join(t.TempDir(), "cache.db"), false)
	require.NoError(t, err)

	// Unwritten keys read as empty
	value, err := GetSetting(db, "missing")
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, SetSetting(db, "forced_offline", "true"))
	value, err = GetSetting(db, "forced_offline")
	require.NoError(t, err)
	assert.Equal(t, "true", value)

	// Last write wins
	require.NoError(t, SetSetting(db, "forced_offline", "false"))
	value, err = GetSetting(db, "forced_offline")
	require.NoError(t, err)
	assert.Equal(t, "false", value)
}
