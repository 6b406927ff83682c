package secrets

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "orbit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite_ReadEmpty(t *testing.T) {
	s := openTestSQLite(t)
	_, err := s.Read()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_WriteReadClear(t *testing.T) {
	s := openTestSQLite(t)

	require.NoError(t, s.Write("blob-1"))
	got, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, "blob-1", got)

	require.NoError(t, s.Write("blob-2"))
	got, err = s.Read()
	require.NoError(t, err)
	assert.Equal(t, "blob-2", got, "write should replace the single row")

	require.NoError(t, s.Clear())
	_, err = s.Read()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orbit.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Write("persisted"))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, "persisted", got)
}

func TestSQLite_ClearEmptyIsNotAnError(t *testing.T) {
	s := openTestSQLite(t)
	assert.NoError(t, s.Clear())
}
