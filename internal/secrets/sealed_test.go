package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealed_ReadMissingFile(t *testing.T) {
	s, err := NewSealed(filepath.Join(t.TempDir(), "state.sealed"), []byte("master"))
	require.NoError(t, err)

	_, err = s.Read()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSealed_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.sealed")
	s, err := NewSealed(path, []byte("master"))
	require.NoError(t, err)

	require.NoError(t, s.Write(`{"authenticated":true}`))

	got, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, `{"authenticated":true}`, got)

	// The blob is not stored in the clear.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "authenticated")
}

func TestSealed_WrongKeyFailsToDecrypt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.sealed")

	s, err := NewSealed(path, []byte("master"))
	require.NoError(t, err)
	require.NoError(t, s.Write("secret blob"))

	other, err := NewSealed(path, []byte("different master"))
	require.NoError(t, err)
	_, err = other.Read()
	assert.Error(t, err)
}

func TestSealed_WriteReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.sealed")
	s, err := NewSealed(path, []byte("master"))
	require.NoError(t, err)

	require.NoError(t, s.Write("first"))
	require.NoError(t, s.Write("second"))

	got, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, "second", got)
}

func TestSealed_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.sealed")
	s, err := NewSealed(path, []byte("master"))
	require.NoError(t, err)

	require.NoError(t, s.Write("blob"))
	require.NoError(t, s.Clear())
	_, err = s.Read()
	assert.ErrorIs(t, err, ErrNotFound)

	// Clearing again is fine.
	assert.NoError(t, s.Clear())
}

func TestSealed_EmptyMasterKeyRejected(t *testing.T) {
	_, err := NewSealed(filepath.Join(t.TempDir(), "state.sealed"), nil)
	assert.Error(t, err)
}
