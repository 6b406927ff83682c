package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_ReadEmpty(t *testing.T) {
	s := NewMemory()
	_, err := s.Read()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_WriteReadClear(t *testing.T) {
	s := NewMemory()

	require.NoError(t, s.Write("blob-1"))
	got, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, "blob-1", got)

	// Write replaces.
	require.NoError(t, s.Write("blob-2"))
	got, err = s.Read()
	require.NoError(t, err)
	assert.Equal(t, "blob-2", got)

	require.NoError(t, s.Clear())
	_, err = s.Read()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_WriteEmptyStringIsStored(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Write(""))

	got, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestMemory_ClearEmptyIsNotAnError(t *testing.T) {
	s := NewMemory()
	assert.NoError(t, s.Clear())
}
