package opstate

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "state.json"))
}

func TestLoadMissingFileReturnsZeroRecord(t *testing.T) {
	s := newTestStore(t)

	rec, err := s.Load()
	require.NoError(t, err)
	assert.False(t, rec.ResetStateOnUpdate)
	assert.Nil(t, rec.LastUpdate)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	in := Record{
		ResetStateOnUpdate: true,
		LastUpdate: &UpdateSummary{
			RunID:      "abc",
			Success:    true,
			StartedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			FinishedAt: time.Date(2024, 5, 1, 12, 1, 0, 0, time.UTC),
		},
	}
	require.NoError(t, s.Save(in))

	out, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestMutatePersistsChange(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Mutate(func(rec *Record) error {
		rec.ResetStateOnUpdate = true
		return nil
	}))

	rec, err := s.Load()
	require.NoError(t, err)
	assert.True(t, rec.ResetStateOnUpdate)

	require.NoError(t, s.Mutate(func(rec *Record) error {
		rec.ResetStateOnUpdate = false
		return nil
	}))

	rec, err = s.Load()
	require.NoError(t, err)
	assert.False(t, rec.ResetStateOnUpdate)
}
