package catalog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	n, err := s.Count(Target)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWriteAndLookup(t *testing.T) {
	s := openInMemory(t)

	entries := []Entry{
		{Sequence: "PEPTIDEK", Kind: Target, Mass: 927.45, Paired: "EDITPEPK"},
		{Sequence: "EDITPEPK", Kind: Decoy, Mass: 927.45, Paired: "PEPTIDEK"},
		{Sequence: "PEPTIDEK", Kind: Target, Mass: 927.45, Paired: "EDITPEPK"}, // duplicate
		{Sequence: "GGGK", Kind: Target, Mass: 317.3},
	}
	require.NoError(t, s.WriteEntries(entries))

	got, err := s.Lookup("PEPTIDEK")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, Target, got[0].Kind)
	assert.Equal(t, "EDITPEPK", got[0].Paired)
	assert.InDelta(t, 927.45, got[0].Mass, 1e-9)

	got, err = s.Lookup("GGGK")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "", got[0].Paired)

	n, err := s.Count(Target)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = s.Count(Decoy)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLookupEmpty(t *testing.T) {
	s := openInMemory(t)
	got, err := s.Lookup("NOPE")
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, s.WriteEntries(nil))
}

func TestInMassRange(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteEntries([]Entry{
		{Sequence: "AAA", Kind: Target, Mass: 300},
		{Sequence: "CCC", Kind: Target, Mass: 500},
		{Sequence: "DDD", Kind: Target, Mass: 700},
		{Sequence: "EEE", Kind: Decoy, Mass: 500},
	}))

	got, err := s.InMassRange(Target, 300, 500)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "AAA", got[0].Sequence)
	assert.Equal(t, "CCC", got[1].Sequence)
}

func TestClear(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteEntries([]Entry{{Sequence: "AAA", Kind: Target, Mass: 300}}))
	require.NoError(t, s.Clear())
	n, err := s.Count(Target)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "catalog.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.WriteEntries([]Entry{{Sequence: "AAA", Kind: Target, Mass: 300}}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	n, err := s.Count(Target)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
