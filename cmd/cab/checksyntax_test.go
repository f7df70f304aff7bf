package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckFixtureOverwriteThenMatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "simple.cab")
	require.NoError(t, os.WriteFile(path, []byte("1 + 2 * 3"), 0o644))

	ok, err := checkFixture(path, true)
	require.NoError(t, err)
	require.True(t, ok)

	expectPath := filepath.Join(dir, "simple.expect")
	require.FileExists(t, expectPath)

	ok, err = checkFixture(path, false)
	require.NoError(t, err)
	require.True(t, ok, "a freshly overwritten fixture must compare equal to itself")
}

func TestCheckFixtureMissingExpectFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "simple.cab")
	require.NoError(t, os.WriteFile(path, []byte("1 + 2"), 0o644))

	ok, err := checkFixture(path, false)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCheckFixtureDetectsMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "simple.cab")
	require.NoError(t, os.WriteFile(path, []byte("1 + 2"), 0o644))
	expectPath := filepath.Join(dir, "simple.expect")
	require.NoError(t, os.WriteFile(expectPath, []byte("not the real dump"), 0o644))

	ok, err := checkFixture(path, false)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCommittedFixturesMatch(t *testing.T) {
	require.NoError(t, sweepFixtures(filepath.Join("..", "..", "testdata", "syntax"), false, false))
}

func TestSweepFixturesOverwriteThenCompare(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cab"), []byte("1 + 1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.cab"), []byte("2 + 2"), 0o644))

	require.NoError(t, sweepFixtures(dir, false, true))  // overwrite: create the.expect files
	require.NoError(t, sweepFixtures(dir, false, false)) // compare: they must now match
}
