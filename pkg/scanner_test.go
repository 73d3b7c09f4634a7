package dupetrie

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func duplicateGroupPaths(groups []DuplicateGroup) [][]string {
	result := make([][]string, 0, len(groups))
	for _, group := range groups {
		result = append(result, group.Files)
	}
	return canonicalGroups(result)
}

func newTestScanner(t *testing.T, root string) *Scanner {
	t.Helper()
	scanner, err := NewScanner(
		FilterConfig{Include: []string{root}, FileMasks: []string{".*"}},
		ScanConfig{BlockSize: 1, HashAlgorithm: "sha1"},
	)
	require.NoError(t, err)
	return scanner
}

func TestScannerScenarios(t *testing.T) {
	for i, files := range trieScenarios {
		root := newFilterRoot(t, nil, nil)
		for name, content := range files {
			writeTestFile(t, root, name, content)
		}

		groups, err := newTestScanner(t, root).FindEqualFileGroups(nil)
		require.NoError(t, err, "scenario %d", i)
		assert.Equal(t, expectedGroups(root, files), duplicateGroupPaths(groups), "scenario %d", i)
	}
}

func TestScannerGroupsAreSorted(t *testing.T) {
	root := newFilterRoot(t, nil, nil)
	for name, content := range map[string]string{"z": "x", "b": "x", "y": "q", "a": "q", "m": "q"} {
		writeTestFile(t, root, name, content)
	}

	groups, err := newTestScanner(t, root).FindEqualFileGroups(nil)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, joinAll(root, []string{"a", "m", "y"}), groups[0].Files)
	assert.Equal(t, joinAll(root, []string{"b", "z"}), groups[1].Files)
	assert.Equal(t, 3, groups[0].Count)
	assert.Equal(t, int64(1), groups[0].Size)
}

func TestScannerMinFileSizeZeroGroupsEmptyFiles(t *testing.T) {
	root := newFilterRoot(t, nil, nil)
	writeTestFile(t, root, "empty1", "")
	writeTestFile(t, root, "empty2", "")
	writeTestFile(t, root, "full", "data")

	scanner, err := NewScanner(
		FilterConfig{Include: []string{root}},
		ScanConfig{BlockSize: 4, HashAlgorithm: "md5"},
	)
	require.NoError(t, err)

	groups, err := scanner.FindEqualFileGroups(nil)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, joinAll(root, []string{"empty1", "empty2"}), groups[0].Files)
	assert.Equal(t, int64(0), groups[0].Size)
}

func TestScannerStats(t *testing.T) {
	root := newFilterRoot(t, nil, nil)
	writeTestFile(t, root, "a", "1234567890")
	writeTestFile(t, root, "b", "1234567890")

	scanner, err := NewScanner(
		FilterConfig{Include: []string{root}},
		ScanConfig{BlockSize: 5, HashAlgorithm: "xxh3"},
	)
	require.NoError(t, err)

	_, err = scanner.FindEqualFileGroups(nil)
	require.NoError(t, err)

	stats := scanner.Stats()
	assert.Equal(t, int64(2), stats.FilesInserted)
	assert.Equal(t, int64(20), stats.BytesRead)
	assert.Equal(t, stats.BlocksRead, stats.HashCalls)

	// Counters are reset for each run
	_, err = scanner.FindEqualFileGroups(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), scanner.Stats().FilesInserted)
}

func TestScannerConfigErrorsBeforeWalk(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")

	tests := []struct {
		name   string
		filter FilterConfig
		scan   ScanConfig
		target error
	}{
		{"zero block size", FilterConfig{Include: []string{missing}}, ScanConfig{BlockSize: 0, HashAlgorithm: "md5"}, ErrInvalidBlockSize},
		{"unknown hash", FilterConfig{Include: []string{missing}}, ScanConfig{BlockSize: 1, HashAlgorithm: "rot13"}, ErrUnknownHashAlgorithm},
		{"missing include", FilterConfig{Include: []string{missing}}, ScanConfig{BlockSize: 1, HashAlgorithm: "md5"}, ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner, err := NewScanner(tt.filter, tt.scan)
			assert.Nil(t, scanner)
			assert.True(t, errors.Is(err, tt.target), "expected %v, got %v", tt.target, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "expected a config error, got %v", err)
		})
	}
}

func TestScannerShutdown(t *testing.T) {
	root := newFilterRoot(t, nil, []string{"a", "b"})
	scanner := newTestScanner(t, root)

	shutdown := make(chan struct{})
	close(shutdown)
	_, err := scanner.FindEqualFileGroups(shutdown)
	assert.ErrorIs(t, err, ErrScanInterrupted)

	candidates, err := scanner.Filter().FilterFiles(nil)
	require.NoError(t, err)
	_, err = scanner.GroupCandidates(candidates, shutdown)
	assert.ErrorIs(t, err, ErrScanInterrupted)
}

func TestScannerConfig(t *testing.T) {
	root := newFilterRoot(t, nil, nil)
	scanner := newTestScanner(t, root)
	assert.Equal(t, ScanConfig{BlockSize: 1, HashAlgorithm: "sha1"}, scanner.Config())
	assert.Equal(t, []string{root}, scanner.Filter().IncludeDirectories())
}

func TestFindEqualFiles(t *testing.T) {
	dir, paths := writeFiles(t, map[string]string{"a": "same", "b": "same", "c": "diff"})

	groups, err := FindEqualFiles(paths, ScanConfig{BlockSize: 2, HashAlgorithm: "blake3"})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{filepath.Join(dir, "a"), filepath.Join(dir, "b")}, groups[0].Files)

	_, err = FindEqualFiles(append(paths, filepath.Join(dir, "missing")), ScanConfig{BlockSize: 2, HashAlgorithm: "md5"})
	assert.Error(t, err)

	_, err = FindEqualFiles(paths, ScanConfig{BlockSize: 0, HashAlgorithm: "md5"})
	assert.ErrorIs(t, err, ErrInvalidBlockSize)
}
