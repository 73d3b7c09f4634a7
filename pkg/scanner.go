package dupetrie

import (
	"fmt"
)

// Scanner ties the directory filter, the hash registry and the content trie
// together. All configuration is validated when the Scanner is created, so a
// bad setting never costs a directory walk.
type Scanner struct {
	filter   *DirectoryFilter
	config   ScanConfig
	strategy HashStrategy
	stats    ScanStats
}

// NewScanner validates both configurations and prepares a scanner
func NewScanner(filterConfig FilterConfig, scanConfig ScanConfig) (*Scanner, error) {
	if err := ValidateScanConfig(&scanConfig); err != nil {
		return nil, err
	}
	strategy, err := GetHashStrategy(scanConfig.HashAlgorithm)
	if err != nil {
		return nil, err
	}

	filter, err := NewDirectoryFilter(filterConfig)
	if err != nil {
		return nil, err
	}

	VerboseLog(2, "scanner: block size %d, hash %s, length aware %t",
		scanConfig.BlockSize, scanConfig.HashAlgorithm, scanConfig.LengthAware)

	return &Scanner{
		filter:   filter,
		config:   scanConfig,
		strategy: strategy,
	}, nil
}

// Config returns the scan settings in use
func (s *Scanner) Config() ScanConfig {
	return s.config
}

// Filter returns the directory filter used to select candidates
func (s *Scanner) Filter() *DirectoryFilter {
	return s.filter
}

// Stats returns the work counters of the most recent run
func (s *Scanner) Stats() ScanStats {
	return s.stats.Snapshot()
}

// FindEqualFileGroups selects candidate files and returns every group of two
// or more files with identical content. Paths within a group and the groups
// themselves are sorted.
//
// Closing shutdownChan stops the scan between files with ErrScanInterrupted.
// Any I/O failure aborts the scan; no partial result is returned.
func (s *Scanner) FindEqualFileGroups(shutdownChan <-chan struct{}) ([]DuplicateGroup, error) {
	defer VerboseEnter()()
	s.stats.Reset()

	candidates, err := s.filter.FilterFiles(shutdownChan)
	if err != nil {
		return nil, err
	}

	return s.GroupCandidates(candidates, shutdownChan)
}

// GroupCandidates runs an already selected candidate set through a fresh
// content trie
func (s *Scanner) GroupCandidates(candidates *CandidateSet, shutdownChan <-chan struct{}) ([]DuplicateGroup, error) {
	trie, err := NewContentTrie(s.config.BlockSize, s.strategy,
		WithLengthAware(s.config.LengthAware),
		WithStats(&s.stats))
	if err != nil {
		return nil, err
	}
	defer trie.Close()

	var insertErr error
	inserted := 0
	candidates.ForEach(func(c *Candidate, _ string) bool {
		select {
		case <-shutdownChan:
			insertErr = ErrScanInterrupted
			return false
		default:
		}

		if err := trie.Insert(c.Path); err != nil {
			insertErr = err
			return false
		}
		inserted++
		if inserted%1000 == 0 {
			VerboseLog(2, "inserted %d of %d files", inserted, candidates.Len())
		}
		return true
	})
	if insertErr != nil {
		return nil, insertErr
	}

	groups, err := trie.EqualGroups()
	if err != nil {
		return nil, err
	}
	SortDuplicateGroups(groups)

	VerboseLog(1, "%d files in %d duplicate groups (%s)", inserted, len(groups), s.stats.Snapshot())
	return groups, nil
}

// FindEqualFiles groups an explicit list of paths without a directory walk
func FindEqualFiles(paths []string, scanConfig ScanConfig) ([]DuplicateGroup, error) {
	if err := ValidateScanConfig(&scanConfig); err != nil {
		return nil, err
	}
	strategy, err := GetHashStrategy(scanConfig.HashAlgorithm)
	if err != nil {
		return nil, err
	}

	trie, err := NewContentTrie(scanConfig.BlockSize, strategy, WithLengthAware(scanConfig.LengthAware))
	if err != nil {
		return nil, err
	}
	defer trie.Close()

	for _, path := range paths {
		if err := trie.Insert(path); err != nil {
			return nil, fmt.Errorf("failed to group files: %w", err)
		}
	}

	groups, err := trie.EqualGroups()
	if err != nil {
		return nil, err
	}
	SortDuplicateGroups(groups)
	return groups, nil
}
