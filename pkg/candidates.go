package dupetrie

import (
	"strings"

	zcsl "github.com/mattkeenan/zerocopyskiplist"
)

// Merge strategies for CandidateSet.Merge
const (
	MergeTheirs = zcsl.MergeTheirs
	MergeOurs   = zcsl.MergeOurs
	MergeError  = zcsl.MergeError
)

// candidateSkiplistLevels sizes the skiplist for sets of up to a few million paths
const candidateSkiplistLevels = 24

// Candidate is a regular file selected for comparison
type Candidate struct {
	Path string // canonical absolute path
	Size int64
	Dev  uint64
	Ino  uint64
}

// CandidateSet is an ordered set of candidate files keyed by canonical path.
// Each entry carries the include directory it was found under as its context.
type CandidateSet struct {
	skiplist *zcsl.ZeroCopySkiplist[Candidate, string, string]
}

// NewCandidateSet creates an empty candidate set
func NewCandidateSet() *CandidateSet {
	getKey := func(c *Candidate) string {
		return c.Path
	}
	getSize := func(c *Candidate) int {
		return len(c.Path)
	}

	return &CandidateSet{
		skiplist: zcsl.MakeZeroCopySkiplist[Candidate, string, string](
			candidateSkiplistLevels,
			getKey,
			getSize,
			strings.Compare,
		),
	}
}

// Add inserts a candidate found under root. It returns false if the path is
// already present, in which case the set is unchanged.
func (cs *CandidateSet) Add(c Candidate, root string) bool {
	if cs.Contains(c.Path) {
		return false
	}
	return cs.skiplist.Insert(&c, root)
}

// Contains reports whether path is in the set
func (cs *CandidateSet) Contains(path string) bool {
	itemPtr, _ := cs.skiplist.Find(path)
	return itemPtr != nil
}

// Get returns the candidate stored for path and the root it was found under
func (cs *CandidateSet) Get(path string) (*Candidate, string) {
	itemPtr, root := cs.skiplist.Find(path)
	if itemPtr == nil {
		return nil, ""
	}
	return itemPtr.Item(), root
}

// Remove deletes path from the set
func (cs *CandidateSet) Remove(path string) bool {
	return cs.skiplist.Delete(path)
}

// Len returns the number of candidates
func (cs *CandidateSet) Len() int {
	return cs.skiplist.Length()
}

// IsEmpty returns true if the set has no candidates
func (cs *CandidateSet) IsEmpty() bool {
	return cs.skiplist.IsEmpty()
}

// ForEach visits candidates in path order until callback returns false
func (cs *CandidateSet) ForEach(callback func(c *Candidate, root string) bool) {
	for current := cs.skiplist.First(); current != nil; current = current.Next() {
		if !callback(current.Item(), current.Context()) {
			return
		}
	}
}

// Paths returns every candidate path in sorted order
func (cs *CandidateSet) Paths() []string {
	paths := make([]string, 0, cs.Len())
	cs.ForEach(func(c *Candidate, _ string) bool {
		paths = append(paths, c.Path)
		return true
	})
	return paths
}

// TotalSize returns the sum of all candidate sizes
func (cs *CandidateSet) TotalSize() int64 {
	var total int64
	cs.ForEach(func(c *Candidate, _ string) bool {
		total += c.Size
		return true
	})
	return total
}

// Merge adds other's candidates to this set. With MergeOurs a path already
// present keeps its existing root.
func (cs *CandidateSet) Merge(other *CandidateSet, strategy zcsl.MergeStrategy) error {
	if other == nil {
		return nil
	}
	return cs.skiplist.Merge(other.skiplist, strategy)
}
