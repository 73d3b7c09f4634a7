package dupetrie

import (
	"sort"
)

// DuplicateGroup represents a group of files with identical content
type DuplicateGroup struct {
	Files []string `json:"files" yaml:"files"`
	Count int      `json:"count" yaml:"count"`
	Size  int64    `json:"size" yaml:"size"` // size of each file in bytes
}

// WastedBytes returns the space that would be freed by keeping one copy
func (g DuplicateGroup) WastedBytes() int64 {
	if g.Count < 2 {
		return 0
	}
	return g.Size * int64(g.Count-1)
}

// SortDuplicateGroups puts paths within each group in lexical order and
// orders the groups by their first path
func SortDuplicateGroups(groups []DuplicateGroup) {
	for i := range groups {
		sort.Strings(groups[i].Files)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Files[0] < groups[j].Files[0]
	})
}

// TotalWastedBytes sums WastedBytes over groups
func TotalWastedBytes(groups []DuplicateGroup) int64 {
	var total int64
	for _, group := range groups {
		total += group.WastedBytes()
	}
	return total
}
