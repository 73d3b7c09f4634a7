package dupetrie

import (
	"testing"
)

func TestSortDuplicateGroups(t *testing.T) {
	groups := []DuplicateGroup{
		{Files: []string{"/z", "/b"}, Count: 2, Size: 10},
		{Files: []string{"/c", "/a", "/y"}, Count: 3, Size: 5},
	}

	SortDuplicateGroups(groups)

	if groups[0].Files[0] != "/a" || groups[1].Files[0] != "/b" {
		t.Errorf("Expected groups ordered by first path, got %v", groups)
	}
	if groups[0].Files[1] != "/c" || groups[0].Files[2] != "/y" {
		t.Errorf("Expected paths sorted within a group, got %v", groups[0].Files)
	}
}

func TestWastedBytes(t *testing.T) {
	groups := []DuplicateGroup{
		{Files: []string{"/a", "/b"}, Count: 2, Size: 10},
		{Files: []string{"/c", "/d", "/e"}, Count: 3, Size: 5},
		{Files: []string{"/f"}, Count: 1, Size: 100},
	}

	expected := []int64{10, 10, 0}
	for i, group := range groups {
		if got := group.WastedBytes(); got != expected[i] {
			t.Errorf("Group %d: expected %d wasted bytes, got %d", i, expected[i], got)
		}
	}
	if total := TotalWastedBytes(groups); total != 20 {
		t.Errorf("Expected 20 wasted bytes in total, got %d", total)
	}
}
