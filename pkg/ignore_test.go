package dupetrie

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestIgnoreManagerPatterns(t *testing.T) {
	im := NewIgnoreManager("")
	if err := im.LoadIgnorePatterns(); err != nil {
		t.Fatalf("Expected empty path to load nothing, got %v", err)
	}
	if im.HasPatterns() {
		t.Fatal("Expected no patterns")
	}

	im.AddPattern("*.tmp")
	im.AddPattern("# comment")
	im.AddPattern("   ")
	im.AddPattern("cache/")
	im.AddPattern("/top.txt")

	tests := []struct {
		path   string
		isDir  bool
		ignore bool
	}{
		{"a.tmp", false, true},
		{"sub/b.tmp", false, true},
		{"a.txt", false, false},
		{"cache", true, true},
		{"sub/cache", true, true},
		{"cache", false, false},
		{"top.txt", false, true},
		{"sub/top.txt", false, false},
		{".", true, false},
		{"", true, false},
	}

	for _, tt := range tests {
		if got := im.ShouldIgnore(tt.path, tt.isDir); got != tt.ignore {
			t.Errorf("ShouldIgnore(%q, %t): expected %t, got %t", tt.path, tt.isDir, tt.ignore, got)
		}
	}
}

func TestIgnoreManagerLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".dupetrieignore")
	if err := os.WriteFile(path, []byte("# scratch\n*.bak\r\n\nnode_modules/\n"), 0644); err != nil {
		t.Fatalf("Failed to write ignore file: %v", err)
	}

	im := NewIgnoreManager(path)
	if err := im.LoadIgnorePatterns(); err != nil {
		t.Fatalf("LoadIgnorePatterns failed: %v", err)
	}
	if im.GetIgnoreFilePath() != path {
		t.Errorf("Expected path %s, got %s", path, im.GetIgnoreFilePath())
	}
	if !im.ShouldIgnore("x.bak", false) {
		t.Error("Expected CRLF-terminated pattern to match")
	}
	if !im.ShouldIgnore("a/node_modules", true) {
		t.Error("Expected directory pattern to match at any depth")
	}
	if im.ShouldIgnore("x.go", false) {
		t.Error("Expected x.go to be kept")
	}

	// Loading again is a no-op
	if err := im.LoadIgnorePatterns(); err != nil {
		t.Errorf("Second load failed: %v", err)
	}
}

func TestIgnoreManagerMissingFile(t *testing.T) {
	im := NewIgnoreManager(filepath.Join(t.TempDir(), "missing"))
	if err := im.LoadIgnorePatterns(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for a missing ignore file, got %v", err)
	}
}
