package dupetrie

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// IgnoreManager holds gitignore-style patterns that exclude files and
// directories from a scan. Paths are matched relative to the include
// directory they were found under.
type IgnoreManager struct {
	ignorePath string
	patterns   []gitignore.Pattern
	matcher    gitignore.Matcher
	loaded     bool
}

// NewIgnoreManager creates an ignore manager reading patterns from ignorePath.
// An empty ignorePath means no file is read.
func NewIgnoreManager(ignorePath string) *IgnoreManager {
	return &IgnoreManager{
		ignorePath: ignorePath,
	}
}

// LoadIgnorePatterns loads patterns from the ignore file. A configured file
// that does not exist is an error.
func (im *IgnoreManager) LoadIgnorePatterns() error {
	if im.loaded {
		return nil // Already loaded
	}
	if im.ignorePath == "" {
		im.loaded = true
		return nil
	}

	file, err := os.Open(im.ignorePath)
	if err != nil {
		return fmt.Errorf("%w: failed to open ignore file: %w", ErrInvalidConfig, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		im.addLine(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading ignore file %s: %w", im.ignorePath, err)
	}

	im.loaded = true
	VerboseLog(2, "loaded %d ignore patterns from %s", len(im.patterns), im.ignorePath)
	return nil
}

func (im *IgnoreManager) addLine(line string) {
	line = strings.TrimRight(line, " \t\r")

	// Skip empty lines and comments
	if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
		return
	}

	if pattern := gitignore.ParsePattern(line, nil); pattern != nil {
		im.patterns = append(im.patterns, pattern)
		im.matcher = nil
	}
}

// AddPattern adds a single gitignore-style pattern
func (im *IgnoreManager) AddPattern(pattern string) {
	im.addLine(pattern)
}

// HasPatterns returns true if there are any ignore patterns loaded
func (im *IgnoreManager) HasPatterns() bool {
	return len(im.patterns) > 0
}

// ShouldIgnore checks if a path relative to its include directory is ignored
func (im *IgnoreManager) ShouldIgnore(relativePath string, isDir bool) bool {
	if len(im.patterns) == 0 {
		return false
	}
	if im.matcher == nil {
		im.matcher = gitignore.NewMatcher(im.patterns)
	}

	segments := splitPath(relativePath)
	if len(segments) == 0 {
		return false
	}
	return im.matcher.Match(segments, isDir)
}

// GetIgnoreFilePath returns the path to the ignore file
func (im *IgnoreManager) GetIgnoreFilePath() string {
	return im.ignorePath
}

// splitPath splits a relative path into the segments the matcher expects,
// dropping empty and "." segments
func splitPath(path string) []string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" && part != "." {
			segments = append(segments, part)
		}
	}
	return segments
}
