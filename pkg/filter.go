package dupetrie

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sys/unix"
)

// DirectoryFilter selects candidate files from a set of include directories.
// Every path it reports is absolute and canonical.
type DirectoryFilter struct {
	include     []string            // canonical, sorted, unique
	exclude     map[string]struct{} // canonical
	masks       []*regexp.Regexp
	scanLevel   int
	minFileSize int64
	symlinkMode string
	ignore      *IgnoreManager
}

// NewDirectoryFilter validates cfg and resolves its directories. Include
// directories must exist and be directories; exclude directories must exist.
func NewDirectoryFilter(cfg FilterConfig) (*DirectoryFilter, error) {
	if len(cfg.Include) == 0 {
		return nil, fmt.Errorf("%w: no include directories given", ErrInvalidConfig)
	}
	if err := ValidateScanLevel(cfg.ScanLevel); err != nil {
		return nil, err
	}
	if cfg.MinFileSize < 0 {
		return nil, fmt.Errorf("%w: minimum file size must not be negative, got: %d", ErrInvalidConfig, cfg.MinFileSize)
	}

	symlinkMode := strings.ToLower(cfg.SymlinkMode)
	if symlinkMode == "" {
		symlinkMode = DefaultSymlinkMode
	}
	if err := ValidateSymlinkMode(symlinkMode); err != nil {
		return nil, err
	}

	df := &DirectoryFilter{
		exclude:     make(map[string]struct{}),
		scanLevel:   cfg.ScanLevel,
		minFileSize: cfg.MinFileSize,
		symlinkMode: symlinkMode,
		ignore:      NewIgnoreManager(cfg.IgnoreFile),
	}

	seen := make(map[string]struct{})
	for _, dir := range cfg.Include {
		canonical, err := resolveDirectory(dir, "include", true)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		df.include = append(df.include, canonical)
	}
	sort.Strings(df.include)

	for _, dir := range cfg.Exclude {
		canonical, err := resolveDirectory(dir, "exclude", false)
		if err != nil {
			return nil, err
		}
		df.exclude[canonical] = struct{}{}
	}

	masks := cfg.FileMasks
	if len(masks) == 0 {
		masks = []string{DefaultFileMask}
	}
	for _, mask := range masks {
		re, err := regexp.Compile(`^(?:` + mask + `)$`)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid file mask %q: %w", ErrInvalidConfig, mask, err)
		}
		df.masks = append(df.masks, re)
	}

	if err := df.ignore.LoadIgnorePatterns(); err != nil {
		return nil, err
	}

	debugLog(DebugFilter, "include=%v exclude=%d masks=%d level=%d min=%d symlinks=%s",
		df.include, len(df.exclude), len(df.masks), df.scanLevel, df.minFileSize, df.symlinkMode)
	return df, nil
}

// resolveDirectory canonicalises dir and checks that it exists. When mustBeDir
// is set it must also be a directory.
func resolveDirectory(dir, kind string, mustBeDir bool) (string, error) {
	canonical, err := canonicalPath(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %s directory %s: %w", ErrInvalidConfig, kind, dir, err)
	}
	if !mustBeDir {
		return canonical, nil
	}

	info, err := os.Stat(canonical)
	if err != nil {
		return "", fmt.Errorf("%w: %s directory %s: %w", ErrInvalidConfig, kind, dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %w: %s directory %s", ErrInvalidConfig, ErrNotDirectory, kind, dir)
	}
	return canonical, nil
}

// IncludeDirectories returns the canonical include directories in scan order
func (df *DirectoryFilter) IncludeDirectories() []string {
	return append([]string(nil), df.include...)
}

// FilterFiles walks every include directory and returns the matching files.
// Closing shutdownChan stops the walk between directories with
// ErrScanInterrupted. A nil shutdownChan never fires.
func (df *DirectoryFilter) FilterFiles(shutdownChan <-chan struct{}) (*CandidateSet, error) {
	defer VerboseEnter()()

	result := NewCandidateSet()
	for _, root := range df.include {
		rootSet := NewCandidateSet()
		if err := df.walkDirectory(root, root, df.scanLevel, rootSet, shutdownChan); err != nil {
			return nil, err
		}
		if err := result.Merge(rootSet, MergeOurs); err != nil {
			return nil, fmt.Errorf("failed to merge candidates from %s: %w", root, err)
		}
		VerboseLog(2, "%s: %d candidates", root, rootSet.Len())
	}

	VerboseLog(1, "found %d candidate files", result.Len())
	return result, nil
}

// walkDirectory adds the candidates in dir to set and descends into its
// subdirectories while level allows
func (df *DirectoryFilter) walkDirectory(root, dir string, level int, set *CandidateSet, shutdownChan <-chan struct{}) error {
	if level < 0 {
		return nil
	}

	select {
	case <-shutdownChan:
		return ErrScanInterrupted
	default:
	}

	// os.ReadDir returns entries sorted by name
	entries, err := os.ReadDir(dir)
	if err != nil {
		Warnf("skipping unreadable directory %s: %v", dir, err)
		return nil
	}

	for _, entry := range entries {
		entryPath := filepath.Join(dir, entry.Name())

		target := entryPath
		if entry.Type()&os.ModeSymlink != 0 {
			resolved, ok := df.followSymlink(entryPath)
			if !ok {
				continue
			}
			target = resolved
		}

		var st unix.Stat_t
		if err := unix.Stat(target, &st); err != nil {
			debugLog(DebugFilter, "skipping %s: %v", entryPath, err)
			continue
		}

		switch st.Mode & unix.S_IFMT {
		case unix.S_IFDIR:
			if _, excluded := df.exclude[target]; excluded {
				debugLog(DebugFilter, "excluded directory %s", target)
				continue
			}
			if df.ignored(root, entryPath, true) {
				continue
			}
			if err := df.walkDirectory(root, target, level-1, set, shutdownChan); err != nil {
				return err
			}

		case unix.S_IFREG:
			if df.ignored(root, entryPath, false) {
				continue
			}
			if !df.checkFile(target, st.Size) {
				continue
			}
			candidate := Candidate{
				Path: target,
				Size: st.Size,
				Dev:  uint64(st.Dev),
				Ino:  st.Ino,
			}
			if set.Add(candidate, root) {
				debugLog(DebugFilter, "candidate %s (%d bytes)", target, st.Size)
			}
		}
	}

	return nil
}

// followSymlink resolves a symlink according to the symlink mode. It reports
// false when the link must not be followed.
func (df *DirectoryFilter) followSymlink(linkPath string) (string, bool) {
	if df.symlinkMode == SymlinkModeNone {
		debugLog(DebugFilter, "not following symlink %s", linkPath)
		return "", false
	}

	target, err := canonicalPath(linkPath)
	if err != nil {
		debugLog(DebugFilter, "skipping broken symlink %s: %v", linkPath, err)
		return "", false
	}

	if df.symlinkMode == SymlinkModeContained && !df.containedInInclude(target) {
		debugLog(DebugFilter, "symlink %s points outside the include directories", linkPath)
		return "", false
	}
	return target, true
}

func (df *DirectoryFilter) containedInInclude(path string) bool {
	for _, root := range df.include {
		if isPathContained(path, root) {
			return true
		}
	}
	return false
}

func (df *DirectoryFilter) ignored(root, path string, isDir bool) bool {
	if !df.ignore.HasPatterns() {
		return false
	}
	relPath, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if df.ignore.ShouldIgnore(relPath, isDir) {
		debugLog(DebugFilter, "ignored %s", path)
		return true
	}
	return false
}

// checkFile reports whether a regular file passes the size threshold and
// matches at least one mask on its base name
func (df *DirectoryFilter) checkFile(path string, size int64) bool {
	if size < df.minFileSize {
		return false
	}
	name := filepath.Base(path)
	for _, mask := range df.masks {
		if mask.MatchString(name) {
			return true
		}
	}
	return false
}
