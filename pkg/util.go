package dupetrie

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// ParseHumanSize parses human-readable size strings (e.g., "2M", "512k", "1G")
func ParseHumanSize(sizeStr string) (int, error) {
	size, err := parseSize(sizeStr)
	if err != nil {
		return 0, err
	}
	if size <= 0 {
		return 0, fmt.Errorf("size must be positive: %s", sizeStr)
	}
	if size > int64(^uint(0)>>1) { // Check for int overflow
		return 0, fmt.Errorf("size too large: %s", sizeStr)
	}
	return int(size), nil
}

// ParseHumanSizeAllowZero is ParseHumanSize for thresholds where zero is meaningful
func ParseHumanSizeAllowZero(sizeStr string) (int64, error) {
	size, err := parseSize(sizeStr)
	if err != nil {
		return 0, err
	}
	if size < 0 {
		return 0, fmt.Errorf("size must not be negative: %s", sizeStr)
	}
	return size, nil
}

func parseSize(sizeStr string) (int64, error) {
	if strings.TrimSpace(sizeStr) == "" {
		return 0, fmt.Errorf("empty size string")
	}

	// Convert to uppercase for consistent parsing
	sizeStr = strings.ToUpper(strings.TrimSpace(sizeStr))

	// Extract numeric part and suffix
	var numPart string
	var suffix string
	for i, char := range sizeStr {
		if char >= '0' && char <= '9' || char == '.' || (i == 0 && char == '-') {
			numPart += string(char)
		} else {
			suffix = strings.TrimSpace(sizeStr[i:])
			break
		}
	}

	if numPart == "" {
		return 0, fmt.Errorf("no numeric part in size string: %s", sizeStr)
	}

	num, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric part in size string %s: %w", sizeStr, err)
	}

	// Apply multiplier based on suffix
	var multiplier int64 = 1
	switch suffix {
	case "", "B":
		multiplier = 1
	case "K", "KB":
		multiplier = 1024
	case "M", "MB":
		multiplier = 1024 * 1024
	case "G", "GB":
		multiplier = 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("unknown size suffix: %s", suffix)
	}

	return int64(num * float64(multiplier)), nil
}

// FormatHumanSize renders a byte count with the largest binary suffix that keeps
// at least one whole unit, e.g. 1536 -> "1.5K"
func FormatHumanSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%dB", size)
	}
	suffixes := []string{"K", "M", "G", "T"}
	value := float64(size) / unit
	i := 0
	for value >= unit && i < len(suffixes)-1 {
		value /= unit
		i++
	}
	return strconv.FormatFloat(value, 'f', 1, 64) + suffixes[i]
}

// canonicalPath makes a path absolute, clean and symlink-free
func canonicalPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to make %s absolute: %w", path, err)
	}
	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return "", err
	}
	return filepath.Clean(resolved), nil
}

// isPathUnder checks if childPath is strictly under parentPath
func isPathUnder(childPath, parentPath string) bool {
	childPath = filepath.Clean(childPath)
	parentPath = filepath.Clean(parentPath)

	// If paths are identical, child is not "under" parent
	if childPath == parentPath {
		return false
	}

	if parentPath == string(filepath.Separator) {
		return strings.HasPrefix(childPath, parentPath)
	}
	return strings.HasPrefix(childPath, parentPath+string(filepath.Separator))
}

// isPathContained checks if targetPath is containerPath or lies beneath it
// This is used for symlink containment checking
func isPathContained(targetPath, containerPath string) bool {
	if filepath.Clean(targetPath) == filepath.Clean(containerPath) {
		return true
	}
	return isPathUnder(targetPath, containerPath)
}
