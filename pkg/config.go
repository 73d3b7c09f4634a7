package dupetrie

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/go-ini/ini"
)

// Config represents the dupetrie configuration file
type Config struct {
	configPath string
	ini        *ini.File
}

// ScanConfig represents the content comparison settings
type ScanConfig struct {
	BlockSize     int    `json:"block_size" yaml:"block_size"`         // bytes per block, at least 1
	HashAlgorithm string `json:"hash_algorithm" yaml:"hash_algorithm"` // registered algorithm name
	LengthAware   bool   `json:"length_aware" yaml:"length_aware"`     // distinguish a short final block from zero padding
}

// FilterConfig represents candidate selection settings
type FilterConfig struct {
	Include     []string `json:"include" yaml:"include"`             // directories to scan
	Exclude     []string `json:"exclude" yaml:"exclude"`             // directories skipped entirely
	FileMasks   []string `json:"file_masks" yaml:"file_masks"`       // regular expressions matched against the whole file name
	ScanLevel   int      `json:"scan_level" yaml:"scan_level"`       // subdirectory depth, 0 means the include directories only
	MinFileSize int64    `json:"min_file_size" yaml:"min_file_size"` // smallest file size considered
	SymlinkMode string   `json:"symlink_mode" yaml:"symlink_mode"`   // all, contained, none
	IgnoreFile  string   `json:"ignore_file" yaml:"ignore_file"`     // optional gitignore-style pattern file
}

// OutputConfig represents output format configuration
type OutputConfig struct {
	Format string `json:"format" yaml:"format"` // human, json, yaml, fdupes
}

// VerboseConfig represents verbosity configuration
type VerboseConfig struct {
	Level int    `json:"level" yaml:"level"` // Default verbose level (0=quiet, 1=basic, 2=detailed, 3=trace)
	Debug string `json:"debug" yaml:"debug"` // Default debug flags (comma-separated)
}

// AllConfig represents all configuration options
type AllConfig struct {
	Scan    *ScanConfig    `json:"scan" yaml:"scan"`
	Filter  *FilterConfig  `json:"filter" yaml:"filter"`
	Output  *OutputConfig  `json:"output" yaml:"output"`
	Verbose *VerboseConfig `json:"verbose" yaml:"verbose"`
}

var iniOptions = ini.LoadOptions{AllowShadows: true}

// DefaultScanConfig returns the scan settings used when nothing is configured
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		BlockSize:     DefaultBlockSize,
		HashAlgorithm: DefaultHashAlgorithm,
	}
}

// DefaultFilterConfig returns the filter settings used when nothing is configured
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		Include:     []string{"."},
		FileMasks:   []string{DefaultFileMask},
		ScanLevel:   DefaultScanLevel,
		MinFileSize: DefaultMinFileSize,
		SymlinkMode: DefaultSymlinkMode,
	}
}

// NewConfig returns an in-memory configuration holding the defaults. Save
// writes it to path.
func NewConfig(path string) *Config {
	cfg := &Config{
		configPath: path,
		ini:        ini.Empty(iniOptions),
	}
	if err := cfg.setDefaults(); err != nil {
		// Only reachable if the section and key names above are invalid
		panic(err)
	}
	return cfg
}

// LoadConfig loads configuration from path. An empty path or a missing file
// yields the defaults without touching the filesystem.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return NewConfig(""), nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		VerboseLog(2, "config file %s not found, using defaults", path)
		return NewConfig(path), nil
	}

	iniFile, err := ini.LoadSources(iniOptions, path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load config file %s: %w", ErrInvalidConfig, path, err)
	}
	VerboseLog(2, "loaded config file %s", path)
	return &Config{configPath: path, ini: iniFile}, nil
}

// Path returns the file the configuration is loaded from and saved to
func (c *Config) Path() string {
	return c.configPath
}

// setDefaults sets default configuration values
func (c *Config) setDefaults() error {
	defaults := []struct {
		section, key, value string
	}{
		{SectionScan, "block_size", "4K"},
		{SectionScan, "hash_algorithm", DefaultHashAlgorithm},
		{SectionScan, "length_aware", "false"},
		{SectionFilter, "include", "."},
		{SectionFilter, "exclude", ""},
		{SectionFilter, "file_mask", DefaultFileMask},
		{SectionFilter, "scan_level", strconv.Itoa(DefaultScanLevel)},
		{SectionFilter, "min_file_size", strconv.Itoa(DefaultMinFileSize)},
		{SectionFilter, "symlink_mode", DefaultSymlinkMode},
		{SectionFilter, "ignore_file", ""},
		{SectionOutput, "format", DefaultOutputFormat},
		{SectionVerbose, "level", "0"},
		{SectionVerbose, "debug", ""},
	}

	for _, d := range defaults {
		section, err := c.ini.NewSection(d.section)
		if err != nil {
			return fmt.Errorf("failed to create %s section: %w", d.section, err)
		}
		if _, err := section.NewKey(d.key, d.value); err != nil {
			return fmt.Errorf("failed to set default %s.%s: %w", d.section, d.key, err)
		}
	}
	return nil
}

// value returns a key's value, or "" when the section or key is missing
func (c *Config) value(section, key string) (string, bool) {
	if !c.ini.HasSection(section) {
		return "", false
	}
	s := c.ini.Section(section)
	if !s.HasKey(key) {
		return "", false
	}
	return strings.TrimSpace(s.Key(key).String()), true
}

// values returns every non-empty value of a repeatable key
func (c *Config) values(section, key string) ([]string, bool) {
	if !c.ini.HasSection(section) {
		return nil, false
	}
	s := c.ini.Section(section)
	if !s.HasKey(key) {
		return nil, false
	}
	var result []string
	for _, v := range s.Key(key).ValueWithShadows() {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result, true
}

// GetScanConfig returns the scan configuration. Unparseable values fall back
// to the defaults; Validate reports them.
func (c *Config) GetScanConfig() *ScanConfig {
	scanConfig := DefaultScanConfig()

	if v, ok := c.value(SectionScan, "block_size"); ok && v != "" {
		if size, err := ParseHumanSize(v); err == nil {
			scanConfig.BlockSize = size
		}
	}
	if v, ok := c.value(SectionScan, "hash_algorithm"); ok && v != "" {
		scanConfig.HashAlgorithm = strings.ToLower(v)
	}
	if v, ok := c.value(SectionScan, "length_aware"); ok && v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			scanConfig.LengthAware = enabled
		}
	}

	return &scanConfig
}

// GetFilterConfig returns the filter configuration
func (c *Config) GetFilterConfig() *FilterConfig {
	filterConfig := DefaultFilterConfig()

	if v, ok := c.values(SectionFilter, "include"); ok {
		filterConfig.Include = v
	}
	if v, ok := c.values(SectionFilter, "exclude"); ok {
		filterConfig.Exclude = v
	}
	if v, ok := c.values(SectionFilter, "file_mask"); ok && len(v) > 0 {
		filterConfig.FileMasks = v
	}
	if v, ok := c.value(SectionFilter, "scan_level"); ok && v != "" {
		if level, err := strconv.Atoi(v); err == nil {
			filterConfig.ScanLevel = level
		}
	}
	if v, ok := c.value(SectionFilter, "min_file_size"); ok && v != "" {
		if size, err := ParseHumanSizeAllowZero(v); err == nil {
			filterConfig.MinFileSize = size
		}
	}
	if v, ok := c.value(SectionFilter, "symlink_mode"); ok && v != "" {
		filterConfig.SymlinkMode = strings.ToLower(v)
	}
	if v, ok := c.value(SectionFilter, "ignore_file"); ok {
		filterConfig.IgnoreFile = v
	}

	return &filterConfig
}

// GetOutputConfig returns the output configuration
func (c *Config) GetOutputConfig() *OutputConfig {
	outputConfig := &OutputConfig{
		Format: DefaultOutputFormat, // fallback default
	}

	if v, ok := c.value(SectionOutput, "format"); ok && v != "" {
		outputConfig.Format = strings.ToLower(v)
	}

	return outputConfig
}

// GetVerboseConfig returns the verbose configuration
func (c *Config) GetVerboseConfig() *VerboseConfig {
	verboseConfig := &VerboseConfig{}

	if v, ok := c.value(SectionVerbose, "level"); ok && v != "" {
		if level, err := strconv.Atoi(v); err == nil {
			verboseConfig.Level = level
		}
	}
	if v, ok := c.value(SectionVerbose, "debug"); ok {
		verboseConfig.Debug = v
	}

	return verboseConfig
}

// GetAllConfig returns all configuration options
func (c *Config) GetAllConfig() *AllConfig {
	return &AllConfig{
		Scan:    c.GetScanConfig(),
		Filter:  c.GetFilterConfig(),
		Output:  c.GetOutputConfig(),
		Verbose: c.GetVerboseConfig(),
	}
}

// Validate checks every configured value and returns the first problem found
func (c *Config) Validate() error {
	if v, ok := c.value(SectionScan, "block_size"); ok && v != "" {
		if _, err := ParseHumanSize(v); err != nil {
			return fmt.Errorf("%w: %w: scan.block_size: %w", ErrInvalidConfig, ErrInvalidBlockSize, err)
		}
	}
	if v, ok := c.value(SectionScan, "length_aware"); ok && v != "" {
		if _, err := strconv.ParseBool(v); err != nil {
			return fmt.Errorf("%w: scan.length_aware: %q is not a boolean", ErrInvalidConfig, v)
		}
	}
	if v, ok := c.value(SectionFilter, "scan_level"); ok && v != "" {
		if _, err := strconv.Atoi(v); err != nil {
			return fmt.Errorf("%w: filter.scan_level: %q is not an integer", ErrInvalidConfig, v)
		}
	}
	if v, ok := c.value(SectionFilter, "min_file_size"); ok && v != "" {
		if _, err := ParseHumanSizeAllowZero(v); err != nil {
			return fmt.Errorf("%w: filter.min_file_size: %w", ErrInvalidConfig, err)
		}
	}
	if v, ok := c.value(SectionVerbose, "level"); ok && v != "" {
		if _, err := strconv.Atoi(v); err != nil {
			return fmt.Errorf("%w: verbose.level: %q is not an integer", ErrInvalidConfig, v)
		}
	}

	all := c.GetAllConfig()
	if err := ValidateScanConfig(all.Scan); err != nil {
		return err
	}
	if err := ValidateScanLevel(all.Filter.ScanLevel); err != nil {
		return err
	}
	if err := ValidateSymlinkMode(all.Filter.SymlinkMode); err != nil {
		return err
	}
	if err := ValidateOutputFormat(all.Output.Format); err != nil {
		return err
	}
	return ValidateVerboseLevel(all.Verbose.Level)
}

// Save saves the configuration to its path
func (c *Config) Save() error {
	if c.configPath == "" {
		return fmt.Errorf("%w: no config file path set", ErrInvalidConfig)
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path
func (c *Config) SaveTo(path string) error {
	if err := c.ini.SaveTo(path); err != nil {
		return fmt.Errorf("failed to save config file %s: %w", path, err)
	}
	return nil
}

// WriteTo writes the configuration in INI form to w
func (c *Config) WriteTo(w io.Writer) (int64, error) {
	return c.ini.WriteTo(w)
}

// overrideKeys maps the short override names onto their section and whether
// the key is repeatable
var overrideKeys = map[string]struct {
	section    string
	repeatable bool
}{
	"block_size":     {SectionScan, false},
	"hash_algorithm": {SectionScan, false},
	"length_aware":   {SectionScan, false},
	"include":        {SectionFilter, true},
	"exclude":        {SectionFilter, true},
	"file_mask":      {SectionFilter, true},
	"scan_level":     {SectionFilter, false},
	"min_file_size":  {SectionFilter, false},
	"symlink_mode":   {SectionFilter, false},
	"ignore_file":    {SectionFilter, false},
	"format":         {SectionOutput, false},
	"level":          {SectionVerbose, false},
	"debug":          {SectionVerbose, false},
}

// ApplyOverrides applies command-line overrides to the configuration
// Accepts strings like "block_size:64K", "format:json", "level:2", "debug:trie".
// The first override of a repeatable key replaces the configured list and
// later ones append to it.
func (c *Config) ApplyOverrides(overrides []string) error {
	replaced := make(map[string]bool)

	for _, override := range overrides {
		parts := strings.SplitN(override, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("%w: invalid override format '%s', expected 'key:value'", ErrInvalidConfig, override)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		target, ok := overrideKeys[key]
		if !ok {
			return fmt.Errorf("%w: unsupported override key '%s' (supported: %s)",
				ErrInvalidConfig, key, strings.Join(overrideKeyNames(), ", "))
		}

		section := c.ini.Section(target.section)
		if !target.repeatable {
			section.Key(key).SetValue(value)
			continue
		}

		if !replaced[key] {
			section.DeleteKey(key)
			replaced[key] = true
		}
		if _, err := section.NewKey(key, value); err != nil {
			return fmt.Errorf("failed to apply override %s: %w", override, err)
		}
	}

	return nil
}

func overrideKeyNames() []string {
	names := make([]string, 0, len(overrideKeys))
	for name := range overrideKeys {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateScanConfig validates block size and hash algorithm together
func ValidateScanConfig(sc *ScanConfig) error {
	if err := ValidateBlockSize(sc.BlockSize); err != nil {
		return err
	}
	return ValidateHashAlgorithm(sc.HashAlgorithm)
}

// ValidateBlockSize validates that a block size is usable
func ValidateBlockSize(blockSize int) error {
	if blockSize < 1 {
		return fmt.Errorf("%w: %w, got: %d", ErrInvalidConfig, ErrInvalidBlockSize, blockSize)
	}
	return nil
}

// ValidateOutputFormat validates that an output format is supported
func ValidateOutputFormat(format string) error {
	switch strings.ToLower(format) {
	case OutputFormatHuman, OutputFormatJSON, OutputFormatYAML, OutputFormatFdupes:
		return nil
	default:
		return fmt.Errorf("%w: unsupported output format: %s (supported: human, json, yaml, fdupes)", ErrInvalidConfig, format)
	}
}

// ValidateVerboseLevel validates that a verbose level is valid
func ValidateVerboseLevel(level int) error {
	if level < 0 || level > 3 {
		return fmt.Errorf("%w: invalid verbose level: %d (supported: 0-3)", ErrInvalidConfig, level)
	}
	return nil
}

// ValidateSymlinkMode validates that a symlink mode is supported
func ValidateSymlinkMode(mode string) error {
	switch strings.ToLower(mode) {
	case SymlinkModeAll, SymlinkModeContained, SymlinkModeNone:
		return nil
	default:
		return fmt.Errorf("%w: unsupported symlink mode: %s (supported: all, contained, none)", ErrInvalidConfig, mode)
	}
}

// ValidateScanLevel validates the subdirectory depth. Negative levels would
// scan nothing at all.
func ValidateScanLevel(level int) error {
	if level < 0 {
		return fmt.Errorf("%w: scan level must not be negative, got: %d", ErrInvalidConfig, level)
	}
	return nil
}
