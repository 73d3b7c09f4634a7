package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	dupetrie "github.com/mattkeenan/dupetrie/pkg"
)

// Exit codes
const (
	exitOK          = 0
	exitError       = 1
	exitConfigError = 2
)

// options holds the raw command line values
type options struct {
	include       []string
	exclude       []string
	masks         []string
	scanLevel     int
	minFileSize   string
	blockSize     string
	hashAlgorithm string
	lengthAware   bool
	symlinks      string
	ignoreFile    string

	configPath string
	overrides  []string
	format     string
	verbose    int
	debug      string
	logJSON    bool
	stats      bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "dupetrie [flags] [DIRECTORY...]",
		Short: "Find files with identical content",
		Long: `dupetrie finds groups of files with identical content.

Files are compared block by block through a trie of block hashes, so files
that differ early are never read to the end. Directories can be given with
-i or as arguments.`,
		Example: `  dupetrie -b 4K -l 3 ~/Pictures
  dupetrie -i /srv/a -i /srv/b -e /srv/a/cache -m '.*\.jpe?g' -o fdupes`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, opts, args)
		},
	}

	flags := rootCmd.Flags()
	flags.StringArrayVarP(&opts.include, "include-directories", "i", nil, "directory to scan (repeatable)")
	flags.StringArrayVarP(&opts.exclude, "exclude-directories", "e", nil, "directory to skip (repeatable)")
	flags.IntVarP(&opts.scanLevel, "scan-level", "l", dupetrie.DefaultScanLevel, "subdirectory depth, 0 scans only the given directories")
	flags.StringVarP(&opts.minFileSize, "min-file-size", "f", "1", "smallest file size considered (e.g. 0, 512, 4K)")
	flags.StringArrayVarP(&opts.masks, "file-masks", "m", nil, "regular expression matched against the whole file name (repeatable, default .*)")
	flags.StringVarP(&opts.blockSize, "block-size", "b", "4K", "comparison block size (e.g. 1, 4K, 1M)")
	flags.StringVarP(&opts.hashAlgorithm, "hash-algorithm", "a", dupetrie.DefaultHashAlgorithm,
		"block hash ("+strings.Join(dupetrie.AvailableHashAlgorithms(), ", ")+")")
	flags.BoolVar(&opts.lengthAware, "length-aware", false, "never group a file with one that differs only by trailing NUL bytes")
	flags.StringVar(&opts.symlinks, "symlinks", dupetrie.DefaultSymlinkMode, "symlink handling: all, contained, none")
	flags.StringVar(&opts.ignoreFile, "ignore-file", "", "file of gitignore-style patterns to skip")
	addCommonFlags(flags, opts)

	rootCmd.AddCommand(newAlgorithmsCmd(), newConfigCmd(), newVersionCmd())
	return rootCmd
}

// addCommonFlags registers the flags shared by every command that reads the config
func addCommonFlags(flags *pflag.FlagSet, opts *options) {
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (INI)")
	flags.StringArrayVar(&opts.overrides, "set", nil, "override a config value, key:value (repeatable)")
	flags.StringVarP(&opts.format, "format", "o", dupetrie.DefaultOutputFormat, "output format: human, json, yaml, fdupes")
	flags.CountVarP(&opts.verbose, "verbose", "v", "increase verbosity (repeatable)")
	flags.StringVar(&opts.debug, "debug", "", "comma-separated debug flags (trie, filter, reader, extravalidation)")
	flags.BoolVar(&opts.logJSON, "log-json", false, "write logs as JSON lines")
	flags.BoolVar(&opts.stats, "stats", false, "report work counters")
}

// configError marks errors that should exit with exitConfigError
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// loadConfig reads the config file, applies --set overrides and configures logging
func loadConfig(cmd *cobra.Command, opts *options) (*dupetrie.Config, error) {
	if opts.logJSON {
		dupetrie.SetLogJSON(cmd.ErrOrStderr())
	} else {
		dupetrie.SetLogOutput(cmd.ErrOrStderr())
	}

	cfg, err := dupetrie.LoadConfig(opts.configPath)
	if err != nil {
		return nil, &configError{err}
	}
	if err := cfg.ApplyOverrides(opts.overrides); err != nil {
		return nil, &configError{err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &configError{err}
	}

	dupetrie.ApplyVerboseConfig(cfg.GetVerboseConfig(), opts.verbose, opts.debug)
	return cfg, nil
}

// resolveConfig merges the config file with explicitly set flags. Flags win.
func resolveConfig(cmd *cobra.Command, opts *options, cfg *dupetrie.Config, args []string) (*dupetrie.AllConfig, error) {
	all := cfg.GetAllConfig()
	flags := cmd.Flags()

	include := append([]string(nil), opts.include...)
	include = append(include, args...)
	if len(include) > 0 {
		all.Filter.Include = include
	}
	if flags.Changed("exclude-directories") {
		all.Filter.Exclude = opts.exclude
	}
	if flags.Changed("file-masks") {
		all.Filter.FileMasks = opts.masks
	}
	if flags.Changed("scan-level") {
		all.Filter.ScanLevel = opts.scanLevel
	}
	if flags.Changed("min-file-size") {
		size, err := dupetrie.ParseHumanSizeAllowZero(opts.minFileSize)
		if err != nil {
			return nil, fmt.Errorf("%w: --min-file-size: %w", dupetrie.ErrInvalidConfig, err)
		}
		all.Filter.MinFileSize = size
	}
	if flags.Changed("symlinks") {
		all.Filter.SymlinkMode = opts.symlinks
	}
	if flags.Changed("ignore-file") {
		all.Filter.IgnoreFile = opts.ignoreFile
	}
	if flags.Changed("block-size") {
		size, err := dupetrie.ParseHumanSize(opts.blockSize)
		if err != nil {
			return nil, fmt.Errorf("%w: --block-size: %v", dupetrie.ErrInvalidConfig, err)
		}
		all.Scan.BlockSize = size
	}
	if flags.Changed("hash-algorithm") {
		all.Scan.HashAlgorithm = opts.hashAlgorithm
	}
	if flags.Changed("length-aware") {
		all.Scan.LengthAware = opts.lengthAware
	}
	if flags.Changed("format") {
		all.Output.Format = opts.format
	}

	if err := dupetrie.ValidateOutputFormat(all.Output.Format); err != nil {
		return nil, err
	}
	return all, nil
}

func runScan(cmd *cobra.Command, opts *options, args []string) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	all, err := resolveConfig(cmd, opts, cfg, args)
	if err != nil {
		return &configError{err}
	}

	scanner, err := dupetrie.NewScanner(*all.Filter, *all.Scan)
	if err != nil {
		if errors.Is(err, dupetrie.ErrInvalidConfig) {
			return &configError{err}
		}
		return err
	}

	groups, err := scanner.FindEqualFileGroups(setupSignalHandler())
	if err != nil {
		return err
	}

	var stats *dupetrie.ScanStats
	if opts.stats {
		snapshot := scanner.Stats()
		stats = &snapshot
	}
	return dupetrie.WriteGroups(cmd.OutOrStdout(), groups, all.Output.Format, stats)
}

func newAlgorithmsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "algorithms",
		Short: "List the supported block hash algorithms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range dupetrie.AvailableHashAlgorithms() {
				algorithm, err := dupetrie.GetHashAlgorithm(name)
				if err != nil {
					return err
				}
				marker := ""
				if name == dupetrie.DefaultHashAlgorithm {
					marker = " (default)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %3d hex digits%s\n", name, algorithm.HexLen(), marker)
			}
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [PATH]",
		Short: "Write a config file holding the defaults",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "dupetrie.ini"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return &configError{fmt.Errorf("%w: %s already exists (use --force to overwrite)", dupetrie.ErrInvalidConfig, path)}
			}
			if err := dupetrie.NewConfig(path).Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showOpts := &options{}
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, showOpts)
			if err != nil {
				return err
			}
			switch showOpts.format {
			case dupetrie.OutputFormatJSON:
				return dupetrie.WriteJSON(cmd.OutOrStdout(), cfg.GetAllConfig())
			case dupetrie.OutputFormatYAML:
				return dupetrie.WriteYAML(cmd.OutOrStdout(), cfg.GetAllConfig())
			}
			_, err = cfg.WriteTo(cmd.OutOrStdout())
			return err
		},
	}
	addCommonFlags(showCmd.Flags(), showOpts)

	configCmd.AddCommand(initCmd, showCmd)
	return configCmd
}

func newVersionCmd() *cobra.Command {
	var format string
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printVersion(cmd.OutOrStdout(), format)
		},
	}
	versionCmd.Flags().StringVarP(&format, "format", "o", "human", "output format: human, json")
	return versionCmd
}

// printError writes a failed command's error as "dupetrie: <err>"
func printError(w io.Writer, _ fang.Styles, err error) {
	fmt.Fprintf(w, "dupetrie: %v\n", err)
}

// exitCode maps an execution error onto the process exit status
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var cfgErr *configError
	if errors.As(err, &cfgErr) || errors.Is(err, dupetrie.ErrInvalidConfig) {
		return exitConfigError
	}
	return exitError
}

func main() {
	err := fang.Execute(context.Background(), newRootCmd(),
		fang.WithVersion(getVersion()),
		fang.WithCommit(getCommit()),
		fang.WithErrorHandler(printError),
	)
	os.Exit(exitCode(err))
}
