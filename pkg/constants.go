package dupetrie

// Scan defaults
const (
	DefaultBlockSize     = 4096
	DefaultHashAlgorithm = "md5"
	DefaultScanLevel     = 0
	DefaultMinFileSize   = 1
	DefaultFileMask      = ".*"
	DefaultSymlinkMode   = SymlinkModeAll
	DefaultOutputFormat  = OutputFormatHuman
	DefaultMaxOpenFiles  = 256
)

// Symlink handling modes for the directory filter
const (
	SymlinkModeAll       = "all"       // follow every symlink (canonical target is reported)
	SymlinkModeContained = "contained" // follow only targets inside an include directory
	SymlinkModeNone      = "none"      // skip symlinks entirely
)

// Output formats understood by the command line tool
const (
	OutputFormatHuman  = "human"
	OutputFormatJSON   = "json"
	OutputFormatFdupes = "fdupes"
	OutputFormatYAML   = "yaml"
)

// Config file sections
const (
	SectionScan    = "scan"
	SectionFilter  = "filter"
	SectionOutput  = "output"
	SectionVerbose = "verbose"
)

// Debug flags recognised by the package
const (
	DebugTrie            = "trie"
	DebugFilter          = "filter"
	DebugReader          = "reader"
	DebugExtraValidation = "extravalidation"
)

// rootNode is the arena index of every trie's root
const rootNode = 0
