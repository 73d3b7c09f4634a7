package dupetrie

// This file holds the small helpers the command line tool uses to wire
// configuration into the package-level logging state

// InitDebugFlags initialises debug flags - for CLI compatibility
func InitDebugFlags(flagsStr string) {
	if flagsStr != "" {
		SetDebugFlags(flagsStr)
	}
}

// ApplyVerboseConfig applies a verbose configuration section to the package
// logging state. A non-zero level or non-empty debug string from the command
// line takes precedence over the configured values.
func ApplyVerboseConfig(vc *VerboseConfig, cliLevel int, cliDebug string) {
	level := vc.Level
	if cliLevel > 0 {
		level = cliLevel
	}
	SetVerboseLevel(level)

	debug := vc.Debug
	if cliDebug != "" {
		debug = cliDebug
	}
	SetDebugFlags(debug)

	if level > 0 {
		VerboseLog(1, "verbose level %d, debug flags %q", level, debug)
	}
}

// GetDebugEnabled returns whether a debug flag is enabled - public alternative to IsDebugEnabled
func GetDebugEnabled(flag string) bool {
	return IsDebugEnabled(flag)
}
