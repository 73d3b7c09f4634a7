package dupetrie

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
)

var globalVerboseLevel int
var debugFlags map[string]bool

var logger = newConsoleLogger(os.Stderr)

func newConsoleLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{
		Out:          w,
		NoColor:      true,
		PartsExclude: []string{zerolog.TimestampFieldName},
	})
}

// SetLogOutput redirects human readable log output to w
func SetLogOutput(w io.Writer) {
	logger = newConsoleLogger(w)
}

// SetLogJSON switches log output to newline delimited JSON on w
func SetLogJSON(w io.Writer) {
	logger = zerolog.New(w).With().Timestamp().Logger()
}

// Logger returns the package logger
func Logger() *zerolog.Logger {
	return &logger
}

// SetVerboseLevel sets the global verbose level
func SetVerboseLevel(level int) {
	globalVerboseLevel = level
}

// GetVerboseLevel returns the current verbose level
func GetVerboseLevel() int {
	return globalVerboseLevel
}

// VerboseEnter logs function entry at level 3+ and returns a defer function for exit logging
func VerboseEnter() func() {
	if globalVerboseLevel < 3 {
		return func() {} // No-op
	}

	pc, _, _, ok := runtime.Caller(1)
	if !ok {
		return func() {}
	}

	funcName := runtime.FuncForPC(pc).Name()
	// Strip package prefix for cleaner output
	if idx := strings.LastIndex(funcName, "."); idx != -1 {
		funcName = funcName[idx+1:]
	}

	logger.Info().Int("verbose", 3).Str("func", funcName).Msg("enter")

	return func() {
		logger.Info().Int("verbose", 3).Str("func", funcName).Msg("exit")
	}
}

// VerboseLog logs a message at the specified verbose level
func VerboseLog(level int, format string, args ...interface{}) {
	if globalVerboseLevel >= level {
		msg := strings.TrimSuffix(fmt.Sprintf(format, args...), "\n")
		logger.Info().Int("verbose", level).Msg(msg)
	}
}

// Warnf logs a warning regardless of the verbose level
func Warnf(format string, args ...interface{}) {
	logger.Warn().Msg(strings.TrimSuffix(fmt.Sprintf(format, args...), "\n"))
}

// SetDebugFlags sets the debug flags from a comma-separated string
// Supports both simple flags ("trie,extravalidation") and key:value format ("trie:true,extravalidation:false")
func SetDebugFlags(flagsStr string) {
	debugFlags = make(map[string]bool)
	if flagsStr == "" {
		return
	}

	flags := strings.Split(flagsStr, ",")
	for _, flag := range flags {
		flag = strings.TrimSpace(flag)
		if flag == "" {
			continue
		}

		// Handle flag:value format
		parts := strings.SplitN(flag, ":", 2)
		flagName := strings.ToLower(parts[0])
		flagValue := true // Default to true for simple flag names

		if len(parts) > 1 {
			switch strings.ToLower(parts[1]) {
			case "true", "1", "yes", "on":
				flagValue = true
			case "false", "0", "no", "off":
				flagValue = false
			default:
				flagValue = true // Default to true for unknown values
			}
		}

		debugFlags[flagName] = flagValue
	}
}

// IsDebugEnabled returns true if the specified debug flag is enabled
func IsDebugEnabled(flag string) bool {
	if debugFlags == nil {
		return false
	}
	return debugFlags[strings.ToLower(flag)]
}

// debugLog logs at debug level when the named debug flag is enabled
func debugLog(flag string, format string, args ...interface{}) {
	if IsDebugEnabled(flag) {
		logger.Debug().Str("debug", flag).Msg(strings.TrimSuffix(fmt.Sprintf(format, args...), "\n"))
	}
}
