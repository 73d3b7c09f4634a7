package main

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime/debug"
)

var (
	// These will be set by build flags or default to development values
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// versionInfo contains version information
type versionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// getVersion returns the version string, preferring compile-time version if available
func getVersion() string {
	if Version != "dev" && Version != "" {
		return Version
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
	}

	return "development"
}

// getCommit returns the git commit hash, preferring compile-time commit if available
func getCommit() string {
	if Commit != "unknown" && Commit != "" {
		return Commit
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				return setting.Value
			}
		}
	}

	return "unknown"
}

func getVersionInfo() versionInfo {
	return versionInfo{
		Version: getVersion(),
		Commit:  getCommit(),
		Date:    Date,
	}
}

// printVersion writes version information in human or json form
func printVersion(w io.Writer, format string) error {
	info := getVersionInfo()
	if format == "json" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(info)
	}

	_, err := fmt.Fprintf(w, "dupetrie version %s\nCommit: %s\nBuild Date: %s\n", info.Version, info.Commit, info.Date)
	return err
}
