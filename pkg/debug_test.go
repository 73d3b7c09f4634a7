package dupetrie

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestSetDebugFlags(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected map[string]bool
	}{
		{
			name:     "empty string",
			input:    "",
			expected: map[string]bool{},
		},
		{
			name:     "single flag",
			input:    "trie",
			expected: map[string]bool{"trie": true},
		},
		{
			name:     "multiple flags",
			input:    "trie,filter,extravalidation",
			expected: map[string]bool{"trie": true, "filter": true, "extravalidation": true},
		},
		{
			name:     "key value format",
			input:    "trie:true,reader:false,filter:1,extravalidation:off",
			expected: map[string]bool{"trie": true, "reader": false, "filter": true, "extravalidation": false},
		},
		{
			name:     "whitespace and case",
			input:    " Trie , READER:yes ",
			expected: map[string]bool{"trie": true, "reader": true},
		},
		{
			name:     "empty entries",
			input:    "trie,,filter,",
			expected: map[string]bool{"trie": true, "filter": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetDebugFlags(tt.input)
			defer SetDebugFlags("")

			for flag, want := range tt.expected {
				if got := IsDebugEnabled(flag); got != want {
					t.Errorf("IsDebugEnabled(%q) = %t, want %t", flag, got, want)
				}
			}
			if len(debugFlags) != len(tt.expected) {
				t.Errorf("Expected %d flags, got %d: %v", len(tt.expected), len(debugFlags), debugFlags)
			}
		})
	}
}

func TestIsDebugEnabledUnset(t *testing.T) {
	debugFlags = nil
	if IsDebugEnabled(DebugTrie) {
		t.Error("Expected no flags enabled before SetDebugFlags")
	}
	if GetDebugEnabled(DebugTrie) {
		t.Error("Expected GetDebugEnabled to agree with IsDebugEnabled")
	}
}

func TestApplyVerboseConfig(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	defer SetLogOutput(os.Stderr)
	defer SetVerboseLevel(0)
	defer SetDebugFlags("")

	ApplyVerboseConfig(&VerboseConfig{Level: 1, Debug: "filter"}, 0, "")
	if GetVerboseLevel() != 1 || !IsDebugEnabled(DebugFilter) {
		t.Errorf("Expected config values to apply, got level %d", GetVerboseLevel())
	}

	ApplyVerboseConfig(&VerboseConfig{Level: 1, Debug: "filter"}, 2, "trie")
	if GetVerboseLevel() != 2 {
		t.Errorf("Expected command line level to win, got %d", GetVerboseLevel())
	}
	if IsDebugEnabled(DebugFilter) || !IsDebugEnabled(DebugTrie) {
		t.Error("Expected command line debug flags to replace the configured ones")
	}
	if !strings.Contains(buf.String(), "verbose level 2") {
		t.Errorf("Expected verbose level to be logged, got %q", buf.String())
	}
}

func TestDebugLogOnlyWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	defer SetLogOutput(os.Stderr)
	defer SetDebugFlags("")

	SetDebugFlags("")
	debugLog(DebugReader, "hidden %d", 1)
	if buf.Len() != 0 {
		t.Errorf("Expected no output with the flag off, got %q", buf.String())
	}

	SetDebugFlags(DebugReader)
	debugLog(DebugReader, "shown %d", 2)
	if !strings.Contains(buf.String(), "shown 2") {
		t.Errorf("Expected debug output, got %q", buf.String())
	}
}

func TestVerboseLogLevels(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	defer SetLogOutput(os.Stderr)
	defer SetVerboseLevel(0)

	SetVerboseLevel(1)
	VerboseLog(2, "too detailed")
	VerboseLog(1, "basic\n")
	if strings.Contains(buf.String(), "too detailed") {
		t.Error("Expected level 2 message to be suppressed at level 1")
	}
	if !strings.Contains(buf.String(), "basic") {
		t.Errorf("Expected level 1 message, got %q", buf.String())
	}

	Warnf("always %s", "shown")
	if !strings.Contains(buf.String(), "always shown") {
		t.Errorf("Expected warning regardless of level, got %q", buf.String())
	}
}
