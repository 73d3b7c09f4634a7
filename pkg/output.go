package dupetrie

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/google/vectorio"
	"gopkg.in/yaml.v3"
)

// iovMax is the Linux IOV_MAX, the most iovecs a single writev accepts
const iovMax = 1024

// ScanReport is the document written by the json and yaml output formats
type ScanReport struct {
	Groups      []DuplicateGroup `json:"groups" yaml:"groups"`
	GroupCount  int              `json:"group_count" yaml:"group_count"`
	FileCount   int              `json:"file_count" yaml:"file_count"`
	WastedBytes int64            `json:"wasted_bytes" yaml:"wasted_bytes"`
	Stats       *ScanStats       `json:"stats,omitempty" yaml:"stats,omitempty"`
}

// NewScanReport summarises groups. stats may be nil.
func NewScanReport(groups []DuplicateGroup, stats *ScanStats) *ScanReport {
	report := &ScanReport{
		Groups:      groups,
		GroupCount:  len(groups),
		WastedBytes: TotalWastedBytes(groups),
		Stats:       stats,
	}
	if report.Groups == nil {
		report.Groups = []DuplicateGroup{}
	}
	for _, group := range groups {
		report.FileCount += group.Count
	}
	return report
}

// WriteGroups writes groups to w in the given output format
func WriteGroups(w io.Writer, groups []DuplicateGroup, format string, stats *ScanStats) error {
	switch strings.ToLower(format) {
	case OutputFormatFdupes:
		return WriteFdupes(w, groups)
	case OutputFormatJSON:
		return WriteJSON(w, NewScanReport(groups, stats))
	case OutputFormatYAML:
		return WriteYAML(w, NewScanReport(groups, stats))
	case OutputFormatHuman, "":
		return WriteHuman(w, groups, stats)
	default:
		return ValidateOutputFormat(format)
	}
}

// WriteJSON writes v as indented JSON
func WriteJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// WriteYAML writes v as a YAML document
func WriteYAML(w io.Writer, v interface{}) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}

// WriteHuman writes numbered groups with their sizes followed by a summary
func WriteHuman(w io.Writer, groups []DuplicateGroup, stats *ScanStats) error {
	if len(groups) == 0 {
		_, err := fmt.Fprintln(w, "No duplicate files found.")
		return err
	}

	files := 0
	for i, group := range groups {
		files += group.Count
		if _, err := fmt.Fprintf(w, "Group %d: %d files, %s each\n", i+1, group.Count, FormatHumanSize(group.Size)); err != nil {
			return err
		}
		for _, path := range group.Files {
			if _, err := fmt.Fprintf(w, "  %s\n", path); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(w, "%d duplicate groups, %d files, %s reclaimable\n",
		len(groups), files, FormatHumanSize(TotalWastedBytes(groups))); err != nil {
		return err
	}
	if stats != nil {
		if _, err := fmt.Fprintf(w, "%s\n", stats); err != nil {
			return err
		}
	}
	return nil
}

// fdupesBlocks renders each group as one path per line followed by an empty line
func fdupesBlocks(groups []DuplicateGroup) [][]byte {
	blocks := make([][]byte, 0, len(groups))
	for _, group := range groups {
		var sb strings.Builder
		for _, path := range group.Files {
			sb.WriteString(path)
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
		blocks = append(blocks, []byte(sb.String()))
	}
	return blocks
}

// WriteFdupes writes groups in fdupes style: one path per line and a blank
// line after each group. Files are written with writev, one iovec per group.
func WriteFdupes(w io.Writer, groups []DuplicateGroup) error {
	blocks := fdupesBlocks(groups)

	file, ok := w.(*os.File)
	if !ok {
		for _, block := range blocks {
			if _, err := w.Write(block); err != nil {
				return fmt.Errorf("failed to write groups: %w", err)
			}
		}
		return nil
	}

	for offset := 0; offset < len(blocks); offset += iovMax {
		end := offset + iovMax
		if end > len(blocks) {
			end = len(blocks)
		}
		if err := writevBlocks(file, blocks[offset:end]); err != nil {
			return err
		}
	}
	return nil
}

// writevBlocks writes blocks to file with a single writev, finishing any
// short write with ordinary writes
func writevBlocks(file *os.File, blocks [][]byte) error {
	iovecs := make([]syscall.Iovec, 0, len(blocks))
	total := 0
	for _, block := range blocks {
		iov := syscall.Iovec{Base: &block[0]}
		iov.SetLen(len(block))
		iovecs = append(iovecs, iov)
		total += len(block)
	}

	written, err := vectorio.WritevRaw(uintptr(file.Fd()), iovecs)
	if err != nil && !errors.Is(err, syscall.EAGAIN) && !errors.Is(err, syscall.EINTR) {
		return fmt.Errorf("failed to write groups with vectorio: %w", err)
	}
	if written < 0 {
		written = 0
	}
	if written == total {
		return nil
	}

	for _, block := range blocks {
		if written >= len(block) {
			written -= len(block)
			continue
		}
		if _, err := file.Write(block[written:]); err != nil {
			return fmt.Errorf("failed to write groups: %w", err)
		}
		written = 0
	}
	return nil
}
