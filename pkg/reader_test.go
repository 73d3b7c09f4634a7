package dupetrie

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

// readAllBlocks drains a reader and returns its blocks
func readAllBlocks(t *testing.T, reader *BlockReader) [][]byte {
	t.Helper()
	var blocks [][]byte
	for !reader.IsEnd() {
		block, err := reader.ReadNextBlock()
		if err != nil {
			t.Fatalf("ReadNextBlock failed: %v", err)
		}
		blocks = append(blocks, block)
	}
	return blocks
}

func TestBlockReaderContentGrid(t *testing.T) {
	contents := []string{
		"short",
		"middle length text",
		"long1 long2 long3 long4 long5 long6 long7 long8 long9 long10 text",
		"text\nwith\neveral\nlines\n",
	}
	blockSizes := []int{1, 2, 3, 4, 5, 10, 50, 100, 1000}

	dir := t.TempDir()
	for ci, content := range contents {
		path := writeTestFile(t, dir, fmt.Sprintf("content%d", ci), content)

		for _, blockSize := range blockSizes {
			t.Run(fmt.Sprintf("content%d/block%d", ci, blockSize), func(t *testing.T) {
				reader, err := NewBlockReader(path, blockSize)
				if err != nil {
					t.Fatalf("NewBlockReader failed: %v", err)
				}
				defer reader.Close()

				for offset := 0; offset < len(content); offset += blockSize {
					if reader.IsEnd() {
						t.Fatalf("Reader ended early at offset %d", offset)
					}

					end := offset + blockSize
					expected := make([]byte, blockSize)
					if end > len(content) {
						end = len(content)
					}
					copy(expected, content[offset:end])

					block, err := reader.ReadNextBlock()
					if err != nil {
						t.Fatalf("ReadNextBlock failed at offset %d: %v", offset, err)
					}
					if !bytes.Equal(block, expected) {
						t.Errorf("Expected block %q at offset %d, got %q", expected, offset, block)
					}
					if reader.LastBlockLen() != end-offset {
						t.Errorf("Expected last block length %d, got %d", end-offset, reader.LastBlockLen())
					}
				}

				if !reader.IsEnd() {
					t.Error("Expected reader to be at end after consuming all content")
				}
				if reader.Offset() != int64(len(content)) {
					t.Errorf("Expected offset %d, got %d", len(content), reader.Offset())
				}
				if reader.IsOpen() {
					t.Error("Expected descriptor to be released at end of stream")
				}
			})
		}
	}
}

func TestBlockReaderExactMultiple(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "exact", "abcdef")

	reader, err := NewBlockReader(path, 3)
	if err != nil {
		t.Fatalf("NewBlockReader failed: %v", err)
	}

	blocks := readAllBlocks(t, reader)
	if len(blocks) != 2 {
		t.Fatalf("Expected 2 blocks for an exact multiple, got %d", len(blocks))
	}
	if string(blocks[0]) != "abc" || string(blocks[1]) != "def" {
		t.Errorf("Unexpected blocks %q, %q", blocks[0], blocks[1])
	}
}

func TestBlockReaderEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "empty", "")

	reader, err := NewBlockReader(path, 4)
	if err != nil {
		t.Fatalf("NewBlockReader failed: %v", err)
	}
	if reader.IsEnd() {
		t.Fatal("Expected a fresh reader not to report end before the first read")
	}

	block, err := reader.ReadNextBlock()
	if err != nil {
		t.Fatalf("ReadNextBlock failed: %v", err)
	}
	if !bytes.Equal(block, make([]byte, 4)) {
		t.Errorf("Expected one all-zero block, got %q", block)
	}
	if reader.LastBlockLen() != 0 {
		t.Errorf("Expected last block length 0, got %d", reader.LastBlockLen())
	}
	if !reader.IsEnd() {
		t.Error("Expected end after reading the empty file")
	}
}

func TestBlockReaderPanicsPastEnd(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "one", "x")

	reader, err := NewBlockReader(path, 8)
	if err != nil {
		t.Fatalf("NewBlockReader failed: %v", err)
	}
	readAllBlocks(t, reader)

	defer func() {
		if recover() == nil {
			t.Error("Expected ReadNextBlock past end to panic")
		}
	}()
	reader.ReadNextBlock()
}

func TestBlockReaderReleaseAndResume(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "resume", "0123456789")

	reader, err := NewBlockReader(path, 4)
	if err != nil {
		t.Fatalf("NewBlockReader failed: %v", err)
	}
	if reader.IsOpen() {
		t.Error("Expected no descriptor before the first read")
	}

	first, err := reader.ReadNextBlock()
	if err != nil {
		t.Fatalf("ReadNextBlock failed: %v", err)
	}
	if !reader.IsOpen() {
		t.Error("Expected descriptor to be held mid-stream")
	}
	second, err := reader.ReadNextBlock()
	if err != nil {
		t.Fatalf("ReadNextBlock failed: %v", err)
	}
	if reader.Opens() != 1 {
		t.Errorf("Expected consecutive reads to share one open, got %d", reader.Opens())
	}
	if err := reader.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if reader.IsOpen() {
		t.Error("Expected descriptor to be closed after Release")
	}

	rest := readAllBlocks(t, reader)
	got := string(first) + string(second)
	for _, block := range rest {
		got += string(block)
	}
	if got != "0123456789\x00\x00" {
		t.Errorf("Expected stream to resume after release, got %q", got)
	}
	if reader.Opens() != 2 {
		t.Errorf("Expected one reopen after release, got %d opens", reader.Opens())
	}

	// Releasing twice is harmless
	if err := reader.Close(); err != nil {
		t.Errorf("Close after end failed: %v", err)
	}
}

func TestBlockReaderErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "file", "data")

	if _, err := NewBlockReader(path, 0); !errors.Is(err, ErrInvalidBlockSize) {
		t.Errorf("Expected ErrInvalidBlockSize for block size 0, got %v", err)
	}
	if _, err := NewBlockReader(dir, 4); !errors.Is(err, ErrNotRegularFile) {
		t.Errorf("Expected ErrNotRegularFile for a directory, got %v", err)
	}
	if _, err := NewBlockReader(filepath.Join(dir, "missing"), 4); err == nil {
		t.Error("Expected error for a missing file")
	}
}

func TestBlockReaderFileRemovedMidStream(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "vanishing", "abcdefgh")

	reader, err := NewBlockReader(path, 2)
	if err != nil {
		t.Fatalf("NewBlockReader failed: %v", err)
	}
	if _, err := reader.ReadNextBlock(); err != nil {
		t.Fatalf("ReadNextBlock failed: %v", err)
	}
	reader.Release()

	if err := os.Remove(path); err != nil {
		t.Fatalf("Failed to remove file: %v", err)
	}
	if _, err := reader.ReadNextBlock(); err == nil {
		t.Error("Expected reopen of a removed file to fail")
	}
}
