package dupetrie

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// minReadBuffer is the smallest read-ahead buffer used by a BlockReader
const minReadBuffer = 32 * 1024

// BlockReader yields a file's content as a sequence of fixed-size blocks.
// The final short block is zero-padded to the full block size. The file is
// opened on the first read and closed at end of stream. Release drops the
// descriptor early without losing the stream position, at the cost of a
// reopen and a fresh read-ahead on the next read.
type BlockReader struct {
	path      string
	blockSize int

	file *os.File
	buf  *bufio.Reader

	offset  int64 // bytes consumed so far
	lastLen int   // real bytes in the most recent block
	end     bool
	opens   int
}

// NewBlockReader creates a reader for a regular file. No descriptor is opened
// until the first call to ReadNextBlock.
func NewBlockReader(path string, blockSize int) (*BlockReader, error) {
	if err := ValidateBlockSize(blockSize); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotRegularFile, path)
	}

	return &BlockReader{
		path:      path,
		blockSize: blockSize,
	}, nil
}

// Path returns the path the reader was created for
func (br *BlockReader) Path() string {
	return br.path
}

// BlockSize returns the configured block size
func (br *BlockReader) BlockSize() int {
	return br.blockSize
}

// Offset returns the number of bytes consumed so far
func (br *BlockReader) Offset() int64 {
	return br.offset
}

// LastBlockLen returns the number of real, non-padding bytes in the most
// recently returned block
func (br *BlockReader) LastBlockLen() int {
	return br.lastLen
}

// IsEnd reports whether the stream has been fully consumed. It is false
// before the first read, even for an empty file.
func (br *BlockReader) IsEnd() bool {
	return br.end
}

// Opens returns how many times the file has been opened
func (br *BlockReader) Opens() int {
	return br.opens
}

// IsOpen reports whether the reader currently holds a file descriptor
func (br *BlockReader) IsOpen() bool {
	return br.file != nil
}

// open acquires the descriptor and positions it at the current offset
func (br *BlockReader) open() error {
	file, err := os.Open(br.path)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", br.path, err)
	}

	if br.offset > 0 {
		if _, err := file.Seek(br.offset, io.SeekStart); err != nil {
			file.Close()
			return fmt.Errorf("failed to seek %s to %d: %w", br.path, br.offset, err)
		}
	}

	// Advisory only, failure does not affect correctness
	if err := unix.Fadvise(int(file.Fd()), br.offset, 0, unix.FADV_SEQUENTIAL); err != nil {
		debugLog(DebugReader, "fadvise %s: %v", br.path, err)
	}

	bufSize := br.blockSize + 1 // room for the end-of-stream look-ahead
	if bufSize < minReadBuffer {
		bufSize = minReadBuffer
	}

	br.file = file
	br.buf = bufio.NewReaderSize(file, bufSize)
	br.opens++
	debugLog(DebugReader, "opened %s at offset %d", br.path, br.offset)
	return nil
}

// ReadNextBlock returns the next block of exactly BlockSize bytes. Calling it
// once IsEnd reports true is a programming error and panics.
func (br *BlockReader) ReadNextBlock() ([]byte, error) {
	if br.end {
		panic(fmt.Sprintf("dupetrie: ReadNextBlock called on exhausted reader for %s", br.path))
	}

	if br.file == nil {
		if err := br.open(); err != nil {
			return nil, err
		}
	}

	block := make([]byte, br.blockSize)
	n, err := io.ReadFull(br.buf, block)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		br.end = true
	default:
		br.Release()
		return nil, fmt.Errorf("failed to read from file %s: %w", br.path, err)
	}

	br.offset += int64(n)
	br.lastLen = n

	// A full block may still have been the last one
	if !br.end {
		if _, err := br.buf.Peek(1); err != nil {
			if !errors.Is(err, io.EOF) {
				br.Release()
				return nil, fmt.Errorf("failed to read from file %s: %w", br.path, err)
			}
			br.end = true
		}
	}

	if br.end {
		if err := br.Release(); err != nil {
			return nil, err
		}
	}

	return block, nil
}

// Release closes the descriptor, keeping the stream position. The next read
// reopens the file where the previous one stopped.
func (br *BlockReader) Release() error {
	if br.file == nil {
		return nil
	}
	err := br.file.Close()
	br.file = nil
	br.buf = nil
	if err != nil {
		return fmt.Errorf("failed to close %s: %w", br.path, err)
	}
	return nil
}

// Close releases the descriptor. It is safe to call more than once.
func (br *BlockReader) Close() error {
	return br.Release()
}
