package dupetrie

import (
	"fmt"
	"sync/atomic"
)

// ScanStats counts the work done by a trie while grouping files.
// Counters are updated atomically so a snapshot can be taken from another
// goroutine (for progress reporting) while a scan runs.
type ScanStats struct {
	FilesInserted int64 `json:"files_inserted" yaml:"files_inserted"` // records created
	BlocksRead    int64 `json:"blocks_read" yaml:"blocks_read"`       // blocks returned by readers
	BytesRead     int64 `json:"bytes_read" yaml:"bytes_read"`         // real bytes consumed, excluding padding
	HashCalls     int64 `json:"hash_calls" yaml:"hash_calls"`         // invocations of the hash strategy
	Relocations   int64 `json:"relocations" yaml:"relocations"`       // records evicted and walked deeper
	NodesCreated  int64 `json:"nodes_created" yaml:"nodes_created"`   // trie nodes allocated, root included
}

func (s *ScanStats) addFile()       { atomic.AddInt64(&s.FilesInserted, 1) }
func (s *ScanStats) addRelocation() { atomic.AddInt64(&s.Relocations, 1) }
func (s *ScanStats) addNode()       { atomic.AddInt64(&s.NodesCreated, 1) }

func (s *ScanStats) addBlock(realBytes int) {
	atomic.AddInt64(&s.BlocksRead, 1)
	atomic.AddInt64(&s.BytesRead, int64(realBytes))
	atomic.AddInt64(&s.HashCalls, 1)
}

// Snapshot returns a consistent-enough copy of the counters
func (s *ScanStats) Snapshot() ScanStats {
	return ScanStats{
		FilesInserted: atomic.LoadInt64(&s.FilesInserted),
		BlocksRead:    atomic.LoadInt64(&s.BlocksRead),
		BytesRead:     atomic.LoadInt64(&s.BytesRead),
		HashCalls:     atomic.LoadInt64(&s.HashCalls),
		Relocations:   atomic.LoadInt64(&s.Relocations),
		NodesCreated:  atomic.LoadInt64(&s.NodesCreated),
	}
}

// Reset zeroes all counters
func (s *ScanStats) Reset() {
	atomic.StoreInt64(&s.FilesInserted, 0)
	atomic.StoreInt64(&s.BlocksRead, 0)
	atomic.StoreInt64(&s.BytesRead, 0)
	atomic.StoreInt64(&s.HashCalls, 0)
	atomic.StoreInt64(&s.Relocations, 0)
	atomic.StoreInt64(&s.NodesCreated, 0)
}

// String renders the counters on one line
func (s ScanStats) String() string {
	return fmt.Sprintf("files=%d blocks=%d bytes=%s hashes=%d relocations=%d nodes=%d",
		s.FilesInserted, s.BlocksRead, FormatHumanSize(s.BytesRead), s.HashCalls, s.Relocations, s.NodesCreated)
}
