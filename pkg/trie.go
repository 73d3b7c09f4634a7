package dupetrie

import (
	"fmt"
	"strconv"

	"github.com/golang/groupcache/lru"
)

// fileRecord is one candidate file while the trie is being built
type fileRecord struct {
	path   string
	reader *BlockReader
}

// trieNode is a vertex of the content trie. Children are addressed by arena
// index so records can move between nodes without back-pointers.
type trieNode struct {
	children map[string]int
	members  []*fileRecord
}

func (n *trieNode) isFreshLeaf() bool {
	return len(n.children) == 0 && len(n.members) == 0
}

// relocation is a record evicted from node that must walk on from there
type relocation struct {
	node   int
	record *fileRecord
}

// ContentTrie groups files by content. Each file is played into the trie one
// block hash at a time and only as deep as needed to tell it apart from the
// files already present, so a byte is never read twice and files that differ
// early are never read to the end.
//
// A record resting at depth d has block hashes equal to the edge labels on
// the path from the root. A record with unread data only ever rests alone in
// a leaf; every other node holds exhausted records only.
//
// A resting record keeps its descriptor and read-ahead buffer so a later
// relocation continues where it stopped. At most maxOpen readers stay open;
// the least recently placed one is released when the limit is exceeded.
//
// ContentTrie is not safe for concurrent use.
type ContentTrie struct {
	blockSize   int
	hash        HashStrategy
	lengthAware bool
	maxOpen     int
	stats       *ScanStats

	nodes   []trieNode // arena, index 0 is the root
	paths   map[string]struct{}
	pending []relocation
	open    *lru.Cache // records whose reader holds a descriptor
	err     error

	releaseErr error
}

// TrieOption configures optional ContentTrie behaviour
type TrieOption func(*ContentTrie)

// WithLengthAware makes a short final block's real length part of its edge
// key, so trailing NUL bytes can no longer be confused with padding
func WithLengthAware(enabled bool) TrieOption {
	return func(t *ContentTrie) {
		t.lengthAware = enabled
	}
}

// WithMaxOpenFiles bounds the number of descriptors the trie keeps open
// between inserts. Values below 1 keep the default.
func WithMaxOpenFiles(limit int) TrieOption {
	return func(t *ContentTrie) {
		if limit > 0 {
			t.maxOpen = limit
		}
	}
}

// WithStats records work counters into stats
func WithStats(stats *ScanStats) TrieOption {
	return func(t *ContentTrie) {
		if stats != nil {
			t.stats = stats
		}
	}
}

// NewContentTrie creates an empty trie for the given block size and strategy
func NewContentTrie(blockSize int, strategy HashStrategy, opts ...TrieOption) (*ContentTrie, error) {
	if err := ValidateBlockSize(blockSize); err != nil {
		return nil, err
	}
	if strategy == nil {
		return nil, fmt.Errorf("%w: hash strategy is required", ErrInvalidConfig)
	}

	t := &ContentTrie{
		blockSize: blockSize,
		hash:      strategy,
		maxOpen:   DefaultMaxOpenFiles,
		stats:     &ScanStats{},
		paths:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.open = lru.New(t.maxOpen)
	t.open.OnEvicted = t.releaseReader
	t.newNode()
	return t, nil
}

// Len returns the number of files inserted
func (t *ContentTrie) Len() int {
	return len(t.paths)
}

// NodeCount returns the number of nodes allocated, root included
func (t *ContentTrie) NodeCount() int {
	return len(t.nodes)
}

// Stats returns the trie's work counters
func (t *ContentTrie) Stats() *ScanStats {
	return t.stats
}

// Err returns the error that failed the trie, if any
func (t *ContentTrie) Err() error {
	return t.err
}

func (t *ContentTrie) newNode() int {
	t.nodes = append(t.nodes, trieNode{})
	t.stats.addNode()
	return len(t.nodes) - 1
}

// child follows the edge labelled key from parent, creating it if absent
func (t *ContentTrie) child(parent int, key string) int {
	if next, ok := t.nodes[parent].children[key]; ok {
		return next
	}
	next := t.newNode()
	if t.nodes[parent].children == nil {
		t.nodes[parent].children = make(map[string]int)
	}
	t.nodes[parent].children[key] = next
	return next
}

func (t *ContentTrie) edgeKey(block []byte, reader *BlockReader) string {
	key := t.hash(block)
	if t.lengthAware && reader.LastBlockLen() < t.blockSize {
		key += "#" + strconv.Itoa(reader.LastBlockLen())
	}
	return key
}

// Insert adds a file to the trie, relocating any resident records that can
// no longer stay where they are. It returns once every cascading relocation
// has been processed. Inserting a path twice is a no-op.
//
// A read failure is fatal: the trie keeps the error and returns it from every
// later call.
func (t *ContentTrie) Insert(path string) error {
	if t.err != nil {
		return t.err
	}
	if _, seen := t.paths[path]; seen {
		debugLog(DebugTrie, "%s already inserted", path)
		return nil
	}

	reader, err := NewBlockReader(path, t.blockSize)
	if err != nil {
		return fmt.Errorf("failed to insert %s: %w", path, err)
	}
	t.paths[path] = struct{}{}
	t.stats.addFile()

	t.pending = append(t.pending[:0], relocation{node: rootNode, record: &fileRecord{path: path, reader: reader}})
	for len(t.pending) > 0 {
		last := len(t.pending) - 1
		task := t.pending[last]
		t.pending = t.pending[:last]

		if err := t.place(task.node, task.record); err != nil {
			t.pending = t.pending[:0]
			t.err = fmt.Errorf("failed to insert %s: %w", path, err)
			return t.err
		}
	}

	if IsDebugEnabled(DebugExtraValidation) {
		t.validate()
	}
	return nil
}

// place walks record down from node at until it reaches a fresh leaf or runs
// out of data. Every non-fresh node on the way, the final one included, gives
// up its unfinished members to the relocation worklist.
func (t *ContentTrie) place(at int, record *fileRecord) error {
	current := at
	blocks := 0
	for !t.nodes[current].isFreshLeaf() {
		t.evictUnfinished(current)
		if record.reader.IsEnd() {
			break
		}

		block, err := record.reader.ReadNextBlock()
		if err != nil {
			return err
		}
		t.stats.addBlock(record.reader.LastBlockLen())
		blocks++

		current = t.child(current, t.edgeKey(block, record.reader))
	}

	t.nodes[current].members = append(t.nodes[current].members, record)
	debugLog(DebugTrie, "%s rests at node %d after %d more blocks (end=%t)",
		record.path, current, blocks, record.reader.IsEnd())

	return t.retainOpen(record)
}

// retainOpen marks record as the most recently placed open reader. Adding
// past maxOpen releases the least recently placed one. A reader that closed
// itself at end of stream leaves the cache.
func (t *ContentTrie) retainOpen(record *fileRecord) error {
	if record.reader.IsOpen() {
		t.open.Add(record, nil)
	} else {
		t.open.Remove(record)
	}
	err := t.releaseErr
	t.releaseErr = nil
	return err
}

func (t *ContentTrie) releaseReader(key lru.Key, _ interface{}) {
	record := key.(*fileRecord)
	debugLog(DebugTrie, "releasing %s at offset %d", record.path, record.reader.Offset())
	if err := record.reader.Release(); err != nil && t.releaseErr == nil {
		t.releaseErr = err
	}
}

// evictUnfinished moves every member of node that still has unread data onto
// the relocation worklist
func (t *ContentTrie) evictUnfinished(node int) {
	members := t.nodes[node].members
	kept := members[:0]
	for _, member := range members {
		if member.reader.IsEnd() {
			kept = append(kept, member)
			continue
		}
		t.pending = append(t.pending, relocation{node: node, record: member})
		t.stats.addRelocation()
		debugLog(DebugTrie, "evicting %s from node %d", member.path, node)
	}
	for i := len(kept); i < len(members); i++ {
		members[i] = nil
	}
	t.nodes[node].members = kept
}

// validate panics if any node other than a single-member leaf holds a record
// with unread data
func (t *ContentTrie) validate() {
	if len(t.pending) != 0 {
		panic(fmt.Sprintf("dupetrie: %d relocations left pending after insert", len(t.pending)))
	}
	if t.open.Len() > t.maxOpen {
		panic(fmt.Sprintf("dupetrie: %d readers open, limit is %d", t.open.Len(), t.maxOpen))
	}
	for index := range t.nodes {
		node := &t.nodes[index]
		if len(node.children) == 0 && len(node.members) <= 1 {
			continue
		}
		for _, member := range node.members {
			if !member.reader.IsEnd() {
				panic(fmt.Sprintf("dupetrie: node %d holds unfinished record %s alongside %d members and %d children",
					index, member.path, len(node.members), len(node.children)))
			}
		}
	}
}

// EqualGroups returns one DuplicateGroup per node holding more than one file.
// Group and path order is unspecified. Size is the largest member's length,
// which only differs between members when trailing NULs met zero padding.
func (t *ContentTrie) EqualGroups() ([]DuplicateGroup, error) {
	if t.err != nil {
		return nil, t.err
	}

	var groups []DuplicateGroup
	for index := range t.nodes {
		members := t.nodes[index].members
		if len(members) < 2 {
			continue
		}

		files := make([]string, 0, len(members))
		var size int64
		for _, record := range members {
			if !record.reader.IsEnd() {
				panic(fmt.Sprintf("dupetrie: group at node %d contains unfinished record %s", index, record.path))
			}
			files = append(files, record.path)
			if offset := record.reader.Offset(); offset > size {
				size = offset
			}
		}
		groups = append(groups, DuplicateGroup{
			Files: files,
			Count: len(files),
			Size:  size,
		})
	}
	return groups, nil
}

// Groups returns the paths of every equality group
func (t *ContentTrie) Groups() ([][]string, error) {
	groups, err := t.EqualGroups()
	if err != nil {
		return nil, err
	}
	result := make([][]string, 0, len(groups))
	for _, group := range groups {
		result = append(result, group.Files)
	}
	return result, nil
}

// Close releases every descriptor still held by a record, including records
// left on the worklist by a failed insert
func (t *ContentTrie) Close() error {
	t.open.Clear()
	firstErr := t.releaseErr
	t.releaseErr = nil
	for index := range t.nodes {
		for _, member := range t.nodes[index].members {
			if err := member.reader.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
