package dupetrie

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/crc32"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
	"github.com/zeebo/xxh3"
)

// HashStrategy maps a block of bytes to a fixed-length lowercase hex string.
// The value depends only on the bytes supplied.
type HashStrategy func(block []byte) string

// HashAlgorithm represents a hash algorithm configuration
type HashAlgorithm struct {
	Name    string
	Size    int // digest size in bytes, the hex form is twice as long
	NewFunc func() hash.Hash
}

// hashAlgorithms is the closed set of supported algorithms, keyed by name
var hashAlgorithms = map[string]*HashAlgorithm{}

func registerHashAlgorithm(name string, size int, newFunc func() hash.Hash) {
	if _, exists := hashAlgorithms[name]; exists {
		panic("hash algorithm registered twice: " + name)
	}
	hashAlgorithms[name] = &HashAlgorithm{Name: name, Size: size, NewFunc: newFunc}
}

func init() {
	registerHashAlgorithm("crc32", crc32.Size, func() hash.Hash { return crc32.NewIEEE() })
	registerHashAlgorithm("hash_combine", 8, func() hash.Hash { return &hashCombine{} })
	registerHashAlgorithm("md5", md5.Size, md5.New)
	registerHashAlgorithm("sha1", sha1.Size, sha1.New)
	registerHashAlgorithm("sha256", sha256.Size, sha256.New)
	registerHashAlgorithm("sha512", sha512.Size, sha512.New)
	registerHashAlgorithm("blake3", 32, func() hash.Hash { return blake3.New() })
	registerHashAlgorithm("xxh3", 8, func() hash.Hash { return xxh3.New() })
}

// GetHashAlgorithm returns the hash algorithm configuration for the given name
func GetHashAlgorithm(name string) (*HashAlgorithm, error) {
	algorithm, ok := hashAlgorithms[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %w: %q (supported: %s)", ErrInvalidConfig, ErrUnknownHashAlgorithm,
			name, strings.Join(AvailableHashAlgorithms(), ", "))
	}
	return algorithm, nil
}

// GetHashStrategy resolves an algorithm name to a block hashing strategy
func GetHashStrategy(name string) (HashStrategy, error) {
	algorithm, err := GetHashAlgorithm(name)
	if err != nil {
		return nil, err
	}
	return algorithm.Strategy(), nil
}

// AvailableHashAlgorithms returns the names of all registered algorithms in sorted order
func AvailableHashAlgorithms() []string {
	names := make([]string, 0, len(hashAlgorithms))
	for name := range hashAlgorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateHashAlgorithm validates that a hash algorithm is supported
func ValidateHashAlgorithm(algorithm string) error {
	_, err := GetHashAlgorithm(algorithm)
	return err
}

// HexLen returns the length of the hex form of this algorithm's digest
func (ha *HashAlgorithm) HexLen() int {
	return ha.Size * 2
}

// Sum hashes a single block and returns the digest as a hex string
func (ha *HashAlgorithm) Sum(block []byte) string {
	hasher := ha.NewFunc()
	hasher.Write(block)
	return hex.EncodeToString(hasher.Sum(nil))
}

// Strategy returns a HashStrategy that reuses one hasher between calls.
// The returned function is not safe for concurrent use.
func (ha *HashAlgorithm) Strategy() HashStrategy {
	hasher := ha.NewFunc()
	digest := make([]byte, 0, ha.Size)
	return func(block []byte) string {
		hasher.Reset()
		hasher.Write(block)
		digest = hasher.Sum(digest[:0])
		return hex.EncodeToString(digest)
	}
}

// hashCombine reproduces boost::hash_range over a char sequence on a 64-bit
// platform: every byte is widened as a signed char and folded into the seed
// with the murmur2-derived hash_combine step.
type hashCombine struct {
	seed uint64
}

const (
	hashCombineMul   uint64 = 0xc6a4a7935bd1e995
	hashCombineShift        = 47
	hashCombineAdd   uint64 = 0xe6546b64
)

func (h *hashCombine) Write(p []byte) (int, error) {
	seed := h.seed
	for _, b := range p {
		k := uint64(int64(int8(b)))
		k *= hashCombineMul
		k ^= k >> hashCombineShift
		k *= hashCombineMul

		seed ^= k
		seed *= hashCombineMul
		seed += hashCombineAdd
	}
	h.seed = seed
	return len(p), nil
}

func (h *hashCombine) Sum(b []byte) []byte {
	return binary.BigEndian.AppendUint64(b, h.seed)
}

func (h *hashCombine) Sum64() uint64 { return h.seed }
func (h *hashCombine) Reset()        { h.seed = 0 }
func (h *hashCombine) Size() int     { return 8 }
func (h *hashCombine) BlockSize() int {
	return 1
}
