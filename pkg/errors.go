package dupetrie

import "errors"

// Sentinel errors for package dupetrie.
// These errors can be checked with errors.Is() for specific error handling.
var (
	// Configuration errors, raised before any scanning I/O
	ErrInvalidConfig        = errors.New("invalid configuration")
	ErrUnknownHashAlgorithm = errors.New("unknown hash algorithm")
	ErrInvalidBlockSize     = errors.New("block size must be at least 1")
	ErrNotDirectory         = errors.New("expected directory")

	// File errors
	ErrNotRegularFile = errors.New("expected regular file")

	// Scan errors
	ErrScanInterrupted = errors.New("scan interrupted by shutdown")
)
