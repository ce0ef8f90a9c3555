package indexer

// ScanBackend is the pluggable capability the Separator Indexer scans
// through: "a capability {scan, maxChunkSize, isReady}, an interface, not
// inheritance" (spec.md §9). The scalar backend and the word-parallel
// backend below share identical semantics; they differ only in
// throughput, exactly as spec.md §4.3 describes.
type ScanBackend interface {
	// Scan scans chunk for delimiter/LF bytes outside quoted spans,
	// starting from prevInQuote. quotation is the configured quote byte.
	Scan(chunk []byte, delimiter, quotation byte, prevInQuote bool) ScanResult
	// MaxChunkSize is the largest chunk this backend accepts in one Scan
	// call; callers are responsible for splitting larger input.
	MaxChunkSize() int
	// IsReady reports whether this backend's runtime prerequisites (CPU
	// features, in practice) are satisfied.
	IsReady() bool
	// Name identifies the backend for diagnostics ("scalar", "simd", ...).
	Name() string
}

// maxChunkSize bounds a single Scan call to keep packed offsets (30 bits)
// well within range, matching spec.md's "1 GiB cap per chunk" note with
// ample headroom.
const maxChunkSize = 64 << 20 // 64 MiB
