// Package id provides centralized ID generation for the tab engine.
//
// This package offers type-safe ULID generation with:
//   - Lexicographic sortability: Enables recency ordering without timestamps
//   - Prefixed types: Type-specific prefixes for debugging (snap_*, res_*, req_*)
//   - Type safety: Separate types prevent ID misuse
//   - Performance: ~2μs per ULID under the entropy lock
//
// Design Principles:
//   - ULIDs only: Single ID format for everything the engine mints itself
//     (tab and group IDs arrive as UUIDs from the registry and stay opaque)
//   - K-sortable: Newest-first resurrection ordering falls out of the encoding
//   - Debuggable: Prefixes make logs readable
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ============================================================================
// Type-Safe ID Wrappers
// ============================================================================

// RevisionID identifies a snapshot capture
type RevisionID string

// RecordID identifies a resurrection record
type RecordID string

// RequestID identifies an API request
type RequestID string

// ============================================================================
// ID Prefixes (for debugging and type identification)
// ============================================================================

const (
	RevisionPrefix = "snap"
	RecordPrefix   = "res"
	RequestPrefix  = "req"
)

// ============================================================================
// ULID Generator (Primary)
// ============================================================================

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	// Default generator with cryptographically secure entropy
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator
func NewGenerator() *Generator {
	return &Generator{
		entropy: rand.Reader,
	}
}

// NewGeneratorWithEntropy creates a generator with custom entropy source
// Useful for testing with deterministic entropy
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: entropy,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// ============================================================================
// Typed ID Generators
// ============================================================================

// NewRevisionID generates a new snapshot revision ID
func NewRevisionID() RevisionID {
	return RevisionID(Default().GenerateWithPrefix(RevisionPrefix))
}

// NewRecordID generates a new resurrection record ID
func NewRecordID() RecordID {
	return RecordID(Default().GenerateWithPrefix(RecordPrefix))
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

// ============================================================================
// Type Conversion and Validation
// ============================================================================

// String methods for ID types
func (id RevisionID) String() string { return string(id) }
func (id RecordID) String() string   { return string(id) }
func (id RequestID) String() string  { return string(id) }

// IsValid checks if an ID string is a valid ULID, bare or prefixed
func IsValid(id string) bool {
	_, err := Parse(id)
	return err == nil
}

// Parse parses a ULID string, accepting a type prefix
func Parse(id string) (ulid.ULID, error) {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		id = id[i+1:]
	}
	return ulid.Parse(id)
}

// Timestamp extracts the timestamp from a ULID
func Timestamp(id string) (time.Time, error) {
	parsed, err := Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
