// Package store provides durable, ordered, chunked persistence of primes.
//
// Primes are persisted in fixed-capacity chunks identified by a 1-based
// consecutive index. A chunk is complete when it holds exactly Capacity
// primes; at most the highest-indexed chunk may be partial. Backends:
//   - FileStore: one text file per chunk, one decimal prime per line
//   - SQLiteStore: one database file, one row per prime
//   - MemoryStore: in-memory chunks for testing
package store

import (
	"errors"
	"math/big"
	"time"
)

// DefaultCapacity is the default number of primes per chunk.
const DefaultCapacity = 10000

// Default file naming for FileStore.
const (
	DefaultPrefix    = "PrimeNumbers"
	DefaultExtension = ".txt"
)

// Store persists the prime sequence in fixed-capacity chunks.
// Implementations are single-writer; the generation engine owns the store
// for the duration of a run.
type Store interface {
	// Capacity returns the maximum primes per chunk.
	Capacity() int

	// List returns the trusted chunks in ascending index order: the maximal
	// consecutive index prefix starting at 1. A gap at index k means chunks
	// k and above are ignored even if present.
	List() ([]FileInfo, error)

	// Read returns all primes in the chunk at index, in stored order.
	// Returns a CorruptionError when the chunk holds more than Capacity
	// primes or a value fails to parse.
	Read(index int) ([]*big.Int, error)

	// Append writes primes into the current partial chunk, rolling over to
	// newly created chunks as needed. It refuses to fill a chunk that
	// unexpectedly already has content and refuses to append into a chunk
	// at or above Capacity (both ConflictError). One WriteEvent is returned
	// per chunk touched, in write order.
	Append(primes []*big.Int) ([]WriteEvent, error)

	// Last returns the final prime of the last non-empty chunk.
	// Returns ErrEmpty when no primes are stored.
	Last() (*big.Int, error)

	// SetStartTime sets the reference instant for the first WriteEvent's
	// Elapsed measurement.
	SetStartTime(t time.Time)

	// Close releases any resources.
	Close() error
}

// FileInfo describes one chunk.
type FileInfo struct {
	// Index is the 1-based chunk index.
	Index int

	// Path locates the chunk for operator remediation.
	Path string

	// Count is the number of primes currently in the chunk.
	Count int
}

// WriteEvent describes one successful chunk write.
type WriteEvent struct {
	// FileIndex is the chunk written to.
	FileIndex int

	// Start and End are the 0-based ordinals, in the overall prime
	// sequence, of the first and last prime written (End inclusive).
	Start int
	End   int

	// CompletedAt is the wall-clock completion time of the write.
	CompletedAt time.Time

	// Elapsed is the duration since the previous write, or since the
	// caller-supplied start time for the first write.
	Elapsed time.Duration
}

// ErrEmpty indicates the store holds no primes.
var ErrEmpty = errors.New("store holds no primes")

// ErrStoreClosed indicates the store has been closed.
var ErrStoreClosed = errors.New("store closed")
