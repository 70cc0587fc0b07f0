package store

import (
	"fmt"
	"math/big"
	"time"

	perrors "github.com/klanderfri/primegen/pkg/primegen/errors"
)

// MemoryStore is an in-memory chunk store for testing.
// Data is lost when the process exits.
type MemoryStore struct {
	capacity  int
	chunks    [][]*big.Int // chunks[i] holds chunk index i+1
	total     int
	lastWrite time.Time
	closed    bool
}

// NewMemoryStore creates an in-memory store with the given chunk capacity.
// capacity <= 0 selects the default.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{capacity: capacity, lastWrite: time.Now()}
}

// Seed installs pre-existing chunks, bypassing Append's conflict checks.
// Test helper for building arbitrary on-"disk" layouts.
func (m *MemoryStore) Seed(chunks ...[]*big.Int) {
	m.chunks = nil
	m.total = 0
	for _, chunk := range chunks {
		copied := make([]*big.Int, len(chunk))
		copy(copied, chunk)
		m.chunks = append(m.chunks, copied)
		m.total += len(copied)
	}
}

// Capacity implements Store.
func (m *MemoryStore) Capacity() int {
	return m.capacity
}

// SetStartTime implements Store.
func (m *MemoryStore) SetStartTime(t time.Time) {
	m.lastWrite = t
}

func (m *MemoryStore) chunkPath(index int) string {
	return fmt.Sprintf("memory#chunk%d", index)
}

// List implements Store.
func (m *MemoryStore) List() ([]FileInfo, error) {
	if m.closed {
		return nil, ErrStoreClosed
	}
	var infos []FileInfo
	for i, chunk := range m.chunks {
		infos = append(infos, FileInfo{Index: i + 1, Path: m.chunkPath(i + 1), Count: len(chunk)})
	}
	return infos, nil
}

// Read implements Store.
func (m *MemoryStore) Read(index int) ([]*big.Int, error) {
	if m.closed {
		return nil, ErrStoreClosed
	}
	if index < 1 || index > len(m.chunks) {
		return nil, fmt.Errorf("chunk %d does not exist", index)
	}
	chunk := m.chunks[index-1]
	if len(chunk) > m.capacity {
		return nil, &perrors.CorruptionError{
			FileIndex: index,
			Path:      m.chunkPath(index),
			Reason:    fmt.Sprintf("holds %d primes, capacity is %d", len(chunk), m.capacity),
		}
	}
	out := make([]*big.Int, len(chunk))
	copy(out, chunk)
	return out, nil
}

// Append implements Store.
func (m *MemoryStore) Append(primes []*big.Int) ([]WriteEvent, error) {
	if m.closed {
		return nil, ErrStoreClosed
	}

	var events []WriteEvent
	for len(primes) > 0 {
		index := len(m.chunks)
		if index > 0 && len(m.chunks[index-1]) > m.capacity {
			return events, &perrors.ConflictError{
				FileIndex: index,
				Path:      m.chunkPath(index),
				Reason:    "overfilled chunk: already above capacity",
			}
		}
		if index == 0 || len(m.chunks[index-1]) == m.capacity {
			m.chunks = append(m.chunks, nil)
			index++
		}

		chunk := m.chunks[index-1]
		room := m.capacity - len(chunk)
		take := room
		if take > len(primes) {
			take = len(primes)
		}

		m.chunks[index-1] = append(chunk, primes[:take]...)

		now := time.Now()
		events = append(events, WriteEvent{
			FileIndex:   index,
			Start:       m.total,
			End:         m.total + take - 1,
			CompletedAt: now,
			Elapsed:     now.Sub(m.lastWrite),
		})
		m.lastWrite = now
		m.total += take
		primes = primes[take:]
	}
	return events, nil
}

// Last implements Store.
func (m *MemoryStore) Last() (*big.Int, error) {
	if m.closed {
		return nil, ErrStoreClosed
	}
	for i := len(m.chunks) - 1; i >= 0; i-- {
		if len(m.chunks[i]) > 0 {
			return m.chunks[i][len(m.chunks[i])-1], nil
		}
	}
	return nil, ErrEmpty
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.closed = true
	return nil
}
