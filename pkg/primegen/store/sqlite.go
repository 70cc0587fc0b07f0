package store

import (
	"database/sql"
	"fmt"
	"math/big"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	perrors "github.com/klanderfri/primegen/pkg/primegen/errors"
)

// SQLiteStore persists primes to a single SQLite database, one row per
// prime, grouped into fixed-capacity chunks by chunk_index. Chunk semantics
// match FileStore; FileInfo.Path points into the database file.
type SQLiteStore struct {
	db       *sql.DB
	path     string
	capacity int

	nextIndex int
	inCurrent int
	total     int
	lastWrite time.Time
	closed    bool
}

// NewSQLiteStore opens a SQLite-backed store at path (or ":memory:" for
// testing) with the given chunk capacity. capacity <= 0 selects the default.
func NewSQLiteStore(path string, capacity int) (*SQLiteStore, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS primes (
			chunk_index INTEGER NOT NULL,
			line        INTEGER NOT NULL,
			value       TEXT NOT NULL,
			PRIMARY KEY (chunk_index, line)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	s := &SQLiteStore{db: db, path: path, capacity: capacity, nextIndex: 1, lastWrite: time.Now()}

	infos, err := s.List()
	if err != nil {
		db.Close()
		return nil, err
	}
	for _, info := range infos {
		if info.Count > capacity {
			db.Close()
			return nil, &perrors.CorruptionError{
				FileIndex: info.Index,
				Path:      info.Path,
				Reason:    fmt.Sprintf("holds %d primes, capacity is %d", info.Count, capacity),
			}
		}
		s.total += info.Count
	}
	if len(infos) > 0 {
		last := infos[len(infos)-1]
		if last.Count < capacity {
			s.nextIndex = last.Index
			s.inCurrent = last.Count
		} else {
			s.nextIndex = last.Index + 1
		}
	}
	return s, nil
}

// Capacity implements Store.
func (s *SQLiteStore) Capacity() int {
	return s.capacity
}

// SetStartTime implements Store.
func (s *SQLiteStore) SetStartTime(t time.Time) {
	s.lastWrite = t
}

// chunkPath renders a chunk location for error payloads and FileInfo.
func (s *SQLiteStore) chunkPath(index int) string {
	return fmt.Sprintf("%s#chunk%d", s.path, index)
}

// List implements Store.
func (s *SQLiteStore) List() ([]FileInfo, error) {
	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT chunk_index, COUNT(*)
		FROM primes
		GROUP BY chunk_index
		ORDER BY chunk_index
	`)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var index, count int
		if err := rows.Scan(&index, &count); err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		counts[index] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}

	// Same trust rule as FileStore: the consecutive prefix from index 1.
	var infos []FileInfo
	for index := 1; ; index++ {
		count, ok := counts[index]
		if !ok {
			break
		}
		infos = append(infos, FileInfo{Index: index, Path: s.chunkPath(index), Count: count})
	}
	return infos, nil
}

// Read implements Store.
func (s *SQLiteStore) Read(index int) ([]*big.Int, error) {
	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT value FROM primes
		WHERE chunk_index = ?
		ORDER BY line
	`, index)
	if err != nil {
		return nil, fmt.Errorf("read chunk %d: %w", index, err)
	}
	defer rows.Close()

	var primes []*big.Int
	line := 0
	for rows.Next() {
		line++
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("scan chunk %d: %w", index, err)
		}
		p, ok := new(big.Int).SetString(value, 10)
		if !ok {
			return nil, &perrors.CorruptionError{
				FileIndex: index,
				Path:      s.chunkPath(index),
				Reason:    fmt.Sprintf("row %d is not a decimal integer: %q", line, value),
			}
		}
		primes = append(primes, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read chunk %d: %w", index, err)
	}

	if len(primes) > s.capacity {
		return nil, &perrors.CorruptionError{
			FileIndex: index,
			Path:      s.chunkPath(index),
			Reason:    fmt.Sprintf("holds %d primes, capacity is %d", len(primes), s.capacity),
		}
	}
	return primes, nil
}

// Append implements Store.
func (s *SQLiteStore) Append(primes []*big.Int) ([]WriteEvent, error) {
	if s.closed {
		return nil, ErrStoreClosed
	}

	var events []WriteEvent
	for len(primes) > 0 {
		if s.inCurrent >= s.capacity {
			return events, &perrors.ConflictError{
				FileIndex: s.nextIndex,
				Path:      s.chunkPath(s.nextIndex),
				Reason:    "overfilled chunk: already at capacity",
			}
		}

		room := s.capacity - s.inCurrent
		take := room
		if take > len(primes) {
			take = len(primes)
		}

		event, err := s.writeChunk(primes[:take])
		if err != nil {
			return events, err
		}
		events = append(events, event)

		primes = primes[take:]
		if s.inCurrent == s.capacity {
			s.nextIndex++
			s.inCurrent = 0
		}
	}
	return events, nil
}

// writeChunk inserts batch into the current chunk in one transaction.
func (s *SQLiteStore) writeChunk(batch []*big.Int) (WriteEvent, error) {
	if s.inCurrent == 0 {
		var count int
		err := s.db.QueryRow(`SELECT COUNT(*) FROM primes WHERE chunk_index = ?`, s.nextIndex).Scan(&count)
		if err != nil {
			return WriteEvent{}, fmt.Errorf("probe chunk %d: %w", s.nextIndex, err)
		}
		if count > 0 {
			return WriteEvent{}, &perrors.ConflictError{
				FileIndex: s.nextIndex,
				Path:      s.chunkPath(s.nextIndex),
				Reason:    "expected empty chunk but found existing rows",
			}
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return WriteEvent{}, fmt.Errorf("begin append: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO primes (chunk_index, line, value) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return WriteEvent{}, fmt.Errorf("prepare append: %w", err)
	}
	for i, p := range batch {
		if _, err := stmt.Exec(s.nextIndex, s.inCurrent+i+1, p.String()); err != nil {
			stmt.Close()
			tx.Rollback()
			return WriteEvent{}, fmt.Errorf("append into chunk %d: %w", s.nextIndex, err)
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return WriteEvent{}, fmt.Errorf("commit append: %w", err)
	}

	now := time.Now()
	event := WriteEvent{
		FileIndex:   s.nextIndex,
		Start:       s.total,
		End:         s.total + len(batch) - 1,
		CompletedAt: now,
		Elapsed:     now.Sub(s.lastWrite),
	}
	s.lastWrite = now
	s.total += len(batch)
	s.inCurrent += len(batch)
	return event, nil
}

// Last implements Store.
func (s *SQLiteStore) Last() (*big.Int, error) {
	if s.closed {
		return nil, ErrStoreClosed
	}

	var value string
	err := s.db.QueryRow(`
		SELECT value FROM primes
		ORDER BY chunk_index DESC, line DESC
		LIMIT 1
	`).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read last prime: %w", err)
	}

	p, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, &perrors.CorruptionError{
			FileIndex: s.nextIndex,
			Path:      s.chunkPath(s.nextIndex),
			Reason:    fmt.Sprintf("stored value is not a decimal integer: %q", value),
		}
	}
	return p, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
