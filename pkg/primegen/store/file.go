package store

import (
	"bufio"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	perrors "github.com/klanderfri/primegen/pkg/primegen/errors"
)

// FileConfig configures a FileStore.
// Zero values select the defaults documented on each field.
type FileConfig struct {
	// Dir is the storage directory. Default: the working directory.
	Dir string

	// Prefix is the file name prefix. Default: "PrimeNumbers".
	Prefix string

	// Extension is the file name extension. Default: ".txt".
	Extension string

	// Capacity is the maximum primes per file. Default: 10000.
	Capacity int
}

func (c FileConfig) withDefaults() FileConfig {
	if c.Dir == "" {
		c.Dir = "."
	}
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.Extension == "" {
		c.Extension = DefaultExtension
	}
	if c.Capacity <= 0 {
		c.Capacity = DefaultCapacity
	}
	return c
}

// FileStore persists primes as text files named <prefix><index><extension>,
// one decimal prime per line.
type FileStore struct {
	cfg FileConfig

	nextIndex int // chunk currently being filled, or the next to create
	inCurrent int // primes already in the chunk at nextIndex
	total     int // primes across all trusted chunks
	lastWrite time.Time
	closed    bool
}

// NewFileStore opens a file store, scanning the directory to recover the
// write position from any existing chunks.
//
// Returns a CorruptionError when an existing chunk holds more primes than
// the configured capacity.
func NewFileStore(cfg FileConfig) (*FileStore, error) {
	s := &FileStore{cfg: cfg.withDefaults(), lastWrite: time.Now()}

	infos, err := s.List()
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if info.Count > s.cfg.Capacity {
			return nil, &perrors.CorruptionError{
				FileIndex: info.Index,
				Path:      info.Path,
				Reason:    fmt.Sprintf("holds %d primes, capacity is %d", info.Count, s.cfg.Capacity),
			}
		}
		s.total += info.Count
	}

	if len(infos) == 0 {
		s.nextIndex = 1
		return s, nil
	}
	last := infos[len(infos)-1]
	if last.Count < s.cfg.Capacity {
		s.nextIndex = last.Index
		s.inCurrent = last.Count
	} else {
		s.nextIndex = last.Index + 1
	}
	return s, nil
}

// Capacity implements Store.
func (s *FileStore) Capacity() int {
	return s.cfg.Capacity
}

// SetStartTime implements Store.
func (s *FileStore) SetStartTime(t time.Time) {
	s.lastWrite = t
}

// path returns the chunk file path for index.
func (s *FileStore) path(index int) string {
	return filepath.Join(s.cfg.Dir, s.cfg.Prefix+strconv.Itoa(index)+s.cfg.Extension)
}

// List implements Store.
func (s *FileStore) List() ([]FileInfo, error) {
	if s.closed {
		return nil, ErrStoreClosed
	}

	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("scan storage directory: %w", err)
	}

	byIndex := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, s.cfg.Prefix) || !strings.HasSuffix(name, s.cfg.Extension) {
			continue
		}
		middle := strings.TrimSuffix(strings.TrimPrefix(name, s.cfg.Prefix), s.cfg.Extension)
		index, err := strconv.Atoi(middle)
		if err != nil || index < 1 {
			continue
		}
		byIndex[index] = filepath.Join(s.cfg.Dir, name)
	}

	// Only the consecutive prefix from index 1 is trusted. History past a
	// gap cannot be verified against the sequence before it.
	var infos []FileInfo
	for index := 1; ; index++ {
		path, ok := byIndex[index]
		if !ok {
			break
		}
		count, err := countLines(path)
		if err != nil {
			return nil, err
		}
		infos = append(infos, FileInfo{Index: index, Path: path, Count: count})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Index < infos[j].Index })
	return infos, nil
}

// countLines counts the non-blank lines of a chunk file.
func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	return count, nil
}

// Read implements Store.
func (s *FileStore) Read(index int) ([]*big.Int, error) {
	if s.closed {
		return nil, ErrStoreClosed
	}

	path := s.path(index)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var primes []*big.Int
	line := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		p, ok := new(big.Int).SetString(text, 10)
		if !ok {
			return nil, &perrors.CorruptionError{
				FileIndex: index,
				Path:      path,
				Reason:    fmt.Sprintf("line %d is not a decimal integer: %q", line, text),
			}
		}
		primes = append(primes, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if len(primes) > s.cfg.Capacity {
		return nil, &perrors.CorruptionError{
			FileIndex: index,
			Path:      path,
			Reason:    fmt.Sprintf("holds %d primes, capacity is %d", len(primes), s.cfg.Capacity),
		}
	}
	return primes, nil
}

// Append implements Store.
func (s *FileStore) Append(primes []*big.Int) ([]WriteEvent, error) {
	if s.closed {
		return nil, ErrStoreClosed
	}

	var events []WriteEvent
	for len(primes) > 0 {
		if s.inCurrent >= s.cfg.Capacity {
			return events, &perrors.ConflictError{
				FileIndex: s.nextIndex,
				Path:      s.path(s.nextIndex),
				Reason:    "overfilled file: already at capacity",
			}
		}

		room := s.cfg.Capacity - s.inCurrent
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
		if s.inCurrent == s.cfg.Capacity {
			s.nextIndex++
			s.inCurrent = 0
		}
	}
	return events, nil
}

// writeChunk appends batch to the current chunk file, creating it first when
// the chunk is new. batch always fits the chunk's remaining room.
func (s *FileStore) writeChunk(batch []*big.Int) (WriteEvent, error) {
	path := s.path(s.nextIndex)

	if s.inCurrent == 0 {
		// A brand-new chunk must not resurrect stale content.
		if fi, err := os.Stat(path); err == nil && fi.Size() > 0 {
			return WriteEvent{}, &perrors.ConflictError{
				FileIndex: s.nextIndex,
				Path:      path,
				Reason:    "expected empty file but found existing content",
			}
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return WriteEvent{}, fmt.Errorf("open %s: %w", path, err)
	}

	w := bufio.NewWriter(f)
	for _, p := range batch {
		if _, err := w.WriteString(p.String()); err != nil {
			f.Close()
			return WriteEvent{}, fmt.Errorf("write %s: %w", path, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			f.Close()
			return WriteEvent{}, fmt.Errorf("write %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return WriteEvent{}, fmt.Errorf("flush %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return WriteEvent{}, fmt.Errorf("sync %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return WriteEvent{}, fmt.Errorf("close %s: %w", path, err)
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
func (s *FileStore) Last() (*big.Int, error) {
	if s.closed {
		return nil, ErrStoreClosed
	}

	infos, err := s.List()
	if err != nil {
		return nil, err
	}
	for i := len(infos) - 1; i >= 0; i-- {
		if infos[i].Count == 0 {
			continue
		}
		primes, err := s.Read(infos[i].Index)
		if err != nil {
			return nil, err
		}
		return primes[len(primes)-1], nil
	}
	return nil, ErrEmpty
}

// Close implements Store.
func (s *FileStore) Close() error {
	s.closed = true
	return nil
}
