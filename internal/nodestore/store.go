// Package nodestore provides the disk-backed coordinate store used by the
// geometry passes. Coordinates are kept in a single memory-mapped sparse
// file so lookups are O(1) and resident memory stays flat regardless of
// how many nodes the input contains.
package nodestore

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sync"

	mmap "github.com/edsrzf/mmap-go"
	"go.uber.org/zap"

	"github.com/wegman-software/pbf2json-go/internal/logger"
)

const (
	// Each slot: lat (float64) + lon (float64), big-endian = 16 bytes
	entrySize = 16
	// Maximum node ID supported. 12.5 billion slots give a 200GB address
	// space, comfortably past current planet-file ID allocation. The file
	// is sparse, so disk usage grows only with slots actually written.
	maxNodeID = 12_500_000_000
)

// Entry is one coordinate record for a bulk write
type Entry struct {
	ID  int64
	Lat float64
	Lon float64
}

// Lookup is one result of a bulk fetch
type Lookup struct {
	Lat   float64
	Lon   float64
	Found bool
}

// Options configures a store
type Options struct {
	// Path of the backing file. Empty means a private temp file.
	Path string
	// Retain keeps the backing file on Close instead of deleting it
	Retain bool
}

// Store maps node IDs to coordinate pairs on disk. The slot for node i
// lives at byte offset i*16. Writes go through PutBatch, which serializes
// writer transactions behind a mutex; reads are lock-free and may run
// concurrently with each other once the write phase has finished. The
// write phase and the read phase of one store must not overlap.
type Store struct {
	file   *os.File
	data   mmap.MMap
	path   string
	retain bool

	mu sync.Mutex // serializes write transactions
}

// Open creates the backing file and maps it. The caller owns the store
// and must Close it on every exit path.
func Open(opts Options) (*Store, error) {
	var f *os.File
	var err error

	if opts.Path == "" {
		f, err = os.CreateTemp("", "pbf2json-coords-*.bin")
		if err != nil {
			return nil, fmt.Errorf("failed to create temp store file: %w", err)
		}
	} else {
		f, err = os.OpenFile(opts.Path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to create store file: %w", err)
		}
	}

	size := int64(maxNodeID) * entrySize

	// Truncate to full size (creates a sparse file on Linux)
	if err := f.Truncate(size); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("failed to size store file: %w", err)
	}

	data, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("failed to mmap store file: %w", err)
	}

	return &Store{
		file:   f,
		data:   data,
		path:   f.Name(),
		retain: opts.Retain,
	}, nil
}

// Path returns the location of the backing file
func (s *Store) Path() string {
	return s.path
}

// PutBatch writes all entries as one transaction. Existing entries for the
// same ID are overwritten (last write wins). Out-of-range IDs are ignored.
func (s *Store) PutBatch(entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return fmt.Errorf("store is closed")
	}

	for _, e := range entries {
		if e.ID < 0 || e.ID >= maxNodeID {
			continue
		}
		off := e.ID * entrySize
		binary.BigEndian.PutUint64(s.data[off:], math.Float64bits(e.Lat))
		binary.BigEndian.PutUint64(s.data[off+8:], math.Float64bits(e.Lon))
	}
	return nil
}

// Get retrieves a single coordinate pair
func (s *Store) Get(id int64) (lat, lon float64, ok bool) {
	if id < 0 || id >= maxNodeID {
		return 0, 0, false
	}

	off := id * entrySize
	latBits := binary.BigEndian.Uint64(s.data[off:])
	lonBits := binary.BigEndian.Uint64(s.data[off+8:])

	// An unwritten slot reads as all zeros. (0,0) is a valid location but
	// essentially unused in practice; we accept that edge case, matching
	// the treatment of a genuinely absent node.
	if latBits == 0 && lonBits == 0 {
		return 0, 0, false
	}

	lat = math.Float64frombits(latBits)
	lon = math.Float64frombits(lonBits)
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		// Corrupt slot; treated as not found, never as an error
		return 0, 0, false
	}
	return lat, lon, true
}

// GetBatch fetches coordinates for an ordered list of IDs. The result has
// the same length and order as ids; absent and malformed slots report
// Found=false. Safe to call concurrently from many goroutines.
func (s *Store) GetBatch(ids []int64) []Lookup {
	result := make([]Lookup, len(ids))
	for i, id := range ids {
		lat, lon, ok := s.Get(id)
		result[i] = Lookup{Lat: lat, Lon: lon, Found: ok}
	}
	return result
}

// Sync forces pending writes to stable storage. Must be called after the
// write phase completes, before any reader relies on the data.
func (s *Store) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil
	}
	if err := s.data.Flush(); err != nil {
		return fmt.Errorf("failed to sync store: %w", err)
	}
	return nil
}

// Close unmaps and closes the store. The backing file is deleted unless
// retention was requested, in which case the retained location is logged.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return nil
	}

	var errs []error
	if err := s.data.Flush(); err != nil {
		errs = append(errs, err)
	}
	if err := s.data.Unmap(); err != nil {
		errs = append(errs, err)
	}
	s.data = nil

	if err := s.file.Close(); err != nil {
		errs = append(errs, err)
	}

	log := logger.Get()
	if s.retain {
		log.Info("Coordinate store retained", zap.String("path", s.path))
	} else {
		if err := os.Remove(s.path); err != nil {
			log.Warn("Failed to remove coordinate store", zap.String("path", s.path), zap.Error(err))
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
