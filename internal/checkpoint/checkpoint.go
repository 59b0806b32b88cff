// Package checkpoint persists a per-file fingerprint and stats
// snapshot so a re-run of the importer can skip files that haven't
// changed since the last successful ingest. It is caller-side state:
// the core streaming façade (internal/stream) has no notion of runs
// or resumption, only of a single open/read/close session.
package checkpoint

import (
	"encoding/binary"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/zeebo/xxh3"
	"go.mongodb.org/mongo-driver/v2/bson"

	"csvdoc/internal/stats"
)

// sampleWindow bounds how many bytes from the head and tail of a
// mapped image contribute to its fingerprint, so a multi-gigabyte
// file can be checked for changes without rehashing every byte on
// every run.
const sampleWindow = 64 * 1024

// Record is what gets persisted per source file.
type Record struct {
	Fingerprint uint64         `bson:"fingerprint"`
	Size        int64          `bson:"size"`
	Stats       stats.Snapshot `bson:"stats"`
}

// storedRecord is Record's on-disk form. BSON has no unsigned 64-bit
// type, so the fingerprint is stored as the int64 with the same bits.
type storedRecord struct {
	Fingerprint int64          `bson:"fingerprint"`
	Size        int64          `bson:"size"`
	Stats       stats.Snapshot `bson:"stats"`
}

// Fingerprint hashes the head and tail of data (each bounded by
// sampleWindow) along with its total length. An append, truncation,
// or edit near either end changes the fingerprint; an edit confined
// to the untouched middle of a very large file does not, which is an
// accepted tradeoff for not re-reading the whole file on every run.
func Fingerprint(data []byte) uint64 {
	h := xxh3.New()
	n := len(data)
	head := data
	if n > sampleWindow {
		head = data[:sampleWindow]
	}
	h.Write(head)
	if n > sampleWindow {
		h.Write(data[n-sampleWindow:])
	}
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(n))
	h.Write(lenBuf[:])
	return h.Sum64()
}

// Store is a pebble-backed checkpoint database keyed by source file
// path (or any other caller-chosen identity string).
type Store struct {
	db *pebble.DB
}

// Open opens, creating if necessary, the checkpoint database at path.
func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Load returns the checkpoint stored for key, and whether one exists.
func (s *Store) Load(key string) (Record, bool, error) {
	raw, closer, err := s.db.Get([]byte(key))
	if err == pebble.ErrNotFound {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("checkpoint: get %s: %w", key, err)
	}
	defer closer.Close()

	var stored storedRecord
	if err := bson.Unmarshal(raw, &stored); err != nil {
		return Record{}, false, fmt.Errorf("checkpoint: decode %s: %w", key, err)
	}
	return Record{Fingerprint: uint64(stored.Fingerprint), Size: stored.Size, Stats: stored.Stats}, true, nil
}

// Save persists rec under key, overwriting any prior checkpoint.
func (s *Store) Save(key string, rec Record) error {
	raw, err := bson.Marshal(storedRecord{Fingerprint: int64(rec.Fingerprint), Size: rec.Size, Stats: rec.Stats})
	if err != nil {
		return fmt.Errorf("checkpoint: encode %s: %w", key, err)
	}
	if err := s.db.Set([]byte(key), raw, pebble.Sync); err != nil {
		return fmt.Errorf("checkpoint: set %s: %w", key, err)
	}
	return nil
}

// Unchanged reports whether data's fingerprint and length match the
// last saved checkpoint for key. A caller uses this to decide whether
// a source file can be skipped on this run.
func (s *Store) Unchanged(key string, data []byte) (bool, error) {
	rec, ok, err := s.Load(key)
	if err != nil || !ok {
		return false, err
	}
	return rec.Fingerprint == Fingerprint(data) && rec.Size == int64(len(data)), nil
}
