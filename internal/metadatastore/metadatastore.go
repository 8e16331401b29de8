// Package metadatastore is the thin file-backed record keyed by logical
// path described in spec §4.4. It holds no locking of its own — callers in
// internal/pathstore hold the keyed path lock for the duration of any
// read-modify-write sequence.
package metadatastore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/duskstore/filetracker/internal/fterrors"
)

const (
	dirPerm  = 0o750
	filePerm = 0o640
)

// Compression names the encoding stored_bytes is in on disk.
type Compression string

const (
	CompressionNone Compression = "None"
	CompressionGzip Compression = "Gzip"
)

// Record is the per-path metadata record described in spec §3. Serialized
// as a self-describing JSON object with exactly these keys.
type Record struct {
	Version          time.Time   `json:"version"`
	Checksum         [32]byte    `json:"checksum"`
	Compression      Compression `json:"compression"`
	DecompressedSize uint64      `json:"decompressed_size"`
}

// Store reads and writes Records as JSON files under a metadata root.
type Store struct {
	root string
}

// New creates a Store rooted at root, creating the directory if needed.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, fmt.Errorf("metadatastore: create root %q: %w", root, err)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("metadatastore: resolve root: %w", err)
	}
	return &Store{root: absRoot}, nil
}

// Root returns the metadata root directory.
func (s *Store) Root() string { return s.root }

func (s *Store) pathFor(logicalPath string) string {
	return filepath.Join(s.root, filepath.FromSlash(logicalPath))
}

// Read loads and deserializes the record at path. Returns fterrors.ErrNotFound
// if no record exists, or fterrors.ErrInvalidData if the file exists but does
// not parse — these are distinguished so callers never mistake corruption
// for absence.
func (s *Store) Read(logicalPath string) (Record, error) {
	return ReadAt(s.pathFor(logicalPath))
}

// recordFields lists the JSON keys every Record must carry. Unlike Go's
// json.Unmarshal, which silently zero-fills an absent key, the Rust
// original's serde derive errors on any missing non-default field — a
// truncated or hand-edited record is invalid data, not a zero-valued one.
var recordFields = []string{"version", "checksum", "compression", "decompressed_size"}

// ReadAt loads and deserializes the record at an absolute filesystem path.
// Exposed for internal/lister, which walks the metadata tree directly
// rather than through logical-path lookups.
func ReadAt(absPath string) (Record, error) {
	raw, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, fterrors.ErrNotFound
		}
		return Record{}, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Record{}, fmt.Errorf("%w: %v", fterrors.ErrInvalidData, err)
	}
	for _, key := range recordFields {
		if _, ok := fields[key]; !ok {
			return Record{}, fmt.Errorf("%w: missing field %q", fterrors.ErrInvalidData, key)
		}
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("%w: %v", fterrors.ErrInvalidData, err)
	}
	return rec, nil
}

// Write creates parent directories as needed and replaces the record at path.
func (s *Store) Write(logicalPath string, rec Record) error {
	dest := s.pathFor(logicalPath)
	if err := os.MkdirAll(filepath.Dir(dest), dirPerm); err != nil {
		return fmt.Errorf("metadatastore: mkdir %q: %w", filepath.Dir(dest), err)
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("metadatastore: marshal record: %w", err)
	}
	return os.WriteFile(dest, raw, filePerm)
}

// Delete removes the record at path.
func (s *Store) Delete(logicalPath string) error {
	if err := os.Remove(s.pathFor(logicalPath)); err != nil {
		if os.IsNotExist(err) {
			return fterrors.ErrNotFound
		}
		return err
	}
	return nil
}
