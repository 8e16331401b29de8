// Package blobstore implements the reference-counted, content-addressed
// blob pool described in spec §4.3. Blobs are keyed by the SHA-256 of their
// decompressed content and stored under a two-level hex fan-out directory;
// a sidecar ".count" file tracks how many metadata records reference each
// blob so it can be reclaimed when the last reference is dropped.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/duskstore/filetracker/internal/fterrors"
	"github.com/duskstore/filetracker/internal/hexcodec"
	"github.com/duskstore/filetracker/internal/keyedlock"
)

// dirPerm and filePerm follow the teacher's convention: group-readable
// directories, owner-writable files, ignored on Windows where ACLs govern
// access instead.
const (
	dirPerm  = 0o750
	filePerm = 0o640
)

// Store is a reference-counted content-addressed blob pool rooted at a
// single directory on the local filesystem.
type Store struct {
	root  string
	locks *keyedlock.Map[string]
}

// New creates a Store rooted at root, creating the directory if needed.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, fmt.Errorf("blobstore: create root %q: %w", root, err)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("blobstore: resolve root: %w", err)
	}
	return &Store{root: absRoot, locks: keyedlock.New[string]()}, nil
}

// Close stops the store's background lock janitor.
func (s *Store) Close() {
	s.locks.Close()
}

func (s *Store) blobPath(hash [32]byte) string {
	hex := hexcodec.Encode(hash[:])
	return filepath.Join(s.root, hex[0:2], hex[2:])
}

func countPath(blobPath string) string { return blobPath + ".count" }

func readCount(path string) (uint64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("blobstore: invalid refcount file %q: %w: %v", path, fterrors.ErrInvalidData, err)
	}
	return n, nil
}

func writeCount(path string, n uint64) error {
	return os.WriteFile(path, []byte(strconv.FormatUint(n, 10)), filePerm)
}

// Write streams data into the blob identified by hash under a per-hash
// exclusive lock, returning true if a new blob was created and false if an
// existing blob's refcount was incremented instead. Both outcomes leave the
// blob present with its refcount reflecting one additional reference.
func (s *Store) Write(ctx context.Context, hash [32]byte, data io.Reader) (isNew bool, err error) {
	hex := hexcodec.Encode(hash[:])
	guard, err := s.locks.Acquire(ctx, hex)
	if err != nil {
		return false, err
	}
	defer guard.Release()

	blob := s.blobPath(hash)
	count := countPath(blob)

	if _, statErr := os.Stat(blob); statErr == nil {
		n, err := readCount(count)
		if err != nil {
			return false, err
		}
		if err := writeCount(count, n+1); err != nil {
			return false, fmt.Errorf("blobstore: increment refcount: %w", err)
		}
		return false, nil
	} else if !os.IsNotExist(statErr) {
		return false, fmt.Errorf("blobstore: stat blob: %w", statErr)
	}

	if err := os.MkdirAll(filepath.Dir(blob), dirPerm); err != nil {
		return false, fmt.Errorf("blobstore: mkdir %q: %w", filepath.Dir(blob), err)
	}

	// Suffix the temp name with a uuid (rather than the teacher's fixed
	// ".tmp") so two writers racing on the same hash before the keyed lock
	// is held never collide on one temp file.
	tmp := blob + ".tmp." + uuid.NewString()
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return false, fmt.Errorf("blobstore: open tmp %q: %w", tmp, err)
	}
	_, werr := io.Copy(f, data)
	cerr := f.Close()
	if werr != nil {
		os.Remove(tmp) //nolint:errcheck
		return false, fmt.Errorf("blobstore: stream write: %w", werr)
	}
	if cerr != nil {
		os.Remove(tmp) //nolint:errcheck
		return false, fmt.Errorf("blobstore: flush: %w", cerr)
	}

	if err := os.Rename(tmp, blob); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return false, fmt.Errorf("blobstore: rename to %q: %w", blob, err)
	}
	if err := writeCount(count, 1); err != nil {
		// The blob is visible but unreferenced until the caller retries or
		// the scrubber reclaims it — this is the crash-window the
		// durability model in spec §4.3 explicitly tolerates.
		return true, fmt.Errorf("blobstore: write refcount: %w", err)
	}
	return true, nil
}

// Read returns the full contents of the blob identified by hash.
func (s *Store) Read(hash [32]byte) ([]byte, error) {
	data, err := os.ReadFile(s.blobPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fterrors.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Size returns the on-disk byte size of the blob identified by hash,
// without reading its content.
func (s *Store) Size(hash [32]byte) (int64, error) {
	info, err := os.Stat(s.blobPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fterrors.ErrNotFound
		}
		return 0, err
	}
	return info.Size(), nil
}

// Decref drops one reference to the blob identified by hash. When the
// refcount reaches zero both the blob and its sidecar are removed.
func (s *Store) Decref(ctx context.Context, hash [32]byte) error {
	hex := hexcodec.Encode(hash[:])
	guard, err := s.locks.Acquire(ctx, hex)
	if err != nil {
		return err
	}
	defer guard.Release()

	blob := s.blobPath(hash)
	count := countPath(blob)

	n, err := readCount(count)
	if err != nil {
		if os.IsNotExist(err) {
			return fterrors.ErrNotFound
		}
		return err
	}

	if n <= 1 {
		if err := os.Remove(count); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("blobstore: remove refcount: %w", err)
		}
		if err := os.Remove(blob); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("blobstore: remove blob: %w", err)
		}
		return nil
	}
	return writeCount(count, n-1)
}
