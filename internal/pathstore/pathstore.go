// Package pathstore implements the coordinator described in spec §4.5: the
// per-path metadata overlay on top of blobstore's content-addressed blob
// pool. It owns the version-conditional put/delete semantics and the
// three-case PUT normalization (see normalize.go).
package pathstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/duskstore/filetracker/internal/blobstore"
	"github.com/duskstore/filetracker/internal/fterrors"
	"github.com/duskstore/filetracker/internal/keyedlock"
	"github.com/duskstore/filetracker/internal/lister"
	"github.com/duskstore/filetracker/internal/metadatastore"
)

// Store coordinates a BlobStore and a MetadataStore under a keyed lock over
// logical paths. All mutating operations hold that lock for their full
// critical section — unlike the source this is modeled on (see spec §9),
// the guard here is genuinely held for read-metadata + decref + blob-write +
// metadata-commit, not dropped early.
type Store struct {
	blobs *blobstore.Store
	meta  *metadatastore.Store
	locks *keyedlock.Map[string]
}

// New constructs a Store over an already-opened blob pool and metadata root.
func New(blobs *blobstore.Store, meta *metadatastore.Store) *Store {
	return &Store{blobs: blobs, meta: meta, locks: keyedlock.New[string]()}
}

// Close stops the store's background lock janitor. The underlying
// BlobStore and MetadataStore are owned by the caller and not closed here.
func (s *Store) Close() {
	s.locks.Close()
}

// Get returns a path's metadata together with its blob content exactly as
// stored (gzip-compressed); the bytes are not decompressed here.
func (s *Store) Get(ctx context.Context, path string) (metadatastore.Record, []byte, error) {
	guard, err := s.locks.Acquire(ctx, path)
	if err != nil {
		return metadatastore.Record{}, nil, err
	}
	defer guard.Release()

	rec, err := s.meta.Read(path)
	if err != nil {
		return metadatastore.Record{}, nil, err
	}
	data, err := s.blobs.Read(rec.Checksum)
	if err != nil {
		return metadatastore.Record{}, nil, err
	}
	return rec, data, nil
}

// Head returns a path's metadata together with the on-disk (stored, not
// decompressed) size of its blob.
func (s *Store) Head(ctx context.Context, path string) (metadatastore.Record, int64, error) {
	guard, err := s.locks.Acquire(ctx, path)
	if err != nil {
		return metadatastore.Record{}, 0, err
	}
	defer guard.Release()

	rec, err := s.meta.Read(path)
	if err != nil {
		return metadatastore.Record{}, 0, err
	}
	size, err := s.blobs.Size(rec.Checksum)
	if err != nil {
		return metadatastore.Record{}, 0, err
	}
	return rec, size, nil
}

// PutRequest carries the caller-supplied arguments to Put, ahead of the
// three-case normalization described in spec §4.5.
type PutRequest struct {
	Path             string
	Version          time.Time
	Content          io.Reader
	ContentIsGzipped bool
	Checksum         *[32]byte
	LogicalSize      *uint64
}

// Put writes or replaces the metadata record and referenced blob for a
// logical path, subject to last-writer-by-version-wins ordering: a PUT
// whose version is strictly older than the existing record's is silently
// dropped (ties admit overwrite).
//
// Normalization runs before the path lock is taken — it may fully decode a
// gzip stream in the untrusted-checksum case, and that cost must not extend
// the critical section (spec §9).
func (s *Store) Put(ctx context.Context, req PutRequest) error {
	norm, err := normalize(putInput{
		content:          req.Content,
		contentIsGzipped: req.ContentIsGzipped,
		checksum:         req.Checksum,
		logicalSize:      req.LogicalSize,
	})
	if err != nil {
		return err
	}
	defer norm.cleanup()

	guard, err := s.locks.Acquire(ctx, req.Path)
	if err != nil {
		return err
	}
	defer guard.Release()

	existing, err := s.meta.Read(req.Path)
	switch {
	case err == nil:
		if existing.Version.After(req.Version) {
			return nil
		}
		if decrefErr := s.blobs.Decref(ctx, existing.Checksum); decrefErr != nil {
			return fmt.Errorf("pathstore: decref superseded blob: %w", decrefErr)
		}
	case errors.Is(err, fterrors.ErrNotFound):
		// No prior record: proceed to create one.
	default:
		return err
	}

	if _, err := s.blobs.Write(ctx, norm.checksum, norm.storedBytes); err != nil {
		return fmt.Errorf("pathstore: write blob: %w", err)
	}

	rec := metadatastore.Record{
		Version:          req.Version,
		Checksum:         norm.checksum,
		Compression:      metadatastore.CompressionGzip,
		DecompressedSize: norm.decompressedSize,
	}
	if err := s.meta.Write(req.Path, rec); err != nil {
		return fmt.Errorf("pathstore: write metadata: %w", err)
	}
	return nil
}

// Delete removes a path's metadata and decrefs its blob, but only if the
// existing record's version does not exceed maxVersion; otherwise it is a
// no-op that still returns success.
func (s *Store) Delete(ctx context.Context, path string, maxVersion time.Time) error {
	guard, err := s.locks.Acquire(ctx, path)
	if err != nil {
		return err
	}
	defer guard.Release()

	rec, err := s.meta.Read(path)
	if err != nil {
		return err
	}
	if rec.Version.After(maxVersion) {
		return nil
	}
	if err := s.blobs.Decref(ctx, rec.Checksum); err != nil {
		return fmt.Errorf("pathstore: decref deleted blob: %w", err)
	}
	return s.meta.Delete(path)
}

// List opens a depth-first iterator over prefix, yielding entries whose
// version does not exceed maxVersion. Fails eagerly if prefix does not
// resolve to an existing directory.
func (s *Store) List(prefix string, maxVersion time.Time) (*lister.Lister, error) {
	return lister.New(s.meta.Root(), prefix, func(rec metadatastore.Record) bool {
		return !rec.Version.After(maxVersion)
	})
}
