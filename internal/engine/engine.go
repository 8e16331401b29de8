// Package engine wires blobstore, metadatastore, pathstore and lister into
// the single capability surface described in spec §6.1 — the boundary the
// HTTP adapter is coded against instead of any one storage package
// directly.
package engine

import (
	"context"
	"path/filepath"
	"time"

	"github.com/duskstore/filetracker/internal/blobstore"
	"github.com/duskstore/filetracker/internal/lister"
	"github.com/duskstore/filetracker/internal/metadatastore"
	"github.com/duskstore/filetracker/internal/pathstore"
)

// PutRequest mirrors pathstore.PutRequest; re-declared here so internal/httpapi
// depends only on this package, not on pathstore directly.
type PutRequest = pathstore.PutRequest

// Record is the per-path metadata record returned by Get/Head/List.
type Record = metadatastore.Record

// Lister is the handle returned by List; callers drive it with Next until
// ok is false.
type Lister = lister.Lister

// Engine is the capability set the HTTP adapter depends on. A concrete
// *Store value is the only implementation, but keeping this as an
// interface lets tests substitute a fake without dragging in the
// filesystem.
type Engine interface {
	Get(ctx context.Context, path string) (Record, []byte, error)
	Head(ctx context.Context, path string) (Record, int64, error)
	Put(ctx context.Context, req PutRequest) error
	Delete(ctx context.Context, path string, maxVersion time.Time) error
	List(prefix string, maxVersion time.Time) (*Lister, error)
}

// Store is the concrete Engine: a content-addressed blob pool, a
// path→metadata overlay, and the coordinator tying them together,
// each rooted under one storage directory.
type Store struct {
	blobs *blobstore.Store
	meta  *metadatastore.Store
	paths *pathstore.Store
}

var _ Engine = (*Store)(nil)

// Layout names the two top-level subdirectories under the configured
// storage root, matching the persisted layout in spec §6.2.
const (
	blobsDir    = "blobs"
	metadataDir = "metadata"
)

// Open creates (or reopens) an Engine rooted at root, creating the blobs/
// and metadata/ subdirectories as needed.
func Open(root string) (*Store, error) {
	blobs, err := blobstore.New(filepath.Join(root, blobsDir))
	if err != nil {
		return nil, err
	}
	meta, err := metadatastore.New(filepath.Join(root, metadataDir))
	if err != nil {
		blobs.Close()
		return nil, err
	}
	return &Store{
		blobs: blobs,
		meta:  meta,
		paths: pathstore.New(blobs, meta),
	}, nil
}

// Close releases the background janitor goroutines held by the blob pool
// and the path lock.
func (s *Store) Close() {
	s.paths.Close()
	s.blobs.Close()
}

func (s *Store) Get(ctx context.Context, path string) (Record, []byte, error) {
	return s.paths.Get(ctx, path)
}

func (s *Store) Head(ctx context.Context, path string) (Record, int64, error) {
	return s.paths.Head(ctx, path)
}

func (s *Store) Put(ctx context.Context, req PutRequest) error {
	return s.paths.Put(ctx, req)
}

func (s *Store) Delete(ctx context.Context, path string, maxVersion time.Time) error {
	return s.paths.Delete(ctx, path, maxVersion)
}

func (s *Store) List(prefix string, maxVersion time.Time) (*Lister, error) {
	return s.paths.List(prefix, maxVersion)
}

