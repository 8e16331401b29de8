// Package lister implements the depth-first recursive directory walk over
// the metadata tree described in spec §4.5/§4.6. The iterator is single
// pass, forward only, and not restartable.
package lister

import (
	"os"
	"path/filepath"

	"github.com/duskstore/filetracker/internal/fterrors"
	"github.com/duskstore/filetracker/internal/metadatastore"
)

// Item is one yielded entry: its path relative to the metadata root (not
// to the listed prefix) and its parsed record.
type Item struct {
	Path   string
	Record metadatastore.Record
}

// frame tracks one open directory level: its entries and a cursor into them.
type frame struct {
	dir     string
	entries []os.DirEntry
	idx     int
}

// Lister walks metadataRoot/prefix depth-first, yielding files whose record
// deserializes successfully and whose Version is <= maxVersion. Directories
// are always descended; non-file, non-directory entries are skipped.
type Lister struct {
	metaRoot   string
	maxVersion func(metadatastore.Record) bool
	stack      []frame
}

// New opens the directory at metaRoot/prefix and returns a Lister over it.
// Fails eagerly if that directory does not exist or is not a directory.
func New(metaRoot, prefix string, includeIf func(metadatastore.Record) bool) (*Lister, error) {
	start := filepath.Join(metaRoot, filepath.FromSlash(prefix))

	info, err := os.Stat(start)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fterrors.ErrNotFound
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fterrors.ErrNotADirectory
	}

	entries, err := os.ReadDir(start)
	if err != nil {
		return nil, err
	}

	return &Lister{
		metaRoot:   metaRoot,
		maxVersion: includeIf,
		stack:      []frame{{dir: start, entries: entries}},
	}, nil
}

// Next advances the iterator, returning the next yielded item, or ok=false
// once the traversal is exhausted. A non-nil error means an I/O failure was
// encountered mid-traversal; Next may still be called again afterward.
func (l *Lister) Next() (item Item, err error, ok bool) {
	for len(l.stack) > 0 {
		top := &l.stack[len(l.stack)-1]

		if top.idx >= len(top.entries) {
			l.stack = l.stack[:len(l.stack)-1]
			continue
		}

		e := top.entries[top.idx]
		top.idx++
		full := filepath.Join(top.dir, e.Name())

		ft, ftErr := e.Info()
		if ftErr != nil {
			return Item{}, ftErr, true
		}

		switch {
		case ft.IsDir():
			sub, err := os.ReadDir(full)
			if err != nil {
				return Item{}, err, true
			}
			l.stack = append(l.stack, frame{dir: full, entries: sub})

		case ft.Mode().IsRegular():
			rec, err := metadatastore.ReadAt(full)
			if err != nil {
				return Item{}, err, true
			}
			if !l.maxVersion(rec) {
				continue
			}
			rel, err := filepath.Rel(l.metaRoot, full)
			if err != nil {
				return Item{}, err, true
			}
			return Item{Path: filepath.ToSlash(rel), Record: rec}, nil, true

		default:
			// symlink, socket, device, etc. — skip.
		}
	}
	return Item{}, nil, false
}
