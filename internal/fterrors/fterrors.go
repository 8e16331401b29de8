// Package fterrors declares the engine-wide error taxonomy from spec §7.
// Every layer returns one of these sentinels (wrapped with context via
// fmt.Errorf("%w", ...) where useful) so callers can classify failures with
// errors.Is regardless of which component produced them.
package fterrors

import "errors"

var (
	// ErrNotFound: the requested logical path or blob is absent.
	ErrNotFound = errors.New("filetracker: not found")

	// ErrInvalidData: a metadata record or refcount file on disk did not parse.
	ErrInvalidData = errors.New("filetracker: invalid data")

	// ErrBadRequest: the caller supplied malformed input (e.g. non-hex checksum).
	ErrBadRequest = errors.New("filetracker: bad request")

	// ErrNotADirectory: a list operation's prefix resolved to a file.
	ErrNotADirectory = errors.New("filetracker: not a directory")
)
