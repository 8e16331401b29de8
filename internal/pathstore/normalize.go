package pathstore

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/minio/sha256-simd"

	"github.com/duskstore/filetracker/internal/fterrors"
)

// normalized is the output of the three-case PUT normalization table in
// spec §4.5: a readable source of the bytes to persist (always
// gzip-compressed), the content's checksum, and its decompressed size.
// cleanup releases any temporary file backing storedBytes and must be
// called exactly once after storedBytes has been fully consumed.
type normalized struct {
	storedBytes      io.Reader
	checksum         [32]byte
	decompressedSize uint64
	cleanup          func()
}

// putInput carries the caller-supplied PUT parameters ahead of normalization.
type putInput struct {
	content          io.Reader
	contentIsGzipped bool
	checksum         *[32]byte
	logicalSize      *uint64
}

// normalize classifies a putInput per the three-row table in spec §4.5 and
// produces a normalized result. It never holds the path lock: the work here
// (hashing, compressing, or fully decoding a gzip stream) is deliberately
// done before PathStore.Put takes its critical section.
func normalize(in putInput) (normalized, error) {
	switch {
	case !in.contentIsGzipped:
		return normalizeRaw(in.content)
	case in.checksum != nil && in.logicalSize != nil:
		return normalized{
			storedBytes:      in.content,
			checksum:         *in.checksum,
			decompressedSize: *in.logicalSize,
			cleanup:          func() {},
		}, nil
	default:
		return normalizeGzippedUntrusted(in.content)
	}
}

// normalizeRaw handles the first row: hash the raw content while streaming
// it through a gzip encoder into a spill file, so the derived checksum and
// size are known before BlobStore.Write ever sees the bytes.
func normalizeRaw(content io.Reader) (normalized, error) {
	tmp, err := os.CreateTemp("", "filetracker-put-*")
	if err != nil {
		return normalized{}, fmt.Errorf("pathstore: create spill file: %w", err)
	}
	cleanup := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}

	hasher := sha256.New()
	gz, err := gzip.NewWriterLevel(tmp, gzip.BestCompression)
	if err != nil {
		cleanup()
		return normalized{}, fmt.Errorf("pathstore: init gzip writer: %w", err)
	}

	n, err := io.Copy(gz, io.TeeReader(content, hasher))
	if err != nil {
		cleanup()
		return normalized{}, fmt.Errorf("pathstore: compress content: %w", err)
	}
	if err := gz.Close(); err != nil {
		cleanup()
		return normalized{}, fmt.Errorf("pathstore: flush gzip writer: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return normalized{}, fmt.Errorf("pathstore: rewind spill file: %w", err)
	}

	var checksum [32]byte
	copy(checksum[:], hasher.Sum(nil))

	return normalized{
		storedBytes:      tmp,
		checksum:         checksum,
		decompressedSize: uint64(n),
		cleanup:          cleanup,
	}, nil
}

// normalizeGzippedUntrusted handles the third row: the caller claims the
// content is already gzip-compressed but supplied neither checksum nor
// logical_size, so both must be derived by decoding the stream end to end.
// The original compressed bytes are spilled to a temp file unchanged while
// being decoded in parallel, so what gets stored is bit-identical to what
// arrived.
func normalizeGzippedUntrusted(content io.Reader) (normalized, error) {
	tmp, err := os.CreateTemp("", "filetracker-put-*")
	if err != nil {
		return normalized{}, fmt.Errorf("pathstore: create spill file: %w", err)
	}
	cleanup := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}

	tee := io.TeeReader(content, tmp)
	gz, err := gzip.NewReader(tee)
	if err != nil {
		cleanup()
		return normalized{}, fmt.Errorf("%w: not a valid gzip stream: %v", fterrors.ErrBadRequest, err)
	}
	defer gz.Close()

	hasher := sha256.New()
	n, err := io.Copy(hasher, gz)
	if err != nil {
		cleanup()
		return normalized{}, fmt.Errorf("%w: malformed gzip stream: %v", fterrors.ErrBadRequest, err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return normalized{}, fmt.Errorf("pathstore: rewind spill file: %w", err)
	}

	var checksum [32]byte
	copy(checksum[:], hasher.Sum(nil))

	return normalized{
		storedBytes:      tmp,
		checksum:         checksum,
		decompressedSize: uint64(n),
		cleanup:          cleanup,
	}, nil
}
