package httpapi

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/duskstore/filetracker/internal/engine"
	"github.com/duskstore/filetracker/internal/fterrors"
	"github.com/duskstore/filetracker/internal/hexcodec"
	"github.com/duskstore/filetracker/internal/metadatastore"
)

// setFileHeaders renders a metadata record onto a response the way the
// original filetracker server's file_response_builder does: Content-Encoding
// and Logical-Size depend on the record's compression, SHA256-Checksum and
// Last-Modified are always present.
func setFileHeaders(w http.ResponseWriter, rec engine.Record, storedSize int64) {
	switch rec.Compression {
	case metadatastore.CompressionGzip:
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Logical-Size", strconv.FormatUint(rec.DecompressedSize, 10))
	default:
		w.Header().Set("Logical-Size", strconv.FormatInt(storedSize, 10))
	}
	w.Header().Set("SHA256-Checksum", hexcodec.Encode(rec.Checksum[:]))
	w.Header().Set("Last-Modified", formatLastModified(rec.Version))
	w.Header().Set("Content-Type", "application/octet-stream")
}

func writeEngineError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, fterrors.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, fterrors.ErrBadRequest):
		w.WriteHeader(http.StatusBadRequest)
	case errors.Is(err, fterrors.ErrNotADirectory):
		w.WriteHeader(http.StatusBadRequest)
	case errors.Is(err, fterrors.ErrInvalidData):
		logger.Error("corrupt record on disk", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
	default:
		logger.Error("unclassified engine error", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// GetFile serves GET /files/{path...}: the stored blob bytes sent as-is
// (gzip-compressed, per this engine's storage model, and marked with
// Content-Encoding: gzip) plus metadata headers.
func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	rec, data, err := h.engine.Get(r.Context(), path)
	if err != nil {
		h.metrics.GetsFailed.Add(1)
		writeEngineError(w, h.logger, err)
		return
	}
	h.metrics.GetsTotal.Add(1)
	h.metrics.BytesRead.Add(int64(len(data)))
	setFileHeaders(w, rec, int64(len(data)))
	w.Write(data) //nolint:errcheck
}

// HeadFile serves HEAD /files/{path...}: metadata headers only, Content-Length
// reflecting the stored (possibly compressed) byte count, no body.
func (h *Handler) HeadFile(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	rec, storedSize, err := h.engine.Head(r.Context(), path)
	if err != nil {
		h.metrics.HeadsFailed.Add(1)
		writeEngineError(w, h.logger, err)
		return
	}
	h.metrics.HeadsTotal.Add(1)
	setFileHeaders(w, rec, storedSize)
	w.Header().Set("Content-Length", strconv.FormatInt(storedSize, 10))
}

// PutFile serves PUT /files/{path...}. Content-Encoding: gzip marks an
// already-compressed body; SHA256-Checksum and Logical-Size, when both
// present, are trusted verbatim per spec §4.5's case table.
func (h *Handler) PutFile(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")

	version, err := lastModifiedParam(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("invalid last_modified")) //nolint:errcheck
		return
	}

	isGzip, err := parseContentEncoding(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("Unsupported Content-Encoding")) //nolint:errcheck
		return
	}

	checksum, err := parseChecksumHeader(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("Invalid SHA256-Checksum")) //nolint:errcheck
		return
	}

	logicalSize := parseLogicalSizeHeader(r)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	err = h.engine.Put(r.Context(), engine.PutRequest{
		Path:             path,
		Version:          version,
		Content:          bytes.NewReader(body),
		ContentIsGzipped: isGzip,
		Checksum:         checksum,
		LogicalSize:      logicalSize,
	})
	if err != nil {
		h.metrics.PutsFailed.Add(1)
		writeEngineError(w, h.logger, err)
		return
	}
	h.metrics.PutsTotal.Add(1)
	h.metrics.BytesWritten.Add(int64(len(body)))

	w.Header().Set("Last-Modified", formatLastModified(version))
	w.WriteHeader(http.StatusOK)
}

// DeleteFile serves DELETE /files/{path...}. Deletion is conditional on
// max_version (the "last_modified" query parameter, default now): a record
// newer than max_version is left untouched and the call still reports success.
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")

	maxVersion, err := lastModifiedParam(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := h.engine.Delete(r.Context(), path, maxVersion); err != nil {
		h.metrics.DeletesFailed.Add(1)
		writeEngineError(w, h.logger, err)
		return
	}
	h.metrics.DeletesTotal.Add(1)
	w.WriteHeader(http.StatusOK)
}

func parseContentEncoding(r *http.Request) (bool, error) {
	switch r.Header.Get("Content-Encoding") {
	case "":
		return false, nil
	case "gzip":
		return true, nil
	default:
		return false, fterrors.ErrBadRequest
	}
}

func parseChecksumHeader(r *http.Request) (*[32]byte, error) {
	raw := r.Header.Get("SHA256-Checksum")
	if raw == "" {
		return nil, nil
	}
	decoded, ok := hexcodec.Decode32(raw)
	if !ok {
		return nil, fterrors.ErrBadRequest
	}
	return &decoded, nil
}

func parseLogicalSizeHeader(r *http.Request) *uint64 {
	raw := r.Header.Get("Logical-Size")
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
