package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// ListFiles serves GET /list, /list/ and /list/{prefix...}: a depth-first
// newline-delimited listing of every path under prefix whose version does
// not exceed the "last_modified" query parameter (default now). Each entry
// is three lines: path, Unix timestamp of version, decompressed size.
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	prefix := strings.TrimPrefix(r.PathValue("prefix"), "/")

	maxVersion, err := lastModifiedParam(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	l, err := h.engine.List(prefix, maxVersion)
	if err != nil {
		h.metrics.ListsFailed.Add(1)
		writeEngineError(w, h.logger, err)
		return
	}
	h.metrics.ListsTotal.Add(1)

	var body strings.Builder
	for {
		item, err, ok := l.Next()
		if err != nil {
			h.logger.Error("list: traversal error", zap.Error(err))
			continue
		}
		if !ok {
			break
		}
		fmt.Fprintf(&body, "%s\n%d\n%d\n", item.Path, item.Record.Version.Unix(), item.Record.DecompressedSize)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(body.String())) //nolint:errcheck
}
