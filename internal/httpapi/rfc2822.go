package httpapi

import (
	"net/http"
	"time"

	"github.com/duskstore/filetracker/internal/fterrors"
)

// lastModifiedParam parses the optional "last_modified" query parameter as
// an RFC 2822 date-time, defaulting to the current UTC time when absent —
// matching the original filetracker server's `unwrap_or_else(Utc::now)`.
func lastModifiedParam(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("last_modified")
	if raw == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC1123Z, raw)
	if err != nil {
		return time.Time{}, fterrors.ErrBadRequest
	}
	return t.UTC(), nil
}

// formatLastModified renders t as an RFC 2822 date-time for the
// Last-Modified response header.
func formatLastModified(t time.Time) string {
	return t.Format(time.RFC1123Z)
}
