package httpapi

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
)

// Metrics holds process-lifetime atomic counters exposed at GET /metrics.
// All writes use atomic operations so there is no lock contention on the
// hot GET/PUT paths.
type Metrics struct {
	GetsTotal     atomic.Int64
	GetsFailed    atomic.Int64
	HeadsTotal    atomic.Int64
	HeadsFailed   atomic.Int64
	PutsTotal     atomic.Int64
	PutsFailed    atomic.Int64
	DeletesTotal  atomic.Int64
	DeletesFailed atomic.Int64
	ListsTotal    atomic.Int64
	ListsFailed   atomic.Int64
	BytesWritten  atomic.Int64 // request body bytes accepted on PUT, as sent
	BytesRead     atomic.Int64 // stored (gzip-compressed) bytes served on GET
}

// metricsHandler returns the http.HandlerFunc that serializes the current
// counter snapshot as a flat JSON object. activeFunc is called at render
// time to include the real-time active-operation count from the limiter
// without a circular dependency.
func (m *Metrics) metricsHandler(activeFunc func() int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int64{ //nolint:errcheck
			"gets_total":        m.GetsTotal.Load(),
			"gets_failed":       m.GetsFailed.Load(),
			"heads_total":       m.HeadsTotal.Load(),
			"heads_failed":      m.HeadsFailed.Load(),
			"puts_total":        m.PutsTotal.Load(),
			"puts_failed":       m.PutsFailed.Load(),
			"deletes_total":     m.DeletesTotal.Load(),
			"deletes_failed":    m.DeletesFailed.Load(),
			"lists_total":       m.ListsTotal.Load(),
			"lists_failed":      m.ListsFailed.Load(),
			"bytes_written":     m.BytesWritten.Load(),
			"bytes_read":        m.BytesRead.Load(),
			"active_operations": int64(activeFunc()),
		})
	}
}
