package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/duskstore/filetracker/internal/middleware"
)

func TestRequestLogRecordsStatusAndBytes(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("ok")) //nolint:errcheck
	})

	handler := middleware.RequestLog(logger)(next)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/files/a", nil))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 1, logs.Len())

	entry := logs.All()[0]
	fields := entry.ContextMap()
	require.Equal(t, "http", entry.Message)
	require.Equal(t, http.MethodPut, fields["method"])
	require.EqualValues(t, http.StatusCreated, fields["status"])
	require.EqualValues(t, 2, fields["response_bytes"])
}

func TestRequestLogDefaultsStatusToOKWhenHandlerNeverWritesHeader(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hi")) //nolint:errcheck
	})

	handler := middleware.RequestLog(logger)(next)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/a", nil))

	require.Equal(t, 1, logs.Len())
	require.EqualValues(t, http.StatusOK, logs.All()[0].ContextMap()["status"])
}
