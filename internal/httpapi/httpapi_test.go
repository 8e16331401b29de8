package httpapi_test

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/duskstore/filetracker/internal/engine"
	"github.com/duskstore/filetracker/internal/httpapi"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	eng, err := engine.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(eng.Close)
	return httpapi.New(eng, zap.NewNop(), 16)
}

func TestVersionEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"protocol_versions":[2]`)
}

func TestVersionTrailingSlashAlias(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPutThenGetRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	putReq := httptest.NewRequest(http.MethodPut, "/files/a/b", bytes.NewReader([]byte("hello")))
	putRec := httptest.NewRecorder()
	srv.ServeHTTP(putRec, putReq)
	require.Equal(t, http.StatusOK, putRec.Code)
	require.NotEmpty(t, putRec.Header().Get("Last-Modified"))

	getReq := httptest.NewRequest(http.MethodGet, "/files/a/b", nil)
	getRec := httptest.NewRecorder()
	srv.ServeHTTP(getRec, getReq)
	require.Equal(t, http.StatusOK, getRec.Code)
	zr, err := gzip.NewReader(bytes.NewReader(getRec.Body.Bytes()))
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	require.Equal(t, "hello", string(plain))
	require.Equal(t, "gzip", getRec.Header().Get("Content-Encoding"))
	require.Equal(t, "5", getRec.Header().Get("Logical-Size"))
	require.NotEmpty(t, getRec.Header().Get("SHA256-Checksum"))
}

func TestGetMissingFileReturns404(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/ghost", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHeadReturnsHeadersWithoutBody(t *testing.T) {
	srv := newTestServer(t)
	srv.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/files/x", bytes.NewReader([]byte("payload"))))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/files/x", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("Content-Length"))
}

func TestPutWithTrustedGzipHeaders(t *testing.T) {
	srv := newTestServer(t)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	checksum := sha256.Sum256([]byte("payload"))

	req := httptest.NewRequest(http.MethodPut, "/files/x", bytes.NewReader(buf.Bytes()))
	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set("SHA256-Checksum", hex.EncodeToString(checksum[:]))
	req.Header.Set("Logical-Size", "7")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	getRec := httptest.NewRecorder()
	srv.ServeHTTP(getRec, httptest.NewRequest(http.MethodGet, "/files/x", nil))
	require.Equal(t, http.StatusOK, getRec.Code)
	require.Equal(t, buf.Bytes(), getRec.Body.Bytes())
}

func TestDeleteRemovesFile(t *testing.T) {
	srv := newTestServer(t)
	srv.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/files/a", bytes.NewReader([]byte("x"))))

	delRec := httptest.NewRecorder()
	delReq := httptest.NewRequest(http.MethodDelete, "/files/a?last_modified="+url.QueryEscape("Mon, 01 Jan 2035 00:00:00 +0000"), nil)
	srv.ServeHTTP(delRec, delReq)
	require.Equal(t, http.StatusOK, delRec.Code)

	getRec := httptest.NewRecorder()
	srv.ServeHTTP(getRec, httptest.NewRequest(http.MethodGet, "/files/a", nil))
	require.Equal(t, http.StatusNotFound, getRec.Code)
}

func TestListEmptyPrefixReturnsNewlineTriples(t *testing.T) {
	srv := newTestServer(t)
	srv.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/files/c", bytes.NewReader([]byte("hello"))))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/list", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	lines := bytesSplitLines(body)
	require.Equal(t, "c", lines[0])
	require.Equal(t, "5", lines[2])
}

func TestListMissingPrefixReturns404(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/list/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func bytesSplitLines(b []byte) []string {
	var lines []string
	var cur []byte
	for _, c := range b {
		if c == '\n' {
			lines = append(lines, string(cur))
			cur = nil
			continue
		}
		cur = append(cur, c)
	}
	if len(cur) > 0 {
		lines = append(lines, string(cur))
	}
	return lines
}
