package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testHandler returns a handler that writes a response with the given status and body
func testHandler(status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	})
}

func newLogger(buf *bytes.Buffer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: level}))
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	return logEntry
}

func TestMiddleware_LogsRequests(t *testing.T) {
	var logBuf bytes.Buffer
	handler := Middleware(newLogger(&logBuf, slog.LevelDebug))(testHandler(http.StatusOK, "hello"))

	req := httptest.NewRequest("GET", "/api/v1/deployments", nil)
	req.RemoteAddr = "192.168.1.100:12345"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "hello", rr.Body.String())

	logEntry := decode(t, &logBuf)
	assert.Equal(t, "request", logEntry["msg"])
	assert.Equal(t, "DEBUG", logEntry["level"])
	assert.Equal(t, "GET", logEntry["method"])
	assert.Equal(t, "/api/v1/deployments", logEntry["path"])
	assert.Equal(t, float64(http.StatusOK), logEntry["status"])
	assert.Equal(t, float64(5), logEntry["bytes"]) // "hello" = 5 bytes
	assert.Contains(t, logEntry, "duration")
	assert.Equal(t, "192.168.1.100", logEntry["remote_addr"])
}

func TestMiddleware_SilentAtInfoLevel(t *testing.T) {
	var logBuf bytes.Buffer
	handler := Middleware(newLogger(&logBuf, slog.LevelInfo))(testHandler(http.StatusNotFound, ""))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Empty(t, logBuf.String())
}

func TestMiddleware_WarnsOnServerError(t *testing.T) {
	var logBuf bytes.Buffer
	handler := Middleware(newLogger(&logBuf, slog.LevelInfo))(testHandler(http.StatusInternalServerError, "error"))

	req := httptest.NewRequest("POST", "/api/error", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	logEntry := decode(t, &logBuf)
	assert.Equal(t, "WARN", logEntry["level"])
	assert.Equal(t, "POST", logEntry["method"])
	assert.Equal(t, float64(http.StatusInternalServerError), logEntry["status"])
}

func TestMiddleware_IncludesRequestID(t *testing.T) {
	var logBuf bytes.Buffer

	// Chain with RequestID middleware
	handler := middleware.RequestID(Middleware(newLogger(&logBuf, slog.LevelDebug))(testHandler(http.StatusOK, "")))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	logEntry := decode(t, &logBuf)
	assert.NotEmpty(t, logEntry["request_id"])
}

func TestMiddleware_HandlesContextWithRequestID(t *testing.T) {
	var logBuf bytes.Buffer
	handler := Middleware(newLogger(&logBuf, slog.LevelDebug))(testHandler(http.StatusOK, ""))

	req := httptest.NewRequest("GET", "/", nil)
	ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "test-request-id-123")
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, "test-request-id-123", decode(t, &logBuf)["request_id"])
}

func TestMiddleware_DefaultStatus200(t *testing.T) {
	var logBuf bytes.Buffer

	// Handler that writes body without setting status
	handler := Middleware(newLogger(&logBuf, slog.LevelDebug))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("no explicit status"))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, float64(http.StatusOK), decode(t, &logBuf)["status"])
}

func TestResponseWriter_WriteHeader(t *testing.T) {
	rr := httptest.NewRecorder()
	rw := &responseWriter{
		ResponseWriter: rr,
		status:         http.StatusOK,
	}

	// First WriteHeader should work
	rw.WriteHeader(http.StatusNotFound)
	assert.Equal(t, http.StatusNotFound, rw.status)
	assert.True(t, rw.wroteHeader)

	// Second WriteHeader should be ignored
	rw.WriteHeader(http.StatusOK)
	assert.Equal(t, http.StatusNotFound, rw.status)
}

func TestResponseWriter_Write(t *testing.T) {
	rr := httptest.NewRecorder()
	rw := &responseWriter{
		ResponseWriter: rr,
		status:         http.StatusOK,
	}

	n, err := rw.Write([]byte("test"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 4, rw.bytes)
	assert.True(t, rw.wroteHeader)

	// Multiple writes should accumulate bytes
	_, err = rw.Write([]byte("more"))
	require.NoError(t, err)
	assert.Equal(t, 8, rw.bytes)
	assert.Equal(t, rr, rw.Unwrap())
}

func TestClientHost(t *testing.T) {
	assert.Equal(t, "10.0.0.1", clientHost("10.0.0.1:8080"))
	assert.Equal(t, "::1", clientHost("[::1]:8080"))
	assert.Equal(t, "pipe", clientHost("pipe"))
}
