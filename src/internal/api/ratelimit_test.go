package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookshelf/src/internal/booksearch"
)

func TestClientRateLimit(t *testing.T) {
	cat := &fakeCatalog{arrivals: booksearch.Page{Page: 1}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewServer(cat, Options{ClientRate: 0.001, ClientBurst: 1}, logger)

	send := func(target, realIP string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if realIP != "" {
			req.Header.Set("X-Real-IP", realIP)
		}
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("/api/v1/new-arrivals", "").Code)

	rec := send("/api/v1/new-arrivals", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Error)

	assert.Equal(t, http.StatusOK, send("/api/v1/new-arrivals", "198.51.100.7").Code, "other clients keep their own bucket")
	assert.Equal(t, http.StatusOK, send("/health", "").Code, "health is not limited")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.5:4321"
	assert.Equal(t, "203.0.113.5", clientIP(req))
	req.RemoteAddr = "203.0.113.5"
	assert.Equal(t, "203.0.113.5", clientIP(req))
}
