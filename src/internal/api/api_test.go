package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookshelf/src/internal/book"
	"bookshelf/src/internal/booksearch"
	"bookshelf/src/internal/cql"
	"bookshelf/src/internal/transport"
)

// fakeCatalog records the calls it receives and answers from its fields.
type fakeCatalog struct {
	query    cql.Query
	id       string
	ndc      string
	page     int
	outcome  booksearch.Outcome
	attempts []booksearch.Attempt
	record   book.Record
	books    []book.Record
	arrivals booksearch.Page
	err      error
}

func (f *fakeCatalog) Search(_ context.Context, q cql.Query) (booksearch.Outcome, []booksearch.Attempt) {
	f.query = q
	return f.outcome, f.attempts
}

func (f *fakeCatalog) FetchByID(_ context.Context, id string) (book.Record, error) {
	f.id = id
	return f.record, f.err
}

func (f *fakeCatalog) FetchByCategory(_ context.Context, code string) ([]book.Record, error) {
	f.ndc = code
	return f.books, f.err
}

func (f *fakeCatalog) NewArrivals(_ context.Context, page int) (booksearch.Page, error) {
	f.page = page
	return f.arrivals, f.err
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Success bool            `json:"success"`
}

func newTestServer(cat Catalog) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(cat, Options{AllowedOrigins: []string{"https://app.test"}}, logger)
}

func get(t *testing.T, s *Server, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestHealthCheck(t *testing.T) {
	rec, env := get(t, newTestServer(&fakeCatalog{}), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"status":"healthy"}`, string(env.Data))
}

func TestSearch_Keyword(t *testing.T) {
	cat := &fakeCatalog{
		outcome:  booksearch.Outcome{Status: booksearch.StatusOK, Books: []book.Record{{ID: "9784101010137", Title: "こころ"}}},
		attempts: []booksearch.Attempt{{Query: `title="こころ"`, Schema: "dc", Provider: "direct", Records: 1, Success: true}},
	}
	rec, env := get(t, newTestServer(cat), "/api/v1/search?title=%E3%81%93%E3%81%93%E3%82%8D&author=%E5%A4%8F%E7%9B%AE")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, cql.Keyword{Title: "こころ", Author: "夏目"}, cat.query)

	var body SearchResponse
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, booksearch.StatusOK, body.Status)
	require.Len(t, body.Books, 1)
	assert.Equal(t, "こころ", body.Books[0].Title)
	require.Len(t, body.Attempts, 1)
	assert.True(t, body.Attempts[0].Success)
}

func TestSearch_ISBNWins(t *testing.T) {
	cat := &fakeCatalog{outcome: booksearch.Outcome{Status: booksearch.StatusNoResults, Message: booksearch.MsgNoResults}}
	rec, env := get(t, newTestServer(cat), "/api/v1/search?isbn=978-4-10-101013-7&title=x")
	require.Equal(t, http.StatusOK, rec.Code, "no-results is still a 200")
	assert.Equal(t, cql.ISBN{Value: "978-4-10-101013-7"}, cat.query)

	var body map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, "no_results", body["status"])
	assert.Equal(t, []any{}, body["books"])
	assert.Equal(t, []any{}, body["attempts"])
}

func TestSearch_ServiceErrorIs200(t *testing.T) {
	cat := &fakeCatalog{outcome: booksearch.Outcome{Status: booksearch.StatusServiceError, Message: booksearch.MsgTimeout}}
	rec, env := get(t, newTestServer(cat), "/api/v1/search?title=x")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"service_error"`)
}

func TestSearch_Validation(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"bad isbn", "/api/v1/search?isbn=12345", "isbn must be a valid ISBN"},
		{"long title", "/api/v1/search?title=" + fmt.Sprintf("%0201d", 0), "title must be at most 200"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := &fakeCatalog{}
			rec, env := get(t, newTestServer(cat), tt.target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, env.Success)
			assert.Contains(t, env.Error, tt.want)
			assert.Nil(t, cat.query, "catalog not called")
		})
	}
}

func TestGetBook(t *testing.T) {
	cat := &fakeCatalog{record: book.Record{ID: "R100000002-I000000000042", Title: "吾輩は猫である"}}
	rec, env := get(t, newTestServer(cat), "/api/v1/books/R100000002-I000000000042")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "R100000002-I000000000042", cat.id)
	assert.Contains(t, string(env.Data), "吾輩は猫である")
}

func TestGetBook_RecordURL(t *testing.T) {
	cat := &fakeCatalog{record: book.Record{ID: "R1-I2"}}
	rec, _ := get(t, newTestServer(cat), "/api/v1/books/https://ndlsearch.ndl.go.jp/books/R1-I2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "R1-I2", cat.id)
}

func TestGetBook_NotFound(t *testing.T) {
	cat := &fakeCatalog{err: fmt.Errorf("fetch book x: %w", booksearch.ErrNotFound)}
	rec, env := get(t, newTestServer(cat), "/api/v1/books/9780000000000")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, booksearch.MsgNoResults, env.Error)
}

func TestGetBook_UpstreamErrors(t *testing.T) {
	wrap := func(err error) error {
		return fmt.Errorf("fetch book x: %w", &transport.Error{Attempts: []transport.Attempt{{Route: transport.RouteDirect, Err: err}}})
	}
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"timeout", wrap(context.DeadlineExceeded), http.StatusGatewayTimeout, booksearch.MsgTimeout},
		{"server", wrap(&transport.StatusError{Code: 503}), http.StatusBadGateway, booksearch.MsgServer},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, booksearch.MsgGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := get(t, newTestServer(&fakeCatalog{err: tt.err}), "/api/v1/books/R1")
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.msg, env.Error)
		})
	}
}

func TestCategoryBooks(t *testing.T) {
	cat := &fakeCatalog{}
	rec, env := get(t, newTestServer(cat), "/api/v1/categories/913.6/books")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "913.6", cat.ndc)
	assert.JSONEq(t, `[]`, string(env.Data))

	rec, env = get(t, newTestServer(cat), "/api/v1/categories/novel/books")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error, "ndc must be an NDC class")
}

func TestNewArrivals(t *testing.T) {
	cat := &fakeCatalog{arrivals: booksearch.Page{Page: 2, HasMore: true, Books: []book.Record{}}}
	rec, env := get(t, newTestServer(cat), "/api/v1/new-arrivals?page=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, cat.page)
	assert.JSONEq(t, `{"books":[],"page":2,"hasMore":true}`, string(env.Data))

	_, _ = get(t, newTestServer(cat), "/api/v1/new-arrivals")
	assert.Equal(t, 1, cat.page, "page defaults to 1")

	for _, target := range []string{"/api/v1/new-arrivals?page=abc", "/api/v1/new-arrivals?page=0"} {
		rec, _ = get(t, newTestServer(cat), target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestUnknownRoute(t *testing.T) {
	rec, env := get(t, newTestServer(&fakeCatalog{}), "/api/v1/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(&fakeCatalog{})
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/search", nil)
	req.Header.Set("Origin", "https://app.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.test", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.test")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
