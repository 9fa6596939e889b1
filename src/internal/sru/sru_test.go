package sru

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookshelf/src/internal/transport"
)

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return b
}

// fakeDoer implements httpx.Doer for deterministic responses.
type fakeDoer struct {
	handler func(req *http.Request) *http.Response
}

func (f fakeDoer) Do(req *http.Request) (*http.Response, error) { return f.handler(req), nil }

func textResp(code int, s string) *http.Response {
	return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader(s)), Header: http.Header{"Content-Type": {"text/xml"}}}
}

func TestURL(t *testing.T) {
	c := New(Options{MaxRecords: 200}, nil, nil)
	u, err := url.Parse(c.URL(`title="こころ"`, SchemaDCNDL))
	require.NoError(t, err)
	assert.Equal(t, "ndlsearch.ndl.go.jp", u.Host)
	assert.Equal(t, "/api/sru", u.Path)
	q := u.Query()
	assert.Equal(t, "searchRetrieve", q.Get("operation"))
	assert.Equal(t, "1.2", q.Get("version"))
	assert.Equal(t, "dcndl", q.Get("recordSchema"))
	assert.Equal(t, "xml", q.Get("recordPacking"))
	assert.Equal(t, "true", q.Get("onlyBib"))
	assert.Equal(t, "50", q.Get("maximumRecords"))
	assert.Equal(t, `title="こころ"`, q.Get("query"))
}

func TestNew_MaxRecordsClamp(t *testing.T) {
	tests := []struct{ in, want int }{{0, 10}, {-3, 1}, {1, 1}, {25, 25}, {51, 50}}
	for _, tt := range tests {
		assert.Equal(t, tt.want, New(Options{MaxRecords: tt.in}, nil, nil).maxRecords)
	}
}

func TestDecode_DCNDL(t *testing.T) {
	r, err := Decode(fixture(t, "dcndl.xml"), SchemaDC)
	require.NoError(t, err)
	assert.Equal(t, 3, r.NumberOfRecords)
	assert.Equal(t, 3, r.RecordCount())
	assert.Equal(t, SchemaDCNDL, r.Schema)
	assert.Empty(t, r.Diagnostics)
	assert.True(t, r.Success())
}

func TestDecode_DCFallsBackToRecordSchema(t *testing.T) {
	r, err := Decode(fixture(t, "dc.xml"), SchemaDCNDL)
	require.NoError(t, err)
	assert.Equal(t, SchemaDC, r.Schema)
	assert.Equal(t, 2, r.RecordCount())
}

func TestDecode_EchoedSchema(t *testing.T) {
	r, err := Decode(fixture(t, "empty.xml"), SchemaDC)
	require.NoError(t, err)
	assert.Equal(t, SchemaDCNDL, r.Schema)
	assert.Equal(t, 0, r.RecordCount())
	assert.False(t, r.Success())
}

func TestDecode_Diagnostic(t *testing.T) {
	r, err := Decode(fixture(t, "diagnostic.xml"), SchemaDCNDL)
	require.NoError(t, err)
	require.Len(t, r.Diagnostics, 1)
	assert.Equal(t, "info:srw/diagnostic/1/10", r.Diagnostics[0].URI)
	assert.Equal(t, "Query syntax error / title any / info:srw/diagnostic/1/10", r.Diagnostics[0].String())
	assert.False(t, r.Success())
	assert.Equal(t, SchemaDCNDL, r.Schema)

	de := &DiagnosticError{Diagnostics: r.Diagnostics}
	assert.Contains(t, de.Error(), "Query syntax error")
}

func TestDecode_StringPacking(t *testing.T) {
	r, err := Decode(fixture(t, "string_packed.xml"), SchemaDC)
	require.NoError(t, err)
	recs := r.Records()
	require.Len(t, recs, 1)
	title := recs[0].Find(NSDC, "title")
	require.NotNil(t, title)
	assert.Equal(t, "坊っちゃん", title.Content())
}

func TestDecode_BareDC(t *testing.T) {
	r, err := Decode(fixture(t, "bare_dc.xml"), SchemaDC)
	require.NoError(t, err)
	assert.Empty(t, r.Records())
	assert.Equal(t, 1, r.RecordCount())
	assert.True(t, r.Success())
}

func TestDecode_NotSRU(t *testing.T) {
	_, err := Decode([]byte(`<html><body>Too many requests</body></html>`), SchemaDC)
	assert.ErrorIs(t, err, ErrNotSRU)

	_, err = Decode([]byte(`not xml at all`), SchemaDC)
	assert.Error(t, err)
}

func TestNormalizeSchemaAndRank(t *testing.T) {
	assert.Equal(t, SchemaDCNDL, NormalizeSchema("info:ndl-dcndl"))
	assert.Equal(t, SchemaDC, NormalizeSchema("info:srw/schema/1/dc-v1.1"))
	assert.Equal(t, SchemaDC, NormalizeSchema(" DC "))
	assert.Equal(t, "mods", NormalizeSchema("mods"))
	assert.Equal(t, "", NormalizeSchema(""))
	assert.Greater(t, Rank(SchemaDCNDL), Rank(SchemaDC))
	assert.Greater(t, Rank(SchemaDC), Rank("mods"))
}

func TestSearchRetrieve_SkipsRelayErrorPages(t *testing.T) {
	body := string(fixture(t, "dcndl.xml"))
	doer := fakeDoer{handler: func(req *http.Request) *http.Response {
		switch req.URL.Host {
		case "relay-a.test":
			return textResp(http.StatusOK, "<html>rate limited</html>")
		case "relay-b.test":
			return textResp(http.StatusOK, body)
		}
		return textResp(http.StatusInternalServerError, "")
	}}
	router := transport.New(transport.Options{
		Relays: []transport.Relay{
			{Name: "a", Template: "https://relay-a.test/{url}"},
			{Name: "b", Template: "https://relay-b.test/?{encoded}"},
		},
		RatePerSecond: -1,
	}, doer, nil)
	c := New(Options{}, router, nil)

	r, err := c.SearchRetrieve(context.Background(), `title="こころ"`, SchemaDCNDL)
	require.NoError(t, err)
	assert.Equal(t, "b", r.Route)
	assert.Equal(t, 3, r.RecordCount())
}

func TestSearchRetrieve_TransportFailure(t *testing.T) {
	doer := fakeDoer{handler: func(req *http.Request) *http.Response {
		return textResp(http.StatusForbidden, "forbidden")
	}}
	router := transport.New(transport.Options{UseDirectProxy: true, RatePerSecond: -1}, doer, nil)
	c := New(Options{}, router, nil)

	_, err := c.SearchRetrieve(context.Background(), `title="x"`, SchemaDC)
	require.Error(t, err)
	var te *transport.Error
	assert.True(t, errors.As(err, &te))
	assert.Equal(t, transport.KindRejected, transport.Classify(err))
}
