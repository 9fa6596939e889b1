package booksearch

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookshelf/src/internal/book"
	"bookshelf/src/internal/opensearch"
)

type fakeFeeder struct {
	calls   []url.Values
	handler func(params url.Values) (*opensearch.Feed, error)
}

func (f *fakeFeeder) Query(_ context.Context, params url.Values) (*opensearch.Feed, error) {
	f.calls = append(f.calls, params)
	return f.handler(params)
}

func feedFixture(t *testing.T) *opensearch.Feed {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("..", "opensearch", "testdata", "feed.xml"))
	require.NoError(t, err)
	f, err := opensearch.Decode(b)
	require.NoError(t, err)
	return f
}

func TestParseID(t *testing.T) {
	tests := []struct{ in, want string }{
		{"R100000002-I000007412345", "R100000002-I000007412345"},
		{"https://ndlsearch.ndl.go.jp/books/R100000002-I000007412345", "R100000002-I000007412345"},
		{"https%3A%2F%2Fndlsearch.ndl.go.jp%2Fbooks%2FR1-I2", "R1-I2"},
		{"https:/ndlsearch.ndl.go.jp/books/R1-I2", "R1-I2"},
		{" 9784101010137 ", "9784101010137"},
		{"https://example.test/other", "https://example.test/other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseID(tt.in), tt.in)
	}
}

func TestFetchByID_BibID(t *testing.T) {
	ff := &fakeFeeder{handler: func(url.Values) (*opensearch.Feed, error) {
		f := feedFixture(t)
		f.Items = f.Items[1:]
		return f, nil
	}}
	svc := New(Options{}, nil, ff, nil)
	r, err := svc.FetchByID(context.Background(), "https://ndlsearch.ndl.go.jp/books/R100000002-I000000000042")
	require.NoError(t, err)
	require.Len(t, ff.calls, 1)
	assert.Equal(t, "R100000002-I000000000042", ff.calls[0].Get("bibid"))
	assert.Empty(t, ff.calls[0].Get("isbn"))
	assert.Equal(t, "R100000002-I000000000042", r.ID)
	assert.Equal(t, book.UnknownAuthor, r.Author)
}

func TestFetchByID_ISBN(t *testing.T) {
	ff := &fakeFeeder{handler: func(url.Values) (*opensearch.Feed, error) {
		return feedFixture(t), nil
	}}
	r, err := New(Options{}, nil, ff, nil).FetchByID(context.Background(), "4-10-101013-7")
	require.NoError(t, err)
	assert.Equal(t, "9784101010137", ff.calls[0].Get("isbn"))
	assert.Equal(t, "9784101010137", r.ID)
	assert.Equal(t, "こころ", r.Title)
	assert.Equal(t, "https://ndlsearch.ndl.go.jp/thumbnail/9784101010137.jpg", r.CoverImageURL)
}

func TestFetchByID_NotFound(t *testing.T) {
	ff := &fakeFeeder{handler: func(url.Values) (*opensearch.Feed, error) {
		return &opensearch.Feed{}, nil
	}}
	svc := New(Options{}, nil, ff, nil)
	_, err := svc.FetchByID(context.Background(), "9784101010137")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.FetchByID(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, ff.calls, 1, "blank id makes no request")
}

func TestFetchByID_TransportError(t *testing.T) {
	boom := errors.New("boom")
	ff := &fakeFeeder{handler: func(url.Values) (*opensearch.Feed, error) { return nil, boom }}
	_, err := New(Options{}, nil, ff, nil).FetchByID(context.Background(), "R1")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestFetchByCategory(t *testing.T) {
	ff := &fakeFeeder{handler: func(url.Values) (*opensearch.Feed, error) {
		return feedFixture(t), nil
	}}
	svc := New(Options{PageSize: 20}, nil, ff, nil)
	books, err := svc.FetchByCategory(context.Background(), "913")
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "913", ff.calls[0].Get("ndc"))
	assert.Equal(t, "20", ff.calls[0].Get("cnt"))
	assert.Equal(t, "9784101010137", books[0].ID)
	assert.Equal(t, "R100000002-I000000000042", books[1].ID)
	assert.Equal(t, book.DefaultNoImage, books[1].CoverImageURL)

	books, err = svc.FetchByCategory(context.Background(), " ")
	require.NoError(t, err)
	assert.Empty(t, books)
	assert.Len(t, ff.calls, 1)
}

func TestNewArrivals(t *testing.T) {
	ff := &fakeFeeder{handler: func(url.Values) (*opensearch.Feed, error) {
		return feedFixture(t), nil
	}}
	svc := New(Options{}, nil, ff, nil)

	p, err := svc.NewArrivals(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Page)
	assert.True(t, p.HasMore, "25 results > 1*10")
	assert.Len(t, p.Books, 2)
	assert.Equal(t, "1", ff.calls[0].Get("page"))
	assert.Equal(t, "10", ff.calls[0].Get("cnt"))
	assert.Equal(t, "issued_date.desc", ff.calls[0].Get("sort"))

	p, err = svc.NewArrivals(context.Background(), 3)
	require.NoError(t, err)
	assert.False(t, p.HasMore, "25 results <= 3*10")
}

func TestFetch_NoFeedConfigured(t *testing.T) {
	svc := New(Options{}, nil, nil, nil)
	_, err := svc.FetchByID(context.Background(), "R1")
	assert.Error(t, err)
	_, err = svc.FetchByCategory(context.Background(), "913")
	assert.Error(t, err)
	_, err = svc.NewArrivals(context.Background(), 1)
	assert.Error(t, err)
}
