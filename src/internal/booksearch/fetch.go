package booksearch

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"bookshelf/src/internal/book"
	"bookshelf/src/internal/isbn"
	"bookshelf/src/internal/stringsx"
)

// Page is one page of new arrivals.
type Page struct {
	Books   []book.Record `json:"books" yaml:"books"`
	Page    int           `json:"page" yaml:"page"`
	HasMore bool          `json:"hasMore" yaml:"has_more"`
}

// ParseID accepts a bare id or a record URL and returns the catalog id.
// For URLs under /books/ the last path segment is used.
func ParseID(raw string) string {
	id := strings.TrimSpace(raw)
	if strings.HasPrefix(id, "http") {
		if dec, err := url.PathUnescape(id); err == nil {
			id = dec
		}
		// Routers collapse "//" in path parameters.
		if strings.HasPrefix(id, "https:/") && !strings.HasPrefix(id, "https://") {
			id = "https://" + strings.TrimPrefix(id, "https:/")
		}
		if strings.Contains(id, "/books/") {
			id = stringsx.AfterLast(id, "/")
		}
	}
	return id
}

// FetchByID looks up one record. Ids starting with "R" are catalog
// bibliographic ids; anything else is treated as an ISBN.
func (s *Service) FetchByID(ctx context.Context, id string) (book.Record, error) {
	id = ParseID(id)
	if id == "" {
		return book.Record{}, ErrNotFound
	}
	if s.feed == nil {
		return book.Record{}, fmt.Errorf("booksearch: no feed configured")
	}
	params := url.Values{}
	if strings.HasPrefix(id, "R") {
		params.Set("bibid", id)
	} else {
		params.Set("isbn", stringsx.FirstNonEmpty(isbn.Normalize(id), id))
	}
	feed, err := s.feed.Query(ctx, params)
	if err != nil {
		return book.Record{}, fmt.Errorf("fetch book %s: %w", id, err)
	}
	if len(feed.Items) == 0 {
		return book.Record{}, fmt.Errorf("fetch book %s: %w", id, ErrNotFound)
	}
	return feed.Items[0].Record(s.opts.Covers, id), nil
}

// FetchByCategory lists records filed under an NDC classification code.
// A blank code returns nothing without touching the network.
func (s *Service) FetchByCategory(ctx context.Context, code string) ([]book.Record, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	if s.feed == nil {
		return nil, fmt.Errorf("booksearch: no feed configured")
	}
	params := url.Values{}
	params.Set("ndc", code)
	params.Set("cnt", strconv.Itoa(s.opts.PageSize))
	feed, err := s.feed.Query(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("fetch category %s: %w", code, err)
	}
	out := make([]book.Record, 0, len(feed.Items))
	for _, it := range feed.Items {
		out = append(out, it.Record(s.opts.Covers, ""))
	}
	return out, nil
}

// NewArrivals returns page (1-based) of the most recently issued records.
func (s *Service) NewArrivals(ctx context.Context, page int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if s.feed == nil {
		return Page{}, fmt.Errorf("booksearch: no feed configured")
	}
	params := url.Values{}
	params.Set("cnt", strconv.Itoa(s.opts.PageSize))
	params.Set("page", strconv.Itoa(page))
	params.Set("sort", "issued_date.desc")
	feed, err := s.feed.Query(ctx, params)
	if err != nil {
		return Page{}, fmt.Errorf("fetch new arrivals page %d: %w", page, err)
	}
	p := Page{Page: page, Books: make([]book.Record, 0, len(feed.Items))}
	for _, it := range feed.Items {
		p.Books = append(p.Books, it.Record(s.opts.Covers, ""))
	}
	p.HasMore = feed.TotalResults > page*s.opts.PageSize
	return p, nil
}
