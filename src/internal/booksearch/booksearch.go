// Package booksearch runs a catalog search end to end: it plans CQL
// candidates, tries them in order until one yields records, upgrades the
// record schema when possible, then parses, deduplicates and filters.
package booksearch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"bookshelf/src/internal/book"
	"bookshelf/src/internal/cql"
	"bookshelf/src/internal/dedupe"
	"bookshelf/src/internal/extract"
	"bookshelf/src/internal/opensearch"
	"bookshelf/src/internal/sru"
	"bookshelf/src/internal/transport"
)

// ErrNotFound is returned by FetchByID when the catalog has no such record.
var ErrNotFound = errors.New("booksearch: not found")

// Status summarises a search for the caller.
type Status string

const (
	StatusOK           Status = "ok"
	StatusNoResults    Status = "no_results"
	StatusServiceError Status = "service_error"
)

// Outcome is the result of Search. Message is set for NoResults and
// ServiceError.
type Outcome struct {
	Books   []book.Record `json:"books" yaml:"books"`
	Status  Status        `json:"status" yaml:"status"`
	Message string        `json:"message,omitempty" yaml:"message,omitempty"`
}

// Attempt captures a single query attempt outcome.
type Attempt struct {
	Query    string `json:"query" yaml:"query"`
	Schema   string `json:"schema" yaml:"schema"`
	Provider string `json:"provider" yaml:"provider"`
	Records  int    `json:"records" yaml:"records"`
	Success  bool   `json:"success" yaml:"success"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Searcher runs one SRU searchRetrieve. *sru.Client implements it.
type Searcher interface {
	SearchRetrieve(ctx context.Context, query, schema string) (*sru.Response, error)
}

// Feeder runs one OpenSearch query. *opensearch.Client implements it.
type Feeder interface {
	Query(ctx context.Context, params url.Values) (*opensearch.Feed, error)
}

// Options configures a Service.
type Options struct {
	Schema     string
	RichSchema string
	PageSize   int
	Covers     book.Covers
}

// Service is stateless between calls and safe for concurrent use.
type Service struct {
	search Searcher
	feed   Feeder
	opts   Options
	logger *slog.Logger
}

// New creates a Service. feed may be nil when only Search is used.
func New(opts Options, search Searcher, feed Feeder, logger *slog.Logger) *Service {
	if opts.Schema == "" {
		opts.Schema = sru.SchemaDCNDL
	}
	if opts.RichSchema == "" {
		opts.RichSchema = sru.SchemaDCNDL
	}
	if opts.PageSize <= 0 {
		opts.PageSize = opensearch.DefaultPageSize
	}
	if opts.Covers == (book.Covers{}) {
		opts.Covers = book.DefaultCovers
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{search: search, feed: feed, opts: opts, logger: logger}
}

// Search runs q through its candidate queries. The attempt trace is
// returned alongside the outcome and never mixed into it.
func (s *Service) Search(ctx context.Context, q cql.Query) (Outcome, []Attempt) {
	plan := cql.Build(q)
	if plan.Empty() {
		return Outcome{Status: StatusOK}, nil
	}

	var (
		attempts   []Attempt
		accepted   *sru.Response
		acceptedQ  string
		lastErr    error
		cleanEmpty bool
	)
	for _, cand := range plan.Candidates {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		resp, a, err := s.try(ctx, cand, s.opts.Schema)
		attempts = append(attempts, a)
		switch {
		case err != nil:
			lastErr = err
		case a.Success:
			accepted, acceptedQ = resp, cand
		default:
			cleanEmpty = true
		}
		if accepted != nil {
			break
		}
	}

	if accepted == nil {
		if cleanEmpty {
			return Outcome{Status: StatusNoResults, Message: noResultsMessage(q)}, attempts
		}
		s.logger.Warn("search exhausted",
			"candidates", len(plan.Candidates),
			"error", lastErr,
		)
		return Outcome{Status: StatusServiceError, Message: Message(lastErr)}, attempts
	}

	accepted, attempts = s.enrich(ctx, accepted, acceptedQ, attempts)

	books := extract.Records(accepted, extract.Input{Query: q, Volume: plan.Volume, Covers: s.opts.Covers})
	books = dedupe.Collapse(books)
	if kw, ok := keyword(q); ok {
		books = dedupe.FilterAuthor(books, kw.Author)
	}
	if len(books) == 0 {
		return Outcome{Status: StatusNoResults, Message: noResultsMessage(q)}, attempts
	}
	return Outcome{Books: books, Status: StatusOK}, attempts
}

// try runs one candidate. A non-nil error means transport failure or a
// diagnostic; a nil error without Success means a clean empty answer.
func (s *Service) try(ctx context.Context, query, schema string) (*sru.Response, Attempt, error) {
	a := Attempt{Query: query, Schema: schema}
	resp, err := s.search.SearchRetrieve(ctx, query, schema)
	if err != nil {
		a.Provider = failedRoute(err)
		a.Error = err.Error()
		s.logger.Debug("search attempt failed", "query", query, "error", err)
		return nil, a, err
	}
	a.Provider = resp.Route
	a.Records = resp.RecordCount()
	if len(resp.Diagnostics) > 0 {
		derr := &sru.DiagnosticError{Diagnostics: resp.Diagnostics}
		a.Error = derr.Error()
		s.logger.Debug("search attempt diagnostic", "query", query, "error", derr)
		return resp, a, derr
	}
	if a.Records == 0 {
		a.Error = "no records"
		s.logger.Debug("search attempt empty", "query", query)
		return resp, a, nil
	}
	a.Success = true
	s.logger.Debug("search attempt succeeded", "query", query, "records", a.Records, "provider", a.Provider)
	return resp, a, nil
}

// enrich re-runs the accepted query with the rich schema when the answer
// came back in a narrower one. Only a clean non-empty answer replaces it.
func (s *Service) enrich(ctx context.Context, resp *sru.Response, query string, attempts []Attempt) (*sru.Response, []Attempt) {
	if sru.Rank(resp.Schema) >= sru.Rank(s.opts.RichSchema) || resp.RecordCount() == 0 {
		return resp, attempts
	}
	up, a, err := s.try(ctx, query, s.opts.RichSchema)
	attempts = append(attempts, a)
	if err != nil || !a.Success {
		return resp, attempts
	}
	return up, attempts
}

func keyword(q cql.Query) (cql.Keyword, bool) {
	switch v := q.(type) {
	case cql.Keyword:
		return v, true
	case *cql.Keyword:
		if v != nil {
			return *v, true
		}
	}
	return cql.Keyword{}, false
}

func failedRoute(err error) string {
	var te *transport.Error
	if errors.As(err, &te) && len(te.Attempts) > 0 {
		return te.Attempts[len(te.Attempts)-1].Route
	}
	return ""
}

// Describe renders an attempt the way CLI traces print it.
func (a Attempt) Describe() string {
	status := "ok"
	if !a.Success {
		status = a.Error
		if status == "" {
			status = "failed"
		}
	}
	provider := a.Provider
	if provider == "" {
		provider = "-"
	}
	return fmt.Sprintf("%s [%s] via %s: %s", a.Query, a.Schema, provider, status)
}
