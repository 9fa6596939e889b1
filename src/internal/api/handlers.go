package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"bookshelf/src/internal/book"
	"bookshelf/src/internal/booksearch"
	"bookshelf/src/internal/cql"
	"bookshelf/src/internal/response"
	"bookshelf/src/internal/transport"
)

type searchParams struct {
	Title     string `param:"title" validate:"max=200"`
	Author    string `param:"author" validate:"max=200"`
	Publisher string `param:"publisher" validate:"max=200"`
	ISBN      string `param:"isbn" validate:"omitempty,max=32,isbnshape"`
}

// query picks the ISBN form when an isbn was given.
func (p searchParams) query() cql.Query {
	if strings.TrimSpace(p.ISBN) != "" {
		return cql.ISBN{Value: p.ISBN}
	}
	return cql.Keyword{Title: p.Title, Author: p.Author, Publisher: p.Publisher}
}

// SearchResponse is the search outcome plus the attempt trace.
type SearchResponse struct {
	booksearch.Outcome
	Attempts []booksearch.Attempt `json:"attempts"`
}

type categoryParams struct {
	NDC string `param:"ndc" validate:"required,max=16,ndc"`
}

type pageParams struct {
	Page int `param:"page" validate:"gte=1,lte=1000"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	response.Success(w, HealthResponse{Status: "healthy"}, s.logger)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := searchParams{
		Title:     q.Get("title"),
		Author:    q.Get("author"),
		Publisher: q.Get("publisher"),
		ISBN:      q.Get("isbn"),
	}
	if errs := ValidateStruct(params); errs != nil {
		response.BadRequest(w, joinErrors(errs), s.logger)
		return
	}

	out, attempts := s.catalog.Search(r.Context(), params.query())
	if out.Books == nil {
		out.Books = []book.Record{}
	}
	if attempts == nil {
		attempts = []booksearch.Attempt{}
	}
	response.Success(w, SearchResponse{Outcome: out, Attempts: attempts}, s.logger)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id := booksearch.ParseID(chi.URLParam(r, "*"))
	if id == "" {
		response.BadRequest(w, "id is required", s.logger)
		return
	}
	rec, err := s.catalog.FetchByID(r.Context(), id)
	if err != nil {
		s.handleError(w, err)
		return
	}
	response.Success(w, rec, s.logger)
}

func (s *Server) handleCategoryBooks(w http.ResponseWriter, r *http.Request) {
	params := categoryParams{NDC: chi.URLParam(r, "ndc")}
	if errs := ValidateStruct(params); errs != nil {
		response.BadRequest(w, joinErrors(errs), s.logger)
		return
	}
	books, err := s.catalog.FetchByCategory(r.Context(), params.NDC)
	if err != nil {
		s.handleError(w, err)
		return
	}
	if books == nil {
		books = []book.Record{}
	}
	response.Success(w, books, s.logger)
}

func (s *Server) handleNewArrivals(w http.ResponseWriter, r *http.Request) {
	params := pageParams{Page: 1}
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(w, "page must be a number", s.logger)
			return
		}
		params.Page = n
	}
	if errs := ValidateStruct(params); errs != nil {
		response.BadRequest(w, joinErrors(errs), s.logger)
		return
	}
	page, err := s.catalog.NewArrivals(r.Context(), params.Page)
	if err != nil {
		s.handleError(w, err)
		return
	}
	response.Success(w, page, s.logger)
}

func (s *Server) notFound(w http.ResponseWriter, message string) {
	response.NotFound(w, message, s.logger)
}

// handleError maps catalog errors to HTTP codes. Upstream failures carry
// the same user-facing text as search outcomes.
func (s *Server) handleError(w http.ResponseWriter, err error) {
	if errors.Is(err, booksearch.ErrNotFound) {
		s.notFound(w, booksearch.MsgNoResults)
		return
	}
	s.logger.Warn("catalog request failed", "error", err)
	switch transport.Classify(err) {
	case transport.KindTimeout:
		response.Error(w, http.StatusGatewayTimeout, booksearch.Message(err), s.logger)
	case transport.KindUnknown:
		response.InternalError(w, booksearch.Message(err), s.logger)
	default:
		response.BadGateway(w, booksearch.Message(err), s.logger)
	}
}
