// Package sru speaks the SRU 1.2 searchRetrieve protocol: it builds request
// URLs, fetches them through a transport and decodes the response envelope.
package sru

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"bookshelf/src/internal/transport"
	"bookshelf/src/internal/xmlnode"
)

// Namespaces used by SRU envelopes and their Dublin Core payloads.
const (
	NSSRW     = "http://www.loc.gov/zing/srw/"
	NSDiag    = "http://www.loc.gov/zing/srw/diagnostic/"
	NSSRWDC   = "info:srw/schema/1/dc-v1.1"
	NSDC      = "http://purl.org/dc/elements/1.1/"
	NSDCTerms = "http://purl.org/dc/terms/"
	NSRDF     = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NSFOAF    = "http://xmlns.com/foaf/0.1/"
	NSDCNDL   = "http://ndl.go.jp/dcndl/terms/"
	NSXSI     = "http://www.w3.org/2001/XMLSchema-instance"
)

const (
	DefaultEndpoint   = "https://ndlsearch.ndl.go.jp/api/sru"
	DefaultMaxRecords = 10
	MaxRecordsLimit   = 50

	SchemaDC    = "dc"
	SchemaDCNDL = "dcndl"
)

// ErrNotSRU is returned for bodies that are XML but not an SRU response,
// e.g. relay error pages.
var ErrNotSRU = errors.New("sru: not a searchRetrieveResponse")

// Getter fetches a URL, validating the body with check before accepting it.
// *transport.Router implements it.
type Getter interface {
	GetChecked(ctx context.Context, target string, check transport.CheckFunc) (*transport.Response, error)
}

// Diagnostic is one SRU diagnostic reported by the server.
type Diagnostic struct {
	URI     string
	Details string
	Message string
}

func (d Diagnostic) String() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{d.Message, d.Details, d.URI} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " / ")
}

// Response is a decoded searchRetrieveResponse.
type Response struct {
	NumberOfRecords int
	Diagnostics     []Diagnostic
	Schema          string
	Root            *xmlnode.Node
	Route           string
}

// Records returns the SRW record elements, in document order.
func (r *Response) Records() []*xmlnode.Node {
	if r == nil || r.Root == nil {
		return nil
	}
	return r.Root.FindAll(NSSRW, "record")
}

// RecordCount is the number of records carried in this response, falling
// back to bare srw_dc:dc elements for servers that omit the record wrapper.
func (r *Response) RecordCount() int {
	if n := len(r.Records()); n > 0 {
		return n
	}
	if r == nil || r.Root == nil {
		return 0
	}
	return len(r.Root.FindAll(NSSRWDC, "dc"))
}

// Success reports whether the response has records and no diagnostics.
func (r *Response) Success() bool {
	return r != nil && len(r.Diagnostics) == 0 && r.RecordCount() > 0
}

// DiagnosticError describes a response that carried diagnostics.
type DiagnosticError struct {
	Diagnostics []Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, 0, len(e.Diagnostics))
	for _, d := range e.Diagnostics {
		msgs = append(msgs, d.String())
	}
	return "sru diagnostic: " + strings.Join(msgs, "; ")
}

// Options configures a Client.
type Options struct {
	Endpoint   string
	MaxRecords int
}

// Client issues searchRetrieve requests.
type Client struct {
	getter     Getter
	endpoint   string
	maxRecords int
	logger     *slog.Logger
}

// New creates a Client. MaxRecords is clamped to [1, 50].
func New(opts Options, g Getter, logger *slog.Logger) *Client {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	max := opts.MaxRecords
	switch {
	case max == 0:
		max = DefaultMaxRecords
	case max < 1:
		max = 1
	case max > MaxRecordsLimit:
		max = MaxRecordsLimit
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{getter: g, endpoint: endpoint, maxRecords: max, logger: logger}
}

// URL builds the searchRetrieve URL for query and schema.
func (c *Client) URL(query, schema string) string {
	v := url.Values{}
	v.Set("operation", "searchRetrieve")
	v.Set("version", "1.2")
	v.Set("recordSchema", schema)
	v.Set("recordPacking", "xml")
	v.Set("onlyBib", "true")
	v.Set("maximumRecords", strconv.Itoa(c.maxRecords))
	v.Set("query", query)
	sep := "?"
	if strings.Contains(c.endpoint, "?") {
		sep = "&"
	}
	return c.endpoint + sep + v.Encode()
}

// SearchRetrieve runs query with the requested record schema. Transport
// failures are returned as errors; diagnostics are returned inside the
// Response so the caller can decide how to treat them.
func (c *Client) SearchRetrieve(ctx context.Context, query, schema string) (*Response, error) {
	if c.getter == nil {
		return nil, fmt.Errorf("sru: no transport configured")
	}
	var decoded *Response
	check := func(body []byte) error {
		r, err := Decode(body, schema)
		if err != nil {
			return err
		}
		decoded = r
		return nil
	}
	resp, err := c.getter.GetChecked(ctx, c.URL(query, schema), check)
	if err != nil {
		return nil, fmt.Errorf("sru searchRetrieve %q: %w", query, err)
	}
	if decoded == nil {
		if decoded, err = Decode(resp.Body, schema); err != nil {
			return nil, fmt.Errorf("sru searchRetrieve %q: %w", query, err)
		}
	}
	decoded.Route = resp.Route
	c.logger.Debug("sru response",
		"query", query,
		"schema", decoded.Schema,
		"records", decoded.RecordCount(),
		"total", decoded.NumberOfRecords,
		"diagnostics", len(decoded.Diagnostics),
		"route", resp.Route,
	)
	return decoded, nil
}

// Decode parses an SRU response body. requested is the schema asked for and
// is used when the response does not say which schema it returned.
func Decode(body []byte, requested string) (*Response, error) {
	root, err := xmlnode.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("sru decode: %w", err)
	}
	if root.Name.Local != "searchRetrieveResponse" {
		return nil, fmt.Errorf("%w: root element %q", ErrNotSRU, root.Name.Local)
	}
	resp := &Response{Root: root}
	if n := root.Child(xmlnode.AnySpace, "numberOfRecords"); n != nil {
		resp.NumberOfRecords, _ = strconv.Atoi(strings.TrimSpace(n.Content()))
	}
	for _, d := range root.FindAll(NSDiag, "diagnostic") {
		resp.Diagnostics = append(resp.Diagnostics, Diagnostic{
			URI:     d.Find(xmlnode.AnySpace, "uri").Content(),
			Details: d.Find(xmlnode.AnySpace, "details").Content(),
			Message: d.Find(xmlnode.AnySpace, "message").Content(),
		})
	}
	for _, rec := range resp.Records() {
		unpackString(rec)
	}
	resp.Schema = returnedSchema(root, resp.Records(), requested)
	return resp, nil
}

// unpackString replaces string-packed record data with its parsed element.
func unpackString(rec *xmlnode.Node) {
	data := rec.Child(xmlnode.AnySpace, "recordData")
	if data == nil || len(data.Children) > 0 {
		return
	}
	text := strings.TrimSpace(data.Text)
	if !strings.HasPrefix(text, "<") {
		return
	}
	inner, err := xmlnode.ParseBytes([]byte(text))
	if err != nil {
		return
	}
	inner.Parent = data
	data.Children = []*xmlnode.Node{inner}
	data.Text = ""
}

func returnedSchema(root *xmlnode.Node, records []*xmlnode.Node, requested string) string {
	for _, rec := range records {
		if s := NormalizeSchema(rec.Child(xmlnode.AnySpace, "recordSchema").Content()); s != "" {
			return s
		}
	}
	if echo := root.Child(xmlnode.AnySpace, "echoedSearchRetrieveRequest"); echo != nil {
		if s := NormalizeSchema(echo.Child(xmlnode.AnySpace, "recordSchema").Content()); s != "" {
			return s
		}
	}
	return NormalizeSchema(requested)
}

// NormalizeSchema maps schema identifiers and URIs to their short names.
func NormalizeSchema(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "":
		return ""
	case strings.Contains(s, "dcndl"):
		return SchemaDCNDL
	case s == SchemaDC || strings.Contains(s, "/dc"):
		return SchemaDC
	default:
		return s
	}
}

// Rank orders schemas by richness; unknown schemas rank lowest.
func Rank(schema string) int {
	switch NormalizeSchema(schema) {
	case SchemaDCNDL:
		return 2
	case SchemaDC:
		return 1
	default:
		return 0
	}
}
