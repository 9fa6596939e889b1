// Package opensearch reads the catalog's OpenSearch RSS feed, used for
// lookups by id, by classification code and for new arrivals.
package opensearch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"bookshelf/src/internal/book"
	"bookshelf/src/internal/dates"
	"bookshelf/src/internal/isbn"
	"bookshelf/src/internal/sanitize"
	"bookshelf/src/internal/sru"
	"bookshelf/src/internal/stringsx"
	"bookshelf/src/internal/transport"
	"bookshelf/src/internal/xmlnode"
)

const (
	DefaultEndpoint     = "https://ndlsearch.ndl.go.jp/api/opensearch"
	DefaultDataProvider = "iss-ndl-opac"
	DefaultPageSize     = 10

	nsOpenSearch = "http://a9.com/-/spec/opensearchrss/1.0/"
	nsRDFS       = "http://www.w3.org/2000/01/rdf-schema#"
)

// ErrNotRSS is returned for bodies that are not an RSS feed.
var ErrNotRSS = errors.New("opensearch: not an rss feed")

// Getter fetches a URL, validating the body with check before accepting it.
type Getter interface {
	GetChecked(ctx context.Context, target string, check transport.CheckFunc) (*transport.Response, error)
}

// Item is one <item> of the feed with the fields the catalog fills in.
type Item struct {
	Title       string
	Author      string
	Publisher   string
	PubDate     string
	Link        string
	Description string
	GUID        string
	ISBN        string
	ImageURL    string
}

// Feed is a decoded RSS channel.
type Feed struct {
	TotalResults int
	Items        []Item
	Route        string
}

// Record converts the item to a book record, filling placeholders for
// missing fields. fallbackID is used when neither an ISBN nor a guid exists.
func (it Item) Record(covers book.Covers, fallbackID string) book.Record {
	f := book.Fields{
		ID:              stringsx.FirstNonEmpty(it.BookID(), fallbackID),
		ISBN:            it.ISBN,
		Title:           it.Title,
		Author:          it.Author,
		Publisher:       it.Publisher,
		PublicationDate: it.PubDate,
		Description:     it.Description,
		CoverImageURL:   it.ImageURL,
		Link:            it.Link,
	}
	sanitize.CleanFields(&f)
	f.Title = stringsx.FirstNonEmpty(f.Title, book.UnknownTitle)
	f.Author = stringsx.FirstNonEmpty(f.Author, book.UnknownAuthor)
	f.Publisher = stringsx.FirstNonEmpty(f.Publisher, book.UnknownPublish)
	f.PublicationDate = stringsx.FirstNonEmpty(f.PublicationDate, book.UnknownIssued)
	f.Description = stringsx.FirstNonEmpty(f.Description, book.NoDescription)
	return book.New(f, covers)
}

// BookID is the ISBN, else the last path segment of a /books/ guid, else
// the guid itself.
func (it Item) BookID() string {
	if it.ISBN != "" {
		return it.ISBN
	}
	if strings.Contains(it.GUID, "/books/") {
		return stringsx.AfterLast(it.GUID, "/")
	}
	return it.GUID
}

// Options configures a Client.
type Options struct {
	Endpoint     string
	DataProvider string
}

// Client queries the OpenSearch endpoint.
type Client struct {
	getter   Getter
	endpoint string
	dpid     string
	logger   *slog.Logger
}

// New creates a Client.
func New(opts Options, g Getter, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		getter:   g,
		endpoint: stringsx.FirstNonEmpty(strings.TrimSpace(opts.Endpoint), DefaultEndpoint),
		dpid:     stringsx.FirstNonEmpty(strings.TrimSpace(opts.DataProvider), DefaultDataProvider),
		logger:   logger,
	}
}

// URL builds the request URL for params; the data provider is always set.
func (c *Client) URL(params url.Values) string {
	v := url.Values{}
	for k, vals := range params {
		v[k] = append([]string(nil), vals...)
	}
	v.Set("dpid", c.dpid)
	sep := "?"
	if strings.Contains(c.endpoint, "?") {
		sep = "&"
	}
	return c.endpoint + sep + v.Encode()
}

// Query fetches and decodes the feed for params.
func (c *Client) Query(ctx context.Context, params url.Values) (*Feed, error) {
	if c.getter == nil {
		return nil, fmt.Errorf("opensearch: no transport configured")
	}
	var feed *Feed
	check := func(body []byte) error {
		f, err := Decode(body)
		if err != nil {
			return err
		}
		feed = f
		return nil
	}
	target := c.URL(params)
	resp, err := c.getter.GetChecked(ctx, target, check)
	if err != nil {
		return nil, fmt.Errorf("opensearch %s: %w", params.Encode(), err)
	}
	if feed == nil {
		if feed, err = Decode(resp.Body); err != nil {
			return nil, fmt.Errorf("opensearch %s: %w", params.Encode(), err)
		}
	}
	feed.Route = resp.Route
	c.logger.Debug("opensearch response",
		"params", params.Encode(),
		"items", len(feed.Items),
		"total", feed.TotalResults,
		"route", resp.Route,
	)
	return feed, nil
}

// Decode parses an RSS body.
func Decode(body []byte) (*Feed, error) {
	root, err := xmlnode.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("opensearch decode: %w", err)
	}
	channel := root.Find(xmlnode.AnySpace, "channel")
	if root.Name.Local != "rss" && channel == nil {
		return nil, fmt.Errorf("%w: root element %q", ErrNotRSS, root.Name.Local)
	}
	feed := &Feed{}
	if t := root.Find(nsOpenSearch, "totalResults"); t != nil {
		feed.TotalResults, _ = strconv.Atoi(t.Content())
	} else if t := root.Find(xmlnode.AnySpace, "totalResults"); t != nil {
		feed.TotalResults, _ = strconv.Atoi(t.Content())
	}
	for _, n := range root.FindAll(xmlnode.AnySpace, "item") {
		feed.Items = append(feed.Items, decodeItem(n))
	}
	return feed, nil
}

func decodeItem(n *xmlnode.Node) Item {
	it := Item{
		Title:       n.Child("", "title").Content(),
		Author:      n.Child("", "author").Content(),
		Publisher:   n.Child(sru.NSDC, "publisher").Content(),
		PubDate:     dates.FromRSS(n.Child("", "pubDate").Content()),
		Link:        n.Child("", "link").Content(),
		Description: n.Child("", "description").Content(),
		GUID:        n.Child("", "guid").Content(),
	}
	for _, id := range n.FindAll(sru.NSDC, "identifier") {
		if strings.EqualFold(id.AttrValue(sru.NSXSI, "type"), "dcndl:ISBN") {
			if s := isbn.Normalize(id.Content()); s != "" {
				it.ISBN = s
				break
			}
		}
	}
	for _, s := range n.FindAll(nsRDFS, "seeAlso") {
		if !strings.Contains(s.AttrValue(xmlnode.AnySpace, "type"), "image/jpeg") {
			continue
		}
		if v := stringsx.FirstNonEmpty(s.Content(), s.AttrValue(sru.NSRDF, "resource")); v != "" {
			it.ImageURL = v
			break
		}
	}
	return it
}
