// Package extract turns a decoded SRU response into book records. It copes
// with both the flat Dublin Core schema and the RDF-based dcndl schema.
package extract

import (
	"strings"

	"bookshelf/src/internal/book"
	"bookshelf/src/internal/cql"
	"bookshelf/src/internal/isbn"
	"bookshelf/src/internal/sanitize"
	"bookshelf/src/internal/sru"
	"bookshelf/src/internal/xmlnode"
)

// Input is the search context the parser needs besides the response.
type Input struct {
	Query  cql.Query
	Volume string
	Covers book.Covers
}

// Records parses every record container in document order. Records without
// a title are dropped; when Volume is set, records whose title does not carry
// that volume number are dropped too. The result is not deduplicated.
func Records(resp *sru.Response, in Input) []book.Record {
	if resp == nil || resp.Root == nil {
		return nil
	}
	covers := in.Covers
	if covers == (book.Covers{}) {
		covers = book.DefaultCovers
	}
	containers := resp.Records()
	if len(containers) == 0 {
		containers = resp.Root.FindAll(sru.NSSRWDC, "dc")
	}
	var queried string
	if q, ok := in.Query.(cql.ISBN); ok {
		queried = isbn.Normalize(q.Value)
	} else if q, ok := in.Query.(*cql.ISBN); ok && q != nil {
		queried = isbn.Normalize(q.Value)
	}

	out := make([]book.Record, 0, len(containers))
	for _, c := range containers {
		f := Fields(c)
		if f.ISBN == "" {
			f.ISBN = queried
		}
		sanitize.CleanFields(&f)
		rec := book.New(f, covers)
		if rec.Validate() != nil {
			continue
		}
		if in.Volume != "" && !cql.MatchesVolume(rec.Title, in.Volume) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Fields reads the bibliographic fields of one record container. ISBN is
// left empty when none of the record-local strategies finds one.
func Fields(n *xmlnode.Node) book.Fields {
	f := book.Fields{
		Title:           title(n),
		Author:          agent(n, "creator"),
		Publisher:       agent(n, "publisher"),
		PublicationDate: first(n, []nsName{{sru.NSDCTerms, "issued"}, {sru.NSDC, "date"}}),
		Description:     first(n, []nsName{{sru.NSDC, "description"}, {sru.NSDCTerms, "description"}}),
		ISBN:            findISBN(n),
		Link:            link(n),
	}
	if f.Description == "" {
		f.Description = book.NoDescription
	}
	return f
}

type nsName struct {
	space string
	local string
}

// first returns the first non-empty text among names, tried in order.
func first(n *xmlnode.Node, names []nsName) string {
	for _, nm := range names {
		for _, el := range n.FindAll(nm.space, nm.local) {
			if v := el.Content(); v != "" {
				return v
			}
		}
	}
	return ""
}

func title(n *xmlnode.Node) string {
	for _, t := range n.FindAll(sru.NSDC, "title") {
		if v := t.Find(sru.NSRDF, "value").Content(); v != "" {
			return sanitize.Collapse(v)
		}
		if v := t.Content(); v != "" {
			return sanitize.Collapse(v)
		}
	}
	return sanitize.Collapse(first(n, []nsName{{sru.NSDCTerms, "title"}}))
}

// agent reads dc:<role>, falling back to foaf:name under dcterms:<role>.
func agent(n *xmlnode.Node, role string) string {
	if v := first(n, []nsName{{sru.NSDC, role}}); v != "" {
		return v
	}
	for _, el := range n.FindAll(sru.NSDCTerms, role) {
		if v := el.Find(sru.NSFOAF, "name").Content(); v != "" {
			return v
		}
		if v := el.Content(); v != "" {
			return v
		}
	}
	return ""
}

func identifiers(n *xmlnode.Node) []*xmlnode.Node {
	return append(n.FindAll(sru.NSDC, "identifier"), n.FindAll(sru.NSDCTerms, "identifier")...)
}

func typedISBN(el *xmlnode.Node) bool {
	for _, v := range []string{el.AttrValue(sru.NSRDF, "datatype"), el.AttrValue(sru.NSXSI, "type")} {
		if strings.Contains(strings.ToUpper(v), "ISBN") {
			return true
		}
	}
	return false
}

// findISBN applies the record-local strategies in order: typed identifier,
// ISBN-shaped identifier text, then ISBNs mentioned in descriptions.
func findISBN(n *xmlnode.Node) string {
	ids := identifiers(n)
	for _, el := range ids {
		if !typedISBN(el) {
			continue
		}
		v := el.Content()
		if s := isbn.Normalize(v); s != "" {
			return s
		}
		if s := isbn.Normalize(isbn.FindInIdentifier(v)); s != "" {
			return s
		}
	}
	for _, el := range ids {
		if s := isbn.Normalize(isbn.FindInIdentifier(el.Content())); s != "" {
			return s
		}
	}
	for _, nm := range []nsName{{sru.NSDC, "description"}, {sru.NSDCTerms, "description"}} {
		for _, el := range n.FindAll(nm.space, nm.local) {
			if s := isbn.Normalize(isbn.FindInText(el.Content())); s != "" {
				return s
			}
		}
	}
	return ""
}

func link(n *xmlnode.Node) string {
	if res := n.Find(sru.NSDCNDL, "BibResource"); res != nil {
		if v := res.AttrValue(sru.NSRDF, "about"); v != "" {
			return v
		}
	}
	return ""
}
