// Package cql turns a user search into an ordered list of CQL query strings:
// the primary query first, then progressively broader fallbacks.
package cql

import (
	"regexp"
	"strings"

	"bookshelf/src/internal/isbn"
	"bookshelf/src/internal/sanitize"
)

// MaxCandidates caps a plan at the primary query plus five fallbacks.
const MaxCandidates = 6

// Query is either a Keyword or an ISBN search.
type Query interface {
	isQuery()
}

// Keyword searches by any combination of title, author and publisher.
type Keyword struct {
	Title     string
	Author    string
	Publisher string
}

// ISBN searches by an ISBN as typed by the user, separators allowed.
type ISBN struct {
	Value string
}

func (Keyword) isQuery() {}
func (ISBN) isQuery()    {}

// Blank reports whether every field of the keyword query is empty.
func (k Keyword) Blank() bool {
	return strings.TrimSpace(k.Title) == "" && strings.TrimSpace(k.Author) == "" && strings.TrimSpace(k.Publisher) == ""
}

// Plan is the ordered candidate list for one search. Volume is the trailing
// volume number split off the title, used to filter parsed records.
type Plan struct {
	Candidates []string
	Volume     string
}

// Empty reports whether the plan has nothing to execute.
func (p Plan) Empty() bool { return len(p.Candidates) == 0 }

// Build plans the CQL candidates for q. Nil and blank queries give an empty plan.
func Build(q Query) Plan {
	switch v := q.(type) {
	case Keyword:
		return buildKeyword(v)
	case *Keyword:
		if v == nil {
			return Plan{}
		}
		return buildKeyword(*v)
	case ISBN:
		return buildISBN(v)
	case *ISBN:
		if v == nil {
			return Plan{}
		}
		return buildISBN(*v)
	default:
		return Plan{}
	}
}

func buildKeyword(k Keyword) Plan {
	title := sanitize.Collapse(foldDigits(k.Title))
	author := sanitize.Collapse(k.Author)
	publisher := sanitize.Collapse(k.Publisher)

	var p Plan
	var c candidates
	if title == "" {
		switch {
		case author != "":
			c.add(Clause("creator", author))
			c.add(Any("creator", author))
			c.add(Clause("publisher", publisher))
		case publisher != "":
			c.add(Clause("publisher", publisher))
		}
		p.Candidates = c.list
		return p
	}

	base, volume := SplitVolume(title)
	p.Volume = volume
	c.add(Clause("title", base))
	if volume != "" {
		c.add(Clause("title", title))
	}
	c.add(And(Clause("title", base), Clause("creator", author)))
	c.add(Any("title", base))
	c.add(Clause("creator", author))
	c.add(Clause("publisher", publisher))
	p.Candidates = c.list
	return p
}

func buildISBN(q ISBN) Plan {
	raw := strings.TrimSpace(q.Value)
	if raw == "" {
		return Plan{}
	}
	var c candidates
	c.add(Clause("isbn", raw))
	if digits := isbn.Clean(raw); digits != raw {
		c.add(Clause("isbn", digits))
	}
	c.add(Clause("title", raw))
	c.add(Clause("creator", raw))
	return Plan{Candidates: c.list}
}

// candidates collects distinct non-empty clauses up to MaxCandidates.
type candidates struct {
	list []string
}

func (c *candidates) add(q string) {
	if q == "" || len(c.list) >= MaxCandidates {
		return
	}
	for _, have := range c.list {
		if have == q {
			return
		}
	}
	c.list = append(c.list, q)
}

// Quote renders v as a CQL quoted string, escaping backslashes and quotes.
func Quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}

// Clause returns index="value", or "" when value is blank.
func Clause(index, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return index + "=" + Quote(value)
}

// Any returns a broad word match (index any "value"), or "" when value is blank.
func Any(index, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return index + " any " + Quote(value)
}

// And joins two clauses; if either is empty the result is empty.
func And(a, b string) string {
	if a == "" || b == "" {
		return ""
	}
	return a + " AND " + b
}

var volumePattern = regexp.MustCompile(`^(.*?)[ \t\x{3000}]*([0-9]+)$`)

// SplitVolume separates a trailing volume number from title. A title made
// only of digits is returned whole with no volume.
func SplitVolume(title string) (base, volume string) {
	title = strings.TrimSpace(foldDigits(title))
	m := volumePattern.FindStringSubmatch(title)
	if m == nil {
		return title, ""
	}
	base = strings.TrimRight(m[1], " \t　")
	if base == "" {
		return title, ""
	}
	return base, m[2]
}

// MatchesVolume reports whether volume appears in title as a standalone
// number after a separator. An empty volume matches everything.
func MatchesVolume(title, volume string) bool {
	volume = strings.TrimSpace(foldDigits(volume))
	if volume == "" {
		return true
	}
	folded := sanitize.Fold(title)
	re, err := regexp.Compile(`[ \x{3000}/,(（第.]` + regexp.QuoteMeta(volume) + `(?:[^0-9]|$)`)
	if err != nil {
		return false
	}
	return re.MatchString(folded)
}

func foldDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '０' && r <= '９' {
			return '0' + (r - '０')
		}
		return r
	}, s)
}
