// Package dedupe collapses catalog hits that describe the same book and
// filters them by author.
package dedupe

import (
	"regexp"
	"strings"

	"bookshelf/src/internal/book"
	"bookshelf/src/internal/sanitize"
)

var (
	// whitespace and role punctuation such as "著" (author) or "訳" (translator)
	authorNoise = regexp.MustCompile(`[\s\x{3000},;，；、・\[\]()（）著編訳]`)
	// what the author filter ignores when comparing
	filterNoise = regexp.MustCompile(`[\s\x{3000},，、・\[\](){}『』「」]`)
	// token separators in the query author
	tokenSep = regexp.MustCompile(`[\s\x{3000},，、・]+`)
)

// Key identifies a book edition for deduplication: the lowercased title up
// to the first "/" plus the lowercased author without whitespace or role
// markers.
func Key(r book.Record) string {
	title := strings.ToLower(r.Title)
	if i := strings.Index(title, "/"); i >= 0 {
		title = title[:i]
	}
	title = strings.TrimSpace(title)
	author := authorNoise.ReplaceAllString(strings.ToLower(r.Author), "")
	return title + "|" + author
}

// Collapse keeps one record per Key in first-occurrence order. The kept
// record is the first in its group with an ISBN, or the first overall.
// Collapse(Collapse(x)) equals Collapse(x).
func Collapse(records []book.Record) []book.Record {
	if len(records) == 0 {
		return records
	}
	index := make(map[string]int, len(records))
	out := make([]book.Record, 0, len(records))
	for _, r := range records {
		k := Key(r)
		i, seen := index[k]
		if !seen {
			index[k] = len(out)
			out = append(out, r)
			continue
		}
		if out[i].ISBN == "" && r.ISBN != "" {
			out[i] = r
		}
	}
	return out
}

// FilterAuthor keeps records whose author contains every token of the
// query author. A blank query author keeps everything.
func FilterAuthor(records []book.Record, author string) []book.Record {
	tokens := Tokens(author)
	if len(tokens) == 0 {
		return records
	}
	out := make([]book.Record, 0, len(records))
	for _, r := range records {
		have := normalizeAuthor(r.Author)
		ok := true
		for _, tok := range tokens {
			if !strings.Contains(have, tok) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, r)
		}
	}
	return out
}

// Tokens splits a query author into normalized tokens.
func Tokens(author string) []string {
	var out []string
	for _, p := range tokenSep.Split(strings.TrimSpace(author), -1) {
		if p = normalizeAuthor(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeAuthor(s string) string {
	return filterNoise.ReplaceAllString(strings.ToLower(sanitize.Fold(s)), "")
}
