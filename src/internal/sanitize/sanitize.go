package sanitize

import (
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"

	"bookshelf/src/internal/book"
)

// CleanString trims and removes ASCII control characters except tab/newline/carriage
// return up to max bytes (if max <= 0, no truncation).
func CleanString(s string, max int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\t' || r == '\r' || (r >= 0x20 && r != 0x7f) {
			b.WriteRune(r)
			if max > 0 && b.Len() >= max {
				break
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Collapse replaces every run of whitespace (including U+3000) with one space.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Fold applies NFKC so full-width digits, letters, spaces and brackets compare
// equal to their ASCII forms. Use it for matching, not for display.
func Fold(s string) string {
	return norm.NFKC.String(s)
}

// CleanURL returns a validated http/https URL or empty string.
func CleanURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// CleanFields applies conservative sanitization to parsed record fields
// before a Record is assembled.
func CleanFields(f *book.Fields) {
	if f == nil {
		return
	}
	f.ID = CleanString(f.ID, 256)
	f.Title = Collapse(CleanString(f.Title, 1024))
	f.Author = Collapse(CleanString(f.Author, 512))
	f.Publisher = Collapse(CleanString(f.Publisher, 512))
	f.PublicationDate = CleanString(f.PublicationDate, 64)
	f.Description = CleanString(f.Description, 12000)
	f.Link = CleanURL(f.Link)
	f.CoverImageURL = CleanURL(f.CoverImageURL)
}
