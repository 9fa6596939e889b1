// Package dates normalizes the publication dates catalog feeds carry.
package dates

import (
	"strings"
	"time"
)

var rssLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	time.RFC822Z,
	time.RFC822,
}

// FromRSS converts an RSS pubDate to YYYY-MM-DD in the date's own zone.
// Anything else comes back trimmed and unchanged.
func FromRSS(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range rssLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(time.DateOnly)
		}
	}
	return s
}
