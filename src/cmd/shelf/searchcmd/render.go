package searchcmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/width"
	"gopkg.in/yaml.v3"

	"bookshelf/src/internal/book"
)

// Output formats accepted by --format.
const (
	FormatTable = "table"
	FormatYAML  = "yaml"
	FormatJSON  = "json"
)

// maxCell caps a table cell so long descriptions do not wreck the layout.
const maxCell = 48

// CheckFormat rejects unknown --format values.
func CheckFormat(format string) error {
	switch format {
	case FormatTable, FormatYAML, FormatJSON:
		return nil
	}
	return fmt.Errorf("unknown format %q (want table, yaml or json)", format)
}

// Render writes books to w in format.
func Render(w io.Writer, format string, books []book.Record) error {
	switch format {
	case FormatYAML:
		return writeYAML(w, books)
	case FormatJSON:
		return writeJSON(w, books)
	}
	rows := make([][]string, 0, len(books))
	for _, b := range books {
		rows = append(rows, []string{b.ID, b.Title, b.Author, b.Publisher, b.PublicationDate})
	}
	renderTable(w, []string{"id", "title", "author", "publisher", "issued"}, rows)
	return nil
}

// RenderRecord writes one record; the table form is a field/value listing.
func RenderRecord(w io.Writer, format string, r book.Record) error {
	switch format {
	case FormatYAML:
		return writeYAML(w, r)
	case FormatJSON:
		return writeJSON(w, r)
	}
	rows := [][]string{
		{"id", r.ID},
		{"isbn", r.ISBN},
		{"title", r.Title},
		{"author", r.Author},
		{"publisher", r.Publisher},
		{"issued", r.PublicationDate},
		{"cover", r.CoverImageURL},
		{"link", r.Link},
		{"description", r.Description},
	}
	renderTable(w, []string{"field", "value"}, rows)
	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func renderTable(w io.Writer, headers []string, rows [][]string) {
	clipped := make([][]string, len(rows))
	for i, r := range rows {
		clipped[i] = make([]string, len(r))
		for j, c := range r {
			clipped[i][j] = clip(c, maxCell)
		}
	}
	widths := computeColWidths(headers, clipped)
	writeColumns(w, headers, widths)
	writeSeparator(w, widths)
	writeRows(w, clipped, widths)
}

func computeColWidths(headers []string, rows [][]string) []int {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = displayWidth(h)
	}
	for _, r := range rows {
		for i := range headers {
			if i < len(r) {
				if l := displayWidth(r[i]); l > widths[i] {
					widths[i] = l
				}
			}
		}
	}
	return widths
}

func writeSeparator(w io.Writer, widths []int) {
	cols := make([]string, len(widths))
	for i, width := range widths {
		cols[i] = strings.Repeat("-", width)
	}
	writeColumns(w, cols, widths)
}

func writeRows(w io.Writer, rows [][]string, widths []int) {
	for _, r := range rows {
		writeColumns(w, r, widths)
	}
}

func writeColumns(w io.Writer, cols []string, widths []int) {
	var b strings.Builder
	for i, width := range widths {
		val := ""
		if i < len(cols) {
			val = cols[i]
		}
		b.WriteString(val)
		if i != len(widths)-1 {
			b.WriteString(strings.Repeat(" ", width-displayWidth(val)+2))
		}
	}
	b.WriteString("\n")
	_, _ = io.WriteString(w, b.String())
}

// displayWidth counts terminal columns: East Asian wide and full-width
// runes take two.
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}

func clip(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if displayWidth(s) <= max {
		return s
	}
	var b strings.Builder
	n := 0
	for _, r := range s {
		rw := displayWidth(string(r))
		if n+rw > max-1 {
			break
		}
		b.WriteRune(r)
		n += rw
	}
	return b.String() + "…"
}
