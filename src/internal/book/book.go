// Package book defines the bibliographic record returned by every catalog
// lookup.
package book

import (
	"errors"
	"strings"
)

// Placeholders used when the catalog leaves a field out.
const (
	NoDescription   = "概要なし"
	UnknownTitle    = "タイトル不明"
	UnknownAuthor   = "著者不明"
	UnknownPublish  = "出版社不明"
	UnknownIssued   = "出版日不明"
	DefaultCoverURL = "https://ndlsearch.ndl.go.jp/thumbnail/{isbn}.jpg"
	DefaultNoImage  = "https://dummyimage.com/150x220/e0e0e0/aaa.png&text=No+Image"
)

// Record is one catalog hit. Records are built once per parsed element and
// never modified afterwards.
type Record struct {
	ID              string `yaml:"id" json:"id"`
	ISBN            string `yaml:"isbn,omitempty" json:"isbn"`
	Title           string `yaml:"title" json:"title"`
	Author          string `yaml:"author,omitempty" json:"author"`
	Publisher       string `yaml:"publisher,omitempty" json:"publisher"`
	PublicationDate string `yaml:"publication_date,omitempty" json:"publicationDate"`
	Description     string `yaml:"description,omitempty" json:"description"`
	CoverImageURL   string `yaml:"cover_image_url" json:"coverImageUrl"`
	Link            string `yaml:"link,omitempty" json:"link,omitempty"`
}

// Covers derives cover image URLs. Template must contain "{isbn}".
type Covers struct {
	Template    string
	Placeholder string
}

// DefaultCovers points at the catalog thumbnail service.
var DefaultCovers = Covers{Template: DefaultCoverURL, Placeholder: DefaultNoImage}

// URL returns the thumbnail for a normalized ISBN-13, or the placeholder.
func (c Covers) URL(isbn string) string {
	if isbn == "" || c.Template == "" {
		return c.Placeholder
	}
	return strings.ReplaceAll(c.Template, "{isbn}", isbn)
}

// Fields carries the raw values a parser extracted for one record.
type Fields struct {
	ID              string
	ISBN            string
	Title           string
	Author          string
	Publisher       string
	PublicationDate string
	Description     string
	CoverImageURL   string
	Link            string
}

// New assembles a Record. ISBN must already be normalized. The ID falls back
// from the explicit ID to the ISBN and then to the title; the cover falls
// back from the explicit URL to the template.
func New(f Fields, covers Covers) Record {
	title := strings.Join(strings.Fields(f.Title), " ")
	id := f.ISBN
	if id == "" {
		id = strings.TrimSpace(f.ID)
	}
	if id == "" {
		id = title
	}
	cover := strings.TrimSpace(f.CoverImageURL)
	if cover == "" {
		cover = covers.URL(f.ISBN)
	}
	return Record{
		ID:              id,
		ISBN:            f.ISBN,
		Title:           title,
		Author:          strings.TrimSpace(f.Author),
		Publisher:       strings.TrimSpace(f.Publisher),
		PublicationDate: strings.TrimSpace(f.PublicationDate),
		Description:     strings.TrimSpace(f.Description),
		CoverImageURL:   cover,
		Link:            strings.TrimSpace(f.Link),
	}
}

// Validate reports whether the record is usable. Only the title is mandatory.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("book: title is required")
	}
	return nil
}
