// Package isbn cleans, converts and locates ISBNs in catalog text.
package isbn

import (
	"regexp"
	"strings"

	"bookshelf/src/internal/sanitize"
)

// dashes lists the hyphen look-alikes catalogs put between ISBN groups,
// including the katakana prolonged sound mark that OCR'd records contain.
const dashes = "-‐‑‒–—―−ー"

var (
	isbn13Pattern     = regexp.MustCompile(`97[89]\d{10}`)
	isbn10Pattern     = regexp.MustCompile(`\d{9}[\dX]`)
	isbn10WordPattern = regexp.MustCompile(`\b\d{9}[\dXx]\b`)
)

// Clean folds full-width digits, drops whitespace and dash characters and
// upper-cases the check character. It does not validate length.
func Clean(raw string) string {
	s := sanitize.Fold(raw)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteRune('X')
		case strings.ContainsRune(dashes, r), r == ' ', r == '\t', r == '\n', r == '\r', r == '　':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// To13 converts an ISBN-10 to ISBN-13 by prefixing 978 to the first nine
// digits and appending the weighted (1,3) modulo-10 check digit.
// Returns "" if the input is not ten characters with nine leading digits.
func To13(isbn10 string) string {
	if len(isbn10) != 10 {
		return ""
	}
	base := "978" + isbn10[:9]
	sum := 0
	for i := 0; i < len(base); i++ {
		c := base[i]
		if c < '0' || c > '9' {
			return ""
		}
		d := int(c - '0')
		if i%2 == 0 {
			sum += d
		} else {
			sum += d * 3
		}
	}
	check := (10 - sum%10) % 10
	return base + string(rune('0'+check))
}

// Normalize returns the hyphen-free ISBN-13 form of raw, converting ISBN-10
// input. Anything that is not ten or thirteen characters after cleaning
// yields "".
func Normalize(raw string) string {
	c := Clean(raw)
	switch len(c) {
	case 10:
		if !isbn10Pattern.MatchString(c) {
			return ""
		}
		return To13(c)
	case 13:
		for i := 0; i < len(c); i++ {
			if c[i] < '0' || c[i] > '9' {
				return ""
			}
		}
		return c
	default:
		return ""
	}
}

// FindInIdentifier looks for an ISBN inside an identifier value after
// removing separators. 978/979 thirteen-digit forms win over ten-digit forms.
func FindInIdentifier(text string) string {
	c := Clean(text)
	if m := isbn13Pattern.FindString(c); m != "" {
		return m
	}
	return isbn10Pattern.FindString(c)
}

// FindInText looks for an ISBN buried in free text such as a note or
// description. Only dashes are removed so that unrelated numbers separated by
// spaces are not glued together; ten-digit forms must stand alone.
func FindInText(text string) string {
	s := sanitize.Fold(text)
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(dashes, r) {
			return -1
		}
		return r
	}, s)
	if m := isbn13Pattern.FindString(s); m != "" {
		return m
	}
	return strings.ToUpper(isbn10WordPattern.FindString(s))
}
