package stringsx

import "testing"

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty("", " ", "x", "y"); got != "x" {
		t.Fatalf("FirstNonEmpty: want 'x', got %q", got)
	}
	if got := FirstNonEmpty("", ""); got != "" {
		t.Fatalf("FirstNonEmpty empty: want '', got %q", got)
	}
}

func TestAfterLast(t *testing.T) {
	if got := AfterLast("https://ndlsearch.ndl.go.jp/books/R100000002-I000001", "/"); got != "R100000002-I000001" {
		t.Fatalf("AfterLast: got %q", got)
	}
	if got := AfterLast("plain", "/"); got != "plain" {
		t.Fatalf("AfterLast no sep: got %q", got)
	}
	if got := AfterLast("trailing/", "/"); got != "" {
		t.Fatalf("AfterLast trailing: got %q", got)
	}
}
