// Package searchcmd implements `shelf search` and the record renderers the
// other commands share.
package searchcmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bookshelf/src/internal/booksearch"
	"bookshelf/src/internal/cql"
)

// Searcher runs one catalog search. *booksearch.Service implements it.
type Searcher interface {
	Search(ctx context.Context, q cql.Query) (booksearch.Outcome, []booksearch.Attempt)
}

// Opener returns the searcher for the command being run and a func that
// releases it.
type Opener func(cmd *cobra.Command) (Searcher, func(), error)

// ErrServiceUnavailable is returned when every candidate query failed.
var ErrServiceUnavailable = errors.New("search service unavailable")

// New returns the search command.
func New(open Opener) *cobra.Command {
	var titleQ, authorQ, publisherQ, isbnQ, format string
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the catalog by title/author/publisher or ISBN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := CheckFormat(format); err != nil {
				return err
			}
			if isEmpty(titleQ) && isEmpty(authorQ) && isEmpty(publisherQ) && isEmpty(isbnQ) {
				return fmt.Errorf("provide --title, --author, --publisher or --isbn")
			}
			s, release, err := open(cmd)
			if err != nil {
				return err
			}
			defer release()
			out, attempts := s.Search(cmd.Context(), buildQuery(titleQ, authorQ, publisherQ, isbnQ))
			for _, a := range attempts {
				if _, perr := fmt.Fprintf(cmd.ErrOrStderr(), "tried: %s\n", a.Describe()); perr != nil {
					return perr
				}
			}
			switch out.Status {
			case booksearch.StatusServiceError:
				return fmt.Errorf("%w: %s", ErrServiceUnavailable, out.Message)
			case booksearch.StatusNoResults:
				if format == FormatTable {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), out.Message)
					return err
				}
			}
			return Render(cmd.OutOrStdout(), format, out.Books)
		},
	}
	cmd.Flags().StringVar(&titleQ, "title", "", "title (a trailing number is treated as a volume)")
	cmd.Flags().StringVar(&authorQ, "author", "", "author name")
	cmd.Flags().StringVar(&publisherQ, "publisher", "", "publisher name")
	cmd.Flags().StringVar(&isbnQ, "isbn", "", "ISBN-10 or ISBN-13; overrides the other fields")
	cmd.Flags().StringVar(&format, "format", FormatTable, "output format: table, yaml or json")
	return cmd
}

func isEmpty(s string) bool { return strings.TrimSpace(s) == "" }

func buildQuery(title, author, publisher, isbn string) cql.Query {
	if !isEmpty(isbn) {
		return cql.ISBN{Value: isbn}
	}
	return cql.Keyword{Title: title, Author: author, Publisher: publisher}
}
