package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bookshelf/src/cmd/shelf/searchcmd"
	"bookshelf/src/internal/booksearch"
)

func newBookCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "book <id|isbn|url>",
		Short: "Show one catalog record by bibliographic id, ISBN or record URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := searchcmd.CheckFormat(format); err != nil {
				return err
			}
			c, release, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer release()
			rec, err := c.FetchByID(cmd.Context(), args[0])
			if errors.Is(err, booksearch.ErrNotFound) {
				return fmt.Errorf("%s: %s", strings.TrimSpace(args[0]), booksearch.MsgNoResults)
			}
			if err != nil {
				return fmt.Errorf("%s (%w)", booksearch.Message(err), err)
			}
			return searchcmd.RenderRecord(cmd.OutOrStdout(), format, rec)
		},
	}
	cmd.Flags().StringVar(&format, "format", searchcmd.FormatTable, "output format: table, yaml or json")
	return cmd
}

func newCategoryCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "category <ndc>",
		Short: "List records filed under an NDC classification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := searchcmd.CheckFormat(format); err != nil {
				return err
			}
			c, release, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer release()
			books, err := c.FetchByCategory(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("%s (%w)", booksearch.Message(err), err)
			}
			return searchcmd.Render(cmd.OutOrStdout(), format, books)
		},
	}
	cmd.Flags().StringVar(&format, "format", searchcmd.FormatTable, "output format: table, yaml or json")
	return cmd
}

func newArrivalsCmd(a *app) *cobra.Command {
	var format string
	var page int
	cmd := &cobra.Command{
		Use:   "arrivals",
		Short: "List the most recently issued records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := searchcmd.CheckFormat(format); err != nil {
				return err
			}
			if page < 1 {
				return fmt.Errorf("--page must be 1 or more")
			}
			c, release, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer release()
			p, err := c.NewArrivals(cmd.Context(), page)
			if err != nil {
				return fmt.Errorf("%s (%w)", booksearch.Message(err), err)
			}
			if err := searchcmd.Render(cmd.OutOrStdout(), format, p.Books); err != nil {
				return err
			}
			if p.HasMore && format == searchcmd.FormatTable {
				_, err = fmt.Fprintf(cmd.ErrOrStderr(), "more: --page %d\n", p.Page+1)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", searchcmd.FormatTable, "output format: table, yaml or json")
	cmd.Flags().IntVar(&page, "page", 1, "page number, starting at 1")
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
}
