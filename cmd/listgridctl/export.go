package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/listgrid/internal/catalog"
	"github.com/odyssey-erp/listgrid/internal/grid"
	"github.com/odyssey-erp/listgrid/internal/querysvc"
)

type exportOptions struct {
	queryURL string
	scope    string
	search   string
	sort     string
	page     int
	output   string
}

func newExportCommand() *cobra.Command {
	opts := exportOptions{}
	cmd := &cobra.Command{
		Use:   "export <definition>",
		Short: "Export one page of a grid as CSV",
		Example: `  listgridctl export open_accounts --scope 001X --sort Name --page 2 -o accounts.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			c, err := catalog.LoadDir(dir)
			if err != nil {
				return err
			}
			def, err := c.Get(args[0])
			if err != nil {
				return err
			}
			return runExport(cmd, def, querysvc.New(opts.queryURL), opts)
		},
	}
	cmd.Flags().StringVar(&opts.queryURL, "query-url", envOr("QUERY_SERVICE_URL", ""), "query service base URL")
	cmd.Flags().StringVar(&opts.scope, "scope", "", "scope record id")
	cmd.Flags().StringVar(&opts.search, "search", "", "search term")
	cmd.Flags().StringVar(&opts.sort, "sort", "", "sort field")
	cmd.Flags().IntVar(&opts.page, "page", 1, "page number")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: <title>_export.csv, - for stdout)")
	return cmd
}

var errExportFailed = errors.New("export failed")

func runExport(cmd *cobra.Command, def catalog.Definition, svc grid.QueryService, opts exportOptions) error {
	if def.Query == "" {
		return fmt.Errorf("%s: %w", def.Name, grid.ErrNoQueryConfigured)
	}
	ctx := cmd.Context()
	notify := grid.NotifierFunc(func(t grid.Toast) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", t.Title, t.Message)
	})
	g := grid.New(def.GridConfig(opts.scope), grid.Services{Query: svc, Notifier: notify}, grid.Options{
		Logger: slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn})),
	})
	g.Start(ctx)
	q := g.Query()
	if opts.search != "" {
		q.SearchNow(ctx, opts.search)
	}
	if opts.sort != "" {
		q.SetSort(ctx, opts.sort)
	}
	if opts.page > 1 {
		q.GoToPage(ctx, opts.page)
	}
	if msg := q.Result().Err; msg != "" {
		return fmt.Errorf("%w: %s", errExportFailed, msg)
	}

	var w io.Writer
	name := opts.output
	switch name {
	case "-":
		w = cmd.OutOrStdout()
	case "":
		name = g.ExportFilename()
		fallthrough
	default:
		f, err := os.Create(name)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	outcome, err := g.Export(w)
	if err != nil {
		return err
	}
	if outcome == grid.ExportSkipped && name != "-" {
		return os.Remove(name)
	}
	return nil
}
