// ABOUTME: CLI commands that run resource tables against the platform.
// ABOUTME: list, get, delete, export, import, resources, and license print tables, JSON, or files.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/hokaccha/go-prettyjson"
	"github.com/spf13/cobra"

	"github.com/2389/dfconsole/internal/dfapi"
	"github.com/2389/dfconsole/internal/license"
	"github.com/2389/dfconsole/internal/resources"
	"github.com/2389/dfconsole/internal/table"
)

// lookup resolves a resource slug and refuses paywalled resources on the
// open source tier.
func (a *app) lookup(ctx context.Context, api *dfapi.Client, slug string) (resources.Definition, error) {
	def, ok := resources.Get(slug)
	if !ok {
		return resources.Definition{}, fmt.Errorf("unknown resource %q (available: %s)", slug, strings.Join(resources.Slugs(), ", "))
	}
	if !def.Paywalled {
		return def, nil
	}
	status, err := a.checker(api).Status(ctx)
	if err != nil {
		return resources.Definition{}, err
	}
	if !status.Allows(def) {
		return resources.Definition{}, fmt.Errorf("%s requires a commercial license (platform is %s)", def.Title, status.Tier)
	}
	return def, nil
}

func (a *app) checker(api *dfapi.Client) *license.Checker {
	return license.NewChecker(api,
		license.WithLicenseServer(a.cfg.LicenseURL, a.cfg.LicenseKey),
		license.WithTTL(0),
		license.WithLogger(a.logger))
}

func (a *app) client() *dfapi.Client {
	return newClient(a.cfg, a.logger, nil)
}

func (a *app) printJSON(v any) error {
	f := prettyjson.NewFormatter()
	f.DisabledColor = color.NoColor
	out, err := f.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(out))
	return err
}

func newResourcesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resources",
		Short: "List the resources the console administers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			color.New(color.Bold).Fprintln(tw, "RESOURCE\tTITLE\tAPI PATH\tSEARCH")
			for _, def := range resources.All() {
				title := def.Title
				if def.Paywalled {
					title += " *"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", def.Slug, title, def.Path, strings.Join(def.SearchFields, ","))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "* requires a commercial license")
			return nil
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var (
		limit  int
		offset int
		search string
		sortBy string
		raw    bool
	)

	cmd := &cobra.Command{
		Use:   "list <resource>",
		Short: "Print one page of a resource table",
		Long: `Print one page of a resource table.

Usage:
  dfconsole list users --search ada
  dfconsole list roles --limit 50 --offset 50 --sort "name desc"
  dfconsole list services --raw          # JSON view of the page`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api := a.client()
			def, err := a.lookup(ctx, api, args[0])
			if err != nil {
				return err
			}

			if limit <= 0 {
				limit = a.cfg.PageSize
			}
			t, err := def.NewTable(api, limit)
			if err != nil {
				return err
			}
			opts := []table.RefreshOption{table.WithOffset(offset), table.WithSearch(search)}
			if sortBy != "" {
				opts = append(opts, table.WithSort(sortBy))
			}
			if err := t.Refresh(ctx, opts...); err != nil {
				return err
			}

			if raw {
				return a.printJSON(t.View())
			}
			return printView(a.out, t.View())
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "Rows per page (default DFCONSOLE_PAGE_SIZE)")
	cmd.Flags().IntVarP(&offset, "offset", "o", 0, "Rows to skip")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Search term")
	cmd.Flags().StringVar(&sortBy, "sort", "", "Sort expression, e.g. \"name desc\"")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the page as JSON")
	return cmd
}

// printView writes a table view as aligned columns with a paging footer.
func printView(w io.Writer, v table.View) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	bold := color.New(color.Bold)

	headers := make([]string, len(v.Columns))
	for i, c := range v.Columns {
		headers[i] = strings.ToUpper(c.Header)
	}
	bold.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range v.Rows {
		fmt.Fprintln(tw, strings.Join(row.Cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	p := v.Page
	footer := fmt.Sprintf("page %d of %d, %d records", p.Number(), p.Pages(), p.Total)
	if p.HasNext() {
		footer += fmt.Sprintf(" (next: --offset %d)", p.NextOffset())
	}
	color.New(color.Faint).Fprintln(w, footer)
	return nil
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <resource> <id>",
		Short: "Print one record as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api := a.client()
			def, err := a.lookup(ctx, api, args[0])
			if err != nil {
				return err
			}
			record, err := def.Get(ctx, api, args[1])
			if err != nil {
				return err
			}
			return a.printJSON(record)
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <resource> <id>",
		Short: "Delete one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api := a.client()
			def, err := a.lookup(ctx, api, args[0])
			if err != nil {
				return err
			}
			id := args[1]

			record, err := def.Get(ctx, api, id)
			if err != nil {
				return err
			}
			if !def.Deletable(record) {
				return fmt.Errorf("%s/%s cannot be deleted", def.Slug, id)
			}

			t, err := def.NewTable(api, a.cfg.PageSize)
			if err != nil {
				return err
			}
			if err := t.DeleteID(ctx, id); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(a.out, "Deleted %s/%s. %d records remain.\n", def.Slug, id, t.Page().Total)
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export <resource>",
		Short: "Download a resource as JSON, CSV, or XML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api := a.client()
			def, err := a.lookup(ctx, api, args[0])
			if err != nil {
				return err
			}
			f, err := dfapi.ParseFormat(format)
			if err != nil {
				return err
			}

			t, err := def.NewTable(api, a.cfg.PageSize)
			if err != nil {
				return err
			}
			exp, err := t.Download(ctx, f)
			if err != nil && exp.Name == "" {
				return err
			}

			if output == "" || output == "-" {
				_, werr := a.out.Write(exp.Data)
				return werr
			}
			if werr := os.WriteFile(output, exp.Data, 0644); werr != nil {
				return werr
			}
			color.New(color.FgGreen).Fprintf(a.errOut, "Wrote %s (%d bytes)\n", output, len(exp.Data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "File format: json, csv, or xml")
	cmd.Flags().StringVarP(&output, "output", "O", "", "Write to a file instead of stdout")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import <resource> <file>",
		Short: "Upload a JSON, CSV, or XML file into a resource",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api := a.client()
			def, err := a.lookup(ctx, api, args[0])
			if err != nil {
				return err
			}

			name := args[1]
			if format == "" {
				format = filepath.Ext(name)
			}
			f, err := dfapi.ParseFormat(format)
			if err != nil {
				return err
			}

			file, err := os.Open(name)
			if err != nil {
				return err
			}
			defer file.Close()

			t, err := def.NewTable(api, a.cfg.PageSize)
			if err != nil {
				return err
			}
			if err := t.Upload(ctx, dfapi.Upload{Name: filepath.Base(name), Format: f, Body: file}); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(a.out, "Imported %s into %s. %d records now.\n", filepath.Base(name), def.Slug, t.Page().Total)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "File format (default from the file extension)")
	return cmd
}

func newLicenseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "license",
		Short: "Show the platform license and what it unlocks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := a.checker(a.client()).Status(cmd.Context())
			if err != nil {
				return err
			}

			bold := color.New(color.Bold)
			bold.Fprintf(a.out, "Tier: %s\n", status.Tier)
			if status.Version != "" {
				fmt.Fprintf(a.out, "Platform version: %s\n", status.Version)
			}
			if status.RenewalDate != "" {
				fmt.Fprintf(a.out, "Renewal date: %s\n", status.RenewalDate)
			}
			if status.Message != "" {
				color.New(color.FgYellow).Fprintln(a.out, status.Message)
			}
			if status.Locked() {
				color.New(color.FgRed).Fprintln(a.out, "The license server has disabled the console.")
			}

			var locked []string
			for _, def := range resources.All() {
				if !status.Allows(def) {
					locked = append(locked, def.Slug)
				}
			}
			if len(locked) > 0 {
				fmt.Fprintf(a.out, "Requires a commercial license: %s\n", strings.Join(locked, ", "))
			}
			return nil
		},
	}
}
