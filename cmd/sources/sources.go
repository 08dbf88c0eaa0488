// Package sources provides commands that manage harvest sources.
package sources

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/labstack/gommon/bytes"
	"github.com/spf13/cobra"

	"github.com/tphakala/marcharvest/internal/app"
	"github.com/tphakala/marcharvest/internal/datastore/repository"
	"github.com/tphakala/marcharvest/internal/fetch"
)

// Command creates the sources command and its subcommands.
func Command(ctx *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage harvest sources",
	}
	cmd.AddCommand(importCommand(ctx), listCommand(ctx))
	return cmd
}

func importCommand(ctx *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "import [sources.yaml]",
		Short: "Create or update sources and their files from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			defs, err := ParseDefinitions(f)
			if err != nil {
				return err
			}

			a, err := ctx.Open()
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := Import(cmd.Context(), a.Store.DB(), defs)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "sources: %d created, %d updated; files: %d added\n",
				result.SourcesCreated, result.SourcesUpdated, result.FilesAdded)
			return err
		},
	}
}

func listCommand(ctx *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sources with their files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.Open()
			if err != nil {
				return err
			}
			defer a.Close()
			return List(cmd, a)
		},
	}
}

// List prints every source followed by its files. Remote files are not
// staged, so their size and status are not shown.
func List(cmd *cobra.Command, a *app.App) error {
	repo := repository.NewSourceRepository(a.Store.DB())
	all, err := repo.GetAll(cmd.Context())
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tNAME\tACTIVE\tRESET\tFILE\tFORMAT\tENCODING\tSIZE\tSTATUS")
	for _, s := range all {
		files, err := repo.Files(cmd.Context(), s.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%t\t\t\t\t\t\n", s.Code, s.Name, s.Active, s.Reset)
		for _, f := range files {
			writeFile(tw, f.ID, f.FileURI, f.Format, f.Encoding)
		}
	}
	return tw.Flush()
}

func writeFile(w io.Writer, id uint, uri, format, encoding string) {
	size, status := "-", "remote"
	if !fetch.IsRemote(uri) {
		info := fetch.Describe(fetch.LocalPath(uri))
		status = info.Status.String()
		if info.Status.OK() {
			size = bytes.Format(info.Size)
		}
	}
	fmt.Fprintf(w, "\t\t\t\t#%d %s\t%s\t%s\t%s\t%s\n", id, uri, format, encoding, size, status)
}
