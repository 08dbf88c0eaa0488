// Package inspect provides the count and show commands for records files.
package inspect

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/k3a/html2text"
	"github.com/spf13/cobra"

	"github.com/tphakala/marcharvest/internal/app"
	"github.com/tphakala/marcharvest/internal/datastore/entities"
	"github.com/tphakala/marcharvest/internal/datastore/repository"
	"github.com/tphakala/marcharvest/internal/harvest"
)

// CountCommand creates the count command.
func CountCommand(ctx *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "count [file-id]",
		Short: "Count the records of a records file",
		Long:  "Count the records of a records file. Unreadable files print their status instead.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.Open()
			if err != nil {
				return err
			}
			defer a.Close()

			file, err := lookupFile(cmd.Context(), a, args[0])
			if err != nil {
				return err
			}
			result, err := a.Inspector.CalculateRecordsCount(cmd.Context(), file)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), result.String())
			return err
		},
	}
}

// showOptions holds the flags of the show command.
type showOptions struct {
	positionType string
	position     int64
	view         string
	plain        bool
}

// ShowCommand creates the show command.
func ShowCommand(ctx *app.Context) *cobra.Command {
	opts := &showOptions{}

	cmd := &cobra.Command{
		Use:   "show [file-id]",
		Short: "Render one record of a records file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.position < 0 {
				return fmt.Errorf("position must not be negative")
			}

			a, err := ctx.Open()
			if err != nil {
				return err
			}
			defer a.Close()

			file, err := lookupFile(cmd.Context(), a, args[0])
			if err != nil {
				return err
			}
			content, err := a.Inspector.RecordContent(cmd.Context(), file, opts.positionType, opts.position, opts.view)
			if err != nil {
				return err
			}
			if opts.plain {
				content = plainText(content)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), content)
			return err
		},
	}

	cmd.Flags().StringVar(&opts.positionType, "position-type", harvest.PositionIndex, "Position meaning: index or offset")
	cmd.Flags().Int64Var(&opts.position, "position", 0, "Record index or byte offset")
	cmd.Flags().StringVar(&opts.view, "view", harvest.ViewHTML, "Rendering: html or text")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "Convert the rendering to terminal text")

	return cmd
}

// plainText strips markup from a rendering.
func plainText(content string) string {
	if trimmed, ok := strings.CutPrefix(content, "<plaintext>"); ok {
		return strings.TrimSuffix(trimmed, "</plaintext>")
	}
	return html2text.HTML2Text(content)
}

func lookupFile(ctx context.Context, a *app.App, arg string) (*entities.SourceRecordsFile, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || id == 0 {
		return nil, fmt.Errorf("invalid file id %q", arg)
	}
	return repository.NewSourceRepository(a.Store.DB()).GetFile(ctx, uint(id))
}
