package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tphakala/marcharvest/internal/app"
	"github.com/tphakala/marcharvest/internal/datastore/entities"
	"github.com/tphakala/marcharvest/internal/datastore/repository"
	"github.com/tphakala/marcharvest/internal/harvest"
)

// Command creates the collect command, which harvests all active sources.
func Command(ctx *app.Context) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Harvest every active source",
		Long:  "Harvest all active sources in one transaction. A store error rolls the whole run back.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.Open()
			if err != nil {
				return err
			}
			defer a.Close()

			statuses, err := a.Driver.Collect(cmd.Context())
			if err != nil {
				return err
			}
			return printStatuses(cmd.Context(), cmd.OutOrStdout(), a.Store.DB(), statuses, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print statuses as JSON")
	return cmd
}

// SourceCommand creates the collect-source command, which harvests one
// source whether or not it is active.
func SourceCommand(ctx *app.Context) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "collect-source [code]",
		Short: "Harvest a single source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.Open()
			if err != nil {
				return err
			}
			defer a.Close()

			status, err := a.Driver.CollectSource(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printStatuses(cmd.Context(), cmd.OutOrStdout(), a.Store.DB(), []*entities.HarvestingStatus{status}, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the status as JSON")
	return cmd
}

// printStatuses writes one line per status, or a JSON array.
func printStatuses(ctx context.Context, w io.Writer, db *gorm.DB, statuses []*entities.HarvestingStatus, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if statuses == nil {
			statuses = []*entities.HarvestingStatus{}
		}
		return enc.Encode(statuses)
	}

	if len(statuses) == 0 {
		_, err := fmt.Fprintln(w, "no active sources")
		return err
	}

	sources, err := repository.NewSourceRepository(db).GetAll(ctx)
	if err != nil {
		return err
	}
	codes := make(map[uint]string, len(sources))
	for _, s := range sources {
		codes[s.ID] = s.Code
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tSESSION\tCREATED\tUPDATED\tDELETED\tPROCESSED\tTOTAL\tPROGRESS\tMESSAGE")
	for _, s := range statuses {
		msg := s.Message
		if s.Error && msg == "" {
			msg = "failed"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d%%\t%s\n",
			codes[s.SourceID], s.SessionID, s.Created, s.Updated, s.Deleted,
			s.Processed, s.TotalRecords, harvest.Percent(s.Processed, s.TotalRecords), msg)
	}
	return tw.Flush()
}
