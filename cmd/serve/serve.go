package serve

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/marcharvest/internal/api"
	"github.com/tphakala/marcharvest/internal/app"
	"github.com/tphakala/marcharvest/internal/logger"
)

// Command creates the serve command, which runs the HTTP API until
// interrupted.
func Command(ctx *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long:  "Serve the JSON API and the Prometheus endpoint until SIGINT or SIGTERM.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.Open()
			if err != nil {
				return err
			}
			defer a.Close()

			server, err := api.New(ctx.Settings,
				api.WithDB(a.Store.DB()),
				api.WithDriver(a.Driver),
				api.WithInspector(a.Inspector),
				api.WithMetrics(a.Metrics))
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			api.GetLogger().Info("serving",
				logger.String("version", ctx.Build.GetVersion()),
				logger.String("store", a.Store.Path()),
				logger.Bool("mqtt", a.Publishing()))
			return server.Run(runCtx)
		},
	}

	if err := setupFlags(cmd); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the serve command.
func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("listen", "", "Listen address and port of the HTTP API")
	cmd.Flags().Bool("metrics", true, "Enable the Prometheus endpoint")

	for key, name := range map[string]string{
		"webserver.listen": "listen",
		"metrics.enabled":  "metrics",
	} {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}
	return nil
}
