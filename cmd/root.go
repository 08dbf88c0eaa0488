package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/marcharvest/cmd/collect"
	"github.com/tphakala/marcharvest/cmd/inspect"
	"github.com/tphakala/marcharvest/cmd/serve"
	"github.com/tphakala/marcharvest/cmd/sources"
	"github.com/tphakala/marcharvest/cmd/version"
	"github.com/tphakala/marcharvest/internal/app"
	"github.com/tphakala/marcharvest/internal/buildinfo"
)

// Execute runs the command line and returns the process exit code.
func Execute(build *buildinfo.Context) int {
	ctx := app.NewContext(build)
	defer ctx.Teardown()

	if err := RootCommand(ctx).Execute(); err != nil {
		return 1
	}
	return 0
}

// RootCommand creates and returns the root command
func RootCommand(ctx *app.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "marcharvest",
		Short:        "ISO2709 bibliographic record harvester",
		SilenceUsage: true,
	}

	// Set up the global flags for the root command.
	cobra.CheckErr(setupFlags(rootCmd))

	versionCmd := version.Command(ctx.Build)

	subcommands := []*cobra.Command{
		collect.Command(ctx),
		collect.SourceCommand(ctx),
		inspect.CountCommand(ctx),
		inspect.ShowCommand(ctx),
		sources.Command(ctx),
		serve.Command(ctx),
		versionCmd,
	}

	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Skip setup for the version command
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return ctx.Setup()
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command) error {
	flags := rootCmd.PersistentFlags()
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("database", "", "Record store backend: sqlite or mysql")
	flags.String("sqlite-path", "", "Path to the SQLite database file")
	flags.String("staging-dir", "", "Directory for staged copies of remote records files")

	for key, name := range map[string]string{
		"main.debug":           "debug",
		"database.type":        "database",
		"database.sqlite.path": "sqlite-path",
		"harvest.stagingdir":   "staging-dir",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}

	return nil
}
