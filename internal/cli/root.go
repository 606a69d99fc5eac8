package cli

import (
	"context"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/sentinelsoft/rulegraph/pkg/buildinfo"
	"github.com/sentinelsoft/rulegraph/pkg/config"
	"github.com/sentinelsoft/rulegraph/pkg/store"
)

// Execute runs the rulegraph CLI. The logger is configured from the
// --verbose flag in PersistentPreRun and attached to the command context,
// where subcommands pick it up via loggerFromContext.
func Execute(ctx context.Context) error {
	var (
		verbose    bool
		configPath string
	)

	root := &cobra.Command{
		Use:          "rulegraph",
		Short:        "rulegraph builds and explores security rule dependency graphs",
		Long:         `rulegraph scans detection ruleset files, builds the directed graph of dependencies between rules, derives statistics and density reports from it, and serves the result over HTTP for interactive exploration.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	root.AddCommand(newBuildCmd(&configPath))
	root.AddCommand(newAnalyzeCmd(&configPath))
	root.AddCommand(newStatsCmd(&configPath))
	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newCompletionCmd())

	return root.ExecuteContext(ctx)
}

// openStore loads the configuration and opens the artifact store it selects.
// The caller owns the returned store and must close it.
func openStore(ctx context.Context, configPath string) (config.Config, store.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, nil, err
	}
	s, err := cfg.OpenStore(ctx)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, s, nil
}
