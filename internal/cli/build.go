package cli

import (
	"github.com/spf13/cobra"

	"github.com/sentinelsoft/rulegraph/pkg/pipeline"
)

// newBuildCmd creates the build command, which runs the full pipeline:
// discover ruleset files, construct the graph, compute analytics and persist
// every artifact to the configured store.
func newBuildCmd(configPath *string) *cobra.Command {
	var (
		paths     []string
		blockSize int
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the rule graph and its analytics artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, s, err := openStore(ctx, *configPath)
			if err != nil {
				return err
			}
			defer s.Close()

			if len(paths) == 0 {
				paths = cfg.Paths
			}
			if blockSize == 0 {
				blockSize = cfg.BlockSize
			}

			p := newProgress(logger)
			res, err := pipeline.NewRunner(s, logger).Execute(ctx, pipeline.Options{
				Paths:     paths,
				BlockSize: blockSize,
			})
			if err != nil {
				return err
			}
			p.done("Built graph " + res.Manifest.BuildID)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&paths, "path", "p", nil, "rule directory to scan (repeatable, overrides config)")
	cmd.Flags().IntVar(&blockSize, "block-size", 0, "heatmap block size (overrides config)")
	return cmd
}
