package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/sentinelsoft/rulegraph/pkg/analytics"
	"github.com/sentinelsoft/rulegraph/pkg/errors"
	"github.com/sentinelsoft/rulegraph/pkg/store"
)

// newAnalyzeCmd creates the analyze command, which recomputes the statistics
// and heatmap artifacts from the persisted graph without re-parsing any
// ruleset files. Useful for changing the heatmap block size after a long
// build.
func newAnalyzeCmd(configPath *string) *cobra.Command {
	var blockSize int

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Recompute analytics from the persisted graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, s, err := openStore(ctx, *configPath)
			if err != nil {
				return err
			}
			defer s.Close()

			if blockSize == 0 {
				blockSize = cfg.BlockSize
			}

			g, err := store.LoadGraph(ctx, s)
			if err != nil {
				return err
			}
			logger.Debug("graph loaded", "nodes", g.NodeCount(), "edges", g.EdgeCount())

			p := newProgress(logger)
			stats := analytics.ComputeStats(g)
			heatmap := analytics.ComputeHeatmap(g, blockSize)

			for name, v := range map[string]any{
				store.ArtifactStats:   stats,
				store.ArtifactHeatmap: heatmap,
			} {
				data, err := json.MarshalIndent(v, "", "  ")
				if err != nil {
					return errors.Wrap(errors.ErrCodeInternal, err, "encoding %s", name)
				}
				if err := s.Put(ctx, name, data); err != nil {
					return errors.Wrap(errors.ErrCodeInternal, err, "persisting %s", name)
				}
			}
			p.done("Recomputed analytics")
			return nil
		},
	}

	cmd.Flags().IntVar(&blockSize, "block-size", 0, "heatmap block size (overrides config)")
	return cmd
}
