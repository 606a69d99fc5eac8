package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/sentinelsoft/rulegraph/pkg/pipeline"
	"github.com/sentinelsoft/rulegraph/pkg/server"
	"github.com/sentinelsoft/rulegraph/pkg/store"
)

// newServeCmd creates the serve command, which loads the persisted artifacts
// and exposes them over HTTP until interrupted.
func newServeCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the built graph over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, s, err := openStore(ctx, *configPath)
			if err != nil {
				return err
			}
			defer s.Close()

			if addr == "" {
				addr = cfg.Addr
			}

			g, err := store.LoadGraph(ctx, s)
			if err != nil {
				return err
			}
			stats, err := store.LoadStats(ctx, s)
			if err != nil {
				return err
			}
			heatmap, err := store.LoadHeatmap(ctx, s)
			if err != nil {
				return err
			}
			manifest := loadManifest(ctx, s)

			srv := server.New(g, stats, heatmap, manifest, logger)
			httpSrv := &http.Server{
				Addr:              addr,
				Handler:           srv.Router(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("serving", "addr", addr, "nodes", g.NodeCount(), "edges", g.EdgeCount())
				errCh <- httpSrv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := httpSrv.Shutdown(shutdownCtx); err != nil {
					return err
				}
				if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return ctx.Err()
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

// loadManifest fetches the build manifest if one exists. Builds from older
// versions have no manifest, so absence is not an error.
func loadManifest(ctx context.Context, s store.Store) *pipeline.Manifest {
	data, err := s.Get(ctx, store.ArtifactManifest)
	if err != nil {
		return nil
	}
	var m pipeline.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return &m
}
