package store

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/sentinelsoft/rulegraph/pkg/analytics"
	"github.com/sentinelsoft/rulegraph/pkg/errors"
	"github.com/sentinelsoft/rulegraph/pkg/rulegraph"
)

// LoadGraph fetches and decodes the graph artifact.
func LoadGraph(ctx context.Context, s Store) (*rulegraph.Graph, error) {
	data, err := fetch(ctx, s, ArtifactGraph)
	if err != nil {
		return nil, err
	}
	return rulegraph.Unmarshal(data)
}

// LoadStats fetches and decodes the statistics artifact.
func LoadStats(ctx context.Context, s Store) (*analytics.Stats, error) {
	var stats analytics.Stats
	if err := loadJSON(ctx, s, ArtifactStats, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// LoadHeatmap fetches and decodes the heatmap artifact.
func LoadHeatmap(ctx context.Context, s Store) (*analytics.Heatmap, error) {
	var h analytics.Heatmap
	if err := loadJSON(ctx, s, ArtifactHeatmap, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func fetch(ctx context.Context, s Store, name string) ([]byte, error) {
	data, err := s.Get(ctx, name)
	if stderrors.Is(err, ErrMissing) {
		return nil, errors.Wrap(errors.ErrCodeArtifactMissing, err,
			"%s not found, run a build first", name)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "fetching %s", name)
	}
	return data, nil
}

func loadJSON(ctx context.Context, s Store, name string, v any) error {
	data, err := fetch(ctx, s, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(errors.ErrCodeArtifactCorrupt, err, "decoding %s", name)
	}
	return nil
}
