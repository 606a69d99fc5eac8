// Package pipeline orchestrates a full build: discover ruleset files, build
// the dependency graph, run analytics and persist the artifacts.
package pipeline

import (
	"context"
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/sentinelsoft/rulegraph/pkg/analytics"
	"github.com/sentinelsoft/rulegraph/pkg/errors"
	"github.com/sentinelsoft/rulegraph/pkg/rulegraph"
	"github.com/sentinelsoft/rulegraph/pkg/rules"
	"github.com/sentinelsoft/rulegraph/pkg/store"
)

// Options configures a single pipeline run.
type Options struct {
	// Paths are the directories scanned for ruleset files.
	Paths []string
	// BlockSize is the heatmap bucket width; zero selects the default.
	BlockSize int
}

// Manifest records the provenance of one build. It is persisted alongside
// the artifacts so a serving process can report what it is serving.
type Manifest struct {
	BuildID   string    `json:"build_id"`
	CreatedAt time.Time `json:"created_at"`
	Paths     []string  `json:"paths"`
	Files     int       `json:"files"`
	Nodes     int       `json:"nodes"`
	Edges     int       `json:"edges"`
}

// Result carries everything a run produced.
type Result struct {
	Manifest Manifest
	Graph    *rulegraph.Graph
	Stats    *analytics.Stats
	Heatmap  *analytics.Heatmap
	Duration time.Duration
}

// Runner executes builds against a store.
type Runner struct {
	store  store.Store
	logger *log.Logger
}

// NewRunner returns a runner persisting into s.
func NewRunner(s store.Store, logger *log.Logger) *Runner {
	return &Runner{store: s, logger: logger}
}

// Execute runs the full pipeline. Files that fail to read or parse are
// logged and skipped; the run only fails when no work can be done at all or
// when persisting an artifact fails.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	started := time.Now()
	buildID := uuid.NewString()
	r.logger.Info("starting build", "build_id", buildID, "paths", opts.Paths)

	files, err := r.discover(opts.Paths)
	if err != nil {
		return nil, err
	}

	g, err := r.build(ctx, files)
	if err != nil {
		return nil, err
	}

	stats, heatmap := r.analyze(g, opts.BlockSize)

	res := &Result{
		Manifest: Manifest{
			BuildID:   buildID,
			CreatedAt: time.Now().UTC(),
			Paths:     opts.Paths,
			Files:     len(files),
			Nodes:     g.NodeCount(),
			Edges:     g.EdgeCount(),
		},
		Graph:   g,
		Stats:   stats,
		Heatmap: heatmap,
	}
	if err := r.persist(ctx, res); err != nil {
		return nil, err
	}

	res.Duration = time.Since(started)
	r.logger.Info("build complete",
		"build_id", buildID,
		"nodes", res.Manifest.Nodes,
		"edges", res.Manifest.Edges,
		"elapsed", res.Duration.Round(time.Millisecond))
	return res, nil
}

func (r *Runner) discover(paths []string) ([]string, error) {
	started := time.Now()
	files, err := rules.Discover(paths)
	if err != nil {
		return nil, err
	}
	r.logger.Info("discovered ruleset files",
		"files", len(files), "elapsed", time.Since(started).Round(time.Millisecond))
	return files, nil
}

func (r *Runner) build(ctx context.Context, files []string) (*rulegraph.Graph, error) {
	started := time.Now()
	b := rulegraph.NewBuilder(r.logger)
	skipped := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := b.AddFile(f); err != nil {
			skipped++
			r.logger.Warn("skipping ruleset file", "file", filepath.Base(f), "err", err)
		}
	}
	g := b.Finish()
	r.logger.Info("graph built",
		"files", b.FilesParsed(),
		"skipped", skipped,
		"duplicates", b.Duplicates(),
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"elapsed", time.Since(started).Round(time.Millisecond))
	return g, nil
}

func (r *Runner) analyze(g *rulegraph.Graph, blockSize int) (*analytics.Stats, *analytics.Heatmap) {
	started := time.Now()
	stats := analytics.ComputeStats(g)
	heatmap := analytics.ComputeHeatmap(g, blockSize)
	r.logger.Info("analytics computed",
		"cycles", len(stats.Cycles),
		"isolated", len(stats.IsolatedRules),
		"blocks", heatmap.Metadata.TotalBlocks,
		"elapsed", time.Since(started).Round(time.Millisecond))
	return stats, heatmap
}

func (r *Runner) persist(ctx context.Context, res *Result) error {
	started := time.Now()
	graphData, err := rulegraph.Marshal(res.Graph)
	if err != nil {
		return err
	}
	artifacts := []struct {
		name string
		data any
		raw  []byte
	}{
		{name: store.ArtifactGraph, raw: graphData},
		{name: store.ArtifactStats, data: res.Stats},
		{name: store.ArtifactHeatmap, data: res.Heatmap},
		{name: store.ArtifactManifest, data: res.Manifest},
	}
	for _, a := range artifacts {
		raw := a.raw
		if raw == nil {
			raw, err = json.MarshalIndent(a.data, "", "  ")
			if err != nil {
				return errors.Wrap(errors.ErrCodeInternal, err, "encoding %s", a.name)
			}
		}
		if err := r.store.Put(ctx, a.name, raw); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "persisting %s", a.name)
		}
	}
	r.logger.Info("artifacts persisted",
		"count", len(artifacts), "elapsed", time.Since(started).Round(time.Millisecond))
	return nil
}
