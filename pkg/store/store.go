// Package store persists build artifacts. A Store is a flat namespace of
// named byte blobs; the file backend is the default, with Redis and MongoDB
// backends for deployments that serve artifacts from shared infrastructure.
package store

import (
	"context"
	"errors"
)

// Artifact names produced by a build.
const (
	ArtifactGraph    = "graph.json"
	ArtifactStats    = "stats.json"
	ArtifactHeatmap  = "heatmap.json"
	ArtifactManifest = "build.json"
)

// ErrMissing is returned by Get when the named artifact does not exist.
var ErrMissing = errors.New("artifact not found")

// Store reads and writes named artifacts.
type Store interface {
	// Put stores data under name, replacing any previous value.
	Put(ctx context.Context, name string, data []byte) error
	// Get returns the data stored under name, or ErrMissing.
	Get(ctx context.Context, name string) ([]byte, error)
	// Delete removes the named artifact. Deleting an absent name is not an
	// error.
	Delete(ctx context.Context, name string) error
	// Close releases any backend resources.
	Close() error
}
