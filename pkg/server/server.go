// Package server exposes a built rule graph over HTTP for incremental
// exploration. Clients start at the synthetic root and expand nodes one at a
// time, so responses only ever carry a node's immediate neighborhood.
package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sentinelsoft/rulegraph/pkg/analytics"
	"github.com/sentinelsoft/rulegraph/pkg/pipeline"
	"github.com/sentinelsoft/rulegraph/pkg/rulegraph"
)

// Server serves one build's artifacts. The graph is finalized and therefore
// safe for concurrent handlers.
type Server struct {
	graph    *rulegraph.Graph
	stats    *analytics.Stats
	heatmap  *analytics.Heatmap
	manifest *pipeline.Manifest
	logger   *log.Logger
}

// New returns a server over the given artifacts. The manifest may be nil
// when the build that produced the graph predates manifests.
func New(g *rulegraph.Graph, stats *analytics.Stats, heatmap *analytics.Heatmap, manifest *pipeline.Manifest, logger *log.Logger) *Server {
	return &Server{graph: g, stats: stats, heatmap: heatmap, manifest: manifest, logger: logger}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Get("/root", s.handleRoot)
		r.Get("/node/{id}", s.handleNode)
		r.Get("/node/{id}/parents", s.handleParents)
		r.Get("/node/{id}/expandable", s.handleExpandable)
		r.Post("/subgraph", s.handleSubgraph)
		r.Get("/stats", s.handleStats)
		r.Get("/heatmap", s.handleHeatmap)
		r.Get("/manifest", s.handleManifest)
	})
	r.Get("/healthz", s.handleHealth)
	return r
}

// nodePayload is the wire form of a node. has_children lets a client draw
// an expansion affordance without fetching the node's neighborhood first.
type nodePayload struct {
	ID          string   `json:"id"`
	Level       string   `json:"level"`
	Description string   `json:"description"`
	Groups      []string `json:"groups"`
	File        string   `json:"file"`
	Maxsize     string   `json:"maxsize,omitempty"`
	HasChildren bool     `json:"has_children"`
}

type graphPayload struct {
	Nodes []nodePayload    `json:"nodes"`
	Edges []rulegraph.Edge `json:"edges"`
}

func (s *Server) payload(n *rulegraph.Node) nodePayload {
	groups := n.Groups
	if groups == nil {
		groups = []string{}
	}
	return nodePayload{
		ID:          n.ID,
		Level:       n.Level,
		Description: n.Description,
		Groups:      groups,
		File:        n.File,
		Maxsize:     n.Maxsize,
		HasChildren: len(n.Children) > 0,
	}
}

// handleRoot returns the synthetic root and its immediate children.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	root := s.graph.Node(rulegraph.RootID)
	if root == nil {
		s.writeError(w, http.StatusInternalServerError, "graph has no root node")
		return
	}
	out := graphPayload{Nodes: []nodePayload{s.payload(root)}, Edges: []rulegraph.Edge{}}
	s.appendChildren(&out, root)
	s.writeJSON(w, http.StatusOK, out)
}

// handleNode returns the children of one node together with the edges
// leading to them.
func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	n := s.lookup(w, r)
	if n == nil {
		return
	}
	out := graphPayload{Nodes: []nodePayload{}, Edges: []rulegraph.Edge{}}
	s.appendChildren(&out, n)
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) appendChildren(out *graphPayload, n *rulegraph.Node) {
	children := make(map[string]struct{}, len(n.Children))
	for _, id := range n.Children {
		children[id] = struct{}{}
		out.Nodes = append(out.Nodes, s.payload(s.graph.Node(id)))
	}
	for _, e := range s.graph.EdgesFrom(n.ID) {
		if _, ok := children[e.To]; ok {
			out.Edges = append(out.Edges, e)
		}
	}
}

// handleParents returns the direct predecessors of a node and the edges
// arriving from them.
func (s *Server) handleParents(w http.ResponseWriter, r *http.Request) {
	n := s.lookup(w, r)
	if n == nil {
		return
	}
	out := graphPayload{Nodes: []nodePayload{}, Edges: []rulegraph.Edge{}}
	parents := make(map[string]struct{})
	for _, id := range s.graph.Predecessors(n.ID) {
		parents[id] = struct{}{}
		out.Nodes = append(out.Nodes, s.payload(s.graph.Node(id)))
	}
	for _, e := range s.graph.Edges() {
		if e.To != n.ID {
			continue
		}
		if _, ok := parents[e.From]; ok {
			out.Edges = append(out.Edges, e)
		}
	}
	s.writeJSON(w, http.StatusOK, out)
}

// handleExpandable reports whether a node still has children the client is
// not showing. The shown query parameter carries a comma-separated id list.
func (s *Server) handleExpandable(w http.ResponseWriter, r *http.Request) {
	n := s.lookup(w, r)
	if n == nil {
		return
	}
	shown := make(map[string]struct{})
	for _, id := range strings.Split(r.URL.Query().Get("shown"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			shown[id] = struct{}{}
		}
	}
	expandable := false
	for _, id := range n.Children {
		if _, ok := shown[id]; !ok {
			expandable = true
			break
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"expandable": expandable})
}

type subgraphRequest struct {
	IDs []string `json:"ids"`
}

// handleSubgraph returns the nodes for a client-chosen id set plus every
// edge whose both endpoints are in the set. Unknown ids are skipped rather
// than rejected so a stale client view does not break redraws.
func (s *Server) handleSubgraph(w http.ResponseWriter, r *http.Request) {
	var req subgraphRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	out := graphPayload{Nodes: []nodePayload{}, Edges: []rulegraph.Edge{}}
	want := make(map[string]struct{}, len(req.IDs))
	for _, id := range req.IDs {
		if _, ok := want[id]; ok {
			continue
		}
		n := s.graph.Node(id)
		if n == nil {
			continue
		}
		want[id] = struct{}{}
		out.Nodes = append(out.Nodes, s.payload(n))
	}
	for _, e := range s.graph.Edges() {
		if _, ok := want[e.From]; !ok {
			continue
		}
		if _, ok := want[e.To]; !ok {
			continue
		}
		out.Edges = append(out.Edges, e)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.stats)
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.heatmap)
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	if s.manifest == nil {
		s.writeError(w, http.StatusNotFound, "no manifest for this build")
		return
	}
	s.writeJSON(w, http.StatusOK, s.manifest)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"nodes":  s.graph.NodeCount(),
		"edges":  s.graph.EdgeCount(),
	})
}

// lookup resolves the id path parameter, writing a 404 and returning nil
// when the node does not exist.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) *rulegraph.Node {
	id := chi.URLParam(r, "id")
	n := s.graph.Node(id)
	if n == nil {
		s.writeError(w, http.StatusNotFound, "unknown rule id "+id)
		return nil
	}
	return n
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("writing response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed", time.Since(started).Round(time.Microsecond))
	})
}
