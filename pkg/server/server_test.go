package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	charmlog "github.com/charmbracelet/log"

	"github.com/sentinelsoft/rulegraph/pkg/analytics"
	"github.com/sentinelsoft/rulegraph/pkg/pipeline"
	"github.com/sentinelsoft/rulegraph/pkg/rulegraph"
)

// testServer builds a small graph:
//
//	0 -> 1 -> 2 -> 3
//	     1 -> 3 (if_group)
func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	g := rulegraph.New()
	g.AddRule(rulegraph.Node{ID: "1", Level: "5", Description: "parent", Groups: []string{"web"}})
	g.AddRule(rulegraph.Node{ID: "2", Level: "3", Description: "middle"})
	g.AddRule(rulegraph.Node{ID: "3", Level: "7", Description: "leaf"})
	g.AddEdge(rulegraph.Edge{From: "1", To: "2", Kind: rulegraph.EdgeIfSID})
	g.AddEdge(rulegraph.Edge{From: "2", To: "3", Kind: rulegraph.EdgeIfSID})
	g.AddEdge(rulegraph.Edge{From: "1", To: "3", Kind: rulegraph.EdgeIfGroup})
	g.Finalize()

	stats := analytics.ComputeStats(g)
	heatmap := analytics.ComputeHeatmap(g, 10)
	manifest := &pipeline.Manifest{BuildID: "test-build"}

	srv := New(g, stats, heatmap, manifest, charmlog.New(&bytes.Buffer{}))
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decoding %s: %v", url, err)
	}
	return resp.StatusCode
}

func TestHandleRoot(t *testing.T) {
	ts := testServer(t)
	var out struct {
		Nodes []nodePayload    `json:"nodes"`
		Edges []rulegraph.Edge `json:"edges"`
	}
	if code := getJSON(t, ts.URL+"/api/root", &out); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	// Root plus its single parentless child.
	if len(out.Nodes) != 2 {
		t.Fatalf("nodes = %+v, want root and rule 1", out.Nodes)
	}
	if out.Nodes[0].ID != rulegraph.RootID || !out.Nodes[0].HasChildren {
		t.Errorf("first node = %+v, want expandable root", out.Nodes[0])
	}
	if len(out.Edges) != 1 || out.Edges[0].Kind != rulegraph.EdgeRoot {
		t.Errorf("edges = %+v, want one root edge", out.Edges)
	}
}

func TestHandleNode(t *testing.T) {
	ts := testServer(t)
	var out struct {
		Nodes []nodePayload    `json:"nodes"`
		Edges []rulegraph.Edge `json:"edges"`
	}
	if code := getJSON(t, ts.URL+"/api/node/1", &out); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(out.Nodes) != 2 {
		t.Fatalf("children = %+v, want rules 2 and 3", out.Nodes)
	}
	if len(out.Edges) != 2 {
		t.Errorf("edges = %+v, want 2", out.Edges)
	}
	// Leaf nodes are not expandable.
	for _, n := range out.Nodes {
		if n.ID == "3" && n.HasChildren {
			t.Error("leaf reported has_children")
		}
	}
}

func TestHandleNodeUnknown(t *testing.T) {
	ts := testServer(t)
	var out map[string]string
	if code := getJSON(t, ts.URL+"/api/node/999", &out); code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
	if out["error"] == "" {
		t.Error("404 body carries no error message")
	}
}

func TestHandleParents(t *testing.T) {
	ts := testServer(t)
	var out struct {
		Nodes []nodePayload    `json:"nodes"`
		Edges []rulegraph.Edge `json:"edges"`
	}
	if code := getJSON(t, ts.URL+"/api/node/3/parents", &out); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	var ids []string
	for _, n := range out.Nodes {
		ids = append(ids, n.ID)
	}
	if len(ids) != 2 {
		t.Fatalf("parents = %v, want 2 and 1", ids)
	}
	for _, e := range out.Edges {
		if e.To != "3" {
			t.Errorf("edge %+v does not arrive at 3", e)
		}
	}
}

func TestHandleExpandable(t *testing.T) {
	ts := testServer(t)
	tests := []struct {
		query string
		want  bool
	}{
		{"/api/node/1/expandable", true},
		{"/api/node/1/expandable?shown=2", true},
		{"/api/node/1/expandable?shown=2,3", false},
		{"/api/node/1/expandable?shown=2,%203,", false},
		{"/api/node/3/expandable", false},
	}
	for _, tt := range tests {
		var out map[string]bool
		if code := getJSON(t, ts.URL+tt.query, &out); code != http.StatusOK {
			t.Fatalf("%s status = %d", tt.query, code)
		}
		if out["expandable"] != tt.want {
			t.Errorf("%s = %v, want %v", tt.query, out["expandable"], tt.want)
		}
	}
}

func TestHandleSubgraph(t *testing.T) {
	ts := testServer(t)
	body := strings.NewReader(`{"ids":["1","3","999","1"]}`)
	resp, err := http.Post(ts.URL+"/api/subgraph", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out struct {
		Nodes []nodePayload    `json:"nodes"`
		Edges []rulegraph.Edge `json:"edges"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	// Unknown and duplicate ids are dropped.
	if len(out.Nodes) != 2 {
		t.Errorf("nodes = %+v, want 1 and 3", out.Nodes)
	}
	// Only the induced edge 1->3 qualifies; 1->2->3 passes through an
	// excluded node.
	if len(out.Edges) != 1 || out.Edges[0].Kind != rulegraph.EdgeIfGroup {
		t.Errorf("edges = %+v, want the direct 1->3 edge", out.Edges)
	}
}

func TestHandleSubgraphBadBody(t *testing.T) {
	ts := testServer(t)
	resp, err := http.Post(ts.URL+"/api/subgraph", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHandleStatsAndHeatmap(t *testing.T) {
	ts := testServer(t)
	var stats analytics.Stats
	if code := getJSON(t, ts.URL+"/api/stats", &stats); code != http.StatusOK {
		t.Fatalf("stats status = %d", code)
	}
	if len(stats.TopDirectDescendants) == 0 {
		t.Error("stats payload empty")
	}
	var h analytics.Heatmap
	if code := getJSON(t, ts.URL+"/api/heatmap", &h); code != http.StatusOK {
		t.Fatalf("heatmap status = %d", code)
	}
	if h.Metadata.BlockSize != 10 {
		t.Errorf("heatmap block_size = %d", h.Metadata.BlockSize)
	}
}

func TestHandleManifest(t *testing.T) {
	ts := testServer(t)
	var m pipeline.Manifest
	if code := getJSON(t, ts.URL+"/api/manifest", &m); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if m.BuildID != "test-build" {
		t.Errorf("build id = %q", m.BuildID)
	}
}
