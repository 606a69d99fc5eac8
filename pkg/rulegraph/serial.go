package rulegraph

import (
	"encoding/json"
	"io"
	"os"
	"sort"

	"github.com/sentinelsoft/rulegraph/pkg/errors"
)

// Document is the JSON artifact form of a graph. Nodes are sorted by id so
// that two builds of the same ruleset produce byte-identical artifacts;
// edges keep construction order.
type Document struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Marshal renders the graph as an indented JSON document.
func Marshal(g *Graph) ([]byte, error) {
	doc := Document{
		Nodes: make([]Node, 0, g.NodeCount()),
		Edges: g.Edges(),
	}
	for _, n := range g.Nodes() {
		c := *n
		if c.Groups == nil {
			c.Groups = []string{}
		}
		if c.Children == nil {
			c.Children = []string{}
		}
		doc.Nodes = append(doc.Nodes, c)
	}
	sort.Slice(doc.Nodes, func(i, j int) bool { return doc.Nodes[i].ID < doc.Nodes[j].ID })
	if doc.Edges == nil {
		doc.Edges = []Edge{}
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Write streams the marshaled graph to w.
func Write(g *Graph, w io.Writer) error {
	data, err := Marshal(g)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encoding graph")
	}
	_, err = w.Write(data)
	return err
}

// WriteFile writes the marshaled graph to path.
func WriteFile(g *Graph, path string) error {
	data, err := Marshal(g)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encoding graph")
	}
	return os.WriteFile(path, data, 0o644)
}

// Unmarshal reconstructs a finalized graph from its JSON artifact form. An
// edge referencing a node absent from the node list marks the artifact as
// corrupt.
func Unmarshal(data []byte) (*Graph, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeArtifactCorrupt, err, "decoding graph artifact")
	}
	g := New()
	for _, n := range doc.Nodes {
		node := n
		node.defined = true
		if g.HasNode(node.ID) {
			return nil, errors.New(errors.ErrCodeArtifactCorrupt, "graph artifact repeats node %s", node.ID)
		}
		g.insert(&node)
	}
	for _, e := range doc.Edges {
		if !g.HasNode(e.From) || !g.HasNode(e.To) {
			return nil, errors.New(errors.ErrCodeArtifactCorrupt,
				"graph artifact edge references unknown node")
		}
		g.edges = append(g.edges, e)
		g.outgoing[e.From] = append(g.outgoing[e.From], e.To)
		g.incoming[e.To] = append(g.incoming[e.To], e.From)
	}
	g.final = true
	return g, nil
}

// Read decodes a graph artifact from r.
func Read(r io.Reader) (*Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeArtifactCorrupt, err, "reading graph artifact")
	}
	return Unmarshal(data)
}

// ReadFile decodes the graph artifact at path.
func ReadFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeArtifactMissing, err, "graph artifact not found")
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "reading graph artifact")
	}
	return Unmarshal(data)
}
