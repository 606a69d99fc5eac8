package rulegraph

import (
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/sentinelsoft/rulegraph/pkg/errors"
	"github.com/sentinelsoft/rulegraph/pkg/rules"
)

// Builder constructs a rule graph from ruleset files. Files are fed in one at
// a time; relationship resolution is order-sensitive, so feeding order is
// part of the result. Finish runs the deferred overwrite pass and finalizes
// the graph.
type Builder struct {
	graph      *Graph
	logger     *log.Logger
	overwrites []pendingOverwrite

	filesParsed int
	duplicates  int
}

type pendingOverwrite struct {
	rule rules.Rule
	file string
}

// NewBuilder returns a builder writing into a fresh graph.
func NewBuilder(logger *log.Logger) *Builder {
	return &Builder{graph: New(), logger: logger}
}

// AddFile sanitizes, parses and ingests a single ruleset file. Rules with
// the overwrite attribute are queued for the deferred pass in Finish rather
// than applied immediately, because their base rule may live in a file not
// yet processed.
func (b *Builder) AddFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeFileNotFound, err, "reading ruleset file")
	}
	doc, err := rules.ParseDocument([]byte(rules.Sanitize(string(raw))))
	if err != nil {
		return err
	}
	rules.Walk(doc, path, func(r rules.Rule) {
		b.addRule(r)
	})
	b.filesParsed++
	return nil
}

// FilesParsed returns the number of files ingested without a parse error.
func (b *Builder) FilesParsed() int { return b.filesParsed }

// Duplicates returns the number of base definitions dropped because their id
// was already defined.
func (b *Builder) Duplicates() int { return b.duplicates }

func (b *Builder) addRule(r rules.Rule) {
	if r.Overwrite {
		b.overwrites = append(b.overwrites, pendingOverwrite{rule: r, file: r.File})
		return
	}
	node := Node{
		ID:          r.ID,
		Level:       r.Level,
		Description: r.Description,
		Groups:      r.Groups,
		File:        filepath.Base(r.File),
	}
	if err := b.graph.AddRule(node); err != nil {
		b.duplicates++
		b.logger.Warn("duplicate rule definition ignored", "id", r.ID, "file", filepath.Base(r.File))
		return
	}
	b.resolve(r)
}

// resolve adds one edge per reference token. Group references link every
// rule currently in the group to the new rule, so only members defined
// before this point in the scan order contribute edges.
func (b *Builder) resolve(r rules.Rule) {
	for _, sid := range r.IfSID {
		b.graph.AddEdge(Edge{From: sid, To: r.ID, Kind: EdgeIfSID})
	}
	for _, sid := range r.IfMatchedSID {
		b.graph.AddEdge(Edge{From: sid, To: r.ID, Kind: EdgeIfMatchedSID})
	}
	for _, grp := range r.IfGroup {
		for _, member := range b.graph.GroupMembers(grp) {
			b.graph.AddEdge(Edge{From: member, To: r.ID, Kind: EdgeIfGroup})
		}
	}
	for _, grp := range r.IfMatchedGroup {
		for _, member := range b.graph.GroupMembers(grp) {
			b.graph.AddEdge(Edge{From: member, To: r.ID, Kind: EdgeIfMatchedGroup})
		}
	}
}

// Finish applies all queued overwrite rules and finalizes the graph. An
// overwrite patches its base rule in place: description and level only when
// non-empty on the overwrite, maxsize only when present, and the owning file
// always moves to the overwrite's file. Overwrites naming an unknown or
// never-defined rule are logged and dropped.
func (b *Builder) Finish() *Graph {
	for _, ow := range b.overwrites {
		n := b.graph.Node(ow.rule.ID)
		if n == nil || !n.Defined() {
			b.logger.Warn("overwrite for unknown rule ignored",
				"id", ow.rule.ID, "file", filepath.Base(ow.file))
			continue
		}
		if ow.rule.Description != "" {
			n.Description = ow.rule.Description
		}
		if ow.rule.Level != "" {
			n.Level = ow.rule.Level
		}
		if ow.rule.Maxsize != "" {
			n.Maxsize = ow.rule.Maxsize
		}
		n.File = filepath.Base(ow.file)
	}
	b.overwrites = nil
	b.graph.Finalize()
	return b.graph
}
