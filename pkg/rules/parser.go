package rules

import (
	"regexp"
	"strings"
)

// Rule is the flattened view of a single <rule> element, with group names
// inherited from enclosing <group> scopes already merged in.
type Rule struct {
	ID             string
	Level          string
	Maxsize        string
	Description    string
	Groups         []string
	IfSID          []string
	IfMatchedSID   []string
	IfGroup        []string
	IfMatchedGroup []string
	Overwrite      bool
	File           string
}

// refSplitRE splits comma- or whitespace-separated reference lists.
var refSplitRE = regexp.MustCompile(`[,\s]+`)

// Walk traverses the document tree depth-first in document order, threading
// inherited group names down through nested <group> scopes, and calls fn for
// every <rule> element encountered. Rules therefore arrive at fn in exactly
// the order they appear in the file.
func Walk(doc *Element, file string, fn func(Rule)) {
	for i := range doc.Children {
		walk(&doc.Children[i], nil, file, fn)
	}
}

func walk(e *Element, inherited []string, file string, fn func(Rule)) {
	switch e.Name() {
	case "group":
		own := splitCommas(e.Attr("name"))
		groups := make([]string, 0, len(inherited)+len(own))
		groups = append(groups, inherited...)
		groups = append(groups, own...)
		for i := range e.Children {
			walk(&e.Children[i], groups, file, fn)
		}
	case "rule":
		fn(extractRule(e, inherited, file))
	}
}

func extractRule(e *Element, inherited []string, file string) Rule {
	r := Rule{
		ID:             e.Attr("id"),
		Level:          e.Attr("level"),
		Maxsize:        e.Attr("maxsize"),
		Description:    strings.Join(trimAll(e.ChildTexts("description")), " "),
		IfSID:          splitRefs(e.ChildText("if_sid")),
		IfMatchedSID:   splitRefs(e.ChildText("if_matched_sid")),
		IfGroup:        splitRefs(e.ChildText("if_group")),
		IfMatchedGroup: splitRefs(e.ChildText("if_matched_group")),
		Overwrite:      strings.EqualFold(e.Attr("overwrite"), "yes"),
		File:           file,
	}

	r.Groups = append(r.Groups, inherited...)
	for _, text := range e.ChildTexts("group") {
		r.Groups = append(r.Groups, splitCommas(text)...)
	}

	// Base rules with no id attribute collide on the default; the builder
	// reports them as duplicates. Overwrite rules keep the raw value so a
	// missing id never silently matches a real rule.
	if r.ID == "" && !r.Overwrite {
		r.ID = "0"
	}
	return r
}

// splitRefs splits a comma/whitespace-separated reference list into trimmed,
// non-empty tokens. An empty or all-whitespace input yields nil.
func splitRefs(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var out []string
	for _, tok := range refSplitRE.Split(s, -1) {
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// splitCommas splits a comma-separated group list, discarding empty segments
// such as the trailing one in "syslog,authentication,". Segments are kept
// verbatim: declared group names are never trimmed, only reference lists are,
// so a space-padded declaration does not match a trimmed lookup.
func splitCommas(s string) []string {
	var out []string
	for _, tok := range strings.Split(s, ",") {
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

func trimAll(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
