package rules

import (
	"bytes"
	"encoding/xml"

	"github.com/sentinelsoft/rulegraph/pkg/errors"
)

// Element is a generic XML element tree node. Rulesets use a small, flat
// vocabulary, so a schema-free tree keeps the parser independent from the
// exact set of tags a file happens to use.
type Element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []Element  `xml:",any"`
}

// ParseDocument unmarshals sanitized ruleset content into an element tree.
// The returned element is the synthetic wrapper added by Sanitize.
func ParseDocument(data []byte) (*Element, error) {
	var root Element
	dec := xml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&root); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParseFailed, err, "malformed ruleset XML")
	}
	return &root, nil
}

// Name returns the element's local tag name.
func (e *Element) Name() string {
	return e.XMLName.Local
}

// Attr returns the value of the named attribute, or "" if it is absent.
func (e *Element) Attr(name string) string {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// HasAttr reports whether the named attribute is present on the element.
func (e *Element) HasAttr(name string) bool {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return true
		}
	}
	return false
}

// ChildText returns the text content of the first direct child with the
// given tag name, or "" if no such child exists.
func (e *Element) ChildText(name string) string {
	for i := range e.Children {
		if e.Children[i].Name() == name {
			return e.Children[i].Text
		}
	}
	return ""
}

// ChildTexts returns the text content of every direct child with the given
// tag name, in document order.
func (e *Element) ChildTexts(name string) []string {
	var out []string
	for i := range e.Children {
		if e.Children[i].Name() == name {
			out = append(out, e.Children[i].Text)
		}
	}
	return out
}
