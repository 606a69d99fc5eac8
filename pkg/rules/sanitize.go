package rules

import "regexp"

// Ruleset files in the wild are not well-formed XML. Two repairs are applied
// before parsing:
//
//  1. <regex> blocks may embed raw pattern text containing characters that are
//     illegal in strict XML. The pattern content is never needed for graph
//     construction, so the whole block is stripped.
//  2. Bare ampersands that are not part of a recognized escape sequence are
//     escaped to &amp;.
//
// A file may also contain multiple top-level <group> declarations with no
// common ancestor, so the fragment is wrapped in a synthetic root element.

// regexBlockRE matches an entire <regex ...>...</regex> block, including its
// content. Matching is non-greedy, case-insensitive and spans newlines; the
// content between the tags is never inspected.
var regexBlockRE = regexp.MustCompile(`(?is)<regex\s+.*?>.*?</regex>`)

// ampRE matches an ampersand together with a recognized escape suffix, if any.
var ampRE = regexp.MustCompile(`&(amp;|lt;|gt;)?`)

// Sanitize repairs raw ruleset file content and wraps it in a synthetic root
// element so that it can be parsed as a single well-formed document.
func Sanitize(content string) string {
	s := stripRegexBlocks(content)
	s = escapeAmpersands(s)
	return "<root>" + s + "</root>"
}

func stripRegexBlocks(s string) string {
	return regexBlockRE.ReplaceAllString(s, "")
}

// escapeAmpersands rewrites every bare "&" to "&amp;", leaving already
// escaped sequences (&amp; &lt; &gt;) untouched.
func escapeAmpersands(s string) string {
	return ampRE.ReplaceAllStringFunc(s, func(m string) string {
		if m == "&" {
			return "&amp;"
		}
		return m
	})
}
