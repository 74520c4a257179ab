// Package fzf holds the text matchers used for free-text name search: a
// deterministic multi-term filter (what the name index applies to a search
// query) and a fuzzy relevance ranker (what the resolver applies to the merged
// candidate set).
package fzf

import (
	"fmt"
	"strings"
	"unicode"
)

// Matcher deterministically filters names by multi-term rules.
//
// Terms are whitespace separated and must all hold (implicit AND). Matching is
// case-insensitive. Each term may carry modifiers:
//
//	!term    exclude names matching term
//	^term    name starts with term
//	term$    name ends with term
//	'term    term starts at a word boundary
//	'term'   term is a whole word
type Matcher struct {
	terms []term
}

type term struct {
	raw        string
	text       string // lower-cased core text
	negate     bool
	anchorHead bool
	anchorTail bool
	wordPrefix bool
	wordExact  bool
}

// NewMatcher parses query. An empty query matches every name.
func NewMatcher(query string) (Matcher, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Matcher{}, nil
	}
	parts := strings.Fields(query)
	terms := make([]term, 0, len(parts))

	for _, p := range parts {
		t := term{raw: p}

		if strings.HasPrefix(p, "!") {
			t.negate = true
			p = p[1:]
			if p == "" {
				return Matcher{}, fmt.Errorf("empty term after negation in %q", t.raw)
			}
		}

		if strings.HasPrefix(p, "'") {
			p = p[1:]
			if p == "" {
				return Matcher{}, fmt.Errorf("empty term after leading quote in %q", t.raw)
			}
			if strings.HasSuffix(p, "'") {
				t.wordExact = true
				p = p[:len(p)-1]
				if p == "" {
					return Matcher{}, fmt.Errorf("empty term in %q", t.raw)
				}
			} else {
				t.wordPrefix = true
			}
		}

		if strings.HasPrefix(p, "^") {
			t.anchorHead = true
			p = p[1:]
		}
		if strings.HasSuffix(p, "$") {
			t.anchorTail = true
			p = p[:len(p)-1]
		}
		if p == "" {
			return Matcher{}, fmt.Errorf("empty term after stripping modifiers in %q", t.raw)
		}

		t.text = strings.ToLower(p)
		terms = append(terms, t)
	}
	return Matcher{terms: terms}, nil
}

// Match reports whether name satisfies every term.
func (m Matcher) Match(name string) bool {
	normal := strings.ToLower(name)
	for _, t := range m.terms {
		if termMatches(t, normal) == t.negate {
			return false
		}
	}
	return true
}

// Filter returns the names that satisfy every term, in input order.
func (m Matcher) Filter(names []string) []string {
	if len(m.terms) == 0 {
		return names
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		if m.Match(name) {
			out = append(out, name)
		}
	}
	return out
}

func termMatches(t term, name string) bool {
	if t.anchorHead && t.anchorTail && !(t.wordExact || t.wordPrefix) {
		return name == t.text
	}

	sub := name
	if t.anchorHead {
		if !strings.HasPrefix(name, t.text) {
			return false
		}
		sub = name[:len(t.text)]
	}
	if t.anchorTail {
		if !strings.HasSuffix(name, t.text) {
			return false
		}
		sub = name[len(name)-len(t.text):]
	}

	switch {
	case t.wordExact:
		return containsWordExact(sub, t.text)
	case t.wordPrefix:
		return containsWordPrefix(sub, t.text)
	default:
		return strings.Contains(sub, t.text)
	}
}

// containsWordExact reports whether needle appears in s delimited on both
// sides by a word boundary (start/end of string, or non-word rune).
func containsWordExact(s, needle string) bool {
	if needle == "" {
		return false
	}
	for start := 0; start <= len(s)-len(needle); {
		rel := strings.Index(s[start:], needle)
		if rel < 0 {
			break
		}
		idx := start + rel
		if hasWordBoundary(s, idx, len(needle)) {
			return true
		}
		start = idx + 1
	}
	return false
}

// hasWordBoundary checks both sides of s[idx : idx+size] for boundaries.
func hasWordBoundary(s string, idx, size int) bool {
	leftOK := idx == 0 || !isWordChar(rune(s[idx-1]))
	rightOK := idx+size == len(s) || !isWordChar(rune(s[idx+size]))
	return leftOK && rightOK
}

func containsWordPrefix(s, needle string) bool {
	if needle == "" {
		return false
	}
	for start := 0; start <= len(s)-len(needle); {
		rel := strings.Index(s[start:], needle)
		if rel < 0 {
			break
		}
		idx := start + rel
		if idx == 0 || !isWordChar(rune(s[idx-1])) {
			return true
		}
		start = idx + 1
	}
	return false
}

// letters, digits and underscore
func isWordChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
