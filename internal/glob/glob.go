// Package glob translates the restricted wildcard syntax used in search
// patterns into anchored regular expressions.
//
// Only two wildcards exist: `*` matches any run of characters within one path
// segment and `?` matches exactly one such character. Everything else is
// matched literally, and a glob always has to match the whole name.
package glob

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/hayeah/runlens/internal/safety"
)

// ErrUnsafe is returned when the translated expression fails the safety check.
var ErrUnsafe = errors.New("glob: translated pattern is unsafe")

const (
	starExpr     = `[^/]*`
	questionExpr = `[^/]`
)

var wildcardStripper = strings.NewReplacer("*", "", "?", "")

// IsGlob reports whether s contains a wildcard.
func IsGlob(s string) bool {
	return strings.ContainsAny(s, "*?")
}

// StripWildcards removes every wildcard from s. The remote search endpoint has
// no glob semantics, so this is what gets sent upstream.
func StripWildcards(s string) string {
	return wildcardStripper.Replace(s)
}

// Translate returns the anchored regular expression source for g.
func Translate(g string) string {
	var b strings.Builder
	b.WriteByte('^')
	for _, r := range g {
		switch r {
		case '*':
			b.WriteString(starExpr)
		case '?':
			b.WriteString(questionExpr)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')
	return b.String()
}

// ToRegex compiles g into a full-match regular expression. Callers treat any
// error as "no matches".
func ToRegex(g string) (*regexp.Regexp, error) {
	expr := Translate(g)
	if err := safety.Check(expr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsafe, err)
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", g, err)
	}
	return re, nil
}
