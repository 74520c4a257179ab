// Package safety screens user-supplied regular expressions before they are
// compiled or executed anywhere in runlens.
//
// The check is a static denylist over the pattern text. It is fast and has no
// side effects, but it is a heuristic: some slow patterns pass and some
// harmless ones (two `{2,}` quantifiers, for example) are rejected.
package safety

import (
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"
)

// MaxLength is the longest pattern, in characters, that IsSafe accepts.
const MaxLength = 100

var (
	ErrTooLong = errors.New("pattern too long")
	ErrRisky   = errors.New("pattern contains a high-risk construct")
)

type rule struct {
	name string
	re   *regexp.Regexp
}

var denylist = []rule{
	{"repeated .*", regexp.MustCompile(`(?:\.\*){3,}`)},
	{"repeated .+", regexp.MustCompile(`(?:\.\+){3,}`)},
	{"doubled quantifier", regexp.MustCompile(`\+\+|\*\*|\*\+|\+\*`)},
	{"repeated unbounded {n,}", regexp.MustCompile(`(?:\{\d+,\}.*){2,}`)},
	{"repeated group containing +", regexp.MustCompile(`\([^)]*\+[^)]*\)[+*{]`)},
	{"non-capturing group followed by +", regexp.MustCompile(`\(\?:[^)]*\)\+`)},
}

// Check returns nil when pattern passes every rule, or an error wrapping
// ErrTooLong or ErrRisky naming the first rule that rejected it.
func Check(pattern string) error {
	if n := utf8.RuneCountInString(pattern); n > MaxLength {
		return fmt.Errorf("%w: %d > %d characters", ErrTooLong, n, MaxLength)
	}
	for _, r := range denylist {
		if r.re.MatchString(pattern) {
			return fmt.Errorf("%w: %s", ErrRisky, r.name)
		}
	}
	return nil
}

// IsSafe reports whether pattern may be compiled and run against names.
func IsSafe(pattern string) bool {
	return Check(pattern) == nil
}
