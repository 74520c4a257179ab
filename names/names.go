// Package names defines the metric and file names runlens matches patterns
// against, the sources that supply them, and how partial results from several
// sources are merged.
package names

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Kind separates the two disjoint name universes.
type Kind string

const (
	KindMetric Kind = "metric"
	KindFile   Kind = "file"
)

// Kinds lists every kind in display order: metrics first, then files.
var Kinds = []Kind{KindMetric, KindFile}

// ParseKind validates s as a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.TrimSpace(s)); k {
	case KindMetric, KindFile:
		return k, nil
	default:
		return "", fmt.Errorf("unknown name kind %q", s)
	}
}

// LogType tags a file name with the kind of payload it streams.
type LogType string

const (
	LogTypeHistogram     LogType = "HISTOGRAM"
	LogTypeImage         LogType = "IMAGE"
	LogTypeVideo         LogType = "VIDEO"
	LogTypeAudio         LogType = "AUDIO"
	LogTypeText          LogType = "TEXT"
	LogTypeConsoleStdout LogType = "CONSOLE_STDOUT"
	LogTypeConsoleStderr LogType = "CONSOLE_STDERR"
)

// Name is a metric or file name scoped to a project and a set of runs.
type Name struct {
	Name    string  `json:"name" db:"name"`
	Kind    Kind    `json:"kind" db:"kind"`
	LogType LogType `json:"logType,omitempty" db:"log_type"`
}

// Synthetic names are console streams that never appear in the name index but
// exist for every run.
var Synthetic = []Name{
	{Name: "sys.stdout", Kind: KindFile, LogType: LogTypeConsoleStdout},
	{Name: "sys.stderr", Kind: KindFile, LogType: LogTypeConsoleStderr},
}

// SyntheticFor returns a copy of the synthetic names of the given kind.
func SyntheticFor(kind Kind) []Name {
	var out []Name
	for _, n := range Synthetic {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// GroupOf returns the log group of name: everything before the last slash,
// or "" for top-level names.
func GroupOf(name string) string {
	i := strings.LastIndexByte(name, '/')
	if i < 0 {
		return ""
	}
	return name[:i]
}

// Strings returns the bare name strings of ns.
func Strings(ns []Name) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.Name
	}
	return out
}

// Query scopes a name lookup. Search and Regex are mutually exclusive in
// practice; when both are empty the lookup is an unfiltered snapshot.
type Query struct {
	RunIDs []string
	Kind   Kind
	Search string
	Regex  string
}

// Unfiltered reports whether q carries no text filter.
func (q Query) Unfiltered() bool {
	return q.Search == "" && q.Regex == ""
}

// Key identifies q independently of run ID order.
func (q Query) Key() string {
	runs := append([]string(nil), q.RunIDs...)
	sort.Strings(runs)
	return fmt.Sprintf("%s\x00%s\x00%s\x00%s", q.Kind, q.Search, q.Regex, strings.Join(runs, "\x1f"))
}

// Source supplies candidate names. Implementations filter by Query.Search
// (substring semantics) and Query.Regex (unanchored regular expression)
// themselves.
type Source interface {
	FetchNames(ctx context.Context, q Query) ([]Name, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, q Query) ([]Name, error)

func (f SourceFunc) FetchNames(ctx context.Context, q Query) ([]Name, error) {
	return f(ctx, q)
}
