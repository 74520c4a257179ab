// Package resolver turns a search or regex pattern into the ordered set of
// metric and file names it selects for a group of runs.
//
// Resolution never fails: invalid patterns, empty input and upstream errors
// all produce an empty Result, with Invalid set for patterns that could not
// be used. Callers are usually rendering live previews while the user types.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hayeah/runlens/fzf"
	"github.com/hayeah/runlens/internal/glob"
	"github.com/hayeah/runlens/internal/safety"
	"github.com/hayeah/runlens/names"
)

// Mode selects how a pattern is interpreted.
type Mode string

const (
	ModeSearch Mode = "search"
	ModeRegex  Mode = "regex"
)

// ParseMode validates s. An empty string means ModeSearch.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.TrimSpace(s)); m {
	case "":
		return ModeSearch, nil
	case ModeSearch, ModeRegex:
		return m, nil
	default:
		return "", fmt.Errorf("unknown pattern mode %q (want search or regex)", s)
	}
}

// InvalidRegexMessage is shown for patterns that cannot be used.
const InvalidRegexMessage = "Invalid regex pattern."

// Pattern is user input plus its interpretation.
type Pattern struct {
	Text string `json:"pattern"`
	Mode Mode   `json:"mode"`
}

// Empty reports whether the pattern has no non-whitespace text.
func (p Pattern) Empty() bool {
	return strings.TrimSpace(p.Text) == ""
}

// Result is the ordered, deduplicated set of names a pattern selects: metrics
// first, then files.
type Result struct {
	Matches []names.Name `json:"matches"`
	Invalid bool         `json:"invalid"`
}

func emptyResult() Result {
	return Result{Matches: []names.Name{}}
}

// Ranker orders the candidates that fuzzy-match query, best first.
type Ranker func(candidates []string, query string) []string

// Resolver resolves patterns against a names.Source.
type Resolver struct {
	Source names.Source
	Rank   Ranker
	Logger *slog.Logger
}

// New returns a Resolver using fzf.Rank for free-text search.
func New(src names.Source, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{Source: src, Rank: fzf.Rank, Logger: logger}
}

// Resolve returns the names p selects among the runs in runIDs. An empty
// pattern or an empty run list selects nothing and queries no source.
func (r *Resolver) Resolve(ctx context.Context, p Pattern, runIDs []string) Result {
	text := strings.TrimSpace(p.Text)
	if text == "" || len(runIDs) == 0 {
		return emptyResult()
	}
	if p.Mode == ModeRegex {
		return r.resolveRegex(ctx, text, runIDs)
	}
	return r.resolveSearch(ctx, text, runIDs)
}

func (r *Resolver) resolveRegex(ctx context.Context, text string, runIDs []string) Result {
	if !safety.IsSafe(text) {
		return Result{Matches: []names.Name{}, Invalid: true}
	}
	re, err := regexp.Compile(text)
	if err != nil {
		return Result{Matches: []names.Name{}, Invalid: true}
	}

	perKind := r.eachKind(ctx, func(ctx context.Context, kind names.Kind) []names.Name {
		fetched := r.fetch(ctx, names.Query{RunIDs: runIDs, Kind: kind, Regex: text})
		var synthetic []names.Name
		for _, n := range names.SyntheticFor(kind) {
			if re.MatchString(n.Name) {
				synthetic = append(synthetic, n)
			}
		}
		return names.Merge(synthetic, fetched).Names()
	})
	return concat(perKind)
}

func (r *Resolver) resolveSearch(ctx context.Context, text string, runIDs []string) Result {
	var re *regexp.Regexp
	if glob.IsGlob(text) {
		var err error
		if re, err = glob.ToRegex(text); err != nil {
			r.Logger.Debug("glob rejected", "pattern", text, "err", err)
			return emptyResult()
		}
	}
	search := strings.TrimSpace(glob.StripWildcards(text))

	perKind := r.eachKind(ctx, func(ctx context.Context, kind names.Kind) []names.Name {
		var unfiltered, searched []names.Name
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			unfiltered = r.fetch(gctx, names.Query{RunIDs: runIDs, Kind: kind})
			return nil
		})
		if search != "" {
			g.Go(func() error {
				searched = r.fetch(gctx, names.Query{RunIDs: runIDs, Kind: kind, Search: search})
				return nil
			})
		}
		_ = g.Wait()

		candidates := names.Merge(names.SyntheticFor(kind), unfiltered, searched)
		if re != nil {
			return matchGlob(candidates, re)
		}
		return candidates.Lookup(r.Rank(candidates.Keys(), text))
	})
	return concat(perKind)
}

func matchGlob(candidates *names.Set, re *regexp.Regexp) []names.Name {
	var out []names.Name
	for _, n := range candidates.Names() {
		if re.MatchString(n.Name) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// eachKind runs fn for every kind concurrently and returns the results in
// names.Kinds order.
func (r *Resolver) eachKind(ctx context.Context, fn func(context.Context, names.Kind) []names.Name) [][]names.Name {
	out := make([][]names.Name, len(names.Kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range names.Kinds {
		g.Go(func() error {
			out[i] = fn(gctx, kind)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// fetch treats a failed lookup like one that returned nothing.
func (r *Resolver) fetch(ctx context.Context, q names.Query) []names.Name {
	ns, err := r.Source.FetchNames(ctx, q)
	if err != nil {
		r.Logger.Warn("name lookup failed",
			"kind", q.Kind, "search", q.Search, "regex", q.Regex, "runs", len(q.RunIDs), "err", err)
		return nil
	}
	return ns
}

func concat(parts [][]names.Name) Result {
	res := emptyResult()
	for _, part := range parts {
		res.Matches = append(res.Matches, part...)
	}
	return res
}
