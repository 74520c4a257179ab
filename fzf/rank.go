package fzf

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Rank returns the candidates that match query, best first.
//
// The query uses the same terms as Matcher. A plain term matches as a fuzzy
// subsequence and contributes its score; a term with a modifier (!, ^, $, ')
// filters exactly as Matcher does and does not affect order. Every term must
// hold. Candidates with equal scores keep their input order, so the output is
// deterministic for a given input slice. An empty query returns nil.
func Rank(candidates []string, query string) []string {
	query = strings.TrimSpace(query)
	if query == "" || len(candidates) == 0 {
		return nil
	}
	m, err := NewMatcher(query)
	if err != nil {
		return rankFuzzy(candidates, query)
	}

	keep := make([]bool, len(candidates))
	for i := range keep {
		keep[i] = true
	}
	scores := make([]int, len(candidates))

	for _, t := range m.terms {
		if t.negate || t.anchorHead || t.anchorTail || t.wordPrefix || t.wordExact {
			for i, c := range candidates {
				if keep[i] && termMatches(t, strings.ToLower(c)) == t.negate {
					keep[i] = false
				}
			}
			continue
		}

		hit := make([]bool, len(candidates))
		for _, fm := range fuzzy.Find(t.raw, candidates) {
			hit[fm.Index] = true
			scores[fm.Index] += fm.Score
		}
		for i := range keep {
			keep[i] = keep[i] && hit[i]
		}
	}

	idx := make([]int, 0, len(candidates))
	for i, ok := range keep {
		if ok {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })

	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = candidates[j]
	}
	return out
}

// rankFuzzy matches the whole query as one fuzzy term.
func rankFuzzy(candidates []string, query string) []string {
	matches := fuzzy.Find(query, candidates)
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = candidates[m.Index]
	}
	return out
}
