package index

import (
	"fmt"

	"github.com/hyperjump/kensaku/internal/query"
)

// positionsFunc returns the positions of term in field for one document.
type positionsFunc func(field, term string) []int

// prepare runs clause terms through analyze. Clauses whose terms analyze to
// nothing are dropped and terms that analyze to several tokens become phrases.
// A query left without positive clauses fails with query.ErrParse.
func prepare(q *query.Query, analyze func(string) []string) (*query.Query, error) {
	out := &query.Query{Clauses: make([]query.Clause, 0, len(q.Clauses))}
	positive := 0
	for _, c := range q.Clauses {
		var tokens []string
		for _, t := range c.Terms {
			tokens = append(tokens, analyze(t)...)
		}
		if len(tokens) == 0 {
			continue
		}
		c.Terms = tokens
		if len(tokens) > 1 {
			c.Phrase = true
		}
		if c.Occur != query.MustNot {
			positive++
		}
		out.Clauses = append(out.Clauses, c)
	}
	if positive == 0 {
		return nil, fmt.Errorf("%w: query %q has no searchable terms", query.ErrParse, q.String())
	}
	return out, nil
}

func clauseFields(c query.Clause, fields []string) []string {
	if c.Field != "" {
		return []string{c.Field}
	}
	return fields
}

// clauseMatches reports whether some field satisfies the clause.
func clauseMatches(c query.Clause, fields []string, pos positionsFunc) bool {
	for _, f := range clauseFields(c, fields) {
		if !c.Phrase {
			if len(pos(f, c.Terms[0])) > 0 {
				return true
			}
			continue
		}
		lists := make([][]int, len(c.Terms))
		for i, t := range c.Terms {
			lists[i] = pos(f, t)
		}
		if query.WithinWindow(lists, c.Slop) {
			return true
		}
	}
	return false
}

// matches applies boolean semantics: every Must clause, no MustNot clause and,
// when there are no Must clauses, at least one Should clause.
func matches(q *query.Query, fields []string, pos positionsFunc) bool {
	hasMust, anyShould := false, false
	for _, c := range q.Clauses {
		switch c.Occur {
		case query.Must:
			hasMust = true
			if !clauseMatches(c, fields, pos) {
				return false
			}
		case query.MustNot:
			if clauseMatches(c, fields, pos) {
				return false
			}
		default:
			if !anyShould && clauseMatches(c, fields, pos) {
				anyShould = true
			}
		}
	}
	return hasMust || anyShould
}

// termFreqs counts positive query term occurrences over the fields each clause searches.
func termFreqs(q *query.Query, fields []string, pos positionsFunc) map[string]float64 {
	type key struct{ field, term string }
	seen := make(map[key]struct{})
	freqs := make(map[string]float64)
	for _, c := range q.Clauses {
		if c.Occur == query.MustNot {
			continue
		}
		for _, f := range clauseFields(c, fields) {
			for _, t := range c.Terms {
				k := key{f, t}
				if _, ok := seen[k]; ok {
					continue
				}
				seen[k] = struct{}{}
				if n := len(pos(f, t)); n > 0 {
					freqs[t] += float64(n)
				}
			}
		}
	}
	return freqs
}
