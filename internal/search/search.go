// Package search provides a simple, deterministic token-overlap ranker used
// by the showcase gallery. It is intentionally small and dependency-free:
//
//   - No logging in the library (callers decide how/what to log)
//   - Unicode-aware tokenization with optional stop-word removal
//   - Deterministic scoring and sorting (stable order for ties)
//
// Scoring counts the tokens shared between the query and each document.
// Documents sharing no token are dropped; ties keep their incoming order so
// the caller's own sort acts as the tiebreak.
package search

import (
	"regexp"
	"sort"
	"strings"
)

// Set is a token set produced by Tokenize.
type Set map[string]struct{}

// Match is one ranked document: its position in the input slice and the
// number of query tokens it shares.
type Match struct {
	Index int
	Hits  int
}

// defaultStopWords are high-frequency words excluded from tokenization so a
// query like "a game of chess" matches on its content words.
var defaultStopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "for": {}, "in": {},
	"of": {}, "on": {}, "or": {}, "the": {}, "to": {}, "with": {},
}

// wordRE captures letter runs with optional trailing digits ("tetris99").
var wordRE = regexp.MustCompile(`\p{L}+\p{N}*`)

// Tokenize lowercases s and returns its token set, minus stop words. A
// string with no usable tokens yields a nil Set.
func Tokenize(s string) Set {
	words := wordRE.FindAllString(strings.ToLower(s), -1)
	if len(words) == 0 {
		return nil
	}
	out := make(Set, len(words))
	for _, w := range words {
		if _, skip := defaultStopWords[w]; skip {
			continue
		}
		out[w] = struct{}{}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Overlap returns the number of tokens present in both sets.
func Overlap(a, b Set) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := 0
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

// Rank scores each document against the query and returns the matches in
// descending hit order. An empty or stop-word-only query matches everything
// with zero hits, preserving input order, so callers need no special case.
func Rank(query string, docs []string) []Match {
	q := Tokenize(query)
	if len(q) == 0 {
		out := make([]Match, len(docs))
		for i := range docs {
			out[i] = Match{Index: i}
		}
		return out
	}

	out := make([]Match, 0, len(docs))
	for i, d := range docs {
		if n := Overlap(q, Tokenize(d)); n > 0 {
			out = append(out, Match{Index: i, Hits: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Hits > out[j].Hits })
	return out
}
