// Package rank turns a multiset of specialty tokens into ranked frequency
// summaries.
//
// Ordering is by count descending; equal counts keep the order in which the
// tokens first appeared in the input, so rankings are deterministic.
package rank

import "sort"

// TokenCount is one row of a frequency table.
type TokenCount struct {
	Token string `json:"token"`
	Count int    `json:"count"`
}

// Frequencies counts every token not listed in exclude and returns the full
// table ranked by count, ties broken by first occurrence.
func Frequencies(tokens []string, exclude ...string) []TokenCount {
	skip := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		skip[e] = struct{}{}
	}

	pos := make(map[string]int)
	table := make([]TokenCount, 0)
	for _, tok := range tokens {
		if _, ok := skip[tok]; ok {
			continue
		}
		if i, ok := pos[tok]; ok {
			table[i].Count++
			continue
		}
		pos[tok] = len(table)
		table = append(table, TokenCount{Token: tok, Count: 1})
	}

	// table is in first-occurrence order, so a stable sort on count alone
	// yields the tie-break.
	sort.SliceStable(table, func(i, j int) bool {
		return table[i].Count > table[j].Count
	})
	return table
}

// TopK returns the k most frequent tokens, excluding the given values.
// Fewer than k distinct tokens yields all of them; k <= 0 yields none.
func TopK(tokens []string, k int, exclude ...string) []string {
	if k <= 0 {
		return []string{}
	}
	table := Frequencies(tokens, exclude...)
	if len(table) > k {
		table = table[:k]
	}
	out := make([]string, len(table))
	for i, tc := range table {
		out[i] = tc.Token
	}
	return out
}
