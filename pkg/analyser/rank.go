package analyser

import "sort"

// TermCount is one ranked keyword.
type TermCount struct {
	Term  string `json:"word"`
	Count int    `json:"count"`
}

// Rank orders m by count descending, then term ascending in byte order, and
// keeps the first topN. topN <= 0 keeps every term.
func Rank(m Frequencies, topN int) []TermCount {
	ranked := make([]TermCount, 0, len(m))
	for term, n := range m {
		ranked = append(ranked, TermCount{Term: term, Count: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Term < ranked[j].Term
	})
	if topN > 0 && topN < len(ranked) {
		ranked = ranked[:topN]
	}
	return ranked
}
