package services

import "sort"

// Rank is a named balance threshold
type Rank struct {
	Name    string
	Minimum int64
}

// RankTable maps balances to rank names
type RankTable struct {
	ranks []Rank
}

// NewRankTable builds a table from name to minimum balance pairs
func NewRankTable(thresholds map[string]int64) *RankTable {
	ranks := make([]Rank, 0, len(thresholds))
	for name, minimum := range thresholds {
		ranks = append(ranks, Rank{Name: name, Minimum: minimum})
	}
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].Minimum == ranks[j].Minimum {
			return ranks[i].Name < ranks[j].Name
		}
		return ranks[i].Minimum < ranks[j].Minimum
	})
	return &RankTable{ranks: ranks}
}

// Of returns the highest rank whose minimum is at most balance, or "" if none
func (t *RankTable) Of(balance int64) string {
	name := ""
	for _, r := range t.ranks {
		if r.Minimum > balance {
			break
		}
		name = r.Name
	}
	return name
}
