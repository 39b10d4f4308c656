package calculator

import (
	"sort"

	"DeclineWatch/internal/model"
)

// RankTop returns the n records with the most negative drawdown, most severe
// first. Equal drawdowns keep their input order. The input is not modified.
func RankTop(records []model.DeclineRecord, n int) []model.DeclineRecord {
	if n <= 0 || len(records) == 0 {
		return []model.DeclineRecord{}
	}
	ranked := make([]model.DeclineRecord, len(records))
	copy(ranked, records)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DrawdownPct < ranked[j].DrawdownPct
	})
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}
