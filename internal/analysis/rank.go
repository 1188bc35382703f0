package analysis

import (
	"sort"

	"threadlens/internal/types"
)

// compositeScore combines the three signals under the caller's weights.
func compositeScore(c *types.Comment, w Weights) float64 {
	return w.Relevance*c.Relevance + w.Novelty*c.Novelty + w.Controversy*c.Controversy
}

// rankByScore returns comment indexes sorted descending by must_read_score.
// The sort is stable, so equal scores keep their original list order.
func rankByScore(comments []types.Comment) []int {
	order := make([]int, len(comments))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return comments[order[a]].MustReadScore > comments[order[b]].MustReadScore
	})
	return order
}
