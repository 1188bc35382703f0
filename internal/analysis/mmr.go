package analysis

import "threadlens/internal/types"

// selectDiverse runs maximal-marginal-relevance selection over the ranked
// candidate order: the top-scored candidate seeds the set, then each round
// picks the unselected candidate maximizing
//
//	lambda*must_read_score - (1-lambda)*maxSimilarityToSelected
//
// with cosine similarity mapped to [0,1]. Iterating candidates in ranked
// order with a strict improvement test makes ties fall to the higher
// composite score and then to the earlier original index, so selection is
// reproducible. Comments without embeddings contribute zero similarity and
// the selection degrades to plain ranked order.
func selectDiverse(comments []types.Comment, order []int, k int, lambda float64) []int {
	if k <= 0 || len(order) == 0 {
		return nil
	}
	if k > len(order) {
		k = len(order)
	}

	selected := make([]int, 0, k)
	selected = append(selected, order[0])
	remaining := order[1:]

	for len(selected) < k && len(remaining) > 0 {
		bestPos := -1
		bestScore := 0.0
		for pos, idx := range remaining {
			maxSim := 0.0
			if len(comments[idx].Embedding) > 0 {
				for _, sel := range selected {
					if len(comments[sel].Embedding) == 0 {
						continue
					}
					if s := sim01(comments[idx].Embedding, comments[sel].Embedding); s > maxSim {
						maxSim = s
					}
				}
			}
			score := lambda*comments[idx].MustReadScore - (1-lambda)*maxSim
			if bestPos < 0 || score > bestScore {
				bestPos = pos
				bestScore = score
			}
		}
		selected = append(selected, remaining[bestPos])
		remaining = append(remaining[:bestPos:bestPos], remaining[bestPos+1:]...)
	}
	return selected
}
