package analysis

import "threadlens/internal/types"

// Controversy tunables. Balance measures how evenly the candidate pool
// splits between agreement and disagreement; the minority bonus lifts
// comments holding the rarer position. The exact blend is a documented
// policy constant, not a derived quantity.
const (
	controversyBalanceWeight  = 0.5
	controversyMinorityWeight = 0.5
	neutralControversyFactor  = 0.5
)

// controversyScores derives per-comment controversy from the stance
// distribution of the whole candidate pool. Unknown stances contribute no
// signal and score 0.
func controversyScores(stances []types.Stance) []float64 {
	var agree, disagree int
	for _, s := range stances {
		switch s {
		case types.StanceAgree:
			agree++
		case types.StanceDisagree:
			disagree++
		}
	}

	polar := agree + disagree
	balance := 0.0
	if polar > 0 {
		minority := agree
		if disagree < minority {
			minority = disagree
		}
		balance = 2.0 * float64(minority) / float64(polar)
	}

	out := make([]float64, len(stances))
	for i, s := range stances {
		switch s {
		case types.StanceAgree, types.StanceDisagree:
			own := agree
			if s == types.StanceDisagree {
				own = disagree
			}
			minorityBonus := 1.0 - float64(own)/float64(polar)
			out[i] = clamp01(controversyBalanceWeight*balance + controversyMinorityWeight*minorityBonus)
		case types.StanceNeutral:
			out[i] = neutralControversyFactor * balance
		default:
			out[i] = 0
		}
	}
	return out
}
