package analysis

// noveltyScores scores each comment by how little it overlaps with the
// comments before it in display order: 1 minus the maximum cosine similarity
// to any earlier scorable comment, clamped to [0,1]. The first scorable
// comment has nothing to restate and scores 1. The fixed cosine mapping keeps
// novelty comparable across calls.
//
// scorable marks comments that have both text and an embedding; the rest
// score 0 and are skipped as reference points.
func noveltyScores(embeddings [][]float32, scorable []bool) []float64 {
	out := make([]float64, len(embeddings))
	seen := false
	for i := range embeddings {
		if !scorable[i] {
			continue
		}
		if !seen {
			out[i] = 1.0
			seen = true
			continue
		}
		maxSim := -1.0
		for j := 0; j < i; j++ {
			if !scorable[j] {
				continue
			}
			if s := cosine(embeddings[i], embeddings[j]); s > maxSim {
				maxSim = s
			}
		}
		out[i] = clamp01(1.0 - maxSim)
	}
	return out
}
