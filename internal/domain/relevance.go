package domain

// RelevanceFromDistance converts a cosine distance into a 0-100 relevance
// percentage: distance 0 maps to 100, 1 to 50, 2 to 0. Out-of-range values
// the backend might return are clamped.
func RelevanceFromDistance(d float64) float64 {
	score := (1 - d/2) * 100
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
