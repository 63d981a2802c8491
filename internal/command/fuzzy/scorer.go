package fuzzy

import "unicode"

// Scorer calculates match scores.
type Scorer interface {
	// Score scores a match. query and text are normalized runes,
	// original preserves case for boundary detection, and matches holds
	// the rune indices of matched characters in text.
	Score(query, original, text []rune, matches []int) int
}

// WeightedScorer scores with configurable weights.
type WeightedScorer struct {
	BaseScore            int
	ConsecutiveBonus     int
	WordBoundaryBonus    int
	PrefixBonus          int
	ExactPrefixBonus     int
	GapPenalty           int
	LeadingPenalty       int
	LengthBonusThreshold int
}

// DefaultWeights returns the default scoring weights.
func DefaultWeights() WeightedScorer {
	return WeightedScorer{
		BaseScore:            100,
		ConsecutiveBonus:     20,
		WordBoundaryBonus:    15,
		PrefixBonus:          25,
		ExactPrefixBonus:     50,
		GapPenalty:           2,
		LeadingPenalty:       1,
		LengthBonusThreshold: 20,
	}
}

// Score implements Scorer.
func (s WeightedScorer) Score(query, original, text []rune, matches []int) int {
	if len(matches) == 0 {
		return 0
	}
	score := s.BaseScore

	for i := 1; i < len(matches); i++ {
		if matches[i] == matches[i-1]+1 {
			score += s.ConsecutiveBonus
		}
	}
	for _, idx := range matches {
		if isWordBoundary(original, idx) {
			score += s.WordBoundaryBonus
		}
	}
	if matches[0] == 0 {
		score += s.PrefixBonus
	} else {
		score -= matches[0] * s.LeadingPenalty
	}
	if gap := matches[len(matches)-1] - matches[0] - len(matches) + 1; gap > 0 {
		score -= gap * s.GapPenalty
	}
	if n := len(text); n < s.LengthBonusThreshold {
		score += s.LengthBonusThreshold - n
	}
	if hasPrefix(text, query) {
		score += s.ExactPrefixBonus
	}

	return max(score, 1)
}

func hasPrefix(text, prefix []rune) bool {
	if len(text) < len(prefix) {
		return false
	}
	for i, r := range prefix {
		if text[i] != r {
			return false
		}
	}
	return true
}

// isWordBoundary reports whether the rune at idx starts a word.
func isWordBoundary(runes []rune, idx int) bool {
	if idx == 0 {
		return true
	}
	if idx >= len(runes) {
		return false
	}
	prev, cur := runes[idx-1], runes[idx]
	if unicode.IsSpace(prev) || unicode.IsPunct(prev) {
		return true
	}
	return unicode.IsLower(prev) && unicode.IsUpper(cur)
}
