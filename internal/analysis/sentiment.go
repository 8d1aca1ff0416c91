package analysis

import (
	"strings"
	"unicode"
)

// lexicon maps opinion words to a polarity in [-1, 1].
var lexicon = map[string]float64{
	"amazing": 0.9, "awesome": 0.9, "excellent": 1.0, "fantastic": 0.9, "perfect": 1.0,
	"great": 0.8, "love": 0.8, "loved": 0.8, "wonderful": 0.9, "best": 1.0,
	"good": 0.7, "nice": 0.6, "happy": 0.8, "helpful": 0.6, "easy": 0.4,
	"fast": 0.3, "quick": 0.3, "smooth": 0.4, "intuitive": 0.5, "useful": 0.4,
	"like": 0.3, "liked": 0.3, "clean": 0.4, "reliable": 0.5, "impressed": 0.6,
	"fine": 0.2, "okay": 0.1, "ok": 0.1, "satisfied": 0.5, "thanks": 0.3,
	"bad": -0.7, "terrible": -1.0, "awful": -1.0, "horrible": -1.0, "worst": -1.0,
	"hate": -0.8, "hated": -0.8, "poor": -0.4, "slow": -0.3, "broken": -0.4,
	"buggy": -0.5, "bug": -0.3, "bugs": -0.3, "crash": -0.5, "crashes": -0.5,
	"crashed": -0.5, "confusing": -0.4, "difficult": -0.5, "hard": -0.3, "annoying": -0.8,
	"frustrating": -0.7, "frustrated": -0.7, "useless": -0.5, "disappointed": -0.75,
	"disappointing": -0.6, "ugly": -0.7, "laggy": -0.5, "unusable": -0.8, "fails": -0.5,
	"failed": -0.5, "error": -0.3, "errors": -0.3, "missing": -0.2, "expensive": -0.4,
	"wrong": -0.5, "problem": -0.3, "problems": -0.3, "issue": -0.2, "issues": -0.2,
}

var negators = map[string]bool{
	"not": true, "no": true, "never": true, "cannot": true, "isn't": true, "don't": true,
	"doesn't": true, "didn't": true, "can't": true, "won't": true, "wasn't": true, "aren't": true,
}

var intensifiers = map[string]float64{
	"very": 1.3, "really": 1.3, "extremely": 1.5, "so": 1.2, "super": 1.3, "incredibly": 1.5,
}

// negationFactor follows the usual pattern-based scorers: "not good" is mildly negative.
const negationFactor = -0.5

// Polarity scores text in [-1, 1]; text without opinion words scores 0.
func Polarity(text string) float64 {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})

	var (
		sum    float64
		scored int
	)

	for i, token := range tokens {
		score, ok := lexicon[token]
		if !ok {
			continue
		}

		for j := max(i-2, 0); j < i; j++ {
			if factor, ok := intensifiers[tokens[j]]; ok {
				score *= factor
			}
		}

		for j := max(i-2, 0); j < i; j++ {
			if negators[tokens[j]] {
				score *= negationFactor

				break
			}
		}

		sum += score
		scored++
	}

	if scored == 0 {
		return 0
	}

	return clamp(sum/float64(scored), -1, 1)
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
