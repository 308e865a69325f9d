package query

import (
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// DefaultFuzzyThreshold is the similarity a query token must exceed.
const DefaultFuzzyThreshold = 0.4

// Fuzzy matches whitespace-separated tokens by bigram (Sorensen-Dice)
// similarity. Comparison is case-sensitive and tokens are used as-is.
type Fuzzy struct {
	Threshold float64
	metric    strutil.StringMetric
}

// NewFuzzy returns a matcher accepting similarities above threshold.
func NewFuzzy(threshold float64) Fuzzy {
	return Fuzzy{
		Threshold: threshold,
		metric:    &metrics.SorensenDice{CaseSensitive: true, NgramSize: 2},
	}
}

// Match reports whether every token of q is similar to some token of text.
// Identical tokens always match, including ones too short to form a bigram.
func (f Fuzzy) Match(text, q string) bool {
	have := strings.Fields(text)
	for _, want := range strings.Fields(q) {
		found := false
		for _, tok := range have {
			if tok == want || strutil.Similarity(tok, want, f.metric) > f.Threshold {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
