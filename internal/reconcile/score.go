package reconcile

import (
	"fmt"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/pmezard/go-difflib/difflib"
)

// Scorer measures textual closeness of two cell signatures.
// Similarity returns a value in [0, 1] where 1 means identical.
type Scorer interface {
	Similarity(a, b string) float64
}

// cutoffScorer is implemented by scorers that can reject a pair early once
// it is known to fall below a cutoff.
type cutoffScorer interface {
	SimilarityAtLeast(a, b string, cutoff float64) (float64, bool)
}

// Scorer names accepted by ScorerByName.
const (
	ScorerRatio       = "ratio"
	ScorerLevenshtein = "levenshtein"
)

// ScorerByName resolves a configured scorer name.
func ScorerByName(name string) (Scorer, error) {
	switch name {
	case "", ScorerRatio:
		return RatioScorer{}, nil
	case ScorerLevenshtein:
		return LevenshteinScorer{}, nil
	default:
		return nil, fmt.Errorf("unknown similarity scorer %q", name)
	}
}

// RatioScorer is the difflib similarity ratio 2*M/T computed over runes.
type RatioScorer struct{}

// Similarity returns the ratio of matching runes.
func (RatioScorer) Similarity(a, b string) float64 {
	m := difflib.NewMatcherWithJunk(runeStrings(a), runeStrings(b), false, nil)
	return m.Ratio()
}

// SimilarityAtLeast checks the cheap upper bounds before computing the full
// ratio, in the order get_close_matches uses them.
func (RatioScorer) SimilarityAtLeast(a, b string, cutoff float64) (float64, bool) {
	m := difflib.NewMatcherWithJunk(runeStrings(a), runeStrings(b), false, nil)
	if m.RealQuickRatio() < cutoff || m.QuickRatio() < cutoff {
		return 0, false
	}
	r := m.Ratio()
	return r, r >= cutoff
}

// LevenshteinScorer is 1 - distance/maxlen over runes.
type LevenshteinScorer struct{}

// Similarity returns the normalized edit similarity.
func (LevenshteinScorer) Similarity(a, b string) float64 {
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(fuzzy.LevenshteinDistance(a, b))/float64(longest)
}

func runeStrings(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
