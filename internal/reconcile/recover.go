package reconcile

import (
	"github.com/roach88/nbsync/internal/notebook"
)

// DefaultThreshold is the minimum similarity for a cell to inherit output.
const DefaultThreshold = 0.6

// Matcher appends CopyOutput opcodes for updated cells that are close to a
// current cell which alignment would otherwise discard.
//
// Matching is greedy: updated cells are visited in index order and each
// takes the best remaining candidate at or above Threshold. Equal scores go
// to the candidate seen first. There is no backtracking.
type Matcher struct {
	Threshold float64
	Scorer    Scorer
}

// NewMatcher returns a matcher with the given threshold and scorer.
// A nil scorer selects RatioScorer.
func NewMatcher(threshold float64, scorer Scorer) *Matcher {
	if scorer == nil {
		scorer = RatioScorer{}
	}
	return &Matcher{Threshold: threshold, Scorer: scorer}
}

// DefaultMatcher uses DefaultThreshold and RatioScorer.
func DefaultMatcher() *Matcher {
	return NewMatcher(DefaultThreshold, RatioScorer{})
}

// Recover returns ops followed by any CopyOutput annotations. The input
// slice is not modified and existing opcodes keep their order.
func (m *Matcher) Recover(ops []OpAction, current, updated notebook.Notebook) []OpAction {
	out := make([]OpAction, len(ops))
	copy(out, ops)

	claimed := make([]bool, current.Len())
	var targets []int
	for _, op := range ops {
		switch op.Kind {
		case OpEqual:
			for i := op.Current.Start; i < op.Current.End; i++ {
				claimed[i] = true
			}
		case OpInsert, OpReplace:
			for u := op.Updated.Start; u < op.Updated.End; u++ {
				targets = append(targets, u)
			}
		}
	}

	pool := make([]int, 0, current.Len())
	for i, taken := range claimed {
		if !taken {
			pool = append(pool, i)
		}
	}
	if len(pool) == 0 || len(targets) == 0 {
		return out
	}

	currentSigs := current.Signatures()
	for _, u := range targets {
		target := updated.Cells[u].Signature()

		best, bestScore := -1, 0.0
		for pos, c := range pool {
			if c < 0 {
				continue
			}
			score, ok := m.score(target, currentSigs[c])
			if !ok {
				continue
			}
			if best < 0 || score > bestScore {
				best, bestScore = pos, score
			}
		}
		if best < 0 {
			continue
		}

		out = append(out, mustOp(OpCopyOutput, Range{pool[best], pool[best] + 1}, Range{u, u + 1}))
		pool[best] = -1
	}
	return out
}

func (m *Matcher) score(a, b string) (float64, bool) {
	scorer := m.Scorer
	if scorer == nil {
		scorer = RatioScorer{}
	}
	if cs, ok := scorer.(cutoffScorer); ok {
		return cs.SimilarityAtLeast(a, b, m.Threshold)
	}
	s := scorer.Similarity(a, b)
	return s, s >= m.Threshold
}
