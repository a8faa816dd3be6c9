package beam

import "gonum.org/v1/gonum/floats"

// demotedLogProb marks a hypothesis as ineligible without removing it from
// score-ordered collections.
const demotedLogProb = -1e9

// Hypothesis is one candidate partial output sequence together with its
// decoder state and bookkeeping. Extension produces fresh children; a
// hypothesis is never mutated after creation.
type Hypothesis struct {
	// Sequence always begins with the start token.
	Sequence []int
	// LogProb is the cumulative log-probability, including any diversity
	// penalty applied at extension time.
	LogProb float64
	// State is the decoder state owned by this hypothesis.
	State DecoderState
	// Attention holds one attention row per decode step, kept for
	// downstream unknown-token replacement. Empty when the model produces
	// no attention.
	Attention [][]float64
	// Coverage is the elementwise running sum of attention rows over the
	// source. Nil until the first attention row is seen.
	Coverage []float64
}

// Extend produces one child per candidate token. Child i scores
// parent.LogProb + logProbs[i] - diversity*i, so lower-ranked siblings from
// the same parent are progressively discounted. Each child owns a clone of
// state and, when attn is given, its own coverage accumulator.
func (h *Hypothesis) Extend(tokens []int, logProbs []float64, state DecoderState, attn []float64, diversity float64) []*Hypothesis {
	children := make([]*Hypothesis, 0, len(tokens))
	for i, tok := range tokens {
		seq := make([]int, 0, len(h.Sequence)+1)
		seq = append(seq, h.Sequence...)
		seq = append(seq, tok)

		child := &Hypothesis{
			Sequence: seq,
			LogProb:  h.LogProb + logProbs[i] - diversity*float64(i),
		}
		if state != nil {
			child.State = state.Clone()
		}

		if attn == nil {
			child.Attention = h.Attention
			child.Coverage = h.Coverage
		} else {
			hist := make([][]float64, 0, len(h.Attention)+1)
			hist = append(hist, h.Attention...)
			hist = append(hist, attn)
			child.Attention = hist

			cov := make([]float64, len(attn))
			if h.Coverage == nil {
				copy(cov, attn)
			} else {
				copy(cov, h.Coverage)
				floats.Add(cov, attn)
			}
			child.Coverage = cov
		}
		children = append(children, child)
	}
	return children
}

// NormScore is the length-normalized score used for hypothesis comparison
// and finished-list ordering.
func (h *Hypothesis) NormScore() float64 {
	return h.LogProb / float64(len(h.Sequence))
}

// Better reports whether h ranks strictly above other by normalized score.
func (h *Hypothesis) Better(other *Hypothesis) bool {
	return h.NormScore() > other.NormScore()
}

// demote returns a copy of h flagged ineligible via the sentinel score. The
// original record is left untouched.
func (h *Hypothesis) demote() *Hypothesis {
	d := *h
	d.LogProb = demotedLogProb
	return &d
}

// InitBeam seeds a beam with a single hypothesis holding the start token.
func InitBeam(start int, state DecoderState) []*Hypothesis {
	return []*Hypothesis{{
		Sequence: []int{start},
		LogProb:  0,
		State:    state,
	}}
}

// CreateBeam seeds a beam with k hypotheses from an initial top-k
// distribution, all sharing clones of the same initial state.
func CreateBeam(tokens []int, logProbs []float64, state DecoderState) []*Hypothesis {
	hyps := make([]*Hypothesis, 0, len(tokens))
	for i, tok := range tokens {
		h := &Hypothesis{
			Sequence: []int{tok},
			LogProb:  logProbs[i],
		}
		if state != nil {
			h.State = state.Clone()
		}
		hyps = append(hyps, h)
	}
	return hyps
}
