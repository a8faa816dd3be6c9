package beam

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLengthPenalty(t *testing.T) {
	t.Run("AlphaZeroDisables", func(t *testing.T) {
		for _, l := range []int{1, 5, 17, 100} {
			assert.Equal(t, 1.0, LengthPenalty(l, 0))
		}
	})

	t.Run("WuFormula", func(t *testing.T) {
		assert.InDelta(t, math.Pow(6.0/6.0, 0.9), LengthPenalty(1, 0.9), 1e-12)
		assert.InDelta(t, math.Pow(10.0/6.0, 0.9), LengthPenalty(5, 0.9), 1e-12)
	})
}

func TestCoveragePenalty(t *testing.T) {
	t.Run("DisabledByDefault", func(t *testing.T) {
		assert.Equal(t, 0.0, CoveragePenalty([]float64{2, 2, 2}, 0))
		assert.Equal(t, 0.0, CoveragePenalty(nil, 5))
	})

	t.Run("PenalizesOverAttention", func(t *testing.T) {
		// max(0.5,1) + max(2,1) + max(1.5,1) = 4.5; minus dim 3 = 1.5
		assert.InDelta(t, 1.5, CoveragePenalty([]float64{0.5, 2, 1.5}, 1.0), 1e-12)
		assert.InDelta(t, 3.0, CoveragePenalty([]float64{0.5, 2, 1.5}, 2.0), 1e-12)
	})

	t.Run("UnderAttentionClampedToZero", func(t *testing.T) {
		assert.InDelta(t, 0.0, CoveragePenalty([]float64{0.1, 0.2, 0.3}, 1.0), 1e-12)
	})
}

func TestRankKeys(t *testing.T) {
	h := &Hypothesis{Sequence: []int{2, 4, 5}, LogProb: -1.2}

	t.Run("Mean", func(t *testing.T) {
		key := MeanScoring{}.RankKey(h)
		assert.InDelta(t, -0.4, key, 1e-12)
	})

	t.Run("Wu", func(t *testing.T) {
		key := WuScoring{Alpha: 0.9}.RankKey(h)
		assert.InDelta(t, -1.2/LengthPenalty(3, 0.9), key, 1e-12)
	})

	t.Run("CoverageSubtracted", func(t *testing.T) {
		hc := &Hypothesis{Sequence: []int{2, 4, 5}, LogProb: -1.2, Coverage: []float64{2, 2}}
		plain := MeanScoring{}.RankKey(h)
		penalized := MeanScoring{CoverageBeta: 1.0}.RankKey(hc)
		assert.InDelta(t, plain-2.0, penalized, 1e-12)
	})
}
