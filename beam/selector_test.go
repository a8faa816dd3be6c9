package beam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBestSequence(t *testing.T) {
	finishedBest := &Hypothesis{Sequence: []int{2, 4, 5}, LogProb: -0.3}  // norm -0.1
	finishedWorse := &Hypothesis{Sequence: []int{2, 6}, LogProb: -1.0}    // norm -0.5
	activeBest := &Hypothesis{Sequence: []int{2, 7, 8, 9}, LogProb: -0.8} // norm -0.2

	t.Run("NoBeamTakesFinishedHead", func(t *testing.T) {
		seq, attn, err := BestSequence([]*Hypothesis{finishedBest, finishedWorse}, nil)
		require.NoError(t, err)
		assert.Equal(t, []int{4, 5}, seq)
		assert.Nil(t, attn)
	})

	t.Run("FinishedBeatsBeam", func(t *testing.T) {
		seq, _, err := BestSequence([]*Hypothesis{finishedBest}, []*Hypothesis{activeBest})
		require.NoError(t, err)
		assert.Equal(t, []int{4, 5}, seq)
	})

	t.Run("BeamWinsOnTie", func(t *testing.T) {
		tied := &Hypothesis{Sequence: []int{2, 4}, LogProb: -0.4} // norm -0.2, equal to activeBest
		seq, _, err := BestSequence([]*Hypothesis{tied}, []*Hypothesis{activeBest})
		require.NoError(t, err)
		assert.Equal(t, []int{7, 8, 9}, seq)
	})

	t.Run("EmptyFinishedFallsBackToBeam", func(t *testing.T) {
		seq, _, err := BestSequence(nil, []*Hypothesis{activeBest})
		require.NoError(t, err)
		assert.Equal(t, []int{7, 8, 9}, seq)
	})

	t.Run("AttentionReturnedWhenPresent", func(t *testing.T) {
		withAttn := &Hypothesis{
			Sequence:  []int{2, 4},
			LogProb:   -0.1,
			Attention: [][]float64{{0.7, 0.3}},
		}
		seq, attn, err := BestSequence([]*Hypothesis{withAttn}, nil)
		require.NoError(t, err)
		assert.Equal(t, []int{4}, seq)
		require.Len(t, attn, 1)
		assert.Equal(t, []float64{0.7, 0.3}, attn[0])
	})

	t.Run("NothingToSelect", func(t *testing.T) {
		_, _, err := BestSequence(nil, nil)
		assert.Error(t, err)
		_, _, err = BestSequence([]*Hypothesis{}, []*Hypothesis{})
		assert.Error(t, err)
	})
}
