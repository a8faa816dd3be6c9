package beam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beamsum-go/tensor"
)

func compositeState(fill float32) *CompositeState {
	mk := func(v float32, shape ...int) *tensor.Tensor {
		t := tensor.NewTensor(shape...)
		for i := range t.Data {
			t.Data[i] = v + float32(i)
		}
		return t
	}
	return &CompositeState{
		Hidden: mk(fill, 2, 3),
		Cell:   mk(fill+100, 2, 3),
		Output: mk(fill+200, 3),
	}
}

func TestCompositeStateRoundTrip(t *testing.T) {
	a := compositeState(1)
	b := compositeState(50)

	batch, err := a.StackBatch([]DecoderState{a, b})
	require.NoError(t, err)
	require.Equal(t, 2, batch.Len())

	bc := batch.(*BatchedCompositeState)
	assert.Equal(t, []int{2, 2, 3}, bc.Hidden.Shape)
	assert.Equal(t, []int{2, 2, 3}, bc.Cell.Shape)
	assert.Equal(t, []int{2, 3}, bc.Output.Shape)

	for i, want := range []*CompositeState{a, b} {
		got, err := batch.Slice(i)
		require.NoError(t, err)
		cs := got.(*CompositeState)
		assert.True(t, tensor.Equal(want.Hidden, cs.Hidden))
		assert.True(t, tensor.Equal(want.Cell, cs.Cell))
		assert.True(t, tensor.Equal(want.Output, cs.Output))
	}

	_, err = batch.Slice(2)
	assert.Error(t, err)
}

func TestSingleTensorStateRoundTrip(t *testing.T) {
	a := &SingleTensorState{Cache: tensor.FromSlice([]float32{1, 2, 3, 4}, 2, 2)}
	b := &SingleTensorState{Cache: tensor.FromSlice([]float32{5, 6, 7, 8}, 2, 2)}

	batch, err := a.StackBatch([]DecoderState{a, b})
	require.NoError(t, err)
	require.Equal(t, 2, batch.Len())
	assert.Equal(t, []int{2, 2, 2}, batch.(*BatchedSingleTensorState).Cache.Shape)

	got0, err := batch.Slice(0)
	require.NoError(t, err)
	assert.True(t, tensor.Equal(a.Cache, got0.(*SingleTensorState).Cache))
	got1, err := batch.Slice(1)
	require.NoError(t, err)
	assert.True(t, tensor.Equal(b.Cache, got1.(*SingleTensorState).Cache))
}

func TestStackBatchRejectsMixedVariants(t *testing.T) {
	a := &SingleTensorState{Cache: tensor.NewTensor(1, 2)}
	b := compositeState(0)
	_, err := a.StackBatch([]DecoderState{a, b})
	assert.Error(t, err)
}

func TestPackUnpackRoundTrip(t *testing.T) {
	a := &SingleTensorState{Cache: tensor.FromSlice([]float32{1, 2}, 1, 2)}
	b := &SingleTensorState{Cache: tensor.FromSlice([]float32{3, 4}, 1, 2)}
	hyps := []*Hypothesis{
		{Sequence: []int{2, 7}, State: a},
		{Sequence: []int{2, 8}, State: b},
	}

	tokens, batch, err := Pack(hyps)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 8}, tokens)
	require.Equal(t, 2, batch.Len())

	// identity step: hand the packed state straight back
	out := &StepOutput{
		TopKTokens:   [][]int{{7}, {8}},
		TopKLogProbs: [][]float64{{-0.1}, {-0.2}},
		State:        batch,
	}
	exts, err := Unpack(out, 2)
	require.NoError(t, err)
	require.Len(t, exts, 2)
	assert.True(t, tensor.Equal(a.Cache, exts[0].State.(*SingleTensorState).Cache))
	assert.True(t, tensor.Equal(b.Cache, exts[1].State.(*SingleTensorState).Cache))
	assert.Equal(t, []int{7}, exts[0].Tokens)
	assert.Equal(t, []float64{-0.2}, exts[1].LogProbs)
}

func TestPackErrors(t *testing.T) {
	t.Run("EmptyBeam", func(t *testing.T) {
		_, _, err := Pack(nil)
		assert.Error(t, err)
	})

	t.Run("MissingState", func(t *testing.T) {
		_, _, err := Pack([]*Hypothesis{{Sequence: []int{2}}})
		assert.Error(t, err)
	})
}

func TestUnpackErrors(t *testing.T) {
	st := &SingleTensorState{Cache: tensor.NewTensor(1, 2)}
	batch, err := st.StackBatch([]DecoderState{st})
	require.NoError(t, err)

	t.Run("RowCountMismatch", func(t *testing.T) {
		out := &StepOutput{
			TopKTokens:   [][]int{{1}, {2}},
			TopKLogProbs: [][]float64{{-0.1}, {-0.2}},
			State:        batch,
		}
		_, err := Unpack(out, 2)
		assert.Error(t, err) // state batch is 1, beam claims 2
	})

	t.Run("RaggedRow", func(t *testing.T) {
		out := &StepOutput{
			TopKTokens:   [][]int{{1, 2}},
			TopKLogProbs: [][]float64{{-0.1}},
			State:        batch,
		}
		_, err := Unpack(out, 1)
		assert.Error(t, err)
	})

	t.Run("NilOutput", func(t *testing.T) {
		_, err := Unpack(nil, 1)
		assert.Error(t, err)
	})
}
