package beam

import (
	"github.com/pkg/errors"

	"beamsum-go/tensor"
)

// DecoderState is the opaque per-hypothesis decoder memory carried between
// steps. Each variant defines its own batching convention; a model
// configuration selects one variant and sticks with it.
type DecoderState interface {
	// Clone returns an independent copy; extension hands each child its own
	// state handle.
	Clone() DecoderState
	// StackBatch combines states of this variant into the batched form the
	// step function consumes. It is invoked on the first state of the batch.
	StackBatch(states []DecoderState) (BatchedState, error)
}

// BatchedState is the step function's view of all active decoder states.
type BatchedState interface {
	Len() int
	Slice(i int) (DecoderState, error)
}

// CompositeState is a three-part recurrent state: hidden and cell are
// layer-major [layers, dim], the output is a flat [dim] vector. Hidden and
// cell batch along dim 1, the output along dim 0.
type CompositeState struct {
	Hidden *tensor.Tensor
	Cell   *tensor.Tensor
	Output *tensor.Tensor
}

func (s *CompositeState) Clone() DecoderState {
	return &CompositeState{
		Hidden: s.Hidden.Clone(),
		Cell:   s.Cell.Clone(),
		Output: s.Output.Clone(),
	}
}

func (s *CompositeState) StackBatch(states []DecoderState) (BatchedState, error) {
	hiddens := make([]*tensor.Tensor, len(states))
	cells := make([]*tensor.Tensor, len(states))
	outputs := make([]*tensor.Tensor, len(states))
	for i, st := range states {
		cs, ok := st.(*CompositeState)
		if !ok {
			return nil, errors.Errorf("mixed decoder state variants in batch at index %d", i)
		}
		hiddens[i] = cs.Hidden
		cells[i] = cs.Cell
		outputs[i] = cs.Output
	}
	return &BatchedCompositeState{
		Hidden: tensor.Stack(hiddens, 1),
		Cell:   tensor.Stack(cells, 1),
		Output: tensor.Stack(outputs, 0),
	}, nil
}

// BatchedCompositeState is the batched form of CompositeState: hidden and
// cell are [layers, batch, dim], the output is [batch, dim].
type BatchedCompositeState struct {
	Hidden *tensor.Tensor
	Cell   *tensor.Tensor
	Output *tensor.Tensor
}

func (b *BatchedCompositeState) Len() int {
	return b.Output.Shape[0]
}

func (b *BatchedCompositeState) Slice(i int) (DecoderState, error) {
	if i < 0 || i >= b.Len() {
		return nil, errors.Errorf("state slice index %d out of range for batch of %d", i, b.Len())
	}
	return &CompositeState{
		Hidden: tensor.SliceDim(b.Hidden, 1, i),
		Cell:   tensor.SliceDim(b.Cell, 1, i),
		Output: tensor.SliceDim(b.Output, 0, i),
	}, nil
}

// SingleTensorState is one opaque cache tensor, batched along dim 1.
type SingleTensorState struct {
	Cache *tensor.Tensor
}

func (s *SingleTensorState) Clone() DecoderState {
	return &SingleTensorState{Cache: s.Cache.Clone()}
}

func (s *SingleTensorState) StackBatch(states []DecoderState) (BatchedState, error) {
	caches := make([]*tensor.Tensor, len(states))
	for i, st := range states {
		ss, ok := st.(*SingleTensorState)
		if !ok {
			return nil, errors.Errorf("mixed decoder state variants in batch at index %d", i)
		}
		caches[i] = ss.Cache
	}
	return &BatchedSingleTensorState{Cache: tensor.Stack(caches, 1)}, nil
}

// BatchedSingleTensorState batches SingleTensorState caches along dim 1.
type BatchedSingleTensorState struct {
	Cache *tensor.Tensor
}

func (b *BatchedSingleTensorState) Len() int {
	return b.Cache.Shape[1]
}

func (b *BatchedSingleTensorState) Slice(i int) (DecoderState, error) {
	if i < 0 || i >= b.Len() {
		return nil, errors.Errorf("state slice index %d out of range for batch of %d", i, b.Len())
	}
	return &SingleTensorState{Cache: tensor.SliceDim(b.Cache, 1, i)}, nil
}

// Extension is the per-hypothesis view of one step-function output row:
// the candidate continuations for a single parent hypothesis.
type Extension struct {
	Tokens    []int
	LogProbs  []float64
	State     DecoderState
	Attention []float64
}

// Pack stacks each hypothesis's most recent token and owned state into the
// batched form submitted to the step function.
func Pack(hyps []*Hypothesis) ([]int64, BatchedState, error) {
	if len(hyps) == 0 {
		return nil, nil, errors.New("cannot pack an empty beam")
	}
	tokens := make([]int64, len(hyps))
	states := make([]DecoderState, len(hyps))
	for i, h := range hyps {
		if len(h.Sequence) == 0 {
			return nil, nil, errors.Errorf("hypothesis %d has an empty sequence", i)
		}
		if h.State == nil {
			return nil, nil, errors.Errorf("hypothesis %d has no decoder state", i)
		}
		tokens[i] = int64(h.Sequence[len(h.Sequence)-1])
		states[i] = h.State
	}
	batch, err := states[0].StackBatch(states)
	if err != nil {
		return nil, nil, err
	}
	return tokens, batch, nil
}

// Unpack slices a step-function output back into one Extension per active
// hypothesis. n is the number of active hypotheses; any row-count mismatch
// is an invalid-argument error, never silently truncated.
func Unpack(out *StepOutput, n int) ([]Extension, error) {
	if out == nil {
		return nil, errors.New("nil step output")
	}
	if len(out.TopKTokens) != n {
		return nil, errors.Errorf("step output has %d token rows, beam has %d hypotheses", len(out.TopKTokens), n)
	}
	if len(out.TopKLogProbs) != n {
		return nil, errors.Errorf("step output has %d log-prob rows, beam has %d hypotheses", len(out.TopKLogProbs), n)
	}
	if out.State != nil && out.State.Len() != n {
		return nil, errors.Errorf("step output state batch is %d, beam has %d hypotheses", out.State.Len(), n)
	}
	if out.Attention != nil && len(out.Attention) != n {
		return nil, errors.Errorf("step output has %d attention rows, beam has %d hypotheses", len(out.Attention), n)
	}

	exts := make([]Extension, n)
	for i := 0; i < n; i++ {
		if len(out.TopKTokens[i]) != len(out.TopKLogProbs[i]) {
			return nil, errors.Errorf("row %d: %d candidate tokens but %d log-probs",
				i, len(out.TopKTokens[i]), len(out.TopKLogProbs[i]))
		}
		ext := Extension{
			Tokens:   out.TopKTokens[i],
			LogProbs: out.TopKLogProbs[i],
		}
		if out.State != nil {
			st, err := out.State.Slice(i)
			if err != nil {
				return nil, err
			}
			ext.State = st
		}
		if out.Attention != nil {
			ext.Attention = out.Attention[i]
		}
		exts[i] = ext
	}
	return exts, nil
}
