package beam

import (
	"beamsum-go/tensor"
)

// StepOutput is the external step function's result for one decode step:
// top-k continuations per active hypothesis, the updated batched state, and
// an optional attention distribution over the source per hypothesis.
type StepOutput struct {
	TopKTokens   [][]int
	TopKLogProbs [][]float64
	State        BatchedState
	Attention    [][]float64
}

// StepRunner is the model-side contract the engine decodes against.
// Implementations include ONNX-backed runners and test mocks; the engine
// itself never sees tensors beyond the opaque state handles.
type StepRunner interface {
	// InitState returns the decoder state the seed hypothesis starts from,
	// typically derived from the encoder output.
	InitState() (DecoderState, error)

	// Step consumes the last token and batched state of every active
	// hypothesis and returns their top-k continuations.
	Step(lastTokens []int64, state BatchedState) (*StepOutput, error)

	// Close cleans up resources
	Close() error
}

// MockStepRunner is a deterministic runner for tests and demos. Candidate
// tokens are derived from the last token so decodes are reproducible; EOS is
// emitted as the top candidate once a row's last token lands on a multiple
// of EOSEvery.
type MockStepRunner struct {
	K        int
	Vocab    int
	EOS      int
	EOSEvery int
	StateDim int
}

// NewMockStepRunner creates a mock runner with a small default shape
func NewMockStepRunner(k, vocab, eos int) *MockStepRunner {
	return &MockStepRunner{
		K:        k,
		Vocab:    vocab,
		EOS:      eos,
		EOSEvery: 7,
		StateDim: 4,
	}
}

func (m *MockStepRunner) InitState() (DecoderState, error) {
	return &SingleTensorState{Cache: tensor.NewTensor(1, m.StateDim)}, nil
}

func (m *MockStepRunner) Step(lastTokens []int64, state BatchedState) (*StepOutput, error) {
	n := len(lastTokens)
	topK := make([][]int, n)
	logProbs := make([][]float64, n)
	states := make([]DecoderState, n)

	for i, last := range lastTokens {
		tokens := make([]int, m.K)
		lps := make([]float64, m.K)
		for r := 0; r < m.K; r++ {
			tok := int(last*31+int64(r)*7+1) % m.Vocab
			if tok == m.EOS {
				tok = (tok + 1) % m.Vocab
			}
			tokens[r] = tok
			lps[r] = -0.1 * float64(r+1)
		}
		if m.EOSEvery > 0 && last > 0 && last%int64(m.EOSEvery) == 0 {
			tokens[0] = m.EOS
		}
		topK[i] = tokens
		logProbs[i] = lps
		states[i] = &SingleTensorState{Cache: tensor.NewTensor(1, m.StateDim)}
	}

	batch, err := states[0].StackBatch(states)
	if err != nil {
		return nil, err
	}
	return &StepOutput{
		TopKTokens:   topK,
		TopKLogProbs: logProbs,
		State:        batch,
	}, nil
}

func (m *MockStepRunner) Close() error {
	return nil
}
