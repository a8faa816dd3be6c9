// Package ort adapts an exported encoder-decoder ONNX summarization model
// to the beam.StepRunner contract. The encoder runs once per input; the
// decoder is re-run over the full output prefix at every step, with the
// prefix carried as the opaque single-tensor decoder state.
package ort

import (
	"math"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"beamsum-go/beam"
	"beamsum-go/tensor"
)

// Runner implements beam.StepRunner over two ONNX sessions.
type Runner struct {
	decoderPath   string
	sourceLen     int
	hiddenSize    int
	vocabSize     int
	topK          int
	encoderHidden []float32
	options       *ort.SessionOptions
}

// NewRunner initializes the ONNX runtime, runs the encoder over the source
// token ids, and returns a runner ready for decoding that one input.
func NewRunner(encoderPath, decoderPath string, sourceIDs []int, vocabSize, hiddenSize, topK int) (*Runner, error) {
	if len(sourceIDs) == 0 {
		return nil, errors.New("empty source sequence")
	}
	if topK < 1 {
		return nil, errors.Errorf("top-k must be >= 1, got %d", topK)
	}

	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, errors.Wrap(err, "initializing ONNX runtime")
		}
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "creating session options")
	}
	if err := options.SetIntraOpNumThreads(4); err != nil {
		options.Destroy()
		return nil, errors.Wrap(err, "setting threads")
	}

	r := &Runner{
		decoderPath: decoderPath,
		sourceLen:   len(sourceIDs),
		hiddenSize:  hiddenSize,
		vocabSize:   vocabSize,
		topK:        topK,
		options:     options,
	}

	if err := r.encode(encoderPath, sourceIDs); err != nil {
		options.Destroy()
		return nil, err
	}
	return r, nil
}

// encode runs the encoder session once and keeps its hidden states.
func (r *Runner) encode(encoderPath string, sourceIDs []int) error {
	inputData := make([]int64, len(sourceIDs))
	for i, id := range sourceIDs {
		inputData[i] = int64(id)
	}
	inputTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(sourceIDs))), inputData)
	if err != nil {
		return errors.Wrap(err, "creating encoder input tensor")
	}
	defer inputTensor.Destroy()

	outputData := make([]float32, len(sourceIDs)*r.hiddenSize)
	outputTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(sourceIDs)), int64(r.hiddenSize)), outputData)
	if err != nil {
		return errors.Wrap(err, "creating encoder output tensor")
	}
	defer outputTensor.Destroy()

	session, err := ort.NewAdvancedSession(
		encoderPath,
		[]string{"input_ids"},
		[]string{"last_hidden_state"},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		r.options,
	)
	if err != nil {
		return errors.Wrap(err, "creating encoder session")
	}
	defer session.Destroy()

	if err := session.Run(); err != nil {
		return errors.Wrap(err, "running encoder")
	}

	r.encoderHidden = make([]float32, len(outputTensor.GetData()))
	copy(r.encoderHidden, outputTensor.GetData())
	return nil
}

// InitState starts every hypothesis from an empty decoder prefix.
func (r *Runner) InitState() (beam.DecoderState, error) {
	return &beam.SingleTensorState{Cache: tensor.NewTensor(1, 0)}, nil
}

// Step extends each hypothesis's prefix with its last token, reruns the
// decoder, and returns the top-k continuations. Children of the same parent
// share the parent's updated prefix, matching the step contract.
func (r *Runner) Step(lastTokens []int64, state beam.BatchedState) (*beam.StepOutput, error) {
	n := len(lastTokens)
	if state == nil || state.Len() != n {
		return nil, errors.Errorf("state batch does not match %d tokens", n)
	}

	topK := make([][]int, n)
	logProbs := make([][]float64, n)
	states := make([]beam.DecoderState, n)

	for i := 0; i < n; i++ {
		prev, err := state.Slice(i)
		if err != nil {
			return nil, err
		}
		prefix := prev.(*beam.SingleTensorState).Cache

		inputIDs := make([]int64, 0, prefix.Shape[1]+1)
		for j := 0; j < prefix.Shape[1]; j++ {
			inputIDs = append(inputIDs, int64(prefix.At(0, j)))
		}
		inputIDs = append(inputIDs, lastTokens[i])

		logits, err := r.runDecoder(inputIDs)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding row %d", i)
		}

		tokens, lps := topKLogProbs(logits, r.topK)
		topK[i] = tokens
		logProbs[i] = lps

		next := tensor.NewTensor(1, len(inputIDs))
		for j, id := range inputIDs {
			next.Set(float32(id), 0, j)
		}
		states[i] = &beam.SingleTensorState{Cache: next}
	}

	batch, err := states[0].StackBatch(states)
	if err != nil {
		return nil, err
	}
	return &beam.StepOutput{
		TopKTokens:   topK,
		TopKLogProbs: logProbs,
		State:        batch,
	}, nil
}

// runDecoder runs one decoder pass over the full prefix and returns the
// logits of the last position.
func (r *Runner) runDecoder(inputIDs []int64) ([]float32, error) {
	seqLen := len(inputIDs)

	inputTensor, err := ort.NewTensor(ort.NewShape(1, int64(seqLen)), inputIDs)
	if err != nil {
		return nil, errors.Wrap(err, "creating decoder input tensor")
	}
	defer inputTensor.Destroy()

	hidden := make([]float32, len(r.encoderHidden))
	copy(hidden, r.encoderHidden)
	hiddenTensor, err := ort.NewTensor(ort.NewShape(1, int64(r.sourceLen), int64(r.hiddenSize)), hidden)
	if err != nil {
		return nil, errors.Wrap(err, "creating encoder-hidden tensor")
	}
	defer hiddenTensor.Destroy()

	outputData := make([]float32, seqLen*r.vocabSize)
	outputTensor, err := ort.NewTensor(ort.NewShape(1, int64(seqLen), int64(r.vocabSize)), outputData)
	if err != nil {
		return nil, errors.Wrap(err, "creating logits tensor")
	}
	defer outputTensor.Destroy()

	session, err := ort.NewAdvancedSession(
		r.decoderPath,
		[]string{"input_ids", "encoder_hidden_states"},
		[]string{"logits"},
		[]ort.Value{inputTensor, hiddenTensor},
		[]ort.Value{outputTensor},
		r.options,
	)
	if err != nil {
		return nil, errors.Wrap(err, "creating decoder session")
	}
	defer session.Destroy()

	if err := session.Run(); err != nil {
		return nil, errors.Wrap(err, "running decoder")
	}

	logits := outputTensor.GetData()
	lastStart := (seqLen - 1) * r.vocabSize
	out := make([]float32, r.vocabSize)
	copy(out, logits[lastStart:lastStart+r.vocabSize])
	return out, nil
}

// Close cleans up resources
func (r *Runner) Close() error {
	if r.options != nil {
		r.options.Destroy()
		r.options = nil
	}
	return nil
}

// topKLogProbs converts logits to log-probabilities and selects the k best
// candidates in descending order.
func topKLogProbs(logits []float32, k int) ([]int, []float64) {
	maxLogit := logits[0]
	for _, l := range logits {
		if l > maxLogit {
			maxLogit = l
		}
	}
	var sumExp float64
	for _, l := range logits {
		sumExp += math.Exp(float64(l - maxLogit))
	}
	logZ := float64(maxLogit) + math.Log(sumExp)

	if k > len(logits) {
		k = len(logits)
	}
	chosen := make([]bool, len(logits))
	tokens := make([]int, 0, k)
	lps := make([]float64, 0, k)
	for r := 0; r < k; r++ {
		best := -1
		for i, l := range logits {
			if chosen[i] {
				continue
			}
			if best == -1 || l > logits[best] {
				best = i
			}
		}
		chosen[best] = true
		tokens = append(tokens, best)
		lps = append(lps, float64(logits[best])-logZ)
	}
	return tokens, lps
}
