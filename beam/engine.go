package beam

import (
	"github.com/pkg/errors"

	"beamsum-go/logger"
)

// Engine drives a full decode: it seeds a beam, repeatedly packs it for the
// step runner and advances it through the stepper until the step budget is
// exhausted or the beam degenerates, then selects the final sequence.
//
// An engine owns its beam and finished list exclusively; engines for
// different inputs can run in parallel without coordination.
type Engine struct {
	cfg     *Config
	runner  StepRunner
	stepper *Stepper
}

// NewEngine creates an engine decoding against the given step runner.
func NewEngine(cfg *Config, runner StepRunner) *Engine {
	return &Engine{
		cfg:     cfg,
		runner:  runner,
		stepper: NewStepper(cfg, logger.NewLogger("beam")),
	}
}

// Decode runs beam search from a single start-token seed and returns the
// best sequence with the start token stripped, plus its attention history
// when the model produced one.
func (e *Engine) Decode() ([]int, [][]float64, error) {
	state, err := e.runner.InitState()
	if err != nil {
		return nil, nil, errors.Wrap(err, "initializing decoder state")
	}
	return e.run(InitBeam(e.cfg.StartTokenID, state))
}

// DecodeSeeded runs beam search from k seed hypotheses drawn from an
// initial top-k distribution.
func (e *Engine) DecodeSeeded(tokens []int, logProbs []float64) ([]int, [][]float64, error) {
	if len(tokens) == 0 || len(tokens) != len(logProbs) {
		return nil, nil, errors.Errorf("seed distribution malformed: %d tokens, %d log-probs", len(tokens), len(logProbs))
	}
	state, err := e.runner.InitState()
	if err != nil {
		return nil, nil, errors.Wrap(err, "initializing decoder state")
	}
	return e.run(CreateBeam(tokens, logProbs, state))
}

func (e *Engine) run(beamState []*Hypothesis) ([]int, [][]float64, error) {
	var finished []*Hypothesis

	for step := 0; step < e.cfg.MaxSteps; step++ {
		tokens, batch, err := Pack(beamState)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "packing beam at step %d", step)
		}

		out, err := e.runner.Step(tokens, batch)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "model step %d", step)
		}

		finished, beamState, err = e.stepper.Step(beamState, finished, out)
		if errors.Is(err, ErrBeamExhausted) {
			// every candidate completed; nothing left to extend
			return BestSequence(finished, nil)
		}
		if err != nil {
			return nil, nil, errors.Wrapf(err, "beam step %d", step)
		}
	}

	return BestSequence(finished, beamState)
}
