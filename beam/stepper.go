package beam

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ErrBeamExhausted is returned by Step when no candidate survived into the
// next beam. The finished list returned alongside it is still valid; callers
// stop the decode loop and select from it.
var ErrBeamExhausted = errors.New("beam exhausted: no active hypotheses survived the step")

// candidate wraps a hypothesis with its pruning rank key and eligibility.
// Repetition demotion produces a fresh record instead of mutating the
// hypothesis that is already in flight.
type candidate struct {
	hyp      *Hypothesis
	rankKey  float64
	eligible bool
}

// Stepper advances a beam by one decode step.
type Stepper struct {
	cfg     *Config
	scoring ScoringPolicy
	log     zerolog.Logger
}

// NewStepper creates a stepper for the given configuration.
func NewStepper(cfg *Config, log zerolog.Logger) *Stepper {
	return &Stepper{
		cfg:     cfg,
		scoring: cfg.scoringPolicy(),
		log:     log,
	}
}

// Step runs one decode step: unpack the step-function output, extend every
// active hypothesis into its children, rank the pooled candidates, filter
// repeats, promote finished sequences, and select the next beam.
//
// The returned beam always has exactly cfg.BeamSize entries, padded by
// duplicating the best survivor when fewer remain. The finished list is kept
// sorted descending by plain-mean normalized score, independent of the
// pruning policy.
func (s *Stepper) Step(beamState, finished []*Hypothesis, out *StepOutput) ([]*Hypothesis, []*Hypothesis, error) {
	if len(beamState) == 0 {
		return nil, nil, errors.New("step invoked with an empty beam")
	}

	exts, err := Unpack(out, len(beamState))
	if err != nil {
		return nil, nil, errors.Wrap(err, "unpacking step output")
	}

	pool := make([]candidate, 0, len(beamState)*4)
	for i, h := range beamState {
		ext := exts[i]
		for _, child := range h.Extend(ext.Tokens, ext.LogProbs, ext.State, ext.Attention, s.cfg.DiversityCoeff) {
			pool = append(pool, candidate{
				hyp:      child,
				rankKey:  s.scoring.RankKey(child),
				eligible: true,
			})
		}
	}
	if len(pool) == 0 {
		return nil, nil, errors.New("step produced no candidates")
	}

	// Rank keys are fixed before filtering: a soft-demoted candidate keeps
	// its sorted position and only carries the sentinel score forward.
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].rankKey > pool[j].rankKey
	})

	newFinished := finished
	newBeam := make([]*Hypothesis, 0, s.cfg.BeamSize)
	for _, c := range pool {
		if HasRepeatTrigram(c.hyp.Sequence) {
			c.hyp = c.hyp.demote()
			if s.cfg.RepetitionPolicy == RepetitionHard {
				c.eligible = false
			}
		}
		if !c.eligible {
			continue
		}

		seq := c.hyp.Sequence
		if seq[len(seq)-1] == s.cfg.EndTokenID {
			newFinished = append(newFinished, &Hypothesis{
				Sequence:  seq[:len(seq)-1],
				LogProb:   c.hyp.LogProb,
				State:     c.hyp.State,
				Attention: c.hyp.Attention,
				Coverage:  c.hyp.Coverage,
			})
		} else {
			newBeam = append(newBeam, c.hyp)
		}
		if len(newBeam) == s.cfg.BeamSize {
			break
		}
	}

	sortByNormScore(newFinished)

	if len(newBeam) == 0 {
		return newFinished, nil, ErrBeamExhausted
	}
	if len(newBeam) < s.cfg.BeamSize {
		s.log.Warn().
			Int("survivors", len(newBeam)).
			Int("beam_size", s.cfg.BeamSize).
			Msg("padding beam by duplicating best survivor")
		for len(newBeam) < s.cfg.BeamSize {
			newBeam = append(newBeam, newBeam[0])
		}
	}

	return newFinished, newBeam, nil
}

// sortByNormScore orders hypotheses descending by plain-mean normalized
// score, the fixed ordering of the finished list.
func sortByNormScore(hyps []*Hypothesis) {
	sort.SliceStable(hyps, func(i, j int) bool {
		return hyps[i].Better(hyps[j])
	})
}
