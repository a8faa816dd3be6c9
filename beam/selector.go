package beam

import "github.com/pkg/errors"

// BestSequence picks the final output at decode end. With beamState nil the
// head of the finished list wins outright; otherwise the finished head is
// compared against the active beam's best by plain-mean normalized score,
// defaulting to the beam when the finished list is empty. The leading start
// token is stripped, and the attention history is returned when non-empty.
//
// Calling with both an empty finished list and no beam is a caller contract
// violation and returns an error.
func BestSequence(finished, beamState []*Hypothesis) ([]int, [][]float64, error) {
	var best *Hypothesis
	switch {
	case beamState == nil:
		if len(finished) == 0 {
			return nil, nil, errors.New("no finished hypotheses and no active beam")
		}
		best = finished[0]
	case len(beamState) == 0:
		if len(finished) == 0 {
			return nil, nil, errors.New("no finished hypotheses and no active beam")
		}
		best = finished[0]
	default:
		if len(finished) > 0 && finished[0].Better(beamState[0]) {
			best = finished[0]
		} else {
			best = beamState[0]
		}
	}

	seq := best.Sequence[1:]
	if len(best.Attention) > 0 {
		return seq, best.Attention, nil
	}
	return seq, nil, nil
}
