package beam

import "math"

// LengthPenalty is the GNMT ("Wu") length re-ranking divisor:
// ((5 + length) / 6) ^ alpha. Alpha 0 disables length normalization.
func LengthPenalty(length int, alpha float64) float64 {
	return math.Pow(float64(5+length)/6.0, alpha)
}

// CoveragePenalty penalizes over-attended source positions:
// beta * (sum(max(cov_i, 1)) - len(cov)). Returns 0 when disabled
// (beta == 0) or no coverage has accumulated yet.
func CoveragePenalty(cov []float64, beta float64) float64 {
	if beta == 0 || len(cov) == 0 {
		return 0
	}
	total := 0.0
	for _, c := range cov {
		total += math.Max(c, 1.0)
	}
	return beta * (total - float64(len(cov)))
}

// ScoringPolicy ranks hypotheses for beam pruning. Higher keys win. The
// finished list is always ordered by plain-mean normalized score regardless
// of the pruning policy; see Stepper.Step.
type ScoringPolicy interface {
	RankKey(h *Hypothesis) float64
}

// WuScoring ranks by logProb / LengthPenalty(len, Alpha), minus the optional
// coverage penalty.
type WuScoring struct {
	Alpha        float64
	CoverageBeta float64
}

func (s WuScoring) RankKey(h *Hypothesis) float64 {
	return h.LogProb/LengthPenalty(len(h.Sequence), s.Alpha) - CoveragePenalty(h.Coverage, s.CoverageBeta)
}

// MeanScoring ranks by logProb / len, minus the optional coverage penalty.
type MeanScoring struct {
	CoverageBeta float64
}

func (s MeanScoring) RankKey(h *Hypothesis) float64 {
	return h.NormScore() - CoveragePenalty(h.Coverage, s.CoverageBeta)
}
