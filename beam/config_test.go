package beam

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigDefaults(t *testing.T) {
	c := NewConfig()
	assert.Equal(t, 5, c.BeamSize)
	assert.Equal(t, 1.0, c.DiversityCoeff)
	assert.Equal(t, RepetitionSoft, c.RepetitionPolicy)
	assert.Equal(t, ScoringWu, c.Scoring)
	assert.Equal(t, 0.9, c.ScoringAlpha)
	assert.Equal(t, 0.0, c.CoverageBeta)
	assert.Equal(t, 100, c.MaxSteps)
}

func TestConfigOptions(t *testing.T) {
	c := NewConfig(
		WithBeamSize(8),
		WithStartTokenID(1),
		WithEndTokenID(2),
		WithDiversityCoeff(0.5),
		WithRepetitionPolicy(RepetitionHard),
		WithScoring(ScoringMean),
		WithScoringAlpha(1.1),
		WithCoverageBeta(5),
		WithMaxSteps(30),
	)
	assert.Equal(t, 8, c.BeamSize)
	assert.Equal(t, 1, c.StartTokenID)
	assert.Equal(t, 2, c.EndTokenID)
	assert.Equal(t, 0.5, c.DiversityCoeff)
	assert.Equal(t, RepetitionHard, c.RepetitionPolicy)
	assert.Equal(t, ScoringMean, c.Scoring)
	assert.Equal(t, 1.1, c.ScoringAlpha)
	assert.Equal(t, 5.0, c.CoverageBeta)
	assert.Equal(t, 30, c.MaxSteps)
}

func TestConfigValidation(t *testing.T) {
	assert.Panics(t, func() { NewConfig(WithBeamSize(0)) })
	assert.Panics(t, func() { NewConfig(WithDiversityCoeff(-1)) })
	assert.Panics(t, func() { NewConfig(WithCoverageBeta(-0.1)) })
	assert.Panics(t, func() { NewConfig(WithMaxSteps(0)) })
}

func TestScoringPolicySelection(t *testing.T) {
	wu := NewConfig(WithScoring(ScoringWu), WithScoringAlpha(0.9)).scoringPolicy()
	assert.IsType(t, WuScoring{}, wu)
	mean := NewConfig(WithScoring(ScoringMean)).scoringPolicy()
	assert.IsType(t, MeanScoring{}, mean)
}
