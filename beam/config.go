package beam

import "github.com/pkg/errors"

// RepetitionPolicy selects how trigram-repeating candidates are handled.
type RepetitionPolicy int

const (
	// RepetitionSoft demotes a repeating candidate to the sentinel score but
	// lets it keep competing for a beam slot.
	RepetitionSoft RepetitionPolicy = iota
	// RepetitionHard demotes and unconditionally excludes a repeating
	// candidate from both the beam and the finished list.
	RepetitionHard
)

// ScoringMode selects the rank key used to prune the beam.
type ScoringMode int

const (
	// ScoringWu ranks by logProb / ((5+len)/6)^alpha.
	ScoringWu ScoringMode = iota
	// ScoringMean ranks by logProb / len.
	ScoringMean
)

// Config holds the decoding configuration
type Config struct {
	BeamSize         int
	StartTokenID     int
	EndTokenID       int
	DiversityCoeff   float64
	RepetitionPolicy RepetitionPolicy
	Scoring          ScoringMode
	ScoringAlpha     float64
	CoverageBeta     float64
	MaxSteps         int
}

// ConfigOption is a functional option for Config
type ConfigOption func(*Config)

// NewConfig creates a new Config with default values
func NewConfig(opts ...ConfigOption) *Config {
	c := &Config{
		BeamSize:         5,
		StartTokenID:     2,
		EndTokenID:       3,
		DiversityCoeff:   1.0,
		RepetitionPolicy: RepetitionSoft,
		Scoring:          ScoringWu,
		ScoringAlpha:     0.9,
		CoverageBeta:     0,
		MaxSteps:         100,
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.validate(); err != nil {
		panic(err)
	}

	return c
}

func (c *Config) validate() error {
	if c.BeamSize < 1 {
		return errors.Errorf("beam size must be >= 1, got %d", c.BeamSize)
	}
	if c.DiversityCoeff < 0 {
		return errors.Errorf("diversity coefficient must be >= 0, got %f", c.DiversityCoeff)
	}
	if c.CoverageBeta < 0 {
		return errors.Errorf("coverage beta must be >= 0, got %f", c.CoverageBeta)
	}
	if c.MaxSteps < 1 {
		return errors.Errorf("max steps must be >= 1, got %d", c.MaxSteps)
	}
	return nil
}

// scoringPolicy returns the pruning rank key for this configuration.
func (c *Config) scoringPolicy() ScoringPolicy {
	if c.Scoring == ScoringMean {
		return MeanScoring{CoverageBeta: c.CoverageBeta}
	}
	return WuScoring{Alpha: c.ScoringAlpha, CoverageBeta: c.CoverageBeta}
}

// WithBeamSize sets the number of active hypotheses kept per step
func WithBeamSize(n int) ConfigOption {
	return func(c *Config) {
		c.BeamSize = n
	}
}

// WithStartTokenID sets the start-of-sequence token ID
func WithStartTokenID(id int) ConfigOption {
	return func(c *Config) {
		c.StartTokenID = id
	}
}

// WithEndTokenID sets the end-of-sequence token ID
func WithEndTokenID(id int) ConfigOption {
	return func(c *Config) {
		c.EndTokenID = id
	}
}

// WithDiversityCoeff sets the rank-proportional sibling penalty
func WithDiversityCoeff(d float64) ConfigOption {
	return func(c *Config) {
		c.DiversityCoeff = d
	}
}

// WithRepetitionPolicy sets the trigram-repeat handling policy
func WithRepetitionPolicy(p RepetitionPolicy) ConfigOption {
	return func(c *Config) {
		c.RepetitionPolicy = p
	}
}

// WithScoring sets the beam-pruning scoring mode
func WithScoring(m ScoringMode) ConfigOption {
	return func(c *Config) {
		c.Scoring = m
	}
}

// WithScoringAlpha sets the length-penalty exponent for Wu scoring
func WithScoringAlpha(a float64) ConfigOption {
	return func(c *Config) {
		c.ScoringAlpha = a
	}
}

// WithCoverageBeta enables the coverage penalty when nonzero
func WithCoverageBeta(b float64) ConfigOption {
	return func(c *Config) {
		c.CoverageBeta = b
	}
}

// WithMaxSteps sets the decode step budget enforced by the engine
func WithMaxSteps(n int) ConfigOption {
	return func(c *Config) {
		c.MaxSteps = n
	}
}
