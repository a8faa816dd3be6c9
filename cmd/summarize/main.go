// Command summarize decodes abstractive summaries for newline-separated
// inputs on stdin. With SUMMARIZE_ENCODER/DECODER/TOKENIZER set it runs a
// real ONNX model; without them it falls back to the deterministic mock
// runner and prints token ids, which is useful for exercising the search.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/schollz/progressbar/v3"

	"beamsum-go/beam"
	"beamsum-go/hftokenizer"
	"beamsum-go/logger"
	"beamsum-go/ort"
)

type config struct {
	EncoderPath   string  `envconfig:"SUMMARIZE_ENCODER" default:""`
	DecoderPath   string  `envconfig:"SUMMARIZE_DECODER" default:""`
	TokenizerPath string  `envconfig:"SUMMARIZE_TOKENIZER" default:""`
	BeamSize      int     `envconfig:"SUMMARIZE_BEAM_SIZE" default:"5"`
	TopK          int     `envconfig:"SUMMARIZE_TOP_K" default:"8"`
	MaxSteps      int     `envconfig:"SUMMARIZE_MAX_STEPS" default:"120"`
	StartTokenID  int     `envconfig:"SUMMARIZE_START_TOKEN" default:"2"`
	EndTokenID    int     `envconfig:"SUMMARIZE_END_TOKEN" default:"3"`
	VocabSize     int     `envconfig:"SUMMARIZE_VOCAB_SIZE" default:"32000"`
	HiddenSize    int     `envconfig:"SUMMARIZE_HIDDEN_SIZE" default:"768"`
	Diversity     float64 `envconfig:"SUMMARIZE_DIVERSITY" default:"1.0"`
	Repetition    string  `envconfig:"SUMMARIZE_REPETITION" default:"soft"`
	Scoring       string  `envconfig:"SUMMARIZE_SCORING" default:"wu"`
	ScoringAlpha  float64 `envconfig:"SUMMARIZE_ALPHA" default:"0.9"`
	CoverageBeta  float64 `envconfig:"SUMMARIZE_COVERAGE_BETA" default:"0"`
}

func main() {
	log := logger.NewLogger("summarize")

	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal().Err(err).Msg("Could not read config")
	}

	decodeCfg := beam.NewConfig(
		beam.WithBeamSize(cfg.BeamSize),
		beam.WithStartTokenID(cfg.StartTokenID),
		beam.WithEndTokenID(cfg.EndTokenID),
		beam.WithDiversityCoeff(cfg.Diversity),
		beam.WithRepetitionPolicy(repetitionPolicy(cfg.Repetition)),
		beam.WithScoring(scoringMode(cfg.Scoring)),
		beam.WithScoringAlpha(cfg.ScoringAlpha),
		beam.WithCoverageBeta(cfg.CoverageBeta),
		beam.WithMaxSteps(cfg.MaxSteps),
	)

	var inputs []string
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			inputs = append(inputs, line)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatal().Err(err).Msg("Could not read input")
	}
	if len(inputs) == 0 {
		log.Fatal().Msg("No input lines on stdin")
	}

	if cfg.EncoderPath == "" || cfg.DecoderPath == "" || cfg.TokenizerPath == "" {
		log.Info().Msg("No model configured, running mock decode")
		runMock(decodeCfg, cfg, inputs)
		return
	}

	tk, err := hftokenizer.New(cfg.TokenizerPath, cfg.EndTokenID)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load tokenizer")
	}
	defer tk.Close()

	bar := progressbar.NewOptions(len(inputs),
		progressbar.OptionSetDescription("Summarizing"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
	)

	for _, article := range inputs {
		srcIDs, err := tk.Encode(article)
		if err != nil {
			log.Fatal().Err(err).Msg("Could not encode input")
		}

		runner, err := ort.NewRunner(
			cfg.EncoderPath, cfg.DecoderPath,
			srcIDs, cfg.VocabSize, cfg.HiddenSize, cfg.TopK,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Could not create model runner")
		}

		seq, _, err := beam.NewEngine(decodeCfg, runner).Decode()
		runner.Close()
		if err != nil {
			log.Fatal().Err(err).Msg("Decode failed")
		}

		summary, err := tk.Decode(seq)
		if err != nil {
			log.Fatal().Err(err).Msg("Could not decode output tokens")
		}
		bar.Add(1)
		fmt.Println(summary)
	}
	bar.Finish()
}

func runMock(decodeCfg *beam.Config, cfg config, inputs []string) {
	log := logger.NewLogger("summarize")
	for i := range inputs {
		runner := beam.NewMockStepRunner(cfg.TopK, 1000, cfg.EndTokenID)
		seq, _, err := beam.NewEngine(decodeCfg, runner).Decode()
		if err != nil {
			log.Fatal().Err(err).Msg("Mock decode failed")
		}
		fmt.Printf("input %d -> tokens %v\n", i+1, seq)
	}
}

func repetitionPolicy(name string) beam.RepetitionPolicy {
	if name == "hard" {
		return beam.RepetitionHard
	}
	return beam.RepetitionSoft
}

func scoringMode(name string) beam.ScoringMode {
	if name == "mean" {
		return beam.ScoringMean
	}
	return beam.ScoringWu
}
