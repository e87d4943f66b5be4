// Package tybalt trains the two-layer Tybalt variational autoencoder
// on a gene-expression table and writes the trained encoder/decoder,
// the per-epoch loss history and the latent embedding of every sample.
package tybalt

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/exp/rand"

	"github.com/ajlee21/Pseudomonas-latent-spaces/internal/data"
	"github.com/ajlee21/Pseudomonas-latent-spaces/internal/opt"
	"github.com/ajlee21/Pseudomonas-latent-spaces/internal/vae"
)

// Default seeds, kept from the reference pipeline so replication
// studies keep their split/init/noise streams.
const (
	DefaultSplitSeed  = 123
	DefaultWeightSeed = 42
	DefaultNoiseSeed  = 1234

	DefaultTestFraction = 0.1
)

// Config is the full configuration surface of one training run.
type Config struct {
	LearningRate    float64
	BatchSize       int
	Epochs          int
	Kappa           float64
	IntermediateDim int
	LatentDim       int
	EpsilonStd      float64

	BaseDir      string
	AnalysisName string

	TestFraction float64

	// Independent seeds for row sampling, weight initialization and
	// sampler noise (which also drives the epoch shuffle).
	SplitSeed  uint64
	WeightSeed uint64
	NoiseSeed  uint64

	// LogInterval controls epoch logging; 0 silences it.
	LogInterval int
}

// Paths are the input and output locations derived from the base
// directory, analysis name and latent dimension.
type Paths struct {
	Data         string
	Stats        string
	HistPlot     string
	Encoded      string
	EncoderModel string
	DecoderModel string
}

// Paths derives the run's file locations.
func (c Config) Paths() Paths {
	prefix := fmt.Sprintf("tybalt_2layer_%dlatent", c.LatentDim)
	return Paths{
		Data:         filepath.Join(c.BaseDir, "data", c.AnalysisName, "train_model_input.txt.xz"),
		Stats:        filepath.Join(c.BaseDir, "stats", c.AnalysisName, prefix+"_stats.tsv"),
		HistPlot:     filepath.Join(c.BaseDir, "stats", c.AnalysisName, prefix+"_hist.png"),
		Encoded:      filepath.Join(c.BaseDir, "encoded", c.AnalysisName, fmt.Sprintf("train_input_2layer_%dlatent_encoded.txt", c.LatentDim)),
		EncoderModel: filepath.Join(c.BaseDir, "models", c.AnalysisName, prefix+"_encoder_model.gob"),
		DecoderModel: filepath.Join(c.BaseDir, "models", c.AnalysisName, prefix+"_decoder_model.gob"),
	}
}

func (c *Config) applyDefaults() {
	if c.TestFraction == 0 {
		c.TestFraction = DefaultTestFraction
	}
	if c.SplitSeed == 0 {
		c.SplitSeed = DefaultSplitSeed
	}
	if c.WeightSeed == 0 {
		c.WeightSeed = DefaultWeightSeed
	}
	if c.NoiseSeed == 0 {
		c.NoiseSeed = DefaultNoiseSeed
	}
}

func (c Config) validate() error {
	if c.BaseDir == "" {
		return fmt.Errorf("tybalt: base dir is required")
	}
	if c.AnalysisName == "" {
		return fmt.Errorf("tybalt: analysis name is required")
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("tybalt: epochs must be positive, got %d", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("tybalt: batch size must be positive, got %d", c.BatchSize)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("tybalt: learning rate must be positive, got %v", c.LearningRate)
	}
	return nil
}

// Run executes the whole pipeline: load, split, build, train, export.
// It is a single blocking call; training touches no goroutines so runs
// with identical seeds and input reproduce each other (bit-exactness
// additionally depends on the pinned gonum/rand versions).
func Run(cfg Config) error {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return err
	}
	paths := cfg.Paths()

	matrix, err := data.LoadTable(paths.Data)
	if err != nil {
		return fmt.Errorf("tybalt: %w", err)
	}
	log.Printf("loaded %s: %d samples x %d genes",
		paths.Data, matrix.NumSamples(), matrix.NumGenes())

	// Seed every random stream before the model exists: the split
	// generator, the weight initializer, then the backend stream used
	// for sampler noise and the epoch shuffle.
	split := matrix.SplitTest(cfg.TestFraction, cfg.SplitSeed)
	initSrc := rand.NewSource(cfg.WeightSeed)
	noiseSrc := rand.NewSource(cfg.NoiseSeed)

	beta := &vae.Beta{}
	model, err := vae.New(vae.Config{
		OriginalDim:     matrix.NumGenes(),
		IntermediateDim: cfg.IntermediateDim,
		LatentDim:       cfg.LatentDim,
		EpsilonStd:      cfg.EpsilonStd,
	}, beta, initSrc, noiseSrc)
	if err != nil {
		return err
	}

	trainer := vae.NewTrainer(model, opt.NewAdam(cfg.LearningRate),
		cfg.BatchSize, cfg.Epochs, rand.New(noiseSrc))
	trainer.AddCallback(&vae.WarmUp{Beta: beta, Kappa: cfg.Kappa})
	if cfg.LogInterval > 0 {
		trainer.AddCallback(vae.Logger{Interval: cfg.LogInterval})
	}

	log.Printf("training %d epochs (batch %d, lr %g, kappa %g, latent %d)",
		cfg.Epochs, cfg.BatchSize, cfg.LearningRate, cfg.Kappa, cfg.LatentDim)
	hist := trainer.Fit(matrix.Rows(split.TrainIdx), matrix.Rows(split.TestIdx))

	if err := ensureOutputDirs(paths); err != nil {
		return err
	}

	if err := vae.WriteStats(paths.Stats, hist, vae.HyperParams{
		LearningRate: cfg.LearningRate,
		BatchSize:    cfg.BatchSize,
		Epochs:       cfg.Epochs,
		Kappa:        cfg.Kappa,
	}); err != nil {
		return err
	}

	if err := vae.PlotHistory(paths.HistPlot, hist); err != nil {
		return err
	}

	if err := vae.WriteEncoded(paths.Encoded, model, matrix); err != nil {
		return err
	}

	if err := model.Encoder().Save(paths.EncoderModel); err != nil {
		return fmt.Errorf("tybalt: saving encoder: %w", err)
	}
	if err := model.Decoder().Save(paths.DecoderModel); err != nil {
		return fmt.Errorf("tybalt: saving decoder: %w", err)
	}

	log.Printf("wrote %s, %s, %s", paths.Stats, paths.Encoded, paths.EncoderModel)
	return nil
}

func ensureOutputDirs(paths Paths) error {
	for _, p := range []string{paths.Stats, paths.Encoded, paths.EncoderModel} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("tybalt: creating output dir: %w", err)
		}
	}
	return nil
}
