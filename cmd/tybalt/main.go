// Command tybalt trains the two-layer VAE on a gene-expression table
// and writes the encoder, decoder, loss history and latent embedding.
package main

import (
	"flag"
	"log"

	"github.com/ajlee21/Pseudomonas-latent-spaces/tybalt"
)

func main() {
	var cfg tybalt.Config

	flag.Float64Var(&cfg.LearningRate, "learning_rate", 0.001, "Adam learning rate")
	flag.IntVar(&cfg.BatchSize, "batch_size", 50, "training examples per mini-batch")
	flag.IntVar(&cfg.Epochs, "epochs", 100, "number of passes over the training set")
	flag.Float64Var(&cfg.Kappa, "kappa", 0.01, "KL warm-up step added to beta each epoch")
	flag.IntVar(&cfg.IntermediateDim, "intermediate_dim", 100, "hidden layer width")
	flag.IntVar(&cfg.LatentDim, "latent_dim", 2, "latent space dimensionality")
	flag.Float64Var(&cfg.EpsilonStd, "epsilon_std", 1.0, "sampler noise standard deviation")
	flag.StringVar(&cfg.BaseDir, "base_dir", "", "analysis base directory (required)")
	flag.StringVar(&cfg.AnalysisName, "analysis_name", "", "analysis name under base_dir (required)")
	flag.Float64Var(&cfg.TestFraction, "test_fraction", tybalt.DefaultTestFraction, "held-out validation fraction")
	flag.Uint64Var(&cfg.SplitSeed, "split_seed", tybalt.DefaultSplitSeed, "seed for the train/test split")
	flag.Uint64Var(&cfg.WeightSeed, "weight_seed", tybalt.DefaultWeightSeed, "seed for weight initialization")
	flag.Uint64Var(&cfg.NoiseSeed, "noise_seed", tybalt.DefaultNoiseSeed, "seed for sampler noise and epoch shuffle")
	flag.IntVar(&cfg.LogInterval, "log_interval", 10, "log losses every N epochs (0 disables)")
	flag.Parse()

	if err := tybalt.Run(cfg); err != nil {
		log.Fatal(err)
	}
}
