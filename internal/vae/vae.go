// Package vae implements the Tybalt two-layer variational autoencoder:
// encoder with separate mean and log-variance branches, reparameterized
// sampling, a sigmoid-output decoder, and the warm-up weighted
// reconstruction + KL objective.
package vae

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"

	"github.com/ajlee21/Pseudomonas-latent-spaces/internal/activations"
	"github.com/ajlee21/Pseudomonas-latent-spaces/internal/layer"
	"github.com/ajlee21/Pseudomonas-latent-spaces/internal/loss"
	"github.com/ajlee21/Pseudomonas-latent-spaces/internal/net"
)

// Config holds the model dimensions and sampling spread.
type Config struct {
	OriginalDim     int
	IntermediateDim int
	LatentDim       int
	EpsilonStd      float64
}

// VAE wires the encoder branches, the sampler and the decoder into one
// trainable model.
//
// Encoder topology (reproduced exactly from the reference
// architecture, including the ReLU on both latent heads and the
// log-variance branch reading the raw input rather than the hidden
// representation):
//
//	hidden   = ReLU(BN(Dense(x, intermediate)))
//	z_mean   = ReLU(BN(Dense(hidden, latent)))
//	z_logvar = ReLU(BN(Dense(x, latent)))
//	z        = z_mean + exp(z_logvar/2) * eps
//	x_hat    = Sigmoid(Dense(ReLU(Dense(z, intermediate)), original))
type VAE struct {
	originalDim int
	latentDim   int

	hidden  *net.Network
	mean    *net.Network
	logVar  *net.Network
	decoder *net.Network

	sampler *Sampler
	beta    *Beta
	bce     loss.BCE

	// Last forward pass state, consumed by Loss and backward.
	zMean   []float64
	zLogVar []float64
	zBuf    []float64
	epsBuf  []float64

	dzMeanBuf   []float64
	dzLogVarBuf []float64
	reconGrad   []float64
}

// New builds the model. Weights are initialized from initSrc; sampler
// noise is drawn from noiseSrc. The two sources must be seeded before
// the call for reproducible runs.
func New(cfg Config, beta *Beta, initSrc, noiseSrc rand.Source) (*VAE, error) {
	if cfg.OriginalDim <= 0 || cfg.IntermediateDim <= 0 || cfg.LatentDim <= 0 {
		return nil, fmt.Errorf("vae: dimensions must be positive, got original=%d intermediate=%d latent=%d",
			cfg.OriginalDim, cfg.IntermediateDim, cfg.LatentDim)
	}
	if cfg.EpsilonStd <= 0 {
		return nil, fmt.Errorf("vae: epsilon std must be positive, got %v", cfg.EpsilonStd)
	}
	if beta == nil {
		return nil, fmt.Errorf("vae: nil beta cell")
	}

	// Layer construction order fixes how many draws each layer consumes
	// from initSrc; keep it stable.
	hidden := net.New(
		layer.NewDense(cfg.OriginalDim, cfg.IntermediateDim, activations.Linear{}, initSrc),
		layer.NewBatchNorm(cfg.IntermediateDim, activations.ReLU{}),
	)
	mean := net.New(
		layer.NewDense(cfg.IntermediateDim, cfg.LatentDim, activations.Linear{}, initSrc),
		layer.NewBatchNorm(cfg.LatentDim, activations.ReLU{}),
	)
	logVar := net.New(
		layer.NewDense(cfg.OriginalDim, cfg.LatentDim, activations.Linear{}, initSrc),
		layer.NewBatchNorm(cfg.LatentDim, activations.ReLU{}),
	)
	decoder := net.New(
		layer.NewDense(cfg.LatentDim, cfg.IntermediateDim, activations.ReLU{}, initSrc),
		layer.NewDense(cfg.IntermediateDim, cfg.OriginalDim, activations.Sigmoid{}, initSrc),
	)

	return &VAE{
		originalDim: cfg.OriginalDim,
		latentDim:   cfg.LatentDim,
		hidden:      hidden,
		mean:        mean,
		logVar:      logVar,
		decoder:     decoder,
		sampler:     NewSampler(cfg.EpsilonStd, noiseSrc),
		beta:        beta,

		zBuf:        make([]float64, cfg.LatentDim),
		epsBuf:      make([]float64, cfg.LatentDim),
		dzMeanBuf:   make([]float64, cfg.LatentDim),
		dzLogVarBuf: make([]float64, cfg.LatentDim),
		reconGrad:   make([]float64, cfg.OriginalDim),
	}, nil
}

// OriginalDim returns the input dimensionality.
func (v *VAE) OriginalDim() int { return v.originalDim }

// LatentDim returns the latent dimensionality.
func (v *VAE) LatentDim() int { return v.latentDim }

// Beta returns the shared KL warm-up cell.
func (v *VAE) Beta() *Beta { return v.beta }

// Forward runs one stochastic pass: encode, sample with fresh noise,
// decode. The returned reconstruction aliases an internal buffer valid
// until the next Forward.
func (v *VAE) Forward(x []float64) []float64 {
	h := v.hidden.Forward(x)
	v.zMean = v.mean.Forward(h)
	v.zLogVar = v.logVar.Forward(x)

	v.sampler.SampleEps(v.epsBuf)
	Reparameterize(v.zMean, v.zLogVar, v.epsBuf, v.zBuf)

	return v.decoder.Forward(v.zBuf)
}

// Loss evaluates the objective for the last Forward pass:
//
//	original_dim * BCE(x, x_hat) + beta * KL(q(z|x) || N(0,I))
func (v *VAE) Loss(x, recon []float64) float64 {
	reconLoss := float64(v.originalDim) * v.bce.Forward(recon, x)
	return reconLoss + v.beta.Value()*KL(v.zMean, v.zLogVar)
}

// Step runs forward, loss and backward for one sample, leaving fresh
// gradients in every layer. Returns the sample loss.
func (v *VAE) Step(x []float64) float64 {
	recon := v.Forward(x)
	l := v.Loss(x, recon)
	v.backward(x, recon)
	return l
}

// backward propagates the objective gradient through the decoder, the
// sampler and all three encoder branches.
func (v *VAE) backward(x, recon []float64) {
	// Reconstruction term: original_dim scales the per-gene mean BCE
	// into a summed BCE.
	v.bce.BackwardInPlace(recon, x, v.reconGrad)
	floats.Scale(float64(v.originalDim), v.reconGrad)

	dz := v.decoder.Backward(v.reconGrad)

	beta := v.beta.Value()
	for j := 0; j < v.latentDim; j++ {
		zlv := v.zLogVar[j]
		// Through z = z_mean + exp(zlv/2)*eps, plus the closed-form KL:
		// dKL/dz_mean = z_mean, dKL/dzlv = 0.5*(exp(zlv)-1).
		v.dzMeanBuf[j] = dz[j] + beta*v.zMean[j]
		v.dzLogVarBuf[j] = dz[j]*v.epsBuf[j]*0.5*math.Exp(zlv/2) + beta*0.5*(math.Exp(zlv)-1)
	}

	dh := v.mean.Backward(v.dzMeanBuf)
	v.hidden.Backward(dh)
	v.logVar.Backward(v.dzLogVarBuf)
}

// Evaluate runs a stochastic forward pass (fresh sampler noise) and
// returns the objective without computing gradients.
func (v *VAE) Evaluate(x []float64) float64 {
	recon := v.Forward(x)
	return v.Loss(x, recon)
}

// Encode maps x deterministically through the mean branch only. The
// caller owns the returned slice.
func (v *VAE) Encode(x []float64) []float64 {
	h := v.hidden.Forward(x)
	zm := v.mean.Forward(h)
	out := make([]float64, len(zm))
	copy(out, zm)
	return out
}

// SetTraining switches every batch-norm layer between training and
// inference statistics.
func (v *VAE) SetTraining(training bool) {
	v.hidden.SetTraining(training)
	v.mean.SetTraining(training)
	v.logVar.SetTraining(training)
	v.decoder.SetTraining(training)
}

// Layers returns all trainable layers in a fixed order.
func (v *VAE) Layers() []layer.Layer {
	var layers []layer.Layer
	layers = append(layers, v.hidden.Layers()...)
	layers = append(layers, v.mean.Layers()...)
	layers = append(layers, v.logVar.Layers()...)
	layers = append(layers, v.decoder.Layers()...)
	return layers
}

// Encoder returns the deterministic mean pathway (hidden branch plus
// mean head) as a standalone network sharing this model's weights.
func (v *VAE) Encoder() *net.Network {
	var layers []layer.Layer
	layers = append(layers, v.hidden.Layers()...)
	layers = append(layers, v.mean.Layers()...)
	return net.New(layers...)
}

// Decoder returns the generative half as a standalone network sharing
// this model's weights. It accepts any latent-dim vector.
func (v *VAE) Decoder() *net.Network {
	return v.decoder
}

// KL computes the closed-form KL divergence between the encoded
// Gaussian and the standard normal prior:
//
//	-0.5 * sum(1 + z_log_var - z_mean^2 - exp(z_log_var))
func KL(zMean, zLogVar []float64) float64 {
	var sum float64
	for j := range zMean {
		sum += 1 + zLogVar[j] - zMean[j]*zMean[j] - math.Exp(zLogVar[j])
	}
	return -0.5 * sum
}

// Reparameterize computes z = z_mean + exp(z_log_var/2) * eps into dst.
func Reparameterize(zMean, zLogVar, eps, dst []float64) {
	for j := range dst {
		dst[j] = zMean[j] + math.Exp(zLogVar[j]/2)*eps[j]
	}
}
