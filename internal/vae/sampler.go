package vae

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Sampler draws the reparameterization noise. Every call produces a
// fresh draw; the sampler keeps no state beyond its seeded source.
type Sampler struct {
	normal distuv.Normal
}

// NewSampler creates a sampler with eps ~ N(0, std^2) over src.
func NewSampler(std float64, src rand.Source) *Sampler {
	return &Sampler{
		normal: distuv.Normal{Mu: 0, Sigma: std, Src: src},
	}
}

// SampleEps fills dst with independent normal draws.
func (s *Sampler) SampleEps(dst []float64) {
	for j := range dst {
		dst[j] = s.normal.Rand()
	}
}

// Sample draws a latent vector from the encoded distribution:
// z = z_mean + exp(z_log_var/2) * eps. The caller owns the result.
func (s *Sampler) Sample(zMean, zLogVar []float64) []float64 {
	eps := make([]float64, len(zMean))
	s.SampleEps(eps)
	z := make([]float64, len(zMean))
	Reparameterize(zMean, zLogVar, eps, z)
	return z
}
