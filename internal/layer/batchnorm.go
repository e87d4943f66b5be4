package layer

import (
	"math"

	"github.com/ajlee21/Pseudomonas-latent-spaces/internal/activations"
)

// BatchNorm implements per-feature batch normalization for flat vectors,
// followed by an activation (mirroring the dense-batchnorm-activation
// triplet used throughout the encoder).
//
// The engine trains one sample at a time, so mini-batch statistics are
// not visible inside a single Forward call. Normalization instead uses
// exponentially weighted running statistics, updated per training sample
// and frozen in inference mode. The backward pass treats the statistics
// as constants.
type BatchNorm struct {
	numFeatures int
	eps         float64
	momentum    float64
	act         activations.Activation

	training bool

	// Learnable scale and shift, stored contiguously as gamma + beta
	params []float64
	gamma  []float64
	beta   []float64

	runningMean []float64
	runningVar  []float64

	// Gradient buffers, contiguous gradGamma + gradBeta
	grads        []float64
	gradGammaBuf []float64
	gradBetaBuf  []float64
	gradInBuf    []float64

	xhatBuf   []float64
	preActBuf []float64
	stdBuf    []float64
	outputBuf []float64
}

// NewBatchNorm creates a batch normalization layer over numFeatures
// features with the given activation applied to the normalized output.
func NewBatchNorm(numFeatures int, act activations.Activation) *BatchNorm {
	if numFeatures <= 0 {
		panic("layer: BatchNorm feature count must be positive")
	}

	b := &BatchNorm{
		numFeatures: numFeatures,
		eps:         1e-5,
		momentum:    0.1,
		act:         act,
		training:    true,

		params:      make([]float64, numFeatures*2),
		runningMean: make([]float64, numFeatures),
		runningVar:  make([]float64, numFeatures),
		grads:       make([]float64, numFeatures*2),
		gradInBuf:   make([]float64, numFeatures),
		xhatBuf:     make([]float64, numFeatures),
		preActBuf:   make([]float64, numFeatures),
		stdBuf:      make([]float64, numFeatures),
		outputBuf:   make([]float64, numFeatures),
	}
	b.gamma = b.params[:numFeatures]
	b.beta = b.params[numFeatures:]
	b.gradGammaBuf = b.grads[:numFeatures]
	b.gradBetaBuf = b.grads[numFeatures:]

	for i := 0; i < numFeatures; i++ {
		b.gamma[i] = 1.0
		b.runningVar[i] = 1.0
	}

	return b
}

// SetTraining switches between training mode (running statistics are
// updated from each sample) and inference mode (statistics frozen).
func (b *BatchNorm) SetTraining(training bool) {
	b.training = training
}

// Forward normalizes x with the running statistics and applies
// gamma/beta and the activation.
func (b *BatchNorm) Forward(x []float64) []float64 {
	n := b.numFeatures

	if b.training {
		m := b.momentum
		for f := 0; f < n; f++ {
			delta := x[f] - b.runningMean[f]
			b.runningMean[f] += m * delta
			b.runningVar[f] = (1-m)*b.runningVar[f] + m*delta*delta
		}
	}

	for f := 0; f < n; f++ {
		std := math.Sqrt(b.runningVar[f] + b.eps)
		b.stdBuf[f] = std
		xhat := (x[f] - b.runningMean[f]) / std
		b.xhatBuf[f] = xhat
		pre := b.gamma[f]*xhat + b.beta[f]
		b.preActBuf[f] = pre
		b.outputBuf[f] = b.act.Activate(pre)
	}

	return b.outputBuf[:n]
}

// Backward computes gradients for gamma, beta and the input.
func (b *BatchNorm) Backward(grad []float64) []float64 {
	n := b.numFeatures
	for f := 0; f < n; f++ {
		dz := grad[f] * b.act.Derivative(b.preActBuf[f])
		b.gradGammaBuf[f] = dz * b.xhatBuf[f]
		b.gradBetaBuf[f] = dz
		b.gradInBuf[f] = dz * b.gamma[f] / b.stdBuf[f]
	}
	return b.gradInBuf[:n]
}

// Params returns gamma and beta flattened.
func (b *BatchNorm) Params() []float64 {
	params := make([]float64, 0, len(b.params))
	return append(params, b.params...)
}

// SetParams updates gamma and beta from a flattened slice.
func (b *BatchNorm) SetParams(params []float64) {
	copy(b.params, params)
}

// Gradients returns gamma and beta gradients flattened.
func (b *BatchNorm) Gradients() []float64 {
	grads := make([]float64, 0, len(b.grads))
	return append(grads, b.grads...)
}

// NumFeatures returns the feature count of the layer.
func (b *BatchNorm) NumFeatures() int {
	return b.numFeatures
}

// Activation returns the activation function used by this layer.
func (b *BatchNorm) Activation() activations.Activation {
	return b.act
}

// RunningStats returns copies of the running mean and variance, for
// serialization.
func (b *BatchNorm) RunningStats() (mean, variance []float64) {
	mean = append(mean, b.runningMean...)
	variance = append(variance, b.runningVar...)
	return mean, variance
}

// SetRunningStats restores running mean and variance, for
// deserialization.
func (b *BatchNorm) SetRunningStats(mean, variance []float64) {
	copy(b.runningMean, mean)
	copy(b.runningVar, variance)
}
