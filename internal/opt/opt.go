// Package opt provides optimization algorithms.
package opt

import "math"

// Optimizer updates network parameters based on gradients.
//
// Stateful optimizers keep per-parameter state sized to the first
// parameter slice they see, so one instance serves exactly one parameter
// group (one layer). Clone produces a fresh instance with the same
// hyperparameters for the next group.
type Optimizer interface {
	// Step computes updated parameters and returns a new slice.
	Step(params, gradients []float64) []float64

	// StepInPlace updates params in-place to avoid allocations.
	StepInPlace(params, gradients []float64)

	// Clone returns an optimizer with the same hyperparameters and no
	// accumulated state.
	Clone() Optimizer
}

// SGD (Stochastic Gradient Descent) optimizer.
type SGD struct {
	LearningRate float64
}

// Step computes updated parameters: params - lr * gradients
func (s *SGD) Step(params, gradients []float64) []float64 {
	result := make([]float64, len(params))
	copy(result, params)
	s.StepInPlace(result, gradients)
	return result
}

// StepInPlace updates params in-place: params = params - lr * gradients
func (s *SGD) StepInPlace(params, gradients []float64) {
	for i := range params {
		params[i] -= s.LearningRate * gradients[i]
	}
}

// Clone returns a copy; SGD carries no per-parameter state.
func (s *SGD) Clone() Optimizer {
	return &SGD{LearningRate: s.LearningRate}
}

// Adam optimizer with bias-corrected first and second moment estimates.
type Adam struct {
	LearningRate float64
	Beta1        float64 // Exponential decay rate for first moment
	Beta2        float64 // Exponential decay rate for second moment
	Epsilon      float64 // Small constant for numerical stability

	m []float64 // First moment estimate
	v []float64 // Second moment estimate
	t int       // Timestep for bias correction
}

// NewAdam creates a new Adam optimizer with default decay rates.
func NewAdam(learningRate float64) *Adam {
	return &Adam{
		LearningRate: learningRate,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
	}
}

// Step computes updated parameters and returns a new slice.
func (a *Adam) Step(params, gradients []float64) []float64 {
	result := make([]float64, len(params))
	copy(result, params)
	a.StepInPlace(result, gradients)
	return result
}

// StepInPlace updates params in-place using Adam.
func (a *Adam) StepInPlace(params, gradients []float64) {
	if len(params) != len(gradients) {
		panic("Adam: params and gradients must have same length")
	}
	if a.m == nil {
		a.m = make([]float64, len(params))
		a.v = make([]float64, len(params))
	}
	if len(a.m) != len(params) {
		panic("Adam: optimizer state bound to a different parameter group")
	}

	a.t++
	correction1 := 1 - math.Pow(a.Beta1, float64(a.t))
	correction2 := 1 - math.Pow(a.Beta2, float64(a.t))

	for i := range params {
		g := gradients[i]
		a.m[i] = a.Beta1*a.m[i] + (1-a.Beta1)*g
		a.v[i] = a.Beta2*a.v[i] + (1-a.Beta2)*g*g

		mHat := a.m[i] / correction1
		vHat := a.v[i] / correction2
		params[i] -= a.LearningRate * mHat / (math.Sqrt(vHat) + a.Epsilon)
	}
}

// Clone returns a fresh Adam with the same hyperparameters.
func (a *Adam) Clone() Optimizer {
	return &Adam{
		LearningRate: a.LearningRate,
		Beta1:        a.Beta1,
		Beta2:        a.Beta2,
		Epsilon:      a.Epsilon,
	}
}
