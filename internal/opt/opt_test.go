package opt

import (
	"math"
	"testing"
)

func TestSGDStep(t *testing.T) {
	s := &SGD{LearningRate: 0.1}

	params := []float64{1.0, 2.0}
	grads := []float64{1.0, -1.0}

	updated := s.Step(params, grads)
	want := []float64{0.9, 2.1}
	for i := range want {
		if math.Abs(updated[i]-want[i]) > 1e-12 {
			t.Errorf("updated[%d] = %v, want %v", i, updated[i], want[i])
		}
	}
	// Step leaves the originals untouched.
	if params[0] != 1.0 || params[1] != 2.0 {
		t.Error("Step modified params")
	}
}

func TestAdamFirstStepSize(t *testing.T) {
	a := NewAdam(0.01)

	// On the first step the bias corrections cancel, so the update is
	// roughly lr * sign(grad).
	params := []float64{0.0}
	a.StepInPlace(params, []float64{5.0})
	if math.Abs(params[0]-(-0.01)) > 1e-6 {
		t.Errorf("first Adam step = %v, want ~ -0.01", params[0])
	}
}

func TestAdamMinimizesQuadratic(t *testing.T) {
	a := NewAdam(0.1)

	// Minimize f(x) = x^2 starting at x = 5.
	x := []float64{5.0}
	for i := 0; i < 500; i++ {
		grad := []float64{2 * x[0]}
		a.StepInPlace(x, grad)
	}
	if math.Abs(x[0]) > 0.01 {
		t.Errorf("x after 500 Adam steps = %v, want ~0", x[0])
	}
}

func TestAdamCloneHasFreshState(t *testing.T) {
	a := NewAdam(0.01)
	a.StepInPlace([]float64{1, 2}, []float64{0.5, 0.5})

	c := a.Clone().(*Adam)
	if c.m != nil || c.v != nil || c.t != 0 {
		t.Error("Clone carried accumulated state")
	}
	if c.LearningRate != a.LearningRate || c.Beta1 != a.Beta1 || c.Beta2 != a.Beta2 {
		t.Error("Clone lost hyperparameters")
	}
}

func TestAdamRejectsMismatchedGroup(t *testing.T) {
	a := NewAdam(0.01)
	a.StepInPlace([]float64{1, 2}, []float64{0.1, 0.1})

	defer func() {
		if recover() == nil {
			t.Error("expected panic when reusing Adam on a different group size")
		}
	}()
	a.StepInPlace([]float64{1, 2, 3}, []float64{0.1, 0.1, 0.1})
}
