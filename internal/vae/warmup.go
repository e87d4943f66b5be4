package vae

// Beta is the KL warm-up weight: a single mutable cell shared between
// the loss (which reads it) and the warm-up scheduler (which advances
// it). It is owned by the trainer, not ambient state.
type Beta struct {
	v float64
}

// Value returns the current weight.
func (b *Beta) Value() float64 {
	return b.v
}

// Set overwrites the weight.
func (b *Beta) Set(v float64) {
	b.v = v
}

// WarmUp ramps beta from 0 towards 1 in kappa-sized steps, once per
// completed epoch. The increment is gated on beta <= 1 before adding,
// so beta can overshoot 1 by up to one kappa step; that boundary
// behavior is deliberate and must not be clamped.
type WarmUp struct {
	Beta  *Beta
	Kappa float64
}

// OnEpochEnd advances beta by one step while the gate holds.
func (w *WarmUp) OnEpochEnd(epoch int, trainLoss, valLoss float64) {
	if w.Beta.Value() <= 1 {
		w.Beta.Set(w.Beta.Value() + w.Kappa)
	}
}
