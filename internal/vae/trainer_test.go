package vae

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"

	"github.com/ajlee21/Pseudomonas-latent-spaces/internal/opt"
)

func testRows(n, dim int, seed uint64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]float64, n)
	for i := range rows {
		row := make([]float64, dim)
		for j := range row {
			row[j] = rng.Float64()
		}
		rows[i] = row
	}
	return rows
}

func TestWarmUpRamp(t *testing.T) {
	beta := &Beta{}
	w := &WarmUp{Beta: beta, Kappa: 0.01}

	for epoch := 0; epoch < 5; epoch++ {
		w.OnEpochEnd(epoch, 0, 0)
	}
	if got := beta.Value(); math.Abs(got-0.05) > 1e-12 {
		t.Errorf("beta after 5 epochs = %v, want 0.05", got)
	}
}

func TestWarmUpOvershootsThenFreezes(t *testing.T) {
	beta := &Beta{}
	w := &WarmUp{Beta: beta, Kappa: 0.3}

	// 0.3, 0.6, 0.9, then 0.9 <= 1 so one more step lands at 1.2.
	for epoch := 0; epoch < 10; epoch++ {
		w.OnEpochEnd(epoch, 0, 0)
	}
	if got := beta.Value(); math.Abs(got-1.2) > 1e-12 {
		t.Errorf("beta after warm-up = %v, want 1.2", got)
	}
}

func TestFitHistory(t *testing.T) {
	beta := &Beta{}
	v := testModel(t, beta)

	trainer := NewTrainer(v, opt.NewAdam(0.001), 4, 3, rand.New(rand.NewSource(1234)))
	trainer.AddCallback(&WarmUp{Beta: beta, Kappa: 0.01})

	train := testRows(12, v.OriginalDim(), 5)
	test := testRows(3, v.OriginalDim(), 6)

	hist := trainer.Fit(train, test)

	if len(hist.TrainLoss) != 3 || len(hist.ValLoss) != 3 {
		t.Fatalf("history lengths = %d/%d, want 3/3", len(hist.TrainLoss), len(hist.ValLoss))
	}
	for i := range hist.TrainLoss {
		if math.IsNaN(hist.TrainLoss[i]) || math.IsInf(hist.TrainLoss[i], 0) {
			t.Errorf("train loss %d = %v, want finite", i, hist.TrainLoss[i])
		}
		if math.IsNaN(hist.ValLoss[i]) || math.IsInf(hist.ValLoss[i], 0) {
			t.Errorf("val loss %d = %v, want finite", i, hist.ValLoss[i])
		}
	}
	if got := beta.Value(); math.Abs(got-0.03) > 1e-12 {
		t.Errorf("beta after 3 epochs = %v, want 0.03", got)
	}
}

func TestFitEmptyTestSet(t *testing.T) {
	v := testModel(t, &Beta{})

	trainer := NewTrainer(v, opt.NewAdam(0.001), 4, 2, rand.New(rand.NewSource(1)))
	hist := trainer.Fit(testRows(8, v.OriginalDim(), 3), nil)

	for i, vl := range hist.ValLoss {
		if !math.IsNaN(vl) {
			t.Errorf("val loss %d = %v, want NaN with no test rows", i, vl)
		}
	}
}

func TestFitUpdatesParameters(t *testing.T) {
	v := testModel(t, &Beta{})
	before := make([][]float64, 0)
	for _, l := range v.Layers() {
		before = append(before, append([]float64(nil), l.Params()...))
	}

	trainer := NewTrainer(v, opt.NewAdam(0.01), 4, 2, rand.New(rand.NewSource(9)))
	trainer.Fit(testRows(8, v.OriginalDim(), 4), nil)

	changed := false
	for i, l := range v.Layers() {
		after := l.Params()
		for j := range after {
			if after[j] != before[i][j] {
				changed = true
			}
		}
	}
	if !changed {
		t.Error("no parameter changed after training")
	}
}

func TestCallbackOrderAndEpochs(t *testing.T) {
	v := testModel(t, &Beta{})

	var epochs []int
	trainer := NewTrainer(v, &opt.SGD{LearningRate: 0.001}, 4, 4, rand.New(rand.NewSource(2)))
	trainer.AddCallback(callbackFunc(func(epoch int, trainLoss, valLoss float64) {
		epochs = append(epochs, epoch)
	}))

	trainer.Fit(testRows(8, v.OriginalDim(), 7), nil)

	if len(epochs) != 4 {
		t.Fatalf("callback fired %d times, want 4", len(epochs))
	}
	for i, e := range epochs {
		if e != i {
			t.Errorf("callback epoch %d = %d", i, e)
		}
	}
}

type callbackFunc func(epoch int, trainLoss, valLoss float64)

func (f callbackFunc) OnEpochEnd(epoch int, trainLoss, valLoss float64) {
	f(epoch, trainLoss, valLoss)
}
