package vae

import (
	"log"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"

	"github.com/ajlee21/Pseudomonas-latent-spaces/internal/layer"
	"github.com/ajlee21/Pseudomonas-latent-spaces/internal/opt"
)

// Callback receives the per-epoch losses after validation.
type Callback interface {
	OnEpochEnd(epoch int, trainLoss, valLoss float64)
}

// Logger logs epoch losses to the standard logger.
type Logger struct {
	Interval int
}

// OnEpochEnd prints every Interval-th epoch.
func (c Logger) OnEpochEnd(epoch int, trainLoss, valLoss float64) {
	if c.Interval > 0 && epoch%c.Interval == 0 {
		log.Printf("epoch %d: loss = %.6f, val_loss = %.6f", epoch, trainLoss, valLoss)
	}
}

// History is the per-epoch loss record of one training run.
type History struct {
	TrainLoss []float64
	ValLoss   []float64
}

// Trainer runs mini-batch gradient descent over the full model graph.
// Strictly sequential: one goroutine touches the model, the beta cell
// and the optimizer state.
type Trainer struct {
	model     *VAE
	layers    []layer.Layer
	opts      []opt.Optimizer
	accum     [][]float64
	batchSize int
	epochs    int
	rng       *rand.Rand
	callbacks []Callback
}

// NewTrainer prepares a trainer. The optimizer is a prototype; each
// layer gets its own clone so per-parameter state stays separate. The
// rng drives the per-epoch row shuffle.
func NewTrainer(model *VAE, optimizer opt.Optimizer, batchSize, epochs int, rng *rand.Rand) *Trainer {
	layers := model.Layers()
	opts := make([]opt.Optimizer, len(layers))
	accum := make([][]float64, len(layers))
	for i, l := range layers {
		opts[i] = optimizer.Clone()
		accum[i] = make([]float64, len(l.Params()))
	}

	if batchSize <= 0 {
		batchSize = 1
	}

	return &Trainer{
		model:     model,
		layers:    layers,
		opts:      opts,
		accum:     accum,
		batchSize: batchSize,
		epochs:    epochs,
		rng:       rng,
	}
}

// AddCallback registers a callback; callbacks fire in registration
// order after each epoch's validation pass.
func (t *Trainer) AddCallback(c Callback) {
	t.callbacks = append(t.callbacks, c)
}

// Fit trains for the configured number of epochs, shuffling the train
// rows each epoch and evaluating the objective on the test rows (with
// fresh sampler noise) at every epoch end. Returns the loss history.
func (t *Trainer) Fit(train, test [][]float64) *History {
	hist := &History{
		TrainLoss: make([]float64, 0, t.epochs),
		ValLoss:   make([]float64, 0, t.epochs),
	}

	order := make([]int, len(train))
	for i := range order {
		order[i] = i
	}

	for epoch := 0; epoch < t.epochs; epoch++ {
		t.model.SetTraining(true)
		t.rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})

		var epochLoss float64
		for start := 0; start < len(order); start += t.batchSize {
			end := start + t.batchSize
			if end > len(order) {
				end = len(order)
			}
			epochLoss += t.trainBatch(train, order[start:end])
		}
		trainLoss := math.NaN()
		if len(train) > 0 {
			trainLoss = epochLoss / float64(len(train))
		}

		valLoss := t.evaluate(test)

		hist.TrainLoss = append(hist.TrainLoss, trainLoss)
		hist.ValLoss = append(hist.ValLoss, valLoss)

		for _, c := range t.callbacks {
			c.OnEpochEnd(epoch, trainLoss, valLoss)
		}
	}

	t.model.SetTraining(false)
	return hist
}

// trainBatch accumulates per-sample gradients over the batch, averages
// them and applies one optimizer step per layer. Layer gradient
// buffers are overwritten by each backward pass, so the accumulation
// happens here, outside the layers. Returns the summed batch loss.
func (t *Trainer) trainBatch(train [][]float64, batch []int) float64 {
	for i := range t.accum {
		zero(t.accum[i])
	}

	var total float64
	for _, idx := range batch {
		total += t.model.Step(train[idx])
		for i, l := range t.layers {
			floats.Add(t.accum[i], l.Gradients())
		}
	}

	inv := 1.0 / float64(len(batch))
	for i, l := range t.layers {
		floats.Scale(inv, t.accum[i])
		params := l.Params()
		t.opts[i].StepInPlace(params, t.accum[i])
		l.SetParams(params)
	}

	return total
}

// evaluate computes the mean objective on the held-out rows with the
// model in inference mode; sampler noise stays fresh.
func (t *Trainer) evaluate(test [][]float64) float64 {
	if len(test) == 0 {
		return math.NaN()
	}

	t.model.SetTraining(false)
	defer t.model.SetTraining(true)

	var total float64
	for _, x := range test {
		total += t.model.Evaluate(x)
	}
	return total / float64(len(test))
}

func zero(s []float64) {
	for i := range s {
		s[i] = 0
	}
}
