package vae

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ajlee21/Pseudomonas-latent-spaces/internal/data"
)

// HyperParams are the run settings appended to the stats table as
// constant columns.
type HyperParams struct {
	LearningRate float64
	BatchSize    int
	Epochs       int
	Kappa        float64
}

// WriteEncoded embeds every row of m through the mean branch
// (deterministic, no sampling) and writes the tab-separated table:
// index column labeled sample_id, latent columns named 1..latent_dim.
func WriteEncoded(path string, v *VAE, m *data.Matrix) error {
	v.SetTraining(false)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create encoded table: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	w.Comma = '\t'

	header := make([]string, 0, v.LatentDim()+1)
	header = append(header, "sample_id")
	for j := 1; j <= v.LatentDim(); j++ {
		header = append(header, strconv.Itoa(j))
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write encoded header: %w", err)
	}

	record := make([]string, v.LatentDim()+1)
	for i := 0; i < m.NumSamples(); i++ {
		z := v.Encode(m.Row(i))
		record[0] = m.SampleIDs[i]
		for j, val := range z {
			record[j+1] = strconv.FormatFloat(val, 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write encoded row %d: %w", i, err)
		}
	}

	w.Flush()
	return w.Error()
}

// WriteStats writes the per-epoch history as a tab-separated table with
// the run's hyperparameters as constant columns. No index column.
func WriteStats(path string, hist *History, hp HyperParams) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create stats table: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	w.Comma = '\t'

	header := []string{"loss", "val_loss", "learning_rate", "batch_size", "epochs", "kappa"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write stats header: %w", err)
	}

	for i := range hist.TrainLoss {
		record := []string{
			strconv.FormatFloat(hist.TrainLoss[i], 'g', -1, 64),
			strconv.FormatFloat(hist.ValLoss[i], 'g', -1, 64),
			strconv.FormatFloat(hp.LearningRate, 'g', -1, 64),
			strconv.Itoa(hp.BatchSize),
			strconv.Itoa(hp.Epochs),
			strconv.FormatFloat(hp.Kappa, 'g', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write stats row %d: %w", i, err)
		}
	}

	w.Flush()
	return w.Error()
}

// PlotHistory writes the loss curves (train and validation vs epoch)
// as an image.
func PlotHistory(path string, hist *History) error {
	p := plot.New()
	p.X.Label.Text = "Epochs"
	p.Y.Label.Text = "VAE Loss"

	trainLine, err := plotter.NewLine(lossXYs(hist.TrainLoss))
	if err != nil {
		return fmt.Errorf("failed to build train loss line: %w", err)
	}
	p.Add(trainLine)
	p.Legend.Add("loss", trainLine)

	valLine, err := plotter.NewLine(lossXYs(hist.ValLoss))
	if err != nil {
		return fmt.Errorf("failed to build val loss line: %w", err)
	}
	valLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(valLine)
	p.Legend.Add("val_loss", valLine)

	p.Add(plotter.NewGrid())

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save history plot: %w", err)
	}
	return nil
}

func lossXYs(losses []float64) plotter.XYs {
	xys := make(plotter.XYs, len(losses))
	for i, l := range losses {
		xys[i].X = float64(i)
		xys[i].Y = l
	}
	return xys
}
