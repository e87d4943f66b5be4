package vae

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/exp/rand"

	"github.com/ajlee21/Pseudomonas-latent-spaces/internal/data"
)

func TestWriteStats(t *testing.T) {
	hist := &History{
		TrainLoss: []float64{2.5, 2.0, 1.5},
		ValLoss:   []float64{2.6, 2.1, 1.6},
	}
	hp := HyperParams{LearningRate: 0.001, BatchSize: 50, Epochs: 3, Kappa: 0.01}

	path := filepath.Join(t.TempDir(), "stats.tsv")
	if err := WriteStats(path, hist, hp); err != nil {
		t.Fatalf("WriteStats: %v", err)
	}

	records := readTSV(t, path)
	if len(records) != 4 {
		t.Fatalf("stats table has %d rows, want header + 3", len(records))
	}
	wantHeader := []string{"loss", "val_loss", "learning_rate", "batch_size", "epochs", "kappa"}
	for i, col := range wantHeader {
		if records[0][i] != col {
			t.Errorf("header %d = %q, want %q", i, records[0][i], col)
		}
	}
	if records[1][0] != "2.5" || records[1][1] != "2.6" {
		t.Errorf("first row = %v", records[1])
	}
	if records[2][2] != "0.001" || records[2][3] != "50" {
		t.Errorf("hyperparameter columns = %v", records[2])
	}
}

func TestWriteEncoded(t *testing.T) {
	v := testModel(t, &Beta{})

	ids := []string{"SampleA", "SampleB", "SampleC"}
	genes := make([]string, v.OriginalDim())
	rows := make([][]float64, len(ids))
	rng := rand.New(rand.NewSource(11))
	for j := range genes {
		genes[j] = "G" + string(rune('A'+j))
	}
	for i := range rows {
		row := make([]float64, v.OriginalDim())
		for j := range row {
			row[j] = rng.Float64()
		}
		rows[i] = row
	}
	m, err := data.NewMatrix(ids, genes, rows)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "encoded.txt")
	if err := WriteEncoded(path, v, m); err != nil {
		t.Fatalf("WriteEncoded: %v", err)
	}

	records := readTSV(t, path)
	if len(records) != 4 {
		t.Fatalf("encoded table has %d rows, want header + 3", len(records))
	}
	if records[0][0] != "sample_id" || records[0][1] != "1" || records[0][2] != "2" {
		t.Errorf("header = %v", records[0])
	}
	for i, id := range ids {
		if records[i+1][0] != id {
			t.Errorf("row %d id = %q, want %q", i, records[i+1][0], id)
		}
		if len(records[i+1]) != v.LatentDim()+1 {
			t.Errorf("row %d has %d columns, want %d", i, len(records[i+1]), v.LatentDim()+1)
		}
	}
}

func TestPlotHistory(t *testing.T) {
	hist := &History{
		TrainLoss: []float64{3, 2, 1.5, 1.2},
		ValLoss:   []float64{3.1, 2.2, 1.7, 1.4},
	}

	path := filepath.Join(t.TempDir(), "hist.png")
	if err := PlotHistory(path, hist); err != nil {
		t.Fatalf("PlotHistory: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("plot file missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("plot file is empty")
	}
}

func readTSV(t *testing.T, path string) [][]string {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	r := csv.NewReader(strings.NewReader(string(raw)))
	r.Comma = '\t'
	records, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return records
}
