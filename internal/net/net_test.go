package net

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/exp/rand"

	"github.com/ajlee21/Pseudomonas-latent-spaces/internal/activations"
	"github.com/ajlee21/Pseudomonas-latent-spaces/internal/layer"
)

func testNetwork() *Network {
	src := rand.NewSource(42)
	return New(
		layer.NewDense(4, 3, activations.Linear{}, src),
		layer.NewBatchNorm(3, activations.ReLU{}),
		layer.NewDense(3, 2, activations.Sigmoid{}, src),
	)
}

func TestNetworkForwardShapes(t *testing.T) {
	n := testNetwork()

	out := n.Forward([]float64{0.1, 0.2, 0.3, 0.4})
	if len(out) != 2 {
		t.Fatalf("output length = %d, want 2", len(out))
	}
	for i, v := range out {
		if v < 0 || v > 1 {
			t.Errorf("sigmoid output %d = %v, out of [0,1]", i, v)
		}
	}
}

func TestNetworkBackwardShapes(t *testing.T) {
	n := testNetwork()

	_ = n.Forward([]float64{0.1, 0.2, 0.3, 0.4})
	gradIn := n.Backward([]float64{1, 1})
	if len(gradIn) != 4 {
		t.Errorf("input gradient length = %d, want 4", len(gradIn))
	}
	if got, want := len(n.Gradients()), len(n.Params()); got != want {
		t.Errorf("gradients length = %d, want %d", got, want)
	}
}

func TestNetworkSetParamsRoundtrip(t *testing.T) {
	n1 := testNetwork()
	n2 := New(
		layer.NewDense(4, 3, activations.Linear{}, rand.NewSource(7)),
		layer.NewBatchNorm(3, activations.ReLU{}),
		layer.NewDense(3, 2, activations.Sigmoid{}, rand.NewSource(7)),
	)

	n2.SetParams(n1.Params())

	n1.SetTraining(false)
	n2.SetTraining(false)
	x := []float64{0.5, -0.2, 0.1, 0.9}
	o1 := append([]float64(nil), n1.Forward(x)...)
	o2 := n2.Forward(x)
	for i := range o1 {
		if o1[i] != o2[i] {
			t.Errorf("output %d = %v, want %v", i, o2[i], o1[i])
		}
	}
}

func TestNetworkEncodeDecodeRoundtrip(t *testing.T) {
	n := testNetwork()
	n.SetTraining(true)
	// Give the batch norm non-default running stats before freezing.
	for i := 0; i < 5; i++ {
		_ = n.Forward([]float64{0.1, 0.7, -0.3, 0.4})
	}
	n.SetTraining(false)

	var buf bytes.Buffer
	if err := n.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	loaded, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got, want := len(loaded.Layers()), len(n.Layers()); got != want {
		t.Fatalf("loaded %d layers, want %d", got, want)
	}

	x := []float64{0.3, -0.1, 0.8, 0.2}
	want := append([]float64(nil), n.Forward(x)...)
	got := loaded.Forward(x)
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("output %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestNetworkSaveLoad(t *testing.T) {
	n := testNetwork()
	n.SetTraining(false)

	path := filepath.Join(t.TempDir(), "model.gob")
	if err := n.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("saved model missing: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	x := []float64{0.5, 0.5, 0.5, 0.5}
	want := append([]float64(nil), n.Forward(x)...)
	got := loaded.Forward(x)
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("output %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLayerConfigUnknownType(t *testing.T) {
	cfg := LayerConfig{Type: "Conv2D", Activation: "ReLU"}
	if _, err := cfg.CreateLayer(); err == nil {
		t.Error("expected error for unsupported layer type")
	}
}
