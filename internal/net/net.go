// Package net provides core neural network types.
package net

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"github.com/ajlee21/Pseudomonas-latent-spaces/internal/activations"
	"github.com/ajlee21/Pseudomonas-latent-spaces/internal/layer"
)

// Network is a stack of layers that can be forwarded and backwarded.
type Network struct {
	layers []layer.Layer
}

// New creates a new network from the given layers.
func New(layers ...layer.Layer) *Network {
	return &Network{layers: layers}
}

// Forward performs a forward pass through all layers.
func (n *Network) Forward(x []float64) []float64 {
	curr := x
	for i := range n.layers {
		curr = n.layers[i].Forward(curr)
	}
	return curr
}

// Backward performs a backward pass through all layers.
func (n *Network) Backward(grad []float64) []float64 {
	curr := grad
	for i := len(n.layers) - 1; i >= 0; i-- {
		curr = n.layers[i].Backward(curr)
	}
	return curr
}

// Params returns all network parameters flattened (copy).
func (n *Network) Params() []float64 {
	var params []float64
	for _, l := range n.layers {
		params = append(params, l.Params()...)
	}
	return params
}

// SetParams distributes a flattened parameter slice over the layers.
func (n *Network) SetParams(params []float64) {
	offset := 0
	for _, l := range n.layers {
		count := len(l.Params())
		l.SetParams(params[offset : offset+count])
		offset += count
	}
}

// Gradients returns all network gradients flattened (copy).
func (n *Network) Gradients() []float64 {
	var gradients []float64
	for _, l := range n.layers {
		gradients = append(gradients, l.Gradients()...)
	}
	return gradients
}

// Layers returns the network's layers slice.
func (n *Network) Layers() []layer.Layer {
	return n.layers
}

// SetTraining propagates the training/inference mode to layers that
// distinguish the two (batch normalization).
func (n *Network) SetTraining(training bool) {
	for _, l := range n.layers {
		if bn, ok := l.(*layer.BatchNorm); ok {
			bn.SetTraining(training)
		}
	}
}

// Save saves the network to a file using gob encoding.
func (n *Network) Save(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	return n.Encode(file)
}

// Load loads a network from a file.
func Load(filename string) (*Network, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Decode(file)
}

// Encode writes the network to an io.Writer using gob encoding.
func (n *Network) Encode(w io.Writer) error {
	encoder := gob.NewEncoder(w)

	if err := encoder.Encode(int32(len(n.layers))); err != nil {
		return fmt.Errorf("failed to encode layer count: %w", err)
	}

	for i, l := range n.layers {
		cfg, err := ExtractLayerConfig(l)
		if err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
		if err := encoder.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode layer %d: %w", i, err)
		}
	}

	return nil
}

// Decode reads a network from an io.Reader.
func Decode(r io.Reader) (*Network, error) {
	decoder := gob.NewDecoder(r)

	var numLayers int32
	if err := decoder.Decode(&numLayers); err != nil {
		return nil, fmt.Errorf("failed to read layer count: %w", err)
	}

	layers := make([]layer.Layer, 0, numLayers)
	for i := 0; i < int(numLayers); i++ {
		var cfg LayerConfig
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read layer %d: %w", i, err)
		}
		l, err := cfg.CreateLayer()
		if err != nil {
			return nil, fmt.Errorf("failed to create layer %d: %w", i, err)
		}
		layers = append(layers, l)
	}

	return New(layers...), nil
}

// LayerConfig holds the configuration needed to reconstruct a layer.
type LayerConfig struct {
	Type       string
	InSize     int
	OutSize    int
	Activation string
	Params     []float64

	// Batch normalization running statistics
	RunningMean []float64
	RunningVar  []float64
}

// ExtractLayerConfig extracts the configuration from a layer.
func ExtractLayerConfig(l layer.Layer) (LayerConfig, error) {
	switch v := l.(type) {
	case *layer.Dense:
		return LayerConfig{
			Type:       "Dense",
			InSize:     v.InSize(),
			OutSize:    v.OutSize(),
			Activation: activationName(v.Activation()),
			Params:     v.Params(),
		}, nil
	case *layer.BatchNorm:
		mean, variance := v.RunningStats()
		return LayerConfig{
			Type:        "BatchNorm",
			InSize:      v.NumFeatures(),
			OutSize:     v.NumFeatures(),
			Activation:  activationName(v.Activation()),
			Params:      v.Params(),
			RunningMean: mean,
			RunningVar:  variance,
		}, nil
	default:
		return LayerConfig{}, fmt.Errorf("unsupported layer type %T", l)
	}
}

// CreateLayer creates a new layer from the configuration.
// Loaded layers start in inference mode; weights come from the config,
// so no initializer source is consumed.
func (c *LayerConfig) CreateLayer() (layer.Layer, error) {
	act, err := activationByName(c.Activation)
	if err != nil {
		return nil, err
	}

	switch c.Type {
	case "Dense":
		d := layer.NewDense(c.InSize, c.OutSize, act, nil)
		d.SetParams(c.Params)
		return d, nil
	case "BatchNorm":
		b := layer.NewBatchNorm(c.InSize, act)
		b.SetParams(c.Params)
		b.SetRunningStats(c.RunningMean, c.RunningVar)
		b.SetTraining(false)
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported layer type: %s", c.Type)
	}
}

func activationName(act activations.Activation) string {
	switch act.(type) {
	case activations.ReLU:
		return "ReLU"
	case activations.Sigmoid:
		return "Sigmoid"
	case activations.Tanh:
		return "Tanh"
	case activations.Linear:
		return "Linear"
	default:
		return "Linear"
	}
}

func activationByName(name string) (activations.Activation, error) {
	switch name {
	case "ReLU":
		return activations.ReLU{}, nil
	case "Sigmoid":
		return activations.Sigmoid{}, nil
	case "Tanh":
		return activations.Tanh{}, nil
	case "Linear":
		return activations.Linear{}, nil
	default:
		return nil, fmt.Errorf("unknown activation: %s", name)
	}
}
