package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiln-ml/kiln/internal/act"
	"github.com/kiln-ml/kiln/internal/backend/cpu"
	"github.com/kiln-ml/kiln/internal/data"
	"github.com/kiln-ml/kiln/internal/rng"
	"github.com/kiln-ml/kiln/internal/tensor"
)

func TestNetworkFormatProtocol(t *testing.T) {
	n := NewNetwork(cpu.New())

	// Layers cannot be added before the input format is declared.
	assert.Panics(t, func() { n.AddFullyConnectedLayer(2, act.Sigmoid) })

	n.SetInputFormat(tensor.NewFormat(2, 2, 1))
	assert.Panics(t, func() { n.SetInputFormat(tensor.NewFormat(2, 2, 1)) })

	// The output layer requires a declared output format.
	assert.Panics(t, func() { n.AddLastFullyConnectedLayer(act.Sigmoid) })

	n.SetOutputFormat(tensor.NewFormat(1, 2, 1))
	assert.Panics(t, func() { n.SetOutputFormat(tensor.NewFormat(1, 2, 1)) })
}

func TestNetworkRejectsInvalidFormats(t *testing.T) {
	n := NewNetwork(cpu.New())
	assert.Panics(t, func() { n.SetInputFormat(tensor.NewFormat(0, 1, 1)) })
	assert.Panics(t, func() { n.SetOutputFormat(tensor.NewFormat(1, -1, 1)) })
}

// TestNetworkLayerChaining checks that each added layer binds its input to
// the previous layer's output geometry.
func TestNetworkLayerChaining(t *testing.T) {
	n := NewNetwork(cpu.New())
	n.SetInputFormat(tensor.NewFormat(6, 6, 1))
	n.SetOutputFormat(tensor.NewFormat(1, 3, 1))

	n.AddConvolutionalLayer(4, 3, 1, act.ReLU) // 6x6x1 -> 4x4x4
	n.AddPoolingLayer(2, 2, MaxPooling)        // 4x4x4 -> 2x2x4
	n.AddFullyConnectedLayer(5, act.Sigmoid)   // 16 -> 5
	n.AddLastFullyConnectedLayer(act.Sigmoid)  // 5 -> 3

	layers := n.Layers()
	require.Len(t, layers, 4)
	assert.Equal(t, tensor.NewFormat(4, 4, 4), layers[0].OutputFormat())
	assert.Equal(t, tensor.NewFormat(2, 2, 4), layers[1].OutputFormat())
	assert.Equal(t, tensor.NewFormat(1, 5, 1), layers[2].OutputFormat())
	assert.Equal(t, tensor.NewFormat(1, 3, 1), layers[3].OutputFormat())

	assert.Same(t, layers[3].Activations(), n.Output())
}

func TestNetworkForwardPropagationChecks(t *testing.T) {
	n := NewNetwork(cpu.New())
	n.SetInputFormat(tensor.NewFormat(2, 2, 1))

	input := tensor.MustNew(tensor.NewFormat(2, 2, 1))
	assert.Panics(t, func() { n.ForwardPropagation(input) }) // no layers

	n.AddFullyConnectedLayer(2, act.Sigmoid)
	assert.Panics(t, func() { n.ForwardPropagation(nil) })

	wrong := tensor.MustNew(tensor.NewFormat(1, 4, 1))
	assert.Panics(t, func() { n.ForwardPropagation(wrong) })

	n.ForwardPropagation(input)
}

func TestNetworkCalculateCost(t *testing.T) {
	n := NewNetwork(cpu.New())
	n.SetInputFormat(tensor.NewFormat(1, 2, 1))
	n.SetOutputFormat(tensor.NewFormat(1, 2, 1))
	n.AddLastFullyConnectedLayer(act.Identity)

	input, err := tensor.FromValues(tensor.NewFormat(1, 2, 1), []float32{1, 1})
	require.NoError(t, err)
	n.ForwardPropagation(input) // zero weights: output is [0, 0]

	expected, err := tensor.FromValues(tensor.NewFormat(1, 2, 1), []float32{1, -2})
	require.NoError(t, err)

	assert.InDelta(t, 5.0, n.CalculateCost(expected), 1e-6)

	wrong := tensor.MustNew(tensor.NewFormat(2, 1, 1))
	assert.Panics(t, func() { n.CalculateCost(wrong) })
}

func TestNetworkLearnOnceChecksLabelFormat(t *testing.T) {
	n := NewNetwork(cpu.New())
	n.SetInputFormat(tensor.NewFormat(1, 2, 1))
	n.SetOutputFormat(tensor.NewFormat(1, 2, 1))
	n.AddLastFullyConnectedLayer(act.Sigmoid)

	input := tensor.MustNew(tensor.NewFormat(1, 2, 1))
	badLabel := tensor.MustNew(tensor.NewFormat(1, 3, 1))
	assert.Panics(t, func() { n.LearnOnce(input, badLabel, 0.1, true) })
}

// TestNetworkLearnOnceReducesCost fits a single example with repeated online
// steps and checks the cost goes down.
func TestNetworkLearnOnceReducesCost(t *testing.T) {
	rng.Seed(3)

	n := NewNetwork(cpu.New())
	n.SetInputFormat(tensor.NewFormat(1, 2, 1))
	n.SetOutputFormat(tensor.NewFormat(1, 2, 1))
	n.AddFullyConnectedLayer(3, act.Sigmoid)
	n.AddLastFullyConnectedLayer(act.Sigmoid)
	n.ApplyNoise(1)

	input, err := tensor.FromValues(tensor.NewFormat(1, 2, 1), []float32{0.25, 0.75})
	require.NoError(t, err)
	label, err := tensor.FromValues(tensor.NewFormat(1, 2, 1), []float32{1, 0})
	require.NoError(t, err)

	n.ForwardPropagation(input)
	costBefore := n.CalculateCost(label)

	for i := 0; i < 500; i++ {
		n.LearnOnce(input, label, 0.5, true)
	}

	n.ForwardPropagation(input)
	costAfter := n.CalculateCost(label)

	assert.Less(t, costAfter, costBefore)
	assert.Less(t, costAfter, float32(0.1))
}

// TestNetworkLearnBatches runs the full batched training loop over a small
// labeled corpus and checks the average cost drops.
func TestNetworkLearnBatches(t *testing.T) {
	rng.Seed(4)

	dataFormat := tensor.NewFormat(1, 2, 1)
	labelFormat := tensor.NewFormat(1, 2, 1)

	// Two linearly separable classes.
	examples := make([]*tensor.Tensor, 0, 4)
	labels := make([]*tensor.Tensor, 0, 4)
	for _, item := range []struct {
		in    []float32
		label []float32
	}{
		{[]float32{0.9, 0.1}, []float32{1, 0}},
		{[]float32{0.8, 0.2}, []float32{1, 0}},
		{[]float32{0.1, 0.9}, []float32{0, 1}},
		{[]float32{0.2, 0.8}, []float32{0, 1}},
	} {
		m, err := tensor.FromValues(dataFormat, item.in)
		require.NoError(t, err)
		l, err := tensor.FromValues(labelFormat, item.label)
		require.NoError(t, err)
		examples = append(examples, m)
		labels = append(labels, l)
	}

	ds, err := data.New(dataFormat, labelFormat, examples, labels)
	require.NoError(t, err)

	n := NewNetwork(cpu.New())
	n.SetInputFormat(dataFormat)
	n.SetOutputFormat(labelFormat)
	n.AddFullyConnectedLayer(4, act.Sigmoid)
	n.AddLastFullyConnectedLayer(act.Sigmoid)
	n.ApplyNoise(1)

	before := n.Test(ds)
	n.Learn(ds, TrainConfig{BatchSize: 2, Epochs: 1000, LearningRate: 1})
	after := n.Test(ds)

	assert.Less(t, after.AvgCost, before.AvgCost)
	assert.Equal(t, 4, after.DataCount)
	assert.Equal(t, float32(1), after.Accuracy)
}

func TestNetworkLearnRejectsBadEpochs(t *testing.T) {
	ds := newTestDataSpace(t)
	n := newTestNetwork()

	assert.Panics(t, func() { n.Learn(ds, TrainConfig{BatchSize: 1, Epochs: 0, LearningRate: 0.1}) })
}

func TestNetworkTestRequiresLabels(t *testing.T) {
	m := tensor.MustNew(tensor.NewFormat(1, 2, 1))
	ds, err := data.NewDataOnly(tensor.NewFormat(1, 2, 1), []*tensor.Tensor{m})
	require.NoError(t, err)

	n := newTestNetwork()
	assert.Panics(t, func() { n.Test(ds) })
}

func TestNetworkMutateRequiresParameterLayers(t *testing.T) {
	n := NewNetwork(cpu.New())
	assert.Panics(t, func() { n.Mutate(1) })
}

// TestNetworkMutateSkipsPoolingLayers checks that pooling layers never
// receive parameter operations even when they dominate the layer sequence.
func TestNetworkMutateSkipsPoolingLayers(t *testing.T) {
	rng.Seed(5)

	n := NewNetwork(cpu.New())
	n.SetInputFormat(tensor.NewFormat(4, 4, 1))
	n.SetOutputFormat(tensor.NewFormat(1, 2, 1))
	n.AddPoolingLayer(2, 2, MaxPooling)
	n.AddLastFullyConnectedLayer(act.Sigmoid)

	fc := n.Layers()[1].(*FullyConnectedLayer)
	before := tensor.MustNew(fc.Weights().Format())
	before.CopyFrom(fc.Weights())
	biasBefore := tensor.MustNew(fc.Biases().Format())
	biasBefore.CopyFrom(fc.Biases())

	// Every mutation must land on the sole parameter layer.
	for i := 0; i < 10; i++ {
		n.Mutate(1)
	}

	changed := !tensor.AreEqual(before, fc.Weights()) || !tensor.AreEqual(biasBefore, fc.Biases())
	assert.True(t, changed)
}

func TestNetworkSetAllParameters(t *testing.T) {
	n := newTestNetwork()
	n.SetAllParameters(0.5)

	fc := n.Layers()[0].(*FullyConnectedLayer)
	assert.Equal(t, float32(0.5), fc.WeightAt(0, 0))
	assert.Equal(t, float32(0.5), fc.Biases().AtFlat(0))
}

func TestNetworkEnableGPUModeFailsOnCPUBackend(t *testing.T) {
	n := newTestNetwork()
	require.Error(t, n.EnableGPUMode(cpu.New()))
}

func TestTestResultString(t *testing.T) {
	r := TestResult{DataCount: 10, AvgCost: 0.5, Accuracy: 0.9}
	s := r.String()
	assert.Contains(t, s, "Data count: 10")
	assert.Contains(t, s, "Avg cost: 0.5")
	assert.Contains(t, s, "Accuracy: 90.00%")
}

// newTestNetwork builds a minimal 2-in 2-out single layer network.
func newTestNetwork() *Network {
	n := NewNetwork(cpu.New())
	n.SetInputFormat(tensor.NewFormat(1, 2, 1))
	n.SetOutputFormat(tensor.NewFormat(1, 2, 1))
	n.AddLastFullyConnectedLayer(act.Sigmoid)
	return n
}

// newTestDataSpace builds a one-item labeled corpus matching newTestNetwork.
func newTestDataSpace(t *testing.T) *data.DataSpace {
	t.Helper()
	m := tensor.MustNew(tensor.NewFormat(1, 2, 1))
	l := tensor.MustNew(tensor.NewFormat(1, 2, 1))
	ds, err := data.New(tensor.NewFormat(1, 2, 1), tensor.NewFormat(1, 2, 1),
		[]*tensor.Tensor{m}, []*tensor.Tensor{l})
	require.NoError(t, err)
	return ds
}
