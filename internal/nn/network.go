package nn

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/act"
	"github.com/kiln-ml/kiln/internal/data"
	"github.com/kiln-ml/kiln/internal/rng"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// TrainConfig drives Network.Learn.
type TrainConfig struct {
	BatchSize    int
	Epochs       int
	LearningRate float32
}

// Network owns an ordered sequence of layers, wires each layer's input
// format to the previous layer's output format, and tracks which layers
// carry learnable parameters.
type Network struct {
	layers []Layer

	// parameterLayerIndices lists the layers that receive Mutate,
	// ApplyNoise and ApplyDeltas calls. Pooling layers are excluded.
	parameterLayerIndices []int

	inputFormat     tensor.Format
	inputFormatSet  bool
	outputFormat    tensor.Format
	outputFormatSet bool

	// output is a non-owning view of the last layer's activations.
	output *tensor.Tensor

	backend tensor.Backend
}

// NewNetwork creates an empty network computing on the given backend.
func NewNetwork(backend tensor.Backend) *Network {
	return &Network{backend: backend}
}

// SetInputFormat declares the network's input format. May be called exactly
// once, before any layer is added.
func (n *Network) SetInputFormat(format tensor.Format) {
	if n.inputFormatSet {
		panic("network: cannot set input format twice")
	}
	if err := format.Validate(); err != nil {
		panic(fmt.Sprintf("network: input format: %v", err))
	}
	n.inputFormat = format
	n.inputFormatSet = true
}

// SetOutputFormat declares the network's output format. May be called
// exactly once; the output layer binds its activations to this format.
func (n *Network) SetOutputFormat(format tensor.Format) {
	if n.outputFormatSet {
		panic("network: cannot set output format twice")
	}
	if err := format.Validate(); err != nil {
		panic(fmt.Sprintf("network: output format: %v", err))
	}
	n.outputFormat = format
	n.outputFormatSet = true
}

// InputFormat returns the declared input format.
func (n *Network) InputFormat() tensor.Format {
	return n.inputFormat
}

// OutputFormat returns the declared output format.
func (n *Network) OutputFormat() tensor.Format {
	return n.outputFormat
}

// Layers returns the owned layer sequence.
func (n *Network) Layers() []Layer {
	return n.layers
}

// Output returns the canonical output view: the last layer's activations.
// Nil until an output layer has been added.
func (n *Network) Output() *tensor.Tensor {
	return n.output
}

// lastLayer returns the most recently added layer, or nil.
func (n *Network) lastLayer() Layer {
	if len(n.layers) == 0 {
		return nil
	}
	return n.layers[len(n.layers)-1]
}

// addLayer binds the layer's input format to the previous layer's output
// format (or the network's input format for the first layer), records it in
// the parameter-layer index list unless it is a pooling layer, and appends
// it to the owned sequence.
func (n *Network) addLayer(l Layer) {
	if l.Kind() != Pooling {
		n.parameterLayerIndices = append(n.parameterLayerIndices, len(n.layers))
	}

	if len(n.layers) == 0 {
		if !n.inputFormatSet {
			panic("network: input format must be set before adding layers")
		}
		l.SetInputFormat(n.inputFormat)
	} else {
		l.SetInputFormat(n.lastLayer().OutputFormat())
	}

	n.layers = append(n.layers, l)
}

// AddConvolutionalLayer appends a convolutional layer.
func (n *Network) AddConvolutionalLayer(numberOfKernels, kernelSize, stride int, activationFn act.Kind) {
	n.addLayer(NewConvolutionalLayer(numberOfKernels, kernelSize, stride, activationFn, n.backend))
}

// AddFullyConnectedLayer appends a fully connected layer with the given
// neuron count.
func (n *Network) AddFullyConnectedLayer(numberOfNeurons int, activationFn act.Kind) {
	n.addLayer(NewFullyConnectedLayer(numberOfNeurons, activationFn, n.backend))
}

// AddLastFullyConnectedLayer appends a fully connected layer shaped by the
// declared output format and binds the network's output view to it.
func (n *Network) AddLastFullyConnectedLayer(activationFn act.Kind) {
	if !n.outputFormatSet {
		panic("network: output format must be set before adding the output layer")
	}
	n.addLayer(NewFullyConnectedLayerWithFormat(n.outputFormat, activationFn, n.backend))
	n.output = n.lastLayer().Activations()
}

// AddPoolingLayer appends a parameter-free pooling layer.
func (n *Network) AddPoolingLayer(filterSize, stride int, poolingFn PoolingType) {
	n.addLayer(NewPoolingLayer(filterSize, stride, poolingFn))
}

// ForwardPropagation binds the input into the first layer and propagates
// layer by layer in insertion order.
func (n *Network) ForwardPropagation(input *tensor.Tensor) {
	if input == nil {
		panic("network: input is nil")
	}
	if !n.inputFormatSet || !input.Format().Equal(n.inputFormat) {
		panic(fmt.Sprintf("network: input format is not set or does not match: %s", input.Format()))
	}
	if len(n.layers) == 0 {
		panic("network: no layers have been added yet")
	}

	current := input
	for _, l := range n.layers {
		l.Forward(current)
		current = l.Activations()
	}
}

// CalculateCost computes the sum-of-squared-error between the most recent
// output and a same-format expected output. Requires a forward pass to have
// produced an output.
func (n *Network) CalculateCost(expectedOutput *tensor.Tensor) float32 {
	if n.output == nil {
		panic("network: no forward pass has produced an output")
	}
	if !tensor.EqualFormat(n.output, expectedOutput) {
		panic(fmt.Sprintf("network: output format %s does not match expected %s",
			n.output.Format(), expectedOutput.Format()))
	}

	cost := float32(0)
	for i := 0; i < expectedOutput.ItemCount(); i++ {
		diff := n.output.AtFlat(i) - expectedOutput.AtFlat(i)
		cost += diff * diff
	}
	return cost
}

// seedOutputError writes the output-layer error rule into the last layer's
// error buffer: the difference between prediction and label.
func (n *Network) seedOutputError(label *tensor.Tensor) {
	errors := n.lastLayer().ErrorTensor()
	for i := 0; i < errors.ItemCount(); i++ {
		errors.SetAtFlat(i, n.output.AtFlat(i)-label.AtFlat(i))
	}
}

// LearnOnce runs one training step on a single example: forward pass, error
// seeding on the output layer, and a backward pass over layers in reverse
// order. When applyChanges is set the deltas are applied immediately for
// online learning; otherwise they keep accumulating for a later batched
// ApplyDeltas.
func (n *Network) LearnOnce(input, label *tensor.Tensor, learningRate float32, applyChanges bool) {
	if !n.outputFormatSet || !label.Format().Equal(n.outputFormat) {
		panic(fmt.Sprintf("network: the expected output format %s does not match %s",
			label.Format(), n.outputFormat))
	}

	n.ForwardPropagation(input)
	n.seedOutputError(label)

	for i := len(n.layers) - 1; i >= 0; i-- {
		layerInput := input
		var passingError *tensor.Tensor
		if i > 0 {
			layerInput = n.layers[i-1].Activations()
			passingError = n.layers[i-1].ErrorTensor()
		}
		n.layers[i].Backward(layerInput, passingError)
	}

	if applyChanges {
		n.ApplyDeltas(1, learningRate)
	}
}

// ApplyDeltas averages and applies the accumulated deltas of every
// parameter layer, then resets the accumulators.
func (n *Network) ApplyDeltas(trainingDataCount int, learningRate float32) {
	for _, idx := range n.parameterLayerIndices {
		n.layers[idx].ApplyDeltas(trainingDataCount, learningRate)
	}
}

// Learn drives epochs over the corpus with a batch handler: every batch
// accumulates gradients example by example and applies them once with the
// batch's true length; the corpus reshuffles between epochs.
func (n *Network) Learn(ds *data.DataSpace, cfg TrainConfig) {
	if cfg.Epochs <= 0 {
		panic(fmt.Sprintf("network: epochs must be greater than 0, got %d", cfg.Epochs))
	}

	batch := data.NewBatchHandler(ds, cfg.BatchSize)
	observedData := tensor.MustNew(ds.DataFormat())
	observedLabel := tensor.MustNew(ds.LabelFormat())

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		for positions := batch.Next(); positions != nil; positions = batch.Next() {
			for _, pos := range positions {
				ds.ObserveDataAt(observedData, pos)
				ds.ObserveLabelAt(observedLabel, pos)
				n.LearnOnce(observedData, observedLabel, cfg.LearningRate, false)
			}
			n.ApplyDeltas(len(positions), cfg.LearningRate)
		}
		batch.NextEpoch()
	}
}

// Mutate delegates to one uniformly chosen parameter layer, supporting
// non-gradient evolutionary search.
func (n *Network) Mutate(rang float32) {
	if len(n.parameterLayerIndices) == 0 {
		panic("network: cannot mutate, no parameter layers have been added yet")
	}
	idx := n.parameterLayerIndices[rng.Idx(len(n.parameterLayerIndices))]
	n.layers[idx].Mutate(rang)
}

// ApplyNoise perturbs every parameter of every parameter layer.
func (n *Network) ApplyNoise(rang float32) {
	for _, idx := range n.parameterLayerIndices {
		n.layers[idx].ApplyNoise(rang)
	}
}

// SetAllParameters assigns the value to every parameter layer's parameters.
func (n *Network) SetAllParameters(value float32) {
	for _, idx := range n.parameterLayerIndices {
		n.layers[idx].SetAllParameters(value)
	}
}

// EnableGPUMode migrates every parameter layer's storage to the device
// backend. Fails on layer kinds without a device implementation.
func (n *Network) EnableGPUMode(backend tensor.Backend) error {
	for _, idx := range n.parameterLayerIndices {
		if err := n.layers[idx].EnableGPUMode(backend); err != nil {
			return err
		}
	}
	n.backend = backend
	return nil
}
