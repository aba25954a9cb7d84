package nn

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/act"
	"github.com/kiln-ml/kiln/internal/rng"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// FullyConnectedLayer computes activation = f(W·input + b) with a dense
// weight matrix addressed by (input index, output-neuron index).
//
// The backward pass does not cache pre-activation values; it recovers them
// from the activations through the activation's inverse function, which is
// why every activation kind used here must supply both an inverse and a
// derivative.
type FullyConnectedLayer struct {
	baseLayer

	weights *tensor.Tensor // (input_count × output_count × 1)
	biases  *tensor.Tensor // activation format

	weightDeltas *tensor.Tensor
	biasDeltas   *tensor.Tensor

	activationFn act.Kind

	backend tensor.Backend
}

// NewFullyConnectedLayer creates an unbound layer with a column of neurons.
func NewFullyConnectedLayer(numberOfNeurons int, activationFn act.Kind, backend tensor.Backend) *FullyConnectedLayer {
	if numberOfNeurons <= 0 {
		panic(fmt.Sprintf("fc: number of neurons must be greater than 0, got %d", numberOfNeurons))
	}
	return newFullyConnectedLayer(tensor.NewFormat(1, numberOfNeurons, 1), activationFn, backend)
}

// NewFullyConnectedLayerWithFormat creates an unbound layer whose
// activations carry an explicit format. Used for the network's output
// layer, whose format is the network's declared output format.
func NewFullyConnectedLayerWithFormat(activationFormat tensor.Format, activationFn act.Kind, backend tensor.Backend) *FullyConnectedLayer {
	return newFullyConnectedLayer(activationFormat, activationFn, backend)
}

func newFullyConnectedLayer(activationFormat tensor.Format, activationFn act.Kind, backend tensor.Backend) *FullyConnectedLayer {
	if err := activationFormat.Validate(); err != nil {
		panic(fmt.Sprintf("fc: %v", err))
	}

	l := &FullyConnectedLayer{
		baseLayer:    baseLayer{kind: FullyConnected},
		activationFn: activationFn,
		backend:      backend,
	}
	l.bindOutputFormat(activationFormat)
	l.biases = tensor.MustNew(activationFormat)
	l.biasDeltas = tensor.MustNew(activationFormat)
	return l
}

// SetInputFormat binds the input format and sizes the dense weight matrix
// as (input_count × output_count × 1) with a matching delta accumulator.
func (l *FullyConnectedLayer) SetInputFormat(format tensor.Format) {
	l.bindInputFormat(format)

	weightFormat := tensor.NewFormat(format.Count(), l.activations.ItemCount(), 1)
	l.weights = tensor.MustNew(weightFormat)
	l.weightDeltas = tensor.MustNew(weightFormat)
}

// WeightAt returns the weight connecting input index i to output neuron n.
func (l *FullyConnectedLayer) WeightAt(i, n int) float32 {
	return l.weights.At(i, n, 0)
}

// SetWeightAt stores the weight connecting input index i to output neuron n.
func (l *FullyConnectedLayer) SetWeightAt(i, n int, value float32) {
	l.weights.SetAt(i, n, 0, value)
}

// Weights returns the dense weight matrix.
func (l *FullyConnectedLayer) Weights() *tensor.Tensor {
	return l.weights
}

// Biases returns the bias tensor.
func (l *FullyConnectedLayer) Biases() *tensor.Tensor {
	return l.biases
}

// Forward computes activation = f(W·input + b).
func (l *FullyConnectedLayer) Forward(input *tensor.Tensor) {
	l.checkInput(input)

	l.backend.DotProductFlat(l.weights, input, l.activations)
	l.backend.AddFlat(l.activations, l.biases, l.activations)
	l.backend.ApplyActivation(l.activations, l.activationFn)
}

// Backward walks every output neuron: it reads and immediately clears the
// neuron's accumulated error, recovers the pre-activation through the
// activation's inverse, and accumulates derivative*error into the bias
// delta, derivative*error*input into each weight delta, and
// derivative*error*weight into passingError (when this is not the first
// layer).
func (l *FullyConnectedLayer) Backward(input *tensor.Tensor, passingError *tensor.Tensor) {
	l.checkInput(input)
	if !tensor.EqualFormat(l.activations, l.errors) {
		panic(fmt.Sprintf("fc: activations %s and error %s have different format",
			l.activations.Format(), l.errors.Format()))
	}
	if passingError != nil && passingError.ItemCount() != input.ItemCount() {
		panic(fmt.Sprintf("fc: passing error format %s does not match input format %s",
			passingError.Format(), input.Format()))
	}

	inputCount := input.ItemCount()
	for n := 0; n < l.activations.ItemCount(); n++ {
		errValue := l.errors.AtFlat(n)
		l.errors.SetAtFlat(n, 0)

		activation := l.activations.AtFlat(n)
		unactivated := act.Inverse(l.activationFn, activation)
		derivative := act.Derivative(l.activationFn, unactivated)

		l.biasDeltas.AddAtFlat(n, errValue*derivative)

		for i := 0; i < inputCount; i++ {
			previousActivation := input.AtFlat(i)
			weight := l.weights.At(i, n, 0)

			l.weightDeltas.AddAt(i, n, 0, errValue*derivative*previousActivation)

			if passingError != nil {
				passingError.AddAtFlat(i, errValue*derivative*weight)
			}
		}
	}
}

// ApplyDeltas averages the accumulated deltas over the example count,
// scales by the learning rate, subtracts them from the parameters and
// zeroes the accumulators.
func (l *FullyConnectedLayer) ApplyDeltas(trainingDataCount int, learningRate float32) {
	l.requireBound("apply deltas")
	count := float32(trainingDataCount)

	for i := 0; i < l.biases.ItemCount(); i++ {
		avgDelta := l.biasDeltas.AtFlat(i) / count
		l.biases.SetAtFlat(i, l.biases.AtFlat(i)-avgDelta*learningRate)
		l.biasDeltas.SetAtFlat(i, 0)
	}

	for i := 0; i < l.weights.ItemCount(); i++ {
		avgDelta := l.weightDeltas.AtFlat(i) / count
		l.weights.SetAtFlat(i, l.weights.AtFlat(i)-avgDelta*learningRate)
		l.weightDeltas.SetAtFlat(i, 0)
	}
}

// Mutate perturbs one weight or one bias, chosen proportionally to how many
// of each the layer owns.
func (l *FullyConnectedLayer) Mutate(rang float32) {
	l.requireBound("mutate")

	if rng.BiasedCoinToss(float32(l.weights.ItemCount()), float32(l.biases.ItemCount())) {
		l.weights.Mutate(rang)
	} else {
		l.biases.Mutate(rang)
	}
}

// ApplyNoise perturbs every weight and bias independently.
func (l *FullyConnectedLayer) ApplyNoise(rang float32) {
	l.requireBound("apply noise")
	l.weights.ApplyNoise(rang)
	l.biases.ApplyNoise(rang)
}

// SetAllParameters assigns the value to every weight and bias.
func (l *FullyConnectedLayer) SetAllParameters(value float32) {
	l.requireBound("set all parameters")
	l.weights.SetAll(value)
	l.biases.SetAll(value)
}

// EnableGPUMode migrates the parameter and delta tensors to the device
// backend. The backend must implement storage migration.
func (l *FullyConnectedLayer) EnableGPUMode(backend tensor.Backend) error {
	l.requireBound("enable gpu mode")

	device, ok := backend.(tensor.DeviceBackend)
	if !ok {
		return fmt.Errorf("fc: backend %s cannot migrate storage", backend.Name())
	}
	for _, t := range []*tensor.Tensor{l.weights, l.biases, l.weightDeltas, l.biasDeltas, l.activations, l.errors} {
		if err := device.EnableGPUMode(t); err != nil {
			return err
		}
	}
	l.backend = backend
	return nil
}
