package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiln-ml/kiln/internal/act"
	"github.com/kiln-ml/kiln/internal/backend/cpu"
	"github.com/kiln-ml/kiln/internal/rng"
	"github.com/kiln-ml/kiln/internal/tensor"
)

func sigmoid(x float32) float32 {
	return float32(1.0 / (1.0 + math.Exp(float64(-x))))
}

// newBoundFC builds a 2-input, 2-neuron layer with hand-set weights:
//
//	w(0,0)=0.1  w(1,0)=0.2
//	w(0,1)=0.3  w(1,1)=0.4
func newBoundFC(t *testing.T, activationFn act.Kind) *FullyConnectedLayer {
	t.Helper()
	l := NewFullyConnectedLayer(2, activationFn, cpu.New())
	l.SetInputFormat(tensor.NewFormat(1, 2, 1))

	l.SetWeightAt(0, 0, 0.1)
	l.SetWeightAt(1, 0, 0.2)
	l.SetWeightAt(0, 1, 0.3)
	l.SetWeightAt(1, 1, 0.4)
	return l
}

func TestFullyConnectedConstructorPanics(t *testing.T) {
	assert.Panics(t, func() { NewFullyConnectedLayer(0, act.Sigmoid, cpu.New()) })
	assert.Panics(t, func() { NewFullyConnectedLayer(-3, act.Sigmoid, cpu.New()) })
}

func TestFullyConnectedBindsOnce(t *testing.T) {
	l := NewFullyConnectedLayer(2, act.Sigmoid, cpu.New())
	l.SetInputFormat(tensor.NewFormat(1, 2, 1))
	assert.Panics(t, func() { l.SetInputFormat(tensor.NewFormat(1, 2, 1)) })
}

func TestFullyConnectedOutputFormat(t *testing.T) {
	l := NewFullyConnectedLayer(5, act.Sigmoid, cpu.New())
	l.SetInputFormat(tensor.NewFormat(3, 3, 2))

	assert.Equal(t, tensor.NewFormat(1, 5, 1), l.OutputFormat())
	assert.Equal(t, tensor.NewFormat(18, 5, 1), l.Weights().Format())
}

func TestFullyConnectedForward(t *testing.T) {
	l := newBoundFC(t, act.Identity)
	input, err := tensor.FromValues(tensor.NewFormat(1, 2, 1), []float32{1, 2})
	require.NoError(t, err)

	l.Forward(input)

	// out[n] = sum_i w(i,n)*in[i], biases zero.
	assert.InDelta(t, 0.5, l.Activations().AtFlat(0), 1e-6)
	assert.InDelta(t, 1.1, l.Activations().AtFlat(1), 1e-6)
}

func TestFullyConnectedForwardSigmoid(t *testing.T) {
	l := newBoundFC(t, act.Sigmoid)
	l.Biases().SetAtFlat(0, 0.5)

	input, err := tensor.FromValues(tensor.NewFormat(1, 2, 1), []float32{1, 2})
	require.NoError(t, err)
	l.Forward(input)

	assert.InDelta(t, float64(sigmoid(1.0)), float64(l.Activations().AtFlat(0)), 1e-6)
	assert.InDelta(t, float64(sigmoid(1.1)), float64(l.Activations().AtFlat(1)), 1e-6)
}

func TestFullyConnectedForwardRejectsWrongInput(t *testing.T) {
	l := newBoundFC(t, act.Identity)
	wrong := tensor.MustNew(tensor.NewFormat(1, 3, 1))
	assert.Panics(t, func() { l.Forward(wrong) })
	assert.Panics(t, func() { l.Forward(nil) })
}

// TestFullyConnectedBackward checks the whole backward rule by hand with the
// identity activation (derivative 1, inverse trivial).
func TestFullyConnectedBackward(t *testing.T) {
	l := newBoundFC(t, act.Identity)
	input, err := tensor.FromValues(tensor.NewFormat(1, 2, 1), []float32{1, 2})
	require.NoError(t, err)
	l.Forward(input)

	l.ErrorTensor().SetAtFlat(0, 1)
	l.ErrorTensor().SetAtFlat(1, -1)

	passing := tensor.MustNew(tensor.NewFormat(1, 2, 1))
	l.Backward(input, passing)

	// passing[i] = sum_n err[n]*w(i,n).
	assert.InDelta(t, 0.1-0.3, passing.AtFlat(0), 1e-6)
	assert.InDelta(t, 0.2-0.4, passing.AtFlat(1), 1e-6)

	// Backward consumes the error tensor.
	assert.Equal(t, float32(0), l.ErrorTensor().AtFlat(0))
	assert.Equal(t, float32(0), l.ErrorTensor().AtFlat(1))

	// ApplyDeltas(1, lr=1) subtracts err[n]*in[i] from each weight and
	// err[n] from each bias.
	l.ApplyDeltas(1, 1)
	assert.InDelta(t, 0.1-1*1, l.WeightAt(0, 0), 1e-6)
	assert.InDelta(t, 0.2-1*2, l.WeightAt(1, 0), 1e-6)
	assert.InDelta(t, 0.3+1*1, l.WeightAt(0, 1), 1e-6)
	assert.InDelta(t, 0.4+1*2, l.WeightAt(1, 1), 1e-6)
	assert.InDelta(t, -1, l.Biases().AtFlat(0), 1e-6)
	assert.InDelta(t, 1, l.Biases().AtFlat(1), 1e-6)
}

// TestFullyConnectedPassingErrorIsAdditive checks that upstream
// contributions accumulate instead of overwriting, so several downstream
// consumers can feed the same producer.
func TestFullyConnectedPassingErrorIsAdditive(t *testing.T) {
	l := newBoundFC(t, act.Identity)
	input, err := tensor.FromValues(tensor.NewFormat(1, 2, 1), []float32{1, 2})
	require.NoError(t, err)
	l.Forward(input)

	passing := tensor.MustNew(tensor.NewFormat(1, 2, 1))

	l.ErrorTensor().SetAtFlat(0, 1)
	l.Backward(input, passing)
	first := passing.AtFlat(0)

	l.ErrorTensor().SetAtFlat(0, 1)
	l.Backward(input, passing)

	assert.InDelta(t, float64(2*first), float64(passing.AtFlat(0)), 1e-6)
}

// TestFullyConnectedDeltaAveraging checks that accumulating the same example
// n times and averaging over n lands on the same parameters as a single
// accumulation averaged over 1.
func TestFullyConnectedDeltaAveraging(t *testing.T) {
	input, err := tensor.FromValues(tensor.NewFormat(1, 2, 1), []float32{1, 2})
	require.NoError(t, err)

	batched := newBoundFC(t, act.Identity)
	single := newBoundFC(t, act.Identity)

	const n = 3
	for i := 0; i < n; i++ {
		batched.Forward(input)
		batched.ErrorTensor().SetAtFlat(0, 1)
		batched.ErrorTensor().SetAtFlat(1, -1)
		batched.Backward(input, nil)
	}
	batched.ApplyDeltas(n, 0.5)

	single.Forward(input)
	single.ErrorTensor().SetAtFlat(0, 1)
	single.ErrorTensor().SetAtFlat(1, -1)
	single.Backward(input, nil)
	single.ApplyDeltas(1, 0.5)

	assert.True(t, tensor.AreEqual(batched.Weights(), single.Weights()))
	assert.True(t, tensor.AreEqual(batched.Biases(), single.Biases()))
}

func TestFullyConnectedMutateChangesOneParameter(t *testing.T) {
	rng.Seed(7)
	l := newBoundFC(t, act.Identity)

	before := tensor.MustNew(l.Weights().Format())
	before.CopyFrom(l.Weights())
	biasBefore := tensor.MustNew(l.Biases().Format())
	biasBefore.CopyFrom(l.Biases())

	l.Mutate(1)

	changed := 0
	for i := 0; i < l.Weights().ItemCount(); i++ {
		if l.Weights().AtFlat(i) != before.AtFlat(i) {
			changed++
		}
	}
	for i := 0; i < l.Biases().ItemCount(); i++ {
		if l.Biases().AtFlat(i) != biasBefore.AtFlat(i) {
			changed++
		}
	}
	assert.Equal(t, 1, changed)
}

func TestFullyConnectedSetAllParameters(t *testing.T) {
	l := newBoundFC(t, act.Identity)
	l.SetAllParameters(0.25)

	for i := 0; i < l.Weights().ItemCount(); i++ {
		assert.Equal(t, float32(0.25), l.Weights().AtFlat(i))
	}
	for i := 0; i < l.Biases().ItemCount(); i++ {
		assert.Equal(t, float32(0.25), l.Biases().AtFlat(i))
	}
}

func TestFullyConnectedEnableGPUModeRequiresDeviceBackend(t *testing.T) {
	l := newBoundFC(t, act.Identity)
	err := l.EnableGPUMode(cpu.New())
	require.Error(t, err)
}
