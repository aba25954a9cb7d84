package nn

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/act"
	"github.com/kiln-ml/kiln/internal/rng"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// ConvolutionalLayer applies a set of kernels to its input as a valid
// cross-correlation (no padding, not a flipped convolution).
//
// Each kernel owns a (kernel_size × kernel_size × input_depth) weight tensor
// and one scalar bias; output plane z is kernel z's response with the bias
// broadcast across the plane, followed by the elementwise activation.
type ConvolutionalLayer struct {
	baseLayer

	kernels      []convKernel
	kernelDeltas []convKernel
	kernelSize   int
	stride       int
	activationFn act.Kind

	backend tensor.Backend

	// weightViews caches the kernel weight tensors for the backend call.
	weightViews []*tensor.Tensor
}

// NewConvolutionalLayer creates an unbound convolutional layer.
//
// Panics on invalid hyperparameters: non-positive kernel count, kernel size
// or stride, or a stride exceeding the kernel size.
func NewConvolutionalLayer(numberOfKernels, kernelSize, stride int, activationFn act.Kind, backend tensor.Backend) *ConvolutionalLayer {
	if numberOfKernels <= 0 {
		panic(fmt.Sprintf("conv: number of kernels must be greater than 0, got %d", numberOfKernels))
	}
	if kernelSize <= 0 {
		panic(fmt.Sprintf("conv: kernel size must be greater than 0, got %d", kernelSize))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("conv: stride must be greater than 0, got %d", stride))
	}
	if stride > kernelSize {
		panic(fmt.Sprintf("conv: stride %d must not exceed kernel size %d", stride, kernelSize))
	}

	return &ConvolutionalLayer{
		baseLayer:    baseLayer{kind: Convolution},
		kernels:      make([]convKernel, numberOfKernels),
		kernelDeltas: make([]convKernel, numberOfKernels),
		kernelSize:   kernelSize,
		stride:       stride,
		activationFn: activationFn,
		backend:      backend,
	}
}

// KernelSize returns the kernel's spatial extent.
func (l *ConvolutionalLayer) KernelSize() int {
	return l.kernelSize
}

// Stride returns the window step.
func (l *ConvolutionalLayer) Stride() int {
	return l.stride
}

// SetInputFormat binds the input format, sizes every kernel for the input
// depth and derives the output format. The kernel extent and stride must
// tile the input exactly: (input_dim - kernel_size) / stride + 1 must be a
// whole number for both spatial axes.
func (l *ConvolutionalLayer) SetInputFormat(format tensor.Format) {
	l.bindInputFormat(format)

	if format.Width < l.kernelSize || format.Height < l.kernelSize ||
		(format.Width-l.kernelSize)%l.stride != 0 ||
		(format.Height-l.kernelSize)%l.stride != 0 {
		panic(fmt.Sprintf("conv: input format %s is not compatible with kernel size %d and stride %d",
			format, l.kernelSize, l.stride))
	}

	outputWidth := (format.Width-l.kernelSize)/l.stride + 1
	outputHeight := (format.Height-l.kernelSize)/l.stride + 1

	l.weightViews = make([]*tensor.Tensor, len(l.kernels))
	for i := range l.kernels {
		l.kernels[i].bindDepth(l.kernelSize, format.Depth)
		l.kernelDeltas[i].bindDepth(l.kernelSize, format.Depth)
		l.weightViews[i] = l.kernels[i].weights
	}

	l.bindOutputFormat(tensor.NewFormat(outputWidth, outputHeight, len(l.kernels)))
}

// Forward computes every kernel's valid cross-correlation over the input,
// adds each kernel's bias across its output plane and applies the
// activation function to the whole activation tensor.
func (l *ConvolutionalLayer) Forward(input *tensor.Tensor) {
	l.checkInput(input)

	l.backend.ValidCrossCorrelation(input, l.weightViews, l.activations, l.stride)

	out := l.activations.Format()
	planeSize := out.Width * out.Height
	for z, kernel := range l.kernels {
		for i := 0; i < planeSize; i++ {
			l.activations.AddAtFlat(z*planeSize+i, kernel.bias)
		}
	}

	l.backend.ApplyActivation(l.activations, l.activationFn)
}

// Backward consumes the error tensor plane by plane. For every output cell
// the pre-activation is recovered through the activation's inverse; the
// bias delta accumulates error*derivative over the kernel's plane, each
// weight delta accumulates error*derivative*input over every position the
// weight participated in, and the upstream contribution
// error*derivative*weight is added into passingError at every input
// position the weight touched.
func (l *ConvolutionalLayer) Backward(input *tensor.Tensor, passingError *tensor.Tensor) {
	l.checkInput(input)
	if passingError != nil && !passingError.Format().Equal(l.inputFormat) {
		panic(fmt.Sprintf("conv: passing error format %s does not match input format %s",
			passingError.Format(), l.inputFormat))
	}

	out := l.activations.Format()
	kf := l.kernels[0].weights.Format()

	for z := range l.kernels {
		kernel := &l.kernels[z]
		delta := &l.kernelDeltas[z]

		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				errValue := l.errors.At(x, y, z)
				l.errors.SetAt(x, y, z, 0)

				activation := l.activations.At(x, y, z)
				unactivated := act.Inverse(l.activationFn, activation)
				derivative := act.Derivative(l.activationFn, unactivated)
				grad := errValue * derivative

				delta.bias += grad

				for kz := 0; kz < kf.Depth; kz++ {
					for ky := 0; ky < kf.Height; ky++ {
						for kx := 0; kx < kf.Width; kx++ {
							inValue := input.At(x*l.stride+kx, y*l.stride+ky, kz)
							delta.weights.AddAt(kx, ky, kz, grad*inValue)

							if passingError != nil {
								passingError.AddAt(x*l.stride+kx, y*l.stride+ky, kz,
									grad*kernel.weights.At(kx, ky, kz))
							}
						}
					}
				}
			}
		}
	}
}

// ApplyDeltas averages the accumulated kernel deltas over the example
// count, scales by the learning rate, subtracts them from the kernels and
// zeroes the accumulators.
func (l *ConvolutionalLayer) ApplyDeltas(trainingDataCount int, learningRate float32) {
	l.requireBound("apply deltas")
	count := float32(trainingDataCount)

	for i := range l.kernels {
		kernel := &l.kernels[i]
		delta := &l.kernelDeltas[i]

		kernel.bias -= (delta.bias / count) * learningRate
		delta.bias = 0

		weights := kernel.weights.Data()
		deltas := delta.weights.Data()
		for j := range weights {
			weights[j] -= (deltas[j] / count) * learningRate
			deltas[j] = 0
		}
	}
}

// Mutate picks one kernel uniformly and perturbs either one of its weights
// or its bias, chosen proportionally to how many of each the kernel owns.
func (l *ConvolutionalLayer) Mutate(rang float32) {
	l.requireBound("mutate")

	kernelIdx := rng.Idx(len(l.kernels))
	weightCount := l.kernels[0].weights.ItemCount()

	if rng.BiasedCoinToss(float32(weightCount), 1) {
		l.kernels[kernelIdx].weights.Mutate(rang)
	} else {
		l.kernels[kernelIdx].bias += rng.FloatIncl(-rang, rang)
	}
}

// ApplyNoise perturbs every weight and bias of every kernel independently
// by a uniform(-range, range) value.
func (l *ConvolutionalLayer) ApplyNoise(rang float32) {
	l.requireBound("apply noise")

	for i := range l.kernels {
		l.kernels[i].weights.ApplyNoise(rang)
		l.kernels[i].bias += rng.FloatIncl(-rang, rang)
	}
}

// SetAllParameters assigns the value to every kernel weight.
func (l *ConvolutionalLayer) SetAllParameters(value float32) {
	l.requireBound("set all parameters")
	for i := range l.kernels {
		l.kernels[i].weights.SetAll(value)
	}
}

// EnableGPUMode fails: the convolutional layer has no device implementation.
func (l *ConvolutionalLayer) EnableGPUMode(tensor.Backend) error {
	return fmt.Errorf("conv: layer has no device implementation")
}
