// Package nn implements the layer protocol and the network orchestrator.
//
// A layer moves through four states: unbound (constructed), bound
// (SetInputFormat called exactly once, activation and error tensors sized),
// propagated (activations current after Forward) and error-set (error tensor
// populated by downstream Backward contributions). Forward may be repeated
// freely; Backward consumes and clears the error tensor, accumulates
// parameter deltas and adds its upstream contribution into the caller
// supplied passing-error tensor.
package nn

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// LayerKind tags the closed set of layer variants.
type LayerKind int

// Layer variants.
const (
	Convolution LayerKind = iota
	FullyConnected
	Pooling
)

// String returns a human-readable layer kind.
func (k LayerKind) String() string {
	switch k {
	case Convolution:
		return "convolution"
	case FullyConnected:
		return "fully_connected"
	case Pooling:
		return "pooling"
	default:
		return "unknown"
	}
}

// Layer is the capability set shared by every layer variant.
//
// The network owns the ordered layer sequence and wires neighbors by index:
// Forward and Backward receive the previous layer's activations (or the
// network input) explicitly, so layers hold no back-references.
type Layer interface {
	// Kind returns the variant tag.
	Kind() LayerKind

	// SetInputFormat binds the input format exactly once and derives the
	// output format. Panics when called twice or when the derived output
	// geometry is not integral.
	SetInputFormat(format tensor.Format)

	// InputFormat returns the bound input format.
	InputFormat() tensor.Format

	// OutputFormat returns the derived activation format.
	OutputFormat() tensor.Format

	// Activations returns the owned output tensor of the most recent
	// forward pass.
	Activations() *tensor.Tensor

	// ErrorTensor returns the owned accumulated-error tensor. It shares the
	// activation format and is consumed (cleared) by Backward.
	ErrorTensor() *tensor.Tensor

	// Forward recomputes activations from the given input and the current
	// parameters. Requires the layer to be bound.
	Forward(input *tensor.Tensor)

	// Backward consumes the error tensor, accumulates parameter deltas and
	// adds the upstream error contribution into passingError. passingError
	// is nil for the first layer.
	Backward(input *tensor.Tensor, passingError *tensor.Tensor)

	// ApplyDeltas divides the accumulated deltas by the example count,
	// scales by the learning rate, subtracts them from the parameters and
	// zeroes the accumulators. A no-op on parameter-free layers.
	ApplyDeltas(trainingDataCount int, learningRate float32)

	// Mutate perturbs exactly one uniformly chosen scalar parameter by a
	// uniform(-range, range) value.
	Mutate(rang float32)

	// ApplyNoise perturbs every parameter independently by a
	// uniform(-range, range) value.
	ApplyNoise(rang float32)

	// SetAllParameters assigns the same value to the layer's parameters.
	SetAllParameters(value float32)

	// EnableGPUMode migrates the layer's parameter storage to the device
	// backend. Returns an error for layer kinds without a device
	// implementation.
	EnableGPUMode(backend tensor.Backend) error
}

// baseLayer carries the state shared by all layer variants.
type baseLayer struct {
	kind           LayerKind
	inputFormat    tensor.Format
	inputFormatSet bool

	activations *tensor.Tensor
	errors      *tensor.Tensor
}

func (l *baseLayer) Kind() LayerKind {
	return l.kind
}

func (l *baseLayer) InputFormat() tensor.Format {
	return l.inputFormat
}

func (l *baseLayer) OutputFormat() tensor.Format {
	l.requireBound("output format")
	return l.activations.Format()
}

func (l *baseLayer) Activations() *tensor.Tensor {
	return l.activations
}

func (l *baseLayer) ErrorTensor() *tensor.Tensor {
	return l.errors
}

// bindInputFormat records the one-time input format binding.
func (l *baseLayer) bindInputFormat(format tensor.Format) {
	if l.inputFormatSet {
		panic(fmt.Sprintf("%s layer: input format already set", l.kind))
	}
	if err := format.Validate(); err != nil {
		panic(fmt.Sprintf("%s layer: %v", l.kind, err))
	}
	l.inputFormat = format
	l.inputFormatSet = true
}

// bindOutputFormat sizes the activation and error tensors once the output
// geometry is known.
func (l *baseLayer) bindOutputFormat(format tensor.Format) {
	l.activations = tensor.MustNew(format)
	l.errors = tensor.MustNew(format)
}

func (l *baseLayer) requireBound(op string) {
	if !l.inputFormatSet {
		panic(fmt.Sprintf("%s layer: %s requires a bound input format", l.kind, op))
	}
}

// checkInput panics unless the given input matches the bound format.
func (l *baseLayer) checkInput(input *tensor.Tensor) {
	l.requireBound("propagation")
	if input == nil {
		panic(fmt.Sprintf("%s layer: input is nil", l.kind))
	}
	if !input.Format().Equal(l.inputFormat) {
		panic(fmt.Sprintf("%s layer: input format %s does not match bound format %s",
			l.kind, input.Format(), l.inputFormat))
	}
}
