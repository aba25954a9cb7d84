// Package cpu implements the host compute backend in pure Go.
package cpu

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/parallel"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// Backend implements tensor operations on the host. Ops with independent
// output regions (neuron rows, correlation planes) spread over cores.
type Backend struct {
	par parallel.Config
}

// New creates a new CPU backend sized for the machine.
func New() *Backend {
	return &Backend{par: parallel.Default()}
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return "CPU"
}

// Device returns the storage mode this backend computes on.
func (b *Backend) Device() tensor.Device {
	return tensor.Host
}

// requireHost panics if any operand's backing store is device-resident.
func requireHost(op string, tensors ...*tensor.Tensor) {
	for _, t := range tensors {
		if t.IsInGPUMode() {
			panic(fmt.Sprintf("cpu: %s: tensor is in %s mode", op, t.Device()))
		}
	}
}

// requireEqualFormat panics unless every tensor shares the first one's format.
func requireEqualFormat(op string, tensors ...*tensor.Tensor) {
	for _, t := range tensors[1:] {
		if !tensor.EqualFormat(tensors[0], t) {
			panic(fmt.Sprintf("cpu: %s: format mismatch %s vs %s",
				op, tensors[0].Format(), t.Format()))
		}
	}
}
