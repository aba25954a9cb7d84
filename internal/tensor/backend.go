package tensor

import "github.com/kiln-ml/kiln/internal/act"

// Backend is the capability interface a compute executor must implement.
// The same tensor data structure is served by a host backend and, where
// available, a device backend; results are interchangeable in policy,
// not necessarily in floating-point bit pattern.
//
// All binary operations must fail with a format-mismatch panic when operand
// formats differ, except for the documented depth-broadcast case of
// AddEachDepth.
type Backend interface {
	// DotProductFlat computes out = weights · input across the full flat
	// extents: weights has format (len(input) × len(out) × 1).
	DotProductFlat(weights, input, out *Tensor)

	// AddFlat computes out = a + b elementwise. All formats must match.
	AddFlat(a, b, out *Tensor)

	// AddEachDepth adds b (depth 1) to every depth slice of a.
	AddEachDepth(a, b, out *Tensor)

	// ValidCrossCorrelation slides every kernel over the input with the
	// given stride and no padding; out plane z holds kernel z's response.
	// Kernel depth must equal input depth and every output cell must be
	// covered by a complete kernel footprint.
	ValidCrossCorrelation(input *Tensor, kernels []*Tensor, out *Tensor, stride int)

	// ApplyActivation applies the activation function elementwise in place.
	ApplyActivation(t *Tensor, kind act.Kind)

	// Name returns the backend name (e.g. "CPU", "WebGPU").
	Name() string

	// Device returns the storage mode this backend computes on.
	Device() Device
}

// DeviceBackend is implemented by backends that own device-resident
// storage and can migrate a tensor's backing store.
type DeviceBackend interface {
	Backend

	// EnableGPUMode migrates the tensor's backing store to the device and
	// switches its storage mode.
	EnableGPUMode(t *Tensor) error

	// Download copies the device-resident store back to the host and
	// switches the tensor to host mode.
	Download(t *Tensor) error
}
