//go:build windows

package webgpu

import (
	"github.com/kiln-ml/kiln/internal/act"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// Compute kernels are not implemented for the device backend; device mode
// is a storage contract only. Each stub mirrors the host signature so the
// Backend satisfies tensor.Backend.

// DotProductFlat is not implemented on the device backend.
//
//nolint:revive // Parameters unused in stub implementation.
func (b *Backend) DotProductFlat(weights, input, out *tensor.Tensor) {
	panic("webgpu: DotProductFlat kernel not implemented")
}

// AddFlat is not implemented on the device backend.
//
//nolint:revive // Parameters unused in stub implementation.
func (b *Backend) AddFlat(a, other, out *tensor.Tensor) {
	panic("webgpu: AddFlat kernel not implemented")
}

// AddEachDepth is not implemented on the device backend.
//
//nolint:revive // Parameters unused in stub implementation.
func (b *Backend) AddEachDepth(a, other, out *tensor.Tensor) {
	panic("webgpu: AddEachDepth kernel not implemented")
}

// ValidCrossCorrelation is not implemented on the device backend.
//
//nolint:revive // Parameters unused in stub implementation.
func (b *Backend) ValidCrossCorrelation(input *tensor.Tensor, kernels []*tensor.Tensor, out *tensor.Tensor, stride int) {
	panic("webgpu: ValidCrossCorrelation kernel not implemented")
}

// ApplyActivation is not implemented on the device backend.
//
//nolint:revive // Parameters unused in stub implementation.
func (b *Backend) ApplyActivation(t *tensor.Tensor, kind act.Kind) {
	panic("webgpu: ApplyActivation kernel not implemented")
}
