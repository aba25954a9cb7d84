// Copyright 2025 Kiln ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/kiln-ml/kiln/internal/tensor"
)

// Type aliases for public API

// Format describes a tensor's geometry as width x height x depth.
type Format = tensor.Format

// Device identifies where a tensor's data resides.
type Device = tensor.Device

// Device constants.
const (
	Host   Device = tensor.Host
	WebGPU Device = tensor.WebGPU
)

// Tensor is a dense 3D float32 volume.
//
// The flat layout is depth-major: index(x, y, z) = z*w*h + y*w + x.
//
// Example:
//
//	t := tensor.MustNew(tensor.NewFormat(28, 28, 1))
//	t.SetAt(0, 0, 0, 1.0)
type Tensor = tensor.Tensor

// Backend is the compute contract layers dispatch their heavy math through.
type Backend = tensor.Backend

// DeviceBackend extends Backend with tensor storage migration to a device.
type DeviceBackend = tensor.DeviceBackend

// Creation functions

// NewFormat builds a Format from its three extents.
func NewFormat(width, height, depth int) Format {
	return tensor.NewFormat(width, height, depth)
}

// New creates a zero-filled host tensor of the given format.
// Returns an error if any extent is not positive.
func New(format Format) (*Tensor, error) {
	return tensor.New(format)
}

// MustNew creates a zero-filled host tensor and panics on an invalid format.
func MustNew(format Format) *Tensor {
	return tensor.MustNew(format)
}

// Empty creates a tensor with no storage and no format. It must be given a
// shape with Resize before any element access.
func Empty() *Tensor {
	return tensor.Empty()
}

// FromValues creates a host tensor initialized from a flat slice.
// The slice length must equal the format's element count.
func FromValues(format Format, values []float32) (*Tensor, error) {
	return tensor.FromValues(format, values)
}

// Comparison functions

// EqualFormat reports whether two tensors share the same format.
func EqualFormat(a, b *Tensor) bool {
	return tensor.EqualFormat(a, b)
}

// AreEqual reports whether two tensors share the same format and the same
// element values.
func AreEqual(a, b *Tensor) bool {
	return tensor.AreEqual(a, b)
}
