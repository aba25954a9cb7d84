// Copyright 2025 Kiln ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the 3D tensor type underlying the Kiln ML framework.
//
// # Overview
//
// Every value flowing through a Kiln network is a Tensor: a dense float32
// volume with an explicit width x height x depth Format. The same type
// serves network inputs, layer activations, error signals, weights and the
// packed training corpus. This package provides:
//   - Tensor: dense 3D float32 storage with flat and coordinate access
//   - Format: explicit width/height/depth geometry with strict matching
//   - Observing views: zero-copy aliases into a packed corpus row
//   - Device abstraction (host memory, WebGPU buffers)
//
// # Basic Usage
//
//	import "github.com/kiln-ml/kiln/tensor"
//
//	func main() {
//	    t := tensor.MustNew(tensor.NewFormat(3, 3, 1))
//	    t.SetAt(1, 1, 0, 0.5)
//	    sum := t.AtFlat(4)
//	}
//
// # Format Discipline
//
// Operations never broadcast or reshape implicitly. Two tensors interact
// only when their formats match exactly; a mismatch is a programming error
// and panics. Use Resize to change a tensor's geometry explicitly.
//
// # Observing Views
//
// A tensor can observe a sub-range of another tensor's row instead of
// owning its storage. Writes through the view land in the source. The
// training corpus uses this to hand out per-example data and label views
// without copying.
//
// # Device Support
//
// Tensors live in host memory by default. A DeviceBackend can migrate a
// tensor's storage to the device; the host buffer stays as a mirror and
// element accessors keep working on it. Compute backends refuse tensors
// whose device mode they do not serve.
package tensor
