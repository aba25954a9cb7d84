// Copyright 2025 Kiln ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU device backend for tensor storage.
//
// The backend migrates tensor storage into GPU buffers and downloads it
// back on demand. Compute kernels are not implemented yet; device-resident
// tensors can be staged but layers must run on the CPU backend.
//
// The underlying WebGPU binding currently supports Windows only, so the
// backend constructor is compiled for Windows alone.
package webgpu
