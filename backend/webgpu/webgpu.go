//go:build windows

// Copyright 2025 Kiln ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package webgpu

import (
	internalwebgpu "github.com/kiln-ml/kiln/internal/backend/webgpu"
	"github.com/kiln-ml/kiln/tensor"
)

// Backend represents the WebGPU backend implementation.
type Backend = internalwebgpu.Backend

// Compile-time check that Backend implements tensor.DeviceBackend.
var _ tensor.DeviceBackend = (*Backend)(nil)

// New creates a new WebGPU backend.
//
// This function initializes the WebGPU adapter, device and queue. Call
// Release when done to free GPU resources.
//
// Returns an error if WebGPU initialization fails (e.g. no compatible GPU).
func New() (*Backend, error) {
	return internalwebgpu.New()
}

// IsAvailable checks if WebGPU is available on the current system.
//
// Example:
//
//	if webgpu.IsAvailable() {
//	    gpu, _ := webgpu.New()
//	    defer gpu.Release()
//	    err := ds.CopyToGPU(gpu)
//	}
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
