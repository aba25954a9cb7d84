// Copyright 2025 Kiln ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the host-memory compute backend.
package cpu

import (
	internalcpu "github.com/kiln-ml/kiln/internal/backend/cpu"
	"github.com/kiln-ml/kiln/tensor"
)

// Backend represents the CPU backend implementation.
//
// The CPU backend computes on host-resident tensors with pure Go loops.
// It refuses device-resident tensors.
type Backend = internalcpu.Backend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend.
//
// Example:
//
//	import (
//	    "github.com/kiln-ml/kiln/backend/cpu"
//	    "github.com/kiln-ml/kiln/nn"
//	)
//
//	func main() {
//	    net := nn.NewNetwork(cpu.New())
//	}
func New() *Backend {
	return internalcpu.New()
}
