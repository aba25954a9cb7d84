// Copyright 2025 Kiln ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/kiln-ml/kiln/internal/act"
	"github.com/kiln-ml/kiln/internal/nn"
	"github.com/kiln-ml/kiln/internal/rng"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// Type aliases for public API

// Layer is the contract every network layer implements.
type Layer = nn.Layer

// LayerKind identifies a layer's role.
type LayerKind = nn.LayerKind

// Layer kinds.
const (
	Convolution    LayerKind = nn.Convolution
	FullyConnected LayerKind = nn.FullyConnected
	Pooling        LayerKind = nn.Pooling
)

// Activation selects a per-element activation function.
type Activation = act.Kind

// Activation functions.
const (
	Identity  Activation = act.Identity
	Sigmoid   Activation = act.Sigmoid
	ReLU      Activation = act.ReLU
	LeakyReLU Activation = act.LeakyReLU
)

// PoolingType selects the pooling rule.
type PoolingType = nn.PoolingType

// Pooling rules.
const (
	MaxPooling     PoolingType = nn.MaxPooling
	MinPooling     PoolingType = nn.MinPooling
	AveragePooling PoolingType = nn.AveragePooling
)

// Network owns an ordered layer sequence and drives training and inference.
type Network = nn.Network

// TrainConfig drives Network.Learn.
type TrainConfig = nn.TrainConfig

// TestResult summarizes one evaluation pass over a labeled corpus.
type TestResult = nn.TestResult

// Layers

// ConvolutionalLayer slides a bank of learnable square kernels over the
// input volume.
type ConvolutionalLayer = nn.ConvolutionalLayer

// FullyConnectedLayer connects every input element to every neuron.
type FullyConnectedLayer = nn.FullyConnectedLayer

// PoolingLayer reduces each depth slice spatially. It has no parameters.
type PoolingLayer = nn.PoolingLayer

// Constructors

// NewNetwork creates an empty network computing on the given backend.
//
// Example:
//
//	net := nn.NewNetwork(cpu.New())
//	net.SetInputFormat(tensor.NewFormat(28, 28, 1))
//	net.SetOutputFormat(tensor.NewFormat(1, 10, 1))
//	net.AddConvolutionalLayer(8, 3, 1, nn.ReLU)
//	net.AddPoolingLayer(2, 2, nn.MaxPooling)
//	net.AddFullyConnectedLayer(64, nn.Sigmoid)
//	net.AddLastFullyConnectedLayer(nn.Sigmoid)
func NewNetwork(backend tensor.Backend) *Network {
	return nn.NewNetwork(backend)
}

// NewConvolutionalLayer creates an unbound convolutional layer.
func NewConvolutionalLayer(numberOfKernels, kernelSize, stride int, activationFn Activation, backend tensor.Backend) *ConvolutionalLayer {
	return nn.NewConvolutionalLayer(numberOfKernels, kernelSize, stride, activationFn, backend)
}

// NewFullyConnectedLayer creates an unbound fully connected layer with the
// given neuron count.
func NewFullyConnectedLayer(numberOfNeurons int, activationFn Activation, backend tensor.Backend) *FullyConnectedLayer {
	return nn.NewFullyConnectedLayer(numberOfNeurons, activationFn, backend)
}

// NewPoolingLayer creates an unbound pooling layer.
func NewPoolingLayer(filterSize, stride int, poolingFn PoolingType) *PoolingLayer {
	return nn.NewPoolingLayer(filterSize, stride, poolingFn)
}

// Seed seeds the shared random source used for weight initialization,
// mutation, noise and corpus shuffling. Training runs with the same seed
// and the same corpus are reproducible.
func Seed(seed int64) {
	rng.Seed(seed)
}
