// Copyright 2025 Kiln ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides layers and the training network for the Kiln ML framework.
//
// # Overview
//
// A Network owns an ordered sequence of layers. Input and output formats
// are declared once; each added layer binds its input format to the
// previous layer's output format, so geometry mismatches surface at
// construction time, not mid-training.
//
// # Building a Network
//
//	import (
//	    "github.com/kiln-ml/kiln/backend/cpu"
//	    "github.com/kiln-ml/kiln/nn"
//	    "github.com/kiln-ml/kiln/tensor"
//	)
//
//	func main() {
//	    net := nn.NewNetwork(cpu.New())
//	    net.SetInputFormat(tensor.NewFormat(28, 28, 1))
//	    net.SetOutputFormat(tensor.NewFormat(1, 10, 1))
//
//	    net.AddConvolutionalLayer(8, 3, 1, nn.ReLU)
//	    net.AddPoolingLayer(2, 2, nn.MaxPooling)
//	    net.AddFullyConnectedLayer(64, nn.Sigmoid)
//	    net.AddLastFullyConnectedLayer(nn.Sigmoid)
//	}
//
// # Training
//
// Learn runs mini-batch gradient descent over a data.DataSpace: gradients
// accumulate example by example and apply once per batch, and the corpus
// reshuffles between epochs. LearnOnce exposes the single-example step for
// online learning. Mutate and ApplyNoise support non-gradient evolutionary
// search over the same parameter set.
//
// # Evaluation
//
// Test runs the network over every item of a labeled corpus and reports
// item count, duration, average sum-of-squared-error cost, and argmax
// accuracy.
package nn
