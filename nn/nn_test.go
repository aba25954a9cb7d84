// Copyright 2025 Kiln ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiln-ml/kiln/backend/cpu"
	"github.com/kiln-ml/kiln/data"
	"github.com/kiln-ml/kiln/nn"
	"github.com/kiln-ml/kiln/tensor"
)

// TestEndToEndTraining drives the whole public surface: corpus construction,
// network assembly, batched training and evaluation.
func TestEndToEndTraining(t *testing.T) {
	nn.Seed(9)

	dataFormat := tensor.NewFormat(1, 2, 1)
	labelFormat := tensor.NewFormat(1, 2, 1)

	examples := make([]*tensor.Tensor, 0, 2)
	labels := make([]*tensor.Tensor, 0, 2)
	for _, item := range []struct{ in, label []float32 }{
		{[]float32{1, 0}, []float32{1, 0}},
		{[]float32{0, 1}, []float32{0, 1}},
	} {
		m, err := tensor.FromValues(dataFormat, item.in)
		require.NoError(t, err)
		l, err := tensor.FromValues(labelFormat, item.label)
		require.NoError(t, err)
		examples = append(examples, m)
		labels = append(labels, l)
	}

	ds, err := data.New(dataFormat, labelFormat, examples, labels)
	require.NoError(t, err)

	net := nn.NewNetwork(cpu.New())
	net.SetInputFormat(dataFormat)
	net.SetOutputFormat(labelFormat)
	net.AddFullyConnectedLayer(3, nn.Sigmoid)
	net.AddLastFullyConnectedLayer(nn.Sigmoid)
	net.ApplyNoise(1)

	before := net.Test(ds)
	net.Learn(ds, nn.TrainConfig{BatchSize: 2, Epochs: 500, LearningRate: 1})
	after := net.Test(ds)

	assert.Less(t, after.AvgCost, before.AvgCost)
	assert.Equal(t, 2, after.DataCount)
}

// TestConvolutionalPipeline checks that a conv/pool/fc stack assembles and
// propagates through the public API.
func TestConvolutionalPipeline(t *testing.T) {
	net := nn.NewNetwork(cpu.New())
	net.SetInputFormat(tensor.NewFormat(6, 6, 1))
	net.SetOutputFormat(tensor.NewFormat(1, 2, 1))

	net.AddConvolutionalLayer(2, 3, 1, nn.ReLU)
	net.AddPoolingLayer(2, 2, nn.MaxPooling)
	net.AddLastFullyConnectedLayer(nn.Sigmoid)

	input := tensor.MustNew(tensor.NewFormat(6, 6, 1))
	input.SetAll(0.5)
	net.ForwardPropagation(input)

	out := net.Output()
	require.NotNil(t, out)
	assert.Equal(t, tensor.NewFormat(1, 2, 1), out.Format())
}
