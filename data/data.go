// Copyright 2025 Kiln ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package data provides corpus storage and batch scheduling for training.
//
// A DataSpace packs the whole corpus into one tensor, one row per example,
// with data columns followed by label columns. Shuffling permutes an index
// table only; per-example access hands out zero-copy observing views into
// the packed rows. A BatchHandler partitions the permuted order into
// batches for one epoch.
package data

import (
	internaldata "github.com/kiln-ml/kiln/internal/data"
	"github.com/kiln-ml/kiln/tensor"
)

// DataSpace owns a packed training or validation corpus.
type DataSpace = internaldata.DataSpace

// BatchHandler partitions a data space's permuted positions into batches.
type BatchHandler = internaldata.BatchHandler

// New builds a data space from parallel data and label collections.
//
// Example:
//
//	ds, err := data.New(
//	    tensor.NewFormat(28, 28, 1),
//	    tensor.NewFormat(1, 10, 1),
//	    images, labels,
//	)
func New(dataFormat, labelFormat tensor.Format, data, labels []*tensor.Tensor) (*DataSpace, error) {
	return internaldata.New(dataFormat, labelFormat, data, labels)
}

// NewDataOnly builds an unlabeled data space from a data collection.
func NewDataOnly(dataFormat tensor.Format, data []*tensor.Tensor) (*DataSpace, error) {
	return internaldata.NewDataOnly(dataFormat, data)
}

// NewPresized builds an empty data space for incremental filling via
// SetDataAt / SetLabelAt. Pass a zero label format for a data-only corpus.
func NewPresized(itemCount int, dataFormat, labelFormat tensor.Format) (*DataSpace, error) {
	return internaldata.NewPresized(itemCount, dataFormat, labelFormat)
}

// NewBatchHandler creates a batch scheduler over one epoch of the corpus.
func NewBatchHandler(ds *DataSpace, batchSize int) *BatchHandler {
	return internaldata.NewBatchHandler(ds, batchSize)
}
