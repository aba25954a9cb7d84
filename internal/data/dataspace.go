// Package data implements corpus storage, shuffling and batch scheduling.
package data

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/rng"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// DataSpace owns the full training/validation corpus as one packed tensor:
// one row per example, data columns followed by label columns. A permutation
// table defines the iteration order; shuffling permutes indices only and
// never moves the packed data. Per-item data and label views are obtained by
// observing a sub-range of a row, never by copying.
type DataSpace struct {
	dataFormat  tensor.Format
	labelFormat tensor.Format
	hasLabels   bool

	table        *tensor.Tensor
	shuffleTable []int
	iteratorIdx  int
	itemCount    int
}

// NewPresized builds an empty data space for incremental filling via
// SetDataAt / SetLabelAt. Pass a zero label format for a data-only corpus.
func NewPresized(itemCount int, dataFormat, labelFormat tensor.Format) (*DataSpace, error) {
	if itemCount <= 0 {
		return nil, fmt.Errorf("data space: item count must be greater than 0, got %d", itemCount)
	}
	if err := dataFormat.Validate(); err != nil {
		return nil, fmt.Errorf("data space: data format: %w", err)
	}
	hasLabels := labelFormat != (tensor.Format{})
	if hasLabels {
		if err := labelFormat.Validate(); err != nil {
			return nil, fmt.Errorf("data space: label format: %w", err)
		}
	}

	ds := &DataSpace{
		dataFormat:  dataFormat,
		labelFormat: labelFormat,
		hasLabels:   hasLabels,
		itemCount:   itemCount,
	}

	columns := dataFormat.Count()
	if hasLabels {
		columns += labelFormat.Count()
	}
	ds.table = tensor.MustNew(tensor.NewFormat(columns, itemCount, 1))

	ds.shuffleTable = make([]int, itemCount)
	for i := range ds.shuffleTable {
		ds.shuffleTable[i] = i
	}
	return ds, nil
}

// New builds a data space from parallel data and label collections.
// The collections must have the same length.
func New(dataFormat, labelFormat tensor.Format, data, labels []*tensor.Tensor) (*DataSpace, error) {
	if len(data) != len(labels) {
		return nil, fmt.Errorf("data space: data and label size mismatch: %d vs %d",
			len(data), len(labels))
	}
	ds, err := NewPresized(len(data), dataFormat, labelFormat)
	if err != nil {
		return nil, err
	}
	for i := range data {
		ds.SetDataAt(data[i], i)
		ds.SetLabelAt(labels[i], i)
	}
	return ds, nil
}

// NewDataOnly builds an unlabeled data space from a data collection.
func NewDataOnly(dataFormat tensor.Format, data []*tensor.Tensor) (*DataSpace, error) {
	ds, err := NewPresized(len(data), dataFormat, tensor.Format{})
	if err != nil {
		return nil, err
	}
	for i := range data {
		ds.SetDataAt(data[i], i)
	}
	return ds, nil
}

// ItemCount returns the number of examples.
func (ds *DataSpace) ItemCount() int {
	return ds.itemCount
}

// DataFormat returns the per-example data format.
func (ds *DataSpace) DataFormat() tensor.Format {
	return ds.dataFormat
}

// LabelFormat returns the per-example label format.
func (ds *DataSpace) LabelFormat() tensor.Format {
	return ds.labelFormat
}

// HasLabels reports whether the corpus carries labels.
func (ds *DataSpace) HasLabels() bool {
	return ds.hasLabels
}

// IsInGPUMode reports whether the packed table is device-resident.
func (ds *DataSpace) IsInGPUMode() bool {
	return ds.table.IsInGPUMode()
}

func (ds *DataSpace) checkIdx(idx int) {
	if idx < 0 || idx >= ds.itemCount {
		panic(fmt.Sprintf("data space: index %d out of range [0,%d)", idx, ds.itemCount))
	}
}

// SetDataAt packs an example's data into the table row for index idx.
// The tensor's format must match the data format exactly.
func (ds *DataSpace) SetDataAt(m *tensor.Tensor, idx int) {
	ds.checkIdx(idx)
	if !m.Format().Equal(ds.dataFormat) {
		panic(fmt.Sprintf("data space: data format %s does not match %s", m.Format(), ds.dataFormat))
	}
	ds.table.SetRowFromTensor(m, idx, 0)
}

// SetLabelAt packs an example's label into the table row for index idx.
func (ds *DataSpace) SetLabelAt(m *tensor.Tensor, idx int) {
	ds.checkIdx(idx)
	if !ds.hasLabels {
		panic("data space: corpus has no labels")
	}
	if !m.Format().Equal(ds.labelFormat) {
		panic(fmt.Sprintf("data space: label format %s does not match %s", m.Format(), ds.labelFormat))
	}
	ds.table.SetRowFromTensor(m, idx, ds.dataFormat.Count())
}

// Shuffle permutes the iteration order in place (Fisher-Yates over the
// permutation table). The packed data never moves.
func (ds *DataSpace) Shuffle() {
	rng.Shuffle(len(ds.shuffleTable), func(i, j int) {
		ds.shuffleTable[i], ds.shuffleTable[j] = ds.shuffleTable[j], ds.shuffleTable[i]
	})
}

// ObserveDataAt aliases the observer onto the data columns of the permuted
// row at position idx. Zero-copy; the observer adopts the table's device
// mode. The observer's format must match the data format.
func (ds *DataSpace) ObserveDataAt(observer *tensor.Tensor, idx int) {
	ds.checkIdx(idx)
	if !observer.Format().Equal(ds.dataFormat) {
		panic(fmt.Sprintf("data space: observer format %s does not match data format %s",
			observer.Format(), ds.dataFormat))
	}
	observer.ObserveRow(ds.table, ds.shuffleTable[idx], 0)
}

// ObserveLabelAt aliases the observer onto the label columns of the
// permuted row at position idx.
func (ds *DataSpace) ObserveLabelAt(observer *tensor.Tensor, idx int) {
	ds.checkIdx(idx)
	if !ds.hasLabels {
		panic("data space: corpus has no labels")
	}
	if !observer.Format().Equal(ds.labelFormat) {
		panic(fmt.Sprintf("data space: observer format %s does not match label format %s",
			observer.Format(), ds.labelFormat))
	}
	observer.ObserveRow(ds.table, ds.shuffleTable[idx], ds.dataFormat.Count())
}

// NextData returns a zero-copy view of the current item's data.
func (ds *DataSpace) NextData() *tensor.Tensor {
	observer := tensor.MustNew(ds.dataFormat)
	ds.ObserveDataAt(observer, ds.iteratorIdx)
	return observer
}

// NextLabel returns a zero-copy view of the current item's label.
func (ds *DataSpace) NextLabel() *tensor.Tensor {
	observer := tensor.MustNew(ds.labelFormat)
	ds.ObserveLabelAt(observer, ds.iteratorIdx)
	return observer
}

// IteratorNext advances the iteration cursor, wrapping at the corpus end.
func (ds *DataSpace) IteratorNext() {
	ds.iteratorIdx = (ds.iteratorIdx + 1) % ds.itemCount
}

// IteratorReset rewinds the iteration cursor.
func (ds *DataSpace) IteratorReset() {
	ds.iteratorIdx = 0
}

// CopyToGPU migrates the whole packed table to the device backend. Views
// observed afterwards inherit the device mode.
func (ds *DataSpace) CopyToGPU(backend tensor.DeviceBackend) error {
	return backend.EnableGPUMode(ds.table)
}
