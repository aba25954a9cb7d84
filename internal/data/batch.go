package data

import (
	"fmt"
)

// BatchHandler partitions a data space's permuted positions into fixed-size
// batches for one epoch. It does not own the corpus.
//
// When the corpus size is not a multiple of the batch size the final batch
// shrinks: it carries the remainder, and delta application uses the true
// batch length. No example is dropped and no padding is invented.
type BatchHandler struct {
	ds        *DataSpace
	batchSize int
	cursor    int
}

// NewBatchHandler creates a batch scheduler over one epoch of the corpus.
func NewBatchHandler(ds *DataSpace, batchSize int) *BatchHandler {
	if batchSize <= 0 {
		panic(fmt.Sprintf("batch handler: batch size must be greater than 0, got %d", batchSize))
	}
	return &BatchHandler{ds: ds, batchSize: batchSize}
}

// BatchSize returns the configured batch size.
func (b *BatchHandler) BatchSize() int {
	return b.batchSize
}

// NumBatches returns the number of batches in one epoch, counting a short
// final batch.
func (b *BatchHandler) NumBatches() int {
	return (b.ds.ItemCount() + b.batchSize - 1) / b.batchSize
}

// Next returns the permuted positions of the next batch, or nil once the
// epoch is exhausted. The final batch may be shorter than the batch size.
func (b *BatchHandler) Next() []int {
	if b.cursor >= b.ds.ItemCount() {
		return nil
	}
	end := b.cursor + b.batchSize
	if end > b.ds.ItemCount() {
		end = b.ds.ItemCount()
	}
	batch := make([]int, 0, end-b.cursor)
	for i := b.cursor; i < end; i++ {
		batch = append(batch, i)
	}
	b.cursor = end
	return batch
}

// NextEpoch reshuffles the corpus and restarts batching from the top.
func (b *BatchHandler) NextEpoch() {
	b.ds.Shuffle()
	b.cursor = 0
}
