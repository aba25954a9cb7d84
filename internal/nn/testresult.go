package nn

import (
	"fmt"
	"time"

	"github.com/kiln-ml/kiln/internal/data"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// TestResult summarizes one evaluation pass over a labeled corpus.
type TestResult struct {
	DataCount int
	Duration  time.Duration
	AvgCost   float32
	Accuracy  float32
}

// String renders the result for humans.
func (r TestResult) String() string {
	return fmt.Sprintf("Data count: %d\nTime taken: %s\nAvg cost: %f\nAccuracy: %.2f%%\n",
		r.DataCount, r.Duration, r.AvgCost, r.Accuracy*100)
}

// argmaxFlat returns the flat index of the largest element.
func argmaxFlat(t *tensor.Tensor) int {
	best := 0
	for i := 1; i < t.ItemCount(); i++ {
		if t.AtFlat(i) > t.AtFlat(best) {
			best = i
		}
	}
	return best
}

// Test evaluates the network over every item of a labeled corpus and
// reports count, wall-clock duration, average sum-of-squared-error cost and
// argmax accuracy.
func (n *Network) Test(ds *data.DataSpace) TestResult {
	if !ds.HasLabels() {
		panic("network: test requires a labeled corpus")
	}

	observedData := tensor.MustNew(ds.DataFormat())
	observedLabel := tensor.MustNew(ds.LabelFormat())

	correct := 0
	costSum := float32(0)
	start := time.Now()

	for i := 0; i < ds.ItemCount(); i++ {
		ds.ObserveDataAt(observedData, i)
		ds.ObserveLabelAt(observedLabel, i)

		n.ForwardPropagation(observedData)
		if argmaxFlat(n.output) == argmaxFlat(observedLabel) {
			correct++
		}
		costSum += n.CalculateCost(observedLabel)
	}

	return TestResult{
		DataCount: ds.ItemCount(),
		Duration:  time.Since(start),
		AvgCost:   costSum / float32(ds.ItemCount()),
		Accuracy:  float32(correct) / float32(ds.ItemCount()),
	}
}
