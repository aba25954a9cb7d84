package nn

import (
	"fmt"
	"math"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// PoolingType selects the pooling rule.
type PoolingType int

// Pooling rules.
const (
	MaxPooling PoolingType = iota
	MinPooling
	AveragePooling
)

// String returns a human-readable pooling rule name.
func (p PoolingType) String() string {
	switch p {
	case MaxPooling:
		return "max"
	case MinPooling:
		return "min"
	case AveragePooling:
		return "average"
	default:
		return "unknown"
	}
}

// PoolingLayer reduces each depth slice spatially with a sliding window.
// It owns no learnable parameters: ApplyDeltas, Mutate, ApplyNoise and
// SetAllParameters are no-ops, and the network keeps it out of the
// parameter-layer index list.
type PoolingLayer struct {
	baseLayer

	filterSize int
	stride     int
	poolingFn  PoolingType

	// winners records, per output cell, the flat input index that produced
	// a max/min output. Backward routes the error there.
	winners []int
}

// NewPoolingLayer creates an unbound pooling layer. The geometry rules
// match the convolutional layer's.
func NewPoolingLayer(filterSize, stride int, poolingFn PoolingType) *PoolingLayer {
	if filterSize <= 0 {
		panic(fmt.Sprintf("pooling: filter size must be greater than 0, got %d", filterSize))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("pooling: stride must be greater than 0, got %d", stride))
	}
	if stride > filterSize {
		panic(fmt.Sprintf("pooling: stride %d must not exceed filter size %d", stride, filterSize))
	}

	return &PoolingLayer{
		baseLayer:  baseLayer{kind: Pooling},
		filterSize: filterSize,
		stride:     stride,
		poolingFn:  poolingFn,
	}
}

// FilterSize returns the window's spatial extent.
func (l *PoolingLayer) FilterSize() int {
	return l.filterSize
}

// Stride returns the window step.
func (l *PoolingLayer) Stride() int {
	return l.stride
}

// PoolingFn returns the pooling rule.
func (l *PoolingLayer) PoolingFn() PoolingType {
	return l.poolingFn
}

// SetInputFormat binds the input format and derives the output format.
// Depth is preserved; the window and stride must tile the input exactly.
func (l *PoolingLayer) SetInputFormat(format tensor.Format) {
	l.bindInputFormat(format)

	if format.Width < l.filterSize || format.Height < l.filterSize ||
		(format.Width-l.filterSize)%l.stride != 0 ||
		(format.Height-l.filterSize)%l.stride != 0 {
		panic(fmt.Sprintf("pooling: input format %s is not compatible with filter size %d and stride %d",
			format, l.filterSize, l.stride))
	}

	outputWidth := (format.Width-l.filterSize)/l.stride + 1
	outputHeight := (format.Height-l.filterSize)/l.stride + 1

	l.bindOutputFormat(tensor.NewFormat(outputWidth, outputHeight, format.Depth))
	l.winners = make([]int, l.activations.ItemCount())
}

// inputFlatIndex mirrors the tensor's flat layout for winner bookkeeping.
func (l *PoolingLayer) inputFlatIndex(x, y, z int) int {
	return z*l.inputFormat.Width*l.inputFormat.Height + y*l.inputFormat.Width + x
}

// Forward reduces every window to one value per the pooling rule and, for
// max/min pooling, records the winning input position.
func (l *PoolingLayer) Forward(input *tensor.Tensor) {
	l.checkInput(input)

	out := l.activations.Format()
	outIdx := 0
	for z := 0; z < out.Depth; z++ {
		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				switch l.poolingFn {
				case AveragePooling:
					sum := float32(0)
					for fy := 0; fy < l.filterSize; fy++ {
						for fx := 0; fx < l.filterSize; fx++ {
							sum += input.At(x*l.stride+fx, y*l.stride+fy, z)
						}
					}
					l.activations.SetAtFlat(outIdx, sum/float32(l.filterSize*l.filterSize))

				case MaxPooling, MinPooling:
					best := float32(math.Inf(1))
					if l.poolingFn == MaxPooling {
						best = float32(math.Inf(-1))
					}
					bestIdx := -1
					for fy := 0; fy < l.filterSize; fy++ {
						for fx := 0; fx < l.filterSize; fx++ {
							v := input.At(x*l.stride+fx, y*l.stride+fy, z)
							if (l.poolingFn == MaxPooling && v > best) ||
								(l.poolingFn == MinPooling && v < best) {
								best = v
								bestIdx = l.inputFlatIndex(x*l.stride+fx, y*l.stride+fy, z)
							}
						}
					}
					l.activations.SetAtFlat(outIdx, best)
					l.winners[outIdx] = bestIdx
				}
				outIdx++
			}
		}
	}
}

// Backward consumes the error tensor. Max/min pooling route each output
// cell's error to the input position that won the window; average pooling
// spreads it uniformly over the window.
func (l *PoolingLayer) Backward(input *tensor.Tensor, passingError *tensor.Tensor) {
	l.checkInput(input)
	if passingError != nil && !passingError.Format().Equal(l.inputFormat) {
		panic(fmt.Sprintf("pooling: passing error format %s does not match input format %s",
			passingError.Format(), l.inputFormat))
	}

	out := l.activations.Format()
	outIdx := 0
	for z := 0; z < out.Depth; z++ {
		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				errValue := l.errors.AtFlat(outIdx)
				l.errors.SetAtFlat(outIdx, 0)

				if passingError != nil && errValue != 0 {
					switch l.poolingFn {
					case AveragePooling:
						share := errValue / float32(l.filterSize*l.filterSize)
						for fy := 0; fy < l.filterSize; fy++ {
							for fx := 0; fx < l.filterSize; fx++ {
								passingError.AddAt(x*l.stride+fx, y*l.stride+fy, z, share)
							}
						}
					case MaxPooling, MinPooling:
						passingError.AddAtFlat(l.winners[outIdx], errValue)
					}
				}
				outIdx++
			}
		}
	}
}

// ApplyDeltas is a no-op: pooling layers own no parameters.
func (l *PoolingLayer) ApplyDeltas(int, float32) {}

// Mutate is a no-op: pooling layers own no parameters.
func (l *PoolingLayer) Mutate(float32) {}

// ApplyNoise is a no-op: pooling layers own no parameters.
func (l *PoolingLayer) ApplyNoise(float32) {}

// SetAllParameters is a no-op: pooling layers own no parameters.
func (l *PoolingLayer) SetAllParameters(float32) {}

// EnableGPUMode fails: the pooling layer has no device implementation.
func (l *PoolingLayer) EnableGPUMode(tensor.Backend) error {
	return fmt.Errorf("pooling: layer has no device implementation")
}
