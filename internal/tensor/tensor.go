package tensor

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/act"
	"github.com/kiln-ml/kiln/internal/rng"
)

// Tensor is a 3-dimensional (width × height × depth) array of float32
// values with a fixed format and a host/device storage mode.
//
// A tensor either owns its backing store or observes (aliases) a sub-range
// of a row inside a larger packed tensor. Observing never copies data and
// adopts the device mode of the observed source.
//
// The flat layout is row-major per depth plane:
//
//	index(x, y, z) = z*width*height + y*width + x
type Tensor struct {
	format    Format
	data      []float32
	device    Device
	observing bool
}

// New creates a zero-initialized tensor of the given format.
func New(format Format) (*Tensor, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	return &Tensor{
		format: format,
		data:   make([]float32, format.Count()),
		device: Host,
	}, nil
}

// Empty creates a tensor with no storage and no format. It must be given a
// shape with Resize before any element access.
func Empty() *Tensor {
	return &Tensor{device: Host}
}

// MustNew is like New but panics on an invalid format.
// Used where the format has already been validated.
func MustNew(format Format) *Tensor {
	t, err := New(format)
	if err != nil {
		panic(fmt.Sprintf("tensor: %v", err))
	}
	return t
}

// FromValues creates a tensor of the given format initialized from values.
// The number of values must match the format's element count exactly.
func FromValues(format Format, values []float32) (*Tensor, error) {
	t, err := New(format)
	if err != nil {
		return nil, err
	}
	if len(values) != format.Count() {
		return nil, fmt.Errorf("tensor: %d values do not fill format %s (%d elements)",
			len(values), format, format.Count())
	}
	copy(t.data, values)
	return t, nil
}

// Format returns the tensor's fixed shape.
func (t *Tensor) Format() Format {
	return t.format
}

// ItemCount returns the total number of elements.
func (t *Tensor) ItemCount() int {
	return t.format.Count()
}

// Device returns the tensor's storage/execution mode.
func (t *Tensor) Device() Device {
	return t.device
}

// IsInGPUMode reports whether the backing store is device-resident.
func (t *Tensor) IsInGPUMode() bool {
	return t.device != Host
}

// SetDevice tags the tensor's storage mode. Called by device backends
// when migrating the backing store; not intended for general use.
func (t *Tensor) SetDevice(d Device) {
	t.device = d
}

// IsObserving reports whether the tensor aliases another tensor's storage.
func (t *Tensor) IsObserving() bool {
	return t.observing
}

// Data exposes the flat backing store.
func (t *Tensor) Data() []float32 {
	return t.data
}

func (t *Tensor) flatIndex(x, y, z int) int {
	if x < 0 || x >= t.format.Width ||
		y < 0 || y >= t.format.Height ||
		z < 0 || z >= t.format.Depth {
		panic(fmt.Sprintf("tensor: index (%d,%d,%d) out of range for format %s", x, y, z, t.format))
	}
	return z*t.format.Width*t.format.Height + y*t.format.Width + x
}

// At returns the element at (x, y, z).
func (t *Tensor) At(x, y, z int) float32 {
	return t.data[t.flatIndex(x, y, z)]
}

// SetAt stores a value at (x, y, z).
func (t *Tensor) SetAt(x, y, z int, value float32) {
	t.data[t.flatIndex(x, y, z)] = value
}

// AddAt accumulates a value at (x, y, z).
func (t *Tensor) AddAt(x, y, z int, value float32) {
	t.data[t.flatIndex(x, y, z)] += value
}

// AtFlat returns the element at a flat index. Flat accessors let
// shape-agnostic code (parameter updates) iterate without dimensional
// reasoning.
func (t *Tensor) AtFlat(i int) float32 {
	return t.data[i]
}

// SetAtFlat stores a value at a flat index.
func (t *Tensor) SetAtFlat(i int, value float32) {
	t.data[i] = value
}

// AddAtFlat accumulates a value at a flat index.
func (t *Tensor) AddAtFlat(i int, value float32) {
	t.data[i] += value
}

// SetAll assigns the same value to every element.
func (t *Tensor) SetAll(value float32) {
	for i := range t.data {
		t.data[i] = value
	}
}

// Resize destructively reallocates the tensor to a new format.
// All values are lost; an observing tensor becomes owning again.
func (t *Tensor) Resize(format Format) {
	if err := format.Validate(); err != nil {
		panic(fmt.Sprintf("tensor: resize: %v", err))
	}
	t.format = format
	t.data = make([]float32, format.Count())
	t.observing = false
	t.device = Host
}

// CopyFrom copies every element from src. Formats must match.
func (t *Tensor) CopyFrom(src *Tensor) {
	if !t.format.Equal(src.format) {
		panic(fmt.Sprintf("tensor: copy: format mismatch %s vs %s", t.format, src.format))
	}
	copy(t.data, src.data)
}

// ApplyNoise adds an independent uniform(-range, range) perturbation to
// every element.
func (t *Tensor) ApplyNoise(rang float32) {
	for i := range t.data {
		t.data[i] += rng.FloatIncl(-rang, rang)
	}
}

// Mutate perturbs exactly one uniformly chosen element by a
// uniform(-range, range) value.
func (t *Tensor) Mutate(rang float32) {
	t.data[rng.Idx(len(t.data))] += rng.FloatIncl(-rang, rang)
}

// ApplyActivation applies the activation function elementwise, in place.
func (t *Tensor) ApplyActivation(kind act.Kind) {
	for i, v := range t.data {
		t.data[i] = act.Apply(kind, v)
	}
}

// ObserveRow aliases this tensor onto a sub-range of one row of a packed
// tensor, without copying. The observer keeps its own format; its element
// count plus the column offset must fit inside the source row. Any previous
// aliasing (or owned storage) is dropped and the observer adopts the
// source's device mode.
func (t *Tensor) ObserveRow(source *Tensor, row, offset int) {
	if source == nil || len(source.data) == 0 {
		panic("tensor: observe: source is not initialized")
	}
	if source.format.Depth != 1 {
		panic(fmt.Sprintf("tensor: observe: source must be a packed 2D table, got %s", source.format))
	}
	if row < 0 || row >= source.format.Height {
		panic(fmt.Sprintf("tensor: observe: row %d out of range [0,%d)", row, source.format.Height))
	}
	count := t.ItemCount()
	if offset < 0 || offset+count > source.format.Width {
		panic(fmt.Sprintf("tensor: observe: columns [%d,%d) exceed row width %d",
			offset, offset+count, source.format.Width))
	}
	start := row*source.format.Width + offset
	t.data = source.data[start : start+count]
	t.observing = true
	t.device = source.device
}

// SetRowFromTensor packs src's values into one row of this tensor,
// starting at the given column offset.
func (t *Tensor) SetRowFromTensor(src *Tensor, row, offset int) {
	if t.format.Depth != 1 {
		panic(fmt.Sprintf("tensor: set row: target must be a packed 2D table, got %s", t.format))
	}
	if row < 0 || row >= t.format.Height {
		panic(fmt.Sprintf("tensor: set row: row %d out of range [0,%d)", row, t.format.Height))
	}
	count := src.ItemCount()
	if offset < 0 || offset+count > t.format.Width {
		panic(fmt.Sprintf("tensor: set row: columns [%d,%d) exceed row width %d",
			offset, offset+count, t.format.Width))
	}
	copy(t.data[row*t.format.Width+offset:], src.data)
}

// EqualFormat reports whether two tensors share the same format.
func EqualFormat(a, b *Tensor) bool {
	return a.format.Equal(b.format)
}

// AreEqual reports exact elementwise equality (and format equality).
// Used for testing.
func AreEqual(a, b *Tensor) bool {
	if !EqualFormat(a, b) {
		return false
	}
	for i := range a.data {
		if a.data[i] != b.data[i] {
			return false
		}
	}
	return true
}
