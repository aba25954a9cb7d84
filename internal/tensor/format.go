package tensor

import "fmt"

// Format is the fixed (width, height, depth) shape a tensor is constructed
// with. Every binary operation requires identical formats on all operands.
type Format struct {
	Width  int
	Height int
	Depth  int
}

// NewFormat builds a Format from its three dimensions.
func NewFormat(width, height, depth int) Format {
	return Format{Width: width, Height: height, Depth: depth}
}

// Count returns the number of elements a tensor of this format holds.
func (f Format) Count() int {
	return f.Width * f.Height * f.Depth
}

// Equal reports whether two formats agree in every dimension.
func (f Format) Equal(other Format) bool {
	return f == other
}

// Validate checks that every dimension is positive.
func (f Format) Validate() error {
	if f.Width <= 0 || f.Height <= 0 || f.Depth <= 0 {
		return fmt.Errorf("invalid format %s: all dimensions must be > 0", f)
	}
	return nil
}

// String returns the format as "WxHxD".
func (f Format) String() string {
	return fmt.Sprintf("%dx%dx%d", f.Width, f.Height, f.Depth)
}
