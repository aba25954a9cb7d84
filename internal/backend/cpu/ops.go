package cpu

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/act"
	"github.com/kiln-ml/kiln/internal/parallel"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// DotProductFlat computes out[n] = Σ_i weights(i, n) * input[i] across the
// full flat extents of input and out. The weight tensor is a dense matrix
// with format (input_count × output_count × 1).
func (b *Backend) DotProductFlat(weights, input, out *tensor.Tensor) {
	requireHost("dot product", weights, input, out)

	wf := weights.Format()
	if wf.Depth != 1 || wf.Width != input.ItemCount() || wf.Height != out.ItemCount() {
		panic(fmt.Sprintf("cpu: dot product: weights %s do not connect input %s to output %s",
			wf, input.Format(), out.Format()))
	}

	inCount := input.ItemCount()
	parallel.For(out.ItemCount(), b.par, func(n int) {
		sum := float32(0)
		for i := 0; i < inCount; i++ {
			sum += weights.At(i, n, 0) * input.AtFlat(i)
		}
		out.SetAtFlat(n, sum)
	})
}

// AddFlat computes out = a + b elementwise. All three formats must match.
func (b *Backend) AddFlat(a, other, out *tensor.Tensor) {
	requireHost("add", a, other, out)
	requireEqualFormat("add", a, other, out)

	for i := 0; i < a.ItemCount(); i++ {
		out.SetAtFlat(i, a.AtFlat(i)+other.AtFlat(i))
	}
}

// AddEachDepth adds the depth-1 tensor other to every depth slice of a.
func (b *Backend) AddEachDepth(a, other, out *tensor.Tensor) {
	requireHost("add each depth", a, other, out)
	requireEqualFormat("add each depth", a, out)

	af := a.Format()
	of := other.Format()
	if of.Depth != 1 || of.Width != af.Width || of.Height != af.Height {
		panic(fmt.Sprintf("cpu: add each depth: %s cannot broadcast over %s", of, af))
	}

	for z := 0; z < af.Depth; z++ {
		for y := 0; y < af.Height; y++ {
			for x := 0; x < af.Width; x++ {
				out.SetAt(x, y, z, a.At(x, y, z)+other.At(x, y, 0))
			}
		}
	}
}

// ValidCrossCorrelation slides every kernel over the input with the given
// stride and no padding. Output plane z holds kernel z's response. Every
// output cell must be covered by a complete kernel footprint, so the output
// shrinks by kernel_size-1 per stride step.
func (b *Backend) ValidCrossCorrelation(input *tensor.Tensor, kernels []*tensor.Tensor, out *tensor.Tensor, stride int) {
	requireHost("cross correlation", append([]*tensor.Tensor{input, out}, kernels...)...)

	if len(kernels) == 0 {
		panic("cpu: cross correlation: no kernels")
	}
	inf := input.Format()
	kf := kernels[0].Format()
	for _, k := range kernels[1:] {
		if !k.Format().Equal(kf) {
			panic(fmt.Sprintf("cpu: cross correlation: kernel format mismatch %s vs %s", kf, k.Format()))
		}
	}
	if kf.Width != kf.Height {
		panic(fmt.Sprintf("cpu: cross correlation: kernels must be square, got %s", kf))
	}
	if kf.Depth != inf.Depth {
		panic(fmt.Sprintf("cpu: cross correlation: kernel depth %d != input depth %d", kf.Depth, inf.Depth))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("cpu: cross correlation: invalid stride %d", stride))
	}
	if (inf.Width-kf.Width)%stride != 0 || (inf.Height-kf.Height)%stride != 0 {
		panic(fmt.Sprintf("cpu: cross correlation: input %s not coverable by kernel %s at stride %d",
			inf, kf, stride))
	}

	expected := tensor.NewFormat(
		(inf.Width-kf.Width)/stride+1,
		(inf.Height-kf.Height)/stride+1,
		len(kernels))
	if !out.Format().Equal(expected) {
		panic(fmt.Sprintf("cpu: cross correlation: output format %s, expected %s", out.Format(), expected))
	}

	// Every (kernel, output row) pair writes a disjoint slice of out.
	parallel.For(len(kernels)*expected.Height, b.par, func(i int) {
		z := i / expected.Height
		y := i % expected.Height
		kernel := kernels[z]
		for x := 0; x < expected.Width; x++ {
			sum := float32(0)
			for kz := 0; kz < kf.Depth; kz++ {
				for ky := 0; ky < kf.Height; ky++ {
					for kx := 0; kx < kf.Width; kx++ {
						sum += kernel.At(kx, ky, kz) *
							input.At(x*stride+kx, y*stride+ky, kz)
					}
				}
			}
			out.SetAt(x, y, z, sum)
		}
	})
}

// ApplyActivation applies the activation function elementwise, in place.
func (b *Backend) ApplyActivation(t *tensor.Tensor, kind act.Kind) {
	requireHost("apply activation", t)
	t.ApplyActivation(kind)
}
