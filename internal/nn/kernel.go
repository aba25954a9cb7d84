package nn

import (
	"github.com/kiln-ml/kiln/internal/tensor"
)

// convKernel is one convolution kernel: a (size × size × input_depth)
// weight tensor plus a scalar bias. The same struct serves as the kernel's
// delta accumulator.
type convKernel struct {
	weights *tensor.Tensor
	bias    float32
}

// bindDepth sizes the kernel's weights for the given input depth.
func (k *convKernel) bindDepth(size, depth int) {
	k.weights = tensor.MustNew(tensor.NewFormat(size, size, depth))
}
