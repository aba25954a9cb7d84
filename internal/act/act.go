// Package act implements the activation function table.
//
// Every activation kind provides three pure functions:
//   - Apply: the forward activation f(x)
//   - Derivative: f'(x) of the unactivated value x
//   - Inverse: f⁻¹(y), recovering the unactivated value from the activated one
//
// Layers do not cache pre-activation values; the backward pass recovers them
// through Inverse, which is why all three entries must exist for every kind
// used by a fully connected layer.
package act

import (
	"fmt"
	"math"
)

// Kind identifies an activation function in the table.
type Kind int

// Supported activation kinds.
const (
	Identity Kind = iota
	Sigmoid
	ReLU
	LeakyReLU
)

// leakySlope is the negative-side slope of LeakyReLU.
const leakySlope = 0.01

// String returns a human-readable activation name.
func (k Kind) String() string {
	switch k {
	case Identity:
		return "identity"
	case Sigmoid:
		return "sigmoid"
	case ReLU:
		return "relu"
	case LeakyReLU:
		return "leaky_relu"
	default:
		return "unknown"
	}
}

// Valid reports whether k names a registered activation kind.
func (k Kind) Valid() bool {
	return k >= Identity && k <= LeakyReLU
}

func checkKind(k Kind) {
	if !k.Valid() {
		panic(fmt.Sprintf("act: unknown activation kind %d", int(k)))
	}
}

// Apply computes the forward activation f(x).
func Apply(k Kind, x float32) float32 {
	checkKind(k)
	switch k {
	case Sigmoid:
		return float32(1.0 / (1.0 + math.Exp(float64(-x))))
	case ReLU:
		if x > 0 {
			return x
		}
		return 0
	case LeakyReLU:
		if x > 0 {
			return x
		}
		return leakySlope * x
	default:
		return x
	}
}

// Derivative computes f'(x) of the unactivated value x.
func Derivative(k Kind, x float32) float32 {
	checkKind(k)
	switch k {
	case Sigmoid:
		s := Apply(Sigmoid, x)
		return s * (1 - s)
	case ReLU:
		if x > 0 {
			return 1
		}
		return 0
	case LeakyReLU:
		if x > 0 {
			return 1
		}
		return leakySlope
	default:
		return 1
	}
}

// Inverse recovers the unactivated value from the activated one.
//
// ReLU is not injective on (-inf, 0]; its inverse maps non-positive
// activations to 0, so gradients through dead ReLU units vanish.
func Inverse(k Kind, y float32) float32 {
	checkKind(k)
	switch k {
	case Sigmoid:
		return float32(math.Log(float64(y) / (1.0 - float64(y))))
	case ReLU:
		if y > 0 {
			return y
		}
		return 0
	case LeakyReLU:
		if y > 0 {
			return y
		}
		return y / leakySlope
	default:
		return y
	}
}
