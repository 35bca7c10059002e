package learning

import (
	"fmt"
	"math"

	"github.com/neurlang/blazepose/layer/activation"
	"github.com/neurlang/blazepose/tensor"
)

// Loss compares a prediction with a target and returns the mean loss and its
// gradient with respect to the prediction.
type Loss func(pred, target *tensor.Tensor) (float64, *tensor.Tensor, error)

// BinaryCrossEntropy is the mean binary cross-entropy between sigmoid(logits)
// and target probabilities, computed on the logits for stability.
func BinaryCrossEntropy(logits, target *tensor.Tensor) (float64, *tensor.Tensor, error) {
	if !logits.SameShape(target) {
		return 0, nil, fmt.Errorf("binary crossentropy: %w: %v vs %v", tensor.ErrShapeMismatch, logits.Shape, target.Shape)
	}
	n := float64(logits.Len())
	grad := tensor.New(logits.Shape...)
	var sum float64
	for i, zf := range logits.Data {
		z, y := float64(zf), float64(target.Data[i])
		sum += math.Max(z, 0) - z*y + math.Log1p(math.Exp(-math.Abs(z)))
		grad.Data[i] = float32((activation.SigmoidScalar(z) - y) / n)
	}
	return sum / n, grad, nil
}

// MeanSquaredError is the mean of (pred - target)^2.
func MeanSquaredError(pred, target *tensor.Tensor) (float64, *tensor.Tensor, error) {
	if !pred.SameShape(target) {
		return 0, nil, fmt.Errorf("mean squared error: %w: %v vs %v", tensor.ErrShapeMismatch, pred.Shape, target.Shape)
	}
	n := float64(pred.Len())
	grad := tensor.New(pred.Shape...)
	var sum float64
	for i, p := range pred.Data {
		d := float64(p) - float64(target.Data[i])
		sum += d * d
		grad.Data[i] = float32(2 * d / n)
	}
	return sum / n, grad, nil
}
