package blazepose

import (
	"context"
	"fmt"

	"github.com/neurlang/blazepose/datasets"
	"github.com/neurlang/blazepose/layer/activation"
	"github.com/neurlang/blazepose/learning"
	"github.com/neurlang/blazepose/tensor"
	log "github.com/sirupsen/logrus"
)

// Callback is notified at the end of every epoch. Epochs count from 1.
// Logs hold "loss" and, when validating, "val_loss".
type Callback interface {
	OnEpochEnd(epoch int, logs map[string]float64) error
}

// FitOptions control the training loop.
type FitOptions struct {
	Epochs          int
	StepsPerEpoch   int
	ValidationSteps int // 0 skips validation
	Callbacks       []Callback
}

// History records the per-epoch losses.
type History struct {
	Loss    []float64
	ValLoss []float64
}

// Fit trains the model on train, validating on val after each epoch.
func (m *Model) Fit(ctx context.Context, train, val datasets.Iterator, opts FitOptions) (*History, error) {
	if !m.built {
		return nil, ErrNotBuilt
	}
	if m.opt == nil {
		return nil, ErrNotCompiled
	}
	if opts.StepsPerEpoch <= 0 {
		return nil, fmt.Errorf("blazepose: steps per epoch %d, the training set is smaller than one batch", opts.StepsPerEpoch)
	}
	validate := val != nil && opts.ValidationSteps > 0

	hist := &History{}
	for epoch := 1; epoch <= opts.Epochs; epoch++ {
		var total float64
		for step := 1; step <= opts.StepsPerEpoch; step++ {
			if err := ctx.Err(); err != nil {
				return hist, err
			}
			b, err := train.Next()
			if err != nil {
				return hist, fmt.Errorf("epoch %d step %d: %w", epoch, step, err)
			}
			loss, err := m.TrainStep(b)
			if err != nil {
				return hist, fmt.Errorf("epoch %d step %d: %w", epoch, step, err)
			}
			total += loss
			log.WithFields(log.Fields{"epoch": epoch, "step": step, "loss": loss}).Debug("train step")
		}
		logs := map[string]float64{"loss": total / float64(opts.StepsPerEpoch)}
		hist.Loss = append(hist.Loss, logs["loss"])

		if validate {
			var vtotal float64
			for step := 1; step <= opts.ValidationSteps; step++ {
				if err := ctx.Err(); err != nil {
					return hist, err
				}
				b, err := val.Next()
				if err != nil {
					return hist, fmt.Errorf("epoch %d validation step %d: %w", epoch, step, err)
				}
				loss, err := m.Evaluate(b)
				if err != nil {
					return hist, fmt.Errorf("epoch %d validation step %d: %w", epoch, step, err)
				}
				vtotal += loss
			}
			logs["val_loss"] = vtotal / float64(opts.ValidationSteps)
			hist.ValLoss = append(hist.ValLoss, logs["val_loss"])
		}

		fields := log.Fields{"epoch": epoch, "loss": logs["loss"]}
		if validate {
			fields["val_loss"] = logs["val_loss"]
		}
		log.WithFields(fields).Infof("Epoch %d/%d", epoch, opts.Epochs)

		for _, cb := range opts.Callbacks {
			if err := cb.OnEpochEnd(epoch, logs); err != nil {
				return hist, err
			}
		}
	}
	return hist, nil
}

// TrainStep runs one optimizer step on a batch and returns its loss.
func (m *Model) TrainStep(b datasets.Batch) (float64, error) {
	if m.opt == nil {
		return 0, ErrNotCompiled
	}
	loss, err := m.step(b, true)
	if err != nil {
		return 0, err
	}
	m.opt.Step(m.Params())
	return loss, nil
}

// Evaluate returns the loss of a batch without updating the weights.
func (m *Model) Evaluate(b datasets.Batch) (float64, error) {
	if !m.built {
		return 0, ErrNotBuilt
	}
	return m.step(b, false)
}

// step computes the phase loss and, when training, the parameter gradients.
func (m *Model) step(b datasets.Batch, training bool) (float64, error) {
	trainHm, trainReg := m.Phase.trainsHeatmap(), m.Phase.trainsRegression()
	hm, kp, err := m.forward(b.Images, training, trainHm, trainReg)
	if err != nil {
		return 0, err
	}

	var loss float64
	var dfeat *tensor.Tensor
	if trainHm {
		l, g, err := learning.BinaryCrossEntropy(hm, b.Heatmaps)
		if err != nil {
			return 0, fmt.Errorf("heatmap loss: %w", err)
		}
		loss += l
		if training {
			if dfeat, err = m.heatmap.Backward(g); err != nil {
				return 0, err
			}
		}
	}
	if trainReg {
		p := activation.Sigmoid(kp)
		l, g, err := learning.MeanSquaredError(p, b.Keypoints)
		if err != nil {
			return 0, fmt.Errorf("regression loss: %w", err)
		}
		loss += l
		if training {
			for i, v := range p.Data {
				g.Data[i] *= v * (1 - v)
			}
			d, err := m.regression.Backward(g)
			if err != nil {
				return 0, err
			}
			if m.Phase == PhaseTwoHead {
				if err := dfeat.AddInPlace(d); err != nil {
					return 0, err
				}
			}
		}
	}
	if training && m.Phase != PhaseRegression {
		if _, err := m.backbone.Backward(dfeat); err != nil {
			return 0, err
		}
	}
	return loss, nil
}
