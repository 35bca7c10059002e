package trainer

import (
	"context"
	"math"

	"github.com/neurlang/blazepose/config"
	"github.com/neurlang/blazepose/datasets/mpii"
	"github.com/neurlang/blazepose/device"
	"github.com/neurlang/blazepose/layer"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// PCKhThreshold is the fraction of the head segment a prediction may be off.
const PCKhThreshold = 0.5

// EvaluateOptions control an evaluation run.
type EvaluateOptions struct {
	// Significance (0-100) evaluates a statistically sufficient sample of
	// the validation set instead of all of it. 0 evaluates everything.
	Significance byte
}

// Report is the result of an evaluation.
type Report struct {
	Samples  int
	Loss     float64
	PCKh     float64   // fraction of visible joints within PCKhThreshold head segments, NaN without head joints
	PerJoint []float64 // NaN for joints never visible
}

// sampleSize calculates the statistically sufficient sample size
// for a given dataset size N and significance level (0–100).
func sampleSize(N int, significance byte) int {
	if significance == 0 || significance >= 100 {
		return N
	}

	// Convert significance level to Z-score
	z := zScoreFromAlpha(100 - significance)

	// Assume worst-case proportion p = 0.5 for max variability
	p := 0.5
	e := float64(100-significance) * 0.01

	ss := math.Pow(z, 2) * p * (1 - p) / math.Pow(e, 2)

	// Apply finite population correction
	correctedSS := ss * float64(N) / (float64(N) - 1 + ss)

	if int(correctedSS) > N {
		return N
	}
	if correctedSS < 1 {
		return 1
	}
	return int(correctedSS)
}

// zScoreFromAlpha returns the Z-score for a given alpha level
// Common: 90% => 1.645, 95% => 1.96, 99% => 2.576
func zScoreFromAlpha(alpha byte) float64 {
	switch {
	case alpha <= 1:
		return 2.576 // 99% confidence
	case alpha <= 5:
		return 1.96 // 95% confidence
	case alpha <= 10:
		return 1.645 // 90% confidence
	default:
		return 1.96 // default fallback
	}
}

// Evaluate loads the weights at modelPath and measures loss and PCKh on the
// validation split of cfg.
func Evaluate(ctx context.Context, fs afero.Fs, cfg *config.Config, modelPath string, opts EvaluateOptions) (*Report, error) {
	threads := device.Threads(cfg.Train.Threads)
	layer.Threads = threads

	model, err := LoadModel(fs, cfg, modelPath)
	if err != nil {
		return nil, err
	}
	valSet, err := openDataset(fs, model, cfg.Data.ValImages, cfg.Data.ValLabels, false)
	if err != nil {
		return nil, err
	}
	gen, err := valSet.Generator(cfg.Train.ValBatchSize, mpii.GeneratorOptions{
		Sigma:    cfg.Model.HeatmapSigma,
		WithMeta: true,
		Threads:  threads,
		Seed:     cfg.Train.Seed,
	})
	if err != nil {
		return nil, err
	}

	n := sampleSize(valSet.Len(), opts.Significance)
	joints := model.NumJoints
	// PCKh needs the MPII upper neck and head top joints
	pckh := joints > mpii.HeadTop
	if !pckh {
		log.WithField("joints", joints).Warn("no head joints, reporting loss only")
	}
	correct := make([]int, joints)
	visible := make([]int, joints)
	report := &Report{}
	var batches int
	for report.Samples < n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := gen.Next()
		if err != nil {
			return nil, err
		}
		loss, err := model.Evaluate(b)
		if err != nil {
			return nil, err
		}
		report.Loss += loss
		batches++

		if !pckh {
			report.Samples += min(b.Size(), n-report.Samples)
			continue
		}
		pred, err := model.Predict(b.Images)
		if err != nil {
			return nil, err
		}
		for s := 0; s < b.Size() && report.Samples < n; s++ {
			report.Samples++
			truth := b.Meta[s].Joints
			head := math.Hypot(truth[mpii.HeadTop][0]-truth[mpii.UpperNeck][0], truth[mpii.HeadTop][1]-truth[mpii.UpperNeck][1])
			if head == 0 || truth[mpii.HeadTop][2] == 0 || truth[mpii.UpperNeck][2] == 0 {
				continue
			}
			hm := pred.Heatmaps.Sample(s)
			for j := 0; j < joints; j++ {
				if truth[j][2] == 0 {
					continue
				}
				x, y, _ := mpii.Argmax(hm, j)
				visible[j]++
				if math.Hypot(float64(x)-truth[j][0], float64(y)-truth[j][1]) <= PCKhThreshold*head {
					correct[j]++
				}
			}
		}
	}
	report.Loss /= float64(batches)

	var totalCorrect, totalVisible int
	report.PerJoint = make([]float64, joints)
	for j := range report.PerJoint {
		totalCorrect += correct[j]
		totalVisible += visible[j]
		report.PerJoint[j] = math.NaN()
		if visible[j] > 0 {
			report.PerJoint[j] = float64(correct[j]) / float64(visible[j])
		}
	}
	switch {
	case !pckh:
		report.PCKh = math.NaN()
	case totalVisible > 0:
		report.PCKh = float64(totalCorrect) / float64(totalVisible)
	}
	fields := log.Fields{
		"samples": report.Samples,
		"loss":    report.Loss,
	}
	if pckh {
		fields["pckh"] = report.PCKh
	}
	log.WithFields(fields).Info("evaluation done")
	return report, nil
}
