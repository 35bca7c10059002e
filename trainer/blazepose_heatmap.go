package trainer

import (
	"context"
	"errors"
	"fmt"

	"github.com/neurlang/blazepose/config"
	"github.com/neurlang/blazepose/datasets"
	"github.com/neurlang/blazepose/datasets/mpii"
	"github.com/neurlang/blazepose/device"
	"github.com/neurlang/blazepose/experiment"
	"github.com/neurlang/blazepose/layer"
	"github.com/neurlang/blazepose/learning"
	"github.com/neurlang/blazepose/net/blazepose"
	"github.com/neurlang/blazepose/tensorboard"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// BlazePoseHeatmap is the name of the MPII BlazePose trainer.
const BlazePoseHeatmap = "blazepose_heatmap"

// prefetched batches per generator
const prefetch = 2

func init() {
	Register(BlazePoseHeatmap, TrainBlazePoseHeatmap)
}

// LoadModel builds the configured model and loads weights from path.
func LoadModel(fs afero.Fs, cfg *config.Config, path string) (*blazepose.Model, error) {
	phase, err := cfg.Phase()
	if err != nil {
		return nil, err
	}
	model := blazepose.New(cfg.Model.NumJoints, phase, cfg.Model.ImHeight, cfg.Model.ImWidth)
	model.Seed = cfg.Train.Seed
	if err := model.Build(); err != nil {
		return nil, err
	}
	if path != "" {
		if err := model.LoadWeights(fs, path); err != nil {
			return nil, err
		}
	}
	return model, nil
}

// openDataset opens an MPII split at the model's resolution.
func openDataset(fs afero.Fs, model *blazepose.Model, images, labels string, isTrain bool) (*mpii.Dataset, error) {
	outH, outW := model.OutputRes()
	d, err := mpii.New(fs, images, labels,
		mpii.Resolution{Height: model.ImHeight, Width: model.ImWidth},
		mpii.Resolution{Height: outH, Width: outW}, isTrain)
	if err != nil {
		return nil, err
	}
	if d.NumJoints() != model.NumJoints {
		return nil, fmt.Errorf("%s: %d joints per label, model has %d", labels, d.NumJoints(), model.NumJoints)
	}
	return d, nil
}

// TrainBlazePoseHeatmap trains BlazePose on MPII with binary cross-entropy
// on the heatmaps, checkpointing every epoch.
func TrainBlazePoseHeatmap(ctx context.Context, cfg *config.Config, run *experiment.Run) (err error) {
	fs := run.Fs
	threads := device.Threads(cfg.Train.Threads)
	layer.Threads = threads

	model, err := LoadModel(fs, cfg, "")
	if err != nil {
		return err
	}
	opt := learning.NewAdam(learning.HyperParameters{
		LearningRate: cfg.Train.LearningRate,
		Threads:      threads,
	})
	model.Compile(opt)
	if err := Resume(fs, model, cfg.Train.LoadWeights, cfg.Train.PretrainedWeightsPath); err != nil {
		return err
	}

	tb, err := tensorboard.NewCallback(fs, run.TBLogDir(), run.ID)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, tb.Close())
	}()
	mc := NewCheckpoint(fs, model, run.CheckpointPath)

	trainSet, err := openDataset(fs, model, cfg.Data.TrainImages, cfg.Data.TrainLabels, true)
	if err != nil {
		return err
	}
	valSet, err := openDataset(fs, model, cfg.Data.ValImages, cfg.Data.ValLabels, false)
	if err != nil {
		return err
	}

	trainGen, err := trainSet.Generator(cfg.Train.TrainBatchSize, mpii.GeneratorOptions{
		Sigma:   cfg.Model.HeatmapSigma,
		Shuffle: true,
		Rotate:  true,
		Scale:   true,
		Flip:    true,
		Threads: threads,
		Seed:    cfg.Train.Seed,
	})
	if err != nil {
		return err
	}
	valGen, err := valSet.Generator(cfg.Train.ValBatchSize, mpii.GeneratorOptions{
		Sigma:   cfg.Model.HeatmapSigma,
		Threads: threads,
		Seed:    cfg.Train.Seed,
	})
	if err != nil {
		return err
	}

	opts := blazepose.FitOptions{
		Epochs:          cfg.Train.NbEpochs,
		StepsPerEpoch:   trainSet.Len() / cfg.Train.TrainBatchSize,
		ValidationSteps: valSet.Len() / cfg.Train.ValBatchSize,
		Callbacks:       []blazepose.Callback{tb, mc},
	}
	log.WithFields(log.Fields{
		"train_samples":    trainSet.Len(),
		"val_samples":      valSet.Len(),
		"steps_per_epoch":  opts.StepsPerEpoch,
		"validation_steps": opts.ValidationSteps,
		"threads":          threads,
		"learning_rate":    opt.LearningRate(),
		"phase":            model.Phase,
	}).Info("starting training")

	train := datasets.Prefetch(ctx, trainGen, prefetch)
	defer func() {
		err = errors.Join(err, train.Close())
	}()
	var val datasets.Iterator
	if opts.ValidationSteps > 0 {
		p := datasets.Prefetch(ctx, valGen, prefetch)
		defer func() {
			err = errors.Join(err, p.Close())
		}()
		val = p
	}

	_, err = model.Fit(ctx, train, val, opts)
	return err
}
