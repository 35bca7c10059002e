package trainer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/neurlang/blazepose/config"
	"github.com/neurlang/blazepose/datasets/mpii"
	"github.com/neurlang/blazepose/experiment"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeData stores a 32x32 gradient image and n labels cropping all of it.
func writeData(t *testing.T, fs afero.Fs, labels string, n int) {
	writeJoints(t, fs, labels, n, mpii.NumJoints)
}

func writeJoints(t *testing.T, fs afero.Fs, labels string, n, numJoints int) {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: uint8(8 * x), G: uint8(8 * y), B: 128, A: 255})
		}
	}
	f, err := fs.Create("data/images/im.png")
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	joints := make([][3]float64, numJoints)
	for j := range joints {
		joints[j] = [3]float64{float64(4 + j), float64(20 - j/2), 1}
	}
	if numJoints > mpii.HeadTop {
		joints[mpii.UpperNeck] = [3]float64{16, 12, 1}
		joints[mpii.HeadTop] = [3]float64{16, 6, 1}
	}
	list := make([]mpii.Label, n)
	for i := range list {
		list[i] = mpii.Label{
			ImgPath:   "im.png",
			ImgWidth:  32,
			ImgHeight: 32,
			ObjPos:    [2]float64{16, 16 - 15*0.128},
			Joints:    joints,
			Scale:     0.128,
		}
	}
	data, err := json.Marshal(list)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, labels, data, 0644))
}

func testConfig(t *testing.T, fs afero.Fs, extra string) *config.Config {
	writeData(t, fs, "data/train.json", 4)
	writeData(t, fs, "data/val.json", 2)
	body := fmt.Sprintf(`{
		"experiment_name": "tiny",
		"trainer": "blazepose_heatmap",
		"train": {
			"learning_rate": 0.001,
			"train_batch_size": 2,
			"val_batch_size": 2,
			"nb_epochs": 2,
			"threads": 2,
			"seed": 11
			%s
		},
		"model": {"num_joints": 16, "model_phase": "heatmap", "im_height": 16, "im_width": 16},
		"data": {
			"train_images": "data/images",
			"train_labels": "data/train.json",
			"val_images": "data/images",
			"val_labels": "data/val.json"
		}
	}`, extra)
	require.NoError(t, afero.WriteFile(fs, "config.json", []byte(body), 0644))
	cfg, err := config.Load(fs, "config.json")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	return cfg
}

func train(t *testing.T, fs afero.Fs, cfg *config.Config) (*experiment.Run, error) {
	run, err := experiment.New(fs, "experiments", cfg.ExperimentName)
	require.NoError(t, err)
	return run, Train(context.Background(), cfg, run)
}

func TestRegistry(t *testing.T) {
	f, err := Lookup(BlazePoseHeatmap)
	require.NoError(t, err)
	assert.NotNil(t, f)
	assert.Contains(t, Names(), BlazePoseHeatmap)

	_, err = Lookup("blazepose_regression")
	assert.ErrorIs(t, err, ErrUnknownTrainer)

	assert.Panics(t, func() { Register(BlazePoseHeatmap, TrainBlazePoseHeatmap) })
	assert.Panics(t, func() { Register("nil", nil) })

	err = Train(context.Background(), &config.Config{Trainer: "nope"}, nil)
	assert.ErrorIs(t, err, ErrUnknownTrainer)
}

func TestTrainBlazePoseHeatmap(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := testConfig(t, fs, "")
	run, err := train(t, fs, cfg)
	require.NoError(t, err)

	for _, epoch := range []int{1, 2} {
		ok, err := afero.Exists(fs, run.CheckpointPath(epoch))
		require.NoError(t, err)
		assert.True(t, ok, "epoch %d", epoch)
	}
	ok, _ := afero.Exists(fs, run.CheckpointPath(3))
	assert.False(t, ok)

	for _, dir := range []string{"train", "validation"} {
		infos, err := afero.ReadDir(fs, "experiments/tiny/tb_logs/"+dir)
		require.NoError(t, err)
		assert.Len(t, infos, 1, dir)
	}

	// resume from the last checkpoint
	resumed := testConfig(t, fs, `, "load_weights": true, "pretrained_weights_path": "experiments/tiny/models/model_ep002.h5"`)
	resumed.Train.NbEpochs = 1
	_, err = train(t, fs, resumed)
	require.NoError(t, err)

	report, err := Evaluate(context.Background(), fs, cfg, run.CheckpointPath(2), EvaluateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Samples)
	assert.Len(t, report.PerJoint, mpii.NumJoints)
	assert.GreaterOrEqual(t, report.PCKh, 0.0)
	assert.LessOrEqual(t, report.PCKh, 1.0)
	assert.Greater(t, report.Loss, 0.0)
}

func TestTrainBlazePoseHeatmap_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := testConfig(t, fs, `, "load_weights": true, "pretrained_weights_path": "missing.h5"`)
	_, err := train(t, fs, cfg)
	assert.Error(t, err)

	cfg = testConfig(t, fs, "")
	cfg.Train.TrainBatchSize = 8
	_, err = train(t, fs, cfg)
	assert.ErrorContains(t, err, "steps per epoch")

	cfg = testConfig(t, fs, "")
	cfg.Model.NumJoints = 14
	_, err = train(t, fs, cfg)
	assert.ErrorContains(t, err, "joints")

	cfg = testConfig(t, fs, "")
	cfg.Data.TrainImages = "data/nowhere"
	_, err = train(t, fs, cfg)
	assert.Error(t, err)

	cfg = testConfig(t, fs, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	run, err := experiment.New(fs, "experiments", cfg.ExperimentName)
	require.NoError(t, err)
	assert.ErrorIs(t, Train(ctx, cfg, run), context.Canceled)
}

func TestEvaluate_WithoutHeadJoints(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := testConfig(t, fs, "")
	writeJoints(t, fs, "data/train.json", 4, 8)
	writeJoints(t, fs, "data/val.json", 2, 8)
	cfg.Model.NumJoints = 8
	cfg.Train.NbEpochs = 1
	require.NoError(t, cfg.Validate())
	run, err := train(t, fs, cfg)
	require.NoError(t, err)

	report, err := Evaluate(context.Background(), fs, cfg, run.CheckpointPath(1), EvaluateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Samples)
	assert.Greater(t, report.Loss, 0.0)
	assert.True(t, math.IsNaN(report.PCKh))
	require.Len(t, report.PerJoint, 8)
	for _, v := range report.PerJoint {
		assert.True(t, math.IsNaN(v))
	}
}

type savedPaths []string

func (s *savedPaths) SaveWeights(fs afero.Fs, path string) error {
	*s = append(*s, path)
	return nil
}

func (s *savedPaths) LoadWeights(fs afero.Fs, path string) error {
	return errors.New("no weights at " + path)
}

func TestCheckpointAndResume(t *testing.T) {
	var saved savedPaths
	cb := NewCheckpoint(afero.NewMemMapFs(), &saved, func(epoch int) string {
		return fmt.Sprintf("model_ep%03d.h5", epoch)
	})
	require.NoError(t, cb.OnEpochEnd(1, nil))
	require.NoError(t, cb.OnEpochEnd(2, nil))
	assert.Equal(t, savedPaths{"model_ep001.h5", "model_ep002.h5"}, saved)

	assert.NoError(t, Resume(afero.NewMemMapFs(), &saved, false, "x.h5"))
	assert.ErrorContains(t, Resume(afero.NewMemMapFs(), &saved, true, "x.h5"), "x.h5")
}

func TestSampleSize(t *testing.T) {
	assert.Equal(t, 1000, sampleSize(1000, 0))
	assert.Equal(t, 277, sampleSize(1000, 95))
	assert.Equal(t, 8, sampleSize(10, 90))
	assert.Equal(t, 1, sampleSize(1, 95))
}
