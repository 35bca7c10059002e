package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/neurlang/blazepose/config"
	"github.com/neurlang/blazepose/datasets/mpii"
	"github.com/neurlang/blazepose/trainer"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `{
	"experiment_name": "cli",
	"trainer": "blazepose_heatmap",
	"train": {
		"learning_rate": 0.001,
		"load_weights": false,
		"pretrained_weights_path": "",
		"train_batch_size": 1,
		"val_batch_size": 1,
		"nb_epochs": 1,
		"threads": 1,
		"seed": 1
	},
	"model": {"num_joints": 16, "model_phase": "heatmap", "im_height": 16, "im_width": 16},
	"data": {
		"train_images": "images",
		"train_labels": "labels.json",
		"val_images": "images",
		"val_labels": "labels.json"
	}
}`

func fixture(t *testing.T, cfg string) afero.Fs {
	fs := afero.NewMemMapFs()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = uint8(i)
	}
	img.Set(0, 0, color.RGBA{A: 255})
	f, err := fs.Create("images/p.png")
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	joints := make([][3]float64, mpii.NumJoints)
	for j := range joints {
		joints[j] = [3]float64{float64(1 + j%14), float64(2 + j%12), 1}
	}
	labels, err := json.Marshal([]mpii.Label{{
		ImgPath: "p.png",
		ObjPos:  [2]float64{8, 8 - 15*0.064},
		Joints:  joints,
		Scale:   0.064,
	}})
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, "labels.json", labels, 0644))
	require.NoError(t, afero.WriteFile(fs, "config.json", []byte(cfg), 0644))
	return fs
}

func execute(fs afero.Fs, args ...string) (string, error) {
	cmd := NewRootCmd(fs)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(afero.NewMemMapFs(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "blazepose "+Version)
}

func TestHelpCommand(t *testing.T) {
	out, err := execute(afero.NewMemMapFs(), "--help")
	require.NoError(t, err)
	for _, sub := range []string{"train", "eval", "devices", "version"} {
		assert.Contains(t, out, sub)
	}
}

func TestDevicesCommand(t *testing.T) {
	out, err := execute(afero.NewMemMapFs(), "devices")
	require.NoError(t, err)
	assert.Contains(t, out, "Threads")
}

func TestTrainCommand(t *testing.T) {
	fs := fixture(t, testConfig)
	_, err := execute(fs, "train", "-c", "config.json", "-e", "runs", "--log-level", "warn")
	require.NoError(t, err)

	copied, err := afero.ReadFile(fs, "runs/cli/config.json")
	require.NoError(t, err)
	assert.Equal(t, testConfig, string(copied))
	ok, err := afero.Exists(fs, "runs/cli/models/model_ep001.h5")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = afero.DirExists(fs, "runs/cli/tb_logs")
	require.NoError(t, err)
	assert.True(t, ok)

	out, err := execute(fs, "eval", "-c", "config.json", "-m", "runs/cli/models/model_ep001.h5", "--log-level", "warn")
	require.NoError(t, err)
	assert.Contains(t, out, "PCKh")
}

func TestTrainCommand_Errors(t *testing.T) {
	_, err := execute(afero.NewMemMapFs(), "train", "-c", "missing.json")
	assert.Error(t, err)
	assert.Equal(t, ExitGeneralError, exitCodeFromError(err))

	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(testConfig), &raw))
	raw["trainer"] = "nope"
	body, err := json.Marshal(raw)
	require.NoError(t, err)
	fs := fixture(t, string(body))
	_, err = execute(fs, "train")
	assert.ErrorIs(t, err, trainer.ErrUnknownTrainer)
	ok, _ := afero.DirExists(fs, "experiments/cli")
	assert.False(t, ok)

	delete(raw, "experiment_name")
	raw["trainer"] = trainer.BlazePoseHeatmap
	body, err = json.Marshal(raw)
	require.NoError(t, err)
	_, err = execute(fixture(t, string(body)), "train")
	assert.ErrorIs(t, err, config.ErrMissingKey)

	_, err = execute(afero.NewMemMapFs(), "train", "--no-such-flag")
	assert.Equal(t, ExitInvalidArgs, exitCodeFromError(err))

	_, err = execute(afero.NewMemMapFs(), "version", "--log-format", "xml")
	assert.Equal(t, ExitInvalidArgs, exitCodeFromError(err))

	_, err = execute(afero.NewMemMapFs(), "train", "extra")
	assert.ErrorContains(t, err, "extra")
	assert.Equal(t, ExitInvalidArgs, exitCodeFromError(err))

	_, err = execute(afero.NewMemMapFs(), "nosuchcmd")
	assert.ErrorContains(t, err, "nosuchcmd")
	assert.Equal(t, ExitInvalidArgs, exitCodeFromError(err))

	_, err = execute(fixture(t, testConfig), "eval")
	assert.ErrorContains(t, err, "model")
	assert.Equal(t, ExitInvalidArgs, exitCodeFromError(err))
}

func TestRootCommand_NoArgsPrintsHelp(t *testing.T) {
	out, err := execute(afero.NewMemMapFs())
	require.NoError(t, err)
	assert.Contains(t, out, "Available Commands")
}

func TestExitCodeFromError(t *testing.T) {
	assert.Equal(t, ExitSuccess, exitCodeFromError(nil))
	assert.Equal(t, ExitGeneralError, exitCodeFromError(errors.New("boom")))
	assert.Equal(t, ExitInvalidArgs, exitCodeFromError(&usageError{errors.New("bad flag")}))
}
