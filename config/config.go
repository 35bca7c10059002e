// Package config loads the JSON training configuration.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/neurlang/blazepose/net/blazepose"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

var (
	// ErrMissingKey is returned when a required key is absent or empty.
	ErrMissingKey = errors.New("config: missing key")
	// ErrInvalidValue is returned for a key with an unusable value.
	ErrInvalidValue = errors.New("config: invalid value")
)

// EnvPrefix prefixes the environment variables overriding config keys,
// BLAZEPOSE_TRAIN_NB_EPOCHS overrides train.nb_epochs.
const EnvPrefix = "BLAZEPOSE"

// Config is the whole training configuration.
type Config struct {
	ExperimentName string      `mapstructure:"experiment_name"`
	Trainer        string      `mapstructure:"trainer"`
	Train          TrainConfig `mapstructure:"train"`
	Model          ModelConfig `mapstructure:"model"`
	Data           DataConfig  `mapstructure:"data"`

	// Path is the file the configuration was read from.
	Path string `mapstructure:"-"`
}

// TrainConfig holds the optimizer and loop settings.
type TrainConfig struct {
	LearningRate          float64 `mapstructure:"learning_rate"`
	LoadWeights           bool    `mapstructure:"load_weights"`
	PretrainedWeightsPath string  `mapstructure:"pretrained_weights_path"`
	TrainBatchSize        int     `mapstructure:"train_batch_size"`
	ValBatchSize          int     `mapstructure:"val_batch_size"`
	NbEpochs              int     `mapstructure:"nb_epochs"`
	Threads               int     `mapstructure:"threads"`
	Seed                  int64   `mapstructure:"seed"`
}

// ModelConfig describes the network.
type ModelConfig struct {
	NumJoints    int     `mapstructure:"num_joints"`
	ModelPhase   string  `mapstructure:"model_phase"`
	ImHeight     int     `mapstructure:"im_height"`
	ImWidth      int     `mapstructure:"im_width"`
	HeatmapSigma float64 `mapstructure:"heatmap_sigma"`
}

// DataConfig points at the MPII style image folders and label files.
type DataConfig struct {
	TrainImages string `mapstructure:"train_images"`
	TrainLabels string `mapstructure:"train_labels"`
	ValImages   string `mapstructure:"val_images"`
	ValLabels   string `mapstructure:"val_labels"`
}

// Default values.
const (
	DefaultTrainer      = "blazepose_heatmap"
	DefaultLearningRate = 0.001
	DefaultBatchSize    = 8
	DefaultEpochs       = 1
	DefaultNumJoints    = 16
	DefaultModelPhase   = string(blazepose.PhaseHeatmap)
	DefaultImSize       = 256
	DefaultSigma        = 2.0
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("trainer", DefaultTrainer)
	v.SetDefault("train.learning_rate", DefaultLearningRate)
	v.SetDefault("train.load_weights", false)
	v.SetDefault("train.pretrained_weights_path", "")
	v.SetDefault("train.train_batch_size", DefaultBatchSize)
	v.SetDefault("train.val_batch_size", DefaultBatchSize)
	v.SetDefault("train.nb_epochs", DefaultEpochs)
	v.SetDefault("train.threads", 0)
	v.SetDefault("train.seed", 0)
	v.SetDefault("model.num_joints", DefaultNumJoints)
	v.SetDefault("model.model_phase", DefaultModelPhase)
	v.SetDefault("model.im_height", DefaultImSize)
	v.SetDefault("model.im_width", DefaultImSize)
	v.SetDefault("model.heatmap_sigma", DefaultSigma)
	v.SetDefault("data.train_images", "")
	v.SetDefault("data.train_labels", "")
	v.SetDefault("data.val_images", "")
	v.SetDefault("data.val_labels", "")
}

// Load reads a JSON configuration file from fs, applying defaults and
// environment overrides. The result is not validated.
func Load(fs afero.Fs, path string) (*Config, error) {
	v := viper.New()
	v.SetFs(fs)
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config %s: %w", path, err)
	}
	cfg.Path = path
	return &cfg, nil
}

// Phase returns the parsed model phase.
func (c *Config) Phase() (blazepose.Phase, error) {
	return blazepose.ParsePhase(c.Model.ModelPhase)
}

// Validate checks that the configuration can drive a training run.
func (c *Config) Validate() error {
	var errs []error
	missing := func(key, value string) {
		if value == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingKey, key))
		}
	}
	positive := func(key string, value float64) {
		if value <= 0 {
			errs = append(errs, fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidValue, key, value))
		}
	}

	missing("experiment_name", c.ExperimentName)
	missing("trainer", c.Trainer)
	missing("data.train_images", c.Data.TrainImages)
	missing("data.train_labels", c.Data.TrainLabels)
	missing("data.val_images", c.Data.ValImages)
	missing("data.val_labels", c.Data.ValLabels)
	if c.Train.LoadWeights {
		missing("train.pretrained_weights_path", c.Train.PretrainedWeightsPath)
	}

	positive("train.learning_rate", c.Train.LearningRate)
	positive("train.train_batch_size", float64(c.Train.TrainBatchSize))
	positive("train.val_batch_size", float64(c.Train.ValBatchSize))
	positive("train.nb_epochs", float64(c.Train.NbEpochs))
	positive("model.num_joints", float64(c.Model.NumJoints))
	positive("model.heatmap_sigma", c.Model.HeatmapSigma)
	for _, dim := range []struct {
		key  string
		size int
	}{
		{"model.im_height", c.Model.ImHeight},
		{"model.im_width", c.Model.ImWidth},
	} {
		if dim.size <= 0 || dim.size%blazepose.Stride != 0 {
			errs = append(errs, fmt.Errorf("%w: %s must be a positive multiple of %d, got %d",
				ErrInvalidValue, dim.key, blazepose.Stride, dim.size))
		}
	}
	if c.Train.Threads < 0 {
		errs = append(errs, fmt.Errorf("%w: train.threads must not be negative", ErrInvalidValue))
	}
	if _, err := c.Phase(); err != nil {
		errs = append(errs, fmt.Errorf("%w: model.model_phase: %w", ErrInvalidValue, err))
	}
	if strings.ContainsAny(c.ExperimentName, `/\`) {
		errs = append(errs, fmt.Errorf("%w: experiment_name %q must not contain path separators", ErrInvalidValue, c.ExperimentName))
	}
	return errors.Join(errs...)
}
