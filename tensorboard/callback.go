package tensorboard

import (
	"errors"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Callback logs epoch metrics the way Keras does: training metrics to
// <dir>/train, validation metrics (the "val_" logs) to <dir>/validation,
// both tagged "epoch_<metric>".
type Callback struct {
	train      *Writer
	validation *Writer
}

// NewCallback opens the train and validation event files under dir.
func NewCallback(fs afero.Fs, dir string, runID uuid.UUID) (*Callback, error) {
	train, err := NewWriter(fs, filepath.Join(dir, "train"), runID)
	if err != nil {
		return nil, err
	}
	validation, err := NewWriter(fs, filepath.Join(dir, "validation"), runID)
	if err != nil {
		train.Close()
		return nil, err
	}
	return &Callback{train: train, validation: validation}, nil
}

// OnEpochEnd writes the logs of a finished epoch. Steps count epochs from 0.
func (c *Callback) OnEpochEnd(epoch int, logs map[string]float64) error {
	names := make([]string, 0, len(logs))
	for name := range logs {
		names = append(names, name)
	}
	sort.Strings(names)

	step := int64(epoch - 1)
	for _, name := range names {
		w, metric := c.train, name
		if strings.HasPrefix(name, "val_") {
			w, metric = c.validation, strings.TrimPrefix(name, "val_")
		}
		if err := w.AddScalar("epoch_"+metric, step, logs[name]); err != nil {
			return err
		}
	}
	if err := c.train.Flush(); err != nil {
		return err
	}
	return c.validation.Flush()
}

// Close closes both event files.
func (c *Callback) Close() error {
	return errors.Join(c.train.Close(), c.validation.Close())
}
