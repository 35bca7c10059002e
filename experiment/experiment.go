// Package experiment lays out the output folder of a training run:
//
//	<experiments>/<name>/<config file>
//	<experiments>/<name>/tb_logs/
//	<experiments>/<name>/models/model_ep001.h5
package experiment

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Run is one experiment folder.
type Run struct {
	Fs  afero.Fs
	Dir string
	ID  uuid.UUID
}

// New creates the experiment folders. Existing folders are reused.
func New(fs afero.Fs, experimentsDir, name string) (*Run, error) {
	r := &Run{
		Fs:  fs,
		Dir: filepath.Join(experimentsDir, name),
		ID:  uuid.New(),
	}
	for _, dir := range []string{r.Dir, r.TBLogDir(), r.ModelsDir()} {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create experiment folder: %w", err)
		}
	}
	return r, nil
}

// TBLogDir holds the TensorBoard event files.
func (r *Run) TBLogDir() string {
	return filepath.Join(r.Dir, "tb_logs")
}

// ModelsDir holds the checkpoints.
func (r *Run) ModelsDir() string {
	return filepath.Join(r.Dir, "models")
}

// CheckpointPath names the checkpoint of an epoch, counted from 1.
func (r *Run) CheckpointPath(epoch int) string {
	return filepath.Join(r.ModelsDir(), fmt.Sprintf("model_ep%03d.h5", epoch))
}

// CopyConfig copies the configuration file into the experiment folder,
// keeping its base name.
func (r *Run) CopyConfig(path string) error {
	data, err := afero.ReadFile(r.Fs, path)
	if err != nil {
		return fmt.Errorf("copy config: %w", err)
	}
	if err := afero.WriteFile(r.Fs, filepath.Join(r.Dir, filepath.Base(path)), data, 0644); err != nil {
		return fmt.Errorf("copy config: %w", err)
	}
	return nil
}
