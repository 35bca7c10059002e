// Package tensorboard writes scalar summaries in the TensorFlow event file
// format, readable by TensorBoard.
package tensorboard

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Writer appends events to one event file.
type Writer struct {
	mut  sync.Mutex
	file afero.File
	path string
	now  func() time.Time
}

// NewWriter creates dir and an event file named after the current time, the
// host and the run.
func NewWriter(fs afero.Fs, dir string, runID uuid.UUID) (*Writer, error) {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	w := &Writer{now: time.Now}
	w.path = filepath.Join(dir, fmt.Sprintf("events.out.tfevents.%d.%s.%s", w.now().Unix(), host, runID))
	if w.file, err = fs.Create(w.path); err != nil {
		return nil, err
	}
	if err := writeRecord(w.file, marshalVersion(w.wallTime())); err != nil {
		w.file.Close()
		return nil, err
	}
	return w, nil
}

// Path returns the event file name.
func (w *Writer) Path() string {
	return w.path
}

func (w *Writer) wallTime() float64 {
	return float64(w.now().UnixNano()) / 1e9
}

// AddScalar records value under tag at step.
func (w *Writer) AddScalar(tag string, step int64, value float64) error {
	w.mut.Lock()
	defer w.mut.Unlock()
	return writeRecord(w.file, marshalScalar(w.wallTime(), step, tag, float32(value)))
}

// Flush commits written events to storage.
func (w *Writer) Flush() error {
	w.mut.Lock()
	defer w.mut.Unlock()
	return w.file.Sync()
}

// Close flushes and closes the event file.
func (w *Writer) Close() error {
	w.mut.Lock()
	defer w.mut.Unlock()
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
