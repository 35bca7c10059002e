package trainer

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// WeightsSaver is a model that can persist its weights.
type WeightsSaver interface {
	SaveWeights(fs afero.Fs, path string) error
}

// Checkpoint saves the weights after every epoch.
type Checkpoint struct {
	fs   afero.Fs
	net  WeightsSaver
	path func(epoch int) string
}

// NewCheckpoint saves net to path(epoch) at the end of each epoch.
func NewCheckpoint(fs afero.Fs, net WeightsSaver, path func(epoch int) string) *Checkpoint {
	return &Checkpoint{fs: fs, net: net, path: path}
}

func (c *Checkpoint) OnEpochEnd(epoch int, logs map[string]float64) error {
	path := c.path(epoch)
	log.Infof("Epoch %05d: saving model to %s", epoch, path)
	return c.net.SaveWeights(c.fs, path)
}
