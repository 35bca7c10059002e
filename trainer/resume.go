package trainer

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// WeightsLoader is a model that can restore its weights.
type WeightsLoader interface {
	LoadWeights(fs afero.Fs, path string) error
}

// Resume loads pretrained weights into net when requested.
func Resume(fs afero.Fs, net WeightsLoader, resume bool, path string) error {
	if !resume {
		return nil
	}
	log.Info("Loading model weights: " + path)
	return net.LoadWeights(fs, path)
}
