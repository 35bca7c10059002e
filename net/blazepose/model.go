// Package blazepose implements the BlazePose keypoint network: a BlazeBlock
// backbone shared by a heatmap head and a keypoint regression head.
package blazepose

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/neurlang/blazepose/layer"
	"github.com/neurlang/blazepose/layer/activation"
	"github.com/neurlang/blazepose/layer/blazeblock"
	"github.com/neurlang/blazepose/layer/conv2d"
	"github.com/neurlang/blazepose/layer/full"
	"github.com/neurlang/blazepose/layer/sum"
	"github.com/neurlang/blazepose/layer/upsample"
	"github.com/neurlang/blazepose/learning"
	"github.com/neurlang/blazepose/net/feedforward"
	"github.com/neurlang/blazepose/tensor"
	"github.com/spf13/afero"
)

// Stride is the total downsampling of the backbone.
const Stride = 8

var (
	// ErrNotBuilt is returned when the model is used before Build.
	ErrNotBuilt = errors.New("blazepose: model not built")
	// ErrNotCompiled is returned when training before Compile.
	ErrNotCompiled = errors.New("blazepose: model not compiled")
)

// Model is a BlazePose network for a fixed input resolution.
type Model struct {
	NumJoints int
	Phase     Phase
	ImHeight  int
	ImWidth   int

	// Seed initializes the weights, 0 seeds from the clock.
	Seed int64

	backbone   feedforward.FeedforwardNetwork
	heatmap    feedforward.FeedforwardNetwork
	regression feedforward.FeedforwardNetwork

	opt   learning.Optimizer
	built bool
}

// New describes a model. Call Build to create its layers.
func New(numJoints int, phase Phase, imHeight, imWidth int) *Model {
	return &Model{
		NumJoints: numJoints,
		Phase:     phase,
		ImHeight:  imHeight,
		ImWidth:   imWidth,
	}
}

// Build creates and initializes the layers.
func (m *Model) Build() error {
	if m.NumJoints <= 0 {
		return fmt.Errorf("blazepose: %d joints", m.NumJoints)
	}
	if m.ImHeight <= 0 || m.ImWidth <= 0 || m.ImHeight%Stride != 0 || m.ImWidth%Stride != 0 {
		return fmt.Errorf("blazepose: %w: input %dx%d must be a positive multiple of %d",
			tensor.ErrShapeMismatch, m.ImHeight, m.ImWidth, Stride)
	}
	if _, err := ParsePhase(string(m.Phase)); err != nil {
		return err
	}

	m.backbone = feedforward.FeedforwardNetwork{}
	m.backbone.NewLayer(conv2d.MustNew("backbone/conv1", 3, 2, 3, 16))
	m.backbone.NewLayer(activation.NewReLU("backbone/conv1/relu"))
	m.backbone.NewLayer(blazeblock.MustNew("backbone/block1", 16, 16, 1))
	m.backbone.NewLayer(blazeblock.MustNew("backbone/block2", 16, 32, 2))
	m.backbone.NewLayer(blazeblock.MustNew("backbone/block3", 32, 64, 2))
	m.backbone.NewLayer(blazeblock.MustNew("backbone/block4", 64, 64, 1))

	m.heatmap = feedforward.FeedforwardNetwork{}
	m.heatmap.NewLayer(upsample.New("heatmap/up1", 2))
	m.heatmap.NewLayer(conv2d.MustNew("heatmap/conv1", 3, 1, 64, 32))
	m.heatmap.NewLayer(activation.NewReLU("heatmap/conv1/relu"))
	m.heatmap.NewLayer(upsample.New("heatmap/up2", 2))
	m.heatmap.NewLayer(conv2d.MustNew("heatmap/conv2", 3, 1, 32, m.NumJoints))

	m.regression = feedforward.FeedforwardNetwork{}
	m.regression.NewLayer(sum.New("regression/pool"))
	m.regression.NewLayer(full.MustNew("regression/dense", 64, 3*m.NumJoints))

	seed := m.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	m.backbone.Init(rng)
	m.heatmap.Init(rng)
	m.regression.Init(rng)

	frozen := m.Phase == PhaseRegression
	m.backbone.SetFrozen(frozen)
	m.heatmap.SetFrozen(frozen)
	m.regression.SetFrozen(!m.Phase.trainsRegression())

	m.built = true
	return nil
}

// Compile sets the optimizer used by Fit.
func (m *Model) Compile(opt learning.Optimizer) {
	m.opt = opt
}

// OutputRes is the heatmap resolution: half the input.
func (m *Model) OutputRes() (height, width int) {
	return m.ImHeight / 2, m.ImWidth / 2
}

// Params returns all parameters, trainable or not.
func (m *Model) Params() (o []*layer.Param) {
	o = append(o, m.backbone.Params()...)
	o = append(o, m.heatmap.Params()...)
	o = append(o, m.regression.Params()...)
	return o
}

// Prediction holds both head outputs as probabilities.
type Prediction struct {
	Heatmaps  *tensor.Tensor // [N, H/2, W/2, J]
	Keypoints *tensor.Tensor // [N, J*3]
}

// Predict runs inference on a [N, H, W, 3] batch.
func (m *Model) Predict(x *tensor.Tensor) (*Prediction, error) {
	if !m.built {
		return nil, ErrNotBuilt
	}
	hm, kp, err := m.forward(x, false, true, true)
	if err != nil {
		return nil, err
	}
	return &Prediction{Heatmaps: activation.Sigmoid(hm), Keypoints: activation.Sigmoid(kp)}, nil
}

func (m *Model) forward(x *tensor.Tensor, training, heatmap, regression bool) (hm, kp *tensor.Tensor, err error) {
	want := []int{x.Batch(), m.ImHeight, m.ImWidth, 3}
	if !tensor.EqualShape(x.Shape, want) {
		return nil, nil, fmt.Errorf("blazepose: %w: input %v, want %v", tensor.ErrShapeMismatch, x.Shape, want)
	}
	feat, err := m.backbone.Forward(x, training && m.Phase != PhaseRegression)
	if err != nil {
		return nil, nil, err
	}
	if heatmap {
		if hm, err = m.heatmap.Forward(feat, training); err != nil {
			return nil, nil, err
		}
	}
	if regression {
		if kp, err = m.regression.Forward(feat, training); err != nil {
			return nil, nil, err
		}
	}
	return hm, kp, nil
}

// SaveWeights writes all parameters to path.
func (m *Model) SaveWeights(fs afero.Fs, path string) error {
	if !m.built {
		return ErrNotBuilt
	}
	return feedforward.WriteParamsToFile(fs, path, m.Params())
}

// LoadWeights reads parameters written by SaveWeights.
func (m *Model) LoadWeights(fs afero.Fs, path string) error {
	if !m.built {
		return ErrNotBuilt
	}
	if err := feedforward.ReadParamsFromFile(fs, path, m.Params()); err != nil {
		return fmt.Errorf("load weights %s: %w", path, err)
	}
	return nil
}
