package mpii

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"

	"github.com/neurlang/blazepose/datasets"
	"github.com/neurlang/blazepose/tensor"
	"github.com/spf13/afero"
)

// Resolution is a height and width in pixels.
type Resolution struct {
	Height, Width int
}

// Dataset is an annotated image folder.
type Dataset struct {
	fs        afero.Fs
	imagesDir string
	labels    []Label
	inputRes  Resolution
	outputRes Resolution
	isTrain   bool
}

// New loads the labels of a dataset. Images are read lazily.
func New(fs afero.Fs, imagesDir, labelsPath string, inputRes, outputRes Resolution, isTrain bool) (*Dataset, error) {
	if inputRes.Height <= 0 || inputRes.Width <= 0 || outputRes.Height <= 0 || outputRes.Width <= 0 {
		return nil, fmt.Errorf("mpii: bad resolution %v -> %v", inputRes, outputRes)
	}
	labels, err := ReadLabels(fs, labelsPath)
	if err != nil {
		return nil, err
	}
	return &Dataset{
		fs:        fs,
		imagesDir: imagesDir,
		labels:    labels,
		inputRes:  inputRes,
		outputRes: outputRes,
		isTrain:   isTrain,
	}, nil
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	return len(d.labels)
}

// NumJoints returns the number of joints per sample.
func (d *Dataset) NumJoints() int {
	return len(d.labels[0].Joints)
}

// IsTrain reports whether the dataset was opened for training.
func (d *Dataset) IsTrain() bool {
	return d.isTrain
}

// Sample is one cropped person with its targets.
type Sample struct {
	Image     *tensor.Tensor // [H, W, 3]
	Heatmap   *tensor.Tensor // [h, w, J]
	Keypoints *tensor.Tensor // [J*3]
	Meta      datasets.Meta
}

func (d *Dataset) loadImage(path string) (image.Image, error) {
	f, err := d.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return img, nil
}

// Sample crops the i-th person, applies the augmentation and renders its heatmaps.
func (d *Dataset) Sample(i int, a Augmentation, sigma float64) (*Sample, error) {
	label := d.labels[i]
	path := filepath.Join(d.imagesDir, label.ImgPath)
	src, err := d.loadImage(path)
	if err != nil {
		return nil, err
	}
	inH, inW := d.inputRes.Height, d.inputRes.Width
	outH, outW := d.outputRes.Height, d.outputRes.Width

	cx, cy, side := label.box()
	m := newAffine(cx, cy, side, a, inW, inH)
	crop := m.warp(src, inW, inH)

	img := tensor.New(inH, inW, 3)
	for y := 0; y < inH; y++ {
		for x := 0; x < inW; x++ {
			o := crop.PixOffset(x, y)
			for c := 0; c < 3; c++ {
				img.Data[(y*inW+x)*3+c] = float32(crop.Pix[o+c]) / 255
			}
		}
	}

	joints := make([][3]float64, len(label.Joints))
	for j, p := range label.Joints {
		if !annotated(p) {
			continue
		}
		x, y := m.apply(p[0], p[1])
		vis := 0.0
		if p[2] > 0 && x >= 0 && y >= 0 && x < float64(inW) && y < float64(inH) {
			vis = 1
		}
		joints[j] = [3]float64{x, y, vis}
	}
	if a.Flip {
		flipJoints(joints)
	}

	numJoints := len(joints)
	hm := tensor.New(outH, outW, numJoints)
	kp := tensor.New(numJoints * 3)
	fx, fy := float64(outW)/float64(inW), float64(outH)/float64(inH)
	meta := datasets.Meta{
		ImagePath: path,
		Center:    [2]float64{cx, cy},
		Scale:     label.Scale,
		Rotation:  a.Rotation,
		Flipped:   a.Flip,
		Joints:    make([][3]float64, numJoints),
	}
	for j, p := range joints {
		meta.Joints[j] = [3]float64{p[0] * fx, p[1] * fy, p[2]}
		if p[2] == 0 {
			continue
		}
		DrawGaussian(hm, j, p[0]*fx, p[1]*fy, sigma)
		kp.Data[3*j] = float32(p[0] / float64(inW))
		kp.Data[3*j+1] = float32(p[1] / float64(inH))
		kp.Data[3*j+2] = 1
	}
	return &Sample{Image: img, Heatmap: hm, Keypoints: kp, Meta: meta}, nil
}
