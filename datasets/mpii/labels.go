// Package mpii reads MPII human pose annotations and generates augmented
// image and heatmap batches from them.
package mpii

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/afero"
)

// ErrNoSamples is returned for an annotation file without samples.
var ErrNoSamples = errors.New("mpii: no samples")

// NumJoints is the number of joints annotated per person in MPII.
const NumJoints = 16

// FlipPairs are the left/right joint pairs swapped by a horizontal flip:
// ankles, knees, hips, wrists, elbows and shoulders.
var FlipPairs = [][2]int{{0, 5}, {1, 4}, {2, 3}, {10, 15}, {11, 14}, {12, 13}}

// Head segment joints used to normalise PCKh.
const (
	UpperNeck = 8
	HeadTop   = 9
)

// Label is one annotated person.
type Label struct {
	ImgPath   string       `json:"img_paths"`
	ImgWidth  float64      `json:"img_width"`
	ImgHeight float64      `json:"img_height"`
	ObjPos    [2]float64   `json:"objpos"`
	Joints    [][3]float64 `json:"joint_self"`
	Scale     float64      `json:"scale_provided"`
}

// ReadLabels loads a JSON array of labels.
func ReadLabels(fs afero.Fs, path string) ([]Label, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	var labels []Label
	if err := json.Unmarshal(data, &labels); err != nil {
		return nil, fmt.Errorf("parse labels %s: %w", path, err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoSamples)
	}
	joints := len(labels[0].Joints)
	for i, l := range labels {
		if len(l.Joints) != joints {
			return nil, fmt.Errorf("%s: label %d has %d joints, want %d", path, i, len(l.Joints), joints)
		}
		if l.ImgPath == "" {
			return nil, fmt.Errorf("%s: label %d has no image path", path, i)
		}
		if l.Scale <= 0 {
			return nil, fmt.Errorf("%s: label %d has scale %v", path, i, l.Scale)
		}
	}
	return labels, nil
}

// annotated reports whether the joint has usable coordinates.
func annotated(j [3]float64) bool {
	return j[0] > 0 && j[1] > 0
}

// box returns the crop centre and side length of a person in source pixels.
func (l Label) box() (cx, cy, side float64) {
	cx, cy = l.ObjPos[0], l.ObjPos[1]
	scale := l.Scale
	if cx != -1 {
		cy += 15 * scale
		scale *= 1.25
	}
	return cx, cy, scale * 200
}
