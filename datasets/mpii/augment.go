package mpii

import (
	"image"
	"math"
	"math/rand"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Augmentation is the random part of a sample's crop.
type Augmentation struct {
	Scale    float64 // multiplies the crop side, 1 keeps it
	Rotation float64 // degrees
	Flip     bool
}

// Identity leaves the crop as annotated.
var Identity = Augmentation{Scale: 1}

// Draw samples an augmentation, enabling only the requested parts.
func Draw(rng *rand.Rand, scale, rotate, flip bool) Augmentation {
	a := Identity
	if scale {
		a.Scale = 0.75 + 0.5*rng.Float64()
	}
	if rotate && rng.Float64() < 0.5 {
		a.Rotation = 60*rng.Float64() - 30
	}
	if flip && rng.Float64() < 0.5 {
		a.Flip = true
	}
	return a
}

// affine maps source pixel coordinates into a crop of w x h pixels.
type affine f64.Aff3

func newAffine(cx, cy, side float64, a Augmentation, w, h int) affine {
	side *= a.Scale
	sx, sy := float64(w)/side, float64(h)/side
	if a.Flip {
		sx = -sx
	}
	sin, cos := math.Sincos(a.Rotation * math.Pi / 180)
	a00, a01 := sx*cos, -sx*sin
	a10, a11 := sy*sin, sy*cos
	return affine{
		a00, a01, float64(w)/2 - a00*cx - a01*cy,
		a10, a11, float64(h)/2 - a10*cx - a11*cy,
	}
}

func (m affine) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}

// warp renders the crop of src into a new w x h image.
func (m affine) warp(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Transform(dst, f64.Aff3(m), src, src.Bounds(), draw.Src, nil)
	return dst
}

// flipJoints swaps left and right joints in place.
func flipJoints(joints [][3]float64) {
	for _, p := range FlipPairs {
		if p[0] < len(joints) && p[1] < len(joints) {
			joints[p[0]], joints[p[1]] = joints[p[1]], joints[p[0]]
		}
	}
}
