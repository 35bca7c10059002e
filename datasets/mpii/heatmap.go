package mpii

import (
	"math"

	"github.com/neurlang/blazepose/tensor"
)

// DrawGaussian writes a Gaussian with peak 1 centred on (x, y) into channel c
// of the [h, w, J] heatmap. Values outside 3 sigma are left untouched, so
// is a centre whose window misses the map completely.
func DrawGaussian(hm *tensor.Tensor, c int, x, y, sigma float64) {
	h, w := hm.Shape[0], hm.Shape[1]
	cx, cy := int(math.Floor(x+0.5)), int(math.Floor(y+0.5))
	r := int(math.Ceil(3 * sigma))
	if cx+r < 0 || cy+r < 0 || cx-r >= w || cy-r >= h {
		return
	}
	den := 2 * sigma * sigma
	for py := max(cy-r, 0); py <= min(cy+r, h-1); py++ {
		for px := max(cx-r, 0); px <= min(cx+r, w-1); px++ {
			dx, dy := float64(px-cx), float64(py-cy)
			hm.Set(float32(math.Exp(-(dx*dx+dy*dy)/den)), py, px, c)
		}
	}
}

// Argmax returns the location and value of the maximum of channel c.
func Argmax(hm *tensor.Tensor, c int) (x, y int, v float32) {
	h, w := hm.Shape[0], hm.Shape[1]
	v = float32(math.Inf(-1))
	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			if a := hm.At(py, px, c); a > v {
				x, y, v = px, py, a
			}
		}
	}
	return
}
