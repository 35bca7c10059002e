package conv2d

import (
	"fmt"

	"github.com/neurlang/blazepose/layer"
	"github.com/neurlang/blazepose/parallel"
	"github.com/neurlang/blazepose/tensor"
)

// Backward computes kernel, bias and input gradients for the last training Forward.
func (c *Conv2D) Backward(dy *tensor.Tensor) (*tensor.Tensor, error) {
	if c.x == nil {
		return nil, fmt.Errorf("%s: backward without training forward", c.name)
	}
	if err := layer.CheckShape(c.name, dy, c.outShape); err != nil {
		return nil, err
	}
	x := c.x
	n, h, w := x.Shape[0], x.Shape[1], x.Shape[2]
	oh, ow := c.outShape[1], c.outShape[2]
	_, pt := layer.SamePadding(h, c.kernel, c.stride)
	_, pl := layer.SamePadding(w, c.kernel, c.stride)
	k, s, cin, cout := c.kernel, c.stride, c.in, c.out
	xd, dyd, wd := x.Data, dy.Data, c.w.Value.Data

	db := c.b.Grad.Data
	for i := range db {
		db[i] = 0
	}
	for i := 0; i < len(dyd); i += cout {
		for co := 0; co < cout; co++ {
			db[co] += dyd[i+co]
		}
	}

	// one task per kernel row (ky, kx, ci), each owning cout gradient slots
	dw := c.w.Grad.Data
	parallel.ForEach(k*k*cin, layer.Threads, func(t int) {
		kk, ci := t/cin, t%cin
		ky, kx := kk/k, kk%k
		row := dw[t*cout : (t+1)*cout]
		for i := range row {
			row[i] = 0
		}
		for b := 0; b < n; b++ {
			for oy := 0; oy < oh; oy++ {
				iy := oy*s + ky - pt
				if iy < 0 || iy >= h {
					continue
				}
				for ox := 0; ox < ow; ox++ {
					ix := ox*s + kx - pl
					if ix < 0 || ix >= w {
						continue
					}
					xv := xd[((b*h+iy)*w+ix)*cin+ci]
					if xv == 0 {
						continue
					}
					g := dyd[((b*oh+oy)*ow+ox)*cout:]
					for co := range row {
						row[co] += xv * g[co]
					}
				}
			}
		}
	})

	dx := tensor.New(x.Shape...)
	dxd := dx.Data
	parallel.ForEach(n*h, layer.Threads, func(r int) {
		b, iy := r/h, r%h
		for ix := 0; ix < w; ix++ {
			xi := ((b*h+iy)*w + ix) * cin
			for ky := 0; ky < k; ky++ {
				ny := iy + pt - ky
				if ny < 0 || ny%s != 0 || ny/s >= oh {
					continue
				}
				oy := ny / s
				for kx := 0; kx < k; kx++ {
					nx := ix + pl - kx
					if nx < 0 || nx%s != 0 || nx/s >= ow {
						continue
					}
					ox := nx / s
					g := dyd[((b*oh+oy)*ow+ox)*cout : ((b*oh+oy)*ow+ox+1)*cout]
					wi := (ky*k + kx) * cin * cout
					for ci := 0; ci < cin; ci++ {
						row := wd[wi+ci*cout : wi+(ci+1)*cout]
						var sum float32
						for co, gv := range g {
							sum += row[co] * gv
						}
						dxd[xi+ci] += sum
					}
				}
			}
		}
	})
	return dx, nil
}
