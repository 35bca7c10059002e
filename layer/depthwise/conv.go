package depthwise

import (
	"fmt"

	"github.com/neurlang/blazepose/layer"
	"github.com/neurlang/blazepose/parallel"
	"github.com/neurlang/blazepose/tensor"
)

func (d *Depthwise) Forward(x *tensor.Tensor, training bool) (*tensor.Tensor, error) {
	shape, err := d.OutputShape(x.Shape)
	if err != nil {
		return nil, err
	}
	n, h, w := x.Shape[0], x.Shape[1], x.Shape[2]
	oh, ow := shape[1], shape[2]
	_, pt := layer.SamePadding(h, d.kernel, d.stride)
	_, pl := layer.SamePadding(w, d.kernel, d.stride)
	k, s, ch := d.kernel, d.stride, d.channels
	wd, bd, xd := d.w.Value.Data, d.b.Value.Data, x.Data

	y := tensor.New(shape...)
	yd := y.Data
	parallel.ForEach(n*oh, layer.Threads, func(r int) {
		b, oy := r/oh, r%oh
		for ox := 0; ox < ow; ox++ {
			out := yd[((b*oh+oy)*ow+ox)*ch : ((b*oh+oy)*ow+ox+1)*ch]
			copy(out, bd)
			for ky := 0; ky < k; ky++ {
				iy := oy*s + ky - pt
				if iy < 0 || iy >= h {
					continue
				}
				for kx := 0; kx < k; kx++ {
					ix := ox*s + kx - pl
					if ix < 0 || ix >= w {
						continue
					}
					in := xd[((b*h+iy)*w+ix)*ch:]
					wk := wd[(ky*k+kx)*ch:]
					for c := range out {
						out[c] += in[c] * wk[c]
					}
				}
			}
		}
	})

	if training {
		d.x = x
		d.outShape = shape
	}
	return y, nil
}

func (d *Depthwise) Backward(dy *tensor.Tensor) (*tensor.Tensor, error) {
	if d.x == nil {
		return nil, fmt.Errorf("%s: backward without training forward", d.name)
	}
	if err := layer.CheckShape(d.name, dy, d.outShape); err != nil {
		return nil, err
	}
	x := d.x
	n, h, w := x.Shape[0], x.Shape[1], x.Shape[2]
	oh, ow := d.outShape[1], d.outShape[2]
	_, pt := layer.SamePadding(h, d.kernel, d.stride)
	_, pl := layer.SamePadding(w, d.kernel, d.stride)
	k, s, ch := d.kernel, d.stride, d.channels
	xd, dyd, wd := x.Data, dy.Data, d.w.Value.Data

	db := d.b.Grad.Data
	for i := range db {
		db[i] = 0
	}
	for i := 0; i < len(dyd); i += ch {
		for c := 0; c < ch; c++ {
			db[c] += dyd[i+c]
		}
	}

	// one task per kernel tap, each owning ch gradient slots
	dw := d.w.Grad.Data
	parallel.ForEach(k*k, layer.Threads, func(t int) {
		ky, kx := t/k, t%k
		row := dw[t*ch : (t+1)*ch]
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
					in := xd[((b*h+iy)*w+ix)*ch:]
					g := dyd[((b*oh+oy)*ow+ox)*ch:]
					for c := range row {
						row[c] += in[c] * g[c]
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
			out := dxd[((b*h+iy)*w+ix)*ch : ((b*h+iy)*w+ix+1)*ch]
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
					g := dyd[((b*oh+oy)*ow+ox)*ch:]
					wk := wd[(ky*k+kx)*ch:]
					for c := range out {
						out[c] += g[c] * wk[c]
					}
				}
			}
		}
	})
	return dx, nil
}
