package conv2d

import (
	"github.com/neurlang/blazepose/layer"
	"github.com/neurlang/blazepose/parallel"
	"github.com/neurlang/blazepose/tensor"
)

// Forward convolves x, one goroutine per output row.
func (c *Conv2D) Forward(x *tensor.Tensor, training bool) (*tensor.Tensor, error) {
	shape, err := c.OutputShape(x.Shape)
	if err != nil {
		return nil, err
	}
	n, h, w := x.Shape[0], x.Shape[1], x.Shape[2]
	oh, ow := shape[1], shape[2]
	_, pt := layer.SamePadding(h, c.kernel, c.stride)
	_, pl := layer.SamePadding(w, c.kernel, c.stride)

	y := tensor.New(shape...)
	k, s, cin, cout := c.kernel, c.stride, c.in, c.out
	wd, bd, xd, yd := c.w.Value.Data, c.b.Value.Data, x.Data, y.Data

	parallel.ForEach(n*oh, layer.Threads, func(r int) {
		b, oy := r/oh, r%oh
		for ox := 0; ox < ow; ox++ {
			o := ((b*oh+oy)*ow + ox) * cout
			out := yd[o : o+cout]
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
					xi := ((b*h+iy)*w + ix) * cin
					wi := (ky*k + kx) * cin * cout
					for ci := 0; ci < cin; ci++ {
						xv := xd[xi+ci]
						if xv == 0 {
							continue
						}
						row := wd[wi+ci*cout : wi+(ci+1)*cout]
						for co, wv := range row {
							out[co] += xv * wv
						}
					}
				}
			}
		}
	})

	if training {
		c.x = x
		c.outShape = shape
	}
	return y, nil
}
