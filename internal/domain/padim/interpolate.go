package padim

import "padim-inspector/internal/domain/entity"

// axisWeights — индексы соседей и веса линейной интерполяции вдоль одной оси.
type axisWeights struct {
	lo, hi []int
	frac   []float64
}

// linearWeights повторяет семантику align_corners=false:
// src = (dst + 0.5) * in/out - 0.5, отрицательные координаты прижимаются к нулю.
func linearWeights(in, out int) axisWeights {
	w := axisWeights{
		lo:   make([]int, out),
		hi:   make([]int, out),
		frac: make([]float64, out),
	}
	scale := float64(in) / float64(out)
	for d := 0; d < out; d++ {
		src := (float64(d)+0.5)*scale - 0.5
		if src < 0 {
			src = 0
		}
		i0 := int(src)
		if i0 > in-1 {
			i0 = in - 1
		}
		i1 := i0
		if i0 < in-1 {
			i1 = i0 + 1
		}
		w.lo[d] = i0
		w.hi[d] = i1
		w.frac[d] = src - float64(i0)
	}
	return w
}

// interpolatePlane заполняет dst (outH*outW) билинейной интерполяцией src (inW по ширине).
func interpolatePlane(dst, src []float64, inW int, wy, wx axisWeights) {
	outW := len(wx.lo)
	for y := range wy.lo {
		ly := wy.frac[y]
		row0 := src[wy.lo[y]*inW:]
		row1 := src[wy.hi[y]*inW:]
		out := dst[y*outW : (y+1)*outW]
		for x := range out {
			lx := wx.frac[x]
			x0, x1 := wx.lo[x], wx.hi[x]
			top := (1-lx)*row0[x0] + lx*row0[x1]
			bottom := (1-lx)*row1[x0] + lx*row1[x1]
			out[x] = (1-ly)*top + ly*bottom
		}
	}
}

// Interpolate билинейно масштабирует каждый канал объёма до height x width.
func Interpolate(v *entity.Volume, height, width int) *entity.Volume {
	out := entity.NewVolume(v.Batch, v.Channels, height, width)
	if height == v.Height && width == v.Width {
		copy(out.Data, v.Data)
		return out
	}
	wy := linearWeights(v.Height, height)
	wx := linearWeights(v.Width, width)
	for b := 0; b < v.Batch; b++ {
		for c := 0; c < v.Channels; c++ {
			interpolatePlane(out.Plane(b, c), v.Plane(b, c), v.Width, wy, wx)
		}
	}
	return out
}

// InterpolateMaps масштабирует каждую карту набора до height x width.
func InterpolateMaps(m *entity.Maps, height, width int) *entity.Maps {
	out := entity.NewMaps(m.N, height, width)
	if height == m.Height && width == m.Width {
		copy(out.Data, m.Data)
		return out
	}
	wy := linearWeights(m.Height, height)
	wx := linearWeights(m.Width, width)
	for i := 0; i < m.N; i++ {
		interpolatePlane(out.Sample(i), m.Sample(i), m.Width, wy, wx)
	}
	return out
}
