package padim

import (
	"context"
	"math/rand/v2"

	"padim-inspector/internal/domain/entity"
)

func randomVolume(rng *rand.Rand, b, c, h, w int) *entity.Volume {
	v := entity.NewVolume(b, c, h, w)
	for i := range v.Data {
		v.Data[i] = rng.NormFloat64()
	}
	return v
}

// avgPool уменьшает каждый канал в factor раз усреднением блоков.
func avgPool(v *entity.Volume, factor int) *entity.Volume {
	out := entity.NewVolume(v.Batch, v.Channels, v.Height/factor, v.Width/factor)
	area := float64(factor * factor)
	for b := 0; b < v.Batch; b++ {
		for c := 0; c < v.Channels; c++ {
			for y := 0; y < out.Height; y++ {
				for x := 0; x < out.Width; x++ {
					var sum float64
					for dy := 0; dy < factor; dy++ {
						for dx := 0; dx < factor; dx++ {
							sum += v.At(b, c, y*factor+dy, x*factor+dx)
						}
					}
					out.Set(b, c, y, x, sum/area)
				}
			}
		}
	}
	return out
}

// poolExtractor — детерминированная замена сети: сам вход и его пулинги в 2 и 4 раза.
type poolExtractor struct {
	calls int
}

func (e *poolExtractor) Extract(_ context.Context, batch *entity.Volume) (entity.Activations, error) {
	e.calls++
	return entity.Activations{
		Interpolate(batch, batch.Height, batch.Width),
		avgPool(batch, 2),
		avgPool(batch, 4),
	}, nil
}

func solidImages(n int, rgb [3]float64, size int) *entity.Volume {
	v := entity.NewVolume(n, 3, size, size)
	for b := 0; b < n; b++ {
		for c := 0; c < 3; c++ {
			for i := range v.Plane(b, c) {
				v.Plane(b, c)[i] = rgb[c]
			}
		}
	}
	return v
}
