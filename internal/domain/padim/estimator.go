package padim

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"padim-inspector/internal/domain/entity"
)

// DefaultRidge — добавка к диагонали ковариации.
const DefaultRidge = 0.01

// Accumulator собирает объёмы эмбеддингов обучающей выборки по батчам.
// Добавленные объёмы не копируются: вызывающий не должен их менять до Finalize.
type Accumulator struct {
	channels int
	height   int
	width    int
	samples  int
	batches  []*entity.Volume
}

// NewAccumulator создаёт пустой аккумулятор.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Add добавляет батч эмбеддингов. Все батчи должны иметь одинаковые C, H, W.
func (a *Accumulator) Add(v *entity.Volume) error {
	if err := v.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrShapeMismatch, err)
	}
	if a.samples == 0 {
		a.channels, a.height, a.width = v.Channels, v.Height, v.Width
	} else if v.Channels != a.channels || v.Height != a.height || v.Width != a.width {
		return fmt.Errorf("%w: batch %v, accumulated (%d, %d, %d)",
			ErrShapeMismatch, v.Shape(), a.channels, a.height, a.width)
	}
	a.batches = append(a.batches, v)
	a.samples += v.Batch
	return nil
}

// Len возвращает число накопленных образцов.
func (a *Accumulator) Len() int {
	return a.samples
}

// Finalize считает среднее и регуляризованную ковариацию для каждой ячейки.
func (a *Accumulator) Finalize(ctx context.Context, ridge float64) (*entity.Distribution, error) {
	if a.samples == 0 {
		return nil, ErrEmptyPopulation
	}
	if !(ridge > 0) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidRidge, ridge)
	}

	dist := entity.NewDistribution(a.channels, a.height, a.width)
	dist.Ridge = ridge
	dist.Samples = a.samples

	n, c := a.samples, a.channels
	err := forEachRange(ctx, dist.Locations(), func(ctx context.Context, lo, hi int) error {
		x := mat.NewDense(n, c, nil)
		cov := mat.NewSymDense(c, nil)
		for i := lo; i < hi; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			a.gather(x, i)
			mean := dist.MeanAt(i)
			for j := 0; j < c; j++ {
				mean[j] = stat.Mean(mat.Col(nil, j, x), nil)
			}

			out := dist.CovarianceAt(i)
			if n > 1 {
				stat.CovarianceMatrix(cov, x, nil)
				for r := 0; r < c; r++ {
					for k := 0; k < c; k++ {
						out[r*c+k] = cov.At(r, k)
					}
				}
			}
			// При n == 1 выборочная ковариация не определена: остаётся только ridge*I.
			for r := 0; r < c; r++ {
				out[r*c+r] += ridge
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dist, nil
}

// gather копирует векторы каналов всех образцов в ячейке loc в строки x.
func (a *Accumulator) gather(x *mat.Dense, loc int) {
	hw := a.height * a.width
	row := 0
	for _, v := range a.batches {
		for b := 0; b < v.Batch; b++ {
			base := b * v.Channels * hw
			for ch := 0; ch < v.Channels; ch++ {
				x.Set(row, ch, v.Data[base+ch*hw+loc])
			}
			row++
		}
	}
}
