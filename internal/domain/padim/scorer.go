package padim

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"padim-inspector/internal/domain/entity"
)

// Scorer считает расстояние Махаланобиса до выученного распределения.
// Обратные ковариации вычисляются один раз при создании и переиспользуются для всех батчей.
type Scorer struct {
	dist    *entity.Distribution
	inverse []float64 // [H*W][C][C]
}

// NewScorer обращает ковариацию каждой ячейки через разложение Холецкого.
// Если матрица не положительно определена, возвращается ErrSingularCovariance.
func NewScorer(ctx context.Context, dist *entity.Distribution) (*Scorer, error) {
	if err := dist.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShapeMismatch, err)
	}
	c := dist.Channels
	cc := c * c
	s := &Scorer{
		dist:    dist,
		inverse: make([]float64, dist.Locations()*cc),
	}

	err := forEachRange(ctx, dist.Locations(), func(ctx context.Context, lo, hi int) error {
		var (
			chol mat.Cholesky
			inv  mat.SymDense
		)
		buf := make([]float64, cc)
		for i := lo; i < hi; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			copy(buf, dist.CovarianceAt(i))
			if ok := chol.Factorize(mat.NewSymDense(c, buf)); !ok {
				return fmt.Errorf("%w: location %d is not positive definite (ridge %v)", ErrSingularCovariance, i, dist.Ridge)
			}
			if err := chol.InverseTo(&inv); err != nil {
				return fmt.Errorf("%w: location %d: %v", ErrSingularCovariance, i, err)
			}
			out := s.inverse[i*cc : (i+1)*cc]
			for r := 0; r < c; r++ {
				for k := 0; k < c; k++ {
					out[r*c+k] = inv.At(r, k)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Distribution возвращает распределение, по которому считаются расстояния.
func (s *Scorer) Distribution() *entity.Distribution {
	return s.dist
}

// Score возвращает карту расстояний (B, H, W) для батча эмбеддингов.
func (s *Scorer) Score(ctx context.Context, v *entity.Volume) (*entity.Maps, error) {
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShapeMismatch, err)
	}
	d := s.dist
	if v.Channels != d.Channels || v.Height != d.Height || v.Width != d.Width {
		return nil, fmt.Errorf("%w: embeddings (%d, %d, %d), distribution (%d, %d, %d)",
			ErrShapeMismatch, v.Channels, v.Height, v.Width, d.Channels, d.Height, d.Width)
	}

	c := d.Channels
	cc := c * c
	hw := d.Locations()
	out := entity.NewMaps(v.Batch, d.Height, d.Width)

	err := forEachRange(ctx, hw, func(ctx context.Context, lo, hi int) error {
		delta := make([]float64, c)
		for i := lo; i < hi; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			mean := d.MeanAt(i)
			inv := s.inverse[i*cc : (i+1)*cc]
			for b := 0; b < v.Batch; b++ {
				base := b * c * hw
				for ch := 0; ch < c; ch++ {
					delta[ch] = v.Data[base+ch*hw+i] - mean[ch]
				}
				out.Data[b*hw+i] = math.Sqrt(quadForm(inv, delta))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// quadForm возвращает δᵀ A δ для плоской матрицы A. Отрицательный результат
// возможен только из-за округления и прижимается к нулю.
func quadForm(a, delta []float64) float64 {
	c := len(delta)
	var sum float64
	for r := 0; r < c; r++ {
		if delta[r] == 0 {
			continue
		}
		row := a[r*c : (r+1)*c]
		var acc float64
		for k, dk := range delta {
			acc += row[k] * dk
		}
		sum += delta[r] * acc
	}
	if sum < 0 {
		return 0
	}
	return sum
}
