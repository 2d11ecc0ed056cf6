package padim

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"padim-inspector/internal/domain/entity"
)

func TestAccumulator_SingleSampleIsRidgeIdentity(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	v := randomVolume(rng, 1, 4, 2, 3)

	acc := NewAccumulator()
	require.NoError(t, acc.Add(v))
	dist, err := acc.Finalize(context.Background(), 0.01)
	require.NoError(t, err)
	require.Equal(t, 1, dist.Samples)

	for i := 0; i < dist.Locations(); i++ {
		cov := dist.CovarianceAt(i)
		for r := 0; r < 4; r++ {
			for c := 0; c < 4; c++ {
				want := 0.0
				if r == c {
					want = 0.01
				}
				require.Equal(t, want, cov[r*4+c])
			}
			require.Equal(t, v.Data[r*6+i], dist.MeanAt(i)[r])
		}
	}
}

func TestAccumulator_UnbiasedCovariance(t *testing.T) {
	v := entity.NewVolume(2, 2, 1, 1)
	// образцы (1, 0) и (3, 4)
	v.Data = []float64{1, 0, 3, 4}

	acc := NewAccumulator()
	require.NoError(t, acc.Add(v))
	dist, err := acc.Finalize(context.Background(), 0.5)
	require.NoError(t, err)

	require.InDeltaSlice(t, []float64{2, 2}, dist.MeanAt(0), 1e-12)
	// var(x) = 2, var(y) = 8, cov(x, y) = 4 при делении на N-1.
	require.InDeltaSlice(t, []float64{2.5, 4, 4, 8.5}, dist.CovarianceAt(0), 1e-12)
}

func TestAccumulator_SymmetricPositiveDefinite(t *testing.T) {
	rng := rand.New(rand.NewPCG(2, 3))
	acc := NewAccumulator()
	// N = 3 < C = 6: без регуляризации матрицы вырождены.
	require.NoError(t, acc.Add(randomVolume(rng, 2, 6, 3, 3)))
	require.NoError(t, acc.Add(randomVolume(rng, 1, 6, 3, 3)))

	dist, err := acc.Finalize(context.Background(), 0.01)
	require.NoError(t, err)

	c := dist.Channels
	for i := 0; i < dist.Locations(); i++ {
		cov := dist.CovarianceAt(i)
		for r := 0; r < c; r++ {
			for k := 0; k < c; k++ {
				require.Equal(t, cov[r*c+k], cov[k*c+r])
			}
		}
		var eig mat.EigenSym
		require.True(t, eig.Factorize(mat.NewSymDense(c, append([]float64(nil), cov...)), false))
		for _, ev := range eig.Values(nil) {
			require.Greater(t, ev, 0.0)
		}
	}
}

func TestAccumulator_BatchingDoesNotChangeResult(t *testing.T) {
	rng := rand.New(rand.NewPCG(4, 5))
	all := randomVolume(rng, 5, 3, 2, 2)

	whole := NewAccumulator()
	require.NoError(t, whole.Add(all))
	want, err := whole.Finalize(context.Background(), 0.01)
	require.NoError(t, err)

	split := NewAccumulator()
	first := &entity.Volume{Batch: 2, Channels: 3, Height: 2, Width: 2, Data: all.Data[:24]}
	rest := &entity.Volume{Batch: 3, Channels: 3, Height: 2, Width: 2, Data: all.Data[24:]}
	require.NoError(t, split.Add(first))
	require.NoError(t, split.Add(rest))
	require.Equal(t, 5, split.Len())
	got, err := split.Finalize(context.Background(), 0.01)
	require.NoError(t, err)

	require.InDeltaSlice(t, want.Mean, got.Mean, 1e-12)
	require.InDeltaSlice(t, want.Covariance, got.Covariance, 1e-12)
}

func TestAccumulator_Errors(t *testing.T) {
	ctx := context.Background()
	acc := NewAccumulator()
	_, err := acc.Finalize(ctx, 0.01)
	require.ErrorIs(t, err, ErrEmptyPopulation)

	require.NoError(t, acc.Add(entity.NewVolume(1, 2, 2, 2)))
	require.ErrorIs(t, acc.Add(entity.NewVolume(1, 3, 2, 2)), ErrShapeMismatch)

	_, err = acc.Finalize(ctx, 0)
	require.ErrorIs(t, err, ErrInvalidRidge)
}

func TestAccumulator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	acc := NewAccumulator()
	require.NoError(t, acc.Add(entity.NewVolume(2, 2, 2, 2)))
	_, err := acc.Finalize(ctx, 0.01)
	require.ErrorIs(t, err, context.Canceled)
}
