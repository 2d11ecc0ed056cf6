package padim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"padim-inspector/internal/domain/entity"
)

// Четыре одинаковых однотонных изображения: ковариация вырождается в ridge*I,
// идентичное изображение даёт нулевое расстояние, сдвиг канала даёт большое.
func TestPipeline_SolidColorScenario(t *testing.T) {
	ctx := context.Background()
	ext := &poolExtractor{}
	color := [3]float64{0.2, 0.5, 0.8}

	emb, err := Embed(ctx, ext, solidImages(4, color, 8), nil)
	require.NoError(t, err)
	require.Equal(t, []int{4, 9, 8, 8}, emb.Shape())

	acc := NewAccumulator()
	require.NoError(t, acc.Add(emb))
	dist, err := acc.Finalize(ctx, DefaultRidge)
	require.NoError(t, err)

	for i := 0; i < dist.Locations(); i++ {
		for c := 0; c < 9; c++ {
			require.InDelta(t, color[c%3], dist.MeanAt(i)[c], 1e-12)
			for k := 0; k < 9; k++ {
				want := 0.0
				if c == k {
					want = DefaultRidge
				}
				require.InDelta(t, want, dist.CovarianceAt(i)[c*9+k], 1e-12)
			}
		}
	}

	scorer, err := NewScorer(ctx, dist)
	require.NoError(t, err)

	same, err := Embed(ctx, ext, solidImages(1, color, 8), nil)
	require.NoError(t, err)
	near, err := scorer.Score(ctx, same)
	require.NoError(t, err)
	for _, d := range near.Data {
		require.InDelta(t, 0, d, 1e-6)
	}

	shifted := color
	shifted[1] += 10
	other, err := Embed(ctx, ext, solidImages(1, shifted, 8), nil)
	require.NoError(t, err)
	far, err := scorer.Score(ctx, other)
	require.NoError(t, err)
	for _, d := range far.Data {
		require.Greater(t, d, 100.0)
	}

	post, err := NewPostProcessor(DefaultSigma, MaskNone)
	require.NoError(t, err)
	maps, scores, err := post.Process(ctx, far, solidImages(1, shifted, 8))
	require.NoError(t, err)
	require.Equal(t, []int{1, 8, 8}, maps.Shape())
	require.Greater(t, scores[0], 100.0)
}

func TestPipeline_SubsampledIndexSharedBetweenTrainAndTest(t *testing.T) {
	ctx := context.Background()
	ext := &poolExtractor{}
	index, err := entity.NewChannelIndex(9, 4, 42)
	require.NoError(t, err)

	train, err := Embed(ctx, ext, solidImages(3, [3]float64{1, 2, 3}, 8), index)
	require.NoError(t, err)
	require.Equal(t, 4, train.Channels)

	acc := NewAccumulator()
	require.NoError(t, acc.Add(train))
	dist, err := acc.Finalize(ctx, DefaultRidge)
	require.NoError(t, err)
	dist.Index = index
	require.NoError(t, dist.Validate())

	scorer, err := NewScorer(ctx, dist)
	require.NoError(t, err)
	test, err := Embed(ctx, ext, solidImages(1, [3]float64{1, 2, 3}, 8), index)
	require.NoError(t, err)
	m, err := scorer.Score(ctx, test)
	require.NoError(t, err)
	for _, d := range m.Data {
		require.InDelta(t, 0, d, 1e-6)
	}
}
