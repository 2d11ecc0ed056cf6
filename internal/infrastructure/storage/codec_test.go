package storage

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"padim-inspector/internal/domain/entity"
)

func testDistribution(t *testing.T) *entity.Distribution {
	t.Helper()
	rng := rand.New(rand.NewPCG(1, 2))
	d := entity.NewDistribution(3, 2, 2)
	d.Arch = "resnet18"
	d.Ridge = 0.01
	d.Samples = 12
	for i := range d.Mean {
		d.Mean[i] = rng.NormFloat64()
	}
	for i := range d.Covariance {
		d.Covariance[i] = rng.NormFloat64()
	}
	idx, err := entity.NewChannelIndex(10, 3, 42)
	require.NoError(t, err)
	d.Index = idx
	return d
}

func TestCodec_DistributionRoundTrip(t *testing.T) {
	for _, alg := range []Compression{CompressionNone, CompressionZSTD, CompressionLZ4} {
		codec := Codec{Compression: alg}
		want := testDistribution(t)

		data, err := codec.EncodeDistribution(want)
		require.NoError(t, err)
		got, err := codec.DecodeDistribution(data)
		require.NoError(t, err)
		require.Equal(t, want, got, "compression %d", alg)
	}
}

func TestCodec_ReadsRegardlessOfConfiguredCompression(t *testing.T) {
	data, err := Codec{Compression: CompressionLZ4}.EncodeDistribution(testDistribution(t))
	require.NoError(t, err)
	_, err = Codec{Compression: CompressionZSTD}.DecodeDistribution(data)
	require.NoError(t, err)
}

func TestCodec_Corruption(t *testing.T) {
	codec := Codec{Compression: CompressionZSTD}
	data, err := codec.EncodeDistribution(testDistribution(t))
	require.NoError(t, err)

	flipped := append([]byte(nil), data...)
	flipped[len(flipped)-1] ^= 0xff
	_, err = codec.DecodeDistribution(flipped)
	require.ErrorIs(t, err, ErrCorruptArtifact)

	_, err = codec.DecodeDistribution(data[:len(data)-3])
	require.ErrorIs(t, err, ErrCorruptArtifact)

	_, err = codec.DecodeDistribution(data[:5])
	require.ErrorIs(t, err, ErrCorruptArtifact)

	badMagic := append([]byte(nil), data...)
	badMagic[0] = 'X'
	_, err = codec.DecodeDistribution(badMagic)
	require.ErrorIs(t, err, ErrCorruptArtifact)

	eval := &entity.Evaluation{RunID: "r", Names: []string{"a"}, Scores: []float64{1}}
	scores, err := codec.EncodeScores(eval)
	require.NoError(t, err)
	_, err = codec.DecodeDistribution(scores)
	require.ErrorIs(t, err, ErrCorruptArtifact)
}

func TestCodec_RejectsInvalidChannelIndex(t *testing.T) {
	codec := Codec{Compression: CompressionNone}
	for name, idx := range map[string]*entity.ChannelIndex{
		"duplicate":    {Seed: 1, Total: 10, Indices: []int{4, 4, 7}},
		"out of range": {Seed: 1, Total: 5, Indices: []int{0, 2, 5}},
	} {
		d := testDistribution(t)
		d.Index = idx
		data, err := codec.EncodeDistribution(d)
		require.NoError(t, err)

		_, err = codec.DecodeDistribution(data)
		require.ErrorIs(t, err, ErrCorruptArtifact, name)
	}
}

func TestCodec_EvaluationRoundTrip(t *testing.T) {
	codec := Codec{Compression: CompressionLZ4}
	maps := entity.NewMaps(2, 2, 3)
	for i := range maps.Data {
		maps.Data[i] = float64(i) / 7
	}
	eval := &entity.Evaluation{
		RunID:  "run-1",
		Names:  []string{"a.png", "b.png"},
		Maps:   maps,
		Scores: []float64{0.5, 1.25},
	}

	data, err := codec.EncodeMaps(eval)
	require.NoError(t, err)
	runID, names, gotMaps, err := codec.DecodeMaps(data)
	require.NoError(t, err)
	require.Equal(t, "run-1", runID)
	require.Equal(t, eval.Names, names)
	require.Equal(t, maps, gotMaps)

	data, err = codec.EncodeScores(eval)
	require.NoError(t, err)
	_, names, scores, err := codec.DecodeScores(data)
	require.NoError(t, err)
	require.Equal(t, eval.Names, names)
	require.Equal(t, eval.Scores, scores)
}

func TestParseCompression(t *testing.T) {
	c, err := ParseCompression("")
	require.NoError(t, err)
	require.Equal(t, CompressionZSTD, c)
	c, err = ParseCompression("LZ4")
	require.NoError(t, err)
	require.Equal(t, CompressionLZ4, c)
	_, err = ParseCompression("gzip")
	require.Error(t, err)
}
