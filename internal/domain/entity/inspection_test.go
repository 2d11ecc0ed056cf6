package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInspectionResultPeak(t *testing.T) {
	r := &InspectionResult{
		ImageWidth:  3,
		ImageHeight: 2,
		Map:         []float64{0, 1, 2, 3, 9, 4},
	}
	x, y, v := r.Peak()
	require.Equal(t, 1, x)
	require.Equal(t, 1, y)
	require.Equal(t, 9.0, v)
}

func TestArtifactKeyNames(t *testing.T) {
	k := ArtifactKey{Arch: "resnet18", Experiment: "baseline", Modality: "MRI"}
	require.Equal(t, "MRI/resnet18_baseline.padim", k.Name())
	require.Equal(t, "MRI/resnet18_baseline_maps.padim", k.MapsName())
	require.Equal(t, "MRI/resnet18_baseline_scores.padim", k.ScoresName())
}

func TestAppendMaps(t *testing.T) {
	a := NewMaps(1, 2, 2)
	b := NewMaps(2, 2, 2)
	b.Data[7] = 5

	out, err := AppendMaps(nil, a)
	require.NoError(t, err)
	out, err = AppendMaps(out, b)
	require.NoError(t, err)
	require.Equal(t, []int{3, 2, 2}, out.Shape())
	require.Equal(t, 5.0, out.At(2, 1, 1))

	_, err = AppendMaps(out, NewMaps(1, 3, 3))
	require.Error(t, err)
}
