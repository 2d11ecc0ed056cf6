package imaging

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"padim-inspector/internal/domain/entity"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestPreprocessor_Normalizes(t *testing.T) {
	pre := NewPreprocessor(8)
	v, err := pre.Preprocess(encodePNG(t, solid(20, 10, color.RGBA{R: 255, G: 0, B: 128, A: 255})))
	require.NoError(t, err)

	require.Equal(t, []int{1, 3, 8, 8}, v.Shape())
	require.InDelta(t, (1-0.485)/0.229, v.At(0, 0, 3, 3), 1e-9)
	require.InDelta(t, (0-0.456)/0.224, v.At(0, 1, 3, 3), 1e-9)
	require.InDelta(t, (128.0/255-0.406)/0.225, v.At(0, 2, 7, 0), 1e-9)
}

func TestPreprocessor_GrayReplicated(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 6, 6))
	for i := range gray.Pix {
		gray.Pix[i] = 100
	}
	pre := &Preprocessor{Size: 4, Std: [3]float64{1, 1, 1}}
	v, err := pre.Preprocess(encodePNG(t, gray))
	require.NoError(t, err)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			require.Equal(t, v.At(0, 0, y, x), v.At(0, 1, y, x))
			require.Equal(t, v.At(0, 0, y, x), v.At(0, 2, y, x))
		}
	}
}

func TestPreprocessor_Errors(t *testing.T) {
	pre := NewPreprocessor(4)
	_, err := pre.Preprocess(nil)
	require.Error(t, err)
	_, err = pre.Preprocess([]byte("not an image"))
	require.Error(t, err)
}

func TestDirSource_Batches(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"c.png", "a.png", "b.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), encodePNG(t, solid(5, 5, color.White)), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))

	src, err := NewDirSource(dir, 2, NewPreprocessor(4))
	require.NoError(t, err)
	require.Equal(t, 3, src.Len())

	ctx := context.Background()
	first, err := src.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a.png", "b.png"}, first.Names)
	require.Equal(t, 2, first.Images.Batch)

	second, err := src.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"c.png"}, second.Names)
	require.Equal(t, 1, second.Images.Batch)

	_, err = src.Next(ctx)
	require.ErrorIs(t, err, io.EOF)
}

func TestDirSource_Errors(t *testing.T) {
	_, err := NewDirSource(t.TempDir(), 2, NewPreprocessor(4))
	require.Error(t, err)

	_, err = NewDirSource(t.TempDir(), 0, NewPreprocessor(4))
	require.Error(t, err)

	_, err = NewDirSource(filepath.Join(t.TempDir(), "missing"), 1, NewPreprocessor(4))
	require.Error(t, err)
}

func TestHeatColor(t *testing.T) {
	cold := HeatColor(0, 10)
	hot := HeatColor(10, 10)
	require.InDelta(t, 1.0, cold.B, 1e-9)
	require.InDelta(t, 1.0, hot.R, 1e-9)
	require.InDelta(t, 0.0, hot.B, 1e-9)
	require.Equal(t, hot, HeatColor(50, 10))
	require.Equal(t, cold, HeatColor(5, 0))
}

func TestHeatmapRenderer_Render(t *testing.T) {
	photo := encodePNG(t, solid(32, 32, color.Gray{Y: 128}))
	result := &entity.InspectionResult{ImageWidth: 8, ImageHeight: 8, Map: make([]float64, 64)}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			result.Map[y*8+x] = 5
		}
	}

	out, err := NewHeatmapRenderer(0).Render(photo, result)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 8, 8), img.Bounds())

	r, _, b, _ := img.At(1, 1).RGBA()
	require.Greater(t, r, b)
	r, _, b, _ = img.At(7, 7).RGBA()
	require.Greater(t, b, r)
}

func TestHeatmapRenderer_Errors(t *testing.T) {
	r := NewHeatmapRenderer(0)
	_, err := r.Render(nil, &entity.InspectionResult{})
	require.Error(t, err)

	bad := &entity.InspectionResult{ImageWidth: 2, ImageHeight: 2, Map: []float64{1}}
	_, err = r.Render(encodePNG(t, solid(2, 2, color.Black)), bad)
	require.Error(t, err)
}
