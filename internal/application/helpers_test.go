package app

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"padim-inspector/internal/domain/entity"
	"padim-inspector/internal/domain/padim"
	"padim-inspector/internal/domain/port"
	"padim-inspector/internal/infrastructure/storage"
)

// scaleExtractor заменяет сеть: вход и его уменьшенные в 2 и 4 раза копии.
type scaleExtractor struct {
	err error
}

func (e *scaleExtractor) Extract(_ context.Context, batch *entity.Volume) (entity.Activations, error) {
	if e.err != nil {
		return entity.Activations{}, e.err
	}
	return entity.Activations{
		padim.Interpolate(batch, batch.Height, batch.Width),
		padim.Interpolate(batch, batch.Height/2, batch.Width/2),
		padim.Interpolate(batch, batch.Height/4, batch.Width/4),
	}, nil
}

type sliceSource struct {
	batches []*port.Batch
	err     error
}

func (s *sliceSource) Next(context.Context) (*port.Batch, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.batches) == 0 {
		return nil, io.EOF
	}
	b := s.batches[0]
	s.batches = s.batches[1:]
	return b, nil
}

// randomSource режет n случайных изображений size x size на батчи по batchSize.
func randomSource(seed uint64, n, batchSize, size int) *sliceSource {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	src := &sliceSource{}
	for start := 0; start < n; start += batchSize {
		count := min(batchSize, n-start)
		v := entity.NewVolume(count, 3, size, size)
		for i := range v.Data {
			v.Data[i] = rng.NormFloat64()
		}
		names := make([]string, count)
		for i := range names {
			names[i] = string(rune('a'+start+i)) + ".png"
		}
		src.batches = append(src.batches, &port.Batch{Images: v, Names: names})
	}
	return src
}

type recordingResults struct {
	evals []*entity.Evaluation
}

func (r *recordingResults) Record(_ context.Context, eval *entity.Evaluation) error {
	r.evals = append(r.evals, eval)
	return nil
}

func (r *recordingResults) Scores(_ context.Context, runID string) (map[string]float64, error) {
	for _, e := range r.evals {
		if e.RunID == runID {
			out := make(map[string]float64, len(e.Names))
			for i, n := range e.Names {
				out[n] = e.Scores[i]
			}
			return out, nil
		}
	}
	return nil, errors.New("run not found")
}

type rejectingGate struct{}

func (rejectingGate) Check([]byte) error { return errors.New("blurry") }

func newArtifactRepo() *storage.ArtifactRepository {
	return storage.NewArtifactRepository(storage.NewMemoryStore(), storage.Codec{Compression: storage.CompressionZSTD})
}

// noisyPhoto кодирует PNG однотонного цвета с равномерным шумом ±spread.
func noisyPhoto(t *testing.T, rng *rand.Rand, base color.RGBA, spread, size int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	jitter := func(v uint8) uint8 {
		n := int(v) + rng.IntN(2*spread+1) - spread
		return uint8(max(0, min(255, n)))
	}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, color.RGBA{R: jitter(base.R), G: jitter(base.G), B: jitter(base.B), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
