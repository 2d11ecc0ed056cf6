package padim

import (
	"context"
	"fmt"

	"padim-inspector/internal/domain/entity"
	"padim-inspector/internal/domain/port"
)

// Fuse поднимает вторую и третью активации до разрешения первой и склеивает
// все три по каналам в порядке layer1, layer2, layer3. Если задан index,
// остаются только выбранные каналы в порядке индекса.
func Fuse(acts entity.Activations, index *entity.ChannelIndex) (*entity.Volume, error) {
	for i, a := range acts {
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("%w: activation %d: %v", ErrShapeMismatch, i+1, err)
		}
	}
	first := acts[0]
	total := 0
	for i, a := range acts {
		if a.Batch != first.Batch {
			return nil, fmt.Errorf("%w: activation %d has batch %d, want %d", ErrShapeMismatch, i+1, a.Batch, first.Batch)
		}
		if i > 0 && (a.Height > acts[i-1].Height || a.Width > acts[i-1].Width) {
			return nil, fmt.Errorf("%w: activation %d (%dx%d) is larger than activation %d (%dx%d)",
				ErrShapeMismatch, i+1, a.Height, a.Width, i, acts[i-1].Height, acts[i-1].Width)
		}
		total += a.Channels
	}

	// Для каждого выходного канала запоминаем слой-источник и канал внутри слоя.
	type source struct{ layer, channel int }
	var sources []source
	if index.Len() > 0 {
		if index.Total != total {
			return nil, fmt.Errorf("%w: channel index drawn from %d channels, embedding has %d", ErrShapeMismatch, index.Total, total)
		}
		sources = make([]source, len(index.Indices))
		for o, idx := range index.Indices {
			if idx < 0 || idx >= total {
				return nil, fmt.Errorf("%w: channel index %d out of range [0, %d)", ErrShapeMismatch, idx, total)
			}
			layer := 0
			for idx >= acts[layer].Channels {
				idx -= acts[layer].Channels
				layer++
			}
			sources[o] = source{layer: layer, channel: idx}
		}
	} else {
		sources = make([]source, 0, total)
		for layer, a := range acts {
			for c := 0; c < a.Channels; c++ {
				sources = append(sources, source{layer: layer, channel: c})
			}
		}
	}

	height, width := first.Height, first.Width
	var weights [3]struct{ y, x axisWeights }
	for layer, a := range acts {
		weights[layer].y = linearWeights(a.Height, height)
		weights[layer].x = linearWeights(a.Width, width)
	}

	out := entity.NewVolume(first.Batch, len(sources), height, width)
	for b := 0; b < first.Batch; b++ {
		for o, src := range sources {
			a := acts[src.layer]
			plane := a.Plane(b, src.channel)
			if a.Height == height && a.Width == width {
				copy(out.Plane(b, o), plane)
				continue
			}
			w := weights[src.layer]
			interpolatePlane(out.Plane(b, o), plane, a.Width, w.y, w.x)
		}
	}
	return out, nil
}

// Embed прогоняет батч через экстрактор и сливает активации в объём эмбеддингов.
func Embed(ctx context.Context, extractor port.FeatureExtractor, batch *entity.Volume, index *entity.ChannelIndex) (*entity.Volume, error) {
	if err := batch.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShapeMismatch, err)
	}
	if batch.Channels != 3 {
		return nil, fmt.Errorf("%w: got %d", ErrChannelCount, batch.Channels)
	}
	acts, err := extractor.Extract(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("extract features: %w", err)
	}
	return Fuse(acts, index)
}
