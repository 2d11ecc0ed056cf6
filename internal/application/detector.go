package app

import (
	"context"
	"errors"
	"fmt"

	"padim-inspector/internal/domain/entity"
	"padim-inspector/internal/domain/padim"
	"padim-inspector/internal/domain/port"
)

// Detector связывает экстрактор, выученное распределение и постобработку:
// по батчу изображений возвращает карты аномалий и оценки.
type Detector struct {
	extractor port.FeatureExtractor
	scorer    *padim.Scorer
	post      *padim.PostProcessor
}

// NewDetector готовит оценщик (обращение ковариаций делается здесь один раз).
func NewDetector(ctx context.Context, extractor port.FeatureExtractor, dist *entity.Distribution, post *padim.PostProcessor) (*Detector, error) {
	if extractor == nil {
		return nil, errors.New("feature extractor is not configured")
	}
	if post == nil {
		return nil, errors.New("post-processor is not configured")
	}
	scorer, err := padim.NewScorer(ctx, dist)
	if err != nil {
		return nil, err
	}
	return &Detector{extractor: extractor, scorer: scorer, post: post}, nil
}

// LoadDetector читает распределение из хранилища и собирает детектор.
func LoadDetector(ctx context.Context, repo port.DistributionRepository, key entity.ArtifactKey, extractor port.FeatureExtractor, post *padim.PostProcessor) (*Detector, error) {
	dist, err := repo.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load distribution %s: %w", key, err)
	}
	return NewDetector(ctx, extractor, dist, post)
}

// Distribution возвращает распределение, по которому считаются расстояния.
func (d *Detector) Distribution() *entity.Distribution {
	return d.scorer.Distribution()
}

// Detect считает карты аномалий в разрешении входа и оценки для батча (B, 3, H, W).
func (d *Detector) Detect(ctx context.Context, images *entity.Volume) (*entity.Maps, []float64, error) {
	emb, err := padim.Embed(ctx, d.extractor, images, d.scorer.Distribution().Index)
	if err != nil {
		return nil, nil, err
	}
	distances, err := d.scorer.Score(ctx, emb)
	if err != nil {
		return nil, nil, err
	}
	return d.post.Process(ctx, distances, images)
}
