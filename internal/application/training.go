package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"padim-inspector/internal/domain/entity"
	"padim-inspector/internal/domain/padim"
	"padim-inspector/internal/domain/port"
	"padim-inspector/internal/logging"
)

// TrainingConfig задаёт один прогон обучения.
type TrainingConfig struct {
	Key           entity.ArtifactKey
	Ridge         float64
	TotalChannels int    // каналов в склеенном эмбеддинге
	Dim           int    // сколько каналов оставить; при 0 или >= TotalChannels все
	Seed          uint64 // зерно выбора каналов
}

// TrainingService оценивает распределение по нормальным изображениям и сохраняет его.
type TrainingService struct {
	extractor port.FeatureExtractor
	repo      port.DistributionRepository
	logger    *slog.Logger
}

func NewTrainingService(extractor port.FeatureExtractor, repo port.DistributionRepository, logger *slog.Logger) *TrainingService {
	return &TrainingService{extractor: extractor, repo: repo, logger: logging.OrDefault(logger)}
}

// Train проходит источник до конца, считает распределение и сохраняет его под cfg.Key.
func (s *TrainingService) Train(ctx context.Context, src port.BatchSource, cfg TrainingConfig) (*entity.Distribution, error) {
	if s.extractor == nil {
		return nil, errors.New("feature extractor is not configured")
	}
	index, err := channelIndex(cfg)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	acc := padim.NewAccumulator()
	for {
		batch, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("next batch: %w", err)
		}
		emb, err := padim.Embed(ctx, s.extractor, batch.Images, index)
		if err != nil {
			return nil, err
		}
		if err := acc.Add(emb); err != nil {
			return nil, err
		}
		s.logger.Debug("batch embedded", "key", cfg.Key.String(), "images", len(batch.Names), "total", acc.Len())
	}

	dist, err := acc.Finalize(ctx, cfg.Ridge)
	if err != nil {
		return nil, err
	}
	dist.Arch = cfg.Key.Arch
	dist.Index = index

	if err := s.repo.Save(ctx, cfg.Key, dist); err != nil {
		return nil, fmt.Errorf("save distribution %s: %w", cfg.Key, err)
	}
	s.logger.Info("distribution trained",
		"key", cfg.Key.String(),
		"samples", dist.Samples,
		"channels", dist.Channels,
		"height", dist.Height,
		"width", dist.Width,
		"elapsed", time.Since(start),
	)
	return dist, nil
}

func channelIndex(cfg TrainingConfig) (*entity.ChannelIndex, error) {
	if cfg.Dim <= 0 || cfg.Dim >= cfg.TotalChannels {
		return nil, nil
	}
	return entity.NewChannelIndex(cfg.TotalChannels, cfg.Dim, cfg.Seed)
}
