package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"padim-inspector/internal/domain/entity"
	"padim-inspector/internal/domain/padim"
	"padim-inspector/internal/domain/port"
	"padim-inspector/internal/logging"
)

// EvaluationService прогоняет тестовый набор через выученное распределение,
// сохраняет карты и оценки и пишет оценки в журнал.
type EvaluationService struct {
	extractor port.FeatureExtractor
	repo      port.DistributionRepository
	results   port.ResultRepository
	logger    *slog.Logger
}

// NewEvaluationService создаёт сервис; results может быть nil, тогда журнал не ведётся.
func NewEvaluationService(extractor port.FeatureExtractor, repo port.DistributionRepository, results port.ResultRepository, logger *slog.Logger) *EvaluationService {
	return &EvaluationService{extractor: extractor, repo: repo, results: results, logger: logging.OrDefault(logger)}
}

// Evaluate загружает распределение key и оценивает все изображения источника.
func (s *EvaluationService) Evaluate(ctx context.Context, key entity.ArtifactKey, src port.BatchSource, post *padim.PostProcessor) (*entity.Evaluation, error) {
	start := time.Now()
	detector, err := LoadDetector(ctx, s.repo, key, s.extractor, post)
	if err != nil {
		return nil, err
	}

	eval := &entity.Evaluation{RunID: uuid.NewString(), Key: key}
	for {
		batch, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("next batch: %w", err)
		}
		maps, scores, err := detector.Detect(ctx, batch.Images)
		if err != nil {
			return nil, err
		}
		if eval.Maps, err = entity.AppendMaps(eval.Maps, maps); err != nil {
			return nil, err
		}
		eval.Names = append(eval.Names, batch.Names...)
		eval.Scores = append(eval.Scores, scores...)
	}
	if len(eval.Scores) == 0 {
		return nil, errors.New("evaluation source is empty")
	}

	if err := s.repo.SaveEvaluation(ctx, eval); err != nil {
		return nil, fmt.Errorf("save evaluation %s: %w", key, err)
	}
	if s.results != nil {
		if err := s.results.Record(ctx, eval); err != nil {
			return nil, fmt.Errorf("record scores: %w", err)
		}
	}
	s.logger.Info("evaluation finished",
		"key", key.String(),
		"run_id", eval.RunID,
		"images", len(eval.Scores),
		"elapsed", time.Since(start),
	)
	return eval, nil
}
