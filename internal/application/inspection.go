package app

import (
	"context"
	"errors"
	"log/slog"

	"padim-inspector/internal/domain/entity"
	"padim-inspector/internal/domain/port"
	"padim-inspector/internal/logging"
)

// ErrCheckNotStarted возвращается, если фото пришло без команды /check.
var ErrCheckNotStarted = errors.New("check was not started")

type InspectionService struct {
	users     *UserService
	detector  *Detector
	pre       port.ImagePreprocessor
	renderer  port.HeatmapRenderer
	quality   port.QualityGate
	threshold float64
	logger    *slog.Logger
}

// InspectionOutput содержит результат проверки и картинку с тепловой картой.
type InspectionOutput struct {
	Result  *entity.InspectionResult
	Heatmap []byte
}

// InspectionConfig — зависимости сервиса проверки фото из бота.
type InspectionConfig struct {
	Detector     *Detector
	Preprocessor port.ImagePreprocessor
	Renderer     port.HeatmapRenderer
	Quality      port.QualityGate // может быть nil
	Threshold    float64          // оценка выше порога считается аномалией; 0 без вердикта
	Logger       *slog.Logger
}

// NewInspectionService создаёт сервис, который проверяет присланные фото.
func NewInspectionService(users *UserService, cfg InspectionConfig) *InspectionService {
	return &InspectionService{
		users:     users,
		detector:  cfg.Detector,
		pre:       cfg.Preprocessor,
		renderer:  cfg.Renderer,
		quality:   cfg.Quality,
		threshold: cfg.Threshold,
		logger:    logging.OrDefault(cfg.Logger),
	}
}

// Ready сообщает, загружено ли распределение.
func (s *InspectionService) Ready() bool {
	return s.detector != nil && s.pre != nil
}

// Inspect считает карту аномалий для фото, рисует тепловую карту
// и возвращает пользователя в главное меню.
func (s *InspectionService) Inspect(ctx context.Context, userID, chatID int64, photo []byte) (*InspectionOutput, error) {
	if !s.Ready() {
		return nil, errors.New("detector is not configured")
	}
	user, err := s.users.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if user.State != entity.StateAwaitingPhoto {
		return nil, ErrCheckNotStarted
	}
	if s.quality != nil {
		if err := s.quality.Check(photo); err != nil {
			return nil, err
		}
	}
	if err := s.users.UpdateState(ctx, userID, entity.StateProcessing); err != nil {
		return nil, err
	}

	result, err := s.score(ctx, photo)
	if err != nil {
		// Ждём следующее фото, как будто проверка не начиналась.
		_ = s.users.UpdateState(ctx, userID, entity.StateAwaitingPhoto)
		return nil, err
	}

	var heatmap []byte
	if s.renderer != nil {
		heatmap, err = s.renderer.Render(photo, result)
		if err != nil {
			s.logger.Warn("heatmap render failed", "user_id", userID, "error", err)
		}
	}

	if _, err := s.users.RecordCheck(ctx, userID, chatID, result.Score); err != nil {
		return nil, err
	}
	s.logger.Info("photo inspected", "user_id", userID, "score", result.Score, "anomalous", result.IsAnomalous)
	return &InspectionOutput{Result: result, Heatmap: heatmap}, nil
}

func (s *InspectionService) score(ctx context.Context, photo []byte) (*entity.InspectionResult, error) {
	images, err := s.pre.Preprocess(photo)
	if err != nil {
		return nil, err
	}
	maps, scores, err := s.detector.Detect(ctx, images)
	if err != nil {
		return nil, err
	}
	return &entity.InspectionResult{
		ImageWidth:  maps.Width,
		ImageHeight: maps.Height,
		Map:         maps.Sample(0),
		Score:       scores[0],
		IsAnomalous: s.threshold > 0 && scores[0] > s.threshold,
		HasVerdict:  s.threshold > 0,
	}, nil
}
