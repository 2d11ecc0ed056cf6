package port

import (
	"context"

	"padim-inspector/internal/domain/entity"
)

// DistributionRepository интерфейс хранилища выученных распределений
type DistributionRepository interface {
	// Save сохраняет распределение вместе с индексом каналов
	Save(ctx context.Context, key entity.ArtifactKey, dist *entity.Distribution) error

	// Load восстанавливает распределение; отсутствие артефакта считается ошибкой
	Load(ctx context.Context, key entity.ArtifactKey) (*entity.Distribution, error)

	// SaveEvaluation сохраняет карты аномалий и оценки прохода для офлайн-анализа
	SaveEvaluation(ctx context.Context, eval *entity.Evaluation) error
}

// ResultRepository интерфейс журнала оценок
type ResultRepository interface {
	// Record записывает оценки всех изображений прохода
	Record(ctx context.Context, eval *entity.Evaluation) error

	// Scores возвращает оценки прохода по имени изображения
	Scores(ctx context.Context, runID string) (map[string]float64, error)
}
