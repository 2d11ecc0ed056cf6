package port

import (
	"context"

	"padim-inspector/internal/domain/entity"
)

// Batch — батч подготовленных изображений и их имена
type Batch struct {
	Images *entity.Volume
	Names  []string
}

// BatchSource интерфейс источника батчей изображений
type BatchSource interface {
	// Next возвращает следующий батч или io.EOF, когда изображения закончились
	Next(ctx context.Context) (*Batch, error)
}

// ImagePreprocessor интерфейс подготовки изображения ко входу сети
type ImagePreprocessor interface {
	// Preprocess декодирует изображение и возвращает объём (1, 3, H, W)
	Preprocess(imageData []byte) (*entity.Volume, error)
}

// HeatmapRenderer интерфейс отрисовки карты аномалий поверх исходного изображения
type HeatmapRenderer interface {
	// Render возвращает JPEG с наложенной картой аномалий
	Render(imageData []byte, result *entity.InspectionResult) ([]byte, error)
}

// QualityGate интерфейс проверки качества снимка перед инспекцией
type QualityGate interface {
	// Check возвращает ошибку с причиной, если снимок не годится
	Check(imageData []byte) error
}
