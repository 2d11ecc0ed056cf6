package port

import (
	"context"

	"padim-inspector/internal/domain/entity"
)

// FeatureExtractor интерфейс замороженной сети-экстрактора признаков
type FeatureExtractor interface {
	// Extract возвращает три промежуточные активации для батча (B, 3, H, W):
	// от мелкой к глубокой, с убывающим пространственным разрешением.
	Extract(ctx context.Context, batch *entity.Volume) (entity.Activations, error)
}
