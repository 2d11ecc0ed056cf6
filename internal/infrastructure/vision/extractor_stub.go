//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"errors"

	"padim-inspector/internal/domain/entity"
	"padim-inspector/internal/domain/port"
)

var errNoGoCV = errors.New("gocv build tag is not enabled")

// DNNExtractor — заглушка для сборки без OpenCV.
type DNNExtractor struct {
	arch Arch
}

// NewDNNExtractor возвращает ошибку, если сборка без тега gocv.
func NewDNNExtractor(modelPath string, arch Arch, backend, target string) (*DNNExtractor, error) {
	_ = modelPath
	_ = backend
	_ = target
	return nil, errNoGoCV
}

// Arch возвращает пресет архитектуры.
func (e *DNNExtractor) Arch() Arch {
	return e.arch
}

// Extract возвращает ошибку, если сборка без тега gocv.
func (e *DNNExtractor) Extract(ctx context.Context, batch *entity.Volume) (entity.Activations, error) {
	_ = ctx
	_ = batch
	return entity.Activations{}, errNoGoCV
}

// Close ничего не делает.
func (e *DNNExtractor) Close() error {
	return nil
}

var _ port.FeatureExtractor = (*DNNExtractor)(nil)
