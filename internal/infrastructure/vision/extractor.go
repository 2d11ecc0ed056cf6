//go:build gocv
// +build gocv

package vision

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"padim-inspector/internal/domain/entity"
	"padim-inspector/internal/domain/padim"
	"padim-inspector/internal/domain/port"
)

// DNNExtractor снимает активации трёх слоёв предобученной сети через OpenCV DNN.
// Сеть используется только на вывод, веса не меняются.
type DNNExtractor struct {
	arch Arch
	net  gocv.Net
	mu   sync.Mutex
}

// NewDNNExtractor загружает модель (ONNX, Caffe, TF) и настраивает бэкенд и устройство.
func NewDNNExtractor(modelPath string, arch Arch, backend, target string) (*DNNExtractor, error) {
	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("failed to load model %s", modelPath)
	}
	net.SetPreferableBackend(gocv.ParseNetBackend(backend))
	net.SetPreferableTarget(gocv.ParseNetTarget(target))
	return &DNNExtractor{arch: arch, net: net}, nil
}

// Arch возвращает пресет архитектуры.
func (e *DNNExtractor) Arch() Arch {
	return e.arch
}

// Extract прогоняет батч (B, 3, H, W) и возвращает выходы layer1..layer3.
func (e *DNNExtractor) Extract(ctx context.Context, batch *entity.Volume) (entity.Activations, error) {
	var acts entity.Activations
	if batch.Channels != 3 {
		return acts, fmt.Errorf("%w: got %d", padim.ErrChannelCount, batch.Channels)
	}
	if err := ctx.Err(); err != nil {
		return acts, err
	}

	blob := gocv.NewMatWithSizes([]int{batch.Batch, batch.Channels, batch.Height, batch.Width}, gocv.MatTypeCV32F)
	defer blob.Close()
	data, err := blob.DataPtrFloat32()
	if err != nil {
		return acts, fmt.Errorf("input blob: %w", err)
	}
	for i, v := range batch.Data {
		data[i] = float32(v)
	}

	e.mu.Lock()
	e.net.SetInput(blob, "")
	outs := e.net.ForwardLayers(e.arch.Layers[:])
	e.mu.Unlock()
	defer func() {
		for i := range outs {
			outs[i].Close()
		}
	}()
	if len(outs) != 3 {
		return acts, fmt.Errorf("expected 3 outputs, got %d", len(outs))
	}

	for i, out := range outs {
		v, err := matToVolume(out)
		if err != nil {
			return acts, fmt.Errorf("%s: %w", e.arch.Layers[i], err)
		}
		if v.Batch != batch.Batch {
			return acts, fmt.Errorf("%w: %s returned batch %d, want %d", padim.ErrShapeMismatch, e.arch.Layers[i], v.Batch, batch.Batch)
		}
		acts[i] = v
	}
	return acts, nil
}

// Close освобождает сеть.
func (e *DNNExtractor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.net.Close()
}

// matToVolume копирует 4-мерный блоб float32 в Volume.
func matToVolume(m gocv.Mat) (*entity.Volume, error) {
	dims := m.Size()
	if len(dims) != 4 {
		return nil, fmt.Errorf("expected 4-d output, got %v", dims)
	}
	data, err := m.DataPtrFloat32()
	if err != nil {
		return nil, err
	}
	v := entity.NewVolume(dims[0], dims[1], dims[2], dims[3])
	if len(data) != len(v.Data) {
		return nil, errors.New("output blob size does not match its shape")
	}
	for i, f := range data {
		v.Data[i] = float64(f)
	}
	return v, nil
}

var _ port.FeatureExtractor = (*DNNExtractor)(nil)
