package padim

import (
	"context"
	"fmt"
	"math"
	"strings"

	"padim-inspector/internal/domain/entity"
)

// DefaultSigma — sigma гауссова сглаживания карты аномалий, в пикселях.
const DefaultSigma = 4.0

// gaussianTruncate — радиус ядра в сигмах, как у scipy.ndimage.gaussian_filter.
const gaussianTruncate = 4.0

// MaskPolicy определяет, какие пиксели изображения считаются передним планом.
type MaskPolicy string

const (
	// MaskNone — маска не применяется, оценка считается по всей карте.
	MaskNone MaskPolicy = "none"
	// MaskMin — передний план: среднее по каналам больше минимума этого же изображения.
	// Правило хрупкое, если фон не совпадает с минимальным значением пикселя.
	MaskMin MaskPolicy = "min"
)

// ParseMaskPolicy разбирает имя политики маскирования.
func ParseMaskPolicy(s string) (MaskPolicy, error) {
	switch MaskPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case MaskNone, "":
		return MaskNone, nil
	case MaskMin:
		return MaskMin, nil
	default:
		return "", fmt.Errorf("unknown mask policy %q", s)
	}
}

// MaskPolicyForModality возвращает политику по умолчанию для модальности:
// для снимков с неинформативным фоном (MRI, CT, RF) включается MaskMin.
func MaskPolicyForModality(modality string) MaskPolicy {
	switch strings.ToUpper(modality) {
	case "MRI", "CT", "RF":
		return MaskMin
	default:
		return MaskNone
	}
}

// PostProcessor превращает грубые карты расстояний в карты аномалий и оценки.
type PostProcessor struct {
	Sigma float64
	Mask  MaskPolicy
}

// NewPostProcessor проверяет параметры и создаёт постпроцессор.
func NewPostProcessor(sigma float64, mask MaskPolicy) (*PostProcessor, error) {
	if sigma < 0 || math.IsNaN(sigma) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidSigma, sigma)
	}
	if _, err := ParseMaskPolicy(string(mask)); err != nil {
		return nil, err
	}
	if mask == "" {
		mask = MaskNone
	}
	return &PostProcessor{Sigma: sigma, Mask: mask}, nil
}

// Process поднимает карты расстояний до разрешения изображений, сглаживает их,
// применяет маску переднего плана и возвращает карты аномалий (N, H, W) и оценки.
func (p *PostProcessor) Process(ctx context.Context, distances *entity.Maps, images *entity.Volume) (*entity.Maps, []float64, error) {
	if err := images.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrShapeMismatch, err)
	}
	if distances.N != images.Batch {
		return nil, nil, fmt.Errorf("%w: %d distance maps for %d images", ErrShapeMismatch, distances.N, images.Batch)
	}

	maps := InterpolateMaps(distances, images.Height, images.Width)
	kernel := gaussianKernel(p.Sigma)
	scores := make([]float64, maps.N)

	err := forEachRange(ctx, maps.N, func(_ context.Context, lo, hi int) error {
		tmp := make([]float64, maps.Height*maps.Width)
		for i := lo; i < hi; i++ {
			m := maps.Sample(i)
			smoothPlane(m, tmp, maps.Height, maps.Width, kernel)

			var mask []bool
			if p.Mask == MaskMin {
				mask = ForegroundMask(images, i)
				ApplyMask(m, mask)
			}
			scores[i] = Reduce(m, mask)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return maps, scores, nil
}

// ForegroundMask строит маску переднего плана образца b: среднее по каналам
// строго больше минимума этого среднего по изображению.
func ForegroundMask(images *entity.Volume, b int) []bool {
	hw := images.Height * images.Width
	avg := make([]float64, hw)
	for c := 0; c < images.Channels; c++ {
		for i, v := range images.Plane(b, c) {
			avg[i] += v
		}
	}
	lowest := math.Inf(1)
	for i := range avg {
		avg[i] /= float64(images.Channels)
		lowest = math.Min(lowest, avg[i])
	}
	mask := make([]bool, hw)
	for i, v := range avg {
		mask[i] = v > lowest
	}
	return mask
}

// ApplyMask обнуляет значения вне маски. Повторное применение ничего не меняет.
func ApplyMask(m []float64, mask []bool) {
	for i, in := range mask {
		if !in {
			m[i] = 0
		}
	}
}

// Reduce возвращает среднее значение карты внутри маски (или всей карты, если mask == nil).
// Пустая маска даёт 0.
func Reduce(m []float64, mask []bool) float64 {
	var (
		sum float64
		n   int
	)
	for i, v := range m {
		if mask != nil && !mask[i] {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// gaussianKernel возвращает нормированное одномерное ядро радиуса int(4*sigma + 0.5).
func gaussianKernel(sigma float64) []float64 {
	if sigma == 0 {
		return []float64{1}
	}
	radius := int(gaussianTruncate*sigma + 0.5)
	kernel := make([]float64, 2*radius+1)
	var sum float64
	for k := -radius; k <= radius; k++ {
		x := float64(k) / sigma
		w := math.Exp(-0.5 * x * x)
		kernel[k+radius] = w
		sum += w
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// reflectIndex отражает индекс за границей по правилу «d c b a | a b c d | d c b a».
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}

// smoothPlane применяет разделимый гауссов фильтр: сначала вдоль оси y, затем вдоль x.
// tmp: буфер того же размера, что и m.
func smoothPlane(m, tmp []float64, height, width int, kernel []float64) {
	if len(kernel) == 1 {
		return
	}
	radius := len(kernel) / 2

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var acc float64
			for k, w := range kernel {
				acc += w * m[reflectIndex(y+k-radius, height)*width+x]
			}
			tmp[y*width+x] = acc
		}
	}
	for y := 0; y < height; y++ {
		row := tmp[y*width : (y+1)*width]
		for x := 0; x < width; x++ {
			var acc float64
			for k, w := range kernel {
				acc += w * row[reflectIndex(x+k-radius, width)]
			}
			m[y*width+x] = acc
		}
	}
}
