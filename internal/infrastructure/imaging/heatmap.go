package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"

	"padim-inspector/internal/domain/entity"
	"padim-inspector/internal/domain/port"
)

// HeatmapRenderer накладывает карту аномалий на изображение цветовой шкалой
// от синего (норма) к красному (аномалия).
type HeatmapRenderer struct {
	Alpha float64 // доля цвета карты при смешивании
	Scale float64 // значение карты, которому соответствует красный; 0: максимум карты
}

// NewHeatmapRenderer создаёт рендерер с полупрозрачным наложением.
func NewHeatmapRenderer(scale float64) *HeatmapRenderer {
	return &HeatmapRenderer{Alpha: 0.5, Scale: scale}
}

// Render возвращает JPEG размера карты аномалий.
func (r *HeatmapRenderer) Render(imageData []byte, result *entity.InspectionResult) ([]byte, error) {
	if result == nil || len(result.Map) == 0 {
		return nil, errors.New("empty anomaly map")
	}
	if len(result.Map) != result.ImageWidth*result.ImageHeight {
		return nil, fmt.Errorf("anomaly map has %d values for %dx%d", len(result.Map), result.ImageWidth, result.ImageHeight)
	}
	src, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := image.Rect(0, 0, result.ImageWidth, result.ImageHeight)
	base := image.NewRGBA(bounds)
	draw.BiLinear.Scale(base, bounds, src, src.Bounds(), draw.Src, nil)

	scale := r.Scale
	if scale <= 0 {
		_, _, scale = result.Peak()
	}
	out := image.NewRGBA(bounds)
	for y := 0; y < result.ImageHeight; y++ {
		for x := 0; x < result.ImageWidth; x++ {
			orig, _ := colorful.MakeColor(base.At(x, y))
			heat := HeatColor(result.Map[y*result.ImageWidth+x], scale)
			out.Set(x, y, orig.BlendRgb(heat, r.Alpha).Clamped())
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// HeatColor переводит значение в цвет шкалы: 0 синий, от scale и выше красный.
func HeatColor(value, scale float64) colorful.Color {
	t := 0.0
	if scale > 0 {
		t = math.Max(0, math.Min(1, value/scale))
	}
	return colorful.Hsv(240*(1-t), 1, 1)
}

var _ port.HeatmapRenderer = (*HeatmapRenderer)(nil)
