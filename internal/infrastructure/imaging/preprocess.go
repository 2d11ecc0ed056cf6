package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"padim-inspector/internal/domain/entity"
	"padim-inspector/internal/domain/port"
)

// Нормировка ImageNet, на которой обучены резнеты-экстракторы.
var (
	imageNetMean = [3]float64{0.485, 0.456, 0.406}
	imageNetStd  = [3]float64{0.229, 0.224, 0.225}
)

// Preprocessor декодирует изображение, приводит его к квадрату Size x Size
// и нормирует в объём (1, 3, Size, Size).
type Preprocessor struct {
	Size int
	Mean [3]float64
	Std  [3]float64
}

// NewPreprocessor создаёт препроцессор с нормировкой ImageNet.
func NewPreprocessor(size int) *Preprocessor {
	return &Preprocessor{Size: size, Mean: imageNetMean, Std: imageNetStd}
}

// Preprocess декодирует JPEG/PNG/WebP.
func (p *Preprocessor) Preprocess(imageData []byte) (*entity.Volume, error) {
	if len(imageData) == 0 {
		return nil, errors.New("empty image")
	}
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return p.FromImage(img), nil
}

// FromImage масштабирует изображение билинейно и раскладывает его по каналам.
// Одноканальные изображения при переводе в RGBA получают три одинаковых канала.
func (p *Preprocessor) FromImage(img image.Image) *entity.Volume {
	rgba := image.NewRGBA(image.Rect(0, 0, p.Size, p.Size))
	draw.BiLinear.Scale(rgba, rgba.Bounds(), img, img.Bounds(), draw.Src, nil)

	v := entity.NewVolume(1, 3, p.Size, p.Size)
	for y := 0; y < p.Size; y++ {
		for x := 0; x < p.Size; x++ {
			off := rgba.PixOffset(x, y)
			for c := 0; c < 3; c++ {
				val := float64(rgba.Pix[off+c]) / 255
				v.Set(0, c, y, x, (val-p.Mean[c])/p.Std[c])
			}
		}
	}
	return v
}

var _ port.ImagePreprocessor = (*Preprocessor)(nil)
