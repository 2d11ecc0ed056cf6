package entity

import "fmt"

// Volume — плотный 4-D массив (batch, channels, height, width) в порядке NCHW.
type Volume struct {
	Batch    int
	Channels int
	Height   int
	Width    int
	Data     []float64
}

// NewVolume создаёт обнулённый объём заданной формы.
func NewVolume(batch, channels, height, width int) *Volume {
	return &Volume{
		Batch:    batch,
		Channels: channels,
		Height:   height,
		Width:    width,
		Data:     make([]float64, batch*channels*height*width),
	}
}

// Index возвращает смещение элемента (b, c, y, x) в Data.
func (v *Volume) Index(b, c, y, x int) int {
	return ((b*v.Channels+c)*v.Height+y)*v.Width + x
}

func (v *Volume) At(b, c, y, x int) float64 {
	return v.Data[v.Index(b, c, y, x)]
}

func (v *Volume) Set(b, c, y, x int, val float64) {
	v.Data[v.Index(b, c, y, x)] = val
}

// Plane возвращает срез одного канала одного образца (height*width значений).
func (v *Volume) Plane(b, c int) []float64 {
	off := v.Index(b, c, 0, 0)
	return v.Data[off : off+v.Height*v.Width]
}

// Sample возвращает образец b как отдельный объём с batch = 1 (данные общие).
func (v *Volume) Sample(b int) *Volume {
	n := v.Channels * v.Height * v.Width
	return &Volume{
		Batch:    1,
		Channels: v.Channels,
		Height:   v.Height,
		Width:    v.Width,
		Data:     v.Data[b*n : (b+1)*n],
	}
}

// Shape возвращает форму в виде среза.
func (v *Volume) Shape() []int {
	return []int{v.Batch, v.Channels, v.Height, v.Width}
}

// Validate проверяет, что длина Data совпадает с формой.
func (v *Volume) Validate() error {
	if v == nil {
		return fmt.Errorf("volume is nil")
	}
	if v.Batch <= 0 || v.Channels <= 0 || v.Height <= 0 || v.Width <= 0 {
		return fmt.Errorf("volume has non-positive shape %v", v.Shape())
	}
	if want := v.Batch * v.Channels * v.Height * v.Width; len(v.Data) != want {
		return fmt.Errorf("volume data length %d does not match shape %v", len(v.Data), v.Shape())
	}
	return nil
}

// Concat склеивает объёмы вдоль оси batch. Формы остальных осей должны совпадать.
func Concat(vols ...*Volume) (*Volume, error) {
	if len(vols) == 0 {
		return nil, fmt.Errorf("nothing to concatenate")
	}
	first := vols[0]
	total := 0
	for _, v := range vols {
		if v.Channels != first.Channels || v.Height != first.Height || v.Width != first.Width {
			return nil, fmt.Errorf("cannot concatenate %v with %v", v.Shape(), first.Shape())
		}
		total += v.Batch
	}
	out := &Volume{
		Batch:    total,
		Channels: first.Channels,
		Height:   first.Height,
		Width:    first.Width,
		Data:     make([]float64, 0, total*first.Channels*first.Height*first.Width),
	}
	for _, v := range vols {
		out.Data = append(out.Data, v.Data...)
	}
	return out, nil
}

// Activations — три промежуточные активации сети: от мелкой к глубокой.
type Activations [3]*Volume
