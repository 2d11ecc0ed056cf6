package entity

import "fmt"

// Maps — набор двумерных карт (N, H, W): карты расстояний или карты аномалий.
// Ведущая ось образцов сохраняется и при N = 1.
type Maps struct {
	N      int
	Height int
	Width  int
	Data   []float64
}

// NewMaps создаёт обнулённый набор карт.
func NewMaps(n, height, width int) *Maps {
	return &Maps{N: n, Height: height, Width: width, Data: make([]float64, n*height*width)}
}

// Sample возвращает карту образца i (данные общие).
func (m *Maps) Sample(i int) []float64 {
	hw := m.Height * m.Width
	return m.Data[i*hw : (i+1)*hw]
}

func (m *Maps) At(i, y, x int) float64 {
	return m.Data[(i*m.Height+y)*m.Width+x]
}

// Shape возвращает форму в виде среза.
func (m *Maps) Shape() []int {
	return []int{m.N, m.Height, m.Width}
}

// AppendMaps склеивает наборы карт вдоль оси образцов.
func AppendMaps(dst *Maps, src *Maps) (*Maps, error) {
	if dst == nil || dst.N == 0 {
		out := *src
		out.Data = append([]float64(nil), src.Data...)
		return &out, nil
	}
	if dst.Height != src.Height || dst.Width != src.Width {
		return nil, fmt.Errorf("cannot append maps %v to %v", src.Shape(), dst.Shape())
	}
	dst.N += src.N
	dst.Data = append(dst.Data, src.Data...)
	return dst, nil
}
