package entity

import "fmt"

// Distribution — выученное гауссово распределение для каждой пространственной ячейки.
// Mean хранится как [H*W][C], Covariance как [H*W][C][C] (row-major, плоско).
type Distribution struct {
	Arch       string
	Channels   int
	Height     int
	Width      int
	Ridge      float64
	Samples    int // размер обучающей выборки
	Index      *ChannelIndex
	Mean       []float64
	Covariance []float64
}

// NewDistribution выделяет память под распределение заданной формы.
func NewDistribution(channels, height, width int) *Distribution {
	hw := height * width
	return &Distribution{
		Channels:   channels,
		Height:     height,
		Width:      width,
		Mean:       make([]float64, hw*channels),
		Covariance: make([]float64, hw*channels*channels),
	}
}

// Locations возвращает число ячеек H*W.
func (d *Distribution) Locations() int {
	return d.Height * d.Width
}

// MeanAt возвращает вектор среднего для ячейки i.
func (d *Distribution) MeanAt(i int) []float64 {
	return d.Mean[i*d.Channels : (i+1)*d.Channels]
}

// CovarianceAt возвращает матрицу ковариации ячейки i (C*C значений, row-major).
func (d *Distribution) CovarianceAt(i int) []float64 {
	cc := d.Channels * d.Channels
	return d.Covariance[i*cc : (i+1)*cc]
}

// Validate проверяет согласованность формы и данных.
func (d *Distribution) Validate() error {
	if d.Channels <= 0 || d.Height <= 0 || d.Width <= 0 {
		return fmt.Errorf("distribution has non-positive shape (%d, %d, %d)", d.Channels, d.Height, d.Width)
	}
	hw := d.Locations()
	if len(d.Mean) != hw*d.Channels {
		return fmt.Errorf("mean length %d, want %d", len(d.Mean), hw*d.Channels)
	}
	if len(d.Covariance) != hw*d.Channels*d.Channels {
		return fmt.Errorf("covariance length %d, want %d", len(d.Covariance), hw*d.Channels*d.Channels)
	}
	if d.Index.Len() > 0 && d.Index.Len() != d.Channels {
		return fmt.Errorf("channel index size %d does not match channels %d", d.Index.Len(), d.Channels)
	}
	return nil
}

// ArtifactKey определяет, под каким именем хранится выученное распределение.
type ArtifactKey struct {
	Arch       string
	Experiment string
	Modality   string
}

// Name возвращает путь артефакта распределения.
func (k ArtifactKey) Name() string {
	return fmt.Sprintf("%s/%s_%s.padim", k.Modality, k.Arch, k.Experiment)
}

// MapsName возвращает путь сохранённых карт аномалий.
func (k ArtifactKey) MapsName() string {
	return fmt.Sprintf("%s/%s_%s_maps.padim", k.Modality, k.Arch, k.Experiment)
}

// ScoresName возвращает путь сохранённых оценок.
func (k ArtifactKey) ScoresName() string {
	return fmt.Sprintf("%s/%s_%s_scores.padim", k.Modality, k.Arch, k.Experiment)
}

func (k ArtifactKey) String() string {
	return k.Name()
}
