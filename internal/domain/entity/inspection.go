package entity

// InspectionResult хранит итог проверки одного изображения.
type InspectionResult struct {
	ImageWidth  int       // ширина карты аномалий
	ImageHeight int       // высота карты аномалий
	Map         []float64 // карта аномалий, ImageHeight*ImageWidth
	Score       float64   // скалярная оценка аномальности
	IsAnomalous bool      // оценка превысила порог
	HasVerdict  bool      // порог задан, IsAnomalous имеет смысл
}

// Peak возвращает координаты и значение максимума карты.
func (r *InspectionResult) Peak() (x, y int, value float64) {
	for i, v := range r.Map {
		if i == 0 || v > value {
			value = v
			x, y = i%r.ImageWidth, i/r.ImageWidth
		}
	}
	return x, y, value
}

// Evaluation — результат прохода по тестовому набору.
type Evaluation struct {
	RunID  string
	Key    ArtifactKey
	Names  []string  // имена изображений в порядке обработки
	Maps   *Maps     // карты аномалий (N, H, W)
	Scores []float64 // оценки по изображениям
}
