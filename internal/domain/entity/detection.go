package entity

import "image"

// Box нормализованная рамка детекции (центр, ширина, высота в долях изображения).
type Box struct {
	CX float64 `json:"cx"`
	CY float64 `json:"cy"`
	W  float64 `json:"w"`
	H  float64 `json:"h"`
}

// Rect переводит рамку в пиксели изображения заданного размера.
func (b Box) Rect(width, height int) image.Rectangle {
	x1 := int((b.CX - b.W/2) * float64(width))
	y1 := int((b.CY - b.H/2) * float64(height))
	x2 := int((b.CX + b.W/2) * float64(width))
	y2 := int((b.CY + b.H/2) * float64(height))
	return image.Rect(x1, y1, x2, y2).Intersect(image.Rect(0, 0, width, height))
}

// Detection одна детекция модели. Confidence и Box в диагностике не участвуют.
type Detection struct {
	ClassIndex int     `json:"class_index"`
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// Labels возвращает метки детекций в исходном порядке.
func Labels(detections []Detection) []Label {
	labels := make([]Label, 0, len(detections))
	for _, d := range detections {
		labels = append(labels, d.Label)
	}
	return labels
}
