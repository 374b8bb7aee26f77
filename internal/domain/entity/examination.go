package entity

import (
	"time"

	"github.com/google/uuid"
)

// Examination хранит итог анализа одного панорамного снимка.
type Examination struct {
	ID          uuid.UUID       `json:"id"`
	UserID      int64           `json:"user_id"`
	CreatedAt   time.Time       `json:"created_at"`
	ImageWidth  int             `json:"image_width"`  // ширина исходного снимка
	ImageHeight int             `json:"image_height"` // высота исходного снимка
	Detections  []Detection     `json:"detections"`   // детекции без изменений
	Report      DiagnosisReport `json:"report"`
	Explanation *Explanation    `json:"explanation,omitempty"`
}

// NewExamination создаёт обследование с новым идентификатором.
func NewExamination(userID int64, detections []Detection, report DiagnosisReport) *Examination {
	return &Examination{
		ID:         uuid.New(),
		UserID:     userID,
		CreatedAt:  time.Now().UTC(),
		Detections: detections,
		Report:     report,
	}
}

// DetectionResult ответ детектора для одного снимка.
type DetectionResult struct {
	ImageWidth  int
	ImageHeight int
	Detections  []Detection
}
