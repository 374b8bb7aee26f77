package port

import (
	"context"

	"dental-bot/internal/domain/entity"
)

// LandmarkDetector интерфейс детектора находок на панорамном снимке
type LandmarkDetector interface {
	// Detect запускает модель и возвращает детекции с метками из словаря
	Detect(ctx context.Context, imageData []byte) (*entity.DetectionResult, error)

	// Annotate рисует рамки детекций и возвращает новую картинку
	Annotate(imageData []byte, detections []entity.Detection) ([]byte, error)
}
