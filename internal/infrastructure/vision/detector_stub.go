//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"errors"

	"dental-bot/internal/domain/entity"
)

var errNoGoCV = errors.New("gocv build tag is not enabled")

type YOLODetector struct {
	opts Options
}

// NewYOLODetector создаёт детектор-заглушку (без OpenCV и onnxruntime).
func NewYOLODetector(opts Options) (*YOLODetector, error) {
	return &YOLODetector{opts: opts}, nil
}

// Detect возвращает ошибку, если сборка без тега gocv.
func (d *YOLODetector) Detect(ctx context.Context, imageData []byte) (*entity.DetectionResult, error) {
	_ = ctx
	_ = imageData
	return nil, errNoGoCV
}

// Annotate возвращает ошибку, если сборка без тега gocv.
func (d *YOLODetector) Annotate(imageData []byte, detections []entity.Detection) ([]byte, error) {
	_ = imageData
	_ = detections
	return nil, errNoGoCV
}

// Close ничего не делает.
func (d *YOLODetector) Close() error {
	return nil
}
