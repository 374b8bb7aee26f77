package vision

import "dental-bot/internal/domain/entity"

// Options настройки детектора.
type Options struct {
	ModelPath           string // путь к ONNX-модели YOLOv8
	LibraryPath         string // путь к onnxruntime; пусто — путь по умолчанию
	ImageSize           int    // сторона входа модели, как при обучении
	ConfidenceThreshold float64
	IOUThreshold        float64
	Vocabulary          entity.Vocabulary // порядок классов как в data.yaml
}

// DefaultOptions возвращает настройки, с которыми обучалась модель.
func DefaultOptions() Options {
	return Options{
		ModelPath:           "model/best.onnx",
		ImageSize:           1408,
		ConfidenceThreshold: 0.25,
		IOUThreshold:        0.7,
		Vocabulary:          entity.DefaultVocabulary(),
	}
}
