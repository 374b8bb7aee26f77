package port

import (
	"context"

	"dental-bot/internal/domain/entity"
)

// ReportDescriber интерфейс описателя диагностического отчёта
type ReportDescriber interface {
	// Describe генерирует пояснение отчёта для пациента
	Describe(ctx context.Context, report entity.DiagnosisReport) (*entity.Explanation, error)
}
