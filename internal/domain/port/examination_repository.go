package port

import (
	"context"

	"github.com/google/uuid"

	"dental-bot/internal/domain/entity"
)

// ExaminationRepository интерфейс хранилища обследований
type ExaminationRepository interface {
	// Save сохраняет обследование
	Save(ctx context.Context, exam *entity.Examination) error

	// Get возвращает обследование по ID
	Get(ctx context.Context, id uuid.UUID) (*entity.Examination, error)

	// ListByUser возвращает последние обследования пользователя, новые первыми
	ListByUser(ctx context.Context, userID int64, limit int) ([]*entity.Examination, error)
}
