package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"dental-bot/internal/domain/entity"
	"dental-bot/internal/domain/port"
)

// MemoryExaminationRepository in-memory хранилище обследований
type MemoryExaminationRepository struct {
	mu    sync.RWMutex
	exams map[uuid.UUID]*entity.Examination
}

// NewMemoryExaminationRepository создаёт новое in-memory хранилище
func NewMemoryExaminationRepository() *MemoryExaminationRepository {
	return &MemoryExaminationRepository{
		exams: make(map[uuid.UUID]*entity.Examination),
	}
}

// Save сохраняет обследование, перезаписывая запись с тем же ID
func (r *MemoryExaminationRepository) Save(ctx context.Context, exam *entity.Examination) error {
	r.mu.Lock()
	r.exams[exam.ID] = exam
	r.mu.Unlock()

	return nil
}

// Get возвращает обследование по ID
func (r *MemoryExaminationRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Examination, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exam, ok := r.exams[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	return exam, nil
}

// ListByUser возвращает последние обследования пользователя
func (r *MemoryExaminationRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*entity.Examination, error) {
	r.mu.RLock()
	out := make([]*entity.Examination, 0)
	for _, exam := range r.exams {
		if exam.UserID == userID {
			out = append(out, exam)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Проверка реализации интерфейса
var _ port.ExaminationRepository = (*MemoryExaminationRepository)(nil)
