package port

import (
	"context"

	"dental-bot/internal/domain/entity"
)

// UserRepository хранит состояние диалога пользователей
type UserRepository interface {
	// Get возвращает копию пользователя, создаёт нового если не найден
	Get(ctx context.Context, userID, chatID int64) (*entity.User, error)

	// Update атомарно применяет fn и сохраняет результат.
	// Если fn вернула ошибку, состояние не меняется.
	Update(ctx context.Context, userID, chatID int64, fn func(*entity.User) error) (*entity.User, error)
}
