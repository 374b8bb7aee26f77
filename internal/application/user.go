package app

import (
	"context"

	"dental-bot/internal/domain/entity"
	"dental-bot/internal/domain/port"
)

// UserService ведёт состояние диалога с пользователем бота.
type UserService struct {
	repo port.UserRepository
}

func NewUserService(repo port.UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) Get(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.repo.Get(ctx, userID, chatID)
}

func (s *UserService) SetState(ctx context.Context, userID, chatID int64, state entity.UserState) (*entity.User, error) {
	return s.repo.Update(ctx, userID, chatID, func(u *entity.User) error {
		u.SetState(state)
		return nil
	})
}

func (s *UserService) BeginCheck(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.SetState(ctx, userID, chatID, entity.StateAwaitingRadiograph)
}

func (s *UserService) Cancel(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.SetState(ctx, userID, chatID, entity.StateMainMenu)
}

// BeginProcessing переводит пользователя из ожидания снимка в обработку.
// Проверка и смена состояния выполняются одним Update: второй снимок
// получает ErrUserBusy, снимок без /check получает ErrNotAwaiting.
func (s *UserService) BeginProcessing(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.repo.Update(ctx, userID, chatID, func(u *entity.User) error {
		switch u.State {
		case entity.StateProcessing:
			return ErrUserBusy
		case entity.StateAwaitingRadiograph:
			u.SetState(entity.StateProcessing)
			return nil
		default:
			return ErrNotAwaiting
		}
	})
}
