package storage

import (
	"context"
	"sync"

	"dental-bot/internal/domain/entity"
	"dental-bot/internal/domain/port"
)

// MemoryUserRepository держит состояния диалога в памяти процесса.
// Наружу отдаются только копии, менять состояние можно через Update.
type MemoryUserRepository struct {
	mu    sync.Mutex
	users map[int64]entity.User
}

// NewMemoryUserRepository создаёт пустое хранилище
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users: make(map[int64]entity.User),
	}
}

func (r *MemoryUserRepository) Get(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user := r.load(userID, chatID)
	return &user, nil
}

func (r *MemoryUserRepository) Update(ctx context.Context, userID, chatID int64, fn func(*entity.User) error) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user := r.load(userID, chatID)
	if err := fn(&user); err != nil {
		return &user, err
	}
	r.users[userID] = user

	return &user, nil
}

// load вызывается под r.mu. Новый пользователь сразу запоминается,
// чат обновляется, если пользователь пишет из другого чата.
func (r *MemoryUserRepository) load(userID, chatID int64) entity.User {
	user, ok := r.users[userID]
	if !ok {
		user = *entity.NewUser(userID, chatID)
	}
	if chatID != 0 {
		user.ChatID = chatID
	}
	r.users[userID] = user
	return user
}

var _ port.UserRepository = (*MemoryUserRepository)(nil)
