package app

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"dental-bot/internal/domain/entity"
	"dental-bot/internal/infrastructure/storage"
)

func TestUserService_BeginCheckAndCancel(t *testing.T) {
	svc := NewUserService(storage.NewMemoryUserRepository())
	ctx := context.Background()

	user, err := svc.BeginCheck(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingRadiograph, user.State)

	user, err = svc.Cancel(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)
}

func TestUserService_SetState(t *testing.T) {
	svc := NewUserService(storage.NewMemoryUserRepository())
	ctx := context.Background()

	user, err := svc.SetState(ctx, 2, 20, entity.StateProcessing)
	require.NoError(t, err)
	require.Equal(t, entity.StateProcessing, user.State)

	again, err := svc.Get(ctx, 2, 20)
	require.NoError(t, err)
	require.True(t, again.IsBusy())
}

func TestUserService_BeginProcessingBusy(t *testing.T) {
	svc := NewUserService(storage.NewMemoryUserRepository())
	ctx := context.Background()

	_, err := svc.BeginCheck(ctx, 4, 40)
	require.NoError(t, err)
	_, err = svc.BeginProcessing(ctx, 4, 40)
	require.NoError(t, err)

	user, err := svc.BeginProcessing(ctx, 4, 40)
	require.ErrorIs(t, err, ErrUserBusy)
	require.Equal(t, entity.StateProcessing, user.State)
}

func TestUserService_BeginProcessingRequiresCheck(t *testing.T) {
	svc := NewUserService(storage.NewMemoryUserRepository())
	ctx := context.Background()

	user, err := svc.BeginProcessing(ctx, 6, 60)
	require.ErrorIs(t, err, ErrNotAwaiting)
	require.Equal(t, entity.StateMainMenu, user.State)

	_, err = svc.BeginCheck(ctx, 6, 60)
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, 6, 60)
	require.NoError(t, err)
	_, err = svc.BeginProcessing(ctx, 6, 60)
	require.ErrorIs(t, err, ErrNotAwaiting)
}

func TestUserService_BeginProcessingOnlyOnce(t *testing.T) {
	svc := NewUserService(storage.NewMemoryUserRepository())
	ctx := context.Background()

	_, err := svc.BeginCheck(ctx, 5, 50)
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		started atomic.Int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.BeginProcessing(ctx, 5, 50); err == nil {
				started.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), started.Load())
}
