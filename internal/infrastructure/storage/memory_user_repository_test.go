package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"padim-inspector/internal/domain/entity"
)

func TestMemoryUserRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	u, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	u.SetState(entity.StateProcessing)

	fresh, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, fresh.State)

	require.NoError(t, repo.Save(ctx, u))
	fresh, err = repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateProcessing, fresh.State)

	require.NoError(t, repo.UpdateState(ctx, 1, entity.StateAwaitingPhoto))
	fresh, err = repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingPhoto, fresh.State)
}
