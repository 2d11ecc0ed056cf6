package container

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	app "padim-inspector/internal/application"
	"padim-inspector/internal/domain/entity"
	"padim-inspector/internal/infrastructure/storage"
	"padim-inspector/internal/logging"
)

func TestNew_WiresServices(t *testing.T) {
	c := New(Deps{
		Users:     storage.NewMemoryUserRepository(),
		Artifacts: storage.NewArtifactRepository(storage.NewMemoryStore(), storage.Codec{}),
		Logger:    logging.Noop(),
	}, app.InspectionConfig{})

	require.NotNil(t, c.TrainingService)
	require.NotNil(t, c.EvaluationService)
	require.False(t, c.InspectionService.Ready())

	user, err := c.UserService.BeginCheck(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingPhoto, user.State)
}
