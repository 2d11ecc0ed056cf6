package container

import (
	"log/slog"

	app "padim-inspector/internal/application"
	"padim-inspector/internal/domain/port"
)

type Container struct {
	UserService       *app.UserService
	TrainingService   *app.TrainingService
	EvaluationService *app.EvaluationService
	InspectionService *app.InspectionService
}

// Deps — инфраструктура, из которой собираются сервисы приложения.
type Deps struct {
	Users     port.UserRepository
	Extractor port.FeatureExtractor
	Artifacts port.DistributionRepository
	Results   port.ResultRepository // может быть nil
	Logger    *slog.Logger
}

func New(deps Deps, inspection app.InspectionConfig) *Container {
	userService := app.NewUserService(deps.Users)
	if inspection.Logger == nil {
		inspection.Logger = deps.Logger
	}

	return &Container{
		UserService:       userService,
		TrainingService:   app.NewTrainingService(deps.Extractor, deps.Artifacts, deps.Logger),
		EvaluationService: app.NewEvaluationService(deps.Extractor, deps.Artifacts, deps.Results, deps.Logger),
		InspectionService: app.NewInspectionService(userService, inspection),
	}
}
